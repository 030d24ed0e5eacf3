package backend

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/freelance-advisor/internal/record"
)

// Stage names a step of the decode cascade. Stages run cheapest and most likely
// correct first.
type Stage string

const (
	StageStrict  Stage = "strict"
	StageRepair  Stage = "repair"
	StageSalvage Stage = "salvage"
)

// StageError is the failure of a single cascade stage.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s decode: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

var utf8BOM = []byte("\xef\xbb\xbf")

// Decode turns a backend body into records. It tries a strict decode, then the
// repaired text, then salvages every standalone object it can find. A body that is
// well-formed JSON but not an array fails right after the strict stage. The
// returned error joins the errors of every stage that ran.
func Decode(body []byte) ([]record.Record, Stage, error) {
	body = bytes.TrimPrefix(body, utf8BOM)

	records, err := record.DecodeList(body)
	if err == nil {
		return records, StageStrict, nil
	}
	errs := []error{&StageError{Stage: StageStrict, Err: err}}
	if errors.Is(err, record.ErrNotList) {
		return nil, StageStrict, errors.Join(errs...)
	}

	text := string(body)
	repaired := Repair(text)
	records, err = record.DecodeList([]byte(repaired))
	if err == nil {
		return records, StageRepair, nil
	}
	errs = append(errs, &StageError{Stage: StageRepair, Err: err})

	records, err = Salvage(text)
	if err == nil {
		return records, StageSalvage, nil
	}
	errs = append(errs, &StageError{Stage: StageSalvage, Err: err})

	return nil, StageSalvage, errors.Join(errs...)
}

// Repair rewrites the assembly glitches the canister gateway is known to produce:
// trailing commas before a closer, missing commas between adjacent objects,
// duplicated closing braces or brackets (including the `},},{` form). Rewrites
// only touch text outside string literals and a closer is dropped only when it
// does not balance anything, so valid JSON comes back unchanged. The pass is run
// to a fixed point which makes Repair idempotent.
func Repair(text string) string {
	for i := 0; i <= len(text); i++ {
		next := repairPass(text)
		if next == text {
			return next
		}
		text = next
	}
	return text
}

func repairPass(text string) string {
	var out strings.Builder
	out.Grow(len(text) + 8)

	var (
		stack    []byte
		inString bool
		escaped  bool
		// last emitted byte outside strings and whitespace
		last byte
	)

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inString {
			out.WriteByte(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
				last = '"'
			}
			continue
		}

		switch c {
		case '"':
			inString = true
			out.WriteByte(c)
		case ' ', '\t', '\n', '\r':
			out.WriteByte(c)
		case ',':
			if isCloser(nextSignificant(text, i+1)) {
				continue
			}
			out.WriteByte(c)
			last = c
		case '{', '[':
			if c == '{' && last == '}' {
				out.WriteByte(',')
			}
			stack = append(stack, c)
			out.WriteByte(c)
			last = c
		case '}', ']':
			open := byte('{')
			if c == ']' {
				open = '['
			}
			if len(stack) > 0 && stack[len(stack)-1] == open {
				stack = stack[:len(stack)-1]
				out.WriteByte(c)
				last = c
				continue
			}
			if last == c {
				// duplicated closer that balances nothing
				continue
			}
			out.WriteByte(c)
			last = c
		default:
			out.WriteByte(c)
			last = c
		}
	}

	return out.String()
}

func nextSignificant(text string, from int) byte {
	for i := from; i < len(text); i++ {
		switch text[i] {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return text[i]
		}
	}
	return 0
}

func isCloser(c byte) bool {
	return c == '}' || c == ']'
}

// Salvage scans text for balanced top-level objects and decodes each on its own,
// retrying once with the candidate repaired. It returns whatever decoded, which
// may be a subset of the real data.
func Salvage(text string) ([]record.Record, error) {
	candidates := objectCandidates(text)
	if len(candidates) == 0 {
		return nil, errors.New("no JSON objects found")
	}

	records := make([]record.Record, 0, len(candidates))
	for _, candidate := range candidates {
		obj, err := record.DecodeObject([]byte(candidate))
		if err != nil {
			obj, err = record.DecodeObject([]byte(Repair(candidate)))
		}
		if err != nil {
			continue
		}
		records = append(records, obj)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("none of %d candidate objects could be decoded", len(candidates))
	}
	return records, nil
}

// objectCandidates returns non-overlapping balanced {...} spans, left to right.
// Brace counting ignores string contents. When an opening brace never balances the
// scan resumes right after it so nested objects can still be recovered.
func objectCandidates(text string) []string {
	var out []string
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		end := matchBrace(text, i)
		if end < 0 {
			continue
		}
		out = append(out, text[i:end+1])
		i = end
	}
	return out
}

func matchBrace(text string, start int) int {
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
