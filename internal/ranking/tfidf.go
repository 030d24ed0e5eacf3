// Package ranking scores jobs against free-text queries with TF-IDF weights and
// cosine similarity. Vectors are rebuilt from the current cache snapshot on every
// call and never persisted.
package ranking

import (
	"math"
	"regexp"
	"strings"
)

// Vector maps a token to its weight.
type Vector map[string]float64

// RE2 \w is ASCII only, so letters and digits are spelled out.
var wordRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Tokenize lowercases text and returns its runs of letters, digits and
// underscores in any script.
func Tokenize(text string) []string {
	return wordRe.FindAllString(strings.ToLower(text), -1)
}

// TermFrequency returns count/len for every token.
func TermFrequency(tokens []string) Vector {
	tf := make(Vector)
	if len(tokens) == 0 {
		return tf
	}
	total := float64(len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	for t, c := range tf {
		tf[t] = c / total
	}
	return tf
}

// InverseDocFrequency computes ln(N/df) over the corpus without smoothing. A token
// present in every document gets weight 0.
func InverseDocFrequency(corpus [][]string) Vector {
	idf := make(Vector)
	n := len(corpus)
	if n == 0 {
		return idf
	}

	df := make(map[string]int)
	for _, doc := range corpus {
		seen := make(map[string]struct{}, len(doc))
		for _, t := range doc {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}

	for t, c := range df {
		idf[t] = math.Log(float64(n) / float64(c))
	}
	return idf
}

// Vectorize multiplies term frequencies by IDF. Tokens unknown to idf weigh 0.
func Vectorize(tf, idf Vector) Vector {
	v := make(Vector, len(tf))
	for t, w := range tf {
		v[t] = w * idf[t]
	}
	return v
}

// Cosine returns dot/(|a||b|), or 0 when either vector has zero norm.
func Cosine(a, b Vector) float64 {
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}

	var dot float64
	for t, w := range small {
		dot += w * large[t]
	}

	na, nb := norm(a), norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (na * nb)
}

func norm(v Vector) float64 {
	var sum float64
	for _, w := range v {
		sum += w * w
	}
	return math.Sqrt(sum)
}
