package ranking

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/freelance-advisor/internal/record"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"ui", "ux", "design", "go_lang", "2024"}, Tokenize("UI/UX  Design, go_lang 2024!"))
	assert.Empty(t, Tokenize("  -- "))
}

func TestTokenizeKeepsNonASCIIWords(t *testing.T) {
	assert.Equal(t, []string{"développeur", "café", "naïve"}, Tokenize("Développeur Café naïve"))
	assert.Equal(t, []string{"разработка", "api", "日本語"}, Tokenize("Разработка API, 日本語!"))
}

func TestTermFrequency(t *testing.T) {
	tf := TermFrequency([]string{"go", "go", "sql", "api"})
	assert.InDelta(t, 0.5, tf["go"], 1e-12)
	assert.InDelta(t, 0.25, tf["sql"], 1e-12)
	assert.Empty(t, TermFrequency(nil))
}

func TestIDFOfUbiquitousTokenIsZero(t *testing.T) {
	corpus := [][]string{{"go", "api"}, {"go", "sql"}, {"go"}}
	idf := InverseDocFrequency(corpus)

	assert.Equal(t, 0.0, idf["go"])
	assert.InDelta(t, math.Log(3), idf["api"], 1e-12)

	v := Vectorize(TermFrequency(corpus[0]), idf)
	assert.Equal(t, 0.0, v["go"])
	assert.Greater(t, v["api"], 0.0)
}

func TestCosineProperties(t *testing.T) {
	a := Vector{"go": 0.3, "api": 0.1}
	b := Vector{"go": 0.2, "sql": 0.5}
	disjoint := Vector{"design": 1}

	assert.Equal(t, Cosine(a, b), Cosine(b, a))

	c := Cosine(a, b)
	assert.GreaterOrEqual(t, c, 0.0)
	assert.LessOrEqual(t, c, 1.0)

	assert.Equal(t, 0.0, Cosine(a, disjoint))
	assert.Equal(t, 0.0, Cosine(a, Vector{}))
	assert.Equal(t, 0.0, Cosine(Vector{}, Vector{}))
	assert.InDelta(t, 1.0, Cosine(a, a), 1e-12)
}

func TestRankPrefersMatchingTags(t *testing.T) {
	jobs := []record.Record{
		{"id": "1", "tags": []any{"IT"}},
		{"id": "2", "tags": []any{"Design"}},
	}

	ranked := Rank(jobs, "IT", 5)
	require.Len(t, ranked, 2)
	assert.Equal(t, "1", ranked[0].Job.ID())
	assert.Greater(t, ranked[0].Score, ranked[1].Score)
	assert.Equal(t, 0.0, ranked[1].Score)
}

func TestRankIsStableAndTruncates(t *testing.T) {
	jobs := []record.Record{
		{"id": "a", "jobName": "logo"},
		{"id": "b", "jobName": "banner"},
		{"id": "c", "jobName": "golang backend"},
	}

	ranked := Rank(jobs, "golang", 2)
	require.Len(t, ranked, 2)
	assert.Equal(t, "c", ranked[0].Job.ID())
	// zero scores keep cache order
	assert.Equal(t, "a", ranked[1].Job.ID())
}

func TestJobDocumentCollectsTextFields(t *testing.T) {
	job := record.Record{
		"jobName":              "Landing page",
		"jobDescription":       []any{"Responsive", "Fast"},
		"jobTags":              []any{map[string]any{"jobCategoryName": "Web"}},
		"jobRequirementSkills": []any{"React"},
	}
	assert.Equal(t, "Landing page Responsive Fast Web React", JobDocument(job))
}
