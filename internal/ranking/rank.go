package ranking

import (
	"math"
	"sort"
	"strings"

	"github.com/spigell/freelance-advisor/internal/record"
)

// Scored is a job with its similarity to the query.
type Scored struct {
	Job   record.Record `json:"job"`
	Score float64       `json:"score"`
}

// JobDocument concatenates the searchable text of a job.
func JobDocument(job record.Record) string {
	parts := make([]string, 0, 8)
	parts = append(parts, job.JobName())
	parts = append(parts, job.JobDescription()...)
	parts = append(parts, job.JobTags()...)
	parts = append(parts, job.JobSkills()...)
	return strings.Join(parts, " ")
}

// Rank scores every job against query and returns the best topN. The query takes
// part in the IDF corpus so query-only terms still get a defined weight. Ties keep
// the cache order.
func Rank(jobs []record.Record, query string, topN int) []Scored {
	corpus := make([][]string, 0, len(jobs)+1)
	for _, j := range jobs {
		corpus = append(corpus, Tokenize(JobDocument(j)))
	}
	queryTokens := Tokenize(query)
	idf := InverseDocFrequency(append(corpus, queryTokens))

	q := Vectorize(TermFrequency(queryTokens), idf)

	scored := make([]Scored, 0, len(jobs))
	for i, j := range jobs {
		v := Vectorize(TermFrequency(corpus[i]), idf)
		scored = append(scored, Scored{Job: j, Score: round(Cosine(q, v), 4)})
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})

	if topN >= 0 && topN < len(scored) {
		scored = scored[:topN]
	}
	return scored
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
