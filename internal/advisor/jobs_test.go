package advisor

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/freelance-advisor/internal/record"
)

func salaryJobs(tag string, salaries ...float64) []record.Record {
	out := make([]record.Record, 0, len(salaries))
	for i, s := range salaries {
		out = append(out, record.Record{
			"id":        float64(i + 1),
			"jobSalary": s,
			"jobSlots":  float64(2),
			"jobTags":   []any{map[string]any{"jobCategoryName": tag}},
		})
	}
	return out
}

func TestMedianAndQuartiles(t *testing.T) {
	assert.Equal(t, 300.0, Median([]float64{100, 200, 300, 400, 500}))
	assert.Equal(t, 250.0, Median([]float64{100, 200, 300, 400}))
	assert.Equal(t, 0.0, Median(nil))

	q1, q3 := Quartiles([]float64{100, 200, 300, 400, 500})
	assert.Equal(t, 200.0, q1)
	assert.Equal(t, 400.0, q3)
}

func TestEstimateBudget(t *testing.T) {
	tests := []struct {
		name     string
		salaries []float64
		scope    string
		slots    int
		median   float64
		low      float64
		high     float64
	}{
		{name: "odd sample", salaries: []float64{100, 200, 300, 400, 500}, scope: "simple website", median: 300, low: 200, high: 400},
		{name: "even sample", salaries: []float64{100, 200, 300, 400}, scope: "simple website", median: 250, low: 150, high: 350},
		{name: "heavy scope", salaries: []float64{100, 200, 300, 400, 500}, scope: "AI integration", median: 300, low: 240, high: 480},
		{name: "light scope", salaries: []float64{100, 200, 300, 400, 500}, scope: "minor bugfix", median: 300, low: 180, high: 360},
		{name: "more slots than usual", salaries: []float64{100, 200, 300, 400, 500}, scope: "website", slots: 8, median: 300, low: 400, high: 800},
		{name: "single sample keeps a spread", salaries: []float64{500}, scope: "website", median: 500, low: 499.5, high: 500.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := EstimateBudget(salaryJobs("Web", tt.salaries...), tt.scope, []string{"web"}, tt.slots)

			advice, ok := out.(BudgetAdvice)
			require.True(t, ok, "got %T", out)
			assert.Equal(t, tt.median, advice.Median)
			assert.InDelta(t, tt.low, advice.Range.Low, 1e-9)
			assert.InDelta(t, tt.high, advice.Range.High, 1e-9)
			assert.Equal(t, len(tt.salaries), advice.Samples)
			assert.Equal(t, []string{"web"}, advice.TagsUsed)
		})
	}
}

func TestEstimateBudgetFallsBackToAllJobs(t *testing.T) {
	jobs := salaryJobs("Design", 100, 300)

	advice, ok := EstimateBudget(jobs, "logo", []string{"Blockchain"}, 0).(BudgetAdvice)
	require.True(t, ok)
	assert.Equal(t, 2, advice.Samples)
	assert.Equal(t, 200.0, advice.Median)
}

func TestEstimateBudgetWithoutSalaries(t *testing.T) {
	jobs := []record.Record{
		{"id": "1", "jobSalary": "negotiable"},
		{"id": "2", "jobSalary": float64(0)},
		{"id": "3"},
	}

	out := EstimateBudget(jobs, "anything", nil, 0)

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"advice": null, "reason": "No comparable salaries found"}`, string(raw))
}

func TestScopeFactor(t *testing.T) {
	assert.Equal(t, 1.0, ScopeFactor("build a blog"))
	assert.InDelta(t, 1.2, ScopeFactor("scalable distributed system"), 1e-12)
	assert.InDelta(t, 0.9, ScopeFactor("static landing"), 1e-12)
	assert.InDelta(t, 1.08, ScopeFactor("minor security fix"), 1e-12)
}

func TestBuildProposal(t *testing.T) {
	job := mustRecords(t, fixtureJobs)[1]

	p := BuildProposal(job, "Dana", []string{"Go", "PostgreSQL"}, []string{"Shipped 3 stores", "99.9% uptime"})

	assert.Equal(t, "Proposal for Shop backend", p.Title)
	assert.Equal(t, "Hello Dana, I'd love to help with Shop backend. I have experience in Go, PostgreSQL.", p.Introduction)
	assert.Equal(t, []string{"REST API", "Payments"}, p.ScopeBreakdown)
	assert.Len(t, p.Approach, 5)
	assert.Len(t, p.Deliverables, 3)
	assert.Equal(t, "Target budget around 300 (adjustable)", p.BudgetHint)
	assert.Equal(t, "Highlights: Shipped 3 stores; 99.9% uptime", p.WhyMe)
	assert.Equal(t, "Web Development", p.Tags)
}

func TestBuildProposalDefaults(t *testing.T) {
	job := record.Record{
		"id":             "7",
		"jobName":        "Docs",
		"jobSalary":      "tbd",
		"jobDescription": []any{"a", "b", "c", "d", "e", "f", "g", "h"},
	}

	p := BuildProposal(job, "", nil, nil)

	assert.Equal(t, "Hello, I'd love to help with Docs. I have experience in relevant areas.", p.Introduction)
	assert.Len(t, p.ScopeBreakdown, 6)
	assert.Equal(t, "Budget to be discussed based on scope", p.BudgetHint)
	assert.Equal(t, "I focus on clarity, reliability, and timely delivery.", p.WhyMe)
	assert.Equal(t, "", p.Tags)
}

func TestRecommendForPreferences(t *testing.T) {
	jobs := []record.Record{
		{"id": "1", "jobStatus": "Open", "jobSalary": float64(100), "jobTags": []any{map[string]any{"jobCategoryName": "IT"}}},
		{"id": "2", "jobStatus": "Open", "jobSalary": float64(900), "jobTags": []any{map[string]any{"jobCategoryName": "Design"}}},
		{"id": "3", "jobStatus": "Open", "jobSalary": float64(500), "jobTags": []any{map[string]any{"jobCategoryName": "it"}}},
		{"id": "4", "jobStatus": "Closed", "jobSalary": float64(999), "jobTags": []any{map[string]any{"jobCategoryName": "IT"}}},
	}

	out, ok := RecommendForPreferences(jobs, []string{"IT", "Writing"}).(PersonalRecommendations)
	require.True(t, ok)

	assert.Equal(t, 2, out.TotalMatchingJobs)
	require.Len(t, out.Recommendations, 2)
	assert.Equal(t, "3", out.Recommendations[0].Job.ID())
	assert.Equal(t, "1", out.Recommendations[1].Job.ID())
	assert.Equal(t, 50.0, out.Recommendations[0].MatchPercentage)
	assert.Equal(t, []string{"IT"}, out.Recommendations[0].MatchingSkills)
}

func TestRecommendForEmptyPreferences(t *testing.T) {
	jobs := mustRecords(t, fixtureJobs)

	out, ok := RecommendForPreferences(jobs, nil).(ProfileGuidance)
	require.True(t, ok)
	assert.Equal(t, 2, out.AvailableJobsCount)
	assert.Empty(t, out.Recommendations)
	assert.NotNil(t, out.Recommendations)
}

func TestJobRecommendationRequiresSession(t *testing.T) {
	ts, _ := newTestToolset(t, nil)

	_, err := ts.jobRecommendation(context.Background(), nil)
	assert.EqualError(t, err, "User not logged in. Please login to get personalized job recommendations.")

	_, err = ts.jobRecommendation(WithUserID(context.Background(), "ghost"), nil)
	assert.EqualError(t, err, "User profile not found.")
}

func TestJobRecommendationForSessionUser(t *testing.T) {
	ts, _ := newTestToolset(t, nil)

	out, err := ts.jobRecommendation(WithUserID(context.Background(), "u1"), nil)
	require.NoError(t, err)

	recs := out.(PersonalRecommendations)
	assert.Equal(t, []string{"Web Development"}, recs.UserSkills)
	require.Len(t, recs.Recommendations, 1)
	assert.Equal(t, "Landing page", recs.Recommendations[0].Job.JobName())
}
