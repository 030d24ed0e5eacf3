package advisor

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spigell/freelance-advisor/internal/ranking"
	"github.com/spigell/freelance-advisor/internal/record"
)

const (
	recentJobsLimit          = 20
	defaultRecommendTopN     = 5
	personalRecommendLimit   = 5
	maxProposalScopePoints   = 6
	budgetNotes              = "Heuristic estimate using median±0.5*IQR, adjusted by scope keywords and slots."
	noComparableSalaryReason = "No comparable salaries found"
)

type jobList struct {
	Jobs       []record.Record `json:"jobs"`
	TotalCount int             `json:"total_count"`
	ShownCount int             `json:"shown_count"`
	Message    string          `json:"message"`
}

func (t *Toolset) getAllJobs(ctx context.Context, _ map[string]any) (any, error) {
	jobs, err := t.jobs(ctx)
	if err != nil {
		return nil, err
	}

	shown := jobs
	if len(shown) > recentJobsLimit {
		shown = shown[len(shown)-recentJobsLimit:]
	}
	if shown == nil {
		shown = []record.Record{}
	}

	return jobList{
		Jobs:       shown,
		TotalCount: len(jobs),
		ShownCount: len(shown),
		Message:    fmt.Sprintf("Showing the %d most recent jobs out of %d available.", len(shown), len(jobs)),
	}, nil
}

type recommendArgs struct {
	Skills []string `json:"skills"`
	TopN   int      `json:"top_n"`
}

func (t *Toolset) recommendJobsBySkills(ctx context.Context, raw map[string]any) (any, error) {
	var args recommendArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.TopN <= 0 {
		args.TopN = defaultRecommendTopN
	}

	jobs, err := t.jobs(ctx)
	if err != nil {
		return nil, err
	}

	return ranking.Rank(jobs, strings.Join(args.Skills, " "), args.TopN), nil
}

type budgetArgs struct {
	Scope string   `json:"scope"`
	Tags  []string `json:"tags"`
	Slots int      `json:"slots"`
}

type BudgetRange struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

type BudgetAdvice struct {
	Median   float64     `json:"median"`
	Range    BudgetRange `json:"range"`
	Samples  int         `json:"samples"`
	TagsUsed []string    `json:"tags_used"`
	Notes    string      `json:"notes"`
}

// NoAdvice is returned instead of an error when nothing comparable is priced.
type NoAdvice struct {
	Advice *BudgetAdvice `json:"advice"`
	Reason string        `json:"reason"`
}

func (t *Toolset) budgetAdvice(ctx context.Context, raw map[string]any) (any, error) {
	var args budgetArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	jobs, err := t.jobs(ctx)
	if err != nil {
		return nil, err
	}

	return EstimateBudget(jobs, args.Scope, args.Tags, args.Slots), nil
}

// EstimateBudget prices a scope from the salaries of comparable jobs. Jobs sharing
// a tag are comparable; without any overlap every job is.
func EstimateBudget(jobs []record.Record, scope string, tags []string, slots int) any {
	comps := comparableJobs(jobs, tags)

	salaries := make([]float64, 0, len(comps))
	for _, j := range comps {
		if !j.HasNumber(record.FieldJobSalary) {
			continue
		}
		if s := j.JobSalary(); s > 0 {
			salaries = append(salaries, s)
		}
	}
	if len(salaries) == 0 {
		return NoAdvice{Reason: noComparableSalaryReason}
	}

	sort.Float64s(salaries)
	median := Median(salaries)
	q1, q3 := Quartiles(salaries)
	iqr := q3 - q1
	if iqr < 1 {
		iqr = 1
	}

	low := median - 0.5*iqr
	if low < 0 {
		low = 0
	}
	high := median + 0.5*iqr

	factor := ScopeFactor(scope)
	if slots > 0 {
		factor *= slotsFactor(comps, slots)
	}

	if tags == nil {
		tags = []string{}
	}

	return BudgetAdvice{
		Median:   roundTo(median, 2),
		Range:    BudgetRange{Low: roundTo(low*factor, 2), High: roundTo(high*factor, 2)},
		Samples:  len(salaries),
		TagsUsed: tags,
		Notes:    budgetNotes,
	}
}

func comparableJobs(jobs []record.Record, tags []string) []record.Record {
	if len(tags) == 0 {
		return jobs
	}

	var comps []record.Record
	for _, j := range jobs {
		for _, tag := range tags {
			if j.HasTag(tag) {
				comps = append(comps, j)
				break
			}
		}
	}
	if len(comps) == 0 {
		return jobs
	}
	return comps
}

var (
	heavyScopeWords = map[string]struct{}{
		"integration": {}, "optimization": {}, "scalable": {}, "realtime": {},
		"security": {}, "ml": {}, "ai": {}, "distributed": {},
	}
	lightScopeWords = map[string]struct{}{
		"bugfix": {}, "minor": {}, "landing": {}, "static": {}, "copywriting": {},
	}
)

// ScopeFactor scales an estimate by the complexity hinted in scope. Heavy and
// light keywords both apply when both are present.
func ScopeFactor(scope string) float64 {
	var heavy, light bool
	for _, tok := range ranking.Tokenize(scope) {
		if _, ok := heavyScopeWords[tok]; ok {
			heavy = true
		}
		if _, ok := lightScopeWords[tok]; ok {
			light = true
		}
	}

	factor := 1.0
	if heavy {
		factor *= 1.2
	}
	if light {
		factor *= 0.9
	}
	return factor
}

func slotsFactor(comps []record.Record, slots int) float64 {
	var sum float64
	var count int
	for _, j := range comps {
		if !j.HasNumber(record.FieldJobSlots) {
			continue
		}
		sum += float64(j.Int64(record.FieldJobSlots, 1))
		count++
	}
	if count == 0 {
		count = 1
	}

	avg := sum / float64(count)
	if avg < 1 {
		avg = 1
	}
	return clamp(float64(slots)/avg, 0.5, 2.0)
}

type profileArgs struct {
	Name         string   `json:"name"`
	Skills       []string `json:"skills"`
	Achievements []string `json:"achievements"`
}

type proposalArgs struct {
	JobID   string      `json:"job_id"`
	Profile profileArgs `json:"profile"`
}

type Proposal struct {
	Title          string   `json:"title"`
	Introduction   string   `json:"introduction"`
	Understanding  string   `json:"understanding"`
	ScopeBreakdown []string `json:"scope_breakdown"`
	Approach       []string `json:"approach"`
	Deliverables   []string `json:"deliverables"`
	Timeline       string   `json:"timeline"`
	BudgetHint     string   `json:"budget_hint"`
	WhyMe          string   `json:"why_me"`
	Tags           string   `json:"tags"`
}

var (
	proposalApproach = []string{
		"Clarify success metrics and constraints",
		"Design and plan the solution with milestones",
		"Implement iteratively with regular check-ins",
		"Testing and quality assurance",
		"Handover and documentation",
	}
	proposalDeliverables = []string{
		"Clear milestone plan",
		"Working solution matching requirements",
		"Documentation and basic training",
	}
)

func (t *Toolset) proposalTemplate(ctx context.Context, raw map[string]any) (any, error) {
	var args proposalArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	jobs, err := t.jobs(ctx)
	if err != nil {
		return nil, err
	}

	job, ok := record.FindByID(jobs, args.JobID)
	if !ok {
		return nil, domainErrorf("Job %s not found", args.JobID)
	}

	return BuildProposal(job, args.Profile.Name, args.Profile.Skills, args.Profile.Achievements), nil
}

// BuildProposal fills the fixed proposal layout with job and freelancer details.
func BuildProposal(job record.Record, name string, skills, achievements []string) Proposal {
	jobName := job.JobName()

	greeting := "Hello"
	if name != "" {
		greeting += " " + name
	}
	experience := "relevant areas"
	if len(skills) > 0 {
		experience = strings.Join(skills, ", ")
	}

	scope := job.JobDescription()
	if len(scope) > maxProposalScopePoints {
		scope = scope[:maxProposalScopePoints]
	}
	if scope == nil {
		scope = []string{}
	}

	budget := "Budget to be discussed based on scope"
	if job.HasNumber(record.FieldJobSalary) {
		budget = fmt.Sprintf("Target budget around %s (adjustable)", job.String(record.FieldJobSalary, ""))
	}

	whyMe := "I focus on clarity, reliability, and timely delivery."
	if len(achievements) > 0 {
		whyMe = "Highlights: " + strings.Join(achievements, "; ")
	}

	return Proposal{
		Title:          "Proposal for " + jobName,
		Introduction:   fmt.Sprintf("%s, I'd love to help with %s. I have experience in %s.", greeting, jobName, experience),
		Understanding:  "Key points from your brief:",
		ScopeBreakdown: scope,
		Approach:       append([]string(nil), proposalApproach...),
		Deliverables:   append([]string(nil), proposalDeliverables...),
		Timeline:       "Estimated 1-4 weeks depending on final scope",
		BudgetHint:     budget,
		WhyMe:          whyMe,
		Tags:           strings.Join(job.JobTags(), ", "),
	}
}

type Recommendation struct {
	Job             record.Record `json:"job"`
	SkillMatches    int           `json:"skill_matches"`
	MatchPercentage float64       `json:"match_percentage"`
	MatchingSkills  []string      `json:"matching_skills"`
}

type PersonalRecommendations struct {
	UserSkills        []string         `json:"user_skills"`
	TotalMatchingJobs int              `json:"total_matching_jobs"`
	Recommendations   []Recommendation `json:"recommendations"`
	Message           string           `json:"message"`
}

// ProfileGuidance replaces recommendations for users without stored preferences.
type ProfileGuidance struct {
	Message            string           `json:"message"`
	AvailableJobsCount int              `json:"available_jobs_count"`
	Recommendations    []Recommendation `json:"recommendations"`
}

func (t *Toolset) jobRecommendation(ctx context.Context, _ map[string]any) (any, error) {
	userID, ok := UserIDFrom(ctx)
	if !ok {
		return nil, domainErrorf("User not logged in. Please login to get personalized job recommendations.")
	}

	users, err := t.users(ctx)
	if err != nil {
		return nil, err
	}
	jobs, err := t.jobs(ctx)
	if err != nil {
		return nil, err
	}

	user, ok := record.FindByID(users, userID)
	if !ok {
		return nil, domainErrorf("User profile not found.")
	}

	return RecommendForPreferences(jobs, user.Preferences()), nil
}

// RecommendForPreferences ranks open jobs by how many of the preferred
// categories they carry, then by salary.
func RecommendForPreferences(jobs []record.Record, preferences []string) any {
	open := make([]record.Record, 0, len(jobs))
	for _, j := range jobs {
		if j.JobStatus() == record.StatusOpen {
			open = append(open, j)
		}
	}

	if len(preferences) == 0 {
		return ProfileGuidance{
			Message:            "To get better job recommendations, please complete the skill preferences in your profile.",
			AvailableJobsCount: len(open),
			Recommendations:    []Recommendation{},
		}
	}

	matched := make([]Recommendation, 0, len(open))
	for _, j := range open {
		categories := make(map[string]struct{})
		for _, tag := range j.JobTags() {
			categories[strings.ToLower(tag)] = struct{}{}
		}

		var matching []string
		for _, skill := range preferences {
			if _, ok := categories[strings.ToLower(skill)]; ok {
				matching = append(matching, skill)
			}
		}
		if len(matching) == 0 {
			continue
		}

		matched = append(matched, Recommendation{
			Job:             j,
			SkillMatches:    len(matching),
			MatchPercentage: roundTo(float64(len(matching))/float64(len(preferences))*100, 1),
			MatchingSkills:  matching,
		})
	}

	sort.SliceStable(matched, func(a, b int) bool {
		if matched[a].SkillMatches != matched[b].SkillMatches {
			return matched[a].SkillMatches > matched[b].SkillMatches
		}
		return matched[a].Job.JobSalary() > matched[b].Job.JobSalary()
	})

	top := matched
	if len(top) > personalRecommendLimit {
		top = top[:personalRecommendLimit]
	}

	return PersonalRecommendations{
		UserSkills:        preferences,
		TotalMatchingJobs: len(matched),
		Recommendations:   top,
		Message:           fmt.Sprintf("Found %d jobs matching your skills: %s", len(matched), strings.Join(preferences, ", ")),
	}
}
