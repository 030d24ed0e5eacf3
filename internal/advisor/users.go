package advisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spigell/freelance-advisor/internal/record"
)

const (
	listedUsersLimit    = 10
	talentListLimit     = 15
	deadlineWindow      = 3 * 24 * time.Hour
	privacyNote         = "Only public profile information is shown to protect user privacy."
	notLoggedInMessage  = "User not logged in. Please login to access project reminders."
	userNotFoundMessage = "User not found"
)

type userList struct {
	Users       []record.Record `json:"users"`
	TotalCount  int             `json:"total_count"`
	ShownCount  int             `json:"shown_count"`
	Message     string          `json:"message"`
	PrivacyNote string          `json:"privacy_note"`
}

func (t *Toolset) getAllUsers(ctx context.Context, _ map[string]any) (any, error) {
	users, err := t.users(ctx)
	if err != nil {
		return nil, err
	}

	shown := redactAll(users, listedUsersLimit)
	return userList{
		Users:       shown,
		TotalCount:  len(users),
		ShownCount:  len(shown),
		Message:     fmt.Sprintf("Showing %d users out of %d registered.", len(shown), len(users)),
		PrivacyNote: privacyNote,
	}, nil
}

type talentArgs struct {
	JobTags []string `json:"job_tags"`
	TopN    int      `json:"top_n"`
}

type TargetJob struct {
	JobName        string              `json:"jobName"`
	JobTags        []map[string]string `json:"jobTags"`
	JobDescription []string            `json:"jobDescription"`
}

type TalentSearch struct {
	TargetJob           TargetJob       `json:"target_job"`
	PotentialCandidates []record.Record `json:"potential_candidates"`
	TotalCandidates     int             `json:"total_candidates"`
	ShownCandidates     int             `json:"shown_candidates"`
	Message             string          `json:"message"`
	PrivacyNote         string          `json:"privacy_note"`
}

func (t *Toolset) findTalent(ctx context.Context, raw map[string]any) (any, error) {
	var args talentArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	users, err := t.users(ctx)
	if err != nil {
		return nil, err
	}

	return FindTalent(users, args.JobTags), nil
}

// FindTalent lists users with a completed profile as candidates for the given
// categories. Candidates are not ranked against the categories.
func FindTalent(users []record.Record, tags []string) TalentSearch {
	categories := strings.Join(tags, ", ")

	target := TargetJob{
		JobName:        "Job with categories: " + categories,
		JobTags:        make([]map[string]string, 0, len(tags)),
		JobDescription: []string{"Looking for talent skilled in " + categories + "."},
	}
	for _, tag := range tags {
		target.JobTags = append(target.JobTags, map[string]string{record.FieldCategory: tag})
	}

	active := make([]record.Record, 0, len(users))
	for _, u := range users {
		if u.ProfileCompleted() {
			active = append(active, u)
		}
	}

	shown := redactAll(active, talentListLimit)
	return TalentSearch{
		TargetJob:           target,
		PotentialCandidates: shown,
		TotalCandidates:     len(active),
		ShownCandidates:     len(shown),
		Message:             fmt.Sprintf("Found %d active freelancers who could work in %s.", len(active), categories),
		PrivacyNote:         privacyNote,
	}
}

type userArgs struct {
	UserID string `json:"user_id"`
}

type Reminders struct {
	OngoingJobs        int      `json:"ongoingJobs"`
	PendingSubmissions int      `json:"pendingSubmissions"`
	JobsNearDeadline   []string `json:"jobsNearDeadline"`
}

func (t *Toolset) projectReminders(ctx context.Context, raw map[string]any) (any, error) {
	var args userArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	userID, ok := sessionUser(ctx, args.UserID)
	if !ok {
		return nil, domainErrorf(notLoggedInMessage)
	}

	jobs, err := t.jobs(ctx)
	if err != nil {
		return nil, err
	}

	return ProjectReminders(jobs, userID, t.now()), nil
}

// ProjectReminders counts the user's ongoing and submitted jobs and names the
// ongoing ones whose deadline falls within the next three days.
func ProjectReminders(jobs []record.Record, userID string, now time.Time) Reminders {
	out := Reminders{JobsNearDeadline: []string{}}
	nowNS := now.UnixNano()

	for _, j := range jobs {
		if j.JobOwner() != userID {
			continue
		}

		switch j.JobStatus() {
		case record.StatusOngoing:
			out.OngoingJobs++
			deadline, ok := j.JobDeadline()
			if !ok {
				continue
			}
			if left := deadline - nowNS; left >= 0 && left < int64(deadlineWindow) {
				out.JobsNearDeadline = append(out.JobsNearDeadline, j.JobName())
			}
		case record.StatusSubmitted:
			out.PendingSubmissions++
		}
	}

	return out
}

type FinancialSummary struct {
	TotalIncome      float64 `json:"totalIncome"`
	TotalExpense     float64 `json:"totalExpense"`
	TransactionCount int     `json:"transactionCount"`
}

func (t *Toolset) financialSummary(ctx context.Context, raw map[string]any) (any, error) {
	var args userArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	userID, ok := sessionUser(ctx, args.UserID)
	if !ok {
		return nil, domainErrorf(notLoggedInMessage)
	}

	users, err := t.users(ctx)
	if err != nil {
		return nil, err
	}

	user, ok := record.FindByID(users, userID)
	if !ok {
		return nil, domainErrorf(userNotFoundMessage)
	}

	// Transactions are not exposed by the backend yet.
	return FinancialSummary{TotalIncome: user.Wallet()}, nil
}

func redactAll(users []record.Record, limit int) []record.Record {
	if len(users) > limit {
		users = users[:limit]
	}
	out := make([]record.Record, 0, len(users))
	for _, u := range users {
		out = append(out, u.Redact())
	}
	return out
}
