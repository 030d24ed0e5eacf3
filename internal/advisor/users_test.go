package advisor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/freelance-advisor/internal/record"
)

func TestExecuteGetAllUsersRedacts(t *testing.T) {
	ts, _ := newTestToolset(t, nil)

	res := ts.Execute(context.Background(), Call{Name: string(ToolGetAllUsers)})
	require.NoError(t, res.Err)

	for _, secret := range []string{"email", "wallet", "phone", "preference", "alice@example.com"} {
		assert.NotContains(t, res.Content, secret)
	}

	out := decodeContent(t, res)
	assert.EqualValues(t, 3, out["total_count"])
	users := out["users"].([]any)
	require.Len(t, users, 3)
	carol := users[2].(map[string]any)
	assert.Equal(t, "carol", carol["username"])
	assert.Nil(t, carol["profilePictureUrl"])
}

func TestGetAllUsersCapsAtTen(t *testing.T) {
	ts, src := newTestToolset(t, nil)
	users := make([]record.Record, 12)
	for i := range users {
		users[i] = record.Record{"id": float64(i), "email": "x@y"}
	}
	src.data["users"] = users

	out, err := ts.getAllUsers(context.Background(), nil)
	require.NoError(t, err)

	list := out.(userList)
	assert.Equal(t, 12, list.TotalCount)
	assert.Equal(t, 10, list.ShownCount)
	assert.Equal(t, "Anonymous", list.Users[0].Username())
}

func TestFindTalent(t *testing.T) {
	users := []record.Record{
		{"id": "1", "username": "a", "isProfileCompleted": true, "email": "a@x"},
		{"id": "2", "username": "b", "isProfileCompleted": false},
		{"id": "3", "username": "c", "isProfileCompleted": true},
	}

	out := FindTalent(users, []string{"Web Development", "UI/UX Design"})

	assert.Equal(t, "Job with categories: Web Development, UI/UX Design", out.TargetJob.JobName)
	assert.Equal(t, []map[string]string{
		{"jobCategoryName": "Web Development"},
		{"jobCategoryName": "UI/UX Design"},
	}, out.TargetJob.JobTags)
	assert.Equal(t, 2, out.TotalCandidates)
	require.Len(t, out.PotentialCandidates, 2)
	assert.Equal(t, "c", out.PotentialCandidates[1].Username())
	_, leaked := out.PotentialCandidates[0]["email"]
	assert.False(t, leaked)
}

func TestFindTalentCapsCandidates(t *testing.T) {
	users := make([]record.Record, 20)
	for i := range users {
		users[i] = record.Record{"id": float64(i), "isProfileCompleted": true}
	}

	out := FindTalent(users, []string{"IT"})
	assert.Equal(t, 20, out.TotalCandidates)
	assert.Equal(t, 15, out.ShownCandidates)
}

func TestProjectRemindersDeadlineWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ns := func(d time.Duration) int64 { return now.Add(d).UnixNano() }

	jobs := []record.Record{
		{"jobName": "due soon", "userId": "u1", "jobStatus": "Ongoing", "jobDeadline": ns(2 * 24 * time.Hour)},
		{"jobName": "just inside", "userId": "u1", "jobStatus": "Ongoing", "jobDeadline": ns(3*24*time.Hour - time.Nanosecond)},
		{"jobName": "exactly three days", "userId": "u1", "jobStatus": "Ongoing", "jobDeadline": ns(3 * 24 * time.Hour)},
		{"jobName": "overdue", "userId": "u1", "jobStatus": "Ongoing", "jobDeadline": ns(-time.Hour)},
		{"jobName": "no deadline", "userId": "u1", "jobStatus": "Ongoing"},
		{"jobName": "waiting", "userId": "u1", "jobStatus": "Submitted", "jobDeadline": ns(time.Hour)},
		{"jobName": "someone else", "userId": "u2", "jobStatus": "Ongoing", "jobDeadline": ns(time.Hour)},
	}

	out := ProjectReminders(jobs, "u1", now)

	assert.Equal(t, 5, out.OngoingJobs)
	assert.Equal(t, 1, out.PendingSubmissions)
	assert.Equal(t, []string{"due soon", "just inside"}, out.JobsNearDeadline)
}

func TestProjectRemindersParsesDecodedDeadlines(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	jobs := mustRecords(t, `[{"jobName": "api", "userId": "u1", "jobStatus": "Ongoing", "jobDeadline": 1748865600000000000}]`)

	out := ProjectReminders(jobs, "u1", now)
	assert.Equal(t, []string{"api"}, out.JobsNearDeadline)
}

func TestProjectRemindersNeedsUser(t *testing.T) {
	ts, _ := newTestToolset(t, nil)

	res := ts.Execute(context.Background(), Call{Name: string(ToolProjectReminders)})
	assert.JSONEq(t, `{"error": "User not logged in. Please login to access project reminders."}`, res.Content)

	res = ts.Execute(WithUserID(context.Background(), "u1"), Call{Name: string(ToolProjectReminders)})
	require.NoError(t, res.Err)
	assert.JSONEq(t, `{"ongoingJobs": 1, "pendingSubmissions": 0, "jobsNearDeadline": []}`, res.Content)
}

func TestFinancialSummary(t *testing.T) {
	ts, _ := newTestToolset(t, nil)

	res := ts.Execute(WithUserID(context.Background(), "u1"), Call{Name: string(ToolFinancialSummary)})
	require.NoError(t, res.Err)
	assert.JSONEq(t, `{"totalIncome": 1250.5, "totalExpense": 0, "transactionCount": 0}`, res.Content)

	res = ts.Execute(context.Background(), Call{Name: string(ToolFinancialSummary), Arguments: map[string]any{"user_id": "u2"}})
	require.NoError(t, res.Err)
	assert.True(t, strings.Contains(res.Content, `"totalIncome":10`))

	res = ts.Execute(WithUserID(context.Background(), "ghost"), Call{Name: string(ToolFinancialSummary)})
	assert.JSONEq(t, `{"error": "User not found"}`, res.Content)
}
