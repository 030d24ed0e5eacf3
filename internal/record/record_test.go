package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeListKeepsNanosecondPrecision(t *testing.T) {
	records, err := DecodeList([]byte(`[{"id":"1","jobDeadline":1760000000123456789}]`))
	require.NoError(t, err)
	require.Len(t, records, 1)

	deadline, ok := records[0].JobDeadline()
	require.True(t, ok)
	assert.Equal(t, int64(1760000000123456789), deadline)
}

func TestDecodeListRejectsNonArray(t *testing.T) {
	_, err := DecodeList([]byte(`{"id":"1"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "object")

	_, err = DecodeList([]byte(`[{"id":"1"}] trailing`))
	require.Error(t, err)
}

func TestAccessorsFallBackToDefaults(t *testing.T) {
	r := Record{"jobSalary": "not a number", "jobSlots": true, "id": float64(7)}

	assert.Equal(t, float64(0), r.JobSalary())
	assert.Equal(t, int64(3), r.Int64("jobSlots", 3))
	assert.Equal(t, "7", r.ID())
	assert.Equal(t, "", r.JobName())
	assert.Nil(t, r.List("jobTags"))
	assert.False(t, r.ProfileCompleted())
}

func TestJobTagsAcceptsBothShapes(t *testing.T) {
	objects := Record{"jobTags": []any{
		map[string]any{"jobCategoryName": "Web Development"},
		map[string]any{"id": "x"},
	}}
	assert.Equal(t, []string{"Web Development"}, objects.JobTags())

	plain := Record{"tags": []any{"IT", "", 3}}
	assert.Equal(t, []string{"IT"}, plain.JobTags())
	assert.True(t, plain.HasTag(" it "))
	assert.False(t, plain.HasTag("design"))
}

func TestRedactDropsPrivateFields(t *testing.T) {
	user := Record{
		"id":                 "u1",
		"email":              "a@b.c",
		"wallet":             12.5,
		"phone":              "123",
		"isProfileCompleted": true,
	}

	safe := user.Redact()
	assert.Len(t, safe, 4)
	assert.Equal(t, "u1", safe["id"])
	assert.Equal(t, "Anonymous", safe["username"])
	assert.Equal(t, true, safe["isProfileCompleted"])
	assert.Nil(t, safe["profilePictureUrl"])
	assert.NotContains(t, safe, "email")
	assert.NotContains(t, safe, "wallet")
}

func TestFindByID(t *testing.T) {
	records := []Record{{"id": "a"}, {"id": float64(2)}}

	found, ok := FindByID(records, "2")
	require.True(t, ok)
	assert.Equal(t, float64(2), found["id"])

	_, ok = FindByID(records, "")
	assert.False(t, ok)
}
