package record

import "strings"

// Job statuses as emitted by the canister.
const (
	StatusOpen      = "Open"
	StatusOngoing   = "Ongoing"
	StatusSubmitted = "Submitted"
	StatusClosed    = "Closed"
)

const (
	FieldID          = "id"
	FieldJobName     = "jobName"
	FieldJobDesc     = "jobDescription"
	FieldJobTags     = "jobTags"
	FieldTags        = "tags"
	FieldJobSkills   = "jobRequirementSkills"
	FieldJobSalary   = "jobSalary"
	FieldJobSlots    = "jobSlots"
	FieldJobStatus   = "jobStatus"
	FieldJobDeadline = "jobDeadline"
	FieldJobOwner    = "userId"
	FieldCategory    = "jobCategoryName"
)

func (r Record) ID() string {
	return r.String(FieldID, "")
}

func (r Record) JobName() string {
	return r.String(FieldJobName, "")
}

// JobDescription returns description lines. A plain string description is
// returned as a single line.
func (r Record) JobDescription() []string {
	if s, ok := r[FieldJobDesc].(string); ok {
		return []string{s}
	}
	return r.Strings(FieldJobDesc)
}

// JobTags returns category names from jobTags, or from tags when jobTags is
// absent. Elements may be plain strings or {jobCategoryName: ...} objects.
func (r Record) JobTags() []string {
	list := r.List(FieldJobTags)
	if list == nil {
		list = r.List(FieldTags)
	}
	return categoryNames(list)
}

func (r Record) JobSkills() []string {
	return r.Strings(FieldJobSkills)
}

func (r Record) JobSalary() float64 {
	return r.Number(FieldJobSalary, 0)
}

func (r Record) JobStatus() string {
	return r.String(FieldJobStatus, "")
}

// JobDeadline returns the deadline in nanoseconds since epoch.
func (r Record) JobDeadline() (int64, bool) {
	return AsInt64(r[FieldJobDeadline])
}

func (r Record) JobOwner() string {
	return r.String(FieldJobOwner, "")
}

// HasTag reports whether any of the job's categories matches tag, case-insensitively.
func (r Record) HasTag(tag string) bool {
	tag = strings.ToLower(strings.TrimSpace(tag))
	for _, t := range r.JobTags() {
		if strings.ToLower(t) == tag {
			return true
		}
	}
	return false
}

func categoryNames(list []any) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		switch v := item.(type) {
		case string:
			if v != "" {
				out = append(out, v)
			}
		case map[string]any:
			name := AsString(v[FieldCategory], "")
			if name == "" {
				name = AsString(v["name"], "")
			}
			if name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}
