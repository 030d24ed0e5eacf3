package record

const (
	FieldUsername         = "username"
	FieldProfilePicture   = "profilePictureUrl"
	FieldProfileCompleted = "isProfileCompleted"
	FieldPreference       = "preference"
	FieldWallet           = "wallet"
)

// PublicUserFields is the only part of a user that may leave the agent.
// Email, wallet and phone stay inside.
var PublicUserFields = []string{FieldID, FieldUsername, FieldProfilePicture, FieldProfileCompleted}

func (r Record) Username() string {
	return r.String(FieldUsername, "")
}

func (r Record) ProfileCompleted() bool {
	return r.Bool(FieldProfileCompleted, false)
}

// Preferences returns the category names the user picked as skills.
func (r Record) Preferences() []string {
	return categoryNames(r.List(FieldPreference))
}

func (r Record) Wallet() float64 {
	return r.Number(FieldWallet, 0)
}

// Redact returns the public view of a user record.
func (r Record) Redact() Record {
	return r.Pick(PublicUserFields, map[string]any{
		FieldUsername:         "Anonymous",
		FieldProfileCompleted: false,
	})
}

// FindByID returns the first record whose id renders equal to id.
func FindByID(records []Record, id string) (Record, bool) {
	if id == "" {
		return nil, false
	}
	for _, r := range records {
		if r.ID() == id {
			return r, true
		}
	}
	return nil, false
}
