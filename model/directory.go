package model

// Document is the read-only view of a stored document the engine needs:
// existence, ownership and a display name. Content storage and hashing are
// external collaborators.
type Document struct {
	ID       string `json:"id"`
	OwnerID  string `json:"ownerId"`
	Filename string `json:"filename"`
}

// User is the read-only directory view of an account.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

// Label returns the preferred human-readable name for the user.
func (u *User) Label() string {
	if u == nil {
		return ""
	}
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Email
}
