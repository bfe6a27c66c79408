package models

// User is an identity allowed to call the API.
type User struct {
	Username     string `json:"username"`
	FullName     string `json:"full_name,omitempty"`
	Email        string `json:"email,omitempty"`
	Disabled     bool   `json:"disabled"`
	PasswordHash string `json:"-"`
}

// IsActive reports whether the account may be authorized.
func (u *User) IsActive() bool {
	return !u.Disabled
}
