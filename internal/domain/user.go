package domain

// User represents the authenticated account. Exactly one user is active per
// session; the profile is mirrored into the local session store so a later
// run can restore it without a network call.
type User struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	IsAdmin bool   `json:"isAdmin"`
}
