package model

// AccessToken is the object embedded in the signed token of a logged-in user.
type AccessToken struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
