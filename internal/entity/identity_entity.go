package entity

// Identity is the authenticated principal established at sign-in.
type Identity struct {
	Id      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}
