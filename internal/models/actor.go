package models

// Actor identifies the signed-in user a quota decision is made for.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DisplayName falls back to the ID when the user has no display name.
func (a Actor) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.ID
}
