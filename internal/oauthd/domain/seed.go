package domain

// SeedData is the JSON document loaded at startup to register clients and
// users. Secrets and passwords are plain text and hashed on import.
type SeedData struct {
	Clients []SeedClient `json:"clients"`
	Users   []SeedUser   `json:"users"`
}

type SeedClient struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Secret       string   `json:"secret"`
	RedirectURIs []string `json:"redirect_uris"`
	Grants       []string `json:"grants"`
	Username     string   `json:"username,omitempty"` // resolved to UserID
}

type SeedUser struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
