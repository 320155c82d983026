package models

// User is the opaque account record returned by the backend. The client never
// inspects it beyond display fields.
type User struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type Post struct {
	ID             int    `json:"id"`
	Title          string `json:"title"`
	Slug           string `json:"slug"`
	Image          string `json:"image"` // filename reference, resolved against the image base URL
	Description    string `json:"description"`
	ContentBurmese string `json:"content_burmese"`
	CreatedAt      string `json:"created_at"`
	Views          int    `json:"views"`
}

// PostInput is the body sent to the create/update endpoints. The backend owns
// id and created_at; the client never sends them on create.
type PostInput struct {
	ID             int    `json:"id,omitempty"`
	Title          string `json:"title"`
	Slug           string `json:"slug"`
	Description    string `json:"description"`
	ContentBurmese string `json:"content_burmese"`
	Image          string `json:"image"`
}

// Credential is the locally persisted token + user pair, written on successful
// login and cleared together on logout or failed verification.
type Credential struct {
	Key   string `gorm:"primary_key" json:"key"`
	Value string `gorm:"type:text" json:"value"`
}
