package prescription

import "time"

// Prescription maps an uploaded image asset to its metadata record. ImageURL
// is the public-facing path; ImagePath is the private storage locator and is
// never serialized.
type Prescription struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	ImageURL    string    `json:"imageUrl"`
	ImagePath   string    `json:"-"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// DefaultTitle is used when an upload omits a title.
const DefaultTitle = "Untitled Prescription"
