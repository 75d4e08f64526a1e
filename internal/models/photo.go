package models

import "time"

// Photo is an uploaded image. StoragePath points into the private blob store.
type Photo struct {
	ID               int64     `json:"id"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"original_filename"`
	Caption          *string   `json:"caption,omitempty"`
	StoragePath      string    `json:"-"`
	ContentType      string    `json:"content_type"`
	SizeBytes        int64     `json:"size_bytes"`
	UploadedBy       int64     `json:"uploaded_by"`
	UploadedAt       time.Time `json:"uploaded_at"`
	UploaderName     string    `json:"uploader_name,omitempty"` // Populated via JOIN
}

// Comment is a note left on a photo
type Comment struct {
	ID         int64     `json:"id"`
	PhotoID    int64     `json:"photo_id"`
	UserID     int64     `json:"user_id"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	AuthorName string    `json:"author_name,omitempty"` // Populated via JOIN
}

// IsEdited reports whether the comment changed after it was posted
func (c *Comment) IsEdited() bool {
	return c.UpdatedAt.After(c.CreatedAt)
}
