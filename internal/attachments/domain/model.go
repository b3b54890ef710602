package domain

import (
	"io"
	"time"
)

type Attachment struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	TaskID      *string   `json:"task_id,omitempty"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	Checksum    string    `json:"checksum"`
	StorageKey  string    `json:"-"`
	UploadedBy  string    `json:"uploaded_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// Upload is a file received from a client. Body is read twice: once to
// checksum it and once to store it.
type Upload struct {
	TaskID      string
	FileName    string
	ContentType string
	Body        io.ReadSeeker
}
