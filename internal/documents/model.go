package documents

import "time"

// Document represents an uploaded document and its extraction state.
type Document struct {
	ID           string
	FileName     string
	FileType     string
	MimeType     string
	SizeBytes    int64
	PageCount    *int
	StorageKey   string
	ExtractedKey string
	ExtractedAt  *time.Time
	CreatedAt    time.Time
}
