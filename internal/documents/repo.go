package documents

import (
	"context"
	"time"
)

// Repo defines persistence operations for documents.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, documentID string) (Document, error)
	List(ctx context.Context, limit, offset int) ([]Document, error)
	Delete(ctx context.Context, documentID string) error
	UpdateExtraction(ctx context.Context, documentID, extractedKey string, pageCount *int, extractedAt time.Time) error
}
