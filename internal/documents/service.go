package documents

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/li18635787490/ai-test-service/internal/shared/storage/object"
	"github.com/li18635787490/ai-test-service/internal/shared/telemetry"
)

// supportedTypes maps lowercase file extensions to the document type id.
var supportedTypes = map[string]string{
	".pdf":  "pdf",
	".docx": "docx",
	".doc":  "doc",
	".xlsx": "xlsx",
	".xls":  "xls",
	".pptx": "pptx",
	".ppt":  "ppt",
	".txt":  "txt",
	".md":   "md",
}

// Service contains business logic for documents.
type Service struct {
	Store object.ObjectStore
	Repo  Repo
}

// Upload saves the file to object storage and records the document.
func (s *Service) Upload(ctx context.Context, fileName string, r io.Reader) (Document, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return Document{}, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}
	fileType, ok := supportedTypes[strings.ToLower(filepath.Ext(fileName))]
	if !ok {
		return Document{}, fmt.Errorf("%w: unsupported file type %q", ErrInvalidInput, filepath.Ext(fileName))
	}

	storageKey, size, mimeType, err := s.Store.Save(ctx, fileName, r)
	if err != nil {
		return Document{}, err
	}

	doc := Document{
		ID:         uuid.NewString(),
		FileName:   fileName,
		FileType:   fileType,
		MimeType:   mimeType,
		SizeBytes:  size,
		StorageKey: storageKey,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.Repo.Create(ctx, doc); err != nil {
		return Document{}, err
	}

	telemetry.Info("document.uploaded", map[string]any{
		"document_id": doc.ID,
		"file_type":   doc.FileType,
		"size_bytes":  doc.SizeBytes,
	})
	return doc, nil
}

// Get returns a document by id.
func (s *Service) Get(ctx context.Context, documentID string) (Document, error) {
	if strings.TrimSpace(documentID) == "" {
		return Document{}, fmt.Errorf("%w: document id is required", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, documentID)
}

// List returns documents newest-first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Document, error) {
	return s.Repo.List(ctx, limit, offset)
}

// Delete removes the document record and its stored objects. Object deletion
// failures are logged, not propagated; the record removal is what matters.
func (s *Service) Delete(ctx context.Context, documentID string) error {
	doc, err := s.Repo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, documentID); err != nil {
		return err
	}

	if doc.StorageKey != "" {
		if err := s.Store.Delete(ctx, doc.StorageKey); err != nil {
			telemetry.Warn("document.delete_object", map[string]any{
				"document_id": documentID,
				"error":       err.Error(),
			})
		}
	}
	if doc.ExtractedKey != "" {
		if err := s.Store.Delete(ctx, doc.ExtractedKey); err != nil {
			telemetry.Warn("document.delete_object", map[string]any{
				"document_id": documentID,
				"error":       err.Error(),
			})
		}
	}
	return nil
}
