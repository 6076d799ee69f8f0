package extract

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/li18635787490/ai-test-service/internal/documents"
	"github.com/li18635787490/ai-test-service/internal/shared/storage/object"
	"github.com/li18635787490/ai-test-service/internal/shared/telemetry"
)

// Resolver produces the plain text for a document, caching the extraction
// next to the original object under <key>.extracted.txt.
type Resolver struct {
	Store object.ObjectStore
	Repo  documents.Repo
}

// Resolve returns the document's text, extracting and caching on first use.
// A stale or unreadable cache falls back to a fresh extraction.
func (r *Resolver) Resolve(ctx context.Context, doc documents.Document) (string, error) {
	if doc.ExtractedKey != "" {
		text, err := r.readCached(ctx, doc.ExtractedKey)
		if err == nil {
			return text, nil
		}
		telemetry.Warn("extract.cache_miss", map[string]any{
			"document_id": doc.ID,
			"error":       err.Error(),
		})
	}

	body, err := r.Store.Open(ctx, doc.StorageKey)
	if err != nil {
		return "", fmt.Errorf("open document %s: %w", doc.ID, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read document %s: %w", doc.ID, err)
	}

	res, err := FromBytes(data, doc.FileType)
	if err != nil {
		return "", fmt.Errorf("extract document %s: %w", doc.ID, err)
	}

	extractedKey := doc.StorageKey + ".extracted.txt"
	if _, err := r.Store.SaveWithKey(ctx, extractedKey, "text/plain; charset=utf-8", strings.NewReader(res.Text)); err != nil {
		// Extraction succeeded; a cache write failure only costs a re-extract.
		telemetry.Warn("extract.cache_write", map[string]any{
			"document_id": doc.ID,
			"error":       err.Error(),
		})
		return res.Text, nil
	}
	if err := r.Repo.UpdateExtraction(ctx, doc.ID, extractedKey, res.PageCount, time.Now().UTC()); err != nil {
		telemetry.Warn("extract.record_update", map[string]any{
			"document_id": doc.ID,
			"error":       err.Error(),
		})
	}
	return res.Text, nil
}

func (r *Resolver) readCached(ctx context.Context, key string) (string, error) {
	body, err := r.Store.Open(ctx, key)
	if err != nil {
		return "", err
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
