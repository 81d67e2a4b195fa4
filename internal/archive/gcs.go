// Package archive persists raw snapshot batches to Google Cloud Storage
// before they enter the warehouse, so a bad merge can always be replayed
// from the original payloads.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/dvloznov/finance-dashboard/internal/schema"
	"github.com/dvloznov/finance-dashboard/internal/snapshot"
)

const uploadTimeout = 2 * time.Minute

// GCS archives batches as JSON objects in a bucket.
// It assumes Application Default Credentials are configured.
type GCS struct {
	client *storage.Client
	bucket string
}

// NewGCS creates an archiver writing into the given bucket.
func NewGCS(ctx context.Context, bucket string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("archive: creating storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

// Store uploads the batch under <date>/<kind>/<source>_<uuid>.json.
// The random suffix keeps reruns of the same day from overwriting each other.
func (g *GCS) Store(ctx context.Context, kind schema.Kind, source string, date civil.Date, batch []snapshot.Record) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("archive: encoding batch: %w", err)
	}

	objectName := objectPath(kind, source, date)

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = "application/json"

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("archive: writing object %s: %w", objectName, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("archive: finalizing upload %s: %w", objectName, err)
	}
	return nil
}

// Close releases the underlying storage client.
func (g *GCS) Close() error {
	return g.client.Close()
}

func objectPath(kind schema.Kind, source string, date civil.Date) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("%s/%s/%s_%s.json", date.String(), kind, source, suffix)
}
