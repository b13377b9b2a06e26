// Package docvault stores uploaded KYC documents in Google Cloud Storage.
// Objects are keyed by user and document type so re-uploading a document
// replaces the previous version.
package docvault

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/jmcabrera/pesowise/internal/domain"
)

const uploadTimeout = 2 * time.Minute

// Vault is the document storage surface. It exists so handlers and tests
// can run without cloud credentials.
type Vault interface {
	// Upload stores the document content and returns its gs:// URI.
	Upload(ctx context.Context, userID string, dt domain.DocumentType, filename string, content io.Reader) (string, error)

	// Fetch downloads the document bytes from the given URI.
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// GCSVault implements Vault on Google Cloud Storage. It assumes Application
// Default Credentials are configured.
type GCSVault struct {
	bucket string
}

// NewGCSVault binds the vault to a bucket.
func NewGCSVault(bucket string) *GCSVault {
	return &GCSVault{bucket: bucket}
}

// ObjectName builds the canonical object path for a user's document. The
// extension of the original filename is kept; the rest of it is not trusted.
func ObjectName(userID string, dt domain.DocumentType, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("%s/%s%s", userID, dt, ext)
}

// Upload writes the content to the bucket and returns the object's gs:// URI.
func (v *GCSVault) Upload(ctx context.Context, userID string, dt domain.DocumentType, filename string, content io.Reader) (string, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("Upload: create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	objectName := ObjectName(userID, dt, filename)
	w := client.Bucket(v.bucket).Object(objectName).NewWriter(ctx)
	defer func() {
		_ = w.Close()
	}()

	if _, err := io.Copy(w, content); err != nil {
		return "", fmt.Errorf("Upload: copy content to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("Upload: finalize upload: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", v.bucket, objectName), nil
}

// Fetch downloads the document bytes from the given gs:// URI.
func (v *GCSVault) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucketName, objectPath, err := splitURI(uri)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: creating storage client: %w", err)
	}
	defer client.Close()

	rc, err := client.Bucket(bucketName).Object(objectPath).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading object %s/%s: %w", bucketName, objectPath, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading bytes: %w", err)
	}
	return data, nil
}

func splitURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

var _ Vault = (*GCSVault)(nil)
