// Package storage wraps the Google Cloud Storage bucket that holds the
// knowledge base documents.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const (
	// processedPrefix is where the ingestion pipeline publishes documents
	// ready to serve.
	processedPrefix = "processed/"

	// maxListedDocuments caps the document listing response.
	maxListedDocuments = 100

	// signedURLTTL is how long a download link stays valid.
	signedURLTTL = time.Hour
)

// Documents serves the processed knowledge base documents from a GCS bucket.
type Documents struct {
	client *storage.Client
	bucket string
	log    *zap.Logger
}

// NewDocuments opens a GCS client against the given bucket. credentialsFile
// may be empty, in which case ambient application-default credentials apply.
func NewDocuments(ctx context.Context, bucket, credentialsFile string, log *zap.Logger) (*Documents, error) {
	if bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		if _, err := os.Stat(credentialsFile); err != nil {
			return nil, fmt.Errorf("storage credentials file: %w", err)
		}
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Documents{client: client, bucket: bucket, log: log}, nil
}

// Close releases the underlying client.
func (d *Documents) Close() error {
	return d.client.Close()
}

// DocumentInfo describes one listed knowledge base document.
type DocumentInfo struct {
	Key          string    `json:"key"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// List returns the objects under processed/, capped at maxListedDocuments.
// The prefix placeholder object itself is skipped.
func (d *Documents) List(ctx context.Context) ([]DocumentInfo, error) {
	it := d.client.Bucket(d.bucket).Objects(ctx, &storage.Query{Prefix: processedPrefix})

	docs := []DocumentInfo{}
	for len(docs) < maxListedDocuments {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list documents: %w", err)
		}
		if attrs.Name == processedPrefix {
			continue
		}
		docs = append(docs, DocumentInfo{
			Key:          attrs.Name,
			Name:         strings.TrimPrefix(attrs.Name, processedPrefix),
			Size:         attrs.Size,
			LastModified: attrs.Updated,
		})
	}
	return docs, nil
}

// SignedURL issues a time-limited V4 download link for one document. The
// path may be a bare object name or a gs://bucket/name URI.
func (d *Documents) SignedURL(path string) (string, error) {
	name := objectName(path)
	if name == "" {
		return "", fmt.Errorf("invalid document path %q", path)
	}
	url, err := d.client.Bucket(d.bucket).SignedURL(name, &storage.SignedURLOptions{
		Method:  "GET",
		Scheme:  storage.SigningSchemeV4,
		Expires: time.Now().Add(signedURLTTL),
	})
	if err != nil {
		return "", fmt.Errorf("sign url for %s: %w", name, err)
	}
	return url, nil
}

// Download copies one object to a local file.
func (d *Documents) Download(ctx context.Context, name, localPath string) error {
	r, err := d.client.Bucket(d.bucket).Object(name).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer r.Close()

	f, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", localPath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("download %s: %w", name, err)
	}
	return nil
}

// Upload writes a local file to the given object name.
func (d *Documents) Upload(ctx context.Context, localPath, name string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	w := d.client.Bucket(d.bucket).Object(name).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return fmt.Errorf("upload %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finish upload %s: %w", name, err)
	}
	return nil
}

// Size returns an object's size in bytes.
func (d *Documents) Size(ctx context.Context, name string) (int64, error) {
	attrs, err := d.client.Bucket(d.bucket).Object(name).Attrs(ctx)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", name, err)
	}
	return attrs.Size, nil
}

// Copy duplicates an object within the bucket.
func (d *Documents) Copy(ctx context.Context, src, dst string) error {
	bkt := d.client.Bucket(d.bucket)
	if _, err := bkt.Object(dst).CopierFrom(bkt.Object(src)).Run(ctx); err != nil {
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	return nil
}

// Delete removes an object.
func (d *Documents) Delete(ctx context.Context, name string) error {
	if err := d.client.Bucket(d.bucket).Object(name).Delete(ctx); err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	return nil
}

// ListPrefix returns object names under an arbitrary prefix, skipping the
// prefix placeholder object.
func (d *Documents) ListPrefix(ctx context.Context, prefix string) ([]string, error) {
	it := d.client.Bucket(d.bucket).Objects(ctx, &storage.Query{Prefix: prefix})

	var names []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		if attrs.Name == prefix {
			continue
		}
		names = append(names, attrs.Name)
	}
	return names, nil
}

// objectName normalizes a document reference to a bucket object name.
func objectName(path string) string {
	if rest, ok := strings.CutPrefix(path, "gs://"); ok {
		_, name, found := strings.Cut(rest, "/")
		if !found {
			return ""
		}
		return name
	}
	return strings.TrimPrefix(path, "/")
}
