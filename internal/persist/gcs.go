package persist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/dvloznov/household-ledger/internal/domain"
	"github.com/dvloznov/household-ledger/internal/store"
)

// ObjectClient reads and writes whole objects. GCSClient implements it for
// Google Cloud Storage.
type ObjectClient interface {
	Read(ctx context.Context, bucket, object string) ([]byte, error)
	Write(ctx context.Context, bucket, object, contentType string, data []byte) error
}

// ErrObjectNotExist is returned by ObjectClient.Read for a missing object.
var ErrObjectNotExist = errors.New("object does not exist")

// GCSClient is an ObjectClient backed by a storage.Client.
type GCSClient struct {
	client *storage.Client
}

// NewGCSClient creates a storage client using Application Default
// Credentials unless options say otherwise.
func NewGCSClient(ctx context.Context, opts ...option.ClientOption) (*GCSClient, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSClient{client: client}, nil
}

// Close releases the underlying client.
func (c *GCSClient) Close() error {
	return c.client.Close()
}

func (c *GCSClient) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	r, err := c.client.Bucket(bucket).Object(object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrObjectNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}
	return data, nil
}

func (c *GCSClient) Write(ctx context.Context, bucket, object, contentType string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := c.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write GCS object: %w", err)
	}
	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}

// GCSStore keeps the snapshot as one JSON object.
type GCSStore struct {
	client ObjectClient
	bucket string
	object string
}

// NewGCSStore stores the snapshot at gs://bucket/object.
func NewGCSStore(client ObjectClient, bucket, object string) *GCSStore {
	return &GCSStore{client: client, bucket: bucket, object: object}
}

func (g *GCSStore) Load(ctx context.Context) (store.Snapshot, error) {
	data, err := g.client.Read(ctx, g.bucket, g.object)
	if errors.Is(err, ErrObjectNotExist) {
		return store.Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return store.Snapshot{}, domain.External("gcs", "load", err)
	}
	return Decode(data)
}

func (g *GCSStore) Save(ctx context.Context, s store.Snapshot) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}
	if err := g.client.Write(ctx, g.bucket, g.object, "application/json", data); err != nil {
		return domain.External("gcs", "save", err)
	}
	return nil
}

// URI returns the gs:// location of the snapshot object.
func (g *GCSStore) URI() string {
	return "gs://" + g.bucket + "/" + g.object
}

// ParseGCSURI splits gs://bucket/path/to/object.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

var _ Store = (*GCSStore)(nil)
var _ ObjectClient = (*GCSClient)(nil)
