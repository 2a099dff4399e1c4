// Package gcs stores deposit slips in a Google Cloud Storage bucket.
package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gstorage "google.golang.org/api/storage/v1"

	"cashtrack/internal/blob"
)

type Store struct {
	svc    *gstorage.Service
	bucket string
}

var _ blob.Store = (*Store)(nil)

// New creates a bucket-backed store. credentialsFile may be empty, in which
// case application default credentials are used.
func New(ctx context.Context, bucket, credentialsFile string) (*Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("missing bucket name")
	}
	opts := []goption.ClientOption{goption.WithScopes(gstorage.DevstorageReadWriteScope)}
	if credentialsFile != "" {
		opts = append(opts, goption.WithCredentialsFile(credentialsFile))
	}
	svc, err := gstorage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage service: %w", err)
	}
	return &Store{svc: svc, bucket: bucket}, nil
}

func (s *Store) Save(ctx context.Context, name, contentType string, data []byte) (string, error) {
	obj := &gstorage.Object{Name: name, ContentType: contentType}
	_, err := s.svc.Objects.Insert(s.bucket, obj).
		Media(bytes.NewReader(data), googleapi.ContentType(contentType)).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("insert object %s: %w", name, err)
	}
	return s.objectURL(name), nil
}

func (s *Store) Delete(ctx context.Context, url string) error {
	name, ok := strings.CutPrefix(url, s.objectURL(""))
	if !ok {
		return fmt.Errorf("url %q not in bucket %s", url, s.bucket)
	}
	err := s.svc.Objects.Delete(s.bucket, name).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			// Already gone; deletion is idempotent.
			return nil
		}
		return fmt.Errorf("delete object %s: %w", name, err)
	}
	return nil
}

func (s *Store) objectURL(name string) string {
	return "https://storage.googleapis.com/" + s.bucket + "/" + name
}
