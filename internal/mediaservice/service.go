package mediaservice

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Store is the object storage the service writes to and signs from.
type Store interface {
	Resolver
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
	PresignPut(ctx context.Context, key string) (string, time.Time, error)
	Ping(ctx context.Context) error
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type MediaService struct {
	store    Store
	enricher *Enricher
}

func NewMediaService(store Store, concurrency int) *MediaService {
	return &MediaService{
		store:    store,
		enricher: NewEnricher(store, concurrency),
	}
}

// Upload stores an image owned by userID and returns a key-only Ref to it.
func (s *MediaService) Upload(ctx context.Context, userID string, data []byte) (Ref, error) {
	if len(data) == 0 {
		return Ref{}, fmt.Errorf("%w: empty file", ErrUnsupportedMedia)
	}

	contentType := http.DetectContentType(data)
	ext, ok := extensions[contentType]
	if !ok {
		return Ref{}, fmt.Errorf("%w: %s", ErrUnsupportedMedia, contentType)
	}

	key := NewKey(userID, ext)
	if err := s.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return Ref{}, err
	}

	return KeyRef(key), nil
}

// Remove deletes the object behind ref. Refs without a key point outside the bucket and are
// ignored.
func (s *MediaService) Remove(ctx context.Context, ref Ref) error {
	if ref.Key == "" {
		return nil
	}

	return s.store.Remove(ctx, ref.Key)
}

// UploadURL reserves a fresh key for userID and presigns a PUT for it.
func (s *MediaService) UploadURL(ctx context.Context, userID, ext string) (Ref, error) {
	key := NewKey(userID, ext)

	u, exp, err := s.store.PresignPut(ctx, key)
	if err != nil {
		return Ref{}, err
	}

	return Ref{Key: key, URL: u, ExpiresAt: exp}, nil
}

func (s *MediaService) Enrich(ctx context.Context, items ...Resolvable) error {
	return s.enricher.Enrich(ctx, items...)
}

func (s *MediaService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// NewKey builds an object key of the form <userID>/<uuid><ext>.
func NewKey(userID, ext string) string {
	return fmt.Sprintf("%s/%s%s", userID, uuid.NewString(), ext)
}

// ExtensionFor returns the file extension for an allowed content type.
func ExtensionFor(contentType string) (string, bool) {
	ext, ok := extensions[contentType]
	return ext, ok
}
