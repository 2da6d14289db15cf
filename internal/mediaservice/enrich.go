package mediaservice

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	ErrStorageUnavailable = errors.New("object storage unavailable")
	ErrUnsupportedMedia   = errors.New("unsupported media type")
)

// Resolver turns a storage key into a time-limited URL.
type Resolver interface {
	Resolve(ctx context.Context, key string) (url string, expiresAt time.Time, err error)
}

// Resolvable is implemented by records that carry media references. MediaRefs must be safe to
// call on a nil receiver and must only return refs owned by the receiver.
type Resolvable interface {
	MediaRefs() []*Ref
}

type Enricher struct {
	resolver    Resolver
	concurrency int
	now         func() time.Time
}

func NewEnricher(r Resolver, concurrency int) *Enricher {
	if concurrency < 1 {
		concurrency = 1
	}

	return &Enricher{resolver: r, concurrency: concurrency, now: time.Now}
}

// Enrich signs every unresolved ref of items in place. Empty refs and refs that already hold
// a live URL are left untouched, so running it again over the same items makes no calls.
func (e *Enricher) Enrich(ctx context.Context, items ...Resolvable) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	now := e.now()
	for _, item := range items {
		if item == nil {
			continue
		}
		item := item

		g.Go(func() error {
			for _, ref := range item.MediaRefs() {
				if ref == nil || ref.IsZero() || ref.Resolved(now) {
					continue
				}

				u, exp, err := e.resolver.Resolve(ctx, ref.Key)
				if err != nil {
					return err
				}

				ref.URL = u
				ref.ExpiresAt = exp
			}
			return nil
		})
	}

	return g.Wait()
}
