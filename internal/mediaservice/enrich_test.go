package mediaservice

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAuthor struct {
	Avatar Ref
}

type testBlog struct {
	Image  Ref
	Author *testAuthor
}

func (b *testBlog) MediaRefs() []*Ref {
	if b == nil {
		return nil
	}

	refs := []*Ref{&b.Image}
	if b.Author != nil {
		refs = append(refs, &b.Author.Avatar)
	}
	return refs
}

func TestEnrich(t *testing.T) {
	store := NewMemoryStore()
	e := NewEnricher(store, 4)
	ctx := context.Background()

	blogs := []*testBlog{
		{Image: KeyRef("u1/a.png"), Author: &testAuthor{Avatar: KeyRef("u1/avatar.png")}},
		{Image: ParseRef("https://elsewhere.test/b.png"), Author: &testAuthor{}},
		{Image: KeyRef("u2/c.png")},
		nil,
	}

	items := make([]Resolvable, len(blogs))
	for i, b := range blogs {
		items[i] = b
	}

	require.NoError(t, e.Enrich(ctx, items...))

	assert.True(t, strings.Contains(blogs[0].Image.URL, "://"))
	assert.True(t, strings.Contains(blogs[0].Author.Avatar.URL, "://"))
	assert.Equal(t, "u1/a.png", blogs[0].Image.Key, "the key survives resolution")
	assert.Equal(t, "https://elsewhere.test/b.png", blogs[1].Image.URL)
	assert.True(t, blogs[1].Author.Avatar.IsZero(), "empty avatars are skipped")
	assert.True(t, blogs[2].Image.Resolved(time.Now()))

	assert.Equal(t, 1, store.SignCount("u1/a.png"))
	assert.Equal(t, 1, store.SignCount("u1/avatar.png"))
	assert.Equal(t, 1, store.SignCount("u2/c.png"))
	assert.Equal(t, 3, store.TotalSigns())

	first := blogs[0].Image.URL

	require.NoError(t, e.Enrich(ctx, items...))
	assert.Equal(t, 3, store.TotalSigns(), "enriching resolved refs again makes no calls")
	assert.Equal(t, first, blogs[0].Image.URL)
}

func TestEnrich_Expired(t *testing.T) {
	store := NewMemoryStore()
	e := NewEnricher(store, 1)

	b := &testBlog{Image: Ref{Key: "k.png", URL: "https://old", ExpiresAt: time.Now().Add(-time.Second)}}
	require.NoError(t, e.Enrich(context.Background(), b))

	assert.Equal(t, 1, store.SignCount("k.png"))
	assert.NotEqual(t, "https://old", b.Image.URL)
}

func TestEnrich_StorageUnavailable(t *testing.T) {
	store := NewMemoryStore()
	store.SetFail(true)
	e := NewEnricher(store, 2)

	b := &testBlog{Image: KeyRef("k.png")}
	err := e.Enrich(context.Background(), b)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Empty(t, b.Image.URL)
}

func TestEnrich_Concurrent(t *testing.T) {
	store := NewMemoryStore()
	e := NewEnricher(store, 8)

	items := make([]Resolvable, 0, 50)
	for i := 0; i < 50; i++ {
		items = append(items, &testBlog{
			Image:  KeyRef(fmt.Sprintf("u/%d.png", i)),
			Author: &testAuthor{Avatar: KeyRef(fmt.Sprintf("u/%d-avatar.png", i))},
		})
	}

	require.NoError(t, e.Enrich(context.Background(), items...))
	assert.Equal(t, 100, store.TotalSigns())
}

func pngBytes(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func TestMediaService_Upload(t *testing.T) {
	store := NewMemoryStore()
	s := NewMediaService(store, 2)
	ctx := context.Background()

	ref, err := s.Upload(ctx, "user-1", pngBytes(t))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref.Key, "user-1/"))
	assert.True(t, strings.HasSuffix(ref.Key, ".png"))
	assert.Empty(t, ref.URL)
	assert.True(t, store.Has(ref.Key))

	_, err = s.Upload(ctx, "user-1", []byte("just some text"))
	assert.ErrorIs(t, err, ErrUnsupportedMedia)

	_, err = s.Upload(ctx, "user-1", nil)
	assert.ErrorIs(t, err, ErrUnsupportedMedia)

	require.NoError(t, s.Remove(ctx, ref))
	assert.False(t, store.Has(ref.Key))

	require.NoError(t, s.Remove(ctx, ParseRef("https://elsewhere.test/a.png")))
}

func TestMediaService_UploadURL(t *testing.T) {
	store := NewMemoryStore()
	s := NewMediaService(store, 2)

	ref, err := s.UploadURL(context.Background(), "user-1", ".jpg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref.Key, "user-1/"))
	assert.Contains(t, ref.URL, ref.Key)
	assert.False(t, ref.ExpiresAt.IsZero())

	store.SetFail(true)
	_, err = s.UploadURL(context.Background(), "user-1", ".jpg")
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, s.Ping(context.Background()), ErrStorageUnavailable)
}

func TestMinioStore(t *testing.T) {
	_, err := NewMinioStore(MinioConfig{Endpoint: "localhost:9000", Region: "us-east-1", Bucket: "b", URLExpiry: 8 * 24 * time.Hour})
	assert.Error(t, err)

	s, err := NewMinioStore(MinioConfig{
		Endpoint:  "localhost:9000",
		Region:    "us-east-1",
		Bucket:    "media",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		URLExpiry: time.Hour,
	})
	require.NoError(t, err)

	// Presigning is computed locally, so no server is needed here.
	u, exp, err := s.Resolve(context.Background(), "u1/a.png")
	require.NoError(t, err)
	assert.Contains(t, u, "http://localhost:9000/media/u1/a.png")
	assert.Contains(t, u, "X-Amz-Signature=")
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)
}
