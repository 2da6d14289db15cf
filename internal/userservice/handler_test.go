package userservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sushihentaime/blogshelf/internal/blogservice"
	"github.com/sushihentaime/blogshelf/internal/common"
	"github.com/sushihentaime/blogshelf/internal/listservice"
	"github.com/sushihentaime/blogshelf/internal/mediaservice"
)

type fakeProducer struct {
	mu   sync.Mutex
	msgs [][]byte
	err  error
}

func (p *fakeProducer) Publish(_ context.Context, msg []byte, _ common.BindingKey, _ common.Exchange) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

type testEnv struct {
	s        *UserService
	blogs    *blogservice.BlogService
	objects  *mediaservice.MemoryStore
	cache    *common.MemoryCache
	producer *fakeProducer
}

func setupTestEnvironment(t *testing.T) *testEnv {
	t.Helper()

	users := NewMemoryModel()
	objects := mediaservice.NewMemoryStore()
	media := mediaservice.NewMediaService(objects, 4)
	cache := common.NewCache(5*time.Minute, 10*time.Minute)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	lists := listservice.NewListService(listservice.NewMemoryModel())
	blogs := blogservice.NewBlogService(blogservice.NewMemoryModel(users), lists, media, cache, logger)
	producer := &fakeProducer{}
	tokens := NewTokenIssuer("test-secret", "blogshelf-test", time.Hour)

	return &testEnv{
		s:        NewUserService(users, tokens, lists, blogs, media, producer, cache, logger),
		blogs:    blogs,
		objects:  objects,
		cache:    cache,
		producer: producer,
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))))
	return buf.Bytes()
}

func testUser() *CreateUserRequest {
	return &CreateUserRequest{
		Name:            "A",
		Email:           "a@x.com",
		Password:        "Abc12345",
		ConfirmPassword: "Abc12345",
	}
}

func createUser(t *testing.T, env *testEnv, email string) *User {
	t.Helper()

	req := testUser()
	req.Email = email
	u, err := env.s.CreateUser(context.Background(), req)
	require.NoError(t, err)
	return u
}

func TestCreateUser(t *testing.T) {
	env := setupTestEnvironment(t)
	ctx := context.Background()

	testCases := []struct {
		name        string
		req         func() *CreateUserRequest
		expectedErr error
		fields      []string
	}{
		{
			name:        "valid user",
			req:         testUser,
			expectedErr: nil,
		},
		{
			name:        "duplicate user",
			req:         testUser,
			expectedErr: ErrDuplicateUser,
		},
		{
			name: "duplicate user with different case",
			req: func() *CreateUserRequest {
				r := testUser()
				r.Email = "  A@X.com "
				return r
			},
			expectedErr: ErrDuplicateUser,
		},
		{
			name: "password mismatch",
			req: func() *CreateUserRequest {
				r := testUser()
				r.Email = "b@x.com"
				r.ConfirmPassword = "Abc123456"
				return r
			},
			expectedErr: ErrPasswordMismatch,
		},
		{
			name: "invalid fields",
			req: func() *CreateUserRequest {
				return &CreateUserRequest{Email: "nope", Password: "short"}
			},
			fields: []string{"name", "email", "password"},
		},
		{
			name: "unsupported avatar",
			req: func() *CreateUserRequest {
				r := testUser()
				r.Email = "c@x.com"
				r.Avatar = []byte("plain text")
				return r
			},
			expectedErr: mediaservice.ErrUnsupportedMedia,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			u, err := env.s.CreateUser(ctx, tc.req())

			switch {
			case len(tc.fields) > 0:
				var ve common.ValidationError
				require.ErrorAs(t, err, &ve)
				for _, f := range tc.fields {
					assert.Contains(t, ve.Errors, f)
				}
			case tc.expectedErr != nil:
				assert.ErrorIs(t, err, tc.expectedErr)
				assert.Nil(t, u)
			default:
				require.NoError(t, err)
				assert.Equal(t, "a@x.com", u.Email)
				assert.True(t, common.ValidID(u.ID))
				assert.NotEqual(t, []byte("Abc12345"), u.Password.hash)
				assert.NotEmpty(t, u.Password.hash)
			}
		})
	}

	require.Len(t, env.producer.msgs, 1, "only the successful sign-up is announced")
	var event common.UserCreatedEvent
	require.NoError(t, json.Unmarshal(env.producer.msgs[0], &event))
	assert.Equal(t, "a@x.com", event.Email)
	assert.Equal(t, "A", event.Name)
}

func TestCreateUser_WithAvatar(t *testing.T) {
	env := setupTestEnvironment(t)

	req := testUser()
	req.Avatar = pngBytes(t)

	u, err := env.s.CreateUser(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(u.Avatar.Key, u.ID+"/"))
	assert.True(t, u.Avatar.Resolved(time.Now()))
	assert.True(t, env.objects.Has(u.Avatar.Key))
}

func TestCreateUser_PublishFailureIsNotFatal(t *testing.T) {
	env := setupTestEnvironment(t)
	env.producer.err = errors.New("broker down")

	_, err := env.s.CreateUser(context.Background(), testUser())
	assert.NoError(t, err)
}

func TestAuthenticate(t *testing.T) {
	env := setupTestEnvironment(t)
	ctx := context.Background()
	u := createUser(t, env, "a@x.com")

	testCases := []struct {
		name        string
		email       string
		password    string
		expectedErr error
	}{
		{name: "valid credentials", email: "a@x.com", password: "Abc12345"},
		{name: "email is case insensitive", email: "A@X.COM", password: "Abc12345"},
		{name: "wrong password", email: "a@x.com", password: "Abc123456", expectedErr: ErrInvalidCredentials},
		{name: "unknown email", email: "z@x.com", password: "Abc12345", expectedErr: ErrInvalidCredentials},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			token, got, err := env.s.Authenticate(ctx, tc.email, tc.password)
			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				assert.Nil(t, token)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, token)
			assert.Equal(t, u.ID, got.ID)

			verified, err := env.s.VerifyToken(ctx, token.Token)
			require.NoError(t, err)
			assert.Equal(t, u.ID, verified.ID)
		})
	}

	t.Run("blank fields", func(t *testing.T) {
		_, _, err := env.s.Authenticate(ctx, "", "")
		var ve common.ValidationError
		assert.ErrorAs(t, err, &ve)
	})
}

func TestVerifyToken(t *testing.T) {
	env := setupTestEnvironment(t)
	ctx := context.Background()
	u := createUser(t, env, "a@x.com")

	_, err := env.s.VerifyToken(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewTokenIssuer("other-secret", "blogshelf-test", time.Hour)
	forged, err := other.Issue(u)
	require.NoError(t, err)
	_, err = env.s.VerifyToken(ctx, forged.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	ghost, err := env.s.tokens.Issue(&User{ID: uuid.NewString(), Email: "ghost@x.com"})
	require.NoError(t, err)
	_, err = env.s.VerifyToken(ctx, ghost.Token)
	assert.ErrorIs(t, err, ErrInvalidToken, "tokens of deleted users are rejected")
}

func TestTokenIssuer_Expiry(t *testing.T) {
	ti := NewTokenIssuer("secret", "iss", time.Minute)
	issued := time.Now().Add(-2 * time.Minute)
	ti.now = func() time.Time { return issued }

	token, err := ti.Issue(&User{ID: uuid.NewString()})
	require.NoError(t, err)

	ti.now = time.Now
	_, err = ti.Parse(token.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer := NewTokenIssuer("secret", "someone-else", time.Minute)
	token, err = wrongIssuer.Issue(&User{ID: uuid.NewString()})
	require.NoError(t, err)
	_, err = ti.Parse(token.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGetUserDetails(t *testing.T) {
	env := setupTestEnvironment(t)
	ctx := context.Background()
	u := createUser(t, env, "a@x.com")

	d, err := env.s.GetUserDetails(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, d.PostedBlogs)
	assert.Empty(t, d.SavedBlogs)

	res, err := env.blogs.CreateBlog(ctx, &blogservice.CreateBlogRequest{
		UserID:      u.ID,
		Title:       "First",
		Description: "some words",
		Image:       pngBytes(t),
	})
	require.NoError(t, err)

	_, err = env.blogs.SaveBlog(ctx, u.ID, res.Blog.ID)
	require.NoError(t, err)

	d, err = env.s.GetUserDetails(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, d.PostedBlogs, 1)
	require.Len(t, d.SavedBlogs, 1)
	assert.Equal(t, res.Blog.ID, d.PostedBlogs[0].ID)
	assert.True(t, d.PostedBlogs[0].Image.Resolved(time.Now()))
	assert.True(t, d.SavedBlogs[0].Image.Resolved(time.Now()))

	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"postedBlogs"`)
	assert.NotContains(t, string(b), "password")

	_, err = env.s.GetUserDetails(ctx, uuid.NewString())
	assert.ErrorIs(t, err, common.ErrRecordNotFound)
}

func TestGetUserDetails_CacheMissAfterInvalidation(t *testing.T) {
	env := setupTestEnvironment(t)
	ctx := context.Background()
	u := createUser(t, env, "a@x.com")

	_, err := env.s.GetUserDetails(ctx, u.ID)
	require.NoError(t, err)
	_, ok, _ := env.cache.Get(ctx, common.CacheKeyUser(u.ID))
	require.True(t, ok)

	name := "Renamed"
	_, err = env.s.UpdateProfile(ctx, &UpdateProfileRequest{UserID: u.ID, Name: &name})
	require.NoError(t, err)

	_, ok, _ = env.cache.Get(ctx, common.CacheKeyUser(u.ID))
	assert.False(t, ok)

	d, err := env.s.GetUserDetails(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", d.Name)
}

func TestGetUserDetails_AuthorUpdateVisibleToSavers(t *testing.T) {
	env := setupTestEnvironment(t)
	ctx := context.Background()

	req := testUser()
	req.Avatar = pngBytes(t)
	author, err := env.s.CreateUser(ctx, req)
	require.NoError(t, err)
	reader := createUser(t, env, "b@x.com")

	res, err := env.blogs.CreateBlog(ctx, &blogservice.CreateBlogRequest{UserID: author.ID, Title: "Post", Description: "words"})
	require.NoError(t, err)
	_, err = env.blogs.SaveBlog(ctx, reader.ID, res.Blog.ID)
	require.NoError(t, err)

	d, err := env.s.GetUserDetails(ctx, reader.ID)
	require.NoError(t, err)
	require.Len(t, d.SavedBlogs, 1)
	assert.Equal(t, "A", d.SavedBlogs[0].Author.Name)

	name := "Ada"
	updated, err := env.s.UpdateProfile(ctx, &UpdateProfileRequest{UserID: author.ID, Name: &name, Avatar: pngBytes(t)})
	require.NoError(t, err)
	require.False(t, env.objects.Has(author.Avatar.Key))

	_, ok, _ := env.cache.Get(ctx, common.CacheKeyUser(reader.ID))
	require.True(t, ok, "the reader's entry is still cached")

	d, err = env.s.GetUserDetails(ctx, reader.ID)
	require.NoError(t, err)
	require.Len(t, d.SavedBlogs, 1)
	got := d.SavedBlogs[0].Author
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, updated.Avatar.Key, got.Avatar.Key)
	assert.True(t, env.objects.Has(got.Avatar.Key))
	assert.True(t, got.Avatar.Resolved(time.Now()))
}

func TestUpdateProfile(t *testing.T) {
	env := setupTestEnvironment(t)
	ctx := context.Background()

	req := testUser()
	req.Avatar = pngBytes(t)
	u, err := env.s.CreateUser(ctx, req)
	require.NoError(t, err)
	oldKey := u.Avatar.Key

	res, err := env.blogs.CreateBlog(ctx, &blogservice.CreateBlogRequest{UserID: u.ID, Title: "Post", Description: "words"})
	require.NoError(t, err)

	_, err = env.blogs.GetBlogByID(ctx, res.Blog.ID)
	require.NoError(t, err)
	_, err = env.blogs.GetBlogs(ctx)
	require.NoError(t, err)

	name := "Ada"
	updated, err := env.s.UpdateProfile(ctx, &UpdateProfileRequest{
		UserID:    u.ID,
		Name:      &name,
		Interests: []string{"go", " databases ", "Go"},
		Avatar:    pngBytes(t),
	})
	require.NoError(t, err)

	assert.Equal(t, "Ada", updated.Name)
	assert.Equal(t, []string{"go", "databases"}, updated.Interests)
	assert.NotEqual(t, oldKey, updated.Avatar.Key)
	assert.False(t, env.objects.Has(oldKey), "the replaced avatar is removed")
	assert.True(t, env.objects.Has(updated.Avatar.Key))

	for _, key := range []string{common.CacheKeyBlog(res.Blog.ID), common.CacheKeyAllBlogs} {
		_, ok, _ := env.cache.Get(ctx, key)
		assert.False(t, ok, key)
	}

	blog, err := env.blogs.GetBlogByID(ctx, res.Blog.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", blog.Author.Name)

	// Leaving fields out keeps them.
	kept, err := env.s.UpdateProfile(ctx, &UpdateProfileRequest{UserID: u.ID})
	require.NoError(t, err)
	assert.Equal(t, "Ada", kept.Name)
	assert.Equal(t, []string{"go", "databases"}, kept.Interests)

	blank := " "
	_, err = env.s.UpdateProfile(ctx, &UpdateProfileRequest{UserID: u.ID, Name: &blank})
	var ve common.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = env.s.UpdateProfile(ctx, &UpdateProfileRequest{UserID: uuid.NewString(), Name: &name})
	assert.ErrorIs(t, err, common.ErrRecordNotFound)
}

func TestUpdateProfile_Concurrent(t *testing.T) {
	env := setupTestEnvironment(t)
	ctx := context.Background()

	req := testUser()
	req.Avatar = pngBytes(t)
	u, err := env.s.CreateUser(ctx, req)
	require.NoError(t, err)
	require.Equal(t, 1, env.objects.Len())

	name := "Ada"
	avatars := [][]byte{pngBytes(t), pngBytes(t)}
	reqs := []*UpdateProfileRequest{
		{UserID: u.ID, Name: &name, Avatar: avatars[0]},
		{UserID: u.ID, Interests: []string{"go"}, Avatar: avatars[1]},
	}

	var wg sync.WaitGroup
	errs := make([]error, len(reqs))
	for i, r := range reqs {
		wg.Add(1)
		go func(i int, r *UpdateProfileRequest) {
			defer wg.Done()
			_, errs[i] = env.s.UpdateProfile(ctx, r)
		}(i, r)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	got, err := env.s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, []string{"go"}, got.Interests)
	assert.False(t, env.objects.Has(u.Avatar.Key))
	assert.True(t, env.objects.Has(got.Avatar.Key))
	assert.Equal(t, 1, env.objects.Len(), "every replaced avatar is removed")
}

func TestFollow(t *testing.T) {
	env := setupTestEnvironment(t)
	ctx := context.Background()

	a := createUser(t, env, "a@x.com")
	b := createUser(t, env, "b@x.com")

	u, err := env.s.Follow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, u.Following)

	u, err = env.s.Follow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, u.Following, "following twice is a no-op")

	_, err = env.s.Follow(ctx, a.ID, a.ID)
	var ve common.ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = env.s.Follow(ctx, a.ID, uuid.NewString())
	assert.ErrorIs(t, err, common.ErrRecordNotFound)
}

// runModelTests holds every backend to the same contract.
func runModelTests(t *testing.T, m Model) {
	ctx := context.Background()

	u := &User{ID: uuid.NewString(), Name: "A", Email: "a@x.com", Interests: []string{}, Following: []string{}, CreatedAt: time.Now().UTC()}
	require.NoError(t, u.Password.hashPassword("Abc12345"))
	require.NoError(t, m.insert(ctx, u))

	dup := *u
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, m.insert(ctx, &dup), ErrDuplicateUser)

	got, err := m.getByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	ok, err := got.Password.matches("Abc12345")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = m.getByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, common.ErrRecordNotFound)

	name := "B"
	avatar := mediaservice.KeyRef("k/avatar.png")
	previous, err := m.update(ctx, u.ID, profileChanges{Name: &name, Avatar: &avatar})
	require.NoError(t, err)
	assert.True(t, previous.IsZero())

	previous, err = m.update(ctx, u.ID, profileChanges{Interests: []string{"go"}})
	require.NoError(t, err)
	assert.Equal(t, "k/avatar.png", previous.Key, "fields left out are kept")

	_, err = m.update(ctx, uuid.NewString(), profileChanges{Name: &name})
	assert.ErrorIs(t, err, common.ErrRecordNotFound)

	target := uuid.NewString()
	require.NoError(t, m.follow(ctx, u.ID, target))
	require.NoError(t, m.follow(ctx, u.ID, target))

	got, err = m.getByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "B", got.Name)
	assert.Equal(t, []string{"go"}, got.Interests)
	assert.Equal(t, "k/avatar.png", got.Avatar.Key)
	assert.Equal(t, []string{target}, got.Following)

	assert.ErrorIs(t, m.follow(ctx, uuid.NewString(), target), common.ErrRecordNotFound)
}

func TestMemoryModel(t *testing.T) {
	runModelTests(t, NewMemoryModel())
}

func TestPostgresModel(t *testing.T) {
	db := common.TestDB("file://../../migrations", t)
	runModelTests(t, NewPostgresModel(db))
}

func TestMongoModel(t *testing.T) {
	db := common.TestMongo(t)
	m := NewMongoModel(db)
	require.NoError(t, m.EnsureIndexes(context.Background()))
	runModelTests(t, m)
}

func TestCreateUser_Broker(t *testing.T) {
	connURL := common.TestRabbitMQ(t)
	mb, err := common.NewMessageBroker(connURL)
	require.NoError(t, err)
	defer mb.Close()
	require.NoError(t, common.SetupUserExchange(mb))

	env := setupTestEnvironment(t)
	env.s.mb = mb

	u, err := env.s.CreateUser(context.Background(), testUser())
	require.NoError(t, err)

	msgs, err := mb.Consume(common.UserCreatedKey, common.UserExchange, common.UserCreatedQueue)
	require.NoError(t, err)

	select {
	case d := <-msgs:
		var event common.UserCreatedEvent
		require.NoError(t, json.Unmarshal(d.Body, &event))
		assert.Equal(t, u.ID, event.UserID)
		require.NoError(t, d.Ack(false))
	case <-time.After(10 * time.Second):
		t.Fatal("no user created event received")
	}
}
