package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sushihentaime/blogshelf/internal/blogservice"
	"github.com/sushihentaime/blogshelf/internal/common"
	"github.com/sushihentaime/blogshelf/internal/listservice"
	"github.com/sushihentaime/blogshelf/internal/mediaservice"
	"github.com/sushihentaime/blogshelf/internal/userservice"
)

const testPassword = "Secret123"

type testServer struct {
	*httptest.Server
}

type testEnv struct {
	app   *application
	ts    *testServer
	store *mediaservice.MemoryStore
	cache *common.MemoryCache
}

func testConfig() *Config {
	return &Config{
		Environment:    "testing",
		Version:        "test",
		TrustedOrigins: []string{"http://localhost:3000"},
		MaxUploadBytes: 64 << 10,
		LimiterEnabled: false,
		LimiterRPS:     2,
		LimiterBurst:   4,
	}
}

// newTestApplication wires every service to its in-memory store.
func newTestApplication(t *testing.T, cfg *Config) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	users := userservice.NewMemoryModel()
	store := mediaservice.NewMemoryStore()
	media := mediaservice.NewMediaService(store, 4)
	c := common.NewCache(time.Minute, time.Minute)
	lists := listservice.NewListService(listservice.NewMemoryModel())
	blogs := blogservice.NewBlogService(blogservice.NewMemoryModel(users), lists, media, c, logger)
	tokens := userservice.NewTokenIssuer("0123456789abcdef0123456789abcdef", "blogshelf-test", time.Hour)

	app := &application{
		config:       cfg,
		logger:       logger,
		userService:  userservice.NewUserService(users, tokens, lists, blogs, media, common.DiscardProducer{}, c, logger),
		blogService:  blogs,
		mediaService: media,
		limiter:      newIPRateLimiter(cfg.LimiterRPS, cfg.LimiterBurst),
		checks: map[string]func(ctx context.Context) error{
			"storage": media.Ping,
		},
	}

	return &testEnv{
		app:   app,
		ts:    newTestServer(t, app.routes()),
		store: store,
		cache: c,
	}
}

func newTestServer(t *testing.T, h http.Handler) *testServer {
	ts := httptest.NewServer(h)

	t.Cleanup(ts.Close)

	return &testServer{ts}
}

func readResponse(t *testing.T, res *http.Response) (int, http.Header, envelope) {
	defer res.Body.Close()

	responseBody, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatal(err)
	}

	var envelope envelope
	err = json.Unmarshal(responseBody, &envelope)
	if err != nil {
		t.Fatal(err)
	}

	return res.StatusCode, res.Header, envelope
}

func (ts *testServer) do(t *testing.T, req *http.Request, token string) (int, http.Header, envelope) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}

	return readResponse(t, res)
}

func (ts *testServer) post(t *testing.T, path string, data any, token string) (int, http.Header, envelope) {
	jsonPayload, err := json.Marshal(data)
	if err != nil {
		t.Fatal(err)
	}

	req, err := http.NewRequest(http.MethodPost, ts.URL+path, bytes.NewReader(jsonPayload))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	return ts.do(t, req, token)
}

func (ts *testServer) get(t *testing.T, path string, token string) (int, http.Header, envelope) {
	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	if err != nil {
		t.Fatal(err)
	}

	return ts.do(t, req, token)
}

// multipartFile is one file part of a multipart request.
type multipartFile struct {
	field string
	data  []byte
}

func (ts *testServer) postMultipart(t *testing.T, path string, fields map[string][]string, files []multipartFile, token string) (int, http.Header, envelope) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	for name, values := range fields {
		for _, v := range values {
			require.NoError(t, mw.WriteField(name, v))
		}
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.field+".bin")
		require.NoError(t, err)
		_, err = fw.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, ts.URL+path, &body)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return ts.do(t, req, token)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))))
	return buf.Bytes()
}

// signUp registers a user and returns its id and a bearer token.
func (e *testEnv) signUp(t *testing.T, name, email string) (string, string) {
	t.Helper()

	status, _, body := e.ts.post(t, "/sign-up", map[string]string{
		"name":            name,
		"email":           email,
		"password":        testPassword,
		"confirmPassword": testPassword,
	}, "")
	require.Equal(t, http.StatusOK, status, body)

	status, _, body = e.ts.post(t, "/sign-in", map[string]string{"email": email, "password": testPassword}, "")
	require.Equal(t, http.StatusOK, status, body)

	data := body["data"].(map[string]any)
	user := data["user"].(map[string]any)

	return user["id"].(string), data["token"].(string)
}

// createBlog posts a blog with an image and returns its id.
func (e *testEnv) createBlog(t *testing.T, token, title string) string {
	t.Helper()

	status, _, body := e.ts.postMultipart(t, "/create-blog", map[string][]string{
		"title":       {title},
		"brief":       {"brief"},
		"description": {"some words to read"},
		"category":    {"go"},
	}, []multipartFile{{field: "image", data: pngBytes(t)}}, token)
	require.Equal(t, http.StatusOK, status, body)

	blog := data(t, body)["blog"].(map[string]any)
	return blog["id"].(string)
}

func data(t *testing.T, body envelope) map[string]any {
	t.Helper()

	d, ok := body["data"].(map[string]any)
	require.True(t, ok, body)
	return d
}
