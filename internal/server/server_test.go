// Run with: go test ./internal/server/ -v
//
// These tests drive the whole stack (router, middleware, services and an
// in-memory SQLite database) over real HTTP through httptest.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sakif/book-catalog/internal/config"
)

type envelope struct {
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Success    int             `json:"success"`
}

func testConfig() *config.Config {
	return &config.Config{
		Env:                "test",
		Port:               0,
		DBPath:             ":memory:",
		JWTSecret:          "an-end-to-end-test-secret-value",
		TokenTTL:           time.Hour,
		BcryptCost:         4,
		LogLevel:           "error",
		LogFormat:          "text",
		CORSOrigins:        []string{"https://catalog.example"},
		AuthRateLimitRPS:   100,
		AuthRateLimitBurst: 100,
	}
}

// newTestServer starts the full app and registers cleanup that closes it.
func newTestServer(t *testing.T, cfg *config.Config) (*Server, *httptest.Server) {
	t.Helper()

	s, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		require.NoError(t, s.Close())
	})
	return s, ts
}

// call sends a JSON request and decodes the envelope. token may be empty.
func call(t *testing.T, ts *httptest.Server, method, path, token string, body any) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func signupAndLogin(t *testing.T, ts *httptest.Server, name, email, password string) string {
	t.Helper()

	status, env := call(t, ts, http.MethodPost, "/signup", "", map[string]string{
		"name": name, "email": email, "password": password,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)

	return login(t, ts, email, password)
}

func login(t *testing.T, ts *httptest.Server, email, password string) string {
	t.Helper()

	status, env := call(t, ts, http.MethodPost, "/login", "", map[string]string{
		"email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, status, env.Message)

	var session struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &session))
	require.NotEmpty(t, session.Token)
	return session.Token
}

func createBook(t *testing.T, ts *httptest.Server, token, title, author, genre string) string {
	t.Helper()

	status, env := call(t, ts, http.MethodPost, "/books", token, map[string]string{
		"title": title, "author": author, "genre": genre, "description": "A book.",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)

	var book struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &book))
	return book.ID
}

// =========================================================================
// HAPPY PATH
// =========================================================================

func TestCatalogFlow(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	ada := signupAndLogin(t, ts, "Ada", "Ada@Example.com", "hunter2hunter2")
	bob := signupAndLogin(t, ts, "Bob", "bob@example.com", "correct-horse")

	hobbitID := createBook(t, ts, ada, "The Hobbit", "J.R.R. Tolkien", "Fantasy")

	// Bulk insert takes a bare JSON array.
	status, env := call(t, ts, http.MethodPost, "/bulk-books", ada, []map[string]string{
		{"title": "Dune", "author": "Frank Herbert", "genre": "Science Fiction", "description": "Spice."},
		{"title": "Children of Dune", "author": "Frank Herbert", "genre": "Science Fiction", "description": "More spice."},
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	assert.Equal(t, "BOOK ENTRY CREATED", env.Message)
	assert.Equal(t, 1, env.Success)

	// Two reviews from two users.
	status, env = call(t, ts, http.MethodPost, "/books/"+hobbitID+"/review", ada, map[string]any{
		"rating": 5, "comment": "Wonderful.",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	var adaReview struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &adaReview))

	status, env = call(t, ts, http.MethodPost, "/books/"+hobbitID+"/review", bob, map[string]any{
		"rating": 4, "comment": "Good fun.",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)

	// A second review of the same book by the same user conflicts.
	status, _ = call(t, ts, http.MethodPost, "/books/"+hobbitID+"/review", bob, map[string]any{
		"rating": 1, "comment": "Changed my mind.",
	})
	assert.Equal(t, http.StatusConflict, status)

	// Bob may not touch Ada's review.
	status, _ = call(t, ts, http.MethodDelete, "/reviews/"+adaReview.ID, bob, nil)
	assert.Equal(t, http.StatusForbidden, status)

	// Detail page: average over all reviews, one per page.
	status, env = call(t, ts, http.MethodGet, "/books/"+hobbitID+"?limit=1", bob, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, "BOOK DATA FETCHED SUCCESSFULLY", env.Message)

	var detail struct {
		Book struct {
			Title string `json:"title"`
		} `json:"book"`
		AverageRating float64 `json:"averageRating"`
		Reviews       struct {
			Count      int `json:"count"`
			Pagination struct {
				TotalReviews int `json:"totalReviews"`
				Pages        int `json:"pages"`
			} `json:"pagination"`
			Data []struct {
				Rating int `json:"rating"`
				User   struct {
					Name string `json:"name"`
				} `json:"user"`
			} `json:"data"`
		} `json:"reviews"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, "The Hobbit", detail.Book.Title)
	assert.InDelta(t, 4.5, detail.AverageRating, 0.001)
	assert.Equal(t, 1, detail.Reviews.Count)
	assert.Equal(t, 2, detail.Reviews.Pagination.TotalReviews)
	assert.Equal(t, 2, detail.Reviews.Pagination.Pages)
	require.Len(t, detail.Reviews.Data, 1)
	assert.Equal(t, "Bob", detail.Reviews.Data[0].User.Name, "newest review first")

	// Ada edits her review and the average follows.
	status, _ = call(t, ts, http.MethodPut, "/reviews/"+adaReview.ID, ada, map[string]any{
		"rating": 2, "comment": "Less wonderful on reread.",
	})
	require.Equal(t, http.StatusOK, status)

	_, env = call(t, ts, http.MethodGet, "/books/"+hobbitID, ada, nil)
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.InDelta(t, 3.0, detail.AverageRating, 0.001)

	// Filtered listing and search.
	var list struct {
		Count      int `json:"count"`
		Pagination struct {
			TotalBooks int `json:"totalBooks"`
		} `json:"pagination"`
	}

	status, env = call(t, ts, http.MethodGet, "/books?genre=Science%20Fiction", ada, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, 2, list.Pagination.TotalBooks)

	status, env = call(t, ts, http.MethodGet, "/search?q=tolkien", ada, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, 1, list.Count)

	// Updating a book.
	status, _ = call(t, ts, http.MethodPut, "/books/"+hobbitID, bob, map[string]string{
		"title": "The Hobbit", "author": "J.R.R. Tolkien", "genre": "Fantasy", "description": "There and back again.",
	})
	assert.Equal(t, http.StatusOK, status)
}

// =========================================================================
// AUTH EDGES
// =========================================================================

func TestProtectedRoutes_RequireToken(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	status, env := call(t, ts, http.MethodGet, "/books", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, 0, env.Success)

	status, _ = call(t, ts, http.MethodGet, "/books", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestChangePassword_RevokesOldTokens(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	old := signupAndLogin(t, ts, "Ada", "ada@example.com", "first-password")

	status, env := call(t, ts, http.MethodPut, "/changePassword", "", map[string]string{
		"email": "ada@example.com", "newPassword": "second-password",
	})
	require.Equal(t, http.StatusOK, status, env.Message)

	status, _ = call(t, ts, http.MethodGet, "/books", old, nil)
	assert.Equal(t, http.StatusUnauthorized, status, "token issued before the reset")

	status, _ = call(t, ts, http.MethodPost, "/login", "", map[string]string{
		"email": "ada@example.com", "password": "first-password",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	fresh := login(t, ts, "ada@example.com", "second-password")
	status, _ = call(t, ts, http.MethodGet, "/books", fresh, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestDeactivatedUser_Forbidden(t *testing.T) {
	s, ts := newTestServer(t, testConfig())

	token := signupAndLogin(t, ts, "Ada", "ada@example.com", "hunter2hunter2")

	user, err := s.db.GetUserByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	require.NoError(t, s.db.SetActive(context.Background(), user.ID, false))

	status, env := call(t, ts, http.MethodGet, "/books", token, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "INACTIVE USER", env.Message)

	status, _ = call(t, ts, http.MethodPost, "/login", "", map[string]string{
		"email": "ada@example.com", "password": "hunter2hunter2",
	})
	assert.Equal(t, http.StatusForbidden, status)
}

func TestSignup_Validation(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	status, env := call(t, ts, http.MethodPost, "/signup", "", map[string]string{
		"name": "Ada", "email": "not-an-email", "password": "x",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Validation Error", env.Message)

	signupAndLogin(t, ts, "Ada", "ada@example.com", "hunter2hunter2")
	status, _ = call(t, ts, http.MethodPost, "/signup", "", map[string]string{
		"name": "Ada again", "email": "ADA@example.com", "password": "whatever",
	})
	assert.Equal(t, http.StatusConflict, status)
}

func TestLogin_RateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.AuthRateLimitRPS = 0.001
	cfg.AuthRateLimitBurst = 2
	_, ts := newTestServer(t, cfg)

	creds := map[string]string{"email": "nobody@example.com", "password": "whatever"}
	for i := 0; i < 2; i++ {
		status, _ := call(t, ts, http.MethodPost, "/login", "", creds)
		assert.Equal(t, http.StatusNotFound, status)
	}

	status, env := call(t, ts, http.MethodPost, "/login", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, 0, env.Success)
}

// =========================================================================
// OPERATIONAL ROUTES
// =========================================================================

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	status, env := call(t, ts, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, env.Success)
	assert.JSONEq(t, `{"database":"up"}`, string(env.Data))
}

func TestHealthz_DatabaseDown(t *testing.T) {
	s, ts := newTestServer(t, testConfig())
	require.NoError(t, s.db.Close())

	status, env := call(t, ts, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, 0, env.Success)
}

func TestMetrics_ReportRoutePatterns(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	token := signupAndLogin(t, ts, "Ada", "ada@example.com", "hunter2hunter2")
	id := createBook(t, ts, token, "Dune", "Frank Herbert", "Science Fiction")
	call(t, ts, http.MethodGet, "/books/"+id, token, nil)

	resp, err := ts.Client().Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `route="/books/{id}"`)
	assert.NotContains(t, string(body), id, "ids must not become label values")
}

func TestUnknownRoute(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	status, env := call(t, ts, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 0, env.Success)
}

func TestCORS_Preflight(t *testing.T) {
	_, ts := newTestServer(t, testConfig())

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/books", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://catalog.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "https://catalog.example", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.True(t, strings.Contains(resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost))
}

// =========================================================================
// LIFECYCLE
// =========================================================================

func TestStart_ShutsDownOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := testConfig()
	cfg.Port = 0

	s, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
