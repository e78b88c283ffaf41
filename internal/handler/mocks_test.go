package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/book-catalog/internal/auth"
	"github.com/sakif/book-catalog/internal/model"
	"github.com/sakif/book-catalog/internal/service"
)

// Each mock records what it was called with and returns whatever the test
// put in its Return* fields.

type MockAuthService struct {
	CapturedName, CapturedEmail, CapturedPassword string
	CapturedGitHub                                *auth.GitHubUser

	ReturnUser    *model.User
	ReturnSession *service.Session
	ReturnErr     error
}

func (m *MockAuthService) Register(_ context.Context, name, email, password string) (*model.User, error) {
	m.CapturedName, m.CapturedEmail, m.CapturedPassword = name, email, password
	return m.ReturnUser, m.ReturnErr
}

func (m *MockAuthService) Authenticate(_ context.Context, email, password string) (*service.Session, error) {
	m.CapturedEmail, m.CapturedPassword = email, password
	return m.ReturnSession, m.ReturnErr
}

func (m *MockAuthService) ResetPassword(_ context.Context, email, newPassword string) error {
	m.CapturedEmail, m.CapturedPassword = email, newPassword
	return m.ReturnErr
}

func (m *MockAuthService) LoginWithGitHub(_ context.Context, ghUser *auth.GitHubUser) (*service.Session, error) {
	m.CapturedGitHub = ghUser
	return m.ReturnSession, m.ReturnErr
}

type MockGitHub struct {
	CapturedCode string
	ReturnUser   *auth.GitHubUser
	ReturnErr    error
}

func (m *MockGitHub) AuthURL(state string) string {
	return "https://github.example/authorize?state=" + state
}

func (m *MockGitHub) Exchange(_ context.Context, code string) (*auth.GitHubUser, error) {
	m.CapturedCode = code
	return m.ReturnUser, m.ReturnErr
}

type MockBookService struct {
	CapturedFields  model.BookFields
	CapturedList    []model.BookFields
	CapturedAddedBy string
	CapturedID      string
	CapturedQuery   service.BookQuery
	CapturedSearch  string
	CapturedPage    service.PageRequest
	Calls           int

	ReturnBook  *model.Book
	ReturnBooks []*model.Book
	ReturnPage  *service.BookPage
	ReturnErr   error
}

func (m *MockBookService) Create(_ context.Context, fields model.BookFields, addedBy string) (*model.Book, error) {
	m.Calls++
	m.CapturedFields, m.CapturedAddedBy = fields, addedBy
	return m.ReturnBook, m.ReturnErr
}

func (m *MockBookService) CreateBulk(_ context.Context, list []model.BookFields, addedBy string) ([]*model.Book, error) {
	m.Calls++
	m.CapturedList, m.CapturedAddedBy = list, addedBy
	return m.ReturnBooks, m.ReturnErr
}

func (m *MockBookService) Update(_ context.Context, id string, fields model.BookFields) error {
	m.Calls++
	m.CapturedID, m.CapturedFields = id, fields
	return m.ReturnErr
}

func (m *MockBookService) List(_ context.Context, q service.BookQuery, page service.PageRequest) (*service.BookPage, error) {
	m.Calls++
	m.CapturedQuery, m.CapturedPage = q, page
	return m.ReturnPage, m.ReturnErr
}

func (m *MockBookService) Search(_ context.Context, query string, page service.PageRequest) (*service.BookPage, error) {
	m.Calls++
	m.CapturedSearch, m.CapturedPage = query, page
	return m.ReturnPage, m.ReturnErr
}

type MockReviewService struct {
	CapturedBookID, CapturedReviewID, CapturedUserID string
	CapturedRating                                   int
	CapturedComment                                  string
	CapturedPage                                     service.PageRequest
	Calls                                            int

	ReturnReview *model.Review
	ReturnPage   *service.BookReviewsPage
	ReturnErr    error
}

func (m *MockReviewService) Create(_ context.Context, bookID, userID string, rating int, comment string) (*model.Review, error) {
	m.Calls++
	m.CapturedBookID, m.CapturedUserID, m.CapturedRating, m.CapturedComment = bookID, userID, rating, comment
	return m.ReturnReview, m.ReturnErr
}

func (m *MockReviewService) ListForBook(_ context.Context, bookID string, page service.PageRequest) (*service.BookReviewsPage, error) {
	m.Calls++
	m.CapturedBookID, m.CapturedPage = bookID, page
	return m.ReturnPage, m.ReturnErr
}

func (m *MockReviewService) Update(_ context.Context, reviewID, callerID string, rating int, comment string) error {
	m.Calls++
	m.CapturedReviewID, m.CapturedUserID, m.CapturedRating, m.CapturedComment = reviewID, callerID, rating, comment
	return m.ReturnErr
}

func (m *MockReviewService) Delete(_ context.Context, reviewID, callerID string) error {
	m.Calls++
	m.CapturedReviewID, m.CapturedUserID = reviewID, callerID
	return m.ReturnErr
}

// =========================================================================
// HELPERS
// =========================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// envelope mirrors response.Envelope with Data left raw so each test can
// decode it into the shape it expects.
type envelope struct {
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Success    int             `json:"success"`
}

// decodeEnvelope parses the recorded body without consuming it, so tests can
// still assert on rr.Body.String() afterwards.
func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	require.Equal(t, rr.Code, env.StatusCode, "envelope statusCode must match HTTP status")
	return env
}

func decodeData(t *testing.T, env envelope, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

// serve runs a request through a chi router with a single route, so URL
// parameters resolve the same way they do in the server. A non-nil user is
// attached to the context as if auth.RequireAuth had run.
func serve(method, pattern, target, body string, user *model.User, h http.HandlerFunc) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Method(method, pattern, h)

	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		req = req.WithContext(auth.WithUser(req.Context(), user))
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

var caller = &model.User{ID: "user-1", Name: "Ada", Email: "ada@example.com", Active: true}
