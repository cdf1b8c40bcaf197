package login_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/keeeeeey/DevDay/internal/auth"
	"github.com/keeeeeey/DevDay/internal/http_server/handlers/login"
	resp "github.com/keeeeeey/DevDay/internal/lib/api/response"
	"github.com/keeeeeey/DevDay/internal/models"
	"github.com/keeeeeey/DevDay/internal/storage"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubStore struct {
	users map[string]models.User
}

func (s *stubStore) SaveUser(_ context.Context, email string, passHash []byte, name, nickname string) (int64, error) {
	return 1, nil
}

func (s *stubStore) UpdatePassword(context.Context, int64, []byte) error { return nil }

func (s *stubStore) User(_ context.Context, email string) (models.User, error) {
	u, ok := s.users[email]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}
	return u, nil
}

func (s *stubStore) UserByID(context.Context, int64) (models.User, error) {
	return models.User{}, storage.ErrUserNotFound
}

func (s *stubStore) UserByNameAndNickname(context.Context, string, string) (models.User, error) {
	return models.User{}, storage.ErrUserNotFound
}

func (s *stubStore) UserByNameNicknameEmail(context.Context, string, string, string) (models.User, error) {
	return models.User{}, storage.ErrUserNotFound
}

func (s *stubStore) SaveEmailAuth(context.Context, string, string, time.Time) (int64, error) {
	return 1, nil
}

func (s *stubStore) EmailAuth(context.Context, int64) (models.EmailAuth, error) {
	return models.EmailAuth{}, storage.ErrEmailAuthNotFound
}

func (s *stubStore) MarkEmailAuthChecked(context.Context, int64) error { return nil }

type stubSessions struct{}

func (stubSessions) SetRefreshToken(context.Context, int64, string, time.Duration) error { return nil }

func (stubSessions) RefreshToken(context.Context, int64) (string, error) {
	return "", storage.ErrRefreshTokenNotFound
}

type stubMail struct{}

func (stubMail) SendMessage(context.Context, models.EmailMessage) error { return nil }

func newHandler(t *testing.T) http.HandlerFunc {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("qwerty123"), bcrypt.DefaultCost)
	require.NoError(t, err)

	store := &stubStore{users: map[string]models.User{
		"dev@devday.io": {ID: 7, Email: "dev@devday.io", PassHash: hash},
	}}

	svc := auth.New(
		slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		store, store, store,
		stubSessions{}, stubMail{},
		"test-secret",
		time.Minute, time.Hour, time.Minute,
	)

	return login.New(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), validator.New(), svc)
}

func doLogin(t *testing.T, h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestLoginHandler_OK(t *testing.T) {
	h := newHandler(t)

	rec := doLogin(t, h, `{"email":"dev@devday.io","password":"qwerty123"}`)

	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Status       string `json:"status"`
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

	assert.Equal(t, resp.StatusOK, got.Status)
	assert.NotEmpty(t, got.AccessToken)
	assert.NotEmpty(t, got.RefreshToken)
	assert.NotEqual(t, got.AccessToken, got.RefreshToken)
}

func TestLoginHandler_UnknownUser(t *testing.T) {
	h := newHandler(t)

	rec := doLogin(t, h, `{"email":"ghost@devday.io","password":"qwerty123"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoginHandler_WrongPassword(t *testing.T) {
	h := newHandler(t)

	rec := doLogin(t, h, `{"email":"dev@devday.io","password":"wrong"}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginHandler_BadPayload(t *testing.T) {
	h := newHandler(t)

	for name, body := range map[string]string{
		"broken json":   `{"email":`,
		"missing email": `{"password":"qwerty123"}`,
		"not an email":  `{"email":"nope","password":"qwerty123"}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := doLogin(t, h, body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
