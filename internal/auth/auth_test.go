package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	jwtlib "github.com/keeeeeey/DevDay/internal/lib/jwt"
	"github.com/keeeeeey/DevDay/internal/models"
	"github.com/keeeeeey/DevDay/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

type fakeStore struct {
	users      map[int64]models.User
	emailAuths map[int64]models.EmailAuth
	nextUserID int64
	nextAuthID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      make(map[int64]models.User),
		emailAuths: make(map[int64]models.EmailAuth),
		nextUserID: 1,
		nextAuthID: 1,
	}
}

func (s *fakeStore) SaveUser(_ context.Context, email string, passHash []byte, name, nickname string) (int64, error) {
	for _, u := range s.users {
		if u.Email == email {
			return 0, storage.ErrUserExists
		}
	}

	id := s.nextUserID
	s.nextUserID++
	s.users[id] = models.User{ID: id, Email: email, PassHash: passHash, Name: name, Nickname: nickname}

	return id, nil
}

func (s *fakeStore) UpdatePassword(_ context.Context, userID int64, passHash []byte) error {
	u, ok := s.users[userID]
	if !ok {
		return storage.ErrUserNotFound
	}

	u.PassHash = passHash
	s.users[userID] = u

	return nil
}

func (s *fakeStore) User(_ context.Context, email string) (models.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}

	return models.User{}, storage.ErrUserNotFound
}

func (s *fakeStore) UserByID(_ context.Context, id int64) (models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}

	return u, nil
}

func (s *fakeStore) UserByNameAndNickname(_ context.Context, name, nickname string) (models.User, error) {
	for _, u := range s.users {
		if u.Name == name && u.Nickname == nickname {
			return u, nil
		}
	}

	return models.User{}, storage.ErrUserNotFound
}

func (s *fakeStore) UserByNameNicknameEmail(_ context.Context, name, nickname, email string) (models.User, error) {
	for _, u := range s.users {
		if u.Name == name && u.Nickname == nickname && u.Email == email {
			return u, nil
		}
	}

	return models.User{}, storage.ErrUserNotFound
}

func (s *fakeStore) SaveEmailAuth(_ context.Context, email, authToken string, expireDate time.Time) (int64, error) {
	id := s.nextAuthID
	s.nextAuthID++
	s.emailAuths[id] = models.EmailAuth{ID: id, Email: email, AuthToken: authToken, ExpireDate: expireDate}

	return id, nil
}

func (s *fakeStore) EmailAuth(_ context.Context, id int64) (models.EmailAuth, error) {
	ea, ok := s.emailAuths[id]
	if !ok {
		return models.EmailAuth{}, storage.ErrEmailAuthNotFound
	}

	return ea, nil
}

func (s *fakeStore) MarkEmailAuthChecked(_ context.Context, id int64) error {
	ea, ok := s.emailAuths[id]
	if !ok {
		return storage.ErrEmailAuthNotFound
	}

	ea.IsChecked = true
	s.emailAuths[id] = ea

	return nil
}

type fakeSessions struct {
	tokens map[int64]string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{tokens: make(map[int64]string)}
}

func (s *fakeSessions) SetRefreshToken(_ context.Context, userID int64, token string, _ time.Duration) error {
	s.tokens[userID] = token
	return nil
}

func (s *fakeSessions) RefreshToken(_ context.Context, userID int64) (string, error) {
	token, ok := s.tokens[userID]
	if !ok {
		return "", storage.ErrRefreshTokenNotFound
	}

	return token, nil
}

type fakeMail struct {
	sent []models.EmailMessage
}

func (m *fakeMail) SendMessage(_ context.Context, msg models.EmailMessage) error {
	m.sent = append(m.sent, msg)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testEnv struct {
	auth     *Auth
	store    *fakeStore
	sessions *fakeSessions
	mail     *fakeMail
}

func newTestEnv(t *testing.T, accessTTL time.Duration) *testEnv {
	t.Helper()

	store := newFakeStore()
	sessions := newFakeSessions()
	mail := &fakeMail{}

	a := New(
		discardLogger(),
		store, store, store,
		sessions, mail,
		testSecret,
		accessTTL, time.Hour, 10*time.Minute,
	)

	return &testEnv{auth: a, store: store, sessions: sessions, mail: mail}
}

func (e *testEnv) addUser(t *testing.T, email, password string) int64 {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	id, err := e.store.SaveUser(context.Background(), email, hash, "name", "nick")
	require.NoError(t, err)

	return id
}

func expiredAccessToken(t *testing.T, userID int64) string {
	t.Helper()

	token, err := jwtlib.NewToken(userID, testSecret, -time.Minute)
	require.NoError(t, err)

	return token
}

func validToken(t *testing.T, userID int64) string {
	t.Helper()

	token, err := jwtlib.NewToken(userID, testSecret, time.Hour)
	require.NoError(t, err)

	return token
}

func TestRefresh_MissingTokens(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	ctx := context.Background()

	_, err := env.auth.Refresh(ctx, "", validToken(t, 1))
	assert.ErrorIs(t, err, ErrAccessDenied)

	_, err = env.auth.Refresh(ctx, expiredAccessToken(t, 1), "")
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestRefresh_MalformedToken(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	_, err := env.auth.Refresh(context.Background(), "not-a-token", validToken(t, 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, jwtlib.ErrInvalidToken)
	assert.NotErrorIs(t, err, ErrAccessDenied)
}

func TestRefresh_SubjectMismatch(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	refresh := validToken(t, 2)
	env.sessions.tokens[2] = refresh

	_, err := env.auth.Refresh(context.Background(), expiredAccessToken(t, 1), refresh)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestRefresh_ExpiredRefreshToken(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	expiredRefresh, err := jwtlib.NewToken(1, testSecret, -time.Minute)
	require.NoError(t, err)
	env.sessions.tokens[1] = expiredRefresh

	_, err = env.auth.Refresh(context.Background(), expiredAccessToken(t, 1), expiredRefresh)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestRefresh_NotCachedToken(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	// Токен подписан верно и не истек, но слот в кеше пуст.
	_, err := env.auth.Refresh(context.Background(), expiredAccessToken(t, 1), validToken(t, 1))
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestRefresh_SupersededToken(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	old := validToken(t, 1)
	env.sessions.tokens[1] = validToken(t, 1) // слот уже перезаписан другим токеном

	_, err := env.auth.Refresh(context.Background(), expiredAccessToken(t, 1), old)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestRefresh_AccessTokenStillValid(t *testing.T) {
	env := newTestEnv(t, time.Minute)

	refresh := validToken(t, 1)
	env.sessions.tokens[1] = refresh

	// Живой access токен вместе с запросом ротации трактуется как компрометация,
	// даже при полностью валидном refresh токене.
	_, err := env.auth.Refresh(context.Background(), validToken(t, 1), refresh)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestRefresh_RotatesSlot(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	ctx := context.Background()

	oldRefresh := validToken(t, 1)
	env.sessions.tokens[1] = oldRefresh

	pair, err := env.auth.Refresh(ctx, expiredAccessToken(t, 1), oldRefresh)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEqual(t, oldRefresh, pair.RefreshToken)
	assert.Equal(t, pair.RefreshToken, env.sessions.tokens[1])

	// Старый refresh токен вытеснен из слота и больше не принимается.
	_, err = env.auth.Refresh(ctx, expiredAccessToken(t, 1), oldRefresh)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	ctx := context.Background()

	uid := env.addUser(t, "a@x.com", "secret")

	t.Run("unknown email", func(t *testing.T) {
		_, err := env.auth.Login(ctx, "b@x.com", "secret")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := env.auth.Login(ctx, "a@x.com", "wrong")
		assert.ErrorIs(t, err, ErrPasswordMismatch)
	})

	t.Run("success stores refresh token", func(t *testing.T) {
		pair, err := env.auth.Login(ctx, "a@x.com", "secret")
		require.NoError(t, err)
		assert.Equal(t, pair.RefreshToken, env.sessions.tokens[uid])
	})
}

func TestLoginThenRefresh(t *testing.T) {
	// Access TTL отрицательный: выданный access токен сразу просрочен,
	// как у легитимного клиента к моменту ротации.
	env := newTestEnv(t, -time.Second)
	ctx := context.Background()

	env.addUser(t, "a@x.com", "secret")

	pair, err := env.auth.Login(ctx, "a@x.com", "secret")
	require.NoError(t, err)

	newPair, err := env.auth.Refresh(ctx, pair.AccessToken, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, newPair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, newPair.AccessToken)
}

func TestEmailCheck(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	ctx := context.Background()

	t.Run("existing user is rejected without a record", func(t *testing.T) {
		env.addUser(t, "taken@x.com", "secret")

		_, err := env.auth.EmailCheck(ctx, "taken@x.com")
		assert.ErrorIs(t, err, ErrUserExists)
		assert.Empty(t, env.store.emailAuths)
		assert.Empty(t, env.mail.sent)
	})

	t.Run("new email gets a record and a letter", func(t *testing.T) {
		id, err := env.auth.EmailCheck(ctx, "new@x.com")
		require.NoError(t, err)

		ea := env.store.emailAuths[id]
		assert.Equal(t, "new@x.com", ea.Email)
		assert.NotEmpty(t, ea.AuthToken)
		assert.False(t, ea.IsChecked)
		assert.True(t, ea.ExpireDate.After(time.Now()))

		require.Len(t, env.mail.sent, 1)
		assert.Equal(t, "new@x.com", env.mail.sent[0].Email)
		assert.Equal(t, ea.AuthToken, env.mail.sent[0].Body)
	})
}

func TestConfirmEmail(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		err := env.auth.ConfirmEmail(ctx, 99, "code")
		assert.ErrorIs(t, err, ErrEmailAuthNotFound)
	})

	t.Run("expired wins over correct code", func(t *testing.T) {
		id, err := env.store.SaveEmailAuth(ctx, "a@x.com", "code", time.Now().Add(-time.Minute))
		require.NoError(t, err)

		err = env.auth.ConfirmEmail(ctx, id, "code")
		assert.ErrorIs(t, err, ErrEmailAuthTimeout)
	})

	t.Run("code mismatch", func(t *testing.T) {
		id, err := env.store.SaveEmailAuth(ctx, "a@x.com", "code", time.Now().Add(time.Minute))
		require.NoError(t, err)

		err = env.auth.ConfirmEmail(ctx, id, "wrong")
		assert.ErrorIs(t, err, ErrCodeMismatch)
	})

	t.Run("success marks checked", func(t *testing.T) {
		id, err := env.store.SaveEmailAuth(ctx, "a@x.com", "code", time.Now().Add(time.Minute))
		require.NoError(t, err)

		require.NoError(t, env.auth.ConfirmEmail(ctx, id, "code"))
		assert.True(t, env.store.emailAuths[id].IsChecked)
	})
}

func TestJoin(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	ctx := context.Background()

	t.Run("unchecked email auth is rejected", func(t *testing.T) {
		id, err := env.store.SaveEmailAuth(ctx, "a@x.com", "code", time.Now().Add(time.Minute))
		require.NoError(t, err)

		_, err = env.auth.Join(ctx, id, "secret", "name", "nick")
		assert.ErrorIs(t, err, ErrEmailNotChecked)
	})

	t.Run("checked email auth creates the user", func(t *testing.T) {
		id, err := env.store.SaveEmailAuth(ctx, "b@x.com", "code", time.Now().Add(time.Minute))
		require.NoError(t, err)
		require.NoError(t, env.store.MarkEmailAuthChecked(ctx, id))

		uid, err := env.auth.Join(ctx, id, "secret", "name", "nick")
		require.NoError(t, err)
		assert.Equal(t, "b@x.com", env.store.users[uid].Email)
	})
}

func TestFindPw(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	ctx := context.Background()

	uid := env.addUser(t, "a@x.com", "secret")

	t.Run("wrong identity", func(t *testing.T) {
		err := env.auth.FindPw(ctx, "other", "nick", "a@x.com")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("issues temp password", func(t *testing.T) {
		require.NoError(t, env.auth.FindPw(ctx, "name", "nick", "a@x.com"))

		require.Len(t, env.mail.sent, 1)
		tempPw := env.mail.sent[0].Body

		// Старый пароль больше не подходит, временный подходит.
		err := bcrypt.CompareHashAndPassword(env.store.users[uid].PassHash, []byte("secret"))
		assert.Error(t, err)
		err = bcrypt.CompareHashAndPassword(env.store.users[uid].PassHash, []byte(tempPw))
		assert.NoError(t, err)
	})
}

// Полный путь регистрации из примера: emailCheck → неверный код → верный код →
// join → login → refresh.
func TestRegistrationScenario(t *testing.T) {
	env := newTestEnv(t, -time.Second)
	ctx := context.Background()

	id, err := env.auth.EmailCheck(ctx, "a@x.com")
	require.NoError(t, err)

	code := env.store.emailAuths[id].AuthToken

	err = env.auth.ConfirmEmail(ctx, id, "wrong")
	assert.ErrorIs(t, err, ErrCodeMismatch)

	require.NoError(t, env.auth.ConfirmEmail(ctx, id, code))

	_, err = env.auth.Join(ctx, id, "secret", "name", "nick")
	require.NoError(t, err)

	pair, err := env.auth.Login(ctx, "a@x.com", "secret")
	require.NoError(t, err)

	newPair, err := env.auth.Refresh(ctx, pair.AccessToken, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair, newPair)
}
