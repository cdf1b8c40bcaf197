package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	jwtlib "github.com/keeeeeey/DevDay/internal/lib/jwt"
	sl "github.com/keeeeeey/DevDay/internal/lib/logger"
	"github.com/keeeeeey/DevDay/internal/models"
	"github.com/keeeeeey/DevDay/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAccessDenied      = errors.New("access denied")
	ErrUserNotFound      = errors.New("member not found")
	ErrUserExists        = errors.New("member already exists")
	ErrPasswordMismatch  = errors.New("password mismatch")
	ErrEmailAuthNotFound = errors.New("email auth not found")
	ErrEmailAuthTimeout  = errors.New("email auth timeout")
	ErrCodeMismatch      = errors.New("email code mismatch")
	ErrEmailNotChecked   = errors.New("email not verified")
)

type Auth struct {
	log          *slog.Logger
	usrSaver     UserSaver
	usrProvider  UserProvider
	emailAuths   EmailAuthStorage
	sessions     SessionCache
	mail         MailPublisher
	secret       string
	accessTTL    time.Duration
	refreshTTL   time.Duration
	emailAuthTTL time.Duration
}

type UserSaver interface {
	SaveUser(ctx context.Context, email string, passHash []byte, name, nickname string) (int64, error)
	UpdatePassword(ctx context.Context, userID int64, passHash []byte) error
}

type UserProvider interface {
	User(ctx context.Context, email string) (models.User, error)
	UserByID(ctx context.Context, id int64) (models.User, error)
	UserByNameAndNickname(ctx context.Context, name, nickname string) (models.User, error)
	UserByNameNicknameEmail(ctx context.Context, name, nickname, email string) (models.User, error)
}

type EmailAuthStorage interface {
	SaveEmailAuth(ctx context.Context, email, authToken string, expireDate time.Time) (int64, error)
	EmailAuth(ctx context.Context, id int64) (models.EmailAuth, error)
	MarkEmailAuthChecked(ctx context.Context, id int64) error
}

// SessionCache хранит единственный актуальный refresh токен пользователя.
type SessionCache interface {
	SetRefreshToken(ctx context.Context, userID int64, token string, ttl time.Duration) error
	RefreshToken(ctx context.Context, userID int64) (string, error)
}

type MailPublisher interface {
	SendMessage(ctx context.Context, msg models.EmailMessage) error
}

func New(
	log *slog.Logger,
	userSaver UserSaver,
	userProvider UserProvider,
	emailAuths EmailAuthStorage,
	sessions SessionCache,
	mail MailPublisher,
	secret string,
	accessTTL, refreshTTL, emailAuthTTL time.Duration,
) *Auth {
	return &Auth{
		log:          log,
		usrSaver:     userSaver,
		usrProvider:  userProvider,
		emailAuths:   emailAuths,
		sessions:     sessions,
		mail:         mail,
		secret:       secret,
		accessTTL:    accessTTL,
		refreshTTL:   refreshTTL,
		emailAuthTTL: emailAuthTTL,
	}
}

// * Login проверяет учетные данные и возвращает пару токенов.
func (a *Auth) Login(ctx context.Context, email, password string) (models.TokenPair, error) {
	const op = "auth.Login"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.User(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			return models.TokenPair{}, ErrUserNotFound
		}

		log.Error("failed to get user", sl.Err(err))
		return models.TokenPair{}, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		log.Info("invalid credentials", sl.Err(err))
		return models.TokenPair{}, ErrPasswordMismatch
	}

	pair, err := a.issueTokens(ctx, user.ID)
	if err != nil {
		log.Error("failed to issue tokens", sl.Err(err))
		return models.TokenPair{}, err
	}

	log.Info("user logged in successfully", slog.Int64("uid", user.ID))

	return pair, nil
}

// Refresh решает, легитимен ли запрос на ротацию, и выпускает новую пару.
//
// Проверки выполняются строго по порядку с ранним выходом: каждая следующая
// опирается на то, что предыдущие прошли. Порядок менять нельзя.
func (a *Auth) Refresh(ctx context.Context, accessToken, refreshToken string) (models.TokenPair, error) {
	const op = "auth.Refresh"

	log := a.log.With(slog.String("op", op))

	// 1. Оба токена обязаны присутствовать.
	if accessToken == "" || refreshToken == "" {
		log.Warn("access or refresh token missing")
		return models.TokenPair{}, ErrAccessDenied
	}

	// 2. Субъект достается из каждого токена независимо. Срок действия здесь
	// не проверяется: у легитимного клиента access токен уже истек.
	accessUID, err := jwtlib.Subject(accessToken, a.secret)
	if err != nil {
		log.Warn("malformed access token", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	refreshUID, err := jwtlib.Subject(refreshToken, a.secret)
	if err != nil {
		log.Warn("malformed refresh token", sl.Err(err))
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	// 3. Подмена refresh токена между аккаунтами.
	if accessUID != refreshUID {
		log.Warn("token subjects mismatch")
		return models.TokenPair{}, ErrAccessDenied
	}

	// 4. Единственное место, где у refresh токена проверяется срок действия.
	if err := jwtlib.Validate(refreshToken, a.secret); err != nil {
		log.Warn("refresh token is not valid")
		return models.TokenPair{}, ErrAccessDenied
	}

	// 5. Предъявленный токен обязан совпадать с единственным слотом в кеше,
	// иначе это повтор уже вытесненного либо чужого токена.
	cached, err := a.sessions.RefreshToken(ctx, refreshUID)
	if err != nil {
		if errors.Is(err, storage.ErrRefreshTokenNotFound) {
			log.Warn("no cached refresh token for user")
			return models.TokenPair{}, ErrAccessDenied
		}

		log.Error("failed to read session cache", sl.Err(err))
		return models.TokenPair{}, err
	}
	if cached != refreshToken {
		log.Warn("refresh token does not match cached value")
		return models.TokenPair{}, ErrAccessDenied
	}

	// 6. Живой access токен при запросе ротации расценивается как компрометация:
	// легитимный клиент обновляется только после истечения access токена.
	if err := jwtlib.Validate(accessToken, a.secret); err == nil {
		log.Warn("access token is still valid, treating as compromise")
		return models.TokenPair{}, ErrAccessDenied
	}

	pair, err := a.issueTokens(ctx, refreshUID)
	if err != nil {
		log.Error("failed to issue tokens", sl.Err(err))
		return models.TokenPair{}, err
	}

	log.Info("refresh successful", slog.Int64("uid", refreshUID))

	return pair, nil
}

// * issueTokens выпускает пару и перезаписывает слот refresh токена в кеше.
func (a *Auth) issueTokens(ctx context.Context, userID int64) (models.TokenPair, error) {
	const op = "auth.issueTokens"

	accessToken, err := jwtlib.NewToken(userID, a.secret, a.accessTTL)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	refreshToken, err := jwtlib.NewToken(userID, a.secret, a.refreshTTL)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.sessions.SetRefreshToken(ctx, userID, refreshToken, a.refreshTTL); err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// * EmailCheck создает запись подтверждения почты и отправляет код письмом.
// Возвращает id записи как корреляционный идентификатор для ConfirmEmail.
func (a *Auth) EmailCheck(ctx context.Context, email string) (int64, error) {
	const op = "auth.EmailCheck"

	log := a.log.With(slog.String("op", op))

	_, err := a.usrProvider.User(ctx, email)
	if err == nil {
		log.Warn("email already taken")
		return 0, ErrUserExists
	}
	if !errors.Is(err, storage.ErrUserNotFound) {
		log.Error("failed to check email", sl.Err(err))
		return 0, err
	}

	authToken := uuid.New().String()
	expireDate := time.Now().Add(a.emailAuthTTL)

	id, err := a.emailAuths.SaveEmailAuth(ctx, email, authToken, expireDate)
	if err != nil {
		log.Error("failed to save email auth", sl.Err(err))
		return 0, err
	}

	msg := models.EmailMessage{
		Email:   email,
		Subject: "Email verification code",
		Body:    authToken,
	}

	if err := a.mail.SendMessage(ctx, msg); err != nil {
		log.Error("failed to send verification code", sl.Err(err))
	}

	log.Info("email auth created", slog.Int64("id", id))

	return id, nil
}

// * ConfirmEmail сверяет код и помечает запись подтвержденной.
// Истечение срока проверяется раньше равенства кода.
func (a *Auth) ConfirmEmail(ctx context.Context, id int64, authToken string) error {
	const op = "auth.ConfirmEmail"

	log := a.log.With(slog.String("op", op))

	ea, err := a.emailAuths.EmailAuth(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrEmailAuthNotFound) {
			log.Warn("email auth not found")
			return ErrEmailAuthNotFound
		}

		log.Error("failed to get email auth", sl.Err(err))
		return err
	}

	if ea.IsExpired(time.Now()) {
		log.Warn("email auth expired")
		return ErrEmailAuthTimeout
	}

	if authToken != ea.AuthToken {
		log.Warn("auth code mismatch")
		return ErrCodeMismatch
	}

	if err := a.emailAuths.MarkEmailAuthChecked(ctx, id); err != nil {
		log.Error("failed to mark email auth checked", sl.Err(err))
		return err
	}

	log.Info("email confirmed", slog.Int64("id", id))

	return nil
}

// * Join создает пользователя после подтверждения почты.
func (a *Auth) Join(ctx context.Context, emailAuthID int64, password, name, nickname string) (int64, error) {
	const op = "auth.Join"

	log := a.log.With(slog.String("op", op))

	ea, err := a.emailAuths.EmailAuth(ctx, emailAuthID)
	if err != nil {
		if errors.Is(err, storage.ErrEmailAuthNotFound) {
			log.Warn("email auth not found")
			return 0, ErrEmailAuthNotFound
		}

		log.Error("failed to get email auth", sl.Err(err))
		return 0, err
	}

	if !ea.IsChecked {
		log.Warn("email not verified")
		return 0, ErrEmailNotChecked
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	id, err := a.usrSaver.SaveUser(ctx, ea.Email, passHash, name, nickname)
	if err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			log.Warn("user already exists")
			return 0, ErrUserExists
		}

		log.Error("failed to save user", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered", slog.Int64("uid", id))

	return id, nil
}

// * FindID возвращает почту пользователя по имени и никнейму.
func (a *Auth) FindID(ctx context.Context, name, nickname string) (string, error) {
	const op = "auth.FindID"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.UserByNameAndNickname(ctx, name, nickname)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			return "", ErrUserNotFound
		}

		log.Error("failed to get user", sl.Err(err))
		return "", err
	}

	return user.Email, nil
}

// * FindPw выдает временный пароль и отправляет его письмом.
func (a *Auth) FindPw(ctx context.Context, name, nickname, email string) error {
	const op = "auth.FindPw"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.UserByNameNicknameEmail(ctx, name, nickname, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			return ErrUserNotFound
		}

		log.Error("failed to get user", sl.Err(err))
		return err
	}

	tempPw := uuid.New().String()

	passHash, err := bcrypt.GenerateFromPassword([]byte(tempPw), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to hash temp password", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.usrSaver.UpdatePassword(ctx, user.ID, passHash); err != nil {
		log.Error("failed to update password", sl.Err(err))
		return err
	}

	msg := models.EmailMessage{
		Email:   user.Email,
		Subject: "Temporary password",
		Body:    tempPw,
	}

	if err := a.mail.SendMessage(ctx, msg); err != nil {
		log.Error("failed to send temp password", sl.Err(err))
	}

	log.Info("temporary password issued", slog.Int64("uid", user.ID))

	return nil
}

// * UserInfo возвращает профиль пользователя.
func (a *Auth) UserInfo(ctx context.Context, userID int64) (models.User, error) {
	const op = "auth.UserInfo"

	log := a.log.With(slog.String("op", op))

	user, err := a.usrProvider.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found")
			return models.User{}, ErrUserNotFound
		}

		log.Error("failed to get user", sl.Err(err))
		return models.User{}, err
	}

	return user, nil
}
