package jwt

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// NewToken выпускает подписанный токен с субъектом userID и сроком жизни ttl.
// Access и refresh токены отличаются только TTL.
func NewToken(userID int64, secret string, ttl time.Duration) (string, error) {
	const op = "lib.jwt.NewToken"

	// jti делает каждый выпуск уникальным: без него две пары, выпущенные в одну
	// секунду, совпали бы байт в байт и ротация слота теряла бы смысл.
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ID:        uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// Subject извлекает субъект (user id) из токена, проверяя только подпись.
// Истекший токен здесь не является ошибкой: при ротации пары субъект
// достается из уже просроченного access токена.
func Subject(tokenStr, secret string) (int64, error) {
	const op = "lib.jwt.Subject"

	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(tokenStr, claims, keyFunc(secret),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %w", op, ErrInvalidToken, err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w: bad subject %q", op, ErrInvalidToken, claims.Subject)
	}

	return userID, nil
}

// Validate проверяет подпись и срок действия токена целиком.
func Validate(tokenStr, secret string) error {
	const op = "lib.jwt.Validate"

	token, err := jwt.Parse(tokenStr, keyFunc(secret),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !token.Valid {
		return fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return nil
}

func keyFunc(secret string) jwt.Keyfunc {
	return func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}
}
