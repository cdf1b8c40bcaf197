package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/keeeeeey/DevDay/internal/config"
	"github.com/keeeeeey/DevDay/internal/models"
	"github.com/keeeeeey/DevDay/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// * isUniqueViolation распознает нарушение уникального ограничения (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	dsn := dsn(cfg)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return &PostgresRepo{pool: pool}, nil
}

func (r *PostgresRepo) SaveUser(ctx context.Context, email string, passHash []byte, name, nickname string) (int64, error) {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users (email, password_hash, name, nickname)
		VALUES ($1, $2, $3, $4)
		RETURNING id;
	`

	var id int64

	err := r.pool.QueryRow(ctx, query, email, string(passHash), name, nickname).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, storage.ErrUserExists
		}

		return 0, fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return id, nil
}

func (r *PostgresRepo) User(ctx context.Context, email string) (models.User, error) {
	query := `
		SELECT id, email, password_hash, name, nickname
		FROM users
		WHERE email = $1;
	`

	return r.scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *PostgresRepo) UserByID(ctx context.Context, id int64) (models.User, error) {
	query := `
		SELECT id, email, password_hash, name, nickname
		FROM users
		WHERE id = $1;
	`

	return r.scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *PostgresRepo) UserByNameAndNickname(ctx context.Context, name, nickname string) (models.User, error) {
	query := `
		SELECT id, email, password_hash, name, nickname
		FROM users
		WHERE name = $1 AND nickname = $2;
	`

	return r.scanUser(r.pool.QueryRow(ctx, query, name, nickname))
}

func (r *PostgresRepo) UserByNameNicknameEmail(ctx context.Context, name, nickname, email string) (models.User, error) {
	query := `
		SELECT id, email, password_hash, name, nickname
		FROM users
		WHERE name = $1 AND nickname = $2 AND email = $3;
	`

	return r.scanUser(r.pool.QueryRow(ctx, query, name, nickname, email))
}

func (r *PostgresRepo) scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PassHash,
		&u.Name,
		&u.Nickname,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, err
	}

	return u, nil
}

// * Nicknames возвращает никнеймы пользователей по их id.
func (r *PostgresRepo) Nicknames(ctx context.Context, userIDs []int64) (map[int64]string, error) {
	const op = "storage.postgres.Nicknames"

	query := `SELECT id, nickname FROM users WHERE id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, userIDs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	nicknames := make(map[int64]string, len(userIDs))

	for rows.Next() {
		var (
			id       int64
			nickname string
		)

		if err := rows.Scan(&id, &nickname); err != nil {
			return nil, err
		}

		nicknames[id] = nickname
	}

	return nicknames, rows.Err()
}

func (r *PostgresRepo) UpdatePassword(ctx context.Context, userID int64, passHash []byte) error {
	query := `UPDATE users SET password_hash = $1 WHERE id = $2`

	_, err := r.pool.Exec(ctx, query, string(passHash), userID)

	return err
}

func (r *PostgresRepo) SaveEmailAuth(ctx context.Context, email, authToken string, expireDate time.Time) (int64, error) {
	const op = "storage.postgres.SaveEmailAuth"

	query := `
		INSERT INTO email_auths (email, auth_token, is_checked, expire_date)
		VALUES ($1, $2, FALSE, $3)
		RETURNING id;
	`

	var id int64

	err := r.pool.QueryRow(ctx, query, email, authToken, expireDate).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (r *PostgresRepo) EmailAuth(ctx context.Context, id int64) (models.EmailAuth, error) {
	query := `
		SELECT id, email, auth_token, is_checked, expire_date
		FROM email_auths
		WHERE id = $1;
	`

	row := r.pool.QueryRow(ctx, query, id)

	var ea models.EmailAuth
	err := row.Scan(
		&ea.ID,
		&ea.Email,
		&ea.AuthToken,
		&ea.IsChecked,
		&ea.ExpireDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.EmailAuth{}, storage.ErrEmailAuthNotFound
		}

		return models.EmailAuth{}, err
	}

	return ea, nil
}

func (r *PostgresRepo) MarkEmailAuthChecked(ctx context.Context, id int64) error {
	query := `UPDATE email_auths SET is_checked = TRUE WHERE id = $1`

	_, err := r.pool.Exec(ctx, query, id)

	return err
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

// * dsn формирует конфигурацию базы данных.
func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
