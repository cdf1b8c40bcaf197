package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/keeeeeey/DevDay/internal/models"
	"github.com/keeeeeey/DevDay/internal/storage"

	"github.com/jackc/pgx/v5"
)

func (r *PostgresRepo) SaveRoom(ctx context.Context, room models.ChallengeRoom) (int64, error) {
	const op = "storage.postgres.SaveRoom"

	query := `
		INSERT INTO challenge_rooms
			(host_id, title, category, description, entry_fee, penalty, capacity, start_date, end_date, image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id;
	`

	var id int64

	err := r.pool.QueryRow(ctx, query,
		room.HostID,
		room.Title,
		room.Category,
		room.Description,
		room.EntryFee,
		room.Penalty,
		room.Capacity,
		room.StartDate,
		room.EndDate,
		room.ImageURL,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (r *PostgresRepo) Room(ctx context.Context, id int64) (models.ChallengeRoom, error) {
	query := `
		SELECT id, host_id, title, category, description, entry_fee, penalty, capacity, start_date, end_date, image_url
		FROM challenge_rooms
		WHERE id = $1;
	`

	row := r.pool.QueryRow(ctx, query, id)

	var room models.ChallengeRoom
	err := row.Scan(
		&room.ID,
		&room.HostID,
		&room.Title,
		&room.Category,
		&room.Description,
		&room.EntryFee,
		&room.Penalty,
		&room.Capacity,
		&room.StartDate,
		&room.EndDate,
		&room.ImageURL,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ChallengeRoom{}, storage.ErrRoomNotFound
		}

		return models.ChallengeRoom{}, err
	}

	return room, nil
}

func (r *PostgresRepo) Rooms(ctx context.Context, ids []int64) ([]models.ChallengeRoom, error) {
	const op = "storage.postgres.Rooms"

	query := `
		SELECT id, host_id, title, category, description, entry_fee, penalty, capacity, start_date, end_date, image_url
		FROM challenge_rooms
		WHERE id = ANY($1);
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	return scanRooms(rows)
}

func (r *PostgresRepo) SimpleRooms(ctx context.Context, category, search string, size int, offset int64) ([]models.ChallengeRoom, error) {
	const op = "storage.postgres.SimpleRooms"

	query := `
		SELECT id, host_id, title, category, description, entry_fee, penalty, capacity, start_date, end_date, image_url
		FROM challenge_rooms
		WHERE ($1 = '' OR category = $1)
		  AND ($2 = '' OR title ILIKE '%' || $2 || '%')
		ORDER BY id DESC
		LIMIT $3 OFFSET $4;
	`

	rows, err := r.pool.Query(ctx, query, category, search, size, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	return scanRooms(rows)
}

func scanRooms(rows pgx.Rows) ([]models.ChallengeRoom, error) {
	var rooms []models.ChallengeRoom

	for rows.Next() {
		var room models.ChallengeRoom

		err := rows.Scan(
			&room.ID,
			&room.HostID,
			&room.Title,
			&room.Category,
			&room.Description,
			&room.EntryFee,
			&room.Penalty,
			&room.Capacity,
			&room.StartDate,
			&room.EndDate,
			&room.ImageURL,
		)
		if err != nil {
			return nil, err
		}

		rooms = append(rooms, room)
	}

	return rooms, rows.Err()
}

func (r *PostgresRepo) SaveMember(ctx context.Context, m models.UserChallenge) (int64, error) {
	const op = "storage.postgres.SaveMember"

	query := `
		INSERT INTO user_challenges
			(user_id, challenge_room_id, status, diligence, payment, github_id, baekjoon_id, commit_count, solved_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id;
	`

	var id int64

	err := r.pool.QueryRow(ctx, query,
		m.UserID,
		m.ChallengeRoomID,
		m.Status,
		m.Diligence,
		m.Payment,
		m.GithubID,
		m.BaekjoonID,
		m.CommitCount,
		m.SolvedCount,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, storage.ErrMemberExists
		}

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (r *PostgresRepo) Member(ctx context.Context, userID, roomID int64) (models.UserChallenge, error) {
	query := `
		SELECT id, user_id, challenge_room_id, status, diligence, payment, github_id, baekjoon_id, commit_count, solved_count
		FROM user_challenges
		WHERE user_id = $1 AND challenge_room_id = $2;
	`

	row := r.pool.QueryRow(ctx, query, userID, roomID)

	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.UserChallenge{}, storage.ErrMemberNotFound
		}

		return models.UserChallenge{}, err
	}

	return m, nil
}

func (r *PostgresRepo) MembersByRoom(ctx context.Context, roomID int64) ([]models.UserChallenge, error) {
	const op = "storage.postgres.MembersByRoom"

	query := `
		SELECT id, user_id, challenge_room_id, status, diligence, payment, github_id, baekjoon_id, commit_count, solved_count
		FROM user_challenges
		WHERE challenge_room_id = $1;
	`

	rows, err := r.pool.Query(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	return scanMembers(rows)
}

func (r *PostgresRepo) MembersByUser(ctx context.Context, userID int64, status string) ([]models.UserChallenge, error) {
	const op = "storage.postgres.MembersByUser"

	query := `
		SELECT id, user_id, challenge_room_id, status, diligence, payment, github_id, baekjoon_id, commit_count, solved_count
		FROM user_challenges
		WHERE user_id = $1 AND ($2 = '' OR status = $2);
	`

	rows, err := r.pool.Query(ctx, query, userID, status)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	return scanMembers(rows)
}

func scanMember(row pgx.Row) (models.UserChallenge, error) {
	var m models.UserChallenge

	err := row.Scan(
		&m.ID,
		&m.UserID,
		&m.ChallengeRoomID,
		&m.Status,
		&m.Diligence,
		&m.Payment,
		&m.GithubID,
		&m.BaekjoonID,
		&m.CommitCount,
		&m.SolvedCount,
	)

	return m, err
}

func scanMembers(rows pgx.Rows) ([]models.UserChallenge, error) {
	var members []models.UserChallenge

	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}

		members = append(members, m)
	}

	return members, rows.Err()
}

func (r *PostgresRepo) MemberCount(ctx context.Context, roomID int64) (int, error) {
	query := `SELECT COUNT(*) FROM user_challenges WHERE challenge_room_id = $1`

	var count int

	err := r.pool.QueryRow(ctx, query, roomID).Scan(&count)

	return count, err
}

func (r *PostgresRepo) UpdateMemberCounts(ctx context.Context, memberID int64, commitCount, solvedCount int) error {
	query := `UPDATE user_challenges SET commit_count = $1, solved_count = $2 WHERE id = $3`

	_, err := r.pool.Exec(ctx, query, commitCount, solvedCount, memberID)

	return err
}

func (r *PostgresRepo) UpdateMemberSettlement(ctx context.Context, memberID int64, payment int64, diligence int) error {
	query := `UPDATE user_challenges SET payment = $1, diligence = $2 WHERE id = $3`

	_, err := r.pool.Exec(ctx, query, payment, diligence, memberID)

	return err
}

func (r *PostgresRepo) UpdateMemberStatus(ctx context.Context, memberID int64, status string) error {
	query := `UPDATE user_challenges SET status = $1 WHERE id = $2`

	_, err := r.pool.Exec(ctx, query, status, memberID)

	return err
}

func (r *PostgresRepo) SaveRecord(ctx context.Context, rec models.ChallengeRecord) (int64, error) {
	const op = "storage.postgres.SaveRecord"

	query := `
		INSERT INTO challenge_records
			(user_challenge_id, category, success, report_count, photo_url, content, created_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id;
	`

	var id int64

	err := r.pool.QueryRow(ctx, query,
		rec.UserChallengeID,
		rec.Category,
		rec.Success,
		rec.ReportCount,
		rec.PhotoURL,
		rec.Content,
		rec.CreatedDate,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (r *PostgresRepo) Record(ctx context.Context, id int64) (models.ChallengeRecord, error) {
	query := `
		SELECT id, user_challenge_id, category, success, report_count, photo_url, content, created_date
		FROM challenge_records
		WHERE id = $1;
	`

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ChallengeRecord{}, storage.ErrRecordNotFound
		}

		return models.ChallengeRecord{}, err
	}

	return rec, nil
}

func (r *PostgresRepo) RecordByMemberAndDate(ctx context.Context, memberID int64, date string) (models.ChallengeRecord, error) {
	query := `
		SELECT id, user_challenge_id, category, success, report_count, photo_url, content, created_date
		FROM challenge_records
		WHERE user_challenge_id = $1 AND created_date = $2;
	`

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, memberID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ChallengeRecord{}, storage.ErrRecordNotFound
		}

		return models.ChallengeRecord{}, err
	}

	return rec, nil
}

func (r *PostgresRepo) RecordsByMember(ctx context.Context, memberID int64) ([]models.ChallengeRecord, error) {
	const op = "storage.postgres.RecordsByMember"

	query := `
		SELECT id, user_challenge_id, category, success, report_count, photo_url, content, created_date
		FROM challenge_records
		WHERE user_challenge_id = $1
		ORDER BY created_date DESC;
	`

	rows, err := r.pool.Query(ctx, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (r *PostgresRepo) RecordsByRoomAndDate(ctx context.Context, roomID int64, date string) ([]models.ChallengeRecord, error) {
	const op = "storage.postgres.RecordsByRoomAndDate"

	query := `
		SELECT cr.id, cr.user_challenge_id, cr.category, cr.success, cr.report_count, cr.photo_url, cr.content, cr.created_date
		FROM challenge_records cr
		JOIN user_challenges uc ON uc.id = cr.user_challenge_id
		WHERE uc.challenge_room_id = $1 AND cr.created_date = $2;
	`

	rows, err := r.pool.Query(ctx, query, roomID, date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecord(row pgx.Row) (models.ChallengeRecord, error) {
	var rec models.ChallengeRecord

	err := row.Scan(
		&rec.ID,
		&rec.UserChallengeID,
		&rec.Category,
		&rec.Success,
		&rec.ReportCount,
		&rec.PhotoURL,
		&rec.Content,
		&rec.CreatedDate,
	)

	return rec, err
}

func scanRecords(rows pgx.Rows) ([]models.ChallengeRecord, error) {
	var recs []models.ChallengeRecord

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}

		recs = append(recs, rec)
	}

	return recs, rows.Err()
}

func (r *PostgresRepo) MarkRecordSuccess(ctx context.Context, recordID int64) error {
	query := `UPDATE challenge_records SET success = TRUE WHERE id = $1`

	_, err := r.pool.Exec(ctx, query, recordID)

	return err
}

func (r *PostgresRepo) IncrementReportCount(ctx context.Context, recordID int64) error {
	query := `UPDATE challenge_records SET report_count = report_count + 1 WHERE id = $1`

	_, err := r.pool.Exec(ctx, query, recordID)

	return err
}

// * SuccessCounts возвращает число успешных записей каждого участника комнаты.
func (r *PostgresRepo) SuccessCounts(ctx context.Context, roomID int64) (map[int64]int, error) {
	const op = "storage.postgres.SuccessCounts"

	query := `
		SELECT uc.user_id, COUNT(*) FILTER (WHERE cr.success)
		FROM user_challenges uc
		LEFT JOIN challenge_records cr ON cr.user_challenge_id = uc.id
		WHERE uc.challenge_room_id = $1
		GROUP BY uc.user_id;
	`

	rows, err := r.pool.Query(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	counts := make(map[int64]int)

	for rows.Next() {
		var (
			userID int64
			count  int
		)

		if err := rows.Scan(&userID, &count); err != nil {
			return nil, err
		}

		counts[userID] = count
	}

	return counts, rows.Err()
}

// ActiveRooms возвращает комнаты, идущие в указанную дату.
func (r *PostgresRepo) ActiveRooms(ctx context.Context, date string) ([]models.ChallengeRoom, error) {
	const op = "storage.postgres.ActiveRooms"

	query := `
		SELECT id, host_id, title, category, description, entry_fee, penalty, capacity, start_date, end_date, image_url
		FROM challenge_rooms
		WHERE start_date::date <= $1::date AND end_date::date >= $1::date;
	`

	rows, err := r.pool.Query(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	return scanRooms(rows)
}
