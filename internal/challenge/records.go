package challenge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sl "github.com/keeeeeey/DevDay/internal/lib/logger"
	"github.com/keeeeeey/DevDay/internal/models"
	"github.com/keeeeeey/DevDay/internal/storage"

	"github.com/google/uuid"
)

// * CreatePhotoRecord сохраняет фотоподтверждение за сегодняшний день.
func (c *Challenge) CreatePhotoRecord(ctx context.Context, userID, roomID int64, photo []byte, contentType, content string) (int64, error) {
	const op = "challenge.CreatePhotoRecord"

	log := c.log.With(slog.String("op", op))

	m, err := c.member(ctx, userID, roomID)
	if err != nil {
		return 0, err
	}

	today := time.Now().Format(dateLayout)

	if err := c.ensureNoRecord(ctx, m.ID, today); err != nil {
		return 0, err
	}

	key := fmt.Sprintf("records/%d/%s-%s", roomID, today, uuid.New().String())

	url, err := c.photos.Upload(ctx, key, photo, contentType)
	if err != nil {
		log.Error("failed to upload photo", sl.Err(err))
		return 0, err
	}

	id, err := c.records.SaveRecord(ctx, models.ChallengeRecord{
		UserChallengeID: m.ID,
		Category:        models.CategoryPhoto,
		Success:         true,
		PhotoURL:        url,
		Content:         content,
		CreatedDate:     today,
	})
	if err != nil {
		log.Error("failed to save record", sl.Err(err))
		return 0, err
	}

	log.Info("photo record created", slog.Int64("record_id", id))

	return id, nil
}

// * CreateAlgoRecord сверяет счетчик solved.ac и фиксирует результат дня.
func (c *Challenge) CreateAlgoRecord(ctx context.Context, userID, roomID int64) (int64, error) {
	const op = "challenge.CreateAlgoRecord"

	return c.createCountedRecord(ctx, op, userID, roomID, models.CategoryAlgo)
}

// * CreateCommitRecord сверяет счетчик коммитов и фиксирует результат дня.
func (c *Challenge) CreateCommitRecord(ctx context.Context, userID, roomID int64) (int64, error) {
	const op = "challenge.CreateCommitRecord"

	return c.createCountedRecord(ctx, op, userID, roomID, models.CategoryCommit)
}

// createCountedRecord: общий путь algo/commit подтверждений. Опросить внешний
// счетчик, признать день успешным при приросте, обновить проекцию участника.
func (c *Challenge) createCountedRecord(ctx context.Context, op string, userID, roomID int64, category string) (int64, error) {
	log := c.log.With(slog.String("op", op))

	m, err := c.member(ctx, userID, roomID)
	if err != nil {
		return 0, err
	}

	today := time.Now().Format(dateLayout)

	if err := c.ensureNoRecord(ctx, m.ID, today); err != nil {
		return 0, err
	}

	var (
		current int
		stored  int
	)

	switch category {
	case models.CategoryAlgo:
		current, err = c.problems.SolvedCount(ctx, m.BaekjoonID)
		stored = m.SolvedCount
	case models.CategoryCommit:
		current, err = c.commits.CommitCount(ctx, m.GithubID)
		stored = m.CommitCount
	default:
		return 0, ErrInvalidCategory
	}

	if err != nil {
		log.Error("failed to poll external source", sl.Err(err))
		return 0, err
	}

	delta := current - stored
	success := delta > 0

	commitCount, solvedCount := m.CommitCount, m.SolvedCount
	if category == models.CategoryCommit {
		commitCount = current
	} else {
		solvedCount = current
	}

	if err := c.members.UpdateMemberCounts(ctx, m.ID, commitCount, solvedCount); err != nil {
		log.Error("failed to update member counts", sl.Err(err))
		return 0, err
	}

	id, err := c.records.SaveRecord(ctx, models.ChallengeRecord{
		UserChallengeID: m.ID,
		Category:        category,
		Success:         success,
		Content:         fmt.Sprintf("+%d", delta),
		CreatedDate:     today,
	})
	if err != nil {
		log.Error("failed to save record", sl.Err(err))
		return 0, err
	}

	log.Info("record created",
		slog.Int64("record_id", id),
		slog.String("category", category),
		slog.Bool("success", success),
	)

	return id, nil
}

func (c *Challenge) ensureNoRecord(ctx context.Context, memberID int64, date string) error {
	_, err := c.records.RecordByMemberAndDate(ctx, memberID, date)
	if err == nil {
		return ErrRecordExists
	}
	if !errors.Is(err, storage.ErrRecordNotFound) {
		return err
	}

	return nil
}

// * SelfPhotoRecords возвращает записи участника.
func (c *Challenge) SelfPhotoRecords(ctx context.Context, userID, roomID int64) ([]models.ChallengeRecord, error) {
	m, err := c.member(ctx, userID, roomID)
	if err != nil {
		return nil, err
	}

	return c.records.RecordsByMember(ctx, m.ID)
}

// * SelfRecordByDate возвращает запись участника за конкретный день: чем он
// подтвердил день и засчитан ли тот.
func (c *Challenge) SelfRecordByDate(ctx context.Context, userID, roomID int64, date string) (models.ChallengeRecord, error) {
	m, err := c.member(ctx, userID, roomID)
	if err != nil {
		return models.ChallengeRecord{}, err
	}

	rec, err := c.records.RecordByMemberAndDate(ctx, m.ID, date)
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return models.ChallengeRecord{}, ErrRecordNotFound
		}

		return models.ChallengeRecord{}, err
	}

	return rec, nil
}

// * TeamPhotoRecords возвращает записи всей комнаты за день.
func (c *Challenge) TeamPhotoRecords(ctx context.Context, userID, roomID int64, date string) ([]models.ChallengeRecord, error) {
	if _, err := c.member(ctx, userID, roomID); err != nil {
		return nil, err
	}

	return c.records.RecordsByRoomAndDate(ctx, roomID, date)
}

// * PhotoRecordDetail возвращает одну запись.
func (c *Challenge) PhotoRecordDetail(ctx context.Context, recordID int64) (models.ChallengeRecord, error) {
	rec, err := c.records.Record(ctx, recordID)
	if err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return models.ChallengeRecord{}, ErrRecordNotFound
		}

		return models.ChallengeRecord{}, err
	}

	return rec, nil
}

// * ReportRecord увеличивает счетчик жалоб на запись.
func (c *Challenge) ReportRecord(ctx context.Context, recordID int64) error {
	const op = "challenge.ReportRecord"

	log := c.log.With(slog.String("op", op))

	if _, err := c.records.Record(ctx, recordID); err != nil {
		if errors.Is(err, storage.ErrRecordNotFound) {
			return ErrRecordNotFound
		}

		return err
	}

	if err := c.records.IncrementReportCount(ctx, recordID); err != nil {
		log.Error("failed to report record", sl.Err(err))
		return err
	}

	log.Info("record reported", slog.Int64("record_id", recordID))

	return nil
}
