package challenge

import (
	"context"
	"errors"
	"log/slog"
	"time"

	sl "github.com/keeeeeey/DevDay/internal/lib/logger"
	"github.com/keeeeeey/DevDay/internal/models"
	"github.com/keeeeeey/DevDay/internal/storage"
)

// * UpdateMember обновляет проекцию внешних аккаунтов участника.
func (c *Challenge) UpdateMember(ctx context.Context, userID, roomID int64) error {
	const op = "challenge.UpdateMember"

	log := c.log.With(slog.String("op", op))

	m, err := c.member(ctx, userID, roomID)
	if err != nil {
		return err
	}

	return c.refreshMember(ctx, log, m)
}

// * UpdateChallengeRoom обновляет проекции всех участников комнаты.
func (c *Challenge) UpdateChallengeRoom(ctx context.Context, roomID int64) error {
	const op = "challenge.UpdateChallengeRoom"

	log := c.log.With(slog.String("op", op))

	members, err := c.members.MembersByRoom(ctx, roomID)
	if err != nil {
		return err
	}

	for _, m := range members {
		if err := c.refreshMember(ctx, log, m); err != nil {
			// Недоступность одного внешнего аккаунта не должна срывать
			// обновление остальных.
			log.Warn("failed to refresh member", slog.Int64("uid", m.UserID), sl.Err(err))
		}
	}

	return nil
}

// * UpdateActiveRooms обновляет проекции участников всех комнат, активных на date.
func (c *Challenge) UpdateActiveRooms(ctx context.Context, date string) error {
	const op = "challenge.UpdateActiveRooms"

	log := c.log.With(slog.String("op", op), slog.String("date", date))

	rooms, err := c.rooms.ActiveRooms(ctx, date)
	if err != nil {
		log.Error("failed to load active rooms", sl.Err(err))
		return err
	}

	for _, room := range rooms {
		if err := c.UpdateChallengeRoom(ctx, room.ID); err != nil {
			log.Warn("failed to update room", slog.Int64("room_id", room.ID), sl.Err(err))
		}
	}

	return nil
}

func (c *Challenge) refreshMember(ctx context.Context, log *slog.Logger, m models.UserChallenge) error {
	commitCount, solvedCount := m.CommitCount, m.SolvedCount

	if m.GithubID != "" {
		count, err := c.commits.CommitCount(ctx, m.GithubID)
		if err != nil {
			return err
		}
		commitCount = count
	}

	if m.BaekjoonID != "" {
		count, err := c.problems.SolvedCount(ctx, m.BaekjoonID)
		if err != nil {
			return err
		}
		solvedCount = count
	}

	if err := c.members.UpdateMemberCounts(ctx, m.ID, commitCount, solvedCount); err != nil {
		log.Error("failed to update member counts", sl.Err(err))
		return err
	}

	return nil
}

// * CreateDailyRecords дозаполняет день: участник без записи за date получает
// проваленную запись-заглушку, чтобы ранги и расчеты видели каждый день.
func (c *Challenge) CreateDailyRecords(ctx context.Context, date string) error {
	const op = "challenge.CreateDailyRecords"

	log := c.log.With(slog.String("op", op), slog.String("date", date))

	rooms, err := c.rooms.ActiveRooms(ctx, date)
	if err != nil {
		log.Error("failed to load active rooms", sl.Err(err))
		return err
	}

	for _, room := range rooms {
		members, err := c.members.MembersByRoom(ctx, room.ID)
		if err != nil {
			log.Error("failed to load members", slog.Int64("room_id", room.ID), sl.Err(err))
			continue
		}

		for _, m := range members {
			_, err := c.records.RecordByMemberAndDate(ctx, m.ID, date)
			if err == nil {
				continue
			}
			if !errors.Is(err, storage.ErrRecordNotFound) {
				log.Error("failed to check record", sl.Err(err))
				continue
			}

			_, err = c.records.SaveRecord(ctx, models.ChallengeRecord{
				UserChallengeID: m.ID,
				Category:        room.Category,
				Success:         false,
				CreatedDate:     date,
			})
			if err != nil {
				log.Error("failed to save placeholder record", sl.Err(err))
			}
		}
	}

	log.Info("daily records created", slog.Int("rooms", len(rooms)))

	return nil
}

// * CalcDailyPayment проводит ежедневный расчет: провалившие день платят
// штраф, прилежность пересчитывается, завершившиеся комнаты закрываются.
func (c *Challenge) CalcDailyPayment(ctx context.Context, date string) error {
	const op = "challenge.CalcDailyPayment"

	log := c.log.With(slog.String("op", op), slog.String("date", date))

	rooms, err := c.rooms.ActiveRooms(ctx, date)
	if err != nil {
		log.Error("failed to load active rooms", sl.Err(err))
		return err
	}

	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return err
	}

	for _, room := range rooms {
		if err := c.settleRoomDay(ctx, log, room, day, date); err != nil {
			log.Error("failed to settle room", slog.Int64("room_id", room.ID), sl.Err(err))
		}
	}

	log.Info("daily payment settled", slog.Int("rooms", len(rooms)))

	return nil
}

func (c *Challenge) settleRoomDay(ctx context.Context, log *slog.Logger, room models.ChallengeRoom, day time.Time, date string) error {
	members, err := c.members.MembersByRoom(ctx, room.ID)
	if err != nil {
		return err
	}

	recs, err := c.records.RecordsByRoomAndDate(ctx, room.ID, date)
	if err != nil {
		return err
	}

	succeeded := make(map[int64]bool, len(recs))
	for _, rec := range recs {
		if rec.Success {
			succeeded[rec.UserChallengeID] = true
		}
	}

	counts, err := c.records.SuccessCounts(ctx, room.ID)
	if err != nil {
		return err
	}

	total := daysElapsed(room, day)
	lastDay := !day.Before(room.EndDate.Truncate(24 * time.Hour))

	for _, m := range members {
		payment := m.Payment
		if !succeeded[m.ID] {
			payment -= room.Penalty
			if payment < 0 {
				payment = 0
			}
		}

		diligence := 0
		if total > 0 {
			diligence = counts[m.UserID] * 100 / total
		}

		if err := c.members.UpdateMemberSettlement(ctx, m.ID, payment, diligence); err != nil {
			log.Error("failed to update settlement", slog.Int64("uid", m.UserID), sl.Err(err))
			continue
		}

		if lastDay {
			if err := c.members.UpdateMemberStatus(ctx, m.ID, models.ChallengeStatusDone); err != nil {
				log.Error("failed to close membership", slog.Int64("uid", m.UserID), sl.Err(err))
			}
		}
	}

	return nil
}
