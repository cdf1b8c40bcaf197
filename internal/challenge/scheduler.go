package challenge

import (
	"context"
	"log/slog"
	"time"

	sl "github.com/keeeeeey/DevDay/internal/lib/logger"
)

// RunDailyJobs крутит ежедневный цикл до отмены контекста: в dailyAt (HH:MM)
// закрывается прошедший день (заглушки + расчет) и открывается новый.
func (c *Challenge) RunDailyJobs(ctx context.Context, dailyAt string) {
	const op = "challenge.RunDailyJobs"

	log := c.log.With(slog.String("op", op))

	at, err := time.Parse("15:04", dailyAt)
	if err != nil {
		log.Error("bad daily_at value, scheduler disabled", sl.Err(err))
		return
	}

	for {
		next := nextRun(time.Now(), at.Hour(), at.Minute())

		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			log.Info("scheduler stopped")
			return
		case now := <-timer.C:
			yesterday := now.AddDate(0, 0, -1).Format(dateLayout)
			today := now.Format(dateLayout)

			if err := c.UpdateActiveRooms(ctx, yesterday); err != nil {
				log.Error("member refresh job failed", sl.Err(err))
			}

			if err := c.CreateDailyRecords(ctx, yesterday); err != nil {
				log.Error("daily records job failed", sl.Err(err))
			}

			if err := c.CalcDailyPayment(ctx, yesterday); err != nil {
				log.Error("daily payment job failed", sl.Err(err))
			}

			log.Info("daily jobs finished",
				slog.String("settled", yesterday),
				slog.String("current", today),
			)
		}
	}
}

func nextRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}

	return next
}
