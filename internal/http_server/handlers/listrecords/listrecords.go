package listrecords

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/keeeeeey/DevDay/internal/challenge"
	resp "github.com/keeeeeey/DevDay/internal/lib/api/response"
	sl "github.com/keeeeeey/DevDay/internal/lib/logger"
	"github.com/keeeeeey/DevDay/internal/middleware/authn"
	"github.com/keeeeeey/DevDay/internal/models"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	Records []models.ChallengeRecord `json:"records"`
}

// New отдает записи комнаты: по умолчанию свои, с view=team вся команда
// за день (date, по умолчанию сегодня).
func New(
	log *slog.Logger,
	challengeService *challenge.Challenge,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.listrecords.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		userID, ok := authn.UserID(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Unauthorized"))

			return
		}

		roomID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Bad challenge id"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		var records []models.ChallengeRecord

		date := r.URL.Query().Get("date")

		switch {
		case r.URL.Query().Get("view") == "team":
			if date == "" {
				date = time.Now().Format("2006-01-02")
			}

			records, err = challengeService.TeamPhotoRecords(ctx, userID, roomID, date)
		case date != "":
			var rec models.ChallengeRecord

			rec, err = challengeService.SelfRecordByDate(ctx, userID, roomID, date)
			if err == nil {
				records = []models.ChallengeRecord{rec}
			}
		default:
			records, err = challengeService.SelfPhotoRecords(ctx, userID, roomID)
		}

		if err != nil {
			if errors.Is(err, challenge.ErrNotJoined) {
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, resp.Error("Not a challenge member"))

				return
			}
			if errors.Is(err, challenge.ErrRecordNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("No record for this date"))

				return
			}

			log.Error("failed to list records", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Records:  records,
		})
	}
}
