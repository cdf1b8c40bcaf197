package createrecord

import (
	"context"
	"errors"
	"io"
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

const maxPhotoSize = 10 << 20

type Response struct {
	resp.Response
	RecordID int64 `json:"record_id"`
}

// New фиксирует дневной результат участника. Для фото-комнаты форма несет
// снимок и подпись, для algo/commit достаточно категории: счетчик опрашивается
// на сервере.
func New(
	log *slog.Logger,
	challengeService *challenge.Challenge,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.createrecord.New"

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

		if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
			log.Error("Failed to parse multipart form", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
		defer cancel()

		var recordID int64

		switch category := r.FormValue("category"); category {
		case models.CategoryPhoto:
			recordID, err = createPhoto(ctx, r, challengeService, userID, roomID)
		case models.CategoryAlgo:
			recordID, err = challengeService.CreateAlgoRecord(ctx, userID, roomID)
		case models.CategoryCommit:
			recordID, err = challengeService.CreateCommitRecord(ctx, userID, roomID)
		default:
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Unknown category"))

			return
		}

		if err != nil {
			switch {
			case errors.Is(err, challenge.ErrNotJoined):
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, resp.Error("Not a challenge member"))
			case errors.Is(err, challenge.ErrRecordExists):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, resp.Error("Record already exists for today"))
			default:
				log.Error("failed to create record", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		log.Info("Record created", slog.Int64("record_id", recordID))

		render.JSON(w, r, Response{
			Response: resp.OK(),
			RecordID: recordID,
		})
	}
}

func createPhoto(ctx context.Context, r *http.Request, svc *challenge.Challenge, userID, roomID int64) (int64, error) {
	file, header, err := r.FormFile("photo")
	if err != nil {
		return 0, err
	}
	defer file.Close()

	photo, err := io.ReadAll(io.LimitReader(file, maxPhotoSize))
	if err != nil {
		return 0, err
	}

	return svc.CreatePhotoRecord(ctx, userID, roomID, photo, header.Header.Get("Content-Type"), r.FormValue("content"))
}
