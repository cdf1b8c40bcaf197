package createchallenge

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

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

const maxImageSize = 10 << 20

type Response struct {
	resp.Response
	RoomID int64 `json:"room_id"`
}

// New создает комнату челленджа из multipart-формы (поля + картинка).
func New(
	log *slog.Logger,
	challengeService *challenge.Challenge,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.createchallenge.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		hostID, ok := authn.UserID(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Unauthorized"))

			return
		}

		if err := r.ParseMultipartForm(maxImageSize); err != nil {
			log.Error("Failed to parse multipart form", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		room, err := roomFromForm(r, hostID)
		if err != nil {
			log.Error("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Invalid challenge fields"))

			return
		}

		var (
			image       []byte
			contentType string
		)

		if file, header, err := r.FormFile("image"); err == nil {
			defer file.Close()

			image, err = io.ReadAll(io.LimitReader(file, maxImageSize))
			if err != nil {
				log.Error("Failed to read image", sl.Err(err))

				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Failed to read image"))

				return
			}

			contentType = header.Header.Get("Content-Type")
		}

		ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
		defer cancel()

		id, err := challengeService.CreateRoom(ctx, room, image, contentType)
		if err != nil {
			if errors.Is(err, challenge.ErrInvalidCategory) || errors.Is(err, challenge.ErrInvalidPeriod) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error(err.Error()))

				return
			}

			log.Error("failed to create challenge", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("Challenge created", slog.Int64("room_id", id))

		render.JSON(w, r, Response{
			Response: resp.OK(),
			RoomID:   id,
		})
	}
}

func roomFromForm(r *http.Request, hostID int64) (models.ChallengeRoom, error) {
	entryFee, err := strconv.ParseInt(r.FormValue("entry_fee"), 10, 64)
	if err != nil {
		return models.ChallengeRoom{}, err
	}

	penalty, err := strconv.ParseInt(r.FormValue("penalty"), 10, 64)
	if err != nil {
		return models.ChallengeRoom{}, err
	}

	capacity, err := strconv.Atoi(r.FormValue("capacity"))
	if err != nil {
		return models.ChallengeRoom{}, err
	}

	startDate, err := time.Parse("2006-01-02", r.FormValue("start_date"))
	if err != nil {
		return models.ChallengeRoom{}, err
	}

	endDate, err := time.Parse("2006-01-02", r.FormValue("end_date"))
	if err != nil {
		return models.ChallengeRoom{}, err
	}

	return models.ChallengeRoom{
		HostID:      hostID,
		Title:       r.FormValue("title"),
		Category:    r.FormValue("category"),
		Description: r.FormValue("description"),
		EntryFee:    entryFee,
		Penalty:     penalty,
		Capacity:    capacity,
		StartDate:   startDate,
		EndDate:     endDate,
	}, nil
}
