package progress

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
	Progress models.Progress `json:"progress"`
}

// New возвращает прогресс пользователя в комнате.
func New(
	log *slog.Logger,
	challengeService *challenge.Challenge,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.progress.New"

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

		p, err := challengeService.Progress(ctx, userID, roomID)
		if err != nil {
			switch {
			case errors.Is(err, challenge.ErrRoomNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Challenge not found"))
			case errors.Is(err, challenge.ErrNotJoined):
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, resp.Error("Not a challenge member"))
			default:
				log.Error("failed to build progress", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Progress: p,
		})
	}
}
