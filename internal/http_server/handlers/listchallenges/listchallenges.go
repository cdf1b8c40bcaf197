package listchallenges

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/keeeeeey/DevDay/internal/challenge"
	resp "github.com/keeeeeey/DevDay/internal/lib/api/response"
	sl "github.com/keeeeeey/DevDay/internal/lib/logger"
	"github.com/keeeeeey/DevDay/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	Rooms []models.ChallengeRoom `json:"rooms"`
}

// New отдает страницу комнат с фильтром по категории и поиском по названию.
func New(
	log *slog.Logger,
	challengeService *challenge.Challenge,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.listchallenges.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		q := r.URL.Query()

		size, _ := strconv.Atoi(q.Get("size"))
		offset, _ := strconv.ParseInt(q.Get("offset"), 10, 64)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		rooms, err := challengeService.ListSimple(ctx, q.Get("category"), q.Get("search"), size, offset)
		if err != nil {
			log.Error("failed to list challenges", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Rooms:    rooms,
		})
	}
}
