package mychallenges

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/keeeeeey/DevDay/internal/challenge"
	resp "github.com/keeeeeey/DevDay/internal/lib/api/response"
	sl "github.com/keeeeeey/DevDay/internal/lib/logger"
	"github.com/keeeeeey/DevDay/internal/middleware/authn"
	"github.com/keeeeeey/DevDay/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Entry struct {
	Membership models.UserChallenge `json:"membership"`
	Room       models.ChallengeRoom `json:"room"`
}

type Response struct {
	resp.Response
	Challenges []Entry `json:"challenges"`
}

// New возвращает участия пользователя, опционально по статусу.
func New(
	log *slog.Logger,
	challengeService *challenge.Challenge,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.mychallenges.New"

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

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		members, rooms, err := challengeService.MyChallenges(ctx, userID, r.URL.Query().Get("status"))
		if err != nil {
			log.Error("failed to list my challenges", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		entries := make([]Entry, 0, len(members))
		for _, m := range members {
			entries = append(entries, Entry{
				Membership: m,
				Room:       rooms[m.ChallengeRoomID],
			})
		}

		render.JSON(w, r, Response{
			Response:   resp.OK(),
			Challenges: entries,
		})
	}
}
