package joinchallenge

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

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Request struct {
	GithubID   string `json:"github_id"`
	BaekjoonID string `json:"baekjoon_id"`
}

type Response struct {
	resp.Response
	MemberID int64 `json:"member_id"`
}

// New вступает в комнату от имени пользователя из токена.
func New(
	log *slog.Logger,
	challengeService *challenge.Challenge,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.joinchallenge.New"

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

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		memberID, err := challengeService.JoinRoom(ctx, userID, roomID, req.GithubID, req.BaekjoonID)
		if err != nil {
			switch {
			case errors.Is(err, challenge.ErrRoomNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Challenge not found"))
			case errors.Is(err, challenge.ErrRoomClosed):
				render.Status(r, http.StatusGone)
				render.JSON(w, r, resp.Error("Challenge already ended"))
			case errors.Is(err, challenge.ErrRoomFull):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, resp.Error("Challenge is full"))
			case errors.Is(err, challenge.ErrAlreadyJoined):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, resp.Error("Already joined"))
			default:
				log.Error("failed to join challenge", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		log.Info("User joined challenge", slog.Int64("room_id", roomID))

		render.JSON(w, r, Response{
			Response: resp.OK(),
			MemberID: memberID,
		})
	}
}
