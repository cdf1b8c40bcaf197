package refresh

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/keeeeeey/DevDay/internal/auth"
	resp "github.com/keeeeeey/DevDay/internal/lib/api/response"
	jwtlib "github.com/keeeeeey/DevDay/internal/lib/jwt"
	sl "github.com/keeeeeey/DevDay/internal/lib/logger"
	"github.com/keeeeeey/DevDay/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Response struct {
	resp.Response
	models.TokenPair
}

// New обменивает пару из заголовков Authorization и RefreshToken на новую.
func New(
	log *slog.Logger,
	authService *auth.Auth,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.refresh.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		accessToken := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		refreshToken := r.Header.Get("RefreshToken")

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		pair, err := authService.Refresh(ctx, accessToken, refreshToken)
		if err != nil {
			if errors.Is(err, auth.ErrAccessDenied) {
				log.Warn("refresh rejected")

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Access denied"))

				return
			}
			if errors.Is(err, jwtlib.ErrInvalidToken) {
				log.Warn("malformed token", sl.Err(err))

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error("Invalid token"))

				return
			}

			log.Error("failed to refresh tokens", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("Tokens refreshed successfully")

		render.JSON(w, r, Response{
			Response:  resp.OK(),
			TokenPair: pair,
		})
	}
}
