package confirmemail

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/keeeeeey/DevDay/internal/auth"
	resp "github.com/keeeeeey/DevDay/internal/lib/api/response"
	sl "github.com/keeeeeey/DevDay/internal/lib/logger"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	EmailAuthID int64  `json:"email_auth_id" validate:"required"`
	AuthToken   string `json:"auth_token" validate:"required"`
}

type Response struct {
	resp.Response
}

// New сверяет код подтверждения почты.
func New(
	log *slog.Logger,
	validate *validator.Validate,
	authService *auth.Auth,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.confirmemail.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := authService.ConfirmEmail(ctx, req.EmailAuthID, req.AuthToken); err != nil {
			switch {
			case errors.Is(err, auth.ErrEmailAuthNotFound):
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("Email auth not found"))
			case errors.Is(err, auth.ErrEmailAuthTimeout):
				render.Status(r, http.StatusGone)
				render.JSON(w, r, resp.Error("Email auth expired"))
			case errors.Is(err, auth.ErrCodeMismatch):
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error("Code mismatch"))
			default:
				log.Error("failed to confirm email", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		log.Info("Email confirmed", slog.Int64("id", req.EmailAuthID))

		render.JSON(w, r, Response{Response: resp.OK()})
	}
}
