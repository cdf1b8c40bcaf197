package join

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
	Pass        string `json:"password" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Nickname    string `json:"nickname" validate:"required"`
}

type Response struct {
	resp.Response
	UserID int64 `json:"user_id"`
}

// New завершает регистрацию после подтверждения почты.
func New(
	log *slog.Logger,
	validate *validator.Validate,
	authService *auth.Auth,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.join.New"

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

		log.Info("Request body decoded")

		if err := validate.Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		userID, err := authService.Join(ctx, req.EmailAuthID, req.Pass, req.Name, req.Nickname)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrEmailAuthNotFound), errors.Is(err, auth.ErrEmailNotChecked):
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, resp.Error("Email is not verified"))
			case errors.Is(err, auth.ErrUserExists):
				render.Status(r, http.StatusConflict)
				render.JSON(w, r, resp.Error("Member already exists"))
			default:
				log.Error("failed to register user", sl.Err(err))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, resp.Error("Internal error"))
			}

			return
		}

		log.Info("User registered", slog.Int64("id", userID))

		render.JSON(w, r, Response{
			Response: resp.OK(),
			UserID:   userID,
		})
	}
}
