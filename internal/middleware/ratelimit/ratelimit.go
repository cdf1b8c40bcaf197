package rateLimit

import (
	"net/http"
	"time"

	httprate "github.com/go-chi/httprate"
)

func Login() func(http.Handler) http.Handler {
	return limitByIP(10, 5*time.Minute)
}

func Join() func(http.Handler) http.Handler {
	return limitByIP(5, time.Hour)
}

func Refresh() func(http.Handler) http.Handler {
	return limitByIP(30, 10*time.Minute)
}

func EmailCheck() func(http.Handler) http.Handler {
	return limitByIP(3, time.Hour)
}

func ConfirmEmail() func(http.Handler) http.Handler {
	return limitByIP(10, 10*time.Minute)
}

func FindPw() func(http.Handler) http.Handler {
	return limitByIP(3, time.Hour)
}

func Records() func(http.Handler) http.Handler {
	return limitByIP(60, time.Hour)
}

func limitByIP(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.LimitByIP(limit, window)
}
