package middleware

import (
	"fmt"
	"net/http"
	"time"

	"makermate/internal/logging"
	"makermate/internal/utils"
)

// Recover turns a handler panic into a 500 {error, detail} response
func Recover(next http.Handler) http.Handler {
	log := logging.Named("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				log.Errorw("handler panic", "path", r.URL.Path, "panic", v)
				utils.RespondWithErrorDetail(w, http.StatusInternalServerError, "Server error", fmt.Sprint(v))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// AccessLog logs method, path, status and duration of every request
func AccessLog(next http.Handler) http.Handler {
	log := logging.Named("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		id, _ := GetRequestID(r.Context())
		log.Infow("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", id,
		)
	})
}
