package serve

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// requireAuth wraps a handler with HTTP basic authentication against the
// secrets file.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok {
			unauthorized(w)
			return
		}

		creds, err := readCredentials(s.cfg.SecretsFile)
		if err != nil {
			s.logger.Error("credentials unavailable", "error", err)
			writeJSON(w, http.StatusInternalServerError, MessageResponse{Message: "server credentials unavailable"})
			return
		}

		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(creds.Username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(creds.Password)) == 1
		if !userOK || !passOK {
			unauthorized(w)
			return
		}

		next(w, r)
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="stevedore"`)
	writeJSON(w, http.StatusUnauthorized, MessageResponse{Message: "Invalid username or password"})
}

// corsMiddleware adds permissive CORS headers so a frontend can call the
// API directly.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requestLogMiddleware tags every request with an ID and logs it.
func (s *Server) requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		start := time.Now()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Info("request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// statusRecorder captures the response status for logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
