package server

import (
	"net/http"
	"strings"

	"skillpick/internal/errors"
)

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	var handler http.Handler = s.routes()
	handler = s.corsMiddleware(handler)
	if s.observability != nil {
		handler = s.observability.HTTPMiddleware()(handler)
	}
	return s.recoverMiddleware(handler)
}

// routes configures all HTTP routes and their middleware
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	limit := s.rateLimitMiddleware()
	jsonBody := s.bodyLimitMiddleware(s.MaxBodyBytes)
	upload := s.bodyLimitMiddleware(s.MaxUploadBytes)
	recruiter := func(h http.HandlerFunc) http.HandlerFunc { return limit(s.authMiddleware(h)) }

	mux.HandleFunc("GET /health", s.healthHandler)

	mux.HandleFunc("POST /api/processes", recruiter(jsonBody(s.createProcessHandler)))
	mux.HandleFunc("GET /api/processes/public/{token}", limit(s.publicViewHandler))
	mux.HandleFunc("GET /api/processes/{id}", recruiter(s.getProcessHandler))

	// register/{token} and {candidate_id}/submit overlap as mux patterns
	register := limit(upload(s.registerHandler))
	submit := limit(jsonBody(s.submitHandler))
	mux.HandleFunc("POST /api/candidates/{first}/{second}", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.PathValue("first") == "register":
			r.SetPathValue("token", r.PathValue("second"))
			register(w, r)
		case r.PathValue("second") == "submit":
			r.SetPathValue("candidate_id", r.PathValue("first"))
			submit(w, r)
		default:
			writeDetail(w, http.StatusNotFound, "Not found")
		}
	})
	mux.HandleFunc("GET /api/candidates/{candidate_id}/result", limit(s.resultHandler))

	mux.HandleFunc("GET /api/analytics/process/{id}", recruiter(s.analyticsHandler))
	mux.HandleFunc("GET /api/analytics/process/{id}/export.xlsx", recruiter(s.exportHandler))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not found")
	})

	return mux
}

// authMiddleware provides API key authentication
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Skip authentication if no API keys are configured
		if len(s.APIKeys) == 0 {
			next(w, r)
			return
		}

		apiKey := requestAPIKey(r)
		if apiKey == "" {
			s.logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r))
			s.writeError(w, r, errors.NewUnauthorizedError(errors.ErrCodeMissingAPIKey,
				"X-API-Key header or Authorization Bearer token required", nil))
			return
		}

		if !s.APIKeys[apiKey] {
			s.logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", getClientIP(r),
				"api_key_prefix", maskAPIKey(apiKey))
			s.writeError(w, r, errors.NewUnauthorizedError(errors.ErrCodeInvalidAPIKey, "Invalid API key", nil))
			return
		}

		s.logger.Debug("API authentication successful",
			"endpoint", r.URL.Path,
			"api_key_prefix", maskAPIKey(apiKey))

		next(w, r)
	}
}

// bodyLimitMiddleware limits the size of incoming request bodies
func (s *Server) bodyLimitMiddleware(limit int64) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if limit > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next(w, r)
		}
	}
}

// requestAPIKey reads the key from X-API-Key, falling back to a Bearer token
func requestAPIKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return after
	}
	return ""
}

// maskAPIKey masks an API key for logging (shows only first 8 characters)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
