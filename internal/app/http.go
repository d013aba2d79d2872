package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"notespace/api/internal/auth"
	"notespace/api/internal/obs"
	"notespace/api/internal/storage"
)

const (
	maxJSONBodyBytes = 1 << 20
	// multipart framing on top of the file itself
	maxUploadBodyBytes = storage.MaxUploadBytes + 1<<20
)

type HTTPServer struct {
	service     *Service
	corsOrigin  string
	logger      zerolog.Logger
	authLimiter *rateLimiter
}

// NewHTTPServer builds the API server. ctx bounds background helpers such
// as the rate limiter sweeper.
func NewHTTPServer(ctx context.Context, service *Service, logger zerolog.Logger) *HTTPServer {
	cfg := service.cfg
	perSecond := cfg.AuthRatePerSecond
	if perSecond <= 0 {
		perSecond = 5
	}
	burst := cfg.AuthRateBurst
	if burst <= 0 {
		burst = 20
	}
	corsOrigin := cfg.CORSOrigin
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	return &HTTPServer{
		service:     service,
		corsOrigin:  corsOrigin,
		logger:      logger,
		authLimiter: newRateLimiter(ctx, perSecond, burst),
	}
}

func (s *HTTPServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.withMiddleware, obs.Instrument, securityHeaders)

	r.Handle("/metrics", obs.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Head("/health", s.handleHealth)
		r.Get("/ready", s.handleReady)

		r.Route("/auth", func(r chi.Router) {
			r.Use(s.authLimiter.middleware, maxBodyBytes(maxJSONBodyBytes))
			r.Post("/register", s.handleRegister)
			r.Post("/login", s.handleLogin)
			r.Post("/refresh", s.handleRefresh)
			r.Post("/verify", s.handleVerifyToken)
			r.With(s.authMiddleware).Post("/logout", s.handleLogout)
			r.With(s.authMiddleware).Get("/me", s.handleMe)
			r.Get("/google/login", s.handleGoogleLogin)
			r.Get("/google/callback", s.handleGoogleCallback)
			r.Post("/2fa/send", s.handleSendTwoFactor)
			r.Post("/2fa/verify", s.handleVerifyTwoFactor)
			r.Post("/forgot-password", s.handleForgotPassword)
			r.Post("/reset-password", s.handleResetPassword)
		})

		r.Route("/locations", func(r chi.Router) {
			r.Get("/", s.handleListLocations)
			r.Get("/{code}", s.handleGetLocation)
			r.Get("/{code}/children", s.handleLocationChildren)
			r.Get("/{code}/path", s.handleLocationPath)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Group(func(r chi.Router) {
				r.Use(maxBodyBytes(maxJSONBodyBytes))
				s.userRoutes(r)
				s.workspaceRoutes(r)
				s.pageRoutes(r)
				s.shareRoutes(r)
				s.tagRoutes(r)
				s.notificationRoutes(r)
				s.invitationRoutes(r)
			})

			r.Route("/attachments", func(r chi.Router) {
				r.Get("/", s.handleListAttachments)
				r.With(maxBodyBytes(maxUploadBodyBytes)).Post("/", s.handleUploadAttachment)
				r.Get("/{id}", s.handleDownloadAttachment)
				r.Delete("/{id}", s.handleDeleteAttachment)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})
	return r
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"database": map[string]any{"status": "ok"},
	}

	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["database"] = map[string]any{
			"status": "error",
			"error":  err.Error(),
		}
	}

	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

type sessionKey struct{}

// authMiddleware requires a valid, unrevoked bearer token and stores the
// session in the request context.
func (s *HTTPServer) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return
		}
		current, err := s.service.SessionFromToken(r.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken) {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
				return
			}
			s.fail(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, current)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(r *http.Request) Session {
	current, _ := r.Context().Value(sessionKey{}).(Session)
	return current
}

// fail writes the mapped error. Unexpected errors are logged with the
// request id and never echoed to the client.
func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error().
			Err(err).
			Str("request_id", requestIDFrom(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
	}
	writeError(w, status, code, message, details)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return err
		}
		if errors.Is(err, http.ErrBodyReadAfterClose) || errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

// decode reads the JSON body into target and answers 400 when it is
// malformed. It reports whether the handler may continue.
func (s *HTTPServer) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := decodeBody(r, target); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			s.fail(w, r, err)
			return false
		}
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return false
	}
	return true
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func queryBool(r *http.Request, key string) *bool {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &value
}

func queryInt(r *http.Request, key string) int {
	value, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(key)))
	if err != nil {
		return 0
	}
	return value
}
