package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"fcetrainer/internal/metrics"
	"fcetrainer/internal/security"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const TraineeContextKey ContextKey = "trainee"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	tokens  *security.TraineeTokens
	csrf    *security.CSRFGenerator
	limiter *security.RateLimiter
}

// NewMiddleware creates a new middleware instance. A nil limiter disables RateLimit.
func NewMiddleware(tokens *security.TraineeTokens, csrf *security.CSRFGenerator, limiter *security.RateLimiter) *Middleware {
	return &Middleware{
		tokens:  tokens,
		csrf:    csrf,
		limiter: limiter,
	}
}

// RequireTrainee identifies the trainee from the signed cookie. Visitors
// without a valid cookie get a fresh anonymous identity.
func (m *Middleware) RequireTrainee(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var traineeID string
		if cookie, err := r.Cookie(TraineeCookieName); err == nil {
			id, err := m.tokens.Verify(cookie.Value)
			if err != nil {
				log.Printf("Discarding trainee cookie: %v", err)
			} else {
				traineeID = id
			}
		}

		if traineeID == "" {
			traineeID = security.NewTraineeID()
			token, err := m.tokens.Issue(traineeID)
			if err != nil {
				respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error issuing trainee token", err)
				return
			}
			expires := time.Now().Add(m.tokens.TTL())
			http.SetCookie(w, security.CreateTraineeCookie(r, TraineeCookieName, token, expires))
		}

		ctx := context.WithValue(r.Context(), TraineeContextKey, traineeID)
		next(w, r.WithContext(ctx))
	}
}

// CSRFProtect rejects form posts whose token does not belong to the trainee.
// It must run inside RequireTrainee.
func (m *Middleware) CSRFProtect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			respondWithError(w, http.StatusBadRequest, ErrInvalidFormData, "", err)
			return
		}

		traineeID := GetTraineeID(r.Context())
		if !m.csrf.ValidateToken(traineeID, r.PostFormValue(CSRFFormField)) {
			log.Printf("CSRF validation failed for %s %s", r.Method, r.URL.Path)
			http.Error(w, ErrInvalidCSRFToken, http.StatusForbidden)
			return
		}

		next(w, r)
	}
}

// RateLimit refuses requests from a client that has used up its allowance
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.limiter != nil {
			ip := security.GetClientIP(r)
			if !m.limiter.Allow(ip) {
				log.Printf("Rate limit exceeded for %s on %s", ip, r.URL.Path)
				metrics.RateLimited.Inc()
				http.Error(w, ErrTooManyRequests, http.StatusTooManyRequests)
				return
			}
		}
		next(w, r)
	}
}

// GetCSRFToken returns the form token for the trainee, or "" when none can be made
func (m *Middleware) GetCSRFToken(traineeID string) string {
	token, err := m.csrf.GenerateToken(traineeID)
	if err != nil {
		return ""
	}
	return token
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

// GetTraineeID retrieves the trainee ID from the request context
func GetTraineeID(ctx context.Context) string {
	traineeID, _ := ctx.Value(TraineeContextKey).(string)
	return traineeID
}
