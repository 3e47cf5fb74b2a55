// Package httpapi exposes the delivery trigger and feeding endpoints over chi.
package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"pet-feeding/internal/model"
)

type ctxKey struct{}

func withUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

// UserFrom returns the user authenticated by bearer token, if any.
func UserFrom(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(ctxKey{}).(*model.User)
	return user, ok && user != nil
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

func validSecret(configured, given string) bool {
	if configured == "" || given == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(given)) == 1
}

// authenticate resolves the bearer token to a user. The bool is false when
// the token is missing or unknown; err is set only on lookup failures.
func authenticate(r *http.Request, users TokenLookup) (*model.User, bool, error) {
	token := bearerToken(r)
	if token == "" {
		return nil, false, nil
	}
	user, err := users.FindByAPIToken(r.Context(), token)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	return user, true, nil
}

// TriggerAuth admits a scheduler carrying the shared cron secret in
// X-Cron-Secret, or any user with a valid API token.
func TriggerAuth(secret string, users TokenLookup, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validSecret(secret, r.Header.Get("X-Cron-Secret")) {
				next.ServeHTTP(w, r)
				return
			}
			user, ok, err := authenticate(r, users)
			if err != nil {
				log.WithError(err).Error("token lookup failed")
				writeError(w, log, http.StatusInternalServerError, "internal error")
				return
			}
			if !ok {
				writeError(w, log, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

// UserAuth requires a valid API token and stores the user in the request context.
func UserAuth(users TokenLookup, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok, err := authenticate(r, users)
			if err != nil {
				log.WithError(err).Error("token lookup failed")
				writeError(w, log, http.StatusInternalServerError, "internal error")
				return
			}
			if !ok {
				writeError(w, log, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

// requestLogger logs one line per request with the chi request id.
func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.WithFields(logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"duration":   time.Since(start).String(),
			}).Debug("http request")
		})
	}
}
