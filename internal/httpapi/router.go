package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"pet-feeding/internal/model"
	"pet-feeding/internal/service"
)

// Runner runs one delivery pass followed by the missed-feeding scan.
type Runner interface {
	Run(ctx context.Context, now time.Time) (service.RunResult, error)
}

// Feedings registers feedings and answers next-feeding queries.
type Feedings interface {
	Register(ctx context.Context, in service.FeedingInput, now time.Time) (*model.FeedingLog, error)
	NextFeeding(ctx context.Context, catID, userID uint, now time.Time) (service.NextFeedingInfo, error)
}

// TokenLookup resolves API tokens to users.
type TokenLookup interface {
	FindByAPIToken(ctx context.Context, token string) (*model.User, error)
}

// Deps wires the router to the services.
type Deps struct {
	Runner     Runner
	Feedings   Feedings
	Users      TokenLookup
	CronSecret string
	Log        logrus.FieldLogger
	Now        func() time.Time
}

// NewRouter creates a chi router with health checks and the v2 API mounted.
func NewRouter(d Deps) chi.Router {
	if d.Now == nil {
		d.Now = time.Now
	}
	h := &handler{runner: d.Runner, feedings: d.Feedings, log: d.Log, now: d.Now}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Log))
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, d.Log, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v2", func(r chi.Router) {
		r.With(TriggerAuth(d.CronSecret, d.Users, d.Log)).
			Post("/scheduled-notifications/deliver", h.Deliver)

		r.Group(func(r chi.Router) {
			r.Use(UserAuth(d.Users, d.Log))
			r.Get("/cats/{catID}/next-feeding", h.NextFeeding)
			r.Post("/feedings", h.CreateFeeding)
		})
	})

	return r
}
