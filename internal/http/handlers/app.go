package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"fotopro/internal/billing"
	"fotopro/internal/db"
	"fotopro/internal/domain"
	"fotopro/internal/enhanceflow"
	"fotopro/internal/guest"
	"fotopro/internal/infra"
	"fotopro/internal/infra/google"
	"fotopro/internal/middleware"
)

// Store is the query surface the handlers read through; *db.Queries
// satisfies it and tests substitute stubs.
type Store interface {
	UpsertUser(ctx context.Context, arg db.UpsertUserParams) (domain.User, error)
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	CurrentSubscription(ctx context.Context, userID string) (domain.Subscription, error)
	ListEnhancements(ctx context.Context, userID string) ([]domain.PhotoEnhancement, error)
}

// App is the handler container; everything is injected at wiring time.
type App struct {
	Config  *infra.Config
	Logger  infra.Logger
	Store   Store
	Flow    *enhanceflow.Service
	Policy  enhanceflow.Policy
	Billing *billing.Service
	Guests  *guest.Store
	Google  google.IDTokenVerifier
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]any{"error": code, "message": message})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
