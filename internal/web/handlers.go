// Package web serves the medal pages, the Discord login flow and the token award API.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/parsascontentcorner/discordmedals/internal/auth"
	"github.com/parsascontentcorner/discordmedals/internal/medals"
	"github.com/parsascontentcorner/discordmedals/internal/metrics"
	"github.com/parsascontentcorner/discordmedals/internal/ratelimit"
	"github.com/parsascontentcorner/discordmedals/internal/session"
)

// LoginCompleter finishes a Discord login for an authorization code
type LoginCompleter interface {
	CompleteLogin(ctx context.Context, code string) (*auth.LoginResult, error)
}

// AuthURLer builds the Discord authorization URL for a state value
type AuthURLer interface {
	GetAuthURL(state string) string
}

// Pinger reports whether the store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators of the web handlers
type Deps struct {
	Medals   *medals.Manager
	Login    LoginCompleter
	AuthURL  AuthURLer
	Sessions *session.Manager
	Store    Pinger
	Metrics  *metrics.Metrics
	Limiter  *ratelimit.ClientLimiter
	BaseURL  string
	Logger   *zap.Logger

	// TrustProxy installs chi's RealIP so the client address comes from proxy headers
	TrustProxy bool
}

// Handlers contains all HTTP handlers
type Handlers struct {
	medals   *medals.Manager
	login    LoginCompleter
	authURL  AuthURLer
	sessions *session.Manager
	store    Pinger
	metrics  *metrics.Metrics
	limiter  *ratelimit.ClientLimiter
	baseURL  string
	pages    *renderer
	logger   *zap.Logger

	trustProxy bool
}

// NewHandlers creates a new handlers instance
func NewHandlers(d Deps) (*Handlers, error) {
	pages, err := newRenderer()
	if err != nil {
		return nil, err
	}

	return &Handlers{
		medals:   d.Medals,
		login:    d.Login,
		authURL:  d.AuthURL,
		sessions: d.Sessions,
		store:    d.Store,
		metrics:  d.Metrics,
		limiter:  d.Limiter,
		baseURL:  d.BaseURL,
		pages:    pages,
		logger:   d.Logger,

		trustProxy: d.TrustProxy,
	}, nil
}

// Router wires every route
func (h *Handlers) Router() http.Handler {
	r := chi.NewRouter()

	if h.trustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(h.limitClients)
		r.Get("/awardmedal", h.AwardMedal)
		r.Get("/revokeaward", h.RevokeAward)
		r.Get("/regentoken", h.RegenerateToken)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.loadSession)

		r.Get("/", h.Index)
		r.Get("/login", h.Login)
		r.Get("/loggedin", h.LoggedIn)
		r.Get("/logout", h.Logout)

		r.Get("/guild/{guildID}", h.Guild)
		r.Get("/guild/{guildID}/new", h.NewMedalForm)
		r.Post("/guild/{guildID}/new", h.CreateMedal)
		r.Get("/medal/{medalID}", h.Medal)
		r.Get("/medal/{medalID}/edit", h.EditMedalForm)
		r.Post("/medal/{medalID}/edit", h.EditMedal)
		r.Get("/user/{userID}", h.User)
	})

	r.NotFound(h.notFound)

	return r
}

// Health reports OK once the store answers a ping
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Error("health check failed", zap.Error(err))
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		h.logger.Error("failed to write health check response", zap.Error(err))
	}
}

func (h *Handlers) notFound(w http.ResponseWriter, r *http.Request) {
	h.renderError(w, r, http.StatusNotFound, "This page does not exist.")
}

func (h *Handlers) newView(r *http.Request, title string, data any) *view {
	return &view{
		Title:    title,
		ViewerID: session.FromContext(r.Context()).UserID,
		BaseURL:  h.baseURL,
		Data:     data,
	}
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	if err := h.pages.render(w, status, name, h.newView(r, title, data)); err != nil {
		h.logger.Error("failed to render page", zap.String("page", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handlers) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.render(w, r, status, "error", http.StatusText(status), errorView{Status: status, Message: message})
}

// fail maps an error from the medal manager to an error page
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, medals.ErrNotFound):
		h.renderError(w, r, http.StatusNotFound, "Nothing was found here.")
	case errors.Is(err, medals.ErrForbidden):
		h.renderError(w, r, http.StatusForbidden, "Only the owner of this server can do that.")
	case errors.Is(err, medals.ErrInvalidInput):
		h.renderError(w, r, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		h.renderError(w, r, http.StatusInternalServerError, "Something went wrong. Please try again later.")
	}
}

func redirect(w http.ResponseWriter, r *http.Request, format string, args ...any) {
	http.Redirect(w, r, fmt.Sprintf(format, args...), http.StatusSeeOther)
}
