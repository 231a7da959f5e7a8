package web

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/parsascontentcorner/discordmedals/internal/auth"
	"github.com/parsascontentcorner/discordmedals/internal/metrics"
	"github.com/parsascontentcorner/discordmedals/internal/session"
)

// Login stores a fresh state in the session and sends the browser to Discord
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	state, err := auth.GenerateState()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	sess := session.FromContext(r.Context())
	next := &session.Data{
		UserID:     sess.UserID,
		OAuthState: state,
		OAuthToken: sess.OAuthToken,
	}
	if err := h.sessions.Save(w, next); err != nil {
		h.fail(w, r, err)
		return
	}

	http.Redirect(w, r, h.authURL.GetAuthURL(state), http.StatusSeeOther)
}

// LoggedIn handles the OAuth callback from Discord
func (h *Handlers) LoggedIn(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	sess := session.FromContext(r.Context())

	if sess.OAuthState == "" {
		h.logger.Warn("oauth callback without pending login")
		h.metrics.Login(metrics.ResultRejected)
		redirect(w, r, "/")
		return
	}

	// Check for error from Discord
	if errParam := query.Get("error"); errParam != "" {
		h.logger.Warn("oauth error from discord",
			zap.String("error", errParam),
			zap.String("description", query.Get("error_description")),
		)
		h.metrics.Login(metrics.ResultRejected)
		h.dropPendingState(w, sess)
		redirect(w, r, "/")
		return
	}

	code := query.Get("code")
	if code == "" || !auth.StateMatches(sess.OAuthState, query.Get("state")) {
		h.logger.Warn("rejected oauth callback", zap.Bool("has_code", code != ""))
		h.metrics.Login(metrics.ResultRejected)
		h.dropPendingState(w, sess)
		redirect(w, r, "/")
		return
	}

	result, err := h.login.CompleteLogin(r.Context(), code)
	if err != nil {
		h.metrics.Login(metrics.ResultError)
		h.logger.Error("failed to complete login", zap.Error(err))
		h.renderError(w, r, http.StatusInternalServerError, "Failed to complete authentication. Please try again.")
		return
	}

	if err := h.sessions.Save(w, &session.Data{UserID: result.User.ID, OAuthToken: result.Token}); err != nil {
		h.metrics.Login(metrics.ResultError)
		h.fail(w, r, err)
		return
	}

	h.metrics.Login(metrics.ResultSuccess)
	redirect(w, r, "/")
}

// Logout forgets the session. Calling it without a session is fine.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	redirect(w, r, "/")
}

func (h *Handlers) dropPendingState(w http.ResponseWriter, sess *session.Data) {
	next := &session.Data{UserID: sess.UserID, OAuthToken: sess.OAuthToken}
	if err := h.sessions.Save(w, next); err != nil {
		h.logger.Error("failed to clear pending login", zap.Error(err))
	}
}
