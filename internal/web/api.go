package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/parsascontentcorner/discordmedals/internal/medals"
	"github.com/parsascontentcorner/discordmedals/internal/metrics"
)

// The award API authenticates with the medal token alone. Holding the token of
// a medal grants awarding, revoking and token regeneration for that medal with
// no session or ownership check. Every response is a 200; callers branch on
// the success field.

const (
	msgInternal    = "Internal error"
	msgRateLimited = "Rate limit exceeded"
)

var apiMessages = []struct {
	err error
	msg string
}{
	{medals.ErrMissingToken, "Missing medal token"},
	{medals.ErrInvalidToken, "Invalid medal token"},
	{medals.ErrUserNotFound, "User not found"},
	{medals.ErrAlreadyOwned, "User already owns the medal"},
	{medals.ErrMissingAward, "Missing award id"},
	{medals.ErrInvalidAward, "Invalid award id"},
}

type apiResponse struct {
	Success  bool   `json:"success"`
	AwardID  int64  `json:"award_id,omitempty"`
	NewToken string `json:"new_token,omitempty"`
	Error    string `json:"error,omitempty"`
}

// AwardMedal handles GET /api/awardmedal?token=&user=&unique=
func (h *Handlers) AwardMedal(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	award, err := h.medals.AwardMedal(r.Context(), query.Get("token"), query.Get("user"), truthy(query.Get("unique")))
	if err != nil {
		h.metrics.Award(h.apiFailure(w, r, err))
		return
	}

	h.metrics.Award(metrics.ResultSuccess)
	h.writeAPI(w, apiResponse{Success: true, AwardID: award.ID})
}

// RevokeAward handles GET /api/revokeaward?token=&award=
func (h *Handlers) RevokeAward(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if err := h.medals.RevokeAward(r.Context(), query.Get("token"), query.Get("award")); err != nil {
		h.metrics.Revocation(h.apiFailure(w, r, err))
		return
	}

	h.metrics.Revocation(metrics.ResultSuccess)
	h.writeAPI(w, apiResponse{Success: true})
}

// RegenerateToken handles GET /api/regentoken?token=
func (h *Handlers) RegenerateToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.medals.RegenerateToken(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		h.metrics.Regeneration(h.apiFailure(w, r, err))
		return
	}

	h.metrics.Regeneration(metrics.ResultSuccess)
	h.writeAPI(w, apiResponse{Success: true, NewToken: token})
}

// apiFailure writes the failure body for err and returns the metrics result label
func (h *Handlers) apiFailure(w http.ResponseWriter, r *http.Request, err error) string {
	for _, m := range apiMessages {
		if errors.Is(err, m.err) {
			h.writeAPI(w, apiResponse{Error: m.msg})
			return metrics.ResultRejected
		}
	}

	h.logger.Error("api request failed", zap.String("path", r.URL.Path), zap.Error(err))
	h.writeAPI(w, apiResponse{Error: msgInternal})
	return metrics.ResultError
}

func (h *Handlers) writeAPI(w http.ResponseWriter, resp apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to write api response", zap.Error(err))
	}
}

// truthy reads a query flag. Anything but empty, 0, false and no counts as set.
func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "0", "false", "no":
		return false
	}
	return true
}
