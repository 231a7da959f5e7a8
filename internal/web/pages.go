package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/parsascontentcorner/discordmedals/internal/medals"
	"github.com/parsascontentcorner/discordmedals/internal/metrics"
	"github.com/parsascontentcorner/discordmedals/internal/models"
	"github.com/parsascontentcorner/discordmedals/internal/session"
)

const maxFormBytes = 16 << 10

// Index sends signed-in users to their profile and shows everyone else the landing page
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	if sess := session.FromContext(r.Context()); sess.LoggedIn() {
		redirect(w, r, "/user/%s", sess.UserID)
		return
	}
	h.render(w, r, http.StatusOK, "landing", "Welcome", nil)
}

// Guild shows a guild with its medals and members
func (h *Handlers) Guild(w http.ResponseWriter, r *http.Request) {
	guildID, ok := h.snowflakeParam(w, r, "guildID")
	if !ok {
		return
	}

	page, err := h.medals.GuildView(r.Context(), guildID, session.FromContext(r.Context()).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "guild", page.Guild.Name, page)
}

// NewMedalForm shows the medal creation form to the guild owner
func (h *Handlers) NewMedalForm(w http.ResponseWriter, r *http.Request) {
	guildID, ok := h.snowflakeParam(w, r, "guildID")
	if !ok {
		return
	}

	guild, err := h.medals.AuthorizeGuild(r.Context(), guildID, session.FromContext(r.Context()).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "medal_form", "New medal", medalFormView{
		Guild: guild,
		Input: models.MedalInput{Tier: models.TierBronze},
	})
}

// CreateMedal handles the medal creation form
func (h *Handlers) CreateMedal(w http.ResponseWriter, r *http.Request) {
	guildID, ok := h.snowflakeParam(w, r, "guildID")
	if !ok {
		return
	}
	in, ok := h.medalForm(w, r)
	if !ok {
		return
	}

	userID := session.FromContext(r.Context()).UserID
	medal, err := h.medals.CreateMedal(r.Context(), guildID, userID, in)
	if err != nil {
		h.metrics.MedalSaved("create", resultOf(err))
		if errors.Is(err, medals.ErrInvalidInput) {
			guild, authErr := h.medals.AuthorizeGuild(r.Context(), guildID, userID)
			if authErr != nil {
				h.fail(w, r, authErr)
				return
			}
			h.rerenderForm(w, r, guild, nil, in, err)
			return
		}
		h.fail(w, r, err)
		return
	}

	h.metrics.MedalSaved("create", metrics.ResultSuccess)
	redirect(w, r, "/guild/%s", medal.GuildID)
}

// Medal shows a medal and who holds it
func (h *Handlers) Medal(w http.ResponseWriter, r *http.Request) {
	medalID, ok := h.idParam(w, r, "medalID")
	if !ok {
		return
	}

	page, err := h.medals.MedalView(r.Context(), medalID, session.FromContext(r.Context()).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "medal", page.Medal.Name, page)
}

// EditMedalForm shows the medal edit form to the guild owner
func (h *Handlers) EditMedalForm(w http.ResponseWriter, r *http.Request) {
	medalID, ok := h.idParam(w, r, "medalID")
	if !ok {
		return
	}

	medal, guild, err := h.medals.AuthorizeMedal(r.Context(), medalID, session.FromContext(r.Context()).UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "medal_form", "Edit medal", medalFormView{
		Guild: guild,
		Medal: medal,
		Input: models.MedalInput{
			Name:        medal.Name,
			Description: medal.Description,
			Icon:        medal.Icon,
			Tier:        medal.Tier,
		},
	})
}

// EditMedal handles the medal edit form
func (h *Handlers) EditMedal(w http.ResponseWriter, r *http.Request) {
	medalID, ok := h.idParam(w, r, "medalID")
	if !ok {
		return
	}
	in, ok := h.medalForm(w, r)
	if !ok {
		return
	}

	userID := session.FromContext(r.Context()).UserID
	medal, err := h.medals.EditMedal(r.Context(), medalID, userID, in)
	if err != nil {
		h.metrics.MedalSaved("edit", resultOf(err))
		if errors.Is(err, medals.ErrInvalidInput) {
			current, guild, authErr := h.medals.AuthorizeMedal(r.Context(), medalID, userID)
			if authErr != nil {
				h.fail(w, r, authErr)
				return
			}
			h.rerenderForm(w, r, guild, current, in, err)
			return
		}
		h.fail(w, r, err)
		return
	}

	h.metrics.MedalSaved("edit", metrics.ResultSuccess)
	redirect(w, r, "/guild/%s", medal.GuildID)
}

// User shows the medals a user holds, grouped by guild
func (h *Handlers) User(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.snowflakeParam(w, r, "userID")
	if !ok {
		return
	}

	profile, err := h.medals.UserProfile(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "user", profile.User.String(), profile)
}

// rerenderForm shows the submitted form again with a 400 and the validation message
func (h *Handlers) rerenderForm(w http.ResponseWriter, r *http.Request, guild *models.Guild, medal *models.Medal, in models.MedalInput, cause error) {
	h.render(w, r, http.StatusBadRequest, "medal_form", "Invalid medal", medalFormView{
		Guild: guild,
		Medal: medal,
		Input: in,
		Error: cause.Error(),
	})
}

func (h *Handlers) medalForm(w http.ResponseWriter, r *http.Request) (models.MedalInput, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "The submitted form could not be read.")
		return models.MedalInput{}, false
	}
	return models.MedalInput{
		Name:        r.PostForm.Get("name"),
		Description: r.PostForm.Get("description"),
		Icon:        r.PostForm.Get("icon"),
		Tier:        models.Tier(r.PostForm.Get("tier")),
	}, true
}

func (h *Handlers) snowflakeParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := chi.URLParam(r, name)
	if !models.ValidSnowflake(id) {
		h.notFound(w, r)
		return "", false
	}
	return id, true
}

func (h *Handlers) idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		h.notFound(w, r)
		return 0, false
	}
	return id, true
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case errors.Is(err, medals.ErrInvalidInput), errors.Is(err, medals.ErrForbidden), errors.Is(err, medals.ErrNotFound):
		return metrics.ResultRejected
	default:
		return metrics.ResultError
	}
}
