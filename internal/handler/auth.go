package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/uniprep/copilot/internal/model"
	"github.com/uniprep/copilot/internal/store"
)

type registerRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	University string `json:"university"`
	College    string `json:"college"`
	Branch     string `json:"branch"`
	Semester   int    `json:"semester"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
	User         *model.PublicUser `json:"user,omitempty"`
}

// requireAuth rejects requests without a valid bearer access token and
// stores the token's user ID in the request context.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			h.message(w, r, http.StatusUnauthorized, "NoToken")
			return
		}
		id, err := h.tokens.ParseAccess(raw)
		if err != nil {
			slog.Debug("rejected access token", "error", err)
			h.message(w, r, http.StatusUnauthorized, "TokenInvalid")
			return
		}
		next.ServeHTTP(w, r.WithContext(model.ContextWithUserID(r.Context(), id)))
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badRequest(w, r)
		return
	}
	switch {
	case strings.TrimSpace(req.Email) == "":
		h.required(w, r, "email")
		return
	case req.Password == "":
		h.required(w, r, "password")
		return
	case strings.TrimSpace(req.Name) == "":
		h.required(w, r, "name")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	user, err := h.store.CreateUser(model.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(req.Name),
		University:   req.University,
		College:      req.College,
		Branch:       req.Branch,
		Semester:     req.Semester,
	})
	if errors.Is(err, store.ErrConflict) {
		h.message(w, r, http.StatusBadRequest, "UserExists")
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	pub := user.Public()
	h.issueTokens(w, r, http.StatusCreated, user.ID, &pub)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(w, r, &req); err != nil {
		h.badRequest(w, r)
		return
	}
	user, err := h.store.GetUserByEmail(req.Email)
	if errors.Is(err, store.ErrNotFound) {
		h.message(w, r, http.StatusUnauthorized, "InvalidCredentials")
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.message(w, r, http.StatusUnauthorized, "InvalidCredentials")
		return
	}
	pub := user.Public()
	h.issueTokens(w, r, http.StatusOK, user.ID, &pub)
}

// handleRefresh rotates the token pair. The refresh token may come from the
// JSON body, the X-Refresh-Token header or the refreshToken query parameter.
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	_ = readJSON(w, r, &body)
	raw := body.RefreshToken
	if raw == "" {
		raw = r.Header.Get("X-Refresh-Token")
	}
	if raw == "" {
		raw = r.URL.Query().Get("refreshToken")
	}
	if raw == "" {
		h.message(w, r, http.StatusUnauthorized, "RefreshRequired")
		return
	}

	id, err := h.tokens.ParseRefresh(raw)
	if err != nil {
		h.message(w, r, http.StatusUnauthorized, "RefreshInvalid")
		return
	}
	user, err := h.store.GetUser(id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && user.RefreshToken == "") {
		h.message(w, r, http.StatusUnauthorized, "RefreshInvalid")
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if user.RefreshToken != raw {
		h.message(w, r, http.StatusForbidden, "RefreshMismatch")
		return
	}
	h.issueTokens(w, r, http.StatusOK, user.ID, nil)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.store.GetUser(userID(r))
	if err != nil {
		h.storeError(w, r, err, "UserNotFound")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.store.SetRefreshToken(userID(r), ""); err != nil {
		h.storeError(w, r, err, "UserNotFound")
		return
	}
	h.message(w, r, http.StatusOK, "LoggedOut")
}

// issueTokens signs a new pair for the user id and stores the refresh token.
// A non-nil user is included in the response.
func (h *Handler) issueTokens(w http.ResponseWriter, r *http.Request, status int, id string, user *model.PublicUser) {
	pair, err := h.tokens.Issue(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.store.SetRefreshToken(id, pair.RefreshToken); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, status, tokenResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken, User: user})
}
