package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"

	"github.com/sakif/socialboard/internal/apperror"
	"github.com/sakif/socialboard/internal/auth"
	"github.com/sakif/socialboard/internal/flux"
)

const stateCookie = "oauth_state"

// ProviderLookup finds a configured OAuth provider by name.
type ProviderLookup interface {
	Provider(name string) (auth.Provider, bool)
}

// AuthHandler turns sign-in requests into auth actions. The session itself
// lives in the store; these endpoints only start the transitions.
type AuthHandler struct {
	store     StateSource
	actions   *flux.Actions
	providers ProviderLookup
	logger    *slog.Logger
}

// NewAuthHandler creates an AuthHandler. providers may be nil when no OAuth
// provider is configured.
func NewAuthHandler(store StateSource, actions *flux.Actions, providers ProviderLookup, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{store: store, actions: actions, providers: providers, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// HTTP: POST /auth/login {"email", "password"}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.actions.Login(req.Email, req.Password)
	accepted(w, r, h.store)
}

// HTTP: POST /auth/register {"email", "password", "displayName"}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.actions.Register(req.Email, req.Password, req.DisplayName)
	accepted(w, r, h.store)
}

// HTTP: POST /auth/logout
//
// POST rather than GET: browsers prefetch GETs, and a prefetched logout
// would sign the user out.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.actions.Logout()
	accepted(w, r, h.store)
}

// HandleProviderLogin redirects the browser to the provider's consent page.
//
// HTTP: GET /auth/{provider}/login
//
// A random state value goes into a short-lived HttpOnly cookie and into the
// authorization URL. The callback only proceeds when both match, which
// proves the flow was started here and not by a cross-site request.
func (h *AuthHandler) HandleProviderLogin(w http.ResponseWriter, r *http.Request) {
	p, ok := h.provider(r)
	if !ok {
		writeError(w, apperror.NotFound("sign-in provider", chi.URLParam(r, "provider")))
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, p.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleProviderCallback completes the OAuth flow by dispatching
// LOGIN_WITH_PROVIDER with the authorization code, then sends the browser
// home once the sign-in has settled.
//
// HTTP: GET /auth/{provider}/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleProviderCallback(w http.ResponseWriter, r *http.Request) {
	p, ok := h.provider(r)
	if !ok {
		writeError(w, apperror.NotFound("sign-in provider", chi.URLParam(r, "provider")))
		return
	}

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || r.URL.Query().Get("state") != cookie.Value {
		h.logger.Warn("auth callback: state mismatch", slog.String("provider", p.Name()))
		writeError(w, apperror.ValidationFailed("state", "invalid OAuth state"))
		return
	}

	// The state is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization",
			slog.String("provider", p.Name()),
			slog.String("error", errParam),
		)
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, apperror.ValidationFailed("code", "missing OAuth code"))
		return
	}

	h.actions.LoginWithProvider(p.Name(), code)
	h.store.Wait()
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) provider(r *http.Request) (auth.Provider, bool) {
	if h.providers == nil {
		return nil, false
	}
	return h.providers.Provider(chi.URLParam(r, "provider"))
}
