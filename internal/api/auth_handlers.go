package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"gwi.com/prompt-relay/internal/auth"
	"gwi.com/prompt-relay/internal/common"
)

// RequirePageAuth sends anonymous visitors to the login form.
func (h *APIHandler) RequirePageAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !SessionFromContext(r.Context()).Authenticated() {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAPIAuth answers anonymous callers with 401 instead of a redirect.
func (h *APIHandler) RequireAPIAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !SessionFromContext(r.Context()).Authenticated() {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *APIHandler) renderForm(w http.ResponseWriter, r *http.Request, page, title string) {
	h.pages.Render(w, r, page, pageData{
		Title:       title,
		Flash:       popFlash(w, r),
		Username:    SessionFromContext(r.Context()).Username,
		AuthEnabled: h.authEnabled,
	})
}

func (h *APIHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, "register", "Register")
}

func (h *APIHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	session := SessionFromContext(r.Context())

	err := h.auth.Register(r.Context(), session.ID,
		r.PostFormValue("username"), r.PostFormValue("email"), r.PostFormValue("password"))
	switch {
	case err == nil:
		redirectWithFlash(w, r, "/verify_otp", "A verification code was sent to your email.")
	case errors.Is(err, common.ErrMissingFields):
		redirectWithFlash(w, r, "/register", "All fields are required.")
	case errors.Is(err, common.ErrUserExists):
		redirectWithFlash(w, r, "/register", "Username or email already exists.")
	default:
		h.logger.Error(r.Context(), "registration failed", "error", err)
		redirectWithFlash(w, r, "/register", "Could not send the verification code. Please try again later.")
	}
}

func (h *APIHandler) VerifyOTPPage(w http.ResponseWriter, r *http.Request) {
	if !h.auth.HasPending(SessionFromContext(r.Context()).ID) {
		redirectWithFlash(w, r, "/register", "Please register first.")
		return
	}
	h.renderForm(w, r, "verify_otp", "Verify your email")
}

func (h *APIHandler) VerifyOTPHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	session := SessionFromContext(r.Context())

	code, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("otp")))
	if err != nil {
		redirectWithFlash(w, r, "/verify_otp", "Invalid verification code.")
		return
	}

	_, err = h.auth.VerifyOTP(r.Context(), session.ID, code)
	switch {
	case err == nil:
		redirectWithFlash(w, r, "/login", "Registration complete. Please log in.")
	case errors.Is(err, common.ErrInvalidOTP):
		redirectWithFlash(w, r, "/verify_otp", "Invalid verification code.")
	case errors.Is(err, common.ErrNoPendingRegistration):
		redirectWithFlash(w, r, "/register", "Please register first.")
	default:
		h.logger.Error(r.Context(), "account creation failed", "error", err)
		redirectWithFlash(w, r, "/register", "Registration failed. Please try again.")
	}
}

func (h *APIHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, "login", "Log in")
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	user, err := h.auth.Login(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		if !errors.Is(err, common.ErrInvalidCredentials) {
			h.logger.Error(r.Context(), "login failed", "error", err)
		}
		redirectWithFlash(w, r, "/login", "Invalid username or password.")
		return
	}

	// fresh id on privilege change
	h.sessions.Save(w, auth.Session{ID: uuid.NewString(), UserID: user.ID, Username: user.Username})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// LogoutHandler swaps the cookie for an anonymous session. Sessions are
// stateless signed tokens, so a copy of the old cookie stays valid until it
// expires.
func (h *APIHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	h.sessions.Save(w, auth.Session{ID: uuid.NewString()})
	redirectWithFlash(w, r, "/login", "You have been logged out.")
}
