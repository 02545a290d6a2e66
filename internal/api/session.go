package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"gwi.com/prompt-relay/internal/auth"
	"gwi.com/prompt-relay/internal/logging"
)

const (
	sessionCookie = "session"
	flashCookie   = "flash"

	sessionTTL = 24 * time.Hour
)

type sessionKey struct{}

// SessionManager keeps the caller's session in a signed cookie. Every
// request gets a session; anonymous ones carry only an id.
type SessionManager struct {
	secret []byte
	logger logging.Logger
}

func NewSessionManager(secret []byte, logger logging.Logger) *SessionManager {
	return &SessionManager{secret: secret, logger: logger}
}

func (m *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := m.read(r)
		if !ok {
			session = auth.Session{ID: uuid.NewString()}
			m.Save(w, session)
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *SessionManager) read(r *http.Request) (auth.Session, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return auth.Session{}, false
	}
	session, err := auth.ParseSessionToken(c.Value, m.secret)
	if err != nil {
		m.logger.Debug(r.Context(), "discarding session cookie", "error", err)
		return auth.Session{}, false
	}
	return session, true
}

// Save replaces the session cookie.
func (m *SessionManager) Save(w http.ResponseWriter, session auth.Session) {
	token, err := auth.GenerateSessionToken(session, m.secret, sessionTTL)
	if err != nil {
		m.logger.Error(context.Background(), "failed to sign session", "error", err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionFromContext returns the zero Session when no middleware ran.
func SessionFromContext(ctx context.Context) auth.Session {
	s, _ := ctx.Value(sessionKey{}).(auth.Session)
	return s
}

func setFlash(w http.ResponseWriter, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(msg),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns the pending flash message and clears it.
func popFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return ""
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1})
	msg, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return msg
}

func redirectWithFlash(w http.ResponseWriter, r *http.Request, to, msg string) {
	setFlash(w, msg)
	http.Redirect(w, r, to, http.StatusSeeOther)
}
