package http

import (
	"errors"
	"net/http"
	"net/url"

	"finboard/internal/api"
	applog "finboard/internal/log"
	"finboard/internal/session"
)

// authForm is the state of the login and register forms on re-render.
type authForm struct {
	Values url.Values
}

// loadSession resolves the cookie into a live session.
func (s *Server) loadSession(r *http.Request) (session.Session, bool) {
	id := session.IDFromRequest(r)
	if id == "" {
		return session.Session{}, false
	}
	sess, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			s.logger.WarnContext(r.Context(), "Session lookup failed",
				applog.FieldSessionID, id, applog.FieldError, err)
		}
		return session.Session{}, false
	}
	return sess, true
}

// withSession attaches the session when there is one but never redirects.
func (s *Server) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sess, ok := s.loadSession(r); ok {
			r = r.WithContext(session.WithContext(r.Context(), sess))
		}
		next(w, r)
	}
}

// requireAuth redirects visitors without a live session to the login page.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.loadSession(r)
		if !ok {
			if session.IDFromRequest(r) != "" {
				http.SetCookie(w, session.ClearCookie(s.cookieSecure))
			}
			redirect(w, r, "/auth/login")
			return
		}
		next(w, r.WithContext(session.WithContext(r.Context(), sess)))
	}
}

// requireAuthJSON is requireAuth for endpoints read by scripts: it answers
// 401 with the login location instead of redirecting.
func (s *Server) requireAuthJSON(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.loadSession(r)
		if !ok {
			s.writeJSON(w, http.StatusUnauthorized, map[string]string{"redirect": "/auth/login"})
			return
		}
		next(w, r.WithContext(session.WithContext(r.Context(), sess)))
	}
}

// client returns the API client bound to the session's token.
func (s *Server) client(r *http.Request) *api.Client {
	sess, _ := session.FromContext(r.Context())
	return s.api.WithToken(sess.Token)
}

func currentSession(r *http.Request) session.Session {
	sess, _ := session.FromContext(r.Context())
	return sess
}

// sessionRejected records a failed backend call. When the backend refused
// the token it ends the session, redirects to login and returns true; the
// caller must not write anything else.
func (s *Server) sessionRejected(w http.ResponseWriter, r *http.Request, op string, err error) bool {
	s.appMetrics.apiErrors.Add(1)
	if !errors.Is(err, api.ErrUnauthorized) {
		s.structuredLogger.LogError(r.Context(), "Backend call failed", err, applog.ComponentAPI, op, nil)
		return false
	}
	s.expireSession(w, r)
	redirect(w, r, withNotice("/auth/login", "expired"))
	return true
}

// expireSession forgets the current session on both sides.
func (s *Server) expireSession(w http.ResponseWriter, r *http.Request) {
	id := currentSession(r).ID
	if id == "" {
		id = session.IDFromRequest(r)
	}
	if id != "" {
		if err := s.sessions.Delete(r.Context(), id); err != nil {
			s.logger.WarnContext(r.Context(), "Session delete failed",
				applog.FieldSessionID, id, applog.FieldError, err)
		}
		s.invalidate(id)
		s.appMetrics.sessionsEnded.Add(1)
	}
	http.SetCookie(w, session.ClearCookie(s.cookieSecure))
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := session.FromContext(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	p := s.newPage(r, "Sign in", "login")
	p.Data = authForm{Values: url.Values{}}
	s.render(w, r, http.StatusOK, "login.html", p)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	p := s.newPage(r, "Sign in", "login")
	p.Data = authForm{Values: url.Values{"email": {r.PostForm.Get("email")}}}

	creds, verrs := ParseCredentialsForm(r.PostForm)
	if verrs != nil {
		p.Errors = verrs
		s.render(w, r, http.StatusUnprocessableEntity, "login.html", p)
		return
	}

	// A 401 here means wrong credentials: show the backend message.
	res, err := s.api.Login(r.Context(), creds)
	if err != nil {
		s.appMetrics.apiErrors.Add(1)
		s.logger.WarnContext(r.Context(), "Login rejected",
			applog.FieldOperation, applog.OpLogin, applog.FieldError, err)
		p.Notice = errorNotice(err)
		p.Errors = fieldMessages(err)
		s.render(w, r, statusFor(err), "login.html", p)
		return
	}
	s.startSession(w, r, res, "/dashboard")
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := session.FromContext(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	p := s.newPage(r, "Create account", "register")
	p.Data = authForm{Values: url.Values{}}
	s.render(w, r, http.StatusOK, "register.html", p)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	p := s.newPage(r, "Create account", "register")
	p.Data = authForm{Values: url.Values{
		"name":  {r.PostForm.Get("name")},
		"email": {r.PostForm.Get("email")},
	}}

	reg, verrs := ParseRegistrationForm(r.PostForm)
	if verrs != nil {
		p.Errors = verrs
		s.render(w, r, http.StatusUnprocessableEntity, "register.html", p)
		return
	}

	res, err := s.api.Register(r.Context(), reg)
	if err != nil {
		s.appMetrics.apiErrors.Add(1)
		s.logger.WarnContext(r.Context(), "Registration rejected", applog.FieldError, err)
		p.Notice = errorNotice(err)
		p.Errors = fieldMessages(err)
		s.render(w, r, statusFor(err), "register.html", p)
		return
	}
	s.startSession(w, r, res, withNotice("/dashboard", "welcome"))
}

// startSession stores the token issued by login or register and sends the
// browser on to next.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, res api.AuthResult, next string) {
	sess := session.New(res.Token, res.User, s.sessionTTL, s.now())
	if err := s.sessions.Create(r.Context(), sess); err != nil {
		s.structuredLogger.LogError(r.Context(), "Session create failed", err,
			applog.ComponentSession, applog.OpCreate, nil)
		InternalServerError("Could not start your session. Please try again.").Write(w)
		return
	}
	http.SetCookie(w, session.Cookie(sess, s.cookieSecure))
	s.logger.InfoContext(r.Context(), "Signed in",
		applog.FieldSessionID, sess.ID, applog.FieldUserID, res.User.ID)
	redirect(w, r, next)
}

// handleLogout tells the backend, whose answer is ignored, then drops the
// local session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.loadSession(r); ok {
		if err := s.api.WithToken(sess.Token).Logout(r.Context()); err != nil {
			s.logger.DebugContext(r.Context(), "Backend logout failed",
				applog.FieldOperation, applog.OpLogout, applog.FieldError, err)
		}
		r = r.WithContext(session.WithContext(r.Context(), sess))
	}
	s.expireSession(w, r)
	redirect(w, r, withNotice("/auth/login", "signed-out"))
}

// fieldMessages returns the backend's per-field errors, if any.
func fieldMessages(err error) map[string]string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.FieldMessages()
	}
	return nil
}
