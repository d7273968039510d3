package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"finboard/internal/api"
	"finboard/internal/core"
	applog "finboard/internal/log"
	"finboard/internal/session"
)

// Notice is the banner shown at the top of a page.
type Notice struct {
	Type    NotificationType
	Message string
}

// pageData is what every page template receives.
type pageData struct {
	Title  string
	Active string
	User   *core.User
	Notice *Notice
	// Errors holds field messages for the form being re-rendered.
	Errors map[string]string
	// LoadFailed marks a page whose backend reads failed.
	LoadFailed bool
	Data       any
}

// Dark selects the dark theme on <html>.
func (p pageData) Dark() bool {
	return p.User != nil && p.User.IsDark()
}

// Currency is the signed-in user's display currency.
func (p pageData) Currency() string {
	if p.User == nil {
		return "USD"
	}
	return p.User.DisplayCurrency()
}

// notices are the fixed messages a redirect can carry in ?notice=.
var notices = map[string]Notice{
	"expired":          {NotificationWarning, "Your session has expired. Please sign in again."},
	"signed-out":       {NotificationInfo, "You have been signed out."},
	"welcome":          {NotificationSuccess, "Welcome! Your account is ready."},
	"tx-created":       {NotificationSuccess, "Transaction added."},
	"tx-updated":       {NotificationSuccess, "Transaction updated."},
	"tx-deleted":       {NotificationSuccess, "Transaction deleted."},
	"cat-created":      {NotificationSuccess, "Category created."},
	"cat-updated":      {NotificationSuccess, "Category updated."},
	"cat-deleted":      {NotificationSuccess, "Category deleted."},
	"cat-defaults":     {NotificationSuccess, "Default categories added."},
	"profile-saved":    {NotificationSuccess, "Profile updated."},
	"prefs-saved":      {NotificationSuccess, "Preferences saved."},
	"avatar-saved":     {NotificationSuccess, "Profile picture updated."},
	"password-changed": {NotificationSuccess, "Password changed."},
	"account-deleted":  {NotificationInfo, "Your account has been deleted."},
}

// newPage starts the page data for r, picking up the session user and any
// notice carried by the URL.
func (s *Server) newPage(r *http.Request, title, active string) pageData {
	p := pageData{Title: title, Active: active}
	if sess, ok := session.FromContext(r.Context()); ok {
		u := sess.User
		p.User = &u
	}
	if n, ok := notices[r.URL.Query().Get("notice")]; ok {
		p.Notice = &n
	}
	return p
}

// render executes the layout of page into a buffer so template errors never
// leave a half-written response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	s.execute(w, r, status, page, "layout", data)
}

// renderPartial executes one named template, for htmx swaps.
func (s *Server) renderPartial(w http.ResponseWriter, r *http.Request, status int, page, name string, data pageData) {
	s.execute(w, r, status, page, name, data)
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request, status int, page, name string, data pageData) {
	t, ok := s.pages[page]
	if !ok {
		s.logger.WithComponent(applog.ComponentTemplate).ErrorContext(r.Context(), "Unknown template", "template", page)
		InternalServerError("Page unavailable").Write(w)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		s.structuredLogger.LogError(r.Context(), "Template render failed", err,
			applog.ComponentTemplate, applog.OpRender,
			applog.NewFields().WithHTTPRequest(r.Method, r.URL.Path, "", "", ""))
		InternalServerError("Page unavailable").Write(w)
		return
	}

	b := NewHTMXResponse().Status(status).Header("Content-Type", "text/html; charset=utf-8").Body(buf.Bytes())
	if data.Notice != nil && isHTMX(r) {
		b.Notify(*data.Notice)
	}
	b.Write(w)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("JSON encode failed", applog.FieldError, err)
	}
}

// errorNotice is the notification for a failed backend call.
func errorNotice(err error) *Notice {
	return &Notice{Type: NotificationError, Message: api.UserMessage(err)}
}

// statusFor maps a backend failure onto the status of our own response.
func statusFor(err error) int {
	switch {
	case errors.Is(err, api.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, api.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, api.ErrServer):
		return http.StatusBadGateway
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		return apiErr.Status
	}
	return http.StatusBadGateway
}
