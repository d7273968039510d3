package http

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"finboard/internal/api"
	"finboard/internal/avatar"
	"finboard/internal/core"
	applog "finboard/internal/log"
)

// profileView is the body of profile.html.
type profileView struct {
	// Section names the form being re-rendered: "profile" or "preferences".
	Section string
	Values  url.Values
}

func profileValues(u core.User) url.Values {
	return url.Values{
		"name":     {u.Name},
		"phone":    {u.Phone},
		"currency": {u.DisplayCurrency()},
		"timezone": {u.Timezone},
	}
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r, "Profile", "profile")

	u, err := s.client(r).Profile(r.Context())
	if err != nil {
		if s.sessionRejected(w, r, applog.OpRead, err) {
			return
		}
		p.Notice = errorNotice(err)
	} else {
		s.storeUser(r, u)
		p.User = &u
	}
	p.Data = profileView{Values: profileValues(*p.User)}
	s.render(w, r, http.StatusOK, "profile.html", p)
}

// handleUpdateProfile saves either the profile or the preferences section,
// picked by the section field.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	p := s.newPage(r, "Profile", "profile")
	section := r.PostForm.Get("section")
	view := profileView{Section: section, Values: profileValues(*p.User)}

	var (
		u      core.User
		err    error
		notice string
	)
	switch section {
	case "preferences":
		in, verrs := ParsePreferencesForm(r.PostForm)
		if verrs != nil {
			p.Errors = verrs
			p.Data = view
			s.render(w, r, http.StatusUnprocessableEntity, "profile.html", p)
			return
		}
		u, err = s.client(r).UpdatePreferences(r.Context(), in)
		notice = "prefs-saved"
	case "profile", "":
		view.Section = "profile"
		view.Values = r.PostForm
		in, verrs := ParseProfileForm(r.PostForm)
		if verrs != nil {
			p.Errors = verrs
			p.Data = view
			s.render(w, r, http.StatusUnprocessableEntity, "profile.html", p)
			return
		}
		u, err = s.client(r).UpdateProfile(r.Context(), in)
		notice = "profile-saved"
	default:
		BadRequestError("Unknown profile section").Write(w)
		return
	}

	if err != nil {
		if s.sessionRejected(w, r, applog.OpUpdate, err) {
			return
		}
		p.Notice = errorNotice(err)
		p.Errors = fieldMessages(err)
		p.Data = view
		s.render(w, r, statusFor(err), "profile.html", p)
		return
	}

	s.storeUser(r, u)
	redirect(w, r, withNotice("/dashboard/profile", notice))
}

// handleAvatarUpload crops the uploaded image to the posted rectangle and
// saves it as the profile picture.
func (s *Server) handleAvatarUpload(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r, "Profile", "profile")
	p.Data = profileView{Section: "avatar", Values: profileValues(*p.User)}
	fail := func(status int, msg string) {
		p.Notice = &Notice{Type: NotificationError, Message: msg}
		s.render(w, r, status, "profile.html", p)
	}

	// room for the other multipart fields on top of the image
	r.Body = http.MaxBytesReader(w, r.Body, avatar.MaxUploadBytes+64<<10)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			fail(http.StatusRequestEntityTooLarge, "Image must be smaller than 5MB.")
			return
		}
		fail(http.StatusBadRequest, "Invalid upload.")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("avatar")
	if err != nil {
		fail(http.StatusUnprocessableEntity, "Choose an image to upload.")
		return
	}
	defer file.Close()
	if ct := header.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		fail(http.StatusUnprocessableEntity, "Please select an image file.")
		return
	}

	cropped, err := avatar.Crop(file, ParseCropRect(url.Values(r.MultipartForm.Value)))
	if err != nil {
		s.logger.WithComponent(applog.ComponentAvatar).WarnContext(r.Context(), "Avatar crop failed", applog.FieldError, err)
		switch {
		case errors.Is(err, avatar.ErrTooLarge):
			fail(http.StatusRequestEntityTooLarge, "Image must be smaller than 5MB.")
		case errors.Is(err, avatar.ErrEmptyCrop):
			fail(http.StatusUnprocessableEntity, "Select an area of the image to crop.")
		default:
			fail(http.StatusUnprocessableEntity, "The image could not be read.")
		}
		return
	}

	u, err := s.client(r).UploadAvatar(r.Context(), avatar.DataURL(cropped))
	if err != nil {
		if s.sessionRejected(w, r, applog.OpUpdate, err) {
			return
		}
		fail(statusFor(err), api.UserMessage(err))
		return
	}

	s.storeUser(r, u)
	redirect(w, r, withNotice("/dashboard/profile", "avatar-saved"))
}

// storeUser keeps the session's copy of the user in step with the backend.
func (s *Server) storeUser(r *http.Request, u core.User) {
	sess := currentSession(r)
	if sess.ID == "" || u.ID == "" {
		return
	}
	if err := s.sessions.UpdateUser(r.Context(), sess.ID, u); err != nil {
		s.logger.WarnContext(r.Context(), "Session user update failed",
			applog.FieldSessionID, sess.ID, applog.FieldError, err)
	}
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "settings.html", s.newPage(r, "Settings", "settings"))
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	p := s.newPage(r, "Settings", "settings")

	in, verrs := ParsePasswordForm(r.PostForm)
	if verrs != nil {
		p.Errors = verrs
		s.render(w, r, http.StatusUnprocessableEntity, "settings.html", p)
		return
	}

	if err := s.client(r).UpdatePassword(r.Context(), in.CurrentPassword, in.NewPassword); err != nil {
		if s.sessionRejected(w, r, applog.OpUpdate, err) {
			return
		}
		p.Notice = errorNotice(err)
		p.Errors = fieldMessages(err)
		s.render(w, r, statusFor(err), "settings.html", p)
		return
	}
	redirect(w, r, withNotice("/dashboard/settings", "password-changed"))
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	p := s.newPage(r, "Settings", "settings")

	password := r.PostForm.Get("password")
	if password == "" {
		p.Errors = map[string]string{"password": "Enter your password to confirm"}
		s.render(w, r, http.StatusUnprocessableEntity, "settings.html", p)
		return
	}
	if strings.TrimSpace(r.PostForm.Get("confirm")) != "DELETE" {
		p.Errors = map[string]string{"confirm": "Type DELETE to confirm"}
		s.render(w, r, http.StatusUnprocessableEntity, "settings.html", p)
		return
	}

	if err := s.client(r).DeleteAccount(r.Context(), password); err != nil {
		if s.sessionRejected(w, r, applog.OpDelete, err) {
			return
		}
		p.Notice = errorNotice(err)
		p.Errors = fieldMessages(err)
		s.render(w, r, statusFor(err), "settings.html", p)
		return
	}

	s.logger.InfoContext(r.Context(), "Account deleted", applog.FieldUserID, currentSession(r).User.ID)
	s.expireSession(w, r)
	redirect(w, r, withNotice("/auth/login", "account-deleted"))
}

// exportPageSize and exportMaxPages bound a CSV export to 10000 rows.
const (
	exportPageSize = 100
	exportMaxPages = 100
)

// handleExportCSV downloads every transaction as CSV. All pages are fetched
// before the first byte is written so a failure can still render a page.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	client := s.client(r)
	var all []core.Transaction
	for page := 1; page <= exportMaxPages; page++ {
		res, err := client.Transactions(r.Context(), api.TransactionFilter{Page: page, Limit: exportPageSize, Sort: "date"})
		if err != nil {
			if s.sessionRejected(w, r, applog.OpList, err) {
				return
			}
			s.mutationFailed(w, r, "/dashboard/settings", err)
			return
		}
		all = append(all, res.Transactions...)
		if page >= res.Pagination.Pages || len(res.Transactions) == 0 {
			break
		}
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="transactions-%s.csv"`, s.now().Format(core.DateLayout)))
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"Date", "Title", "Type", "Category", "Amount", "Status", "Tags", "Notes"})
	for _, tx := range all {
		_ = cw.Write([]string{
			tx.DateString(),
			csvText(tx.Title),
			string(tx.Type),
			csvText(tx.Category.Name),
			tx.Signed().Plain(),
			string(tx.Status),
			csvText(strings.Join(tx.Tags, ";")),
			csvText(tx.Notes),
		})
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		s.logger.WarnContext(r.Context(), "CSV export interrupted", applog.FieldError, err)
	}
}

// csvText keeps user text from being read as a formula by spreadsheets.
func csvText(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
