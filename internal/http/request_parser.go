package http

// Form and query parsing. Every parser trims and sanitizes input and returns
// the core input type plus field errors keyed by the form field name.

import (
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"finboard/internal/api"
	"finboard/internal/avatar"
	"finboard/internal/core"
)

// Page sizes offered by the transaction list.
var pageSizes = []int{10, 20, 50}

const defaultPageSize = 10

// ListParams is the transaction list query as read from the URL.
type ListParams struct {
	Search   string
	Type     core.TxType
	Category string
	Page     int
	Limit    int
}

// Filter converts the params into the backend query.
func (p ListParams) Filter() api.TransactionFilter {
	return api.TransactionFilter{
		Search:   p.Search,
		Type:     p.Type,
		Category: p.Category,
		Page:     p.Page,
		Limit:    p.Limit,
		Sort:     "-date",
	}
}

// Query renders the params back into a URL query, with page replaced.
func (p ListParams) Query(page int) string {
	q := url.Values{}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.Type != "" {
		q.Set("type", string(p.Type))
	}
	if p.Category != "" {
		q.Set("category", p.Category)
	}
	if p.Limit != defaultPageSize {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	return q.Encode()
}

// ParseListParams reads search, type, category, page and limit. Unknown types
// mean "all", limits outside the offered sizes fall back to 10 and pages
// below 1 become 1.
func ParseListParams(query url.Values) ListParams {
	p := ListParams{
		Search:   sanitizeInput(query.Get("search")),
		Category: sanitizeInput(query.Get("category")),
		Page:     1,
		Limit:    defaultPageSize,
	}
	if typ, err := core.ParseTxType(strings.TrimSpace(query.Get("type"))); err == nil {
		p.Type = typ
	}
	if v, err := strconv.Atoi(strings.TrimSpace(query.Get("page"))); err == nil && v > 1 {
		p.Page = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(query.Get("limit"))); err == nil {
		for _, size := range pageSizes {
			if v == size {
				p.Limit = v
			}
		}
	}
	return p
}

// AnalyticsParams selects the aggregation window and, optionally, one type.
type AnalyticsParams struct {
	Period core.Period
	Type   core.TxType
}

// ParseAnalyticsParams defaults to the current month and both types.
func ParseAnalyticsParams(query url.Values) AnalyticsParams {
	p := AnalyticsParams{Period: core.ParsePeriod(query.Get("period"))}
	if typ, err := core.ParseTxType(strings.TrimSpace(query.Get("type"))); err == nil {
		p.Type = typ
	}
	return p
}

// ParseTransactionForm reads the transaction create/edit form. Amount errors
// are reported alongside validator errors so the form shows all of them at once.
func ParseTransactionForm(form url.Values) (core.TransactionInput, core.ValidationErrors) {
	in := core.TransactionInput{
		Title:       sanitizeInput(form.Get("title")),
		Description: sanitizeInput(form.Get("description")),
		Type:        core.TxType(strings.TrimSpace(form.Get("type"))),
		Category:    sanitizeInput(form.Get("category")),
		Date:        strings.TrimSpace(form.Get("date")),
		Tags:        splitTags(form.Get("tags")),
		Notes:       sanitizeInput(form.Get("notes")),
	}

	errs := core.ValidationErrors{}
	amount, err := core.ParseAmount(form.Get("amount"))
	if err != nil {
		errs["amount"] = amountMessage(err)
	}
	in.Amount = amount

	mergeValidation(errs, core.Validate(in))
	if len(errs) == 0 {
		return in, nil
	}
	return in, errs
}

// TransactionFormValues rebuilds the form state from a stored transaction.
func TransactionFormValues(tx core.Transaction) url.Values {
	return url.Values{
		"title":       {tx.Title},
		"description": {tx.Description},
		"amount":      {tx.Amount.Plain()},
		"type":        {string(tx.Type)},
		"category":    {tx.Category.ID},
		"date":        {tx.DateString()},
		"tags":        {strings.Join(tx.Tags, ", ")},
		"notes":       {tx.Notes},
	}
}

func amountMessage(err error) string {
	if errors.Is(err, core.ErrInvalidAmount) {
		return "Enter a positive amount with at most two decimals"
	}
	return "Invalid amount"
}

func splitTags(raw string) []string {
	var tags []string
	seen := map[string]bool{}
	for _, part := range strings.Split(raw, ",") {
		tag := sanitizeInput(part)
		if tag == "" || seen[strings.ToLower(tag)] {
			continue
		}
		seen[strings.ToLower(tag)] = true
		tags = append(tags, tag)
	}
	return tags
}

// ParseCategoryForm reads the category create/edit form.
func ParseCategoryForm(form url.Values) (core.CategoryInput, core.ValidationErrors) {
	in := core.CategoryInput{
		Name:        sanitizeInput(form.Get("name")),
		Type:        core.TxType(strings.TrimSpace(form.Get("type"))),
		Icon:        sanitizeInput(form.Get("icon")),
		Color:       strings.TrimSpace(form.Get("color")),
		Description: sanitizeInput(form.Get("description")),
	}
	errs := core.ValidationErrors{}
	mergeValidation(errs, core.Validate(in))
	if len(errs) == 0 {
		return in, nil
	}
	return in, errs
}

// ParseProfileForm reads the profile section of the profile page.
func ParseProfileForm(form url.Values) (core.ProfileInput, core.ValidationErrors) {
	in := core.ProfileInput{
		Name:     sanitizeInput(form.Get("name")),
		Phone:    sanitizeInput(form.Get("phone")),
		Currency: strings.ToUpper(strings.TrimSpace(form.Get("currency"))),
		Timezone: strings.TrimSpace(form.Get("timezone")),
	}
	errs := core.ValidationErrors{}
	mergeValidation(errs, core.Validate(in))
	if len(errs) == 0 {
		return in, nil
	}
	return in, errs
}

// ParsePreferencesForm reads the preferences section. Unchecked boxes are
// absent from the form and mean false.
func ParsePreferencesForm(form url.Values) (core.PreferencesInput, core.ValidationErrors) {
	in := core.PreferencesInput{
		Theme: core.Theme(strings.TrimSpace(form.Get("theme"))),
		Notifications: core.Notifications{
			Email:        checked(form, "notifyEmail"),
			Push:         checked(form, "notifyPush"),
			WeeklyReport: checked(form, "weeklyReport"),
		},
		BudgetAlerts: checked(form, "budgetAlerts"),
	}
	errs := core.ValidationErrors{}
	mergeValidation(errs, core.Validate(in))
	if len(errs) == 0 {
		return in, nil
	}
	return in, errs
}

// ParsePasswordForm reads the change-password form. Passwords are not trimmed.
func ParsePasswordForm(form url.Values) (core.PasswordChangeInput, core.ValidationErrors) {
	in := core.PasswordChangeInput{
		CurrentPassword: form.Get("currentPassword"),
		NewPassword:     form.Get("newPassword"),
		ConfirmPassword: form.Get("confirmPassword"),
	}
	errs := core.ValidationErrors{}
	mergeValidation(errs, core.Validate(in))
	// the confirm field has no JSON name, so the validator reports it by Go name
	if msg, ok := errs["ConfirmPassword"]; ok {
		delete(errs, "ConfirmPassword")
		errs["confirmPassword"] = msg
	}
	if len(errs) == 0 {
		return in, nil
	}
	return in, errs
}

// ParseCredentialsForm reads the login form.
func ParseCredentialsForm(form url.Values) (core.Credentials, core.ValidationErrors) {
	in := core.Credentials{
		Email:    strings.ToLower(strings.TrimSpace(form.Get("email"))),
		Password: form.Get("password"),
	}
	errs := core.ValidationErrors{}
	mergeValidation(errs, core.Validate(in))
	if len(errs) == 0 {
		return in, nil
	}
	return in, errs
}

// ParseRegistrationForm reads the sign-up form, including the confirmation.
func ParseRegistrationForm(form url.Values) (core.Registration, core.ValidationErrors) {
	in := core.Registration{
		Name:     sanitizeInput(form.Get("name")),
		Email:    strings.ToLower(strings.TrimSpace(form.Get("email"))),
		Password: form.Get("password"),
	}
	errs := core.ValidationErrors{}
	mergeValidation(errs, core.Validate(in))
	if confirm := form.Get("confirmPassword"); confirm != in.Password {
		errs["confirmPassword"] = "Passwords do not match"
	}
	if len(errs) == 0 {
		return in, nil
	}
	return in, errs
}

// ParseCropRect reads the crop rectangle posted by the avatar cropper. A
// missing or unreadable rectangle selects the whole image, which Crop clamps
// to the image bounds.
func ParseCropRect(form url.Values) avatar.Rect {
	x, errX := strconv.ParseFloat(strings.TrimSpace(form.Get("x")), 64)
	y, errY := strconv.ParseFloat(strings.TrimSpace(form.Get("y")), 64)
	w, errW := strconv.ParseFloat(strings.TrimSpace(form.Get("width")), 64)
	h, errH := strconv.ParseFloat(strings.TrimSpace(form.Get("height")), 64)
	if errX != nil || errY != nil || errW != nil || errH != nil {
		return avatar.Rect{Width: math.MaxInt32, Height: math.MaxInt32}
	}
	return avatar.Rect{
		X:      int(math.Round(x)),
		Y:      int(math.Round(y)),
		Width:  int(math.Round(w)),
		Height: int(math.Round(h)),
	}
}

// DefaultFormDate is today's date for a new transaction.
func DefaultFormDate(now time.Time) string {
	return now.Format(core.DateLayout)
}

func checked(form url.Values, key string) bool {
	switch strings.ToLower(strings.TrimSpace(form.Get(key))) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

func mergeValidation(into core.ValidationErrors, err error) {
	var verrs core.ValidationErrors
	if errors.As(err, &verrs) {
		for field, msg := range verrs {
			if _, ok := into[field]; !ok {
				into[field] = msg
			}
		}
	}
}

// ParseFormOrFail parses the request form and returns an error response on failure.
// Returns nil on success.
func ParseFormOrFail(r *http.Request) *HTMXResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Invalid request format")
	}
	return nil
}
