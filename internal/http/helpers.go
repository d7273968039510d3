package http

import (
	"errors"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"finboard/internal/core"
)

// templateFuncs are available to every page and partial.
var templateFuncs = template.FuncMap{
	"money":      formatMoney,
	"signed":     formatSigned,
	"pct":        formatPercent,
	"date":       formatDate,
	"datetime":   formatDateTime,
	"initial":    func(u *core.User) string { return u.Initial() },
	"periods":    func() []core.Period { return core.Periods },
	"pageSizes":  func() []int { return pageSizes },
	"currencies": func() []string { return core.SupportedCurrencies },
	"add":        func(a, b int) int { return a + b },
	"sub":        func(a, b int) int { return a - b },
	"field":      fieldError,
	"join":       strings.Join,
	"safeColor": func(c string) template.CSS {
		if isHexColor(c) {
			return template.CSS(c)
		}
		return template.CSS("#6b7280")
	},
	"txRow": func(tx core.Transaction, currency string, actions bool) txRow {
		return txRow{Tx: tx, Currency: currency, Actions: actions}
	},
	"barWidth": func(pct float64) string {
		return fmt.Sprintf("%.1f%%", math.Max(0, math.Min(100, pct)))
	},
	"lower":          strings.ToLower,
	"dict":           dict,
	"formValue":      formValue,
	"categoryValues": categoryValues,
	"avatarURL":      avatarURL,
}

// avatarURL lets the stored data: URL through html/template's URL filter.
// Anything that is not an image data URL or http(s) is dropped.
func avatarURL(s string) template.URL {
	switch {
	case strings.HasPrefix(s, "data:image/"), strings.HasPrefix(s, "https://"), strings.HasPrefix(s, "http://"):
		return template.URL(s)
	default:
		return ""
	}
}

// dict builds a map from alternating keys and values so a partial can take
// more than one argument.
func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, errors.New("dict: odd number of arguments")
	}
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}

// categoryValues prefills a category's edit form.
func categoryValues(c core.Category) url.Values {
	return url.Values{
		"name":        {c.Name},
		"type":        {string(c.Type)},
		"icon":        {c.Icon},
		"color":       {c.Color},
		"description": {c.Description},
	}
}

// txRow is the argument of the tx-row partial.
type txRow struct {
	Tx       core.Transaction
	Currency string
	Actions  bool
}

// formatMoney renders m in the user's currency, e.g. "$1,234.50".
func formatMoney(m core.Money, currency string) string {
	return m.Format(currency)
}

// formatSigned prefixes income with + and expenses with -.
func formatSigned(tx core.Transaction, currency string) string {
	if tx.Type == core.Expense {
		return "-" + tx.Amount.Format(currency)
	}
	return "+" + tx.Amount.Format(currency)
}

func formatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}

func formatDateTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "never"
	}
	return t.Format("Jan 2, 2006 15:04")
}

// fieldError and formValue take any so partials fed through dict accept an
// untyped nil as "no errors" or "no values".
func fieldError(errs any, name string) string {
	switch e := errs.(type) {
	case map[string]string:
		return e[name]
	case core.ValidationErrors:
		return e[name]
	}
	return ""
}

func formValue(values any, key string) string {
	switch v := values.(type) {
	case url.Values:
		return v.Get(key)
	case map[string][]string:
		return url.Values(v).Get(key)
	}
	return ""
}

func isHexColor(s string) bool {
	if (len(s) != 4 && len(s) != 7) || s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}
	return true
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}

// isHTMX reports whether r was issued by htmx rather than a full navigation.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// htmxTarget is the id of the element htmx will swap, if any.
func htmxTarget(r *http.Request) string {
	return r.Header.Get("HX-Target")
}

// redirect sends a browser to url: HX-Redirect for htmx requests, 303 otherwise.
func redirect(w http.ResponseWriter, r *http.Request, url string) {
	if isHTMX(r) {
		NewHTMXResponse().Redirect(url).Write(w)
		return
	}
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// withNotice appends a notice code to a redirect target.
func withNotice(path, code string) string {
	if code == "" {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "notice=" + code
}
