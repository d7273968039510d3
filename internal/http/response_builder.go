package http

// Builder for htmx responses: HX-Trigger events, notices and redirects.

import (
	"encoding/json"
	"html/template"
	"net/http"
)

// HTMXResponseBuilder assembles the headers, triggers and body of a response
// that htmx will act on.
type HTMXResponseBuilder struct {
	triggers   map[string]any
	statusCode int
	body       []byte
	headers    map[string]string
}

// NewHTMXResponse starts a 200 response with no triggers.
func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named event to HX-Trigger. A later call with the same name
// replaces the payload.
func (b *HTMXResponseBuilder) Trigger(name string, data any) *HTMXResponseBuilder {
	b.triggers[name] = data
	return b
}

// TriggerTransactionsChanged tells listening widgets (summary cards, recent
// list, chart) to reload after a transaction mutation.
func (b *HTMXResponseBuilder) TriggerTransactionsChanged(action string) *HTMXResponseBuilder {
	return b.Trigger("transactions:changed", map[string]string{"action": action})
}

func (b *HTMXResponseBuilder) TriggerCategoriesChanged() *HTMXResponseBuilder {
	return b.Trigger("categories:changed", struct{}{})
}

// Redirect makes htmx navigate to url once the response is processed.
func (b *HTMXResponseBuilder) Redirect(url string) *HTMXResponseBuilder {
	return b.Header("HX-Redirect", url)
}

// NotificationType is the toast style picked up by app.js.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
	NotificationInfo    NotificationType = "info"
)

// Toast durations in milliseconds. Errors stay up longer.
const (
	noticeDurationMs      = 3000
	errorNoticeDurationMs = 5000
)

// TriggerNotification adds a show-notification event.
func (b *HTMXResponseBuilder) TriggerNotification(notifType NotificationType, message string, durationMs int) *HTMXResponseBuilder {
	return b.Trigger("show-notification", map[string]any{
		"type":     string(notifType),
		"message":  message,
		"duration": durationMs,
	})
}

// Notify turns a page notice into a toast for htmx swaps, which never show
// the layout's banner.
func (b *HTMXResponseBuilder) Notify(n Notice) *HTMXResponseBuilder {
	d := noticeDurationMs
	if n.Type == NotificationError {
		d = errorNoticeDurationMs
	}
	return b.TriggerNotification(n.Type, n.Message, d)
}

func (b *HTMXResponseBuilder) TriggerErrorNotification(message string) *HTMXResponseBuilder {
	return b.Notify(Notice{Type: NotificationError, Message: message})
}

func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *HTMXResponseBuilder) Body(content []byte) *HTMXResponseBuilder {
	b.body = content
	return b
}

// Write sends the response. Triggers that fail to encode are dropped rather
// than failing the response.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if len(b.triggers) > 0 {
		if triggerJSON, err := json.Marshal(b.triggers); err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}

	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// errorFragment is a bare error message for failures that happen before any
// page can be rendered. The message is escaped.
func errorFragment(statusCode int, message string) *HTMXResponseBuilder {
	return NewHTMXResponse().
		Status(statusCode).
		Header("Content-Type", "text/html; charset=utf-8").
		TriggerErrorNotification(message).
		Body([]byte(`<div class="notice notice-error">` + template.HTMLEscapeString(message) + `</div>`))
}

func BadRequestError(message string) *HTMXResponseBuilder {
	return errorFragment(http.StatusBadRequest, message)
}

func InternalServerError(message string) *HTMXResponseBuilder {
	return errorFragment(http.StatusInternalServerError, message)
}

func NotFoundError(message string) *HTMXResponseBuilder {
	return errorFragment(http.StatusNotFound, message)
}
