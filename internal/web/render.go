package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"html/template"
	"net/http"
	"time"

	"github.com/yuin/goldmark"

	"github.com/misnaej/the-jam-machine/internal/errors"
)

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderError writes a structured JSON error response.
func renderError(w http.ResponseWriter, err error) {
	var jamErr *errors.JamError
	if !stderrors.As(err, &jamErr) {
		jamErr = errors.NewInternal(err)
	}

	renderJSON(w, jamErr.Status, map[string]any{
		"error": map[string]any{
			"code":    string(jamErr.Code),
			"message": jamErr.Message,
			"status":  jamErr.Status,
		},
	})
}

// renderMarkdown converts markdown text to HTML using goldmark.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// formatTime formats a Unix timestamp as "2006-01-02 15:04" UTC.
func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}
