package web

import (
	"database/sql"
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/misnaej/the-jam-machine/internal/config"
	"github.com/misnaej/the-jam-machine/internal/errors"
	"github.com/misnaej/the-jam-machine/internal/ops"
)

// Handlers holds dependencies for the HTTP handlers.
type Handlers struct {
	db      *sql.DB
	cfg     *config.Config
	tok     ops.Tokenizer
	version string
}

// encodeRequest is the JSON body for POST /encode.
type encodeRequest struct {
	Path     string  `json:"path"`
	Name     string  `json:"name,omitempty"`
	Familize *bool   `json:"familize,omitempty"`
	Store    bool    `json:"store,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

// decodeRequest is the JSON body for POST /decode.
type decodeRequest struct {
	ID       string `json:"id,omitempty"`
	Tokens   string `json:"tokens,omitempty"`
	Output   string `json:"output"`
	Familize *bool  `json:"familize,omitempty"`
}

// HandleEncode handles POST /encode.
func (h *Handlers) HandleEncode(w http.ResponseWriter, r *http.Request) {
	var req encodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, errors.NewInvalidRequest("invalid JSON body: "+err.Error()))
		return
	}

	result, err := ops.Encode(r.Context(), h.db, h.cfg, h.tok, ops.EncodeInput{
		Path:     req.Path,
		Name:     req.Name,
		Familize: req.Familize,
		Store:    req.Store,
		Notes:    req.Notes,
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleDecode handles POST /decode.
func (h *Handlers) HandleDecode(w http.ResponseWriter, r *http.Request) {
	var req decodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, errors.NewInvalidRequest("invalid JSON body: "+err.Error()))
		return
	}

	result, err := ops.Decode(r.Context(), h.db, h.cfg, h.tok, ops.DecodeInput{
		ID:       req.ID,
		Tokens:   req.Tokens,
		Output:   req.Output,
		Familize: req.Familize,
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleList handles GET /pieces.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			renderError(w, errors.NewInvalidRequest("limit must be an integer"))
			return
		}
		limit = n
	}

	result, err := ops.List(r.Context(), h.db, h.cfg, ops.ListInput{
		Name:  q.Get("name"),
		Limit: limit,
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleFetch handles GET /pieces/{id}.
func (h *Handlers) HandleFetch(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Fetch(r.Context(), h.db, h.cfg, ops.FetchInput{ID: mux.Vars(r)["id"]})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleDelete handles DELETE /pieces/{id}.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Delete(r.Context(), h.db, h.cfg, ops.DeleteInput{ID: mux.Vars(r)["id"]})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleStats handles GET /stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Stats(r.Context(), h.db, h.cfg)
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// viewData is the template data for the piece view page.
type viewData struct {
	Name       string
	ID         string
	Familized  bool
	TrackCount int
	BarCount   int
	NoteCount  int
	UpdatedAt  string
	Tokens     string
	Notes      template.HTML
	Version    string
}

var viewTmpl = template.Must(template.New("view").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Name}}</title></head>
<body>
<h1>{{.Name}}</h1>
<p>
  <code>{{.ID}}</code> &middot;
  {{.TrackCount}} tracks, {{.BarCount}} bars, {{.NoteCount}} notes
  {{if .Familized}} &middot; familized{{end}} &middot;
  updated {{.UpdatedAt}}
</p>
{{if .Notes}}<div class="notes">{{.Notes}}</div>{{end}}
<pre>{{.Tokens}}</pre>
<footer>jam {{.Version}}</footer>
</body>
</html>
`))

// HandleView handles GET /pieces/{id}/view, a read-only HTML rendering
// of a stored piece with its markdown notes.
func (h *Handlers) HandleView(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Fetch(r.Context(), h.db, h.cfg, ops.FetchInput{ID: mux.Vars(r)["id"]})
	if err != nil {
		renderError(w, err)
		return
	}

	p := result.Piece
	data := viewData{
		Name:       p.Name,
		ID:         p.ID,
		Familized:  p.Familized,
		TrackCount: p.TrackCount,
		BarCount:   p.BarCount,
		NoteCount:  p.NoteCount,
		UpdatedAt:  formatTime(p.UpdatedAt),
		Tokens:     p.Tokens,
		Version:    h.version,
	}
	if p.Notes != nil {
		data.Notes = renderMarkdown(*p.Notes)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = viewTmpl.Execute(w, data)
}
