package knowledge

import (
	"context"
	"crypto/subtle"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	model "github.com/zhouzirui/campus-chat/backend/internal/model/knowledge"
	"github.com/zhouzirui/campus-chat/backend/pkg/utils"
)

const sampleSize = 3

// Store is the knowledge base as seen by the debug and admin pages.
type Store interface {
	Context(ctx context.Context) model.Snapshot
	Flush(ctx context.Context) error
	Source() string
	TTL() time.Duration
}

// Handler serves the knowledge status endpoint and the small admin page.
type Handler struct {
	store      Store
	adminToken string
}

// New creates the handler. An empty adminToken leaves the admin page open.
func New(store Store, adminToken string) *Handler {
	return &Handler{store: store, adminToken: adminToken}
}

// RegisterRoutes 注册知识库相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/debug/csv", h.handleDebug)
	r.Route("/admin", func(admin chi.Router) {
		admin.Use(h.requireToken)
		admin.Get("/", h.handleAdmin)
		admin.Post("/flush", h.handleFlush)
	})
}

type debugResponse struct {
	CSVURL   string       `json:"csv_url"`
	ENCount  int          `json:"en_count"`
	ESCount  int          `json:"es_count"`
	JACount  int          `json:"ja_count"`
	SampleEN []model.Pair `json:"sample_en"`
	SampleES []model.Pair `json:"sample_es"`
	SampleJA []model.Pair `json:"sample_ja"`
}

// handleDebug reports entry counts; the widget's status badge polls it.
func (h *Handler) handleDebug(w http.ResponseWriter, r *http.Request) {
	snapshot := h.store.Context(r.Context())
	utils.RespondJSON(w, http.StatusOK, debugResponse{
		CSVURL:   h.store.Source(),
		ENCount:  snapshot.Count(model.English),
		ESCount:  snapshot.Count(model.Spanish),
		JACount:  snapshot.Count(model.Japanese),
		SampleEN: snapshot.Sample(model.English, sampleSize),
		SampleES: snapshot.Sample(model.Spanish, sampleSize),
		SampleJA: snapshot.Sample(model.Japanese, sampleSize),
	})
}

func (h *Handler) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.adminToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		token := r.URL.Query().Get("token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(h.adminToken)) != 1 {
			utils.RespondText(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

var adminTemplate = template.Must(template.New("admin").Parse(`<!doctype html>
<meta charset="utf-8">
<title>Admin</title>
<style>
body{font:14px/1.4 system-ui,-apple-system,Segoe UI,Roboto,Arial,sans-serif;max-width:820px;margin:40px auto;padding:0 16px}
pre,code{background:#f6f7fb;padding:.25rem .5rem;border-radius:6px}
.card{background:#fff;border-radius:10px;box-shadow:0 10px 24px rgba(0,0,0,.08);padding:16px;margin-bottom:16px}
button{padding:.45rem .8rem;border-radius:8px;border:1px solid #e5e7eb;background:#111827;color:#fff;cursor:pointer}
a{color:#2563eb}
</style>
<h1>Admin</h1>
<div class="card">
  <div><b>CSV URL</b>: <code>{{if .Source}}{{.Source}}{{else}}(not set){{end}}</code></div>
  <div>Counts → EN: <b>{{.EN}}</b> · ES: <b>{{.ES}}</b> · JA: <b>{{.JA}}</b></div>
  <div>Last load: <code>{{.LastLoad}}</code> (TTL: {{.TTLSeconds}}s)</div>
</div>
<div class="card">
  <form method="post" action="{{.FlushAction}}">
    <button>Flush CSV Cache</button>
  </form>
</div>
<p><a href="/debug/csv">debug/csv</a> · <a href="/">home</a></p>
`))

type adminView struct {
	Source      string
	EN, ES, JA  int
	LastLoad    string
	TTLSeconds  int
	FlushAction string
}

func (h *Handler) handleAdmin(w http.ResponseWriter, r *http.Request) {
	snapshot := h.store.Context(r.Context())

	lastLoad := "never"
	if !snapshot.LoadedAt.IsZero() {
		lastLoad = snapshot.LoadedAt.UTC().Format(time.RFC3339)
	}

	view := adminView{
		Source:      h.store.Source(),
		EN:          snapshot.Count(model.English),
		ES:          snapshot.Count(model.Spanish),
		JA:          snapshot.Count(model.Japanese),
		LastLoad:    lastLoad,
		TTLSeconds:  int(h.store.TTL() / time.Second),
		FlushAction: h.withToken("/admin/flush"),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := adminTemplate.Execute(w, view); err != nil {
		log.Printf("[admin] render failed: %v", err)
	}
}

func (h *Handler) handleFlush(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Flush(r.Context()); err != nil {
		log.Printf("[admin] flush failed: %v", err)
		utils.RespondText(w, http.StatusInternalServerError, "flush failed")
		return
	}
	log.Printf("[admin] knowledge cache flushed")
	http.Redirect(w, r, h.withToken("/admin"), http.StatusSeeOther)
}

func (h *Handler) withToken(path string) string {
	if h.adminToken == "" {
		return path
	}
	return path + "?" + url.Values{"token": {h.adminToken}}.Encode()
}
