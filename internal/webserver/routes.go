package webserver

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gradeflow/gradeflow/internal/models"
	"github.com/gradeflow/gradeflow/internal/webapi"
	"github.com/klauspost/compress/gzhttp"
)

// newRouter sets up middleware, API routes and the HTML index.
func newRouter(cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(cfg.Logger))
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         300,
		}))
	}

	webapi.RegisterRoutes(r, cfg.Registry)
	r.Get("/", indexHandler(cfg.Registry))

	return gzhttp.GzipHandler(r)
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="5">
<title>gradeflow</title>
</head>
<body>
<h1>Batches</h1>
{{range .}}
<section>
<h2>{{.ID}}: {{.Progress.Current}} / {{.Progress.Total}}{{if .Progress.ActiveName}} (grading {{.Progress.ActiveName}}){{end}}</h2>
<table>
<tr><th>Student</th><th>Status</th><th>Detail</th></tr>
{{$batch := .ID}}
{{range .Records}}
<tr>
<td>{{.Name}} ({{.ID}})</td>
<td>{{.Status}}</td>
<td>{{if .Result}}<a href="/api/batches/{{$batch}}/records/{{.ID}}/report">report</a>{{else if .FailureReason}}{{.FailureReason}}{{else}}{{.ProgressNote}}{{end}}</td>
</tr>
{{end}}
</table>
</section>
{{else}}
<p>No batches.</p>
{{end}}
</body>
</html>
`))

type indexBatch struct {
	ID       string
	Progress models.BatchProgress
	Records  []models.ProcessingRecord
}

func indexHandler(reg *webapi.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		var batches []indexBatch
		for _, id := range reg.IDs() {
			v, err := reg.Get(id)
			if err != nil {
				continue
			}
			batches = append(batches, indexBatch{ID: id, Progress: v.Progress(), Records: v.Records()})
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := indexTemplate.Execute(w, batches); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
