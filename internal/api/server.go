package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/doconv/internal/config"
	"github.com/dgallion1/doconv/internal/convert"
	"github.com/dgallion1/doconv/internal/metrics"
	"github.com/dgallion1/doconv/internal/pipeline"
	"github.com/dgallion1/doconv/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for doconv.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	conv         *convert.Service
	store        storage.Store
	metrics      *metrics.Metrics
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, conv *convert.Service, store storage.Store, m *metrics.Metrics, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		conv:         conv,
		store:        store,
		metrics:      m,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// conversionRoute binds an endpoint to a fixed source and target format.
type conversionRoute struct {
	path     string
	from, to convert.Format
}

var uploadRoutes = []conversionRoute{
	{"/convert_pdf2word", convert.PDF, convert.DOCX},
	{"/convert_word2html", convert.DOCX, convert.HTML},
	{"/convert_pdf2html", convert.PDF, convert.HTML},
	{"/convert_html2word", convert.HTML, convert.DOCX},
}

var storageRoutes = []conversionRoute{
	{"/convert_pdf2word_from_gcs", convert.PDF, convert.DOCX},
	{"/convert_word2html_from_gcs", convert.DOCX, convert.HTML},
	{"/convert_pdf2html_from_gcs", convert.PDF, convert.HTML},
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log, s.metrics))

	// Public endpoints.
	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		for _, rt := range uploadRoutes {
			r.Post(rt.path, s.handleUploadConvert(rt.from, rt.to))
		}
		for _, rt := range storageRoutes {
			r.Post(rt.path, s.handleStorageConvert(rt.from, rt.to))
		}

		r.Post("/api/preprocess", s.handlePreprocess)
		r.Post("/api/preprocess/from_storage", s.handlePreprocessFromStorage)

		r.Post("/api/jobs", s.handleSubmitJob)
		r.Get("/api/jobs/{jobID}", s.handleJobStatus)

		r.Get("/api/stats/conversions", s.handleConversionStats)
	})

	s.router = r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Upload a PDF to /convert_pdf2word (file) or use /convert_pdf2word_from_gcs (bucket and filename).",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
