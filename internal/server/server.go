// Package server exposes the upload form, the report upload endpoint and
// the operational endpoints over HTTP.
package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dse-bonds/internal/export"
	"github.com/sells-group/dse-bonds/internal/extract"
	"github.com/sells-group/dse-bonds/internal/model"
	"github.com/sells-group/dse-bonds/internal/monitoring"
	"github.com/sells-group/dse-bonds/internal/pipeline"
)

// Messages shown when the upload form was submitted without a document.
const (
	MsgNoFilePart     = "No file part"
	MsgNoSelectedFile = "No selected file"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Processor runs one document through the pipeline.
type Processor interface {
	Process(ctx context.Context, doc pipeline.Document) (*pipeline.Result, error)
}

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatusCollector summarises recent uploads.
type StatusCollector interface {
	Collect(ctx context.Context, lookbackHours int) (*monitoring.MetricsSnapshot, error)
}

// Options configures the HTTP server.
type Options struct {
	SecretKey        string
	MaxUploadMB      int
	UploadRatePerMin int
	AllowedOrigins   []string
	LookbackHours    int
	Gatherer         prometheus.Gatherer // nil disables /metrics
}

// Server holds the HTTP handlers and their dependencies.
type Server struct {
	pipeline  Processor
	store     Pinger
	collector StatusCollector
	flashes   *flashes
	limiter   *uploadLimiter
	opts      Options
}

// New creates a Server. SecretKey is required.
func New(p Processor, st Pinger, c StatusCollector, opts Options) (*Server, error) {
	fl, err := newFlashes(opts.SecretKey)
	if err != nil {
		return nil, err
	}
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = 10
	}
	if opts.LookbackHours <= 0 {
		opts.LookbackHours = 24
	}
	return &Server{
		pipeline:  p,
		store:     st,
		collector: c,
		flashes:   fl,
		limiter:   newUploadLimiter(opts.UploadRatePerMin),
		opts:      opts,
	}, nil
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if len(s.opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			ExposedHeaders: []string{"Content-Disposition"},
			MaxAge:         300,
		}))
	}

	r.Get("/", s.handleIndex)
	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Handler)
		r.Post("/", s.handleUpload)
		r.Post("/upload", s.handleUpload)
	})

	r.Get("/health", s.handleHealth)
	r.Get("/health/ready", s.handleReady)
	r.Get("/status", s.handleStatus)
	if s.opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := struct{ Flashes []string }{Flashes: s.flashes.Pop(w, r)}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, data); err != nil {
		zap.L().Error("server: render index", zap.Error(err))
	}
}

// redirectWithFlash sends the user back to the form with msg.
func (s *Server) redirectWithFlash(w http.ResponseWriter, r *http.Request, msg string) {
	if err := s.flashes.Add(w, r, msg); err != nil {
		zap.L().Error("server: set flash", zap.Error(err))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := zap.L().With(zap.String("request_id", middleware.GetReqID(r.Context())))
	maxBytes := int64(s.opts.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || errors.Is(err, multipart.ErrMessageTooLarge) {
			writeProblem(w, r, http.StatusRequestEntityTooLarge,
				"Upload exceeds "+strconv.Itoa(s.opts.MaxUploadMB)+" MB.")
			return
		}
		// Not a multipart body at all: there is no file part.
		s.redirectWithFlash(w, r, MsgNoFilePart)
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	file, header, err := r.FormFile("file")
	if err != nil {
		// An empty file input arrives as a plain value with no filename.
		if _, ok := r.MultipartForm.Value["file"]; ok {
			s.redirectWithFlash(w, r, MsgNoSelectedFile)
			return
		}
		s.redirectWithFlash(w, r, MsgNoFilePart)
		return
	}
	defer file.Close() //nolint:errcheck

	if header.Filename == "" {
		s.redirectWithFlash(w, r, MsgNoSelectedFile)
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		log.Error("server: read upload", zap.Error(err))
		writeProblem(w, r, http.StatusBadRequest, "Could not read the uploaded file.")
		return
	}

	res, err := s.pipeline.Process(r.Context(), pipeline.Document{
		Name:        header.Filename,
		Source:      model.UploadSourceHTTP,
		Content:     content,
		ContentType: header.Header.Get("Content-Type"),
	})
	if err != nil {
		if extract.IsUserError(err) {
			s.redirectWithFlash(w, r, extract.Message(err))
			return
		}
		log.Error("server: process upload", zap.String("filename", header.Filename), zap.Error(err))
		writeProblem(w, r, http.StatusInternalServerError, "The report could not be stored.")
		return
	}

	filename := res.Filename
	if filename == "" {
		filename = export.DefaultFilename
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Workbook)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Workbook); err != nil {
		log.Warn("server: write workbook", zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		zap.L().Warn("server: readiness check failed", zap.Error(err))
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	render.JSON(w, r, map[string]string{"status": "ready"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	hours := s.opts.LookbackHours
	if v := r.URL.Query().Get("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeProblem(w, r, http.StatusBadRequest, "hours must be a positive integer")
			return
		}
		hours = n
	}

	snap, err := s.collector.Collect(r.Context(), hours)
	if err != nil {
		zap.L().Error("server: collect status", zap.Error(eris.Wrap(err, "status")))
		writeProblem(w, r, http.StatusInternalServerError, "Status is unavailable.")
		return
	}
	render.JSON(w, r, snap)
}
