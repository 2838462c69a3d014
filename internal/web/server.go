package web

import (
	"context"
	"embed"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/vbonduro/recipecam/internal/metrics"
	"github.com/vbonduro/recipecam/internal/playback"
	"github.com/vbonduro/recipecam/internal/service"
)

// ImageOpener serves images kept by the local image host.
type ImageOpener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
}

type Options struct {
	// PlaybackRateControls shows the speech rate selector on the capture page.
	PlaybackRateControls bool
}

type Server struct {
	service   *service.CaptureService
	templates embed.FS
	images    ImageOpener
	speaker   playback.Speaker
	opts      Options
	mux       *http.ServeMux
	tmplFuncs template.FuncMap
	logger    *slog.Logger

	narrationMu sync.Mutex
	narration   playback.Player
}

// NewServer builds the HTTP surface. images may be nil when captures are not
// hosted locally.
func NewServer(
	svc *service.CaptureService,
	tmpl embed.FS,
	images ImageOpener,
	speaker playback.Speaker,
	opts Options,
	logger *slog.Logger,
) *Server {
	s := &Server{
		service:   svc,
		templates: tmpl,
		images:    images,
		speaker:   speaker,
		opts:      opts,
		mux:       http.NewServeMux(),
		logger:    logger,
		tmplFuncs: template.FuncMap{
			"inc": func(i int) int { return i + 1 },
			"ms":  func(d time.Duration) int64 { return d.Milliseconds() },
			"clock": func(t time.Time) string {
				return t.Local().Format("2006-01-02 15:04:05")
			},
		},
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /captures", s.handleCapture)
	s.mux.HandleFunc("POST /captures/stream", s.handleCaptureStream)
	s.mux.HandleFunc("GET /recipe", s.handleGetRecipe)
	s.mux.HandleFunc("GET /speech", s.handleSpeech)
	s.mux.HandleFunc("POST /speech/{action}", s.handleSpeechControl)
	s.mux.HandleFunc("GET /history", s.handleHistory)
	s.mux.HandleFunc("GET /history/{id}", s.handleHistoryEntry)
	s.mux.HandleFunc("GET /images/{key}", s.handleGetImage)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", metrics.Handler())
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "camera=(self), microphone=()")
		h.Set("Content-Security-Policy",
			"default-src 'self'; "+
				"script-src 'self' 'unsafe-inline' https://unpkg.com; "+
				"style-src 'self' 'unsafe-inline'; "+
				"img-src 'self' data: blob: https:; "+
				"media-src 'self' blob: mediastream:; "+
				"connect-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
// It passes Flush through so event streams survive the logging middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: s,
		// Writes stay open for a whole capture cycle or narration.
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.stopNarration()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// renderPage parses and executes a full-page template set.
func (s *Server) renderPage(w http.ResponseWriter, data any, files ...string) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, files...)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return tmpl.ExecuteTemplate(w, "base", data)
}

// renderPartial executes the {{define name}} block from file with the given status.
func (s *Server) renderPartial(w http.ResponseWriter, status int, file, name string, data any) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, file)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	return tmpl.ExecuteTemplate(w, name, data)
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
