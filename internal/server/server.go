// Package server is the Ruler web UI: a gin engine over per-visitor sessions.
package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/KaramelBytes/ruler/internal/logger"
	"github.com/KaramelBytes/ruler/internal/pipeline"
	"github.com/KaramelBytes/ruler/internal/report"
	"github.com/KaramelBytes/ruler/internal/session"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CookieName is the session cookie holding the visitor's session id.
const CookieName = "ruler_session"

//go:embed templates/*.html
var templateFS embed.FS

// Options configure the web UI.
type Options struct {
	MaxUploadBytes int64
	SessionSecret  []byte
	SessionTTL     time.Duration
}

// Handler serves the UI routes.
type Handler struct {
	store  *session.Store
	deps   pipeline.Deps
	opts   Options
	logger *zap.Logger
	tmpl   *template.Template
}

// NewHandler creates the UI handler.
func NewHandler(store *session.Store, deps pipeline.Deps, opts Options, l *zap.Logger) (*Handler, error) {
	if l == nil {
		l = zap.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	tmpl, err := template.New("page.html").Funcs(template.FuncMap{
		"list": report.ListString,
		"num":  report.Number,
		"has":  contains,
	}).ParseFS(templateFS, "templates/page.html")
	if err != nil {
		return nil, err
	}
	return &Handler{store: store, deps: deps, opts: opts, logger: l, tmpl: tmpl}, nil
}

// NewRouter builds the gin engine with logging, recovery and the cookie
// session middleware in front of h's routes.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = h.opts.MaxUploadBytes
	r.Use(logger.RequestID(), logger.GinMiddleware(h.logger), logger.Recovery(h.logger))

	secret := h.opts.SessionSecret
	if len(secret) == 0 {
		secret = []byte("ruler-development-secret")
		h.logger.Warn("session_secret not set; using a development secret")
	}
	store := cookie.NewStore(secret)
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(h.opts.SessionTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(CookieName, store))

	h.RegisterRoutes(r)
	return r
}

// Serve runs srv until ctx is cancelled, then shuts it down gracefully.
func Serve(ctx context.Context, srv *http.Server, l *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	l.Info("Server starting", zap.String("address", srv.Addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	l.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	l.Info("Server exited")
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
