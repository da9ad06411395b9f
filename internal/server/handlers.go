package server

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/KaramelBytes/ruler/internal/analysis"
	"github.com/KaramelBytes/ruler/internal/logger"
	"github.com/KaramelBytes/ruler/internal/miner"
	"github.com/KaramelBytes/ruler/internal/pipeline"
	"github.com/KaramelBytes/ruler/internal/session"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const sessionIDKey = "id"

// RegisterRoutes registers all UI routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	ui := r.Group("/", h.withSession)
	{
		ui.GET("/", h.Index)
		ui.POST("/upload", h.Upload)
		ui.POST("/roles", h.Roles)
		ui.POST("/rules", h.Rules)
		ui.POST("/hints", h.Hints)
		ui.POST("/reset", h.Reset)
		ui.GET("/download/:name", h.Download)
		ui.GET("/api/page", h.PageJSON)
	}

	r.GET("/health", h.HealthCheck)
}

// withSession resolves the visitor's server-side session from the cookie,
// creating one on first visit or after expiry.
func (h *Handler) withSession(c *gin.Context) {
	cs := sessions.Default(c)
	id, _ := cs.Get(sessionIDKey).(string)
	sess, created, err := h.store.GetOrCreate(id)
	if err != nil {
		logger.GetGinLogger(c).Error("create session", zap.Error(err))
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	if created {
		cs.Set(sessionIDKey, sess.ID)
		if err := cs.Save(); err != nil {
			logger.GetGinLogger(c).Error("save session cookie", zap.Error(err))
		}
	}
	c.Set("session", sess)
	c.Next()
}

func currentSession(c *gin.Context) *session.Session {
	return c.MustGet("session").(*session.Session)
}

// render builds the page for the current session while holding its lock.
func (h *Handler) render(c *gin.Context) (*pipeline.Page, error) {
	sess := currentSession(c)
	sess.Lock()
	defer sess.Unlock()
	return pipeline.Render(c.Request.Context(), sess, h.deps)
}

type view struct {
	Page      *pipeline.Page
	Fatal     string
	RequestID string
	Hints     map[string]string
}

// Index renders the HTML page. A page that cannot load any dataset shows a
// fatal banner with status 500.
func (h *Handler) Index(c *gin.Context) {
	p, err := h.render(c)
	v := view{Page: p}
	status := http.StatusOK
	if err != nil {
		status = http.StatusInternalServerError
		v.Fatal = err.Error()
		v.RequestID = logger.GetRequestID(c.Request.Context())
		_ = c.Error(err)
	}
	if p != nil && p.ShowHints {
		v.Hints = hints
	}
	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.Execute(c.Writer, v); err != nil {
		logger.GetGinLogger(c).Error("render template", zap.Error(err))
	}
}

// PageJSON returns the rendered page as JSON.
func (h *Handler) PageJSON(c *gin.Context) {
	p, err := h.render(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      err.Error(),
			"request_id": logger.GetRequestID(c.Request.Context()),
		})
		return
	}
	c.JSON(http.StatusOK, p)
}

// Upload stores a new CSV or XLSX file for the session.
func (h *Handler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.opts.MaxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		c.String(http.StatusBadRequest, "upload your data in csv or xlsx: %v", err)
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.String(http.StatusBadRequest, "open upload: %v", err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.String(http.StatusBadRequest, "read upload: %v", err)
		return
	}

	sess := currentSession(c)
	sess.Lock()
	sess.SetUpload(fh.Filename, data)
	sess.Unlock()
	logger.GetGinLogger(c).Info("file uploaded",
		zap.String("session_id", sess.ID),
		zap.String("file", fh.Filename),
		zap.Int("bytes", len(data)),
	)
	c.Redirect(http.StatusSeeOther, "/")
}

// Roles updates column roles, confidence and the ignore list. Bad input
// never replaces the page: it is corrected or ignored and reported as a
// warning on the next render.
func (h *Handler) Roles(c *gin.Context) {
	roles := analysis.Roles{
		Item:        strings.TrimSpace(c.PostForm("item")),
		Transaction: strings.TrimSpace(c.PostForm("tx")),
		Date:        strings.TrimSpace(c.DefaultPostForm("date", analysis.NoDate)),
	}

	sess := currentSession(c)
	sess.Lock()
	defer sess.Unlock()

	if roles.Item == "" || roles.Transaction == "" {
		sess.Notify("Pick both an item column and a transaction column; the column selection was not changed.")
	} else {
		sess.SetRoles(roles)
	}

	if raw := strings.TrimSpace(c.PostForm("confidence")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		switch {
		case err != nil:
			sess.Notify(fmt.Sprintf("Confidence %q is not a number; keeping %s.", raw, strconv.FormatFloat(sess.Confidence, 'f', -1, 64)))
		case miner.ValidateConfidence(v) != nil:
			clamped := clampConfidence(v)
			sess.Notify(fmt.Sprintf("Confidence %s is outside [0, 1]; using %s.", raw, strconv.FormatFloat(clamped, 'f', -1, 64)))
			sess.Confidence = clamped
		default:
			sess.Confidence = v
		}
	}

	sess.UseIgnore = isChecked(c.PostForm("use_ignore"))
	sess.Ignore = c.PostFormArray("ignore")
	c.Redirect(http.StatusSeeOther, "/")
}

func clampConfidence(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Rules requests rule generation. Once requested it stays on for the session.
func (h *Handler) Rules(c *gin.Context) {
	sess := currentSession(c)
	sess.Lock()
	sess.Trigger()
	sess.Unlock()
	c.Redirect(http.StatusSeeOther, "/#results")
}

// Hints toggles the hint boxes.
func (h *Handler) Hints(c *gin.Context) {
	sess := currentSession(c)
	sess.Lock()
	sess.ShowHints = !sess.ShowHints
	sess.Unlock()
	c.Redirect(http.StatusSeeOther, "/")
}

// Reset drops the visitor's session, uploads and results included. The next
// request starts a fresh one.
func (h *Handler) Reset(c *gin.Context) {
	sess := currentSession(c)
	h.store.Delete(sess.ID)
	cs := sessions.Default(c)
	cs.Delete(sessionIDKey)
	if err := cs.Save(); err != nil {
		logger.GetGinLogger(c).Error("save session cookie", zap.Error(err))
	}
	logger.GetGinLogger(c).Info("session reset", zap.String("session_id", sess.ID))
	c.Redirect(http.StatusSeeOther, "/")
}

// Download serves one artifact of the current results.
func (h *Handler) Download(c *gin.Context) {
	name := c.Param("name")
	p, err := h.render(c)
	if err != nil {
		c.String(http.StatusInternalServerError, err.Error())
		return
	}
	a, ok := p.Bundle.Get(name)
	if !ok {
		c.String(http.StatusNotFound, "no download named %q; generate rules first", name)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", a.Name))
	c.Data(http.StatusOK, a.ContentType, a.Data)
}

// HealthCheck reports liveness and the number of live sessions.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": h.store.Len()})
}

func isChecked(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "1", "true", "yes":
		return true
	}
	return false
}
