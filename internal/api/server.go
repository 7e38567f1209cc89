// Package api exposes the verification pipeline over HTTP.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ppiankov/truthlayer/internal/logging"
	"github.com/ppiankov/truthlayer/internal/model"
)

// Runner verifies one report's text
type Runner interface {
	Run(ctx context.Context, reportText string) (*model.TrustReport, error)
}

// Server serves POST /v1/verify and GET /healthz
type Server struct {
	runner  Runner
	cfg     model.ServerConfig
	engine  *gin.Engine
	version string
}

type reqVerify struct {
	Report string `json:"report" binding:"required"`
}

// NewServer builds the router around runner
func NewServer(runner Runner, cfg model.ServerConfig, version string) *Server {
	s := &Server{runner: runner, cfg: cfg, version: version}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	s.attachRoutes(r)
	s.engine = r
	return s
}

func (s *Server) attachRoutes(r *gin.Engine) {
	r.GET("/healthz", s.health)

	v1 := r.Group("/v1")
	{
		v1.POST("/verify", s.verify)
	}
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves until ctx is done, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	logger := logging.New("api")
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": s.version})
}

func (s *Server) verify(c *gin.Context) {
	if s.cfg.MaxReportBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxReportBytes)
	}

	text, err := readReport(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"err": "report exceeds size limit"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"err": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	report, err := s.runner.Run(ctx, text)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			logging.New("api").Error("verification failed", "error", err)
		}
		body := gin.H{"err": err.Error()}
		var pe *model.PipelineError
		if errors.As(err, &pe) {
			body["stage"] = pe.Stage
		}
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, report)
}

// readReport accepts either {"report": "..."} or a plain-text body
func readReport(c *gin.Context) (string, error) {
	if strings.HasPrefix(c.ContentType(), "text/") {
		data, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(string(data)) == "" {
			return "", errors.New("empty report body")
		}
		return string(data), nil
	}

	var req reqVerify
	if err := c.ShouldBindJSON(&req); err != nil {
		return "", err
	}
	return req.Report, nil
}

func statusFor(err error) int {
	var ee *model.ExtractionError
	switch {
	case errors.As(err, &ee):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrJudgmentUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return 499
	default:
		return http.StatusInternalServerError
	}
}

func requestLogger() gin.HandlerFunc {
	logger := logging.New("api")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start).Round(time.Millisecond),
			"client", c.ClientIP())
	}
}
