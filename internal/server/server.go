// Package server exposes the screening flow over HTTP.
package server

import (
	"context"
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/dudu/eyescreen/internal/logging"
	"github.com/dudu/eyescreen/internal/screening"
)

// ScreeningRequest is the POST /api/v1/screenings body. Image is the
// captured JPEG, base64 encoded (a data URL prefix is tolerated).
type ScreeningRequest struct {
	Image        string                   `json:"image" binding:"required"`
	SessionID    string                   `json:"session_id,omitempty"`
	Provenance   string                   `json:"provenance,omitempty"`
	QualityScore float64                  `json:"quality_score,omitempty"`
	Patient      screening.PatientDetails `json:"patient,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Config holds the HTTP surface settings.
type Config struct {
	Addr           string
	RequestTimeout time.Duration
}

// Server wraps the gin engine and its http.Server.
type Server struct {
	cfg Config
	svc *screening.Service
	srv *http.Server
	log *logrus.Entry
}

// New builds the router. reg may be nil to skip the metrics endpoint.
func New(cfg Config, svc *screening.Service, reg *prometheus.Registry) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 90 * time.Second
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg: cfg,
		svc: svc,
		log: logging.WithComponent("server"),
	}

	r.GET("/healthz", s.health)
	if reg != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api/v1")
	api.POST("/screenings", s.createScreening)
	api.GET("/screenings", s.listScreenings)

	s.srv = &http.Server{Addr: cfg.Addr, Handler: r}
	return s
}

// Handler exposes the routed handler.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// Run serves until the context is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.cfg.Addr).Info("listening")
		errc <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) createScreening(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout)
	defer cancel()

	var req ScreeningRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request format", Message: err.Error()})
		return
	}

	jpegData, err := decodeImage(req.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid image encoding", Message: err.Error()})
		return
	}

	prov := req.Provenance
	if prov == "" {
		prov = "manual"
	}

	rec, err := s.svc.Screen(ctx, screening.Request{
		SessionID:    req.SessionID,
		Provenance:   prov,
		QualityScore: req.QualityScore,
		JPEG:         jpegData,
		Patient:      req.Patient,
	})
	if err != nil {
		s.log.WithError(err).Error("screening failed")
		c.JSON(http.StatusBadGateway, errorResponse{Error: "screening failed", Message: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, rec)
}

func (s *Server) listScreenings(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.cfg.RequestTimeout)
	defer cancel()

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	recs, err := s.svc.Recent(ctx, limit)
	if err != nil {
		s.log.WithError(err).Error("listing screenings failed")
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "listing failed", Message: err.Error()})
		return
	}
	if recs == nil {
		recs = []screening.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"screenings": recs})
}

// decodeImage accepts raw base64 or a full data URL.
func decodeImage(s string) ([]byte, error) {
	if i := strings.IndexByte(s, ','); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+1:]
	}
	return base64.StdEncoding.DecodeString(s)
}
