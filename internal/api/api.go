package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/jon4hz/gradebook/internal/api/auth"
	"github.com/jon4hz/gradebook/internal/api/handler"
	"github.com/jon4hz/gradebook/internal/config"
	"github.com/jon4hz/gradebook/internal/database"
)

// SessionCookieName is the name of the session cookie.
const SessionCookieName = "gradebook_session"

type Server struct {
	cfg        *config.Config
	ginEngine  *gin.Engine
	auth       *auth.Handler
	handler    *handler.Handler
	jobs       *handler.JobHandler
	httpServer *http.Server
}

// New creates the API server and registers all routes.
// The job routes are only registered when jobs is not nil.
func New(cfg *config.Config, db database.DB, summaries handler.SummaryCache, mailer auth.Mailer, jobs handler.JobStatus, debug bool) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if summaries == nil {
		return nil, fmt.Errorf("summary cache is required")
	}

	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	var tolerance float64
	if cfg.Grading != nil {
		tolerance = cfg.Grading.WeightTolerance
	}

	s := &Server{
		cfg:       cfg,
		ginEngine: gin.New(),
		auth:      auth.New(db, mailer, cfg),
		handler:   handler.New(db, summaries, tolerance),
	}
	if jobs != nil {
		s.jobs = handler.NewJobHandler(jobs)
	}
	s.ginEngine.Use(gin.Recovery(), requestID(), requestLogger(), gzip.Gzip(gzip.DefaultCompression))
	s.setupSession()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.ginEngine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) setupSession() {
	store := cookie.NewStore([]byte(s.cfg.SessionKey))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   s.cfg.SessionMaxAge,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	s.ginEngine.Use(sessions.Sessions(SessionCookieName, store))
}

func (s *Server) setupRoutes() {
	s.ginEngine.GET("/healthz", s.handler.Health)

	authGroup := s.ginEngine.Group("/api/auth")
	authGroup.POST("/register", s.auth.Register)
	authGroup.POST("/login", s.auth.Login)
	authGroup.POST("/logout", s.auth.Logout)

	api := s.ginEngine.Group("/api")
	api.Use(s.auth.RequireAuth())

	api.GET("/me", s.auth.Me)
	api.PUT("/me/password", s.auth.ChangePassword)

	api.GET("/courses", s.handler.ListCourses)
	api.POST("/courses", s.handler.CreateCourse)
	api.GET("/courses/:id", s.handler.GetCourse)
	api.PUT("/courses/:id", s.handler.UpdateCourse)
	api.DELETE("/courses/:id", s.handler.DeleteCourse)
	api.GET("/courses/:id/summary", s.handler.CourseSummary)
	api.GET("/courses/:id/assessments", s.handler.ListAssessments)
	api.POST("/courses/:id/assessments", s.handler.CreateAssessment)

	api.PUT("/assessments/:id", s.handler.UpdateAssessment)
	api.DELETE("/assessments/:id", s.handler.DeleteAssessment)

	if s.jobs != nil {
		api.GET("/jobs", s.jobs.ListJobs)
		api.GET("/jobs/:id", s.jobs.GetJob)
	}
}

// Handler returns the http handler of the server.
func (s *Server) Handler() http.Handler {
	return s.ginEngine
}

// Run serves until Shutdown is called.
func (s *Server) Run() error {
	log.Info("Starting API server", "listen", s.cfg.Listen)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
