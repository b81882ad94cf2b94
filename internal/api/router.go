package api

import (
	"github.com/gin-gonic/gin"
	"github.com/tobyn/inkwell/internal/api/handler"
	"github.com/tobyn/inkwell/internal/api/middleware"
	"github.com/tobyn/inkwell/internal/service"
	"github.com/tobyn/inkwell/internal/store"
)

// Services bundles everything the router exposes over HTTP.
type Services struct {
	Books       *service.BookService
	Stats       *service.StatsService
	Calibration *service.CalibrationService
	Sessions    store.SessionStore
	ReloadFunc  func() error
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(svc Services, mode string, cors middleware.CORSConfig) *gin.Engine {
	// Set Gin mode
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cors))

	// Create handlers
	healthHandler := handler.NewHealthHandler(svc.Sessions)
	sessionHandler := handler.NewSessionHandler(svc.Books)
	statsHandler := handler.NewStatsHandler(svc.Stats)
	adminHandler := handler.NewAdminHandler(svc.Calibration, svc.ReloadFunc)

	// Health checks
	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Sessions and the staged generation pipeline
		v1.POST("/sessions", sessionHandler.Create)
		v1.GET("/sessions/:id", sessionHandler.Restore)
		v1.POST("/sessions/:id/answers", sessionHandler.SubmitAnswers)
		v1.POST("/sessions/:id/draft", sessionHandler.GenerateDraft)
		v1.POST("/sessions/:id/outline", sessionHandler.GenerateOutline)
		v1.POST("/sessions/:id/write", sessionHandler.StartWriting)

		// Writing-job progress
		v1.GET("/sessions/:id/progress", sessionHandler.Progress)
		v1.POST("/sessions/:id/pause", sessionHandler.Pause)
		v1.POST("/sessions/:id/resume", sessionHandler.Resume)

		// Stats
		v1.GET("/stats", statsHandler.GetStats)

		// Operational endpoints
		v1.POST("/admin/recalibrate", adminHandler.Recalibrate)
		v1.POST("/admin/reload-params", adminHandler.ReloadParams)
	}

	return r
}
