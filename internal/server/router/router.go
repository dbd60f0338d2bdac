package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/herd/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares. A nil
// metrics handler leaves /metrics unregistered.
func New(handler *handlers.HerdHandler, metrics http.Handler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	animals := r.Group("/animals")
	animals.GET("", handler.ListAnimals)
	animals.POST("", handler.CreateAnimal)
	animals.GET("/:id", handler.GetAnimal)
	animals.PATCH("/:id", handler.PatchAnimal)
	animals.DELETE("/:id", handler.DeleteAnimal)
	animals.POST("/:id/weights", handler.AddWeight)
	animals.POST("/:id/medications", handler.AddMedication)

	seasons := r.Group("/seasons")
	seasons.GET("", handler.ListSeasons)
	seasons.POST("", handler.CreateSeason)
	seasons.GET("/:id", handler.GetSeason)
	seasons.PATCH("/:id", handler.PatchSeason)
	seasons.DELETE("/:id", handler.DeleteSeason)
	seasons.GET("/:id/summary", handler.GetSeasonSummary)
	seasons.POST("/:id/verify", handler.VerifySeason)

	coverages := seasons.Group("/:id/coverages")
	coverages.POST("", handler.AddCoverage)
	coverages.PATCH("/:coverageId", handler.PatchCoverage)
	coverages.DELETE("/:coverageId", handler.DeleteCoverage)
	coverages.POST("/:coverageId/diagnosis", handler.UpdateDiagnosis)
	coverages.POST("/:coverageId/paternity", handler.ConfirmPaternity)
	coverages.POST("/:coverageId/abortion", handler.RegisterAbortion)
	coverages.POST("/:coverageId/calving", handler.RegisterCalving)

	r.POST("/sweeps", handler.VerifyAll)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
