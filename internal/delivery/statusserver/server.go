// Package statusserver hosts the delivery worker's own small HTTP surface:
// a health check and a queue-status endpoint, grounded on
// original_source's QueueWorker::get_status (an AtomicBool read through
// the actor's GetWorkerStatus message) and on the teacher's HTTP server
// setup (gin.New, Recovery middleware, a thin http.Server wrapper).
package statusserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/notihub/gateway/internal/config"
	"github.com/rs/zerolog"
)

// StatusSource reports whether the worker's poll loop is currently
// running. Implemented by consumer.Consumer.
type StatusSource interface {
	Running() bool
}

// Server is the worker's status HTTP server.
type Server struct {
	*http.Server
	logger zerolog.Logger
}

// NewServer builds the worker status server, listening on
// cfg.Worker.StatusPort. source is typically *consumer.Consumer; it is
// accepted as an interface here only to keep this package free of an
// import on consumer.
func NewServer(cfg *config.Config, source StatusSource, logger *zerolog.Logger) *Server {
	log := logger.With().Str("layer", "worker_status_server").Logger()

	gin.SetMode(cfg.Worker.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/worker/queue/status", func(c *gin.Context) {
		if source.Running() {
			c.String(http.StatusOK, "Queue worker is running")
			return
		}
		c.String(http.StatusOK, "Queue worker stopped")
	})

	server := &http.Server{
		Addr:    cfg.Worker.StatusPort,
		Handler: router,
	}

	return &Server{server, log}
}
