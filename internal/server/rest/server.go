// Package rest exposes the document-store API over HTTP: account
// registration and login, per-user document reads and writes, collection
// queries, and atomic batches.
package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/demomiru/minicrm/internal/logging"
	"github.com/demomiru/minicrm/internal/server/config"
	"github.com/demomiru/minicrm/internal/server/repositories/documents"
	"github.com/demomiru/minicrm/internal/server/repositories/users"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// TxRunner executes fn against a documents.Repository inside one database
// transaction. It exists so handlers stay storage-agnostic and tests can
// substitute an in-memory implementation.
type TxRunner func(ctx context.Context, fn func(docs documents.Repository) error) error

// Server holds the HTTP surface and its collaborators.
type Server struct {
	users    users.Repository
	docs     documents.Repository
	inTx     TxRunner
	logger   logging.Logger
	secret   []byte
	validity time.Duration
	engine   *gin.Engine
	srv      *http.Server
}

// NewServer wires the gin engine, middleware and routes.
func NewServer(cfg *config.Config, usersRepo users.Repository, docsRepo documents.Repository, inTx TxRunner, logger logging.Logger) *Server {
	s := &Server{
		users:    usersRepo,
		docs:     docsRepo,
		inTx:     inTx,
		logger:   logger.With("component", "rest"),
		secret:   []byte(cfg.SecretKey),
		validity: cfg.TokenValidityDuration,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/healthz", s.healthz)

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", s.register)
		authGroup.POST("/login", s.login)
	}

	api := r.Group("/api/users/:uid")
	api.Use(s.authMiddleware())
	{
		api.GET("/customers", s.queryCustomers)
		api.PUT("/customers/:id", s.setCustomer)
		api.PATCH("/customers/:id", s.patchCustomer)
		api.GET("/customers/:id", s.getCustomer)

		api.GET("/customers/:id/orders", s.queryOrders)
		api.PUT("/customers/:id/orders/:oid", s.setOrder)
		api.PATCH("/customers/:id/orders/:oid", s.patchOrder)

		api.POST("/batch", s.batch)
	}

	s.engine = r
	s.srv = &http.Server{
		Addr:    cfg.EndpointAddr,
		Handler: r,
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String(),
		)
	}
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
