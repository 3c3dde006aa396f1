/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights - HTTP Server
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package api

import (
	"context"
	"crypto/tls"
	"encoding/pem"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"pgedge-postgres-insights/internal/catalog"
	"pgedge-postgres-insights/internal/config"
	"pgedge-postgres-insights/internal/dataset"
	"pgedge-postgres-insights/internal/logging"
	"pgedge-postgres-insights/internal/report"
)

// shutdownTimeout bounds how long in-flight requests may run after the
// server context is cancelled
const shutdownTimeout = 10 * time.Second

// Database is what the HTTP layer needs from the database client
type Database interface {
	Introspect(ctx context.Context) (catalog.RawSchema, error)
	Query(ctx context.Context, sql string) (dataset.ResultSet, error)
	Now(ctx context.Context) (time.Time, error)
	ConnectionIdentity() string
}

// Server serves the report API
type Server struct {
	db           Database
	httpCfg      config.HTTPConfig
	orchestrator atomic.Pointer[report.Orchestrator]
	cache        atomic.Pointer[catalog.SchemaCache]
}

// NewServer creates a server for the given configuration and database
func NewServer(cfg *config.Config, db Database) *Server {
	s := &Server{
		db:      db,
		httpCfg: cfg.HTTP,
	}
	s.Reconfigure(cfg)
	return s
}

// Reconfigure applies the reloadable settings: role keywords and the
// schema cache lifetime. In-flight requests keep the orchestrator they
// started with.
func (s *Server) Reconfigure(cfg *config.Config) {
	s.orchestrator.Store(report.New(
		report.WithRoleKeywords(cfg.Catalog.Keywords.ToCatalog()),
	))

	ttl := cfg.Catalog.CacheTTLDuration()
	if current := s.cache.Load(); current == nil || current.TTL() != ttl {
		s.cache.Store(catalog.NewSchemaCache(ttl))
	} else {
		current.Clear()
	}
}

// Handler builds the router with all middleware applied
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.httpCfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}))
	if s.httpCfg.RateLimit > 0 {
		r.Use(RateLimiter(RateLimitConfig{
			RequestsPerSecond: s.httpCfg.RateLimit,
			Burst:             s.httpCfg.RateBurst,
		}))
	}
	if s.httpCfg.Debug {
		r.Use(RequestLogger)
	}

	r.Post("/api/query", s.handleQuery)
	r.Get("/test-db", s.handleTestDB)
	r.Get("/health", s.handleHealth)

	return r
}

// Run serves HTTP or HTTPS until ctx is cancelled, then shuts down
// gracefully
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.httpCfg.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.httpCfg.TLS.Enabled {
		tlsConfig, err := loadTLSConfig(s.httpCfg.TLS)
		if err != nil {
			return fmt.Errorf("failed to load TLS config: %w", err)
		}
		httpServer.TLSConfig = tlsConfig
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("http server listening", "address", s.httpCfg.Address, "tls", s.httpCfg.TLS.Enabled)
		var err error
		if s.httpCfg.TLS.Enabled {
			// Certificates are already in TLSConfig
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			err = httpServer.ListenAndServe()
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logging.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// loadTLSConfig loads TLS certificates and creates a TLS configuration
func loadTLSConfig(cfg config.TLSConfig) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate and key: %w", err)
	}

	if cfg.ChainFile != "" {
		chainData, err := os.ReadFile(cfg.ChainFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read certificate chain: %w", err)
		}
		for {
			var block *pem.Block
			block, chainData = pem.Decode(chainData)
			if block == nil {
				break
			}
			if block.Type == "CERTIFICATE" {
				cert.Certificate = append(cert.Certificate, block.Bytes)
			}
		}
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
