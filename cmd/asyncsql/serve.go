package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tomyedwab/asyncsql/backend/sqlite"
	"github.com/tomyedwab/asyncsql/conf"
	"github.com/tomyedwab/asyncsql/gateway"
	"github.com/tomyedwab/asyncsql/sqlqueue"
)

type serveCmd struct {
	Catalog         string        `help:"Path to the JSON catalog configuration" type:"existingfile" required:""`
	Listen          string        `help:"Address to serve the gateway and metrics on" default:":8080"`
	JWTSecret       string        `help:"Path to the JWT secret key, created if missing. Authentication is disabled when empty" name:"jwt-secret"`
	RequestTimeout  time.Duration `help:"How long a request waits for its statement" default:"30s"`
	ShutdownTimeout time.Duration `help:"How long to wait for in-flight requests on shutdown" default:"10s"`
}

// service holds the components shared by the serve and check commands.
type service struct {
	db      *sqlx.DB
	conn    *sqlqueue.Connection
	reg     *sqlite.Registry
	catalog *gateway.Catalog
	logger  *zap.Logger
}

func newService(cfg *conf.Config, logger *zap.Logger) (*service, error) {
	policy, err := cfg.PoolPolicy()
	if err != nil {
		return nil, err
	}
	ctx := context.Background()
	db, err := sqlite.Open(ctx, cfg.Database, cfg.Schema)
	if err != nil {
		return nil, err
	}
	conn, err := sqlqueue.NewConnection(sqlqueue.Config{
		Name:    "asyncsql",
		Type:    cfg.MessageType,
		Workers: cfg.Workers,
		Policy:  policy,
		Logger:  logger,
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	reg := sqlite.NewRegistry(db, conn, logger)
	catalog, err := gateway.PrepareCatalog(ctx, reg, cfg.Statements)
	if err != nil {
		reg.CloseAll() //nolint:errcheck
		db.Close()
		return nil, err
	}
	return &service{db: db, conn: conn, reg: reg, catalog: catalog, logger: logger}, nil
}

// close stops the pool before releasing the statements its queue refers to.
func (s *service) close() {
	s.conn.Terminate()
	if err := s.reg.CloseAll(); err != nil {
		s.logger.Warn("Failed to close statements", zap.Error(err))
	}
	if err := s.db.Close(); err != nil {
		s.logger.Warn("Failed to close database", zap.Error(err))
	}
}

func (c *serveCmd) Run(logger *zap.Logger) error {
	cfg, err := conf.Load(c.Catalog)
	if err != nil {
		return err
	}
	svc, err := newService(cfg, logger)
	if err != nil {
		return err
	}
	defer svc.close()

	var key []byte
	if c.JWTSecret != "" {
		if key, err = gateway.LoadSecretKey(c.JWTSecret); err != nil {
			return err
		}
	} else {
		logger.Warn("No JWT secret configured, authentication is disabled")
	}

	if err := svc.conn.Start(); err != nil {
		return err
	}

	gw := gateway.NewServer(gateway.Config{
		Catalog:        svc.catalog,
		Connection:     svc.conn,
		SecretKey:      key,
		RequestTimeout: c.RequestTimeout,
		Logger:         logger,
	})
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", gw.Handler())
	srv := &http.Server{Addr: c.Listen, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Serving statement catalog", zap.String("address", c.Listen),
			zap.Int("statements", len(cfg.Statements)), zap.Int("workers", cfg.Workers))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "gateway server failed")
		}
		return nil
	case <-ctx.Done():
		logger.Info("Received signal, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error stopping gateway server", zap.Error(err))
	}
	logger.Info("Gateway stopped", zap.Int("pending", svc.conn.Pending()))
	return nil
}
