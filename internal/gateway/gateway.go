package gateway

import (
	"context"
	"fmt"
	"time"

	"tradegateway/config"
	"tradegateway/internal/journal"
	"tradegateway/internal/listener"
	"tradegateway/internal/session"
	"tradegateway/pkg/mobius"
	"tradegateway/pkg/storage/postgres"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const statusInterval = 30 * time.Second

// Run wires the upstream transport, the shared session, the optional journal
// and the downstream listener, and blocks until ctx is cancelled or the
// listener fails. A dropped upstream connection is logged but does not stop
// the gateway; the session is not re-established.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	env := cfg.Log.Environment

	transport := mobius.NewWSClient(mobius.Options{
		URL:              cfg.Upstream.Host,
		UserAgent:        cfg.Upstream.UserAgent,
		HandshakeTimeout: cfg.Upstream.HandshakeTimeout,
		WriteTimeout:     cfg.Upstream.WriteTimeout,
	}, logger.Named("mobius"))

	sess := session.New(transport, session.Credentials{
		Login:           cfg.Upstream.Login,
		Password:        cfg.Upstream.ResolvePassword(env),
		AccountNumberID: cfg.Upstream.AccountNumberID,
	}, logger.Named("session"))

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Postgres.Enabled {
		postgresClient, err := postgres.InitializeAndMigrate(cfg.Postgres, env, true)
		if err != nil {
			return fmt.Errorf("failed to connect to DB: %w", err)
		}
		defer postgresClient.Close()

		recorder := journal.NewRecorder(postgresClient, logger.Named("journal"), journal.Options{
			Retention: cfg.Postgres.Retention,
		})
		detach := recorder.Attach(sess)
		defer detach()
		g.Go(func() error { return recorder.Run(ctx) })
		logger.Info("close journal enabled", zap.String("dbname", cfg.Postgres.DBName))
	}

	if err := transport.Connect(ctx); err != nil {
		return err
	}
	defer transport.Close()

	g.Go(func() error {
		if err := transport.Listen(ctx); err != nil {
			logger.Error("upstream connection lost, session will not reconnect", zap.Error(err))
		}
		return nil
	})

	// relays call Connect too; starting here only makes the handshake eager
	g.Go(func() error {
		if err := sess.Connect(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("initial session connect failed", zap.Error(err))
		}
		return nil
	})

	srv := listener.NewServer(cfg.Server, sess, logger.Named("listener"))
	g.Go(func() error { return srv.Run(ctx) })

	// Periodically log session status for visibility
	g.Go(func() error {
		ticker := time.NewTicker(statusInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				status := sess.Status()
				logger.Info("session status",
					zap.String("state", status.State),
					zap.Int("orders", status.Orders),
					zap.Int("tagged_orders", taggedOrders(sess.Orders())),
					zap.Int("subscribers", sess.Subscribers()),
				)
			}
		}
	})

	return g.Wait()
}

// taggedOrders counts mirrored orders carrying an external id.
func taggedOrders(orders []mobius.Order) int {
	n := 0
	for _, o := range orders {
		if _, ok := session.DecodeComment(o.Comment); ok {
			n++
		}
	}
	return n
}
