// Package app builds and runs the referer service: it turns a config.Config
// into a database store, an event pipeline and an HTTP server, and owns their
// shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"cloud.google.com/go/pubsub"
	cloudstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/referer-classifier/internal/api"
	"github.com/JakeFAU/referer-classifier/internal/config"
	"github.com/JakeFAU/referer-classifier/internal/events"
	pgevents "github.com/JakeFAU/referer-classifier/internal/events/postgres"
	pubsubsink "github.com/JakeFAU/referer-classifier/internal/events/pubsub"
	"github.com/JakeFAU/referer-classifier/internal/metrics"
	"github.com/JakeFAU/referer-classifier/internal/refdb"
	"github.com/JakeFAU/referer-classifier/internal/referer"
	"github.com/JakeFAU/referer-classifier/internal/storage"
	"github.com/JakeFAU/referer-classifier/internal/storage/gcs"
	"github.com/JakeFAU/referer-classifier/internal/storage/local"
)

// App contains the application's dependencies.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *refdb.Store
	apiServer *api.Server

	queue    *events.Queue
	dispatch *events.Dispatcher

	gcsClient    *cloudstorage.Client
	pubsubClient *pubsub.Client
	pubsubSink   *pubsubsink.Sink
	pgStore      *pgevents.Store
}

// Build creates the application's dependencies and loads the referer
// database. Partially built resources are released on error.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	a := &App{cfg: cfg, logger: logger}
	if err := a.build(ctx); err != nil {
		a.closeInfrastructure()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	a.logger.Info("building application dependencies",
		zap.String("database_source", a.cfg.Database.Source),
		zap.String("event_sink", a.cfg.Events.Sink),
	)

	cache, err := referer.NewCache(a.cfg.Cache.Size)
	if err != nil {
		return fmt.Errorf("classifier cache init failed: %w", err)
	}

	provider, object, err := a.setupStorage(ctx)
	if err != nil {
		return err
	}
	a.store = refdb.NewStore(provider, object, cache, a.logger.Named("refdb"))
	if provider == nil {
		a.store.UseDefault()
		a.logger.Info("using embedded referer database")
	} else if err := a.store.Load(ctx); err != nil {
		return fmt.Errorf("initial database load failed: %w", err)
	}

	sink, err := a.setupSink(ctx)
	if err != nil {
		return err
	}
	var emitter api.Emitter
	if sink != nil {
		a.queue = events.NewQueue(a.cfg.Events.QueueDepth)
		a.dispatch = events.NewDispatcher(a.queue, sink, events.Config{
			Workers:         a.cfg.Events.Workers,
			DeliveryTimeout: a.cfg.EventTimeout(),
		}, a.logger.Named("events"))
		emitter = a.dispatch
	}

	a.apiServer = api.NewServer(a.store, emitter, events.NewBuilder(nil, nil), a.cfg, a.logger.Named("api"))
	return nil
}

func (a *App) setupStorage(ctx context.Context) (storage.Provider, string, error) {
	switch a.cfg.Database.Source {
	case config.SourceFile:
		dir, object := filepath.Split(filepath.Clean(a.cfg.Database.Path))
		if dir == "" {
			dir = "."
		}
		provider, err := local.New(local.Config{BaseDir: dir}, a.logger.Named("local_storage"))
		if err != nil {
			return nil, "", fmt.Errorf("local database store init failed: %w", err)
		}
		a.logger.Info("using local referer database", zap.String("path", a.cfg.Database.Path))
		return provider, object, nil
	case config.SourceGCS:
		bucket, object := a.cfg.Database.Bucket, a.cfg.Database.Object
		var err error
		if a.cfg.Database.URI != "" {
			if bucket, object, err = gcs.ParseURI(a.cfg.Database.URI); err != nil {
				return nil, "", fmt.Errorf("database.uri: %w", err)
			}
		}
		a.gcsClient, err = cloudstorage.NewClient(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("gcs client init failed: %w", err)
		}
		provider, err := gcs.New(a.gcsClient, gcs.Config{Bucket: bucket}, a.logger.Named("gcs_storage"))
		if err != nil {
			return nil, "", fmt.Errorf("gcs database store init failed: %w", err)
		}
		a.logger.Info("using GCS referer database", zap.String("uri", gcs.URI(bucket, object)))
		return provider, object, nil
	default:
		return nil, "", nil
	}
}

func (a *App) setupSink(ctx context.Context) (events.Sink, error) {
	switch a.cfg.Events.Sink {
	case config.SinkLog:
		a.logger.Info("classification events go to the log")
		return events.NewLogSink(a.logger.Named("event_log")), nil
	case config.SinkPubSub:
		var err error
		a.pubsubClient, err = pubsub.NewClient(ctx, a.cfg.Events.PubSub.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("pubsub client init failed: %w", err)
		}
		a.pubsubSink = pubsubsink.New(a.pubsubClient.Topic(a.cfg.Events.PubSub.TopicName))
		a.logger.Info("Pub/Sub event sink initialized",
			zap.String("project", a.cfg.Events.PubSub.ProjectID),
			zap.String("topic", a.cfg.Events.PubSub.TopicName),
		)
		return a.pubsubSink, nil
	case config.SinkPostgres:
		var err error
		a.pgStore, err = pgevents.New(ctx, pgevents.Config{
			DSN:      a.cfg.Events.Postgres.DSN,
			Table:    a.cfg.Events.Postgres.Table,
			MaxConns: a.cfg.Events.Postgres.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres event store init failed: %w", err)
		}
		a.logger.Info("Postgres event sink initialized", zap.String("table", a.cfg.Events.Postgres.Table))
		return a.pgStore, nil
	default:
		a.logger.Info("classification events disabled")
		return nil, nil
	}
}

// Handler returns the HTTP handler of the API server.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Store returns the live referer database.
func (a *App) Store() *refdb.Store {
	return a.store
}

// Run listens on the configured port and serves until ctx is canceled or a
// component fails, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", a.cfg.Server.Port))
	if err != nil {
		a.Close()
		return fmt.Errorf("listen: %w", err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the HTTP server on ln alongside the event dispatcher and the
// database watcher. It closes the App before returning.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	defer a.Close()

	srv := &http.Server{
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	if a.dispatch != nil {
		g.Go(func() error {
			a.logger.Info("event dispatcher started", zap.Int("workers", a.cfg.Events.Workers))
			a.dispatch.Run(gctx)
			return nil
		})
	}
	if a.cfg.Database.Watch {
		g.Go(func() error {
			a.logger.Info("watching referer database for changes")
			return a.store.Watch(gctx)
		})
	}
	g.Go(func() error {
		a.logger.Info("http server started", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutdown initiated")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func (a *App) shutdownTimeout() time.Duration {
	if d := a.cfg.ShutdownTimeout(); d > 0 {
		return d
	}
	return 10 * time.Second
}

// Close stops event intake and releases the clients held by the App.
func (a *App) Close() {
	if a.queue != nil {
		a.queue.Close()
	}
	a.closeInfrastructure()
	if err := a.logger.Sync(); err != nil {
		a.logger.Debug("logger sync failed", zap.Error(err))
	}
	a.logger.Info("shutdown complete")
}

func (a *App) closeInfrastructure() {
	if a.pubsubSink != nil {
		a.pubsubSink.Stop()
		a.pubsubSink = nil
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
		a.pubsubClient = nil
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
		a.gcsClient = nil
	}
	if a.pgStore != nil {
		a.pgStore.Close()
		a.pgStore = nil
	}
}
