package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"journalflow/internal/bootstrap/config"
	"journalflow/internal/bootstrap/database"
	"journalflow/internal/bootstrap/logging"
	cacheinfra "journalflow/internal/infrastructure/cache"
	"journalflow/internal/infrastructure/metrics"
	"journalflow/internal/infrastructure/notify"
	sqliterepo "journalflow/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "journalflow/internal/infrastructure/persistence/sqlite/uow"
	"journalflow/internal/infrastructure/storage"
	"journalflow/internal/ports"
	"journalflow/internal/usecase/editorial"
	"journalflow/internal/usecase/notification"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewEditorialRepository,
			fx.As(new(ports.EditorialRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewIssueRepository,
			fx.As(new(ports.IssueRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewNotificationOutbox,
			fx.As(new(ports.NotificationOutbox)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewDirectoryRepository,
			fx.As(new(ports.DirectoryRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(
		fx.Annotate(
			cacheinfra.NewKVCache,
			fx.As(new(ports.Cache)),
		),
	),
	fx.Provide(
		fx.Annotate(
			metrics.New,
			fx.As(fx.Self()),
			fx.As(new(ports.Metrics)),
		),
	),
	fx.Provide(provideFileStore),
	fx.Provide(provideCatalog),
	fx.Provide(provideDispatcher),
	fx.Provide(provideService),
	fx.Provide(provideRelay),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideFileStore(cfg config.Config) (ports.FileStore, error) {
	return storage.NewLocalStore(cfg.Storage.Root)
}

func provideCatalog(cfg config.Config) (*notify.Catalog, error) {
	return notify.LoadCatalog(cfg.Notify.CatalogFile)
}

type dispatcherParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Ctx       context.Context
	Config    config.Config
	Catalog   *notify.Catalog
	Directory ports.DirectoryRepository
}

func provideDispatcher(p dispatcherParams) (ports.Dispatcher, error) {
	logCtx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	cfg := p.Config.Notify

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "log":
		return notify.NewLogDispatcher(p.Catalog), nil
	case "smtp":
		if strings.TrimSpace(cfg.SMTP.Host) == "" {
			return nil, fmt.Errorf("notify.smtp.host is required for the smtp driver")
		}
		sender := notify.NewSMTPSender(notify.SMTPOptions{
			Host:          cfg.SMTP.Host,
			Port:          cfg.SMTP.Port,
			User:          cfg.SMTP.User,
			Pass:          cfg.SMTP.Pass,
			SkipTLSVerify: cfg.SMTP.SkipTLSVerify,
		})
		logging.Info(logCtx, "smtp dispatcher configured", slog.String("host", cfg.SMTP.Host), slog.Int("port", cfg.SMTP.Port))
		return notify.NewSMTPDispatcher(sender, p.Directory, p.Catalog, cfg.From), nil
	case "nats":
		conn, err := nats.Connect(cfg.NATS.URL,
			nats.Name(p.Config.App.Name),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		if err != nil {
			return nil, fmt.Errorf("connect nats %s: %w", cfg.NATS.URL, err)
		}
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				return conn.Drain()
			},
		})
		logging.Info(logCtx, "nats dispatcher configured", slog.String("url", cfg.NATS.URL), slog.String("subject_prefix", cfg.NATS.SubjectPrefix))
		return notify.NewNATSDispatcher(conn, cfg.NATS.SubjectPrefix), nil
	default:
		return nil, fmt.Errorf("unsupported notify driver %q", cfg.Driver)
	}
}

type serviceParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Config     config.Config
	Repo       ports.EditorialRepository
	Issues     ports.IssueRepository
	Outbox     ports.NotificationOutbox
	Directory  ports.DirectoryRepository
	Files      ports.FileStore
	UnitOfWork ports.UnitOfWork
	Cache      ports.Cache
	Dispatcher ports.Dispatcher
	Metrics    ports.Metrics
}

func provideService(p serviceParams) *editorial.Service {
	svc := editorial.NewService(editorial.Deps{
		Repo:       p.Repo,
		Issues:     p.Issues,
		Outbox:     p.Outbox,
		Directory:  p.Directory,
		Files:      p.Files,
		UnitOfWork: p.UnitOfWork,
		Cache:      p.Cache,
		Dispatcher: p.Dispatcher,
		Metrics:    p.Metrics,
	}, editorial.Options{
		PublicURL:      p.Config.App.PublicURL,
		TrackingPrefix: p.Config.App.TrackingPrefix,
		PreviewRunes:   p.Config.Review.AbstractPreviewRunes,
		ReviewWindow:   time.Duration(p.Config.Review.DefaultDueDays) * 24 * time.Hour,

		DispatchWorkers: p.Config.Notify.DispatchWorkers,
		DispatchTimeout: p.Config.Notify.DispatchTimeout,
	})

	// Registered after the database hook, so it stops first.
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return svc.Drain(ctx)
		},
	})
	return svc
}

func provideRelay(cfg config.Config, outbox ports.NotificationOutbox, dispatcher ports.Dispatcher, recorder ports.Metrics) *notification.Relay {
	return notification.NewRelay(outbox, dispatcher, recorder, notification.RelayOptions{
		BatchSize:   cfg.Notify.Relay.BatchSize,
		MaxAttempts: cfg.Notify.Relay.MaxAttempts,
	})
}

type appParams struct {
	fx.In

	Config  config.Config
	DB      *gorm.DB
	Catalog *notify.Catalog
	Metrics *metrics.Recorder
	Relay   *notification.Relay
}

func provideApp(p appParams) *App {
	return &App{
		Config:  p.Config,
		DB:      p.DB,
		Catalog: p.Catalog,
		Metrics: p.Metrics,
		Relay:   p.Relay,
	}
}
