package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/indieinfra/clipvault/browse"
	"github.com/indieinfra/clipvault/command"
	"github.com/indieinfra/clipvault/config"
	"github.com/indieinfra/clipvault/logging"
	"github.com/indieinfra/clipvault/media"
	"github.com/indieinfra/clipvault/perms"
	"github.com/indieinfra/clipvault/storage/meta"
	metafactory "github.com/indieinfra/clipvault/storage/meta/factory"
	objectfactory "github.com/indieinfra/clipvault/storage/object/factory"
	"github.com/indieinfra/clipvault/sweep"
	"github.com/indieinfra/clipvault/upload"
)

const reapInterval = 30 * time.Second

type application struct {
	cfg      *config.Config
	log      logging.Logger
	meta     meta.Store
	service  *command.Service
	sessions *browse.Registry
	schedule *sweep.Schedule
}

func main() {
	configFile := flag.String("config", "config.yml", "Path to the configuration file (i.e., /etc/clipvault.yaml)")
	flag.Parse()

	if len(strings.Trim(*configFile, " ")) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	app, err := buildApplication(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "clipvault: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app.run(ctx)
}

func buildApplication(configFile string) (*application, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	log := logging.NewDefault(cfg.Debug)

	metaStore, err := metafactory.Create(&cfg.Metadata)
	if err != nil {
		return nil, fmt.Errorf("metadata store: %w", err)
	}

	objects, err := objectfactory.Create(&cfg.Objects)
	if err != nil {
		return nil, fmt.Errorf("object store: %w", err)
	}

	fetcher, err := media.NewCommandFetcher(&cfg.Fetch, log)
	if err != nil {
		return nil, fmt.Errorf("media fetcher: %w", err)
	}

	pipeline := upload.NewPipeline(metaStore, objects, fetcher, cfg.Vault.DefaultUploadLimit, log)
	sessions := browse.NewRegistry(log)
	checker := perms.NewChecker(cfg.Roles.Admin, cfg.Roles.Uploader)

	idleAfter := time.Duration(cfg.Vault.SessionIdleSeconds) * time.Second
	service := command.NewService(pipeline, sessions, metaStore, objects, checker, cfg.Vault.ListPageSize, idleAfter, log)

	retention := time.Duration(cfg.Vault.RetentionDays) * 24 * time.Hour
	sweeper := sweep.NewSweeper(metaStore, objects, retention, log)

	schedule, err := sweep.NewSchedule(sweeper, cfg.Vault.SweepHour, cfg.Vault.Timezone)
	if err != nil {
		return nil, fmt.Errorf("sweep schedule: %w", err)
	}

	return &application{
		cfg:      cfg,
		log:      log,
		meta:     metaStore,
		service:  service,
		sessions: sessions,
		schedule: schedule,
	}, nil
}

// run starts the background loops and blocks until the context is cancelled.
// The command service is wired and ready for a transport binding to call.
func (a *application) run(ctx context.Context) {
	go a.sessions.Run(ctx, reapInterval)
	go a.schedule.Run(ctx)

	a.log.Info(ctx, "clipvault started",
		"object_strategy", a.cfg.Objects.Strategy,
		"metadata_strategy", a.cfg.Metadata.Strategy,
		"retention_days", a.cfg.Vault.RetentionDays,
	)

	<-ctx.Done()

	a.log.Info(context.Background(), "shutting down")
	if err := a.meta.Close(); err != nil {
		a.log.Error(context.Background(), "metadata store close failed", "error", err)
	}
}
