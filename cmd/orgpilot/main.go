package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ManuelReschke/OrgPilot/app/controllers"
	"github.com/ManuelReschke/OrgPilot/app/repository"
	"github.com/ManuelReschke/OrgPilot/internal/pkg/apidoc"
	"github.com/ManuelReschke/OrgPilot/internal/pkg/cache"
	"github.com/ManuelReschke/OrgPilot/internal/pkg/config"
	"github.com/ManuelReschke/OrgPilot/internal/pkg/costcenter"
	"github.com/ManuelReschke/OrgPilot/internal/pkg/database"
	"github.com/ManuelReschke/OrgPilot/internal/pkg/env"
	"github.com/ManuelReschke/OrgPilot/internal/pkg/github"
	"github.com/ManuelReschke/OrgPilot/internal/pkg/invitation"
	prommetrics "github.com/ManuelReschke/OrgPilot/internal/pkg/metrics/prometheus"
	"github.com/ManuelReschke/OrgPilot/internal/pkg/router"
	"github.com/ManuelReschke/OrgPilot/internal/pkg/scheduler"
	"github.com/ManuelReschke/OrgPilot/internal/pkg/webhook"
)

// limiter counters live apart from cache DB 0
const limiterCacheDB = 1

func main() {
	if !env.SetupEnvFile() {
		log.Info("No .env file found, using process environment")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	app, sched, err := NewApplication(cfg)
	if err != nil {
		log.Fatal(err)
	}
	sched.Start()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		log.Info("Shutting down...")
		sched.Stop()
		_ = app.Shutdown()
	}()

	if err := app.Listen(fmt.Sprintf("%s:%s", cfg.App.Host, cfg.App.Port)); err != nil {
		log.Fatal(err)
	}
}

// NewApplication wires the stores, services and routes. The returned scheduler
// is not started yet.
func NewApplication(cfg *config.Config) (*fiber.App, *scheduler.Scheduler, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	cacheClient := cache.New(cfg.Cache)
	limiterStorage, err := cache.NewStorage(cfg.Cache, limiterCacheDB)
	if err != nil {
		log.Warnf("Rate limiter falls back to in-memory storage: %v", err)
		limiterStorage = nil
	}

	repos := repository.NewFactory(db).GetRepositories()
	metrics := prommetrics.NewMetrics(prometheus.DefaultRegisterer, "orgpilot")

	ghClient, err := github.NewClient(github.Config{
		Token:             cfg.GitHub.Token,
		Org:               cfg.GitHub.Org,
		Enterprise:        cfg.GitHub.Enterprise,
		BaseURL:           cfg.GitHub.APIURL,
		RequestsPerSecond: cfg.GitHub.RequestsPerSecond,
	})
	if err != nil {
		return nil, nil, err
	}

	invitations := invitation.NewService(repos.Invitation, ghClient)
	processor := webhook.NewProcessor(repos.WebhookEvent, metrics)
	(&webhook.OrganizationHandlers{
		Invitations: invitations,
		CostCenters: costcenter.NewAssigner(ghClient, cfg.GitHub.DefaultCostCenterID, metrics),
	}).Register(processor)

	sched := scheduler.New("webhook-processor", cfg.Webhook.ProcessInterval, func(ctx context.Context) error {
		_, err := processor.ProcessPendingEvents(ctx)
		return err
	})

	app := fiber.New(fiber.Config{
		BodyLimit: 25 * 1024 * 1024, // upstream caps payloads at 25 MB
	})
	app.Use(recover.New(), logger.New())

	if path, ok := findOpenAPIFile(); ok {
		if _, err := apidoc.Load(context.Background(), path); err != nil {
			log.Warnf("API docs disabled: %v", err)
		} else {
			app.Use(swagger.New(swagger.Config{
				BasePath: "/docs/api/",
				FilePath: path,
				Path:     "v1",
			}))
		}
	}

	router.InstallRouter(app, router.Dependencies{
		Webhooks:        controllers.NewWebhookController(webhook.NewIngestor(repos.WebhookEvent, cfg.Webhook.Secret, metrics), repos.WebhookEvent, processor),
		Invitations:     controllers.NewInvitationController(invitations),
		DB:              db,
		Cache:           cacheClient,
		AdminTokenHash:  cfg.Admin.TokenHash,
		LimiterStorage:  limiterStorage,
		MetricsUser:     cfg.Metrics.User,
		MetricsPassword: cfg.Metrics.Password,
		Gatherer:        prometheus.DefaultGatherer,
	})

	return app, sched, nil
}

func findOpenAPIFile() (string, bool) {
	basePaths := []string{
		"./",        // current directory
		"../../",    // from cmd/orgpilot to project root
		"../../../", // fallback
	}
	for _, base := range basePaths {
		path := base + "public/docs/v1/openapi.yml"
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}
