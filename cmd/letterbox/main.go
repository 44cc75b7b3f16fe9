package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/letterboxhq/letterbox/internal/auth"
	"github.com/letterboxhq/letterbox/internal/handlers"
	"github.com/letterboxhq/letterbox/internal/mailer"
	"github.com/letterboxhq/letterbox/internal/relay"
	"github.com/letterboxhq/letterbox/internal/store/postgres"
	"github.com/letterboxhq/letterbox/internal/stream"
	"github.com/letterboxhq/letterbox/internal/webhook"
	"github.com/letterboxhq/letterbox/pkg/broadcast"
	"github.com/letterboxhq/letterbox/pkg/config"
	"github.com/letterboxhq/letterbox/pkg/httpserver"
	"github.com/letterboxhq/letterbox/pkg/logger"
	"github.com/letterboxhq/letterbox/pkg/pg"
	"github.com/letterboxhq/letterbox/pkg/ratelimit"
	redispkg "github.com/letterboxhq/letterbox/pkg/redis"
)

type appConfig struct {
	Env           string `env:"APP_ENV" envDefault:"development"`
	SecureCookies bool   `env:"SECURE_COOKIES" envDefault:"false"`

	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	WebhookSecret string        `env:"WEBHOOK_SECRET,required"`

	// RelayMode selects how events reach streaming clients: "direct"
	// fans out in-process, "redis" goes through a shared pub/sub channel
	// so every instance delivers to its own connections.
	RelayMode    string `env:"RELAY_MODE" envDefault:"direct"`
	RelayChannel string `env:"RELAY_CHANNEL" envDefault:"letterbox:events"`
	RelayBuffer  int    `env:"RELAY_BUFFER" envDefault:"64"`

	StreamKeepalive time.Duration `env:"STREAM_KEEPALIVE" envDefault:"30s"`

	LoginRateLimit    int           `env:"LOGIN_RATE_LIMIT" envDefault:"10"`
	LoginRateInterval time.Duration `env:"LOGIN_RATE_INTERVAL" envDefault:"1m"`
}

func main() {
	_ = godotenv.Load()

	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(
		logger.WithEnvironment(cfg.Env, "letterbox"),
		logger.WithContextExtractors(auth.LoggerExtractor()),
	)
	slog.SetDefault(log)

	ctx := context.Background()

	var pgCfg pg.Config
	config.MustLoad(&pgCfg)
	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		log.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	accounts := postgres.NewAccountStore(pool)
	users := postgres.NewUserStore(pool)
	emails := postgres.NewEmailStore(pool)
	sessions := postgres.NewSessionStore(pool)

	authSvc := auth.NewService(users, sessions, cfg.SessionTTL)

	registry := stream.NewRegistry()
	fanout := relay.NewFanout(registry, log)

	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()

	healthchecks := []func(context.Context) error{pg.Healthcheck(pool)}

	var publisher relay.Publisher
	switch cfg.RelayMode {
	case "direct":
		publisher = relay.NewDirect(fanout)
	case "redis":
		var redisCfg redispkg.Config
		config.MustLoad(&redisCfg)
		client, err := redispkg.Connect(ctx, redisCfg)
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		healthchecks = append(healthchecks, redispkg.Healthcheck(client))

		b := broadcast.NewRedisBroadcaster[relay.Event](client, cfg.RelayChannel, cfg.RelayBuffer, log)
		defer b.Close()

		channel := relay.NewChannel(b, fanout, log)
		go channel.Run(relayCtx)
		publisher = channel
	default:
		log.Error("unknown relay mode", "relay_mode", cfg.RelayMode)
		os.Exit(1)
	}
	log.Info("event relay configured", "relay_mode", cfg.RelayMode)

	sender := mailer.NewPostmarkSender()
	hook := webhook.NewHandler(webhookStore{accounts, users, emails}, publisher, sender, log)

	limiterStore := ratelimit.NewMemoryStore()
	defer limiterStore.Close()
	loginLimiter, err := ratelimit.NewTokenBucket(limiterStore, cfg.LoginRateLimit, cfg.LoginRateInterval)
	if err != nil {
		log.Error("invalid login rate limit config", "error", err)
		os.Exit(1)
	}

	router := handlers.NewRouter(handlers.RouterDeps{
		Auth:         handlers.NewAuthHandler(authSvc, accounts, users, cfg.SessionTTL, cfg.SecureCookies, log),
		Mailbox:      handlers.NewMailboxHandler(emails, log),
		Mail:         handlers.NewMailHandler(accounts, emails, sender, log),
		Admin:        handlers.NewAdminHandler(users, log),
		Sysadmin:     handlers.NewSysadminHandler(accounts, users, log),
		Webhook:      handlers.NewWebhookHandler(hook, cfg.WebhookSecret, log),
		Stream:       stream.NewHandler(registry, cfg.StreamKeepalive, log),
		AuthSvc:      authSvc,
		LoginLimiter: loginLimiter,
		Health:       httpserver.HealthCheckHandler(ctx, log, healthchecks...),
	})

	// Expired sessions pile up in storage, not in memory. Sweep hourly.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if err := sessions.DeleteExpiredSessions(context.Background()); err != nil {
				log.Error("failed to clean up expired sessions", "error", err)
			}
		}
	}()

	var srvCfg httpserver.Config
	config.MustLoad(&srvCfg)
	srv := httpserver.NewFromConfig(srvCfg,
		httpserver.WithLogger(log),
		httpserver.WithStartHook(func(l *slog.Logger) {
			l.Info("letterbox starting", "addr", srvCfg.Addr, "env", cfg.Env)
		}),
		httpserver.WithStopHook(func(l *slog.Logger) {
			stopRelay()
			l.Info("letterbox stopped")
		}),
	)

	if err := srv.Run(ctx, router); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

// webhookStore combines the per-entity stores into the single surface
// the webhook processor expects.
type webhookStore struct {
	*postgres.AccountStore
	*postgres.UserStore
	*postgres.EmailStore
}
