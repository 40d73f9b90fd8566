package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	httpapi "github.com/rafall04/raf-bot-v2-sub002/internal/api/http"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/commands"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/dispatch"
	appEvidence "github.com/rafall04/raf-bot-v2-sub002/internal/application/evidence"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/fieldwork"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/lifecycle"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/notify"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/render"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/sessionstore"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/triage"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/wifi"
	"github.com/rafall04/raf-bot-v2-sub002/internal/config"
	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/actor"
	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/device"
	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/session"
	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/ticket"
	"github.com/rafall04/raf-bot-v2-sub002/internal/infrastructure/acs"
	"github.com/rafall04/raf-bot-v2-sub002/internal/infrastructure/memory"
	"github.com/rafall04/raf-bot-v2-sub002/internal/infrastructure/postgres"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()

	// persistence: Postgres when configured, in-memory otherwise
	var (
		ticketRepo ticket.Repository
		changelog  device.ChangeLog
	)
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db error: %v", err)
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool, "internal/migrations"); err != nil {
			log.Fatalf("migration error: %v", err)
		}
		ticketRepo = postgres.NewTicketRepository(pool)
		changelog = postgres.NewChangeLogRepository(pool)
		logger.Info().Msg("using postgres persistence")
	} else {
		ticketRepo = memory.NewTicketRepository()
		changelog = memory.NewChangeLog(cfg.ChangeLogRetention)
		logger.Info().Msg("using in-memory persistence")
	}

	directory := memory.NewDirectory(loadActors(cfg.ActorsFile, logger)...)

	// outbound messaging
	var sender notify.Sender
	if cfg.OutboundWebhookURL != "" {
		sender = notify.NewWebhookSender(cfg.OutboundWebhookURL, logger)
	} else {
		sender = notify.NewLogSender(logger)
	}
	fanout := notify.NewFanout(sender, logger)

	renderer := render.MustNew(render.DefaultTemplates, logger)

	sessions := sessionstore.New(cfg.SessionTTL, func(actorID string, _ *session.Session) {
		if text, ok := renderer.Render("session.expired", map[string]any{"minutes": int(cfg.SessionTTL.Minutes())}); ok {
			fanout.Notify(context.Background(), actorID, text)
		}
	}, logger)
	defer sessions.Close()

	gateway := acs.NewClient(cfg.ACSBaseURL, logger)

	lifecycleSvc := lifecycle.NewService(ticketRepo, fanout, renderer, lifecycle.Options{
		OTPTTL:            cfg.OTPTTL,
		CompletionCodeTTL: cfg.CompletionCodeTTL,
		MinEvidence:       cfg.MinEvidence,
		PriorityRules:     lifecycle.DefaultPriorityRules,
	}, logger)

	aggregator := appEvidence.NewAggregator(lifecycleSvc, fanout, renderer, cfg.EvidenceDebounce, cfg.EvidenceCapacity, logger)
	defer aggregator.Close()

	// workflows
	wifiFlow := wifi.NewWorkflow(gateway, changelog, renderer, fanout, cfg.DirectExecute, logger)
	triageFlow := triage.NewWorkflow(lifecycleSvc, gateway, directory, fanout, renderer, logger)
	fieldworkFlow := fieldwork.NewWorkflow(lifecycleSvc, aggregator, renderer, fieldwork.AssignmentPolicy{
		MaxActiveTickets: cfg.TechnicianTicketCap,
	}, logger)

	engine := dispatch.NewEngine(sessions, renderer, logger)
	wifiFlow.RegisterHandlers(engine)
	triageFlow.RegisterHandlers(engine)
	fieldworkFlow.RegisterHandlers(engine)

	router := commands.NewRouter(directory, engine, wifiFlow, triageFlow, fieldworkFlow, renderer, logger)

	apiServer := httpapi.NewServer(router, lifecycleSvc, changelog, logger)

	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// background loops
	pruneDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := changelog.Prune(context.Background(), cfg.ChangeLogRetention); err != nil {
					logger.Warn().Err(err).Msg("change log prune failed")
				} else if n > 0 {
					logger.Info().Int("evicted", n).Msg("change log pruned")
				}
			case <-pruneDone:
				return
			}
		}
	}()

	// start server
	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	close(pruneDone)
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
}

// loadActors reads the directory seed file. A missing file is not fatal;
// the service starts with an empty directory.
func loadActors(path string, logger zerolog.Logger) []*actor.Actor {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("actors file not loaded")
		return nil
	}
	var actors []*actor.Actor
	if err := json.Unmarshal(data, &actors); err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("actors file malformed")
		return nil
	}
	logger.Info().Int("count", len(actors)).Msg("actor directory loaded")
	return actors
}
