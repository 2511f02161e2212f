package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/p-blackswan/pm-agent/internal/ai"
	"github.com/p-blackswan/pm-agent/internal/calendar"
	"github.com/p-blackswan/pm-agent/internal/cleanup"
	"github.com/p-blackswan/pm-agent/internal/config"
	confluenceclient "github.com/p-blackswan/pm-agent/internal/confluence"
	"github.com/p-blackswan/pm-agent/internal/conversation"
	"github.com/p-blackswan/pm-agent/internal/health"
	jiraclient "github.com/p-blackswan/pm-agent/internal/jira"
	"github.com/p-blackswan/pm-agent/internal/metrics"
	"github.com/p-blackswan/pm-agent/internal/mgmt"
	slackpkg "github.com/p-blackswan/pm-agent/internal/slack"
	"github.com/p-blackswan/pm-agent/internal/store"
	"github.com/p-blackswan/pm-agent/internal/tasks"
	"github.com/p-blackswan/pm-agent/internal/workflow"
	"github.com/p-blackswan/pm-agent/pkg/tokenstore"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	// Setup structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(os.Stdout).With().Timestamp().Caller().Logger()

	if os.Getenv("PM_ENVIRONMENT") == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	log.Logger = logger

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	// Set log level
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err == nil {
		zerolog.SetGlobalLevel(level)
	}

	behavior := config.DefaultBehavior()
	if cfg.BehaviorFile != "" {
		behavior, err = config.LoadBehavior(cfg.BehaviorFile)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.BehaviorFile).Msg("failed to load behavior file")
		}
		logger.Info().Str("path", cfg.BehaviorFile).Msg("behavior file loaded")
	}

	logger.Info().
		Str("version", version).
		Str("environment", cfg.Environment).
		Str("mgmt_addr", cfg.MgmtListenAddr).
		Bool("slack_enabled", cfg.SlackEnabled()).
		Bool("persistence_enabled", cfg.PersistenceEnabled()).
		Msg("starting pm agent")

	// Context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Persistence (optional)
	var records *store.Store
	if cfg.PersistenceEnabled() {
		records, err = store.New(cfg.DatabasePath, logger)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("failed to open database")
		}
		defer records.Close()

		if n, failErr := records.FailStuckTasks(); failErr != nil {
			logger.Warn().Err(failErr).Msg("failed to mark stuck tasks")
		} else if n > 0 {
			logger.Info().Int64("count", n).Msg("marked stuck tasks as failed")
		}
	} else {
		logger.Info().Msg("persistence not configured — task records are in-memory only")
	}

	collector := metrics.New()
	checker := health.NewChecker(logger)

	// AI client
	aiClient := ai.NewClient(cfg.AIAPIKey, logger,
		ai.WithBaseURL(cfg.AIBaseURL),
		ai.WithModel(cfg.AIModel),
		ai.WithMaxTokens(cfg.AIMaxTokens),
	)
	if cfg.AIEnabled() {
		checker.Register("ai", health.PingCheck(aiClient.Ping))
	} else {
		logger.Info().Msg("AI not configured — generation workflows will fail until it is")
	}

	// Jira client
	var jiraAuth jiraclient.Authenticator = &jiraclient.BasicAuth{Email: cfg.JiraAPIEmail, APIToken: cfg.JiraAPIToken}
	if cfg.JiraAccessToken != "" {
		jiraAuth = &jiraclient.TokenAuth{AccessToken: cfg.JiraAccessToken}
	}
	jiraClient := jiraclient.NewClient(cfg.JiraBaseURL, cfg.JiraProjectKey, jiraAuth, logger)
	jiraClient.SetFieldConfig(jiraclient.FieldConfig{
		EpicName:    behavior.Jira.EpicNameField,
		StoryPoints: behavior.Jira.StoryPointsField,
	})
	if cfg.JiraEnabled() {
		checker.Register("jira", health.PingCheck(jiraClient.Myself))
	} else {
		logger.Info().Msg("Jira not configured — skipping health check")
	}

	// Confluence client
	confluenceAuth := &confluenceclient.BasicAuth{Email: cfg.ConfluenceAPIEmail, APIToken: cfg.ConfluenceAPIToken}
	confluenceClient := confluenceclient.NewClient(cfg.ConfluenceBaseURL, confluenceAuth, logger)
	if cfg.ConfluenceEnabled() {
		checker.Register("confluence", health.PingCheck(confluenceClient.Ping))
	} else {
		logger.Info().Msg("Confluence not configured — skipping health check")
	}

	// Calendar client
	var account calendar.ServiceAccount
	if cfg.CalendarEnabled() {
		pem, readErr := os.ReadFile(cfg.CalendarPrivateKeyPath)
		if readErr != nil {
			logger.Fatal().Err(readErr).Str("path", cfg.CalendarPrivateKeyPath).Msg("failed to read calendar private key")
		}
		account, err = calendar.ParseServiceAccount(cfg.CalendarServiceEmail, string(pem))
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to parse calendar service account")
		}
	}
	calendarClient := calendar.NewClient(account, cfg.CalendarID, tokenstore.NewMemoryStore(), logger)
	if cfg.CalendarEnabled() {
		checker.Register("calendar", health.PingCheck(calendarClient.Ping))
	} else {
		logger.Info().Msg("Calendar not configured — skipping health check")
	}

	// Task runner
	runner := tasks.NewRunner(tasks.Config{
		Workers:     cfg.TaskWorkers,
		QueueSize:   cfg.TaskQueueSize,
		TaskTimeout: cfg.TaskTimeout,
	}, logger)
	runner.SetObserver(collector)
	if records != nil {
		runner.SetStore(records)
	}
	runner.Start(ctx)

	// Workflows
	proposals := workflow.NewProposalStore(cfg.ProposalTTL)

	var auditor workflow.Auditor
	if records != nil {
		auditor = records
	}
	orch := workflow.NewOrchestrator(aiClient, jiraClient, confluenceClient, calendarClient, proposals, collector, auditor, logger)
	dispatcher := workflow.NewDispatcher(orch, runner, nil)
	dispatcher.SetDefaults(workflow.Defaults{
		EpicPriority: behavior.Epic.DefaultPriority,
		EpicLabels:   behavior.Epic.Labels,
		MeetingDays:  behavior.Meetings.DaysBack,
	})

	// Conversation machine and Slack surface. The machine needs the Slack
	// sender and the dispatcher needs the machine back as its notifier, so
	// wiring happens in phases.
	conversations := conversation.NewMemoryStore()

	var wg sync.WaitGroup

	var slackSender conversation.Sender
	var slackApp *slackpkg.App
	if cfg.SlackEnabled() {
		handler := slackpkg.NewHandler(nil, logger)
		slackApp = slackpkg.NewApp(cfg.SlackBotToken, cfg.SlackAppToken, handler, logger)
		slackSender = slackpkg.NewSender(slackApp.API())

		machine := conversation.NewMachine(conversations, dispatcher, slackSender, collector, logger)
		dispatcher.SetNotifier(machine)
		handler.SetConversation(machine)

		defaultSpace := behavior.Meetings.SpaceKey
		if defaultSpace == "" {
			defaultSpace = cfg.ConfluenceSpaceKey
		}
		handler.SetDefaultSpace(defaultSpace)

		api := slackApp.API()
		checker.Register("slack", health.PingCheck(func(ctx context.Context) error {
			_, err := api.AuthTestContext(ctx)
			return err
		}))

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := slackApp.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("slack socket mode error")
			}
		}()
	} else {
		logger.Info().Msg("Slack not configured — running in API-only mode")
	}

	checker.LogStartup(ctx)

	// Cleanup sweeper
	sweeper := cleanup.NewSweeper(cleanup.Config{
		Interval:         cfg.CleanupInterval,
		ConversationIdle: cfg.ConversationIdleTTL,
		RecordRetention:  cfg.RecordRetention,
	}, proposals, conversations, slackSender, logger)
	sweeper.SetObserver(collector)
	if records != nil {
		sweeper.SetStore(records)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(ctx)
	}()

	// Ops API
	handlers := mgmt.NewHandlers(runner, checker, conversations, version, logger)
	if records != nil {
		handlers.SetStore(records)
	}
	mgmtServer := mgmt.NewServer(mgmt.ServerConfig{
		ListenAddr: cfg.MgmtListenAddr,
		AuthConfig: mgmt.AuthConfig{
			Mode:   cfg.MgmtAuthMode,
			APIKey: cfg.MgmtAPIKey,
		},
		CORSOrigins: cfg.MgmtCORSOrigins,
	}, handlers, collector, logger)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := mgmtServer.Start(); err != nil {
			logger.Error().Err(err).Msg("ops API server error")
		}
	}()

	// Wait for shutdown signal
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutting down gracefully")

	cancel()

	if err := mgmtServer.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("ops API shutdown error")
	}

	runner.Stop()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info().Msg("all goroutines stopped")
	case <-time.After(15 * time.Second):
		logger.Warn().Msg("forced shutdown after timeout")
	}

	logger.Info().Msg("pm agent stopped")
}
