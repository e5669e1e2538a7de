package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dostify/dostify/internal/auth"
	"github.com/dostify/dostify/internal/chat"
	"github.com/dostify/dostify/internal/chat/tools"
	"github.com/dostify/dostify/internal/mailer"
	"github.com/dostify/dostify/internal/notify"
	"github.com/dostify/dostify/internal/scheduler"
	"github.com/dostify/dostify/internal/server"
	"github.com/dostify/dostify/internal/store/postgres"
	"github.com/dostify/dostify/pkg/llm"
	"github.com/dostify/dostify/pkg/llm/pollinations"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dostify API server",
	RunE:  runServe,
}

const defaultSystemPrompt = `You are Dostify, a warm and supportive wellbeing companion. You help the user track their mood, manage their tasks, and reflect on their day. Use the available tools to log moods, manage tasks, summarize sessions, and record feedback when the user asks. Keep replies short, kind, and practical.`

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if cfg.Database.URL == "" {
		return fmt.Errorf("database url is not configured")
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth jwt secret is not configured")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := postgres.RunMigrations(cfg.Database.URL); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	pool, err := postgres.NewPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	// Stores
	sessions := postgres.NewSessionStore(pool)
	tasksStore := postgres.NewTaskStore(pool)
	moods := postgres.NewMoodStore(pool)
	users := postgres.NewUserStore(pool)

	// LLM provider
	provider := pollinations.New(&llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Referrer:    cfg.LLM.Referrer,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		MaxInFlight: cfg.LLM.MaxInFlight,
	})

	// History builder
	history, err := chat.NewHistoryBuilder(cfg.LLM.Model, cfg.Chat.HistoryWindow, cfg.Chat.TokenBudget)
	if err != nil {
		return fmt.Errorf("create history builder: %w", err)
	}

	// Tool registry
	registry := chat.NewRegistry()
	registry.Register(tools.NewLogMood(moods))
	registry.Register(tools.NewGetMoodHistory(moods))
	registry.Register(tools.NewCreateTask(tasksStore))
	registry.Register(tools.NewGetTasks(tasksStore))
	registry.Register(tools.NewUpdateTask(tasksStore))
	registry.Register(tools.NewDeleteTask(tasksStore))
	registry.Register(tools.NewGetSessionSummary())
	registry.Register(tools.NewGiveFeedback(sessions))

	systemPrompt := defaultSystemPrompt
	if cfg.Chat.SystemPromptPath != "" {
		data, err := os.ReadFile(cfg.Chat.SystemPromptPath)
		if err != nil {
			return fmt.Errorf("read system prompt: %w", err)
		}
		systemPrompt = string(data)
	}

	orch := chat.NewOrchestrator(provider, sessions, registry, history, systemPrompt)

	// Auth
	authSvc := auth.NewService(users, mailer.NewLogMailer(), cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.TokenTTLMins)*time.Minute, cfg.Auth.BcryptCost)

	// Reminder delivery channels
	notifier := notify.NewRegistry()
	if cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegram(cfg.Telegram.Token)
		if err != nil {
			return fmt.Errorf("create telegram sender: %w", err)
		}
		notifier.Register(tg)
		slog.Info("telegram reminders enabled")
	} else {
		slog.Warn("telegram reminders disabled (no token)")
	}
	notifier.Register(notify.NewLog())

	// Reminder scheduler
	sched := scheduler.New(tasksStore, users, notifier,
		cfg.Scheduler.ReminderSpec, time.Duration(cfg.Scheduler.LookaheadHours)*time.Hour)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	srv := server.NewServer(orch, authSvc, sessions, tasksStore, moods)
	httpServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("dostify started",
			"addr", cfg.Server.Addr,
			"log_level", cfg.LogLevel,
			"model", cfg.LLM.Model,
			"history_window", cfg.Chat.HistoryWindow,
			"reminder_spec", cfg.Scheduler.ReminderSpec,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-sigChan:
		slog.Info("shutting down", "signal", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
