package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/itamarbiton/klinika-dw-bot/internal/bot"
	"github.com/itamarbiton/klinika-dw-bot/internal/config"
	"github.com/itamarbiton/klinika-dw-bot/internal/db"
	"github.com/itamarbiton/klinika-dw-bot/internal/rest"
	"github.com/itamarbiton/klinika-dw-bot/internal/rest/handlers"
	"github.com/itamarbiton/klinika-dw-bot/pkg/history"
	"github.com/itamarbiton/klinika-dw-bot/pkg/roster"
	"github.com/itamarbiton/klinika-dw-bot/pkg/task"
	"github.com/itamarbiton/klinika-dw-bot/pkg/user"
)

func main() {
	cfg := config.MustLoad()
	log := setupLogger(cfg.Env)
	log.WithField("env", cfg.Env).Info("duty roster bot starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer pool.Close()

	users := user.NewPgStore(pool)
	tasks := task.NewPgStore(pool)
	hist := history.NewPgStore(pool)
	for name, ensure := range map[string]func(context.Context) error{
		"users":   users.EnsureTable,
		"tasks":   tasks.EnsureTable,
		"history": hist.EnsureTable,
	} {
		if err := ensure(ctx); err != nil {
			log.WithError(err).WithField("table", name).Fatal("failed to ensure table")
		}
	}

	client := bot.NewClient(cfg.Telegram.Token, log.WithField("component", "telegram"))
	engine := roster.New(tasks, users, hist, log.WithField("component", "roster"))
	dispatcher := bot.NewDispatcher(users, tasks, engine, client, log.WithField("component", "dispatcher"))

	if cfg.Schedule.RotateEvery > 0 || cfg.Schedule.InformEvery > 0 {
		sched := roster.NewScheduler(engine, client,
			cfg.Schedule.RotateEvery.Std(), cfg.Schedule.InformEvery.Std(),
			log.WithField("component", "scheduler"))
		go sched.Run(ctx)
	}

	router := rest.New(cfg.Env, log.WithField("component", "rest"),
		handlers.NewWebhookHandler(dispatcher, client, log.WithField("handler", "webhook")),
		handlers.NewTriggersHandler(engine, client, log.WithField("handler", "triggers")),
		handlers.NewTasksHandler(tasks, hist, log.WithField("handler", "tasks")),
	)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down")
		cancel()
	}()

	log.WithField("addr", cfg.ListenAddr).Info("listening")
	if err := router.Run(cfg.ListenAddr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func setupLogger(env string) *logrus.Entry {
	log := logrus.New()
	switch env {
	case config.EnvProd:
		log.SetLevel(logrus.InfoLevel)
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		log.SetLevel(logrus.DebugLevel)
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logrus.NewEntry(log)
}
