package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"

	"github.com/hray3182/lifeline-calendar/internal/calendar"
	"github.com/hray3182/lifeline-calendar/internal/config"
	"github.com/hray3182/lifeline-calendar/internal/database"
	"github.com/hray3182/lifeline-calendar/internal/logger"
	"github.com/hray3182/lifeline-calendar/internal/notify"
	"github.com/hray3182/lifeline-calendar/internal/reminder"
	"github.com/hray3182/lifeline-calendar/internal/repository"
	"github.com/hray3182/lifeline-calendar/internal/scheduler"
)

func main() {
	once := flag.Bool("once", false, "run a single dispatch tick and exit")
	migrateOnly := flag.Bool("migrate-only", false, "apply database migrations and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Options{Level: cfg.LogLevel, Dir: cfg.LogDir})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	if err := run(cfg, log, *once, *migrateOnly); err != nil {
		log.Error("MAIN", err.Error())
		log.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger, once, migrateOnly bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	db, err := database.New(ctx, cfg.DatabaseURI)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("DATABASE", "Connected to database")

	applied, err := db.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	for _, name := range applied {
		log.LogDatabase("MIGRATE", "schema_migrations", name)
	}
	log.Info("DATABASE", fmt.Sprintf("Database migrations completed (%d applied)", len(applied)))
	if migrateOnly {
		return nil
	}

	definitions := repository.NewRecurringEventRepository(db)
	events := repository.NewEventRepository(db)
	exceptions := repository.NewExceptionRepository(db)
	reminders := repository.NewReminderRepository(db)
	users := repository.NewUserRepository(db)

	materializer := calendar.NewMaterializer(events, exceptions, log, cfg.MaxOccurrences)
	calendarService := calendar.NewService(definitions, events, exceptions, materializer, log, cfg.MaxRangeSpan)

	sender, closeSender, err := newSender(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeSender()
	log.Info("NOTIFY", fmt.Sprintf("Using %s notifier", sender.Name()))

	dispatcher := reminder.NewDispatcher(reminders, calendarService, users, sender, reminder.SystemClock{}, log,
		reminder.DispatcherConfig{
			PollInterval:  cfg.PollInterval,
			NotifyTimeout: cfg.NotifyTimeout,
		})

	var lock scheduler.TickLock = scheduler.LocalLock{}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		lock = scheduler.NewRedisTickLock(client, "", dispatcher.PollInterval())
		log.Info("SCHEDULER", fmt.Sprintf("Coordinating ticks through redis at %s", cfg.RedisAddr))
	}

	sched := scheduler.New(dispatcher, lock, log, dispatcher.PollInterval())

	if once {
		stats, ran := sched.RunOnce(ctx)
		if !ran {
			log.Warn("MAIN", "Tick skipped")
			return nil
		}
		log.Info("MAIN", fmt.Sprintf("Tick done: %d pending, %d sent, %d squelched, %d not due, %d skipped, %d failed",
			stats.Pending, stats.Sent, stats.Squelched, stats.NotDue, stats.Skipped, stats.Failed))
		return nil
	}

	sched.Start(ctx)
	log.Info("MAIN", "Shut down cleanly")
	return nil
}

func newSender(ctx context.Context, cfg *config.Config, log *logger.Logger) (notify.Sender, func(), error) {
	switch cfg.Notifier {
	case config.NotifierTelegram:
		s, err := notify.NewTelegramSender(cfg.TelegramToken, cfg.NotifyTimeout)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	case config.NotifierKafka:
		if err := notify.EnsureTopic(ctx, cfg.KafkaBrokers, cfg.KafkaTopic); err != nil {
			log.Warn("NOTIFY", fmt.Sprintf("Could not ensure topic %s: %v", cfg.KafkaTopic, err))
		}
		s := notify.NewKafkaSender(cfg.KafkaBrokers, cfg.KafkaTopic)
		return s, func() {
			if err := s.Close(); err != nil {
				log.Warn("NOTIFY", fmt.Sprintf("Failed to close kafka writer: %v", err))
			}
		}, nil
	default:
		return notify.NewLogSender(log), func() {}, nil
	}
}
