package main

import (
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/danielhkuo/safely-elect/cliparse"
	"github.com/danielhkuo/safely-elect/db"
	"github.com/danielhkuo/safely-elect/notify"
	"github.com/danielhkuo/safely-elect/router"
	"github.com/danielhkuo/safely-elect/scheduler"
	"github.com/danielhkuo/safely-elect/session"
	"github.com/danielhkuo/safely-elect/tally"
)

func main() {
	var err error

	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Connect to PostgreSQL
	dbConn, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	// Verify connection
	if err := dbConn.Ping(); err != nil {
		slog.Error("database ping failed", "error", err)
		os.Exit(1)
	}

	// Create schema (tables)
	if err := db.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready")

	// Tally cipher
	cipher, err := tally.NewCipher(cfg.TallySecret)
	if err != nil {
		slog.Error("tally cipher init failed", "error", err)
		os.Exit(1)
	}

	// Code and session store: Redis when configured, in-process otherwise
	var sessions session.Store
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		sessions = session.NewRedisStore(client, cfg.CodeTTL, cfg.SessionTTL)
		slog.Info("Using Redis session store", "addr", cfg.RedisAddr)
	} else {
		sessions = session.NewMemoryStore(cfg.CodeTTL, cfg.SessionTTL)
		slog.Info("Using in-memory session store")
	}

	// Notifications: Kafka when brokers are configured, log-only otherwise
	var notifier notify.Notifier
	if len(cfg.KafkaBrokers) > 0 {
		kafkaNotifier := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
		slog.Info("Using Kafka notifier", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		notifier = notify.NewLogNotifier(slog.Default())
		slog.Info("Using log-only notifier")
	}

	// Background roster materializer
	materializer := scheduler.NewMaterializer(dbConn, cipher, notifier, cfg.TickInterval)
	materializer.Start()
	defer materializer.Stop()

	// Create router
	mux := router.NewRouter(dbConn, cfg, cipher, sessions, notifier)

	// Create server
	server := http.Server{
		Handler: mux,
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		server.Close()
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
