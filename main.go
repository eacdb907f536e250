package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/danielhkuo/campus-ballot/cache"
	"github.com/danielhkuo/campus-ballot/cliparse"
	"github.com/danielhkuo/campus-ballot/db"
	"github.com/danielhkuo/campus-ballot/election"
	"github.com/danielhkuo/campus-ballot/logging"
	"github.com/danielhkuo/campus-ballot/middleware"
	"github.com/danielhkuo/campus-ballot/router"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		os.Stderr.WriteString("Error parsing flags: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, "campus-ballot")
	if err != nil {
		os.Stderr.WriteString("Error creating logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect and verify
	dbConn, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer dbConn.Close()

	// Create schema (tables)
	if err := db.CreateSchema(ctx, dbConn); err != nil {
		log.Fatal("schema creation failed", zap.Error(err))
	}
	log.Info("database schema ready", zap.String("driver", cfg.DatabaseType))

	opts := election.Options{
		MaxCodesPerBatch:   cfg.MaxCodesPerBatch,
		CodeInsertAttempts: cfg.CodeInsertAttempts,
		RequestTimeout:     cfg.RequestTimeout,
	}
	if cfg.RedisURL != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal("redis connection failed", zap.Error(err))
		}
		defer rdb.Close()
		opts.Cache = cache.NewTallyCache(rdb, cfg.TallyCacheTTL)
		log.Info("tally cache enabled", zap.Duration("ttl", cfg.TallyCacheTTL))
	}
	if cfg.IdentityTokenSecret == "" {
		log.Info("verified sign-in disabled")
	}

	svc := election.NewService(dbConn, log, opts)
	mux := router.NewRouter(svc, cfg, log)

	server := http.Server{
		Handler:           middleware.CORS(mux),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		// Wait for Ctrl-C or SIGTERM
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("graceful shutdown failed", zap.Error(err))
			server.Close()
		}
	}()

	log.Info("listening", zap.Int("port", cfg.Port))
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Error("server closed", zap.Error(err))
	} else {
		log.Info("server closed")
	}
}
