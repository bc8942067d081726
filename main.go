package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/Bako-Labs/bako-safe-api/chain"
	"github.com/Bako-Labs/bako-safe-api/config"
	"github.com/Bako-Labs/bako-safe-api/engine"
	"github.com/Bako-Labs/bako-safe-api/notification"
	"github.com/Bako-Labs/bako-safe-api/realtime"
	"github.com/Bako-Labs/bako-safe-api/repository"
	"github.com/Bako-Labs/bako-safe-api/server"
)

const versionInfo = "bako-safe-api 1.0.0"

var (
	app        = kingpin.New("bako-safe-api", "Multi-party approval and settlement service for shared custody vaults")
	run        = app.Command("run", "Run the service").Default()
	version    = app.Command("version", "Show version information")
	configFile = run.Flag("config", "Path of config file").Short('c').String()
)

func setLogLevel(logger *log.Logger) {
	logger.SetLevel(log.InfoLevel)
	if value, ok := os.LookupEnv("BAKO_LOGLEVEL"); ok {
		if level, err := log.ParseLevel(value); err == nil {
			logger.SetLevel(level)
		}
	}
}

func getLogger() *log.Logger {
	logger := log.New()
	setLogLevel(logger)
	return logger
}

func main() {
	logger := getLogger()

	switch kingpin.MustParse(app.Parse(os.Args[1:])) {
	case run.FullCommand():
		if err := serve(logger); err != nil {
			logger.Fatalln(err)
		}
	case version.FullCommand():
		fmt.Println(versionInfo)
	}
}

func serve(logger *log.Logger) error {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return err
	}

	repo := repository.NewRepository(logger)
	if err := repo.ConnectDB(cfg.Database.DSN); err != nil {
		return err
	}
	if err := repo.Migrate(); err != nil {
		return err
	}

	cache, err := chain.OpenScanCache(cfg.Cache.Path, cfg.Cache.TTL)
	if err != nil {
		return err
	}
	defer cache.Close()

	client, err := chain.NewClient(cfg.Node.RPC, cache, logger)
	if err != nil {
		return err
	}

	notifications := notification.NewService(repo, logger)
	mailer := notification.NewLogMailer(logger)
	eng := engine.New(repo, client, notifications, mailer, logger)

	hub := realtime.NewHub(logger)
	go hub.Run()

	webserver := server.NewWebServer(eng, repo, notifications, hub, cfg.HTTPPort, logger)
	webserver.Start()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := webserver.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutting down HTTP web server")
	}
	logger.Info("HTTP web server gracefully stopped")
	return nil
}
