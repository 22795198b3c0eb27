package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/layer-3/tradeclient"
	"github.com/layer-3/tradeclient/config"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", os.Getenv("TRADECLIENT_CONFIG"), "path to the YAML config file")
	tokenFile := flag.String("token-file", "", "write the operator token here instead of stderr")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := tradeclient.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to start trade client")
	}
	defer app.Close()

	token, expires, err := app.IssueOperatorToken("operator")
	if err != nil {
		log.WithError(err).Fatal("Failed to issue operator token")
	}
	if err := emitOperatorToken(*tokenFile, token, os.Stderr); err != nil {
		log.WithError(err).Fatal("Failed to hand out operator token")
	}
	log.WithField("expires_at", expires).Info("Operator token issued")

	if err := app.Serve(ctx); err != nil {
		log.WithError(err).Error("Server stopped")
	}
	log.Info("Shut down")
}
