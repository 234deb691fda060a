// apnsend sends one push notification to each device token named on the
// command line.
//
//	apnsend -config config.yaml [-title text] [-body text] <token> [<token2> [...]]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	apns "github.com/tinywideclouds/go-apns"
	"github.com/tinywideclouds/go-apns/config"
	"github.com/tinywideclouds/go-apns/token"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config `file`")
	title := flag.String("title", "", "alert `title`")
	body := flag.String("body", "Hello!", "alert `text`")
	sound := flag.String("sound", "", "delivery `sound`")
	badge := flag.Int("badge", -1, "badge `number` (unset when negative)")
	collapseID := flag.String("collapse-id", "", "apns-collapse-id header")
	background := flag.Bool("background", false, "send as a background push")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Send an Apple Push notification")
		fmt.Fprintf(os.Stderr, "%s [-params] <token> [<token2> [...]]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	var logLevel slog.Level
	switch os.Getenv("LOG_LEVEL") {
	case "debug", "DEBUG":
		logLevel = slog.LevelDebug
	case "warn", "WARN":
		logLevel = slog.LevelWarn
	case "error", "ERROR":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})).With("service", "apnsend")
	slog.SetDefault(logger)

	if flag.NArg() < 1 {
		logger.Error("No device tokens given")
		flag.Usage()
		os.Exit(2)
	}

	// --- Config Loading ---
	raw, err := os.ReadFile(*configPath)
	if err != nil {
		logger.Error("Failed to read config file", "path", *configPath, "err", err)
		os.Exit(1)
	}
	yamlCfg, err := config.ParseYamlConfig(raw)
	if err != nil {
		logger.Error("Failed to parse yaml config", "err", err)
		os.Exit(1)
	}
	baseCfg, err := config.NewConfigFromYaml(yamlCfg, logger)
	if err != nil {
		logger.Error("Config failed", "err", err)
		os.Exit(1)
	}
	cfg, err := config.UpdateConfigWithEnvOverrides(baseCfg, logger)
	if err != nil {
		logger.Error("Config failed", "err", err)
		os.Exit(1)
	}

	// --- Client ---
	authKey, err := token.AuthKeyFromFile(cfg.APNS.KeyFile)
	if err != nil {
		logger.Error("Failed to load APNs auth key", "path", cfg.APNS.KeyFile, "err", err)
		os.Exit(1)
	}
	client, err := apns.New(apns.Config{
		TeamID:       cfg.APNS.TeamID,
		KeyID:        cfg.APNS.KeyID,
		SigningKey:   authKey,
		TokenRefresh: cfg.APNS.TokenRefresh,
	})
	if err != nil {
		logger.Error("Failed to build APNs client", "err", err)
		os.Exit(1)
	}
	if cfg.APNS.Development {
		client.Development()
		logger.Info("Using development host")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	failed := 0
	for _, deviceToken := range flag.Args() {
		builder := apns.NewNotification(cfg.APNS.Topic, deviceToken).
			Title(*title).
			Body(*body).
			Sound(*sound).
			CollapseID(*collapseID)
		if *badge >= 0 {
			builder.Badge(*badge)
		}
		if *background {
			builder.
				RawPayload([]byte(`{"aps":{"content-available":1}}`)).
				PushType(apns.PushTypeBackground).
				Priority(apns.PriorityLow)
		}
		n, err := builder.Build()
		if err != nil {
			logger.Error("Failed to build notification", "token", deviceToken, "err", err)
			failed++
			continue
		}

		resp, err := client.Push(ctx, n)
		if err != nil {
			logger.Error("Push failed", "token", deviceToken, "err", err)
			failed++
			continue
		}
		if resp.Sent() {
			logger.Info("Push accepted", "token", deviceToken, "apns_id", resp.ApnsID)
		} else {
			logger.Error("Push rejected",
				"token", deviceToken,
				"status", resp.StatusCode,
				"reason", resp.Reason,
				"message", resp.Message,
			)
			failed++
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}
