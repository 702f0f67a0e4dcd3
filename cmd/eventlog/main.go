// Command eventlog follows the bot's NATS events and writes them to a
// structured log, one line per event.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/whisper/pairbot/internal/messaging"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	_ = godotenv.Load()

	url := os.Getenv("NATS_URL")
	if url == "" {
		url = nats.DefaultURL
	}
	natsConfig := messaging.DefaultNATSConfig(url)
	natsConfig.Name = "pairbot-eventlog"

	client, err := messaging.NewNATSClient(natsConfig, logger.Named("nats"))
	if err != nil {
		logger.Fatal("Failed to connect to NATS", zap.Error(err))
	}

	err = client.Subscribe(messaging.SubjectAll, func(msg *nats.Msg) {
		var payload map[string]any
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			logger.Warn("Malformed event", zap.String("subject", msg.Subject), zap.Error(err))
			return
		}
		logger.Info("event", zap.String("subject", msg.Subject), zap.Any("payload", payload))
	})
	if err != nil {
		logger.Fatal("Failed to subscribe", zap.Error(err))
	}

	logger.Info("Event log running", zap.String("nats_url", url), zap.String("subject", messaging.SubjectAll))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Shutting down", zap.String("signal", sig.String()))

	if err := client.Unsubscribe(messaging.SubjectAll); err != nil {
		logger.Warn("Unsubscribe failed", zap.Error(err))
	}
	client.Close()
}
