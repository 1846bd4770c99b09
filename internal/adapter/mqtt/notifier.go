// Package mqtt delivers alert notifications as non-retained MQTT messages,
// one topic per city.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/couchcryptid/aqi-monitor-service/internal/domain"
)

// QoS 1 so a briefly disconnected subscriber still gets the alert.
const qos = 1

// Connect opens a client session with the broker.
func Connect(broker, clientID string, timeout time.Duration, logger *slog.Logger) (pahomqtt.Client, error) {
	opts := pahomqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(timeout).
		SetOrderMatters(false).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			logger.Warn("mqtt connection lost", "broker", broker, "error", err)
		})

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("connect to mqtt broker %s: timed out after %s", broker, timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", broker, err)
	}
	logger.Info("connected to mqtt broker", "broker", broker, "client_id", clientID)
	return client, nil
}

// Notifier implements domain.Notifier by publishing JSON payloads.
type Notifier struct {
	client pahomqtt.Client
	prefix string
}

// NewNotifier publishes to "<prefix>/<city>" topics through client.
func NewNotifier(client pahomqtt.Client, prefix string) *Notifier {
	return &Notifier{client: client, prefix: strings.TrimSuffix(prefix, "/")}
}

func (n *Notifier) Notify(ctx context.Context, note domain.Notification) error {
	payload, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	topic := Topic(n.prefix, note.City)
	token := n.client.Publish(topic, qos, false, payload)

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish %s: %w", topic, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publish %s: %w", topic, ctx.Err())
	}
}

// Close disconnects, allowing in-flight publishes a short grace period.
func (n *Notifier) Close() {
	n.client.Disconnect(250)
}

// Topic returns the publish topic for a city. Everything but letters and
// digits collapses to single dashes.
func Topic(prefix, city string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(city) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}

	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		slug = strings.ToLower(domain.UnknownCity)
	}
	return prefix + "/" + slug
}
