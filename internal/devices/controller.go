// Package devices delivers zone light commands over MQTT. The command
// payload format "1:<zone>:<state>" is what the downstream lighting
// bridge expects.
package devices

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/mirahq/mira-agent/internal/config"
)

// commandGroup is the fixed device group prefix on every zone command.
const commandGroup = 1

// Controller manages the MQTT connection and publishes zone commands.
type Controller struct {
	cfg    config.MQTTConfig
	logger *slog.Logger
	cm     *autopaho.ConnectionManager
}

// NewController creates a Controller but does not connect. Call
// [Controller.Start] to begin the connection.
func NewController(cfg config.MQTTConfig, logger *slog.Logger) *Controller {
	return &Controller{
		cfg:    cfg,
		logger: logger,
	}
}

// Start connects to the MQTT broker. It returns once the initial
// connection attempt has resolved; autopaho keeps retrying in the
// background after that.
func (c *Controller) Start(ctx context.Context) error {
	brokerURL, err := url.Parse(c.cfg.Broker)
	if err != nil {
		return fmt.Errorf("parse mqtt broker URL: %w", err)
	}

	clientID := c.cfg.ClientID
	if clientID == "" {
		clientID = "mira-agent"
	}

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:      []*url.URL{brokerURL},
		KeepAlive:       30,
		ConnectUsername: c.cfg.Username,
		ConnectPassword: []byte(c.cfg.Password),
		OnConnectionUp: func(_ *autopaho.ConnectionManager, _ *paho.Connack) {
			c.logger.Info("mqtt connected to broker", "broker", c.cfg.Broker)
		},
		OnConnectError: func(err error) {
			c.logger.Warn("mqtt connection error", "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: clientID,
		},
	}

	if brokerURL.Scheme == "mqtts" || brokerURL.Scheme == "ssl" {
		pahoCfg.TlsCfg = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	c.cm = cm

	connCtx, connCancel := context.WithTimeout(ctx, 30*time.Second)
	defer connCancel()
	if err := cm.AwaitConnection(connCtx); err != nil {
		c.logger.Warn("mqtt initial connection timed out, will retry in background", "error", err)
	}

	return nil
}

// Stop disconnects from the broker.
func (c *Controller) Stop(ctx context.Context) error {
	if c.cm == nil {
		return nil
	}
	return c.cm.Disconnect(ctx)
}

// SetZone publishes a command switching one lighting zone on or off.
func (c *Controller) SetZone(ctx context.Context, zone int, on bool) error {
	if c.cm == nil {
		return fmt.Errorf("mqtt controller not started")
	}

	payload := commandPayload(zone, on)
	if _, err := c.cm.Publish(ctx, &paho.Publish{
		Topic:   c.cfg.CommandTopic,
		Payload: []byte(payload),
		QoS:     1,
	}); err != nil {
		return fmt.Errorf("publish zone command: %w", err)
	}

	c.logger.Info("zone command published",
		"topic", c.cfg.CommandTopic, "zone", zone, "on", on)
	return nil
}

func commandPayload(zone int, on bool) string {
	state := 0
	if on {
		state = 1
	}
	return fmt.Sprintf("%d:%d:%d", commandGroup, zone, state)
}
