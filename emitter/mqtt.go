// Package emitter publishes activity results to an MQTT broker.
package emitter

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/swdee/go-posewatch/activity"
	"github.com/swdee/go-posewatch/pipeline"
)

const (
	// ActivityTopic is appended to the instance topic for every result
	ActivityTopic = "activity"
	// AlertTopic is appended to the instance topic for Falling results
	AlertTopic = "alert"
)

// Config holds the broker connection settings
type Config struct {
	// Broker address as host:port
	Broker string `yaml:"broker"`
	// Instance identifies this watcher, used as client ID and in topics
	Instance string `yaml:"instance"`
	// Prefix is the topic root
	Prefix string `yaml:"prefix"`
	// QoS of activity messages
	QoS byte `yaml:"qos"`
	// AlertQoS of alert messages
	AlertQoS byte `yaml:"alert_qos"`
	// Timeout waiting for connect and publish acknowledgement
	Timeout time.Duration `yaml:"timeout"`
}

// Message is the JSON payload published for each result
type Message struct {
	Instance string          `json:"instance"`
	Session  string          `json:"session"`
	Seq      uint64          `json:"seq"`
	Result   activity.Result `json:"result"`
}

// Stats contains emitter statistics
type Stats struct {
	Connected bool
	Published map[string]uint64
	Errors    uint64
}

// MQTT publishes results to a broker
type MQTT struct {
	cfg    Config
	client mqtt.Client
	logger *log.Entry

	mu        sync.RWMutex
	published map[string]uint64
	errors    uint64
	connected bool
}

// NewMQTT returns an unconnected emitter
func NewMQTT(cfg Config) *MQTT {

	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}

	return &MQTT{
		cfg:       cfg,
		logger:    log.WithField("component", "emitter"),
		published: make(map[string]uint64),
	}
}

// Topic returns the full topic for the given suffix
func (e *MQTT) Topic(suffix string) string {
	return fmt.Sprintf("%s/%s/%s", e.cfg.Prefix, e.cfg.Instance, suffix)
}

// Connect establishes the broker connection with automatic reconnect
func (e *MQTT) Connect(ctx context.Context) error {

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", e.cfg.Broker))
	opts.SetClientID(e.cfg.Instance)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(c mqtt.Client) {
		e.setConnected(true)
		e.logger.WithField("broker", e.cfg.Broker).Info("mqtt connection established")
	}

	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		e.setConnected(false)
		e.logger.WithError(err).Warn("mqtt connection lost, will auto-reconnect")
	}

	return e.connect(ctx, mqtt.NewClient(opts))
}

// connect uses the given client, split out so tests can supply their own
func (e *MQTT) connect(ctx context.Context, client mqtt.Client) error {

	e.client = client

	if err := wait(ctx, client.Connect(), e.cfg.Timeout); err != nil {
		return fmt.Errorf("mqtt connection to %s failed: %w", e.cfg.Broker, err)
	}

	e.setConnected(true)

	return nil
}

// wait blocks until the token completes, the timeout passes or the context
// is done
func wait(ctx context.Context, token mqtt.Token, timeout time.Duration) error {

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return fmt.Errorf("timeout after %s", timeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish sends the result on the activity topic, and also on the alert topic
// when it is Falling
func (e *MQTT) Publish(ctx context.Context, msg Message) error {

	if !e.isConnected() {
		e.countError()
		return fmt.Errorf("mqtt not connected")
	}

	msg.Instance = e.cfg.Instance

	payload, err := json.Marshal(msg)

	if err != nil {
		e.countError()
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := e.send(ctx, e.Topic(ActivityTopic), e.cfg.QoS, payload); err != nil {
		return err
	}

	if msg.Result.IsFalling() {
		return e.send(ctx, e.Topic(AlertTopic), e.cfg.AlertQoS, payload)
	}

	return nil
}

func (e *MQTT) send(ctx context.Context, topic string, qos byte, payload []byte) error {

	err := wait(ctx, e.client.Publish(topic, qos, false, payload), e.cfg.Timeout)

	if err != nil {
		e.countError()
		return fmt.Errorf("publish to %s failed: %w", topic, err)
	}

	e.mu.Lock()
	e.published[topic]++
	e.mu.Unlock()

	e.logger.WithFields(log.Fields{
		"topic": topic,
		"qos":   qos,
		"size":  len(payload),
	}).Debug("result published")

	return nil
}

// Present publishes the result carried by a snapshot so the emitter can sit
// alongside the other presenters
func (e *MQTT) Present(s pipeline.Snapshot) error {

	if s.Result == nil {
		return nil
	}

	return e.Publish(context.Background(), Message{
		Session: s.Session,
		Seq:     s.Seq,
		Result:  *s.Result,
	})
}

// Close disconnects from the broker
func (e *MQTT) Close() error {

	if e.client != nil && e.client.IsConnected() {
		e.client.Disconnect(250)
		e.logger.Info("mqtt disconnected")
	}

	e.setConnected(false)

	return nil
}

// Stats returns emitter statistics
func (e *MQTT) Stats() Stats {

	e.mu.RLock()
	defer e.mu.RUnlock()

	published := make(map[string]uint64, len(e.published))

	for k, v := range e.published {
		published[k] = v
	}

	return Stats{
		Connected: e.connected,
		Published: published,
		Errors:    e.errors,
	}
}

func (e *MQTT) setConnected(v bool) {
	e.mu.Lock()
	e.connected = v
	e.mu.Unlock()
}

func (e *MQTT) isConnected() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.connected
}

func (e *MQTT) countError() {
	e.mu.Lock()
	e.errors++
	e.mu.Unlock()
}
