// Package mqtt publishes change records to an MQTT broker so field tools and
// dashboards can follow roster updates. Each record goes to
// <prefix>/<entity_type>/<entity_id>; when an ack topic is configured the
// sink waits for the consumer to confirm the record id.
package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/droneops/core/model"
	coremon "github.com/kilianp07/droneops/core/monitoring"
	"github.com/kilianp07/droneops/infra/logger"
)

// ErrAckTimeout is returned when no acknowledgment arrived in time.
var ErrAckTimeout = errors.New("mqtt: ack timeout")

// DefaultTopicPrefix is used when Config.TopicPrefix is empty.
const DefaultTopicPrefix = "droneops/changes"

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker           string      `json:"broker"`
	ClientID         string      `json:"client_id"`
	Username         string      `json:"username"`
	Password         string      `json:"password"`
	TopicPrefix      string      `json:"topic_prefix"`
	AckTopic         string      `json:"ack_topic"`
	AckTimeoutMS     int         `json:"ack_timeout_ms"`
	ConnectTimeoutMS int         `json:"connect_timeout_ms"`
	UseTLS           bool        `json:"use_tls"`
	ClientCert       string      `json:"client_cert"`
	ClientKey        string      `json:"client_key"`
	CABundle         string      `json:"ca_bundle"`
	AuthMethod       string      `json:"auth_method"`
	QoS              byte        `json:"qos"`
	Retain           bool        `json:"retain"`
	LWTTopic         string      `json:"lwt_topic"`
	LWTPayload       string      `json:"lwt_payload"`
	LWTQoS           byte        `json:"lwt_qos"`
	LWTRetain        bool        `json:"lwt_retain"`
	MaxRetries       int         `json:"max_retries"`
	BackoffMS        int         `json:"backoff_ms"`
	TLSConfig        *tls.Config `json:"-"`
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// ChangeSink publishes change records. It implements syncqueue.Sink.
type ChangeSink struct {
	cli        pahoClient
	prefix     string
	ackTopic   string
	ackTimeout time.Duration
	qos        byte
	retain     bool
	maxRetries int
	backoff    time.Duration
	log        logger.Logger

	mu   sync.Mutex
	acks map[string]chan struct{}
}

// NewChangeSink connects to the broker and, when configured, subscribes to
// the ack topic.
func NewChangeSink(cfg Config) (*ChangeSink, error) {
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_sink")
	s := &ChangeSink{
		prefix:     strings.TrimSuffix(cfg.TopicPrefix, "/"),
		ackTopic:   cfg.AckTopic,
		ackTimeout: time.Duration(cfg.AckTimeoutMS) * time.Millisecond,
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		log:        log,
		acks:       make(map[string]chan struct{}),
	}
	if s.prefix == "" {
		s.prefix = DefaultTopicPrefix
	}
	if s.ackTimeout <= 0 {
		s.ackTimeout = 5 * time.Second
	}
	if s.maxRetries <= 0 {
		s.maxRetries = 3
	}
	if s.backoff <= 0 {
		s.backoff = 100 * time.Millisecond
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if s.ackTopic == "" {
			return
		}
		if token := c.Subscribe(s.ackTopic, s.qos, s.onAck); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	s.cli = c
	return s, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.ConnectTimeoutMS > 0 {
		opts.SetConnectTimeout(time.Duration(cfg.ConnectTimeoutMS) * time.Millisecond)
	}
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

func (s *ChangeSink) Name() string { return "mqtt" }

// Topic returns the topic a record is published on.
func (s *ChangeSink) Topic(rec model.ChangeRecord) string {
	return fmt.Sprintf("%s/%s/%s", s.prefix, rec.EntityType, rec.EntityID)
}

func (s *ChangeSink) onAck(_ paho.Client, msg paho.Message) {
	var m struct {
		RecordID string `json:"record_id"`
	}
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		s.log.Errorf("failed to decode ack: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.acks[m.RecordID]
	if !ok {
		s.log.Debugf("ignoring ack for unknown record %s", m.RecordID)
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Apply publishes rec with retries and, when an ack topic is configured,
// waits for its acknowledgment. Republishing an acknowledged record is
// harmless: consumers key on the record id.
func (s *ChangeSink) Apply(ctx context.Context, rec model.ChangeRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	var ack chan struct{}
	if s.ackTopic != "" {
		ack = s.register(rec.ID)
		defer s.forget(rec.ID)
	}

	topic := s.Topic(rec)
	var publishErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		token := s.cli.Publish(topic, s.qos, s.retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			s.log.Debugf("published change %s to %s", rec.ID, topic)
			break
		}
		s.log.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt == s.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.backoff * time.Duration(1<<attempt)):
		}
	}
	if publishErr != nil {
		coremon.CaptureException(publishErr, map[string]string{
			"module":    "mqtt",
			"entity_id": rec.EntityID,
			"record_id": rec.ID,
		})
		return publishErr
	}
	if ack == nil {
		return nil
	}
	return s.waitForAck(ctx, rec.ID, ack)
}

func (s *ChangeSink) register(id string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{}, 1)
	s.acks[id] = ch
	return ch
}

func (s *ChangeSink) forget(id string) {
	s.mu.Lock()
	delete(s.acks, id)
	s.mu.Unlock()
}

func (s *ChangeSink) waitForAck(ctx context.Context, id string, ch <-chan struct{}) error {
	timer := time.NewTimer(s.ackTimeout)
	defer timer.Stop()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%w: record %s", ErrAckTimeout, id)
	}
}

// Disconnect gracefully closes the MQTT connection.
func (s *ChangeSink) Disconnect() {
	if s.cli != nil && s.cli.IsConnected() {
		s.cli.Disconnect(250)
	}
}
