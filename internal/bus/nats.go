package bus

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nats-io/nats.go"

	"aimas-backend/services/recommendation-service/internal/event"
)

// StreamConfig names the broker-side resources. Bindings are the inbound
// subject filters (binding keys) selecting which metric domains the
// consumer sees.
type StreamConfig struct {
	MetricsStream string
	Bindings      []string
	RecoStream    string
	RecoPrefix    string
	Durable       string
	AckWait       time.Duration
}

func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		MetricsStream: "METRICS",
		Bindings:      []string{"system.*", "service.*", "api.*", "net.*"},
		RecoStream:    "RECOMMENDATIONS",
		RecoPrefix:    "reco",
		Durable:       "reco-ingest",
		AckWait:       30 * time.Second,
	}
}

type Conn struct {
	NC *nats.Conn
	JS nats.JetStreamContext
}

func Connect(url string) (*Conn, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}
	return &Conn{NC: nc, JS: js}, nil
}

func (c *Conn) Close() {
	if c.NC != nil {
		c.NC.Drain()
		c.NC.Close()
	}
}

// Healthy reports broker reachability for readiness checks.
func (c *Conn) Healthy() bool {
	return c.NC != nil && c.NC.IsConnected()
}

// EnsureStreams declares the inbound and outbound streams. Safe against
// an empty or partially configured broker: existing streams are updated
// in place, missing ones created.
func (c *Conn) EnsureStreams(cfg StreamConfig) error {
	streams := []*nats.StreamConfig{
		{Name: cfg.MetricsStream, Subjects: cfg.Bindings, Retention: nats.WorkQueuePolicy},
		{Name: cfg.RecoStream, Subjects: []string{cfg.RecoPrefix + ".>"}},
	}
	for _, sc := range streams {
		_, err := c.JS.StreamInfo(sc.Name)
		switch {
		case err == nil:
			if _, err := c.JS.UpdateStream(sc); err != nil {
				return err
			}
		case errors.Is(err, nats.ErrStreamNotFound):
			if _, err := c.JS.AddStream(sc); err != nil {
				return err
			}
		default:
			return err
		}
	}
	return nil
}

// Publisher writes recommendations to the outbound stream, routed by
// event type so downstreams can bind per domain.
type Publisher struct {
	js     nats.JetStreamContext
	prefix string
}

func (c *Conn) Publisher(cfg StreamConfig) *Publisher {
	return &Publisher{js: c.JS, prefix: cfg.RecoPrefix}
}

func (p *Publisher) PublishRecommendation(ctx context.Context, rec event.Recommendation) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	subject := p.prefix + "." + rec.EventType
	if rec.EventType == "" {
		subject = p.prefix + ".unknown"
	}
	_, err = p.js.Publish(subject, data, nats.Context(ctx))
	return err
}

// PullConsumer is a durable explicit-ack subscription on the metrics
// stream. One message is fetched at a time; an unacked delivery comes
// back after AckWait, which is the system's only retry mechanism.
type PullConsumer struct {
	sub *nats.Subscription
}

func (c *Conn) PullConsumer(cfg StreamConfig) (*PullConsumer, error) {
	sub, err := c.JS.PullSubscribe("", cfg.Durable,
		nats.BindStream(cfg.MetricsStream),
		nats.AckExplicit(),
		nats.AckWait(cfg.AckWait),
	)
	if err != nil {
		return nil, err
	}
	return &PullConsumer{sub: sub}, nil
}

// Fetch blocks for the next delivery or until ctx is done. Callers get
// context.Canceled / DeadlineExceeded when there is nothing to process.
func (p *PullConsumer) Fetch(ctx context.Context) (*nats.Msg, error) {
	msgs, err := p.sub.Fetch(1, nats.Context(ctx))
	if err != nil {
		return nil, err
	}
	return msgs[0], nil
}

func (p *PullConsumer) Close() error {
	return p.sub.Unsubscribe()
}
