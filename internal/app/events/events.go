// Package events carries tip-layer notifications to off-chain observers.
// Publication is fire and forget: the engine never fails a call because a
// sink rejected an event.
package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/MicroTip-Network/tip_layer/pkg/logger"
)

// Topic classifies the kind of engine event.
type Topic string

const (
	// TopicTipSent is emitted once per accepted tip.
	TopicTipSent Topic = "tip_sent"
	// TopicWithdrawal is emitted once per completed withdrawal.
	TopicWithdrawal Topic = "withdrawal"
)

// Event is a structured notification. Tip events carry from/to; withdrawal
// events carry user/token. Amounts travel as decimal strings so observers
// never lose precision.
type Event struct {
	ID        string `json:"id"`
	Topic     Topic  `json:"topic"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	User      string `json:"user,omitempty"`
	Token     string `json:"token,omitempty"`
	Amount    string `json:"amount"`
	Timestamp uint64 `json:"timestamp"`
}

// NewEvent stamps an event with a fresh identifier.
func NewEvent(topic Topic) Event {
	return Event{ID: uuid.NewString(), Topic: topic}
}

// String returns the JSON form.
func (e Event) String() string {
	data, _ := json.Marshal(e)
	return string(data)
}

// Publisher delivers events to an external sink. No delivery guarantee is
// required of implementations.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// LogPublisher writes events to the structured log. It is the default
// sink when no broker is configured.
type LogPublisher struct {
	log *logger.Logger
}

// NewLogPublisher builds a logger-backed sink.
func NewLogPublisher(log *logger.Logger) *LogPublisher {
	if log == nil {
		log = logger.NewDefault("events")
	}
	return &LogPublisher{log: log}
}

// Publish logs the event at info level.
func (p *LogPublisher) Publish(_ context.Context, event Event) error {
	p.log.WithField("event_id", event.ID).
		WithField("topic", string(event.Topic)).
		WithField("payload", event.String()).
		Info("event published")
	return nil
}

// RedisPublisher fans events out over a Redis pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher builds a Redis-backed sink publishing to the given
// channel.
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = "tip_layer.events"
	}
	return &RedisPublisher{client: client, channel: channel}
}

// Publish sends the JSON-encoded event to the channel.
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, payload).Err()
}

// Recorder captures events in memory for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder builds an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish appends the event to the recorder.
func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}
