// Package fanout bridges room broadcasts between independently running
// gateway processes through a Redis pub/sub broker, so horizontally scaled
// gateways see each other's events.
package fanout

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// brokerChannel is the single Redis channel all gateway processes share
const brokerChannel = "chatgate:fanout"

// DeliverFunc hands a relayed broadcast to the local hub
type DeliverFunc func(channel string, frame []byte)

// envelope is the wire format relayed through the broker
type envelope struct {
	Origin  string          `json:"origin"`
	Channel string          `json:"channel"`
	Frame   json.RawMessage `json:"frame"`
}

// Adapter relays channel broadcasts between gateway processes. The
// publisher and subscriber hold separate broker connections, constructed
// once per process and shared by every connection on it. Subscription
// starts in the background: gateway startup never waits on broker
// availability.
type Adapter struct {
	origin  string
	pub     *redis.Client
	sub     *redis.Client
	pubsub  *redis.PubSub
	deliver DeliverFunc
	logger  *slog.Logger

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

// New connects the adapter to the broker and begins relaying
func New(url string, deliver DeliverFunc, logger *slog.Logger) (*Adapter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return NewWithClients(redis.NewClient(opts), redis.NewClient(opts), deliver, logger), nil
}

// NewWithClients wires the adapter onto existing publisher and subscriber
// clients (for testing)
func NewWithClients(pub, sub *redis.Client, deliver DeliverFunc, logger *slog.Logger) *Adapter {
	a := &Adapter{
		origin:  uuid.NewString(),
		pub:     pub,
		sub:     sub,
		deliver: deliver,
		logger:  logger.With(slog.String("component", "fanout")),
		done:    make(chan struct{}),
	}

	a.pubsub = a.sub.Subscribe(context.Background(), brokerChannel)
	go a.run()

	a.logger.Info("fanout adapter started", slog.String("origin", a.origin))
	return a
}

// Origin returns the process identifier stamped on published envelopes
func (a *Adapter) Origin() string {
	return a.origin
}

// Publish relays a frame to peer processes. The local hub delivers its own
// copy directly; subscribers suppress envelopes carrying their own origin.
func (a *Adapter) Publish(ctx context.Context, channel string, frame []byte) error {
	payload, err := json.Marshal(envelope{
		Origin:  a.origin,
		Channel: channel,
		Frame:   frame,
	})
	if err != nil {
		return err
	}
	return a.pub.Publish(ctx, brokerChannel, payload).Err()
}

func (a *Adapter) run() {
	ch := a.pubsub.Channel()
	for {
		select {
		case <-a.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			a.handle(msg.Payload)
		}
	}
}

func (a *Adapter) handle(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		a.logger.Warn("discarding malformed fanout envelope", slog.String("error", err.Error()))
		return
	}
	if env.Origin == a.origin {
		return
	}
	a.deliver(env.Channel, env.Frame)
}

// Close shuts down both broker connections, publisher first, exactly once.
// Calling Close again returns the first result.
func (a *Adapter) Close() error {
	a.closeOnce.Do(func() {
		close(a.done)

		var errs []error
		if err := a.pub.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := a.pubsub.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := a.sub.Close(); err != nil {
			errs = append(errs, err)
		}
		a.closeErr = errors.Join(errs...)

		a.logger.Info("fanout adapter closed")
	})
	return a.closeErr
}
