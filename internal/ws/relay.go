package ws

import (
	"context"
	"fmt"
	"strings"

	radix "github.com/mediocregopher/radix/v3"
	"go.uber.org/zap"
)

// Relay shares groups between service instances over Redis pub/sub. Every
// group payload is published to prefix+group and each instance delivers
// what it receives to its local hub.
type Relay struct {
	hub    *Hub
	client radix.Client
	pubsub radix.PubSubConn
	prefix string
	msgCh  chan radix.PubSubMessage
	logger *zap.Logger
}

// DialRelay connects a publishing pool and a persistent subscriber to addr.
func DialRelay(addr, prefix string, hub *Hub, logger *zap.Logger) (*Relay, error) {
	pool, err := radix.NewPool("tcp", addr, 10)
	if err != nil {
		return nil, fmt.Errorf("redis pool: %w", err)
	}
	ps, err := radix.PersistentPubSubWithOpts("tcp", addr)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("redis pubsub: %w", err)
	}
	return NewRelay(pool, ps, prefix, hub, logger), nil
}

func NewRelay(client radix.Client, pubsub radix.PubSubConn, prefix string, hub *Hub, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{
		hub:    hub,
		client: client,
		pubsub: pubsub,
		prefix: prefix,
		msgCh:  make(chan radix.PubSubMessage, 256),
		logger: logger.With(zap.String("component", "relay")),
	}
}

// Publish sends payload to every instance subscribed to group, including this one.
func (r *Relay) Publish(_ context.Context, group string, payload []byte) error {
	return r.client.Do(radix.Cmd(nil, "PUBLISH", r.channel(group), string(payload)))
}

// Run subscribes to all groups and delivers locally until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.pubsub.PSubscribe(r.msgCh, r.prefix+"*"); err != nil {
		return fmt.Errorf("psubscribe: %w", err)
	}
	r.logger.Info("relay subscribed", zap.String("pattern", r.prefix+"*"))

	for {
		select {
		case <-ctx.Done():
			_ = r.pubsub.PUnsubscribe(r.msgCh, r.prefix+"*")
			return nil
		case m := <-r.msgCh:
			r.handle(m)
		}
	}
}

func (r *Relay) handle(m radix.PubSubMessage) {
	group, ok := r.group(m.Channel)
	if !ok {
		return
	}
	r.hub.Deliver(group, m.Message)
}

func (r *Relay) Close() error {
	_ = r.pubsub.Close()
	return r.client.Close()
}

func (r *Relay) channel(group string) string {
	return r.prefix + group
}

func (r *Relay) group(channel string) (string, bool) {
	if !strings.HasPrefix(channel, r.prefix) {
		return "", false
	}
	return strings.TrimPrefix(channel, r.prefix), true
}
