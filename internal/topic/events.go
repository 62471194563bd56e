package topic

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	ws "github.com/gokatarajesh/maths-quiz/pkg/http/ws"
)

// DefaultChangesChannel is the Redis pub/sub channel for topic writes.
const DefaultChangesChannel = "topics:changed"

type ChangeOp string

const (
	OpUpsert ChangeOp = "upsert"
	OpDelete ChangeOp = "delete"
	OpImport ChangeOp = "import"
	OpSeed   ChangeOp = "seed"
)

// ChangeEvent is published after every successful write.
type ChangeEvent struct {
	Op      ChangeOp  `json:"op"`
	TopicID string    `json:"topic_id,omitempty"`
	At      time.Time `json:"at"`
}

// RedisPublisher publishes change events so every API instance can notify its feed clients.
type RedisPublisher struct {
	redis   *redis.Client
	channel string
}

var _ ChangePublisher = (*RedisPublisher)(nil)

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChangesChannel
	}
	return &RedisPublisher{redis: client, channel: channel}
}

func (p *RedisPublisher) PublishChanged(ctx context.Context, evt ChangeEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.redis.Publish(ctx, p.channel, data).Err()
}

// Broadcaster forwards change events from Redis to every feed connection.
type Broadcaster struct {
	redis   *redis.Client
	hub     *ws.Hub
	channel string
	logger  zerolog.Logger
}

func NewBroadcaster(client *redis.Client, hub *ws.Hub, channel string, logger zerolog.Logger) *Broadcaster {
	if channel == "" {
		channel = DefaultChangesChannel
	}
	return &Broadcaster{
		redis:   client,
		hub:     hub,
		channel: channel,
		logger:  logger.With().Str("component", "topic_broadcaster").Logger(),
	}
}

// Run subscribes to the change channel and blocks until the context is cancelled.
func (b *Broadcaster) Run(ctx context.Context) error {
	if b.redis == nil || b.hub == nil {
		return nil
	}

	sub := b.redis.Subscribe(ctx, b.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.forward(msg.Payload)
		}
	}
}

func (b *Broadcaster) forward(payload string) {
	var evt ChangeEvent
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		b.logger.Warn().Err(err).Msg("failed to decode topic change payload")
		return
	}

	msg, err := ws.NewMessage(ws.TypeTopicsChanged, ws.TopicsChangedPayload{
		Op:      string(evt.Op),
		TopicID: evt.TopicID,
		At:      evt.At.UTC().Format(time.RFC3339),
	})
	if err != nil {
		b.logger.Warn().Err(err).Msg("failed to marshal topic change WS payload")
		return
	}
	if err := b.hub.BroadcastAll(msg); err != nil {
		b.logger.Warn().Err(err).Msg("failed to broadcast topic change")
	}
}

// FeedHandler serves GET /ws/topics.
type FeedHandler struct {
	hub    *ws.Hub
	logger zerolog.Logger
}

func NewFeedHandler(hub *ws.Hub, logger zerolog.Logger) *FeedHandler {
	return &FeedHandler{hub: hub, logger: logger.With().Str("component", "topic_feed").Logger()}
}

func (h *FeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := ws.NewConnection(conn, h.logger)
	id := h.hub.Register(c)
	defer h.hub.Unregister(id)

	go c.WritePump()

	if hello, err := ws.NewMessage(ws.TypeHello, ws.HelloPayload{ConnectionID: id.String()}); err == nil {
		_ = c.Send(hello)
	}

	c.ReadPump(func(msg ws.Message) error {
		switch msg.Type {
		case ws.TypePing:
			return c.Send(ws.Message{Type: ws.TypePong, RequestID: msg.RequestID})
		default:
			reply, err := ws.NewMessage(ws.TypeError, ws.ErrorPayload{
				Code:    "unknown_message_type",
				Message: "unsupported message type " + msg.Type,
			})
			if err != nil {
				return err
			}
			reply.RequestID = msg.RequestID
			return c.Send(reply)
		}
	})
}
