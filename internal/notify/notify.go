// Package notify opens client/freelancer conversations once a proposal is
// accepted and announces them on redis.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"marketplace/internal/config"
	"marketplace/internal/models"
)

const EventConversationReady = "conversation_ready"

type ConversationStore interface {
	EnsureConversation(ctx context.Context, c models.Conversation) (models.Conversation, bool, error)
}

// Publisher is the part of *redis.Client the notifier uses.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type Event struct {
	Type           string `json:"type"`
	ConversationId string `json:"conversationId"`
	ClientId       string `json:"clientId"`
	FreelancerId   string `json:"freelancerId"`
	Created        bool   `json:"created"`
}

type ConversationNotifier struct {
	store     ConversationStore
	publisher Publisher
	channel   string
	logger    *slog.Logger
}

type Option func(*ConversationNotifier)

// WithPublisher enables conversation_ready events on channel.
func WithPublisher(p Publisher, channel string) Option {
	return func(n *ConversationNotifier) {
		n.publisher = p
		n.channel = channel
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(n *ConversationNotifier) {
		n.logger = logger
	}
}

func NewConversationNotifier(store ConversationStore, opts ...Option) *ConversationNotifier {
	n := &ConversationNotifier{
		store:  store,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(n)
	}

	return n
}

// EnsureConversation creates or fetches the conversation between the two
// parties and returns its id. A failed publish is returned along with the id.
func (n *ConversationNotifier) EnsureConversation(ctx context.Context, clientId, freelancerId, clientName, freelancerName string) (string, error) {
	conv, created, err := n.store.EnsureConversation(ctx, models.Conversation{
		ClientId:       clientId,
		FreelancerId:   freelancerId,
		ClientName:     clientName,
		FreelancerName: freelancerName,
	})
	if err != nil {
		return "", fmt.Errorf("notify.ConversationNotifier.EnsureConversation: %w", err)
	}
	n.logger.Debug("conversation ready", "conversation", conv.Id, "created", created)

	if n.publisher == nil {
		return conv.Id, nil
	}

	payload, err := json.Marshal(Event{
		Type:           EventConversationReady,
		ConversationId: conv.Id,
		ClientId:       conv.ClientId,
		FreelancerId:   conv.FreelancerId,
		Created:        created,
	})
	if err != nil {
		return conv.Id, fmt.Errorf("notify.ConversationNotifier.EnsureConversation: %w", err)
	}

	err = n.publisher.Publish(ctx, n.channel, payload).Err()
	if err != nil {
		return conv.Id, fmt.Errorf("notify.ConversationNotifier.EnsureConversation: publish failed: %w", err)
	}
	return conv.Id, nil
}

// NewRedis returns a client for cfg, or nil when no address is configured.
func NewRedis(cfg config.RedisConfig) *redis.Client {
	if len(cfg.Addr) == 0 {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	slog.Info("redis client created", "addr", cfg.Addr)
	return rdb
}
