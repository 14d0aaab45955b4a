package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/handout-api/internal/dto"
	"github.com/noah-isme/handout-api/internal/observability"
)

const liveFeedBufferSize = 32

// TelemetryPublisher receives every stored submission.
type TelemetryPublisher interface {
	Publish(ctx context.Context, event dto.TelemetryEvent)
}

// TelemetryPublishers hands every event to each publisher in order.
type TelemetryPublishers []TelemetryPublisher

// Publish implements TelemetryPublisher.
func (p TelemetryPublishers) Publish(ctx context.Context, event dto.TelemetryEvent) {
	for _, publisher := range p {
		if publisher != nil {
			publisher.Publish(ctx, event)
		}
	}
}

// LiveFeedService fans telemetry events out to instructors watching a course, locally
// and across nodes through Redis pub/sub and NATS.
type LiveFeedService interface {
	TelemetryPublisher
	Subscribe(course string) (<-chan dto.TelemetryEvent, func())
	Start(ctx context.Context)
}

type liveFeedService struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	broker       *liveFeedBroker
	nodeID       string
}

type liveFeedBroker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan dto.TelemetryEvent]struct{}
}

type liveFeedEnvelope struct {
	Source string             `json:"source"`
	Event  dto.TelemetryEvent `json:"event"`
	SentAt time.Time          `json:"sent_at"`
}

// NewLiveFeedService creates the feed. Either broker client may be nil.
func NewLiveFeedService(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) LiveFeedService {
	redisChannel := ""
	natsSubject := ""
	if channelBase != "" {
		redisChannel = channelBase + ":telemetry"
		natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".telemetry.submitted"
	}

	return &liveFeedService{
		redis:        redisClient,
		redisChannel: redisChannel,
		nats:         natsConn,
		natsSubject:  natsSubject,
		logger:       logger.With().Str("component", "live_feed_service").Logger(),
		broker: &liveFeedBroker{
			subscribers: make(map[string]map[chan dto.TelemetryEvent]struct{}),
		},
		nodeID: uuid.NewString(),
	}
}

// Start consumes events published by other nodes. Events go out on both brokers, so
// only one of them is consumed, Redis when configured.
func (s *liveFeedService) Start(ctx context.Context) {
	switch {
	case s.redis != nil && s.redisChannel != "":
		go s.consumeRedis(ctx)
	case s.nats != nil && s.natsSubject != "":
		go s.consumeNATS(ctx)
	}
}

func (s *liveFeedService) Publish(ctx context.Context, event dto.TelemetryEvent) {
	s.deliver(event, "local")

	envelope := liveFeedEnvelope{Source: s.nodeID, Event: event, SentAt: time.Now().UTC()}
	payload, err := json.Marshal(envelope)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to encode telemetry event")
		return
	}

	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish telemetry event to redis")
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish telemetry event to nats")
		}
	}
}

func (s *liveFeedService) Subscribe(course string) (<-chan dto.TelemetryEvent, func()) {
	channel := make(chan dto.TelemetryEvent, liveFeedBufferSize)

	s.broker.subscribe(course, channel)
	observability.LiveFeedClients().Inc()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			s.broker.unsubscribe(course, channel)
			observability.LiveFeedClients().Dec()
		})
	}

	return channel, cleanup
}

func (s *liveFeedService) deliver(event dto.TelemetryEvent, origin string) {
	if s.broker.broadcast(event.Course, event) > 0 {
		observability.LiveFeedEvents().WithLabelValues(origin).Inc()
	}
}

func (s *liveFeedService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("telemetry redis subscription closed")
			return
		}
		s.handleEvent([]byte(msg.Payload), "redis")
	}
}

func (s *liveFeedService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.Subscribe(s.natsSubject, func(msg *nats.Msg) {
		s.handleEvent(msg.Data, "nats")
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats telemetry subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain telemetry nats subscription")
		}
	}()
}

func (s *liveFeedService) handleEvent(payload []byte, origin string) {
	var envelope liveFeedEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		s.logger.Warn().Err(err).Msg("invalid telemetry event payload")
		return
	}

	if envelope.Source == s.nodeID {
		return
	}

	s.deliver(envelope.Event, origin)
}

func (b *liveFeedBroker) subscribe(course string, ch chan dto.TelemetryEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscribers[course]; !exists {
		b.subscribers[course] = make(map[chan dto.TelemetryEvent]struct{})
	}
	b.subscribers[course][ch] = struct{}{}
}

func (b *liveFeedBroker) unsubscribe(course string, ch chan dto.TelemetryEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subscribers, ok := b.subscribers[course]; ok {
		delete(subscribers, ch)
		close(ch)
		if len(subscribers) == 0 {
			delete(b.subscribers, course)
		}
	}
}

func (b *liveFeedBroker) broadcast(course string, event dto.TelemetryEvent) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for ch := range b.subscribers[course] {
		select {
		case ch <- event:
			delivered++
		default:
		}
	}
	return delivered
}
