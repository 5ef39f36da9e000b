package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Типы событий платформы.
const (
	EventStoryPublished = "story.published"
	EventStorySuspended = "story.suspended"
	EventSessionEnded   = "session.ended"
)

// PlatformEvent - событие платформы, публикуемое в очередь.
type PlatformEvent struct {
	Type       string    `json:"type"`
	StoryID    int64     `json:"story_id,omitempty"`
	AuthorID   uint64    `json:"author_id,omitempty"`
	UserID     uint64    `json:"user_id,omitempty"`
	SessionID  string    `json:"session_id,omitempty"`
	EndingPage *int64    `json:"ending_page_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher публикует события платформы.
// Ошибки публикации не должны ронять бизнес-операцию:
// вызывающий код логирует их и продолжает.
type EventPublisher interface {
	PublishStoryPublished(ctx context.Context, storyID int64, authorID uint64) error
	PublishStorySuspended(ctx context.Context, storyID int64, suspended bool) error
	PublishSessionEnded(ctx context.Context, sessionID string, userID uint64, storyID int64, endingPageID *int64) error
}

// rabbitMQEventPublisher реализует EventPublisher поверх RabbitMQ.
type rabbitMQEventPublisher struct {
	channel   *amqp.Channel
	queueName string
	logger    *zap.Logger
}

// NewRabbitMQEventPublisher открывает канал и объявляет очередь событий.
// Параметры очереди должны совпадать с параметрами у потребителей.
func NewRabbitMQEventPublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (EventPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("event publisher: не удалось открыть канал: %w", err)
	}
	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("event publisher: не удалось объявить очередь '%s': %w", queueName, err)
	}
	log := logger.Named("EventPublisher")
	log.Info("Очередь событий объявлена", zap.String("queue", queueName))
	return &rabbitMQEventPublisher{channel: ch, queueName: queueName, logger: log}, nil
}

func (p *rabbitMQEventPublisher) PublishStoryPublished(ctx context.Context, storyID int64, authorID uint64) error {
	return p.publishEvent(ctx, PlatformEvent{
		Type:       EventStoryPublished,
		StoryID:    storyID,
		AuthorID:   authorID,
		OccurredAt: time.Now().UTC(),
	})
}

func (p *rabbitMQEventPublisher) PublishStorySuspended(ctx context.Context, storyID int64, suspended bool) error {
	event := PlatformEvent{
		Type:       EventStorySuspended,
		StoryID:    storyID,
		OccurredAt: time.Now().UTC(),
	}
	if !suspended {
		// Снятие блокировки публикуем тем же типом, потребители различают по полю
		event.Type = "story.unsuspended"
	}
	return p.publishEvent(ctx, event)
}

func (p *rabbitMQEventPublisher) PublishSessionEnded(ctx context.Context, sessionID string, userID uint64, storyID int64, endingPageID *int64) error {
	return p.publishEvent(ctx, PlatformEvent{
		Type:       EventSessionEnded,
		SessionID:  sessionID,
		UserID:     userID,
		StoryID:    storyID,
		EndingPage: endingPageID,
		OccurredAt: time.Now().UTC(),
	})
}

// publishEvent сериализует и отправляет событие в очередь с retry.
func (p *rabbitMQEventPublisher) publishEvent(ctx context.Context, event PlatformEvent) error {
	if p.channel == nil {
		return errors.New("канал RabbitMQ не инициализирован")
	}
	body, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Ошибка сериализации события", zap.String("type", event.Type), zap.Error(err))
		return fmt.Errorf("ошибка сериализации события %s: %w", event.Type, err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	for attempt := 1; attempt <= 3; attempt++ {
		err = p.channel.PublishWithContext(ctx,
			"",          // exchange (default)
			p.queueName, // routing key
			false,       // mandatory
			false,       // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Body:         body,
				Timestamp:    time.Now(),
				AppId:        "nahb-server",
			},
		)
		if err == nil {
			p.logger.Debug("Событие опубликовано",
				zap.String("type", event.Type), zap.String("queue", p.queueName), zap.Int("attempt", attempt))
			return nil
		}
		p.logger.Warn("Ошибка публикации события, повтор",
			zap.String("type", event.Type), zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	return fmt.Errorf("ошибка публикации события %s: %w", event.Type, err)
}

// noopEventPublisher используется, когда RabbitMQ не настроен.
type noopEventPublisher struct {
	logger *zap.Logger
}

// NewNoopEventPublisher возвращает паблишер, который только логирует события.
func NewNoopEventPublisher(logger *zap.Logger) EventPublisher {
	return &noopEventPublisher{logger: logger.Named("NoopEventPublisher")}
}

func (p *noopEventPublisher) PublishStoryPublished(_ context.Context, storyID int64, authorID uint64) error {
	p.logger.Debug("Событие пропущено (RabbitMQ отключен)",
		zap.String("type", EventStoryPublished), zap.Int64("storyID", storyID), zap.Uint64("authorID", authorID))
	return nil
}

func (p *noopEventPublisher) PublishStorySuspended(_ context.Context, storyID int64, suspended bool) error {
	p.logger.Debug("Событие пропущено (RabbitMQ отключен)",
		zap.String("type", EventStorySuspended), zap.Int64("storyID", storyID), zap.Bool("suspended", suspended))
	return nil
}

func (p *noopEventPublisher) PublishSessionEnded(_ context.Context, sessionID string, userID uint64, storyID int64, _ *int64) error {
	p.logger.Debug("Событие пропущено (RabbitMQ отключен)",
		zap.String("type", EventSessionEnded), zap.String("sessionID", sessionID),
		zap.Uint64("userID", userID), zap.Int64("storyID", storyID))
	return nil
}
