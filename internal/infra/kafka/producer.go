package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"clipstream/internal/config"
	"clipstream/pkg/logger"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type EventType string

const (
	EventUploadCompleted EventType = "upload_completed"
	EventUploadAborted   EventType = "upload_aborted"
	EventVideoCreated    EventType = "video_created"
	EventVideoUpdated    EventType = "video_updated"
	EventVideoDeleted    EventType = "video_deleted"

	// EventChannelUpdated names a channel rather than a video; consumers
	// refresh every video of that channel.
	EventChannelUpdated EventType = "channel_updated"
)

// VideoEvent announces a change to a video's lifecycle. Consumers reload the
// video by id rather than trusting a payload snapshot.
type VideoEvent struct {
	EventID    string    `json:"event_id"`
	Type       EventType `json:"type"`
	VideoID    string    `json:"video_id,omitempty"`
	ChannelID  int64     `json:"channel_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewVideoEvent stamps an event with a fresh id and the current time.
func NewVideoEvent(t EventType, videoID string) *VideoEvent {
	return &VideoEvent{
		EventID:    uuid.NewString(),
		Type:       t,
		VideoID:    videoID,
		OccurredAt: time.Now().UTC(),
	}
}

// NewChannelEvent stamps a channel-level event.
func NewChannelEvent(t EventType, channelID int64) *VideoEvent {
	return &VideoEvent{
		EventID:    uuid.NewString(),
		Type:       t,
		ChannelID:  channelID,
		OccurredAt: time.Now().UTC(),
	}
}

// Key is the partition key: the video id, or the channel for channel events.
func (e *VideoEvent) Key() string {
	if e.VideoID != "" {
		return e.VideoID
	}
	return "channel:" + strconv.FormatInt(e.ChannelID, 10)
}

type Producer struct {
	writer *kafka.Writer
	topic  string
}

func NewProducer(cfg *config.KafkaConfig) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}

	logger.Info("Kafka producer initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.VideoEventsTopic()),
	)
	return &Producer{writer: w, topic: cfg.VideoEventsTopic()}
}

// Publish writes the event under its Key so events for one video stay ordered.
func (p *Producer) Publish(ctx context.Context, event *VideoEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal video event: %w", err)
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.Key()),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to send video event: %w", err)
	}

	logger.Debug("Video event sent",
		zap.String("type", string(event.Type)),
		zap.String("key", event.Key()),
	)
	return nil
}

func (p *Producer) Close() error {
	logger.Info("Kafka producer closed")
	return p.writer.Close()
}
