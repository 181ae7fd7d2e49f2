package service

import (
	"context"
	"time"

	infraKafka "clipstream/internal/infra/kafka"
	"clipstream/pkg/logger"

	"go.uber.org/zap"
)

const publishTimeout = 3 * time.Second

// publishEvent sends a lifecycle event. Delivery is best effort: the request
// has already committed, so a broker failure is logged and swallowed.
func publishEvent(ctx context.Context, events EventPublisher, t infraKafka.EventType, videoID string) {
	if events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := events.Publish(ctx, infraKafka.NewVideoEvent(t, videoID)); err != nil {
		logger.Warn("Failed to publish video event",
			zap.String("type", string(t)),
			zap.String("video_id", videoID),
			zap.Error(err),
		)
	}
}

func publishChannelEvent(ctx context.Context, events EventPublisher, t infraKafka.EventType, channelID int64) {
	if events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := events.Publish(ctx, infraKafka.NewChannelEvent(t, channelID)); err != nil {
		logger.Warn("Failed to publish channel event",
			zap.String("type", string(t)),
			zap.Int64("channel_id", channelID),
			zap.Error(err),
		)
	}
}
