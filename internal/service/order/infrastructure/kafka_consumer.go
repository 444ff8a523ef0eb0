// internal/service/order/infrastructure/kafka_consumer.go
package infrastructure

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"takeout/internal/pkg/logger"
	"takeout/internal/pkg/mq"
	"takeout/internal/service/order/domain"
)

// Broadcaster 是看板投递面的最小抽象，由 WebSocket Hub 实现。
type Broadcaster interface {
	Broadcast(event *domain.OrderEvent)
}

// EventConsumerAdapter 是一个驱动适配器：消费 order-events 主题，
// 把状态变更事件桥接到商家端看板。
type EventConsumerAdapter struct {
	reader *kafka.Reader
	sink   Broadcaster
}

// NewEventConsumerAdapter 创建一个新的Kafka消费者适配器。
func NewEventConsumerAdapter(reader *kafka.Reader, sink Broadcaster) *EventConsumerAdapter {
	return &EventConsumerAdapter{reader: reader, sink: sink}
}

// Run 开始监听Kafka主题，阻塞直到 ctx 取消。
func (a *EventConsumerAdapter) Run(ctx context.Context) error {
	logger.Ctx(ctx).Info().Str("topic", a.reader.Config().Topic).Msg("order event consumer started")
	defer a.reader.Close()

	for {
		// 用 FetchMessage 而不是 ReadMessage，以便控制提交和退出逻辑
		msg, err := a.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Ctx(ctx).Info().Msg("order event consumer shutting down")
				return nil
			}
			logger.Ctx(ctx).Error().Err(err).Msg("could not read message, retrying")
			time.Sleep(time.Second) // 避免快速失败循环
			continue
		}

		a.processMessage(ctx, msg)

		if err := a.reader.CommitMessages(ctx, msg); err != nil {
			logger.Ctx(ctx).Error().Err(err).Msg("failed to commit messages")
		}
	}
}

// processMessage 反序列化事件并推给看板。
func (a *EventConsumerAdapter) processMessage(parentCtx context.Context, msg kafka.Message) {
	var event domain.OrderEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		// 坏消息跳过即可，看板通知不值得进死信队列
		logger.Ctx(parentCtx).Error().Err(err).Msg("failed to unmarshal order event, skipping")
		return
	}

	ctx := mq.ExtractTraceContext(parentCtx, msg.Headers)
	logger.Ctx(ctx).Debug().Int64("order_id", event.OrderID).Int("type", event.Type).Msg("bridging order event to dashboard")
	a.sink.Broadcast(&event)
}
