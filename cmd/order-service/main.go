// cmd/order-service/main.go
package main

import (
	"context"

	"go.opentelemetry.io/otel"

	"takeout/internal/pkg/bootstrap"
	"takeout/internal/pkg/httpclient"
	"takeout/internal/pkg/logger"
	"takeout/internal/pkg/mq"
	"takeout/internal/pkg/redis"
	"takeout/internal/pkg/zookeeper"
	"takeout/internal/service/order/application"
	"takeout/internal/service/order/infrastructure"
	"takeout/internal/service/order/infrastructure/adapter"
	"takeout/internal/service/order/interfaces"
)

const (
	serviceName          = "order-service"
	eventConsumerGroupID = "order-dashboard-consumer-group"
	reaperLockResource   = "order-reaper"
)

// main 函数是应用的"组装根" (Composition Root)
// 它的核心职责是：创建并组装所有依赖项，然后启动应用。
func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	tracer := otel.Tracer(serviceName)

	// 1. 存储层
	db, err := infrastructure.NewDB(cfg.Infra.Mysql.DSN)
	if err != nil {
		logger.Logger().Fatal().Err(err).Msg("failed to initialize mysql")
	}
	orderRepo := infrastructure.NewGormOrderRepository(db)
	addressResolver := infrastructure.NewGormAddressResolver(db)

	// 2. Redis：单号序列 + 支付回调去重。连不上时降级为进程内实现
	var redisClient *redis.Client
	if cfg.Infra.Redis.Addr != "" {
		redisClient, err = redis.NewClient(context.Background(), cfg.Infra.Redis.Addr)
		if err != nil {
			logger.Logger().Warn().Err(err).Msg("redis unavailable, sequence and dedup fall back to in-process mode")
			redisClient = nil
		}
	}
	sequence := adapter.NewSequenceRedisAdapter(redisClient)
	deduper := adapter.NewDeduperRedisAdapter(redisClient)

	// 3. Kafka：状态变更事件的出口和看板桥接的入口
	kafkaWriter := mq.NewKafkaWriter(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.OrderEventsTopic)
	notifier := adapter.NewNotificationKafkaAdapter(kafkaWriter)

	eventReader := mq.NewKafkaReader(cfg.Infra.Kafka.Brokers, cfg.Infra.Kafka.OrderEventsTopic, eventConsumerGroupID)

	// 4. 支付网关
	gateway := adapter.NewWechatPayAdapter(httpclient.NewClient(tracer), cfg.Infra.Payment.Endpoint)

	// 5. 业务引擎
	engine := application.NewOrderApplicationService(orderRepo, addressResolver, gateway, notifier, sequence, deduper, tracer)

	// 6. 超时任务。配置了 ZooKeeper 就加分布式锁，多实例部署时同一轮只有一个实例扫描
	var sweepLock application.SweepLock
	var zkConn *zookeeper.Conn
	if len(cfg.Infra.Zookeeper.Servers) > 0 {
		zkConn, err = zookeeper.Connect(cfg.Infra.Zookeeper.Servers)
		if err != nil {
			logger.Logger().Fatal().Err(err).Msg("failed to connect to zookeeper")
		}
		sweepLock = zookeeper.NewDistributedLock(zkConn, reaperLockResource)
	}
	reaper := application.NewTimeoutReaper(
		orderRepo, engine,
		cfg.App.PaymentTimeout.Std(), cfg.App.ReaperInterval.Std(),
		sweepLock, tracer,
	)

	// 7. 看板推送：Kafka 事件 -> WebSocket Hub
	hub := interfaces.NewHub()
	consumer := infrastructure.NewEventConsumerAdapter(eventReader, hub)

	handler := interfaces.NewOrderHandler(engine, hub)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        cfg.App.Port,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			handler.RegisterRoutes(appCtx.Mux)
		},
		BackgroundTasks: []func(ctx context.Context) error{
			hub.Run,
			consumer.Run,
			reaper.Run,
		},
		OnShutdown: func(ctx context.Context) {
			if err := notifier.Close(); err != nil {
				logger.Logger().Error().Err(err).Msg("failed to close kafka writer")
			}
			if redisClient != nil {
				redisClient.Close()
			}
			if zkConn != nil {
				zkConn.Close()
			}
		},
	})
}
