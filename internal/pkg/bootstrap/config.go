// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration 让 time.Duration 可以直接写成 "15m" 这样的 yaml 值。
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config 是整个进程的配置。yaml 提供默认值，环境变量做部署时覆盖。
type Config struct {
	App struct {
		Port int `yaml:"port"`
		// 订单停留在待付款超过这个时长就会被超时任务取消
		PaymentTimeout Duration `yaml:"payment_timeout"`
		// 超时任务的扫描周期
		ReaperInterval Duration `yaml:"reaper_interval"`
	} `yaml:"app"`

	Infra struct {
		Mysql struct {
			DSN string `yaml:"dsn"`
		} `yaml:"mysql"`
		Redis struct {
			Addr string `yaml:"addr"`
		} `yaml:"redis"`
		Kafka struct {
			Brokers          []string `yaml:"brokers"`
			OrderEventsTopic string   `yaml:"order_events_topic"`
		} `yaml:"kafka"`
		Zookeeper struct {
			Servers []string `yaml:"servers"`
		} `yaml:"zookeeper"`
		Nacos struct {
			Addrs     string `yaml:"addrs"`
			Namespace string `yaml:"namespace"`
			Group     string `yaml:"group"`
		} `yaml:"nacos"`
		Jaeger struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`
		Payment struct {
			// 支付网关预下单地址；留空时走本地模拟（开发环境）
			Endpoint string `yaml:"endpoint"`
		} `yaml:"payment"`
	} `yaml:"infra"`
}

var currentConfig Config

// Init 加载配置：先读 CONFIG_PATH 指定的 yaml，再用环境变量覆盖关键项。
func Init() {
	applyDefaults(&currentConfig)

	if path := getEnv("CONFIG_PATH", "configs/config.yaml"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if err := yaml.Unmarshal(data, &currentConfig); err != nil {
				panic(fmt.Sprintf("FATAL: invalid config file %s: %v", path, err))
			}
		}
	}

	applyEnvOverrides(&currentConfig)
}

// GetCurrentConfig 返回进程级配置。
func GetCurrentConfig() *Config {
	return &currentConfig
}

func applyDefaults(cfg *Config) {
	cfg.App.Port = 8081
	cfg.App.PaymentTimeout = Duration(15 * time.Minute)
	cfg.App.ReaperInterval = Duration(time.Minute)
	cfg.Infra.Kafka.OrderEventsTopic = "order-events"
	cfg.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MYSQL_DSN"); v != "" {
		cfg.Infra.Mysql.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Infra.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Infra.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("ZK_SERVERS"); v != "" {
		cfg.Infra.Zookeeper.Servers = strings.Split(v, ",")
	}
	if v := os.Getenv("NACOS_SERVER_ADDRS"); v != "" {
		cfg.Infra.Nacos.Addrs = v
	}
	if v := os.Getenv("NACOS_NAMESPACE"); v != "" {
		cfg.Infra.Nacos.Namespace = v
	}
	if v := os.Getenv("NACOS_GROUP"); v != "" {
		cfg.Infra.Nacos.Group = v
	}
	if v := os.Getenv("JAEGER_ENDPOINT"); v != "" {
		cfg.Infra.Jaeger.Endpoint = v
	}
	if v := os.Getenv("PAYMENT_ENDPOINT"); v != "" {
		cfg.Infra.Payment.Endpoint = v
	}
}

// getEnv 是一个内部辅助函数，从环境变量中读取配置。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
