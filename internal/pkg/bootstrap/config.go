// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"os"
	"strings"
	"sync/atomic"
	"time"

	"dispatch/internal/pkg/logger"

	"gopkg.in/yaml.v3"
)

// Config 是所有服务共享的配置结构。
// 以 YAML 文件为基础，关键字段允许用环境变量覆盖，方便容器化部署。
type Config struct {
	Infra struct {
		Mysql struct {
			DSN string `yaml:"dsn"`
		} `yaml:"mysql"`
		Redis struct {
			Addr string `yaml:"addr"`
		} `yaml:"redis"`
		Kafka struct {
			Brokers          []string `yaml:"brokers"`
			OrderEventsTopic string   `yaml:"orderEventsTopic"`
		} `yaml:"kafka"`
		Jaeger struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`
		Nacos struct {
			Enabled     bool   `yaml:"enabled"`
			ServerAddrs string `yaml:"serverAddrs"`
			Namespace   string `yaml:"namespace"`
			Group       string `yaml:"group"`
		} `yaml:"nacos"`
		Zookeeper struct {
			Servers []string `yaml:"servers"`
		} `yaml:"zookeeper"`
	} `yaml:"infra"`

	App struct {
		// Storage 选择持久化实现：mysql（默认）或 memory（本地开发/测试）
		Storage string `yaml:"storage"`
		// StaticServices 是服务名到基础地址的静态映射，
		// 在未启用 Nacos 服务发现时作为寻址回退。
		StaticServices map[string]string `yaml:"staticServices"`
		Order          struct {
			CallTimeout       time.Duration `yaml:"callTimeout"`
			ReconcileInterval time.Duration `yaml:"reconcileInterval"`
			MenuCacheTTL      time.Duration `yaml:"menuCacheTTL"`
		} `yaml:"order"`
	} `yaml:"app"`
}

var current atomic.Pointer[Config]

// Init 加载配置。找不到配置文件时启用内置默认值，保证单机可以直接跑起来。
func Init() {
	cfg := defaultConfig()

	path := getEnv("CONFIG_PATH", "configs/config.yaml")
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			logger.Logger().Fatal().Err(err).Str("path", path).Msg("invalid config file")
		}
		logger.Logger().Info().Str("path", path).Msg("config loaded")
	} else {
		logger.Logger().Warn().Str("path", path).Msg("config file not found, using defaults")
	}

	applyEnvOverrides(cfg)
	current.Store(cfg)
}

// GetCurrentConfig 返回当前生效的配置。必须先调用 Init。
func GetCurrentConfig() *Config {
	if c := current.Load(); c != nil {
		return c
	}
	c := defaultConfig()
	applyEnvOverrides(c)
	current.Store(c)
	return c
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.Infra.Mysql.DSN = "root:root@tcp(localhost:3306)/dispatch?charset=utf8mb4&parseTime=True&loc=Local"
	cfg.Infra.Redis.Addr = ""
	cfg.Infra.Kafka.OrderEventsTopic = "order-events"
	cfg.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	cfg.Infra.Nacos.Group = "DEFAULT_GROUP"
	cfg.App.Storage = "mysql"
	cfg.App.StaticServices = map[string]string{
		"catalog-service": "http://localhost:8082",
		"courier-service": "http://localhost:8084",
		"order-service":   "http://localhost:8081",
	}
	cfg.App.Order.CallTimeout = 3 * time.Second
	cfg.App.Order.ReconcileInterval = 5 * time.Second
	cfg.App.Order.MenuCacheTTL = 5 * time.Second
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("MYSQL_DSN"); ok {
		cfg.Infra.Mysql.DSN = v
	}
	if v, ok := os.LookupEnv("REDIS_ADDR"); ok {
		cfg.Infra.Redis.Addr = v
	}
	if v, ok := os.LookupEnv("KAFKA_BROKERS"); ok {
		cfg.Infra.Kafka.Brokers = strings.Split(v, ",")
	}
	if v, ok := os.LookupEnv("JAEGER_ENDPOINT"); ok {
		cfg.Infra.Jaeger.Endpoint = v
	}
	if v, ok := os.LookupEnv("NACOS_SERVER_ADDRS"); ok {
		cfg.Infra.Nacos.Enabled = true
		cfg.Infra.Nacos.ServerAddrs = v
	}
	if v, ok := os.LookupEnv("NACOS_NAMESPACE"); ok {
		cfg.Infra.Nacos.Namespace = v
	}
	if v, ok := os.LookupEnv("NACOS_GROUP"); ok {
		cfg.Infra.Nacos.Group = v
	}
	if v, ok := os.LookupEnv("ZK_SERVERS"); ok {
		cfg.Infra.Zookeeper.Servers = strings.Split(v, ",")
	}
	if v, ok := os.LookupEnv("STORAGE"); ok {
		cfg.App.Storage = v
	}
}

// getEnv 从环境变量读取配置，不存在时返回回退值。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
