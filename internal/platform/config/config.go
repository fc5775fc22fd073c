package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix 是所有环境变量覆盖项的前缀，例如 DAILY_SERVER_ADDRESS
const EnvPrefix = "DAILY"

// Config 结构体定义了应用程序的所有配置项
// 它与 config.yaml 文件的结构完全对应
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Game     GameConfig     `mapstructure:"game"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Health   HealthConfig   `mapstructure:"health"`
}

// ServerConfig 定义了服务器相关的配置
type ServerConfig struct {
	Mode    string     `mapstructure:"mode" validate:"oneof=debug release test"`
	Address string     `mapstructure:"address" validate:"required"`
	Cors    CorsConfig `mapstructure:"cors"`
	// AdminToken 非空时，管理接口（如 resetToday）需要携带 X-Admin-Token 请求头
	AdminToken      string        `mapstructure:"adminToken"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout" validate:"gt=0"`
}

// CorsConfig 定义了CORS相关的配置
type CorsConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

// DatabaseConfig 定义了键值存储相关的配置
type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig 定义了Redis的配置
type RedisConfig struct {
	Address  string `mapstructure:"address" validate:"required"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

// ArchiveConfig 定义了归档数据库（快照与恢复）的配置
type ArchiveConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	Driver           string        `mapstructure:"driver" validate:"oneof=sqlite postgres"`
	DSN              string        `mapstructure:"dsn" validate:"required_if=Enabled true"`
	SnapshotInterval time.Duration `mapstructure:"snapshotInterval" validate:"gte=0"`
}

// GameConfig 定义了每日游戏本身的参数
type GameConfig struct {
	Timezone              string        `mapstructure:"timezone" validate:"required"`
	CatalogPath           string        `mapstructure:"catalogPath" validate:"required"`
	LeaderboardSize       int           `mapstructure:"leaderboardSize" validate:"gt=0"`
	PlayedMarkerTTL       time.Duration `mapstructure:"playedMarkerTTL" validate:"gt=0"`
	RequireKnownPlayer    bool          `mapstructure:"requireKnownPlayer"`
	FallbackToFirstEntity bool          `mapstructure:"fallbackToFirstEntity"`
}

// CacheConfig 定义了历史排行榜内存缓存的配置
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	SizeMB  int           `mapstructure:"sizeMB" validate:"gte=0"`
	TTL     time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

// LoggerConfig 定义了日志输出的配置
type LoggerConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error fatal panic"`
	Pretty bool   `mapstructure:"pretty"`
}

// MetricsConfig 定义了Prometheus指标的配置
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// HealthConfig 定义了Redis健康检查器的配置
type HealthConfig struct {
	CheckInterval time.Duration `mapstructure:"checkInterval" validate:"gt=0"`
	PingTimeout   time.Duration `mapstructure:"pingTimeout" validate:"gt=0"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.cors.allowedOrigins", []string{"http://localhost:4321"})
	v.SetDefault("server.adminToken", "")
	v.SetDefault("server.shutdownTimeout", 15*time.Second)

	v.SetDefault("database.redis.address", "localhost:6379")
	v.SetDefault("database.redis.db", 0)

	v.SetDefault("archive.enabled", true)
	v.SetDefault("archive.driver", "sqlite")
	v.SetDefault("archive.dsn", "daily.db")
	v.SetDefault("archive.snapshotInterval", 10*time.Minute)

	v.SetDefault("game.timezone", "Europe/Paris")
	v.SetDefault("game.catalogPath", "./data/champions.json")
	v.SetDefault("game.leaderboardSize", 50)
	v.SetDefault("game.playedMarkerTTL", 48*time.Hour)
	v.SetDefault("game.requireKnownPlayer", true)
	v.SetDefault("game.fallbackToFirstEntity", false)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.sizeMB", 8)
	v.SetDefault("cache.ttl", 10*time.Minute)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.pretty", false)

	v.SetDefault("metrics.enabled", true)

	v.SetDefault("health.checkInterval", 5*time.Second)
	v.SetDefault("health.pingTimeout", 2*time.Second)
}

// LoadConfig 函数负责查找、加载和解析配置文件
// configPath 为空时，会在 ./config 和 . 中查找 config.yaml；文件不存在时只使用默认值和环境变量。
// flags 中已经被显式设置的命令行参数拥有最高优先级。
func LoadConfig(configPath string, flags *pflag.FlagSet) (*Config, error) {
	// .env 是可选的，不存在时静默忽略
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType(strings.TrimPrefix(filepath.Ext(configPath), "."))
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// 允许通过环境变量覆盖配置，例如 DAILY_GAME_TIMEZONE=UTC
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("无法读取配置文件: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法解析配置: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// flagKeys 把命令行参数名映射到配置键
var flagKeys = map[string]string{
	"address":   "server.address",
	"catalog":   "game.catalogPath",
	"redis":     "database.redis.address",
	"log-level": "logger.level",
	"pretty":    "logger.pretty",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("无法绑定命令行参数 --%s: %w", name, err)
		}
	}
	return nil
}

// Validate 校验配置中的取值范围和必填项
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}
	return nil
}
