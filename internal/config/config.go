package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Storage    StorageConfig
	Tracing    TracingConfig `mapstructure:"tracing"`
	Redis      RedisConfig
	Statistics StatisticsConfig `mapstructure:"statistics"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Log        LogConfig        `mapstructure:"log"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	MigrateOnly bool   `mapstructure:"-"` // 仅迁移模式（迁移后退出）
	Dir         string `mapstructure:"-"` // 配置文件所在目录，热更新时监听
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
	// 每个用户每个窗口内可提交的统计任务数，0 表示不限制
	StatsJobs int `mapstructure:"stats_jobs"`
}

// LogConfig File 为空时只输出到控制台
type LogConfig struct {
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Driver    string `mapstructure:"driver"` // mysql | sqlite
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
	// sqlite 模式下的数据库文件路径
	Path string `mapstructure:"path"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	// 非空时要求令牌 iss 一致
	Issuer string `mapstructure:"issuer"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
	OSSEndpoint   string `mapstructure:"oss_endpoint"`
	OSSAccessKey  string `mapstructure:"oss_access_key"`
	OSSSecretKey  string `mapstructure:"oss_secret_key"`
	OSSBucket     string `mapstructure:"oss_bucket"`
	MinioUseSSL   bool   `mapstructure:"minio_use_ssl"`
	// 对外访问前缀，为空时本地存储使用 /static
	PublicURL string `mapstructure:"public_url"`
}

type TracingConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	CollectorEndpoint string  `mapstructure:"collector_endpoint"`
	ServiceName       string  `mapstructure:"service_name"`
	SampleRatio       float64 `mapstructure:"sample_ratio"`
}

type RedisConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	Host        string
	Port        int
	Password    string
	DB          int
	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// StatisticsConfig 统计任务相关配置
type StatisticsConfig struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
	// 任务状态保存在 redis 中的过期时间
	JobTTL time.Duration `mapstructure:"job_ttl"`
	// 等待任务完成的轮询参数
	PollInitialInterval time.Duration `mapstructure:"poll_initial_interval"`
	PollMaxInterval     time.Duration `mapstructure:"poll_max_interval"`
	WaitTimeout         time.Duration `mapstructure:"wait_timeout"`
	// 多次作答时参与统计的记录: all | latest | best
	AttemptPolicy string `mapstructure:"attempt_policy"`
	// 平台统计的定时任务（cron 表达式），为空则不启用
	PlatformSchedule string `mapstructure:"platform_schedule"`
	// 统计图中的月份名称，必须是 12 个，为空使用英文名称
	MonthNames []string `mapstructure:"month_names"`
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("QUIZ_MASTER")
	v.AutomaticEnv()

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")
	v.BindEnv("database.path", "DATABASE_PATH")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")
	v.BindEnv("jwt.issuer", "JWT_ISSUER")

	// Log
	v.BindEnv("log.file", "LOG_FILE")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")

	// Storage
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.oss_endpoint", "OSS_ENDPOINT")
	v.BindEnv("storage.oss_access_key", "OSS_ACCESS_KEY")
	v.BindEnv("storage.oss_secret_key", "OSS_SECRET_KEY")
	v.BindEnv("storage.oss_bucket", "OSS_BUCKET")
	v.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	v.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")
	v.BindEnv("tracing.sample_ratio", "TRACING_SAMPLE_RATIO")

	// Statistics
	v.BindEnv("statistics.attempt_policy", "STATS_ATTEMPT_POLICY")
	v.BindEnv("statistics.wait_timeout", "STATS_WAIT_TIMEOUT")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Dir = path

	// 生产环境校验 JWT Secret 强度
	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	switch cfg.Statistics.AttemptPolicy {
	case "all", "latest", "best":
	default:
		return nil, fmt.Errorf("invalid statistics.attempt_policy %q", cfg.Statistics.AttemptPolicy)
	}

	if r := cfg.Tracing.SampleRatio; r < 0 || r > 1 {
		return nil, fmt.Errorf("tracing.sample_ratio must be within [0, 1], got %v", r)
	}

	if n := len(cfg.Statistics.MonthNames); n != 0 && n != 12 {
		return nil, fmt.Errorf("statistics.month_names must list 12 months, got %d", n)
	}

	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("database.path", "quiz_master.db")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("log.file", "logs/app.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "static")
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.dial_timeout", 3*time.Second)
	v.SetDefault("tracing.service_name", "quiz-master")
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("rate_limit.max_requests", 600)
	v.SetDefault("rate_limit.window_minutes", 1)
	v.SetDefault("rate_limit.stats_jobs", 30)
	v.SetDefault("statistics.workers", 4)
	v.SetDefault("statistics.queue_size", 64)
	v.SetDefault("statistics.job_ttl", time.Hour)
	v.SetDefault("statistics.poll_initial_interval", 50*time.Millisecond)
	v.SetDefault("statistics.poll_max_interval", time.Second)
	v.SetDefault("statistics.wait_timeout", 30*time.Second)
	v.SetDefault("statistics.attempt_policy", "all")
	v.SetDefault("statistics.platform_schedule", "0 0 1 * *")
}
