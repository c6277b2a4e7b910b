package config

import "time"

// Chat definition chat_service YAML structure
type Chat struct {
	Port       string        `mapstructure:"port"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`

	MongoSQL   DatabaseConfig  `mapstructure:"mongo"`
	PostgreSQL DatabaseConfig  `mapstructure:"pg"`
	Redis      RedisConfig     `mapstructure:"redis"`
	MinIO      MinIOConfig     `mapstructure:"minio"`
	Kafka      KafkaConfig     `mapstructure:"kafka"`
	JWT        JWTConfig       `mapstructure:"jwt"`
	Upload     UploadConfig    `mapstructure:"upload"`
	WebSocket  WebSocketConfig `mapstructure:"websocket"`
}

// RedisConfig definition redis setting
type RedisConfig struct {
	RedisDB int `mapstructure:"redis_db"`
	// Addr 單機模式；空字串時走 sentinel (.env REDIS_SENTINEL*_IP)
	Addr  string `mapstructure:"addr"`
	Relay bool   `mapstructure:"relay"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// MinIOConfig definition minio setting
type MinIOConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// KafkaConfig definition kafka setting, empty brokers disable the event stream
type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	Topic         string   `mapstructure:"topic"`
	RetryInterval int      `mapstructure:"retry_interval"`
	RetryCount    int      `mapstructure:"retry_count"`
}

// JWTConfig definition token setting
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Issuer     string        `mapstructure:"issuer"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// UploadConfig definition attachment setting
type UploadConfig struct {
	Bucket      string        `mapstructure:"bucket"`
	MaxFileSize int64         `mapstructure:"max_file_size"`
	PresignTTL  time.Duration `mapstructure:"presign_ttl"`
}

// WebSocketConfig definition realtime connection setting
type WebSocketConfig struct {
	AuthTimeout  time.Duration `mapstructure:"auth_timeout"`
	PingInterval time.Duration `mapstructure:"ping_interval"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	SendBuffer   int           `mapstructure:"send_buffer"`
	ReadLimit    int64         `mapstructure:"read_limit"`
}

// ChatDefaults default values of chat_service, yaml and env override them
var ChatDefaults = map[string]interface{}{
	"port":        "8001",
	"session_ttl": 720 * time.Hour,

	"mongo.host":           "localhost",
	"mongo.port":           27017,
	"mongo.database":       "chat",
	"mongo.retry_count":    5,
	"mongo.retry_interval": 3,

	"pg.host":           "localhost",
	"pg.port":           5432,
	"pg.database":       "chat",
	"pg.retry_count":    5,
	"pg.retry_interval": 3,

	"redis.redis_db": 0,
	"redis.relay":    true,

	"minio.host":           "localhost",
	"minio.port":           9000,
	"minio.retry_count":    5,
	"minio.retry_interval": 3,

	"kafka.topic":          "chat-events",
	"kafka.retry_count":    3,
	"kafka.retry_interval": 3,

	"jwt.secret":     "secure_secret_key",
	"jwt.issuer":     "chat_service",
	"jwt.expiration": 30 * 24 * time.Hour,

	"upload.bucket":        "chat-attachments",
	"upload.max_file_size": 10 << 20,
	"upload.presign_ttl":   15 * time.Minute,

	"websocket.auth_timeout":  5 * time.Second,
	"websocket.ping_interval": 30 * time.Second,
	"websocket.write_timeout": 10 * time.Second,
	"websocket.send_buffer":   256,
	"websocket.read_limit":    64 * 1024,
}
