package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/slighter12/go-lib/database/postgres"
)

const (
	defaultPath = "."

	defaultTCPHost             = "0.0.0.0"
	defaultTCPPort             = 5555
	defaultHTTPPort            = 8000
	defaultWebSocketPath       = "/ws"
	defaultMaxFrameBytes       = 64 * 1024
	defaultWriteTimeout        = 10 * time.Second
	defaultOutboundQueueSize   = 256
	defaultHistoryMaxLimit     = 1000
	defaultHistoryDefaultLimit = 50
	defaultShutdownTimeout     = 10 * time.Second
	defaultBcryptCost          = 12
	defaultTokenTTL            = 24 * time.Hour
	defaultRedisHistoryKey     = "chat:messages"

	// StorageMemory keeps users or messages in process memory.
	StorageMemory = "memory"
	// StoragePostgres keeps users or messages in PostgreSQL through gorm.
	StoragePostgres = "postgres"
	// StorageRedis keeps messages in a Redis list.
	StorageRedis = "redis"
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	TCP struct {
		Enabled bool   `json:"enabled" yaml:"enabled"`
		Host    string `json:"host" yaml:"host"`
		Port    int    `json:"port" yaml:"port"`
	} `json:"tcp" yaml:"tcp"`

	HTTP struct {
		Enabled       bool   `json:"enabled" yaml:"enabled"`
		Port          int    `json:"port" yaml:"port"`
		WebSocketPath string `json:"webSocketPath" yaml:"webSocketPath"`
		Timeouts      struct {
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	Chat ChatConfig `json:"chat" yaml:"chat"`

	Storage StorageConfig `json:"storage" yaml:"storage"`

	Postgres *postgres.DBConn `json:"postgres" yaml:"postgres" mapstructure:"postgres"`

	// Redis configuration for the redis history store
	Redis *RedisConfig `json:"redis" yaml:"redis"`

	Auth AuthConfig `json:"auth" yaml:"auth"`

	// PubSub configuration for message event publishing
	PubSub *PubSubConfig `json:"pubsub" yaml:"pubsub"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// ChatConfig defines connection and protocol limits
type ChatConfig struct {
	// Largest number of bytes one frame may occupy before its newline arrives
	MaxFrameBytes int `json:"maxFrameBytes" yaml:"maxFrameBytes"`

	// Strict framing disconnects on the first malformed frame; lenient answers with an error frame
	StrictFraming bool `json:"strictFraming" yaml:"strictFraming"`

	// Protocol errors tolerated per connection before it is closed (0 = unlimited)
	MaxProtocolErrors int `json:"maxProtocolErrors" yaml:"maxProtocolErrors"`

	// Connections without a valid frame for this long are closed (0 = disabled)
	IdleTimeout time.Duration `json:"idleTimeout" yaml:"idleTimeout"`

	// Deadline for writing one frame
	WriteTimeout time.Duration `json:"writeTimeout" yaml:"writeTimeout"`

	// Frames queued per connection before it is treated as unhealthy
	OutboundQueueSize int `json:"outboundQueueSize" yaml:"outboundQueueSize"`

	// Server cap for get_history limits
	HistoryMaxLimit int `json:"historyMaxLimit" yaml:"historyMaxLimit"`

	// Limit used when get_history omits it
	HistoryDefaultLimit int `json:"historyDefaultLimit" yaml:"historyDefaultLimit"`

	// When positive, a history_response of this size is pushed after login
	HistoryOnLogin int `json:"historyOnLogin" yaml:"historyOnLogin"`

	// Budget for closing all connections on shutdown
	ShutdownTimeout time.Duration `json:"shutdownTimeout" yaml:"shutdownTimeout"`
}

// StorageConfig selects the credential and history store implementations
type StorageConfig struct {
	Users             string `json:"users" yaml:"users"`
	Messages          string `json:"messages" yaml:"messages"`
	MemoryMaxMessages int    `json:"memoryMaxMessages" yaml:"memoryMaxMessages"`
	AutoMigrate       bool   `json:"autoMigrate" yaml:"autoMigrate"`

	// Queries slower than this are logged at warn level (0 = never)
	SlowQueryThreshold time.Duration `json:"slowQueryThreshold" yaml:"slowQueryThreshold"`
}

// RedisConfig defines the redis connection used by the history store
type RedisConfig struct {
	Addr     string `json:"addr" yaml:"addr"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`

	// List key holding the history
	Key string `json:"key" yaml:"key"`

	// History is trimmed to this many entries on append (0 = unbounded)
	MaxMessages int `json:"maxMessages" yaml:"maxMessages"`
}

// AuthConfig defines authentication-related configuration
type AuthConfig struct {
	BcryptCost int `json:"bcryptCost" yaml:"bcryptCost"`

	// HMAC secret for session resume tokens; empty disables tokens
	TokenSecret string        `json:"tokenSecret" yaml:"tokenSecret"`
	TokenTTL    time.Duration `json:"tokenTTL" yaml:"tokenTTL"`
}

// PubSubConfig defines Pub/Sub configuration for event publishing
type PubSubConfig struct {
	// Provider type: "local" for local HTTP or "google" for Google Pub/Sub
	Provider string `json:"provider" yaml:"provider"`

	// Google Cloud project ID (for google provider)
	ProjectID string `json:"projectId" yaml:"projectId"`

	// Pub/Sub topic ID (for google provider)
	TopicID string `json:"topicId" yaml:"topicId"`

	// Local HTTP endpoint for development (for local provider)
	LocalEndpoint string `json:"localEndpoint" yaml:"localEndpoint"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// CHAT_IDLETIMEOUT -> chat.idleTimeout, aligned with existing YAML keys.
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if cfg.Postgres != nil {
		// POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, etc.
		cfg.Postgres.Replicas = buildReplicasFromEnv()
	}

	return cfg, nil
}

// applyDefaults fills zero values with the documented defaults.
func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.TCP.Host) == "" {
		cfg.TCP.Host = defaultTCPHost
	}
	if cfg.TCP.Port == 0 {
		cfg.TCP.Port = defaultTCPPort
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = defaultHTTPPort
	}
	if strings.TrimSpace(cfg.HTTP.WebSocketPath) == "" {
		cfg.HTTP.WebSocketPath = defaultWebSocketPath
	}

	chat := &cfg.Chat
	if chat.MaxFrameBytes <= 0 {
		chat.MaxFrameBytes = defaultMaxFrameBytes
	}
	// Zero disables the protocol error threshold and the idle timeout.
	if chat.MaxProtocolErrors < 0 {
		chat.MaxProtocolErrors = 0
	}
	if chat.IdleTimeout < 0 {
		chat.IdleTimeout = 0
	}
	if chat.HistoryOnLogin < 0 {
		chat.HistoryOnLogin = 0
	}
	if chat.WriteTimeout <= 0 {
		chat.WriteTimeout = defaultWriteTimeout
	}
	if chat.OutboundQueueSize <= 0 {
		chat.OutboundQueueSize = defaultOutboundQueueSize
	}
	if chat.HistoryMaxLimit <= 0 {
		chat.HistoryMaxLimit = defaultHistoryMaxLimit
	}
	if chat.HistoryDefaultLimit <= 0 {
		chat.HistoryDefaultLimit = defaultHistoryDefaultLimit
	}
	if chat.HistoryDefaultLimit > chat.HistoryMaxLimit {
		chat.HistoryDefaultLimit = chat.HistoryMaxLimit
	}
	if chat.ShutdownTimeout <= 0 {
		chat.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.Storage.Users == "" {
		cfg.Storage.Users = StorageMemory
	}
	if cfg.Storage.Messages == "" {
		cfg.Storage.Messages = StorageMemory
	}

	if cfg.Auth.BcryptCost == 0 {
		cfg.Auth.BcryptCost = defaultBcryptCost
	}
	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = defaultTokenTTL
	}

	if cfg.Redis != nil && cfg.Redis.Key == "" {
		cfg.Redis.Key = defaultRedisHistoryKey
	}
}

// validate rejects storage selections that cannot be satisfied.
func validate(cfg *Config) error {
	switch cfg.Storage.Users {
	case StorageMemory:
	case StoragePostgres:
		if cfg.Postgres == nil {
			return errors.New("storage.users is postgres but postgres is not configured")
		}
	default:
		return errors.Errorf("unknown storage.users: %s", cfg.Storage.Users)
	}

	switch cfg.Storage.Messages {
	case StorageMemory:
	case StoragePostgres:
		if cfg.Postgres == nil {
			return errors.New("storage.messages is postgres but postgres is not configured")
		}
	case StorageRedis:
		if cfg.Redis == nil || cfg.Redis.Addr == "" {
			return errors.New("storage.messages is redis but redis.addr is not configured")
		}
	default:
		return errors.Errorf("unknown storage.messages: %s", cfg.Storage.Messages)
	}

	if !cfg.TCP.Enabled && !cfg.HTTP.Enabled {
		return errors.New("at least one of tcp.enabled or http.enabled must be true")
	}

	return nil
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}

// buildReplicasFromEnv builds the replicas slice from environment variables.
// Environment variable format: POSTGRES_REPLICAS_{index}_{field}
func buildReplicasFromEnv() []postgres.ConnectionConfig {
	var replicas []postgres.ConnectionConfig

	for i := 0; ; i++ {
		prefix := "POSTGRES_REPLICAS_" + strconv.Itoa(i) + "_"

		host := os.Getenv(prefix + "HOST")
		port := os.Getenv(prefix + "PORT")
		if host == "" || port == "" {
			break
		}

		replicas = append(replicas, postgres.ConnectionConfig{
			Host:     host,
			Port:     port,
			UserName: os.Getenv(prefix + "USERNAME"),
			Password: os.Getenv(prefix + "PASSWORD"),
		})
	}

	return replicas
}
