// Package config loads process configuration with viper. Every key has a
// default, can be overridden by an optional YAML/JSON/TOML file, and then by
// an ESSENCE_-prefixed environment variable (reel.model_id -> ESSENCE_REEL_MODEL_ID).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	AWS     AWSConfig     `mapstructure:"aws"`
	Storage StorageConfig `mapstructure:"storage"`
	Agent   AgentConfig   `mapstructure:"agent"`
	Action  ActionConfig  `mapstructure:"action"`
	Reel    ReelConfig    `mapstructure:"reel"`
	Voice   VoiceConfig   `mapstructure:"voice"`
	Server  ServerConfig  `mapstructure:"server"`
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
}

type StorageConfig struct {
	Bucket       string `mapstructure:"bucket"`
	UploadSource string `mapstructure:"upload_source"`
	// PlaybackURLExpiry bounds presigned reel playback links; zero disables them.
	PlaybackURLExpiry time.Duration `mapstructure:"playback_url_expiry"`
}

// AgentConfig identifies the Bedrock agent. When IDParam/AliasParam are set the
// values are read from SSM Parameter Store at startup and replace ID/AliasID.
type AgentConfig struct {
	ID         string `mapstructure:"id"`
	AliasID    string `mapstructure:"alias_id"`
	IDParam    string `mapstructure:"id_param"`
	AliasParam string `mapstructure:"alias_param"`
}

type ActionConfig struct {
	FunctionName string `mapstructure:"function_name"`
	ActionGroup  string `mapstructure:"action_group"`
}

type ReelConfig struct {
	ModelID string `mapstructure:"model_id"`
	// OutputURI defaults to s3://<storage.bucket>.
	OutputURI string `mapstructure:"output_uri"`
	// JobsTable enables DynamoDB persistence of reel jobs; empty keeps them in memory.
	JobsTable string `mapstructure:"jobs_table"`
}

type VoiceConfig struct {
	ModelID      string `mapstructure:"model_id"`
	DefaultVoice string `mapstructure:"default_voice"`
	QueueSize    int    `mapstructure:"queue_size"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
	MaxSessions     int           `mapstructure:"max_sessions"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
	// CORSOrigins lists browser origins allowed to call the API; "*" allows any.
	CORSOrigins []string `mapstructure:"cors_origins"`
	// OriginVerifySecret is the shared header value the CDN injects.
	OriginVerifySecret string `mapstructure:"origin_verify_secret"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("aws.region", "us-east-1")

	v.SetDefault("storage.bucket", "essencemirror-user-uploads")
	v.SetDefault("storage.upload_source", "web")
	v.SetDefault("storage.playback_url_expiry", time.Hour)

	v.SetDefault("agent.id", "WWIUY28GRY")
	v.SetDefault("agent.alias_id", "TSTALIASID")
	v.SetDefault("agent.id_param", "")
	v.SetDefault("agent.alias_param", "")

	v.SetDefault("action.function_name", "essenceMirror")
	v.SetDefault("action.action_group", "EssenceMirrorActions")

	v.SetDefault("reel.model_id", "amazon.nova-reel-v1:1")
	v.SetDefault("reel.output_uri", "")
	v.SetDefault("reel.jobs_table", "")

	v.SetDefault("voice.model_id", "amazon.nova-sonic-v1:0")
	v.SetDefault("voice.default_voice", "Joanna")
	v.SetDefault("voice.queue_size", 256)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.session_ttl", 2*time.Hour)
	v.SetDefault("server.max_sessions", 1024)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.max_upload_bytes", int64(20<<20))
	v.SetDefault("server.origin_verify_secret", "")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000", "http://localhost:5173"})
}

// Load reads configuration. path may be empty, in which case only defaults
// and environment variables apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ESSENCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Reel.OutputURI == "" && cfg.Storage.Bucket != "" {
		cfg.Reel.OutputURI = "s3://" + cfg.Storage.Bucket
	}
	cfg.Reel.OutputURI = strings.TrimRight(cfg.Reel.OutputURI, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	var errs []error
	if c.AWS.Region == "" {
		errs = append(errs, errors.New("aws.region is required"))
	}
	if c.Storage.Bucket == "" {
		errs = append(errs, errors.New("storage.bucket is required"))
	}
	if c.Action.FunctionName == "" {
		errs = append(errs, errors.New("action.function_name is required"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Voice.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("voice.queue_size must be positive, got %d", c.Voice.QueueSize))
	}
	if c.Server.MaxSessions <= 0 {
		errs = append(errs, fmt.Errorf("server.max_sessions must be positive, got %d", c.Server.MaxSessions))
	}
	return errors.Join(errs...)
}
