package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configName = "md2txt"
	envPrefix  = "MD2TXT"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Log    LogConfig    `mapstructure:"log"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Local  LocalConfig  `mapstructure:"local"`
	COS    COSConfig    `mapstructure:"cos"`
}

type ServerConfig struct {
	Addr          string        `mapstructure:"addr"`
	MaxInputBytes int64         `mapstructure:"max_input_bytes"` // 超过即拒绝，默认 1MB
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text 或 json
}

// RedisConfig 为空地址时不启用缓存
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// LocalConfig 为空目录时不启用本地导出
type LocalConfig struct {
	Dir           string        `mapstructure:"dir"`
	Salt          string        `mapstructure:"salt"`
	PublicPath    string        `mapstructure:"public_path"`
	Retention     time.Duration `mapstructure:"retention"`
	PruneInterval time.Duration `mapstructure:"prune_interval"`
}

// COSConfig 为空 bucket 时不启用腾讯云导出
type COSConfig struct {
	SecretID     string `mapstructure:"secret_id"`
	SecretKey    string `mapstructure:"secret_key"`
	Bucket       string `mapstructure:"bucket"`
	Region       string `mapstructure:"region"`
	FrontendHost string `mapstructure:"frontend_host"`
	HTTPS        bool   `mapstructure:"https"`
	Salt         string `mapstructure:"salt"`
}

func (c RedisConfig) Enabled() bool { return c.Addr != "" }
func (c LocalConfig) Enabled() bool { return c.Dir != "" }
func (c COSConfig) Enabled() bool   { return c.Bucket != "" }

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.max_input_bytes", 1<<20)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "24h")
	v.SetDefault("local.dir", "")
	v.SetDefault("local.salt", "")
	v.SetDefault("local.public_path", "/exports")
	v.SetDefault("local.retention", "168h")
	v.SetDefault("local.prune_interval", "1h")
	v.SetDefault("cos.secret_id", "")
	v.SetDefault("cos.secret_key", "")
	v.SetDefault("cos.bucket", "")
	v.SetDefault("cos.region", "")
	v.SetDefault("cos.frontend_host", "")
	v.SetDefault("cos.https", true)
	v.SetDefault("cos.salt", "")
}

// Dir returns the directory searched for md2txt.yaml besides the working directory.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, configName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", configName)
}

// Load reads configuration from path, or from md2txt.yaml in the working
// directory or Dir() when path is empty. Environment variables such as
// MD2TXT_SERVER_ADDR override file values. A missing default file is not
// an error, a missing explicit path is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir := Dir(); dir != "" {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.MaxInputBytes <= 0 {
		return fmt.Errorf("%w: server.max_input_bytes must be positive", ErrInvalid)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q (want text or json)", ErrInvalid, c.Log.Format)
	}
	if c.COS.Enabled() && (c.COS.Region == "" || c.COS.SecretID == "" || c.COS.SecretKey == "") {
		return fmt.Errorf("%w: cos needs region, secret_id and secret_key", ErrInvalid)
	}
	return nil
}
