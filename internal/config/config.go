package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// RedisConfig is optional; an empty Addr disables login throttling.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SecurityConfig struct {
	JWTSecret        string
	TokenTTL         time.Duration
	BcryptCost       int
	LoginMaxAttempts int
	LoginWindow      time.Duration
}

type EmailConfig struct {
	Provider       string
	From           string
	SendGridAPIKey string
	SendGridHost   string
	ResendAPIKey   string
	Timeout        time.Duration
}

type AvatarConfig struct {
	MaxBytes  int64
	Size      int
	MaxPixels int
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Mongo            MongoConfig
	Redis            RedisConfig
	Security         SecurityConfig
	Email            EmailConfig
	Avatar           AvatarConfig
	AllowCORSOrigins []string
}

// Load reads config.yaml (optional), an optional .env file and the process
// environment, in increasing order of precedence.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("CONCERTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	return decode(v)
}

func decode(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// bindLegacyEnv keeps the variable names of the first deployment working.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"http.port":            {"CONCERTS_HTTP_PORT", "PORT"},
		"mongo.uri":            {"CONCERTS_MONGO_URI", "MONGODB_URL"},
		"security.jwtsecret":   {"CONCERTS_SECURITY_JWTSECRET", "JWT_SECRET"},
		"email.sendgridapikey": {"CONCERTS_EMAIL_SENDGRIDAPIKEY", "SENDGRID_API_KEY"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 3000)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("mongo.uri", "mongodb://127.0.0.1:27017")
	v.SetDefault("mongo.database", "concert-app-api")
	v.SetDefault("mongo.connecttimeout", "10s")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("security.jwtsecret", "")
	v.SetDefault("security.tokenttl", "0s")
	v.SetDefault("security.bcryptcost", 8)
	v.SetDefault("security.loginmaxattempts", 10)
	v.SetDefault("security.loginwindow", "15m")

	v.SetDefault("email.provider", "")
	v.SetDefault("email.from", "no-reply@concertlog.app")
	v.SetDefault("email.sendgridapikey", "")
	v.SetDefault("email.resendapikey", "")
	v.SetDefault("email.sendgridhost", "https://api.sendgrid.com")
	v.SetDefault("email.timeout", "10s")

	v.SetDefault("avatar.maxbytes", 1000000)
	v.SetDefault("avatar.size", 250)
	v.SetDefault("avatar.maxpixels", 25_000_000)

	v.SetDefault("allowcorsorigins", []string{})
}

func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.Security.JWTSecret) == "" {
		return errors.New("security.jwtsecret is required")
	}
	if strings.TrimSpace(c.Mongo.URI) == "" {
		return errors.New("mongo.uri is required")
	}
	if c.Avatar.MaxBytes <= 0 || c.Avatar.Size <= 0 {
		return errors.New("avatar limits must be positive")
	}
	return nil
}

// EmailProvider resolves the configured provider, falling back to sendgrid
// when only a SendGrid key is present and to log otherwise.
func (c *AppConfig) EmailProvider() string {
	if p := strings.ToLower(strings.TrimSpace(c.Email.Provider)); p != "" {
		return p
	}
	if c.Email.SendGridAPIKey != "" {
		return "sendgrid"
	}
	return "log"
}
