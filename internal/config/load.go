package config

import (
	"errors"
	"fmt"
	"strings"
	_ "time/tzdata" // reminders.timezone must resolve without system zoneinfo

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// envPrefix is prepended to every environment variable, e.g. NEXTUDY_SERVER_PORT.
const envPrefix = "NEXTUDY"

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate runs struct validation over an already populated Config.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.public_url", "http://localhost:3000")
	v.SetDefault("server.request_timeout_seconds", 60)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime_minutes", 5)

	v.SetDefault("auth.token_lifetime_minutes", 60)
	v.SetDefault("auth.refresh_token_lifetime_minutes", 10080)
	v.SetDefault("auth.activation_token_hours", 72)
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.login_code_ttl_minutes", 10)

	v.SetDefault("llm.provider", "groq")
	v.SetDefault("llm.groq_base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.chat_model", "llama-3.3-70b-versatile")
	v.SetDefault("llm.content_model", "llama-3.3-70b-versatile")
	v.SetDefault("llm.vision_model", "meta-llama/llama-4-scout-17b-16e-instruct")
	v.SetDefault("llm.whisper_model", "whisper-large-v3")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_ms", 2000)
	v.SetDefault("llm.max_input_chars", 60000)

	v.SetDefault("task.worker_count", 4)
	v.SetDefault("task.queue_size", 100)
	v.SetDefault("task.timeout_minutes", 5)
	v.SetDefault("task.stuck_task_age_minutes", 10)
	v.SetDefault("task.flush_interval_ms", 200)
	v.SetDefault("task.flush_chars", 50)
	v.SetDefault("task.history_limit", 20)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.prefix", "nextudy")
	v.SetDefault("redis.login_attempts", 5)
	v.SetDefault("redis.login_window_minutes", 15)

	v.SetDefault("storage.presign_expiry_minutes", 15)
	v.SetDefault("storage.max_upload_mb", 25)

	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.from", "noreply@nextudy.fr")

	v.SetDefault("billing.success_path", "/abonnement?success=1")
	v.SetDefault("billing.cancel_path", "/abonnement?canceled=1")
	v.SetDefault("billing.portal_return_path", "/abonnement")

	v.SetDefault("reminders.enabled", false)
	v.SetDefault("reminders.cron", "0 7 * * *")
	v.SetDefault("reminders.timezone", "Europe/Paris")
}

// bindEnvs registers keys that have no default so AutomaticEnv can see them during Unmarshal.
func bindEnvs(v *viper.Viper) {
	keys := []string{
		"database.url",
		"auth.jwt_secret",
		"auth.admin_emails",
		"llm.groq_api_key",
		"llm.gemini_api_key",
		"redis.password",
		"storage.endpoint",
		"storage.access_key",
		"storage.secret_key",
		"storage.bucket",
		"storage.use_ssl",
		"mail.host",
		"mail.username",
		"mail.password",
		"billing.stripe_secret_key",
		"billing.webhook_secret",
		"billing.price_id",
	}
	for _, key := range keys {
		// BindEnv only fails when no key is given.
		_ = v.BindEnv(key)
	}
}
