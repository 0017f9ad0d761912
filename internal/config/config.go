package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	LLM       LLMConfig       `mapstructure:"llm" validate:"required"`
	Task      TaskConfig      `mapstructure:"task" validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis" validate:"required"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Mail      MailConfig      `mapstructure:"mail"`
	Billing   BillingConfig   `mapstructure:"billing"`
	Reminders RemindersConfig `mapstructure:"reminders"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// PublicURL is the externally reachable base URL of the web app, used in emails and redirects.
	PublicURL             string `mapstructure:"public_url" validate:"required,url"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds" validate:"gte=1"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL                    string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns           int    `mapstructure:"max_open_conns" validate:"gte=1"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes" validate:"gte=1"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string   `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes        int      `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
	RefreshTokenLifetimeMinutes int      `mapstructure:"refresh_token_lifetime_minutes" validate:"required,gtfield=TokenLifetimeMinutes"`
	ActivationTokenHours        int      `mapstructure:"activation_token_hours" validate:"required,gt=0"`
	BCryptCost                  int      `mapstructure:"bcrypt_cost" validate:"gte=4,lte=31"`
	AdminEmails                 []string `mapstructure:"admin_emails" validate:"dive,email"`
	LoginCodeTTLMinutes         int      `mapstructure:"login_code_ttl_minutes" validate:"required,gt=0"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	// Provider selects the chat backend: groq (OpenAI-compatible) or gemini.
	Provider      string  `mapstructure:"provider" validate:"required,oneof=groq gemini"`
	GroqAPIKey    string  `mapstructure:"groq_api_key" validate:"required_if=Provider groq"`
	GroqBaseURL   string  `mapstructure:"groq_base_url" validate:"required,url"`
	GeminiAPIKey  string  `mapstructure:"gemini_api_key" validate:"required_if=Provider gemini"`
	ChatModel     string  `mapstructure:"chat_model" validate:"required"`
	ContentModel  string  `mapstructure:"content_model" validate:"required"`
	VisionModel   string  `mapstructure:"vision_model" validate:"required"`
	WhisperModel  string  `mapstructure:"whisper_model" validate:"required"`
	Temperature   float32 `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxRetries    int     `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryDelayMS  int     `mapstructure:"retry_delay_ms" validate:"gte=0"`
	MaxInputChars int     `mapstructure:"max_input_chars" validate:"gt=0"`
}

// TaskConfig contains the background generation runner settings.
type TaskConfig struct {
	WorkerCount         int `mapstructure:"worker_count" validate:"required,gt=0"`
	QueueSize           int `mapstructure:"queue_size" validate:"required,gt=0"`
	TimeoutMinutes      int `mapstructure:"timeout_minutes" validate:"required,gt=0"`
	StuckTaskAgeMinutes int `mapstructure:"stuck_task_age_minutes" validate:"required,gt=0"`
	FlushIntervalMS     int `mapstructure:"flush_interval_ms" validate:"required,gt=0"`
	FlushChars          int `mapstructure:"flush_chars" validate:"required,gt=0"`
	HistoryLimit        int `mapstructure:"history_limit" validate:"required,gt=0"`
}

// RedisConfig configures the Redis instance backing login codes and rate limits.
type RedisConfig struct {
	Addr               string `mapstructure:"addr" validate:"required,hostname_port"`
	Password           string `mapstructure:"password"`
	Prefix             string `mapstructure:"prefix" validate:"required"`
	LoginAttempts      int    `mapstructure:"login_attempts" validate:"required,gt=0"`
	LoginWindowMinutes int    `mapstructure:"login_window_minutes" validate:"required,gt=0"`
}

// StorageConfig configures the S3-compatible object store for uploads.
// An empty endpoint disables uploads.
type StorageConfig struct {
	Endpoint             string `mapstructure:"endpoint"`
	AccessKey            string `mapstructure:"access_key" validate:"required_with=Endpoint"`
	SecretKey            string `mapstructure:"secret_key" validate:"required_with=Endpoint"`
	Bucket               string `mapstructure:"bucket" validate:"required_with=Endpoint"`
	UseSSL               bool   `mapstructure:"use_ssl"`
	PresignExpiryMinutes int    `mapstructure:"presign_expiry_minutes" validate:"gte=1"`
	MaxUploadMB          int    `mapstructure:"max_upload_mb" validate:"gte=1"`
}

// MailConfig configures the SMTP relay. An empty host logs mail instead of sending it.
type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port" validate:"gte=0,lt=65536"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from" validate:"required,email"`
}

// BillingConfig configures Stripe. An empty secret key disables billing routes.
type BillingConfig struct {
	StripeSecretKey  string `mapstructure:"stripe_secret_key"`
	WebhookSecret    string `mapstructure:"webhook_secret" validate:"required_with=StripeSecretKey"`
	PriceID          string `mapstructure:"price_id" validate:"required_with=StripeSecretKey"`
	SuccessPath      string `mapstructure:"success_path"`
	CancelPath       string `mapstructure:"cancel_path"`
	PortalReturnPath string `mapstructure:"portal_return_path"`
}

// RemindersConfig schedules the daily todo reminder email.
type RemindersConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Cron    string `mapstructure:"cron" validate:"required_if=Enabled true"`
	// Timezone is the IANA zone deciding which todos are due today.
	Timezone string `mapstructure:"timezone" validate:"required,timezone"`
}
