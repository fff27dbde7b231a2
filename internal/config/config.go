package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv        = "STORYBUILDER_CONFIG"
	azureAPIKeyEnv       = "AZURE_API_KEY"
	azureEndpointEnv     = "AZURE_ENDPOINT"
	azureDeploymentEnv   = "AZURE_DEPLOYMENT"
	dalleEndpointEnv     = "DALLE_ENDPOINT"
	dalleAPIKeyEnv       = "DALLE_API_KEY"
	acsEndpointEnv       = "ACS_ENDPOINT"
	acsKeyEnv            = "ACS_KEY"
	speechEndpointEnv    = "SPEECH_ENDPOINT"
	speechKeyEnv         = "SPEECH_KEY"
	awsAccessKeyEnv      = "AWS_ACCESS_KEY"
	awsSecretKeyEnv      = "AWS_SECRET_KEY"
	awsBucketEnv         = "AWS_BUCKET"
	databaseDSNEnv       = "DATABASE_DSN"
	telegramTokenEnv     = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv    = "TELEGRAM_CHAT_ID"
	defaultAPIVersion    = "2024-08-01-preview"
	defaultACSAPIVersion = "2023-10-01"
)

// Config holds every setting required across the application. It is built
// once at startup and passed by reference into component constructors.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Completion    CompletionConfig   `yaml:"completion"`
	ImageGen      ImageGenConfig     `yaml:"imageGen"`
	Moderation    ModerationConfig   `yaml:"moderation"`
	Speech        SpeechConfig       `yaml:"speech"`
	Storage       StorageConfig      `yaml:"storage"`
	Database      DatabaseConfig     `yaml:"database"`
	Notifications NotificationConfig `yaml:"notifications"`
	Input         InputConfig        `yaml:"input"`
	Output        OutputConfig       `yaml:"output"`
	Watch         WatchConfig        `yaml:"watch"`
}

// LoggingConfig controls the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// CompletionConfig defines how to contact the Azure OpenAI chat deployment.
type CompletionConfig struct {
	Endpoint   string `yaml:"endpoint"`
	Deployment string `yaml:"deployment"`
	APIVersion string `yaml:"apiVersion"`
	APIKey     string `yaml:"apiKey"`
}

// ImageGenConfig points at a full images/generations endpoint URL.
type ImageGenConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
	// Backoff is the blocking sleep applied after a rate-limit reply.
	Backoff time.Duration `yaml:"backoff"`
}

// ModerationConfig describes the optional content-safety service. An empty
// endpoint disables the moderation pre-check entirely.
type ModerationConfig struct {
	Endpoint          string `yaml:"endpoint"`
	APIKey            string `yaml:"apiKey"`
	APIVersion        string `yaml:"apiVersion"`
	SeverityThreshold int    `yaml:"severityThreshold"`
}

// Enabled reports whether a moderation endpoint and key are configured.
func (m ModerationConfig) Enabled() bool {
	return m.Endpoint != "" && m.APIKey != ""
}

// SpeechConfig describes the optional text-to-speech service.
type SpeechConfig struct {
	Endpoint     string `yaml:"endpoint"`
	APIKey       string `yaml:"apiKey"`
	DefaultVoice string `yaml:"defaultVoice"`
}

// Enabled reports whether narration should run.
func (s SpeechConfig) Enabled() bool {
	return s.Endpoint != "" && s.APIKey != ""
}

// StorageConfig wires the S3 bucket and the display-URL derivation.
type StorageConfig struct {
	Region      string `yaml:"region"`
	AccessKey   string `yaml:"accessKey"`
	SecretKey   string `yaml:"secretKey"`
	Bucket      string `yaml:"bucket"`
	Prefix      string `yaml:"prefix"`
	DisplayBase string `yaml:"displayBase"`
	// PlaceholderURL substitutes any artifact whose production failed.
	PlaceholderURL string `yaml:"placeholderUrl"`
}

// DatabaseConfig describes the optional Postgres run history.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// InputConfig names the notes image to process in one-shot mode.
type InputConfig struct {
	Ref  string `yaml:"ref"`
	Mime string `yaml:"mime"`
}

// OutputConfig controls where documents and filled templates land.
type OutputConfig struct {
	Dir          string `yaml:"dir"`
	TemplatesDir string `yaml:"templatesDir"`
}

// WatchConfig enables batch mode over an inbox directory.
type WatchConfig struct {
	InboxDir string        `yaml:"inboxDir"`
	Interval time.Duration `yaml:"interval"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(azureAPIKeyEnv); v != "" {
		c.Completion.APIKey = v
	}
	if v := os.Getenv(azureEndpointEnv); v != "" {
		c.Completion.Endpoint = v
	}
	if v := os.Getenv(azureDeploymentEnv); v != "" {
		c.Completion.Deployment = v
	}
	if v := os.Getenv(dalleEndpointEnv); v != "" {
		c.ImageGen.Endpoint = v
	}
	if v := os.Getenv(dalleAPIKeyEnv); v != "" {
		c.ImageGen.APIKey = v
	}
	if v := os.Getenv(acsEndpointEnv); v != "" {
		c.Moderation.Endpoint = v
	}
	if v := os.Getenv(acsKeyEnv); v != "" {
		c.Moderation.APIKey = v
	}
	if v := os.Getenv(speechEndpointEnv); v != "" {
		c.Speech.Endpoint = v
	}
	if v := os.Getenv(speechKeyEnv); v != "" {
		c.Speech.APIKey = v
	}
	if v := os.Getenv(awsAccessKeyEnv); v != "" {
		c.Storage.AccessKey = v
	}
	if v := os.Getenv(awsSecretKeyEnv); v != "" {
		c.Storage.SecretKey = v
	}
	if v := os.Getenv(awsBucketEnv); v != "" {
		c.Storage.Bucket = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Completion.Endpoint != "" {
		base.Completion.Endpoint = override.Completion.Endpoint
	}
	if override.Completion.Deployment != "" {
		base.Completion.Deployment = override.Completion.Deployment
	}
	if override.Completion.APIVersion != "" {
		base.Completion.APIVersion = override.Completion.APIVersion
	}
	if override.Completion.APIKey != "" {
		base.Completion.APIKey = override.Completion.APIKey
	}

	if override.ImageGen.Endpoint != "" {
		base.ImageGen.Endpoint = override.ImageGen.Endpoint
	}
	if override.ImageGen.APIKey != "" {
		base.ImageGen.APIKey = override.ImageGen.APIKey
	}
	if override.ImageGen.Backoff > 0 {
		base.ImageGen.Backoff = override.ImageGen.Backoff
	}

	if override.Moderation.Endpoint != "" {
		base.Moderation.Endpoint = override.Moderation.Endpoint
	}
	if override.Moderation.APIKey != "" {
		base.Moderation.APIKey = override.Moderation.APIKey
	}
	if override.Moderation.APIVersion != "" {
		base.Moderation.APIVersion = override.Moderation.APIVersion
	}
	if override.Moderation.SeverityThreshold > 0 {
		base.Moderation.SeverityThreshold = override.Moderation.SeverityThreshold
	}

	if override.Speech.Endpoint != "" {
		base.Speech.Endpoint = override.Speech.Endpoint
	}
	if override.Speech.APIKey != "" {
		base.Speech.APIKey = override.Speech.APIKey
	}
	if override.Speech.DefaultVoice != "" {
		base.Speech.DefaultVoice = override.Speech.DefaultVoice
	}

	if override.Storage.Region != "" {
		base.Storage.Region = override.Storage.Region
	}
	if override.Storage.AccessKey != "" {
		base.Storage.AccessKey = override.Storage.AccessKey
	}
	if override.Storage.SecretKey != "" {
		base.Storage.SecretKey = override.Storage.SecretKey
	}
	if override.Storage.Bucket != "" {
		base.Storage.Bucket = override.Storage.Bucket
	}
	if override.Storage.Prefix != "" {
		base.Storage.Prefix = override.Storage.Prefix
	}
	if override.Storage.DisplayBase != "" {
		base.Storage.DisplayBase = override.Storage.DisplayBase
	}
	if override.Storage.PlaceholderURL != "" {
		base.Storage.PlaceholderURL = override.Storage.PlaceholderURL
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Input.Ref != "" {
		base.Input = override.Input
	}
	if override.Output.Dir != "" {
		base.Output.Dir = override.Output.Dir
	}
	if override.Output.TemplatesDir != "" {
		base.Output.TemplatesDir = override.Output.TemplatesDir
	}
	if override.Watch.InboxDir != "" {
		base.Watch.InboxDir = override.Watch.InboxDir
	}
	if override.Watch.Interval > 0 {
		base.Watch.Interval = override.Watch.Interval
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Completion: CompletionConfig{
			Deployment: "gpt-4o",
			APIVersion: defaultAPIVersion,
		},
		ImageGen: ImageGenConfig{
			Backoff: 10 * time.Second,
		},
		Moderation: ModerationConfig{
			APIVersion:        defaultACSAPIVersion,
			SeverityThreshold: 2,
		},
		Speech: SpeechConfig{
			DefaultVoice: "en-US-JennyNeural",
		},
		Storage: StorageConfig{
			Region:         "ap-south-1",
			Prefix:         "media",
			DisplayBase:    "https://media.example.com",
			PlaceholderURL: "https://media.example.com/default-error.jpg",
		},
		Output: OutputConfig{Dir: "output"},
		Watch:  WatchConfig{Interval: 30 * time.Second},
	}
}
