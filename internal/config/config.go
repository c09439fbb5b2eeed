package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"BacklinkOutreach/internal/domain"
)

const (
	configPathEnv     = "OUTREACH_CONFIG"
	dataDirEnv        = "SEO_DATA_DIR"
	dailyLimitEnv     = "OUTREACH_DAILY_LIMIT"
	dryRunEnv         = "OUTREACH_DRY_RUN"
	senderNameEnv     = "OUTREACH_SENDER_NAME"
	companyNameEnv    = "OUTREACH_COMPANY_NAME"
	recordPolicyEnv   = "OUTREACH_RECORD_POLICY"
	ledgerDriverEnv   = "OUTREACH_LEDGER_DRIVER"
	ledgerDSNEnv      = "OUTREACH_LEDGER_DSN"
	feedProviderEnv   = "OUTREACH_FEED_PROVIDER"
	senderProviderEnv = "OUTREACH_SENDER_PROVIDER"
	webhookURLEnv     = "OUTREACH_WEBHOOK_URL"
	webhookTokenEnv   = "OUTREACH_WEBHOOK_TOKEN"
	fromAddressEnv    = "OUTREACH_FROM_ADDRESS"
	logLevelEnv       = "LOG_LEVEL"
)

// Ledger drivers.
const (
	LedgerJSON     = "json"
	LedgerSQLite   = "sqlite"
	LedgerPostgres = "postgres"
	LedgerRedis    = "redis"
)

// Feed providers.
const (
	FeedDirectory = "directory"
	FeedHTTP      = "http"
)

// Sender providers.
const (
	SenderLog     = "log"
	SenderOutbox  = "outbox"
	SenderWebhook = "webhook"
)

// Config is built once by the entry point and passed to every component.
type Config struct {
	Storage   StorageConfig   `yaml:"storage"`
	Outreach  OutreachConfig  `yaml:"outreach"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Feed      FeedConfig      `yaml:"feed"`
	Sender    SenderConfig    `yaml:"sender"`
	Transport TransportConfig `yaml:"transport"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// StorageConfig locates every artifact the tool reads or writes.
type StorageConfig struct {
	Root    string        `yaml:"root"`
	LockTTL time.Duration `yaml:"lockTTL"`
}

// OutreachConfig holds campaign limits and the sender persona.
type OutreachConfig struct {
	DailyLimit    int                 `yaml:"dailyLimit"`
	DryRun        bool                `yaml:"dryRun"`
	SenderName    string              `yaml:"senderName"`
	CompanyName   string              `yaml:"companyName"`
	RecordPolicy  domain.RecordPolicy `yaml:"recordPolicy"`
	CourtesyDelay time.Duration       `yaml:"courtesyDelay"`
}

// Identity returns the persona used by the composer.
func (o OutreachConfig) Identity() domain.Identity {
	return domain.Identity{SenderName: o.SenderName, CompanyName: o.CompanyName}
}

// LedgerConfig picks the consent and send ledger backend.
type LedgerConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// FeedConfig picks where opportunities come from.
type FeedConfig struct {
	Provider string   `yaml:"provider"`
	FileName string   `yaml:"fileName"`
	Sources  []string `yaml:"sources"`
}

// SenderConfig picks the delivery transport used in send mode.
type SenderConfig struct {
	Provider    string `yaml:"provider"`
	WebhookURL  string `yaml:"webhookUrl"`
	APIKey      string `yaml:"apiKey"`
	FromAddress string `yaml:"fromAddress"`
}

// TransportConfig tunes the shared retrying HTTP client.
type TransportConfig struct {
	MaxAttempts int           `yaml:"maxAttempts"`
	BaseDelay   time.Duration `yaml:"baseDelay"`
	Timeout     time.Duration `yaml:"timeout"`
}

// MetricsConfig toggles the per-day Prometheus textfile.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig sets the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads an optional .env file, the YAML file at path (or $OUTREACH_CONFIG)
// decoded over the defaults, and finally environment overrides.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, &domain.ConfigError{Field: path, Reason: err.Error()}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv(dataDirEnv); v != "" {
		c.Storage.Root = v
	}

	if v := os.Getenv(dailyLimitEnv); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return &domain.ConfigError{Field: dailyLimitEnv, Reason: fmt.Sprintf("not an integer: %q", v)}
		}
		c.Outreach.DailyLimit = n
	}

	if v, ok := os.LookupEnv(dryRunEnv); ok {
		c.Outreach.DryRun = !strings.EqualFold(strings.TrimSpace(v), "false")
	}

	if v := os.Getenv(senderNameEnv); v != "" {
		c.Outreach.SenderName = v
	}
	if v := os.Getenv(companyNameEnv); v != "" {
		c.Outreach.CompanyName = v
	}
	if v := os.Getenv(recordPolicyEnv); v != "" {
		c.Outreach.RecordPolicy = domain.RecordPolicy(strings.ToLower(strings.TrimSpace(v)))
	}

	if v := os.Getenv(ledgerDriverEnv); v != "" {
		c.Ledger.Driver = v
	}
	if v := os.Getenv(ledgerDSNEnv); v != "" {
		c.Ledger.DSN = v
	}

	if v := os.Getenv(feedProviderEnv); v != "" {
		c.Feed.Provider = v
	}

	if v := os.Getenv(senderProviderEnv); v != "" {
		c.Sender.Provider = v
	}
	if v := os.Getenv(webhookURLEnv); v != "" {
		c.Sender.WebhookURL = v
	}
	if v := os.Getenv(webhookTokenEnv); v != "" {
		c.Sender.APIKey = v
	}
	if v := os.Getenv(fromAddressEnv); v != "" {
		c.Sender.FromAddress = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	return nil
}

// Validate checks the values the given mode depends on. Review only needs storage.
func (c Config) Validate(mode domain.Mode) error {
	if strings.TrimSpace(c.Storage.Root) == "" {
		return &domain.ConfigError{Field: "storage.root", Reason: "must not be empty"}
	}
	if c.Outreach.DailyLimit < 1 {
		return &domain.ConfigError{Field: "outreach.dailyLimit", Reason: fmt.Sprintf("must be positive, got %d", c.Outreach.DailyLimit)}
	}
	if !c.Outreach.RecordPolicy.Valid() {
		return &domain.ConfigError{Field: "outreach.recordPolicy", Reason: fmt.Sprintf("unknown policy %q", c.Outreach.RecordPolicy)}
	}

	switch c.Ledger.Driver {
	case LedgerJSON, LedgerSQLite:
	case LedgerPostgres, LedgerRedis:
		if c.Ledger.DSN == "" {
			return &domain.ConfigError{Field: "ledger.dsn", Reason: "required for driver " + c.Ledger.Driver}
		}
	default:
		return &domain.ConfigError{Field: "ledger.driver", Reason: fmt.Sprintf("unknown driver %q", c.Ledger.Driver)}
	}

	if !mode.Generates() {
		return nil
	}

	if strings.TrimSpace(c.Outreach.SenderName) == "" {
		return &domain.ConfigError{Field: "outreach.senderName", Reason: "required (" + senderNameEnv + ")"}
	}
	if strings.TrimSpace(c.Outreach.CompanyName) == "" {
		return &domain.ConfigError{Field: "outreach.companyName", Reason: "required (" + companyNameEnv + ")"}
	}

	switch c.Feed.Provider {
	case FeedDirectory:
		if c.Feed.FileName == "" {
			return &domain.ConfigError{Field: "feed.fileName", Reason: "must not be empty"}
		}
	case FeedHTTP:
		if len(c.Feed.Sources) == 0 {
			return &domain.ConfigError{Field: "feed.sources", Reason: "http provider needs at least one source"}
		}
	default:
		return &domain.ConfigError{Field: "feed.provider", Reason: fmt.Sprintf("unknown provider %q", c.Feed.Provider)}
	}

	switch c.Sender.Provider {
	case SenderLog, SenderOutbox:
	case SenderWebhook:
		if c.Sender.WebhookURL == "" {
			return &domain.ConfigError{Field: "sender.webhookUrl", Reason: "required for webhook provider"}
		}
	default:
		return &domain.ConfigError{Field: "sender.provider", Reason: fmt.Sprintf("unknown provider %q", c.Sender.Provider)}
	}

	if c.Transport.MaxAttempts < 1 {
		return &domain.ConfigError{Field: "transport.maxAttempts", Reason: "must be at least 1"}
	}

	return nil
}

// LedgerDSN resolves the sqlite default location under the storage root.
func (c Config) LedgerDSN() string {
	if c.Ledger.DSN == "" && c.Ledger.Driver == LedgerSQLite {
		return filepath.Join(c.Storage.Root, "outreach-ledger.db")
	}
	return c.Ledger.DSN
}

func defaultConfig() Config {
	return Config{
		Storage: StorageConfig{Root: "data/seo", LockTTL: time.Hour},
		Outreach: OutreachConfig{
			DailyLimit:    25,
			DryRun:        true,
			RecordPolicy:  domain.RecordConfirmed,
			CourtesyDelay: time.Second,
		},
		Ledger:    LedgerConfig{Driver: LedgerJSON},
		Feed:      FeedConfig{Provider: FeedDirectory, FileName: "backlinks.json"},
		Sender:    SenderConfig{Provider: SenderLog},
		Transport: TransportConfig{MaxAttempts: 3, BaseDelay: time.Second, Timeout: 20 * time.Second},
		Metrics:   MetricsConfig{Enabled: true},
		Logging:   LoggingConfig{Level: "info"},
	}
}
