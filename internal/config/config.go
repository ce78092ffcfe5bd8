package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"mail-auto-ticketing/internal/credential"
	"mail-auto-ticketing/internal/logging"
	"mail-auto-ticketing/internal/models"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"
)

const (
	DefaultServer       = "imap.gmail.com:993"
	DefaultFolder       = "INBOX"
	DefaultPollInterval = 300 * time.Second
	DefaultTable        = "Ticket Log"
	DefaultSMTPPort     = 587
	DefaultTimeout      = 30 * time.Second
)

// envBindings maps config keys to the environment variables that override them.
// The unprefixed names are the ones the hosted deployment already exports.
var envBindings = map[string][]string{
	"mailbox.server":            {"TICKETING_MAILBOX_SERVER", "IMAP_SERVER"},
	"mailbox.address":           {"TICKETING_MAILBOX_ADDRESS", "EMAIL_ADDRESS"},
	"mailbox.password":          {"TICKETING_MAILBOX_PASSWORD", "EMAIL_APP_PASSWORD"},
	"mailbox.folder":            {"TICKETING_MAILBOX_FOLDER"},
	"mailbox.timeout":           {"TICKETING_MAILBOX_TIMEOUT"},
	"poll.interval":             {"TICKETING_POLL_INTERVAL"},
	"poll.intervalSeconds":      {"POLL_INTERVAL_SECONDS"},
	"ledger.backend":            {"TICKETING_LEDGER_BACKEND"},
	"ledger.sheetId":            {"TICKETING_LEDGER_SHEET_ID", "SHEET_ID"},
	"ledger.table":              {"TICKETING_LEDGER_TABLE", "SHEET_NAME"},
	"ledger.serviceAccountFile": {"TICKETING_LEDGER_SERVICE_ACCOUNT_FILE", "GOOGLE_SERVICE_ACCOUNT_JSON"},
	"ledger.path":               {"TICKETING_LEDGER_PATH"},
	"notify.supportAddress":     {"TICKETING_NOTIFY_SUPPORT_ADDRESS"},
	"notify.gmail.tokenFile":    {"TICKETING_NOTIFY_GMAIL_TOKEN_FILE"},
	"notify.gmail.clientSecret": {"TICKETING_NOTIFY_GMAIL_CLIENT_SECRET_FILE"},
	"notify.sendgrid.apiKey":    {"TICKETING_NOTIFY_SENDGRID_API_KEY", "SENDGRID_API_KEY"},
	"notify.smtp.host":          {"TICKETING_NOTIFY_SMTP_HOST", "SMTP_SERVER"},
	"notify.smtp.port":          {"TICKETING_NOTIFY_SMTP_PORT"},
	"notify.smtp.username":      {"TICKETING_NOTIFY_SMTP_USERNAME"},
	"notify.smtp.password":      {"TICKETING_NOTIFY_SMTP_PASSWORD"},
	"log.level":                 {"TICKETING_LOG_LEVEL"},
	"log.file":                  {"TICKETING_LOG_FILE"},
}

// Load reads the configuration from the specified YAML file, applies environment
// overrides and defaults, and resolves empty secrets from the system keyring.
// A missing file is not an error when the environment provides the settings.
func Load(filepath string) (*models.Config, error) {
	return load(filepath, credential.NewKeyring())
}

func load(filepath string, secrets credential.Source) (*models.Config, error) {
	var config models.Config

	configFile, err := os.ReadFile(filepath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(configFile, &config); err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist):
		logging.Log.Infof("Configuration file %s not found, using environment only", filepath)
	default:
		return nil, err
	}

	if err := applyEnv(&config, newEnv()); err != nil {
		return nil, err
	}
	applyDefaults(&config)
	resolveSecrets(&config, secrets)

	if err := Validate(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

func newEnv() *viper.Viper {
	v := viper.New()
	for key, names := range envBindings {
		_ = v.BindEnv(append([]string{key}, names...)...)
	}
	return v
}

func applyEnv(c *models.Config, v *viper.Viper) error {
	setString(v, "mailbox.server", &c.Mailbox.Server)
	setString(v, "mailbox.address", &c.Mailbox.Address)
	setString(v, "mailbox.password", &c.Mailbox.Password)
	setString(v, "mailbox.folder", &c.Mailbox.Folder)
	setString(v, "ledger.backend", &c.Ledger.Backend)
	setString(v, "ledger.sheetId", &c.Ledger.SheetID)
	setString(v, "ledger.table", &c.Ledger.Table)
	setString(v, "ledger.serviceAccountFile", &c.Ledger.ServiceAccountFile)
	setString(v, "ledger.path", &c.Ledger.Path)
	setString(v, "notify.supportAddress", &c.Notify.SupportAddress)
	setString(v, "notify.gmail.tokenFile", &c.Notify.Gmail.TokenFile)
	setString(v, "notify.gmail.clientSecret", &c.Notify.Gmail.ClientSecretFile)
	setString(v, "notify.sendgrid.apiKey", &c.Notify.SendGrid.APIKey)
	setString(v, "notify.smtp.host", &c.Notify.SMTP.Host)
	setString(v, "notify.smtp.username", &c.Notify.SMTP.Username)
	setString(v, "notify.smtp.password", &c.Notify.SMTP.Password)
	setString(v, "log.level", &c.Log.Level)
	setString(v, "log.file", &c.Log.File)

	if v.IsSet("notify.smtp.port") {
		c.Notify.SMTP.Port = v.GetInt("notify.smtp.port")
	}
	if v.IsSet("mailbox.timeout") {
		c.Mailbox.Timeout = v.GetDuration("mailbox.timeout")
	}
	if v.IsSet("poll.intervalSeconds") {
		secs := v.GetInt("poll.intervalSeconds")
		if secs <= 0 {
			return fmt.Errorf("POLL_INTERVAL_SECONDS must be positive, got %q", v.GetString("poll.intervalSeconds"))
		}
		c.Poll.Interval = time.Duration(secs) * time.Second
	}
	if v.IsSet("poll.interval") {
		c.Poll.Interval = v.GetDuration("poll.interval")
	}
	return nil
}

func setString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		*dst = v.GetString(key)
	}
}

func applyDefaults(c *models.Config) {
	if c.Mailbox.Server == "" {
		c.Mailbox.Server = DefaultServer
	}
	if c.Mailbox.Folder == "" {
		c.Mailbox.Folder = DefaultFolder
	}
	if c.Mailbox.Timeout <= 0 {
		c.Mailbox.Timeout = DefaultTimeout
	}
	if c.Poll.Interval <= 0 {
		c.Poll.Interval = DefaultPollInterval
	}
	if c.Ledger.Backend == "" {
		if c.Ledger.SheetID == "" && c.Ledger.Path != "" {
			c.Ledger.Backend = models.LedgerSQLite
		} else {
			c.Ledger.Backend = models.LedgerSheets
		}
	}
	if c.Ledger.Table == "" {
		c.Ledger.Table = DefaultTable
	}
	if c.Ledger.Timeout <= 0 {
		c.Ledger.Timeout = DefaultTimeout
	}
	if c.Notify.Timeout <= 0 {
		c.Notify.Timeout = DefaultTimeout
	}
	if c.Notify.SupportAddress == "" {
		c.Notify.SupportAddress = c.Mailbox.Address
	}
	if c.Notify.SMTP.Port == 0 {
		c.Notify.SMTP.Port = DefaultSMTPPort
	}
	if c.Notify.SMTP.Username == "" && c.Notify.SMTP.Host != "" {
		c.Notify.SMTP.Username = c.Mailbox.Address
	}
	if c.Notify.SMTP.From == "" {
		c.Notify.SMTP.From = c.Mailbox.Address
	}
	if c.Notify.SendGrid.From == "" {
		c.Notify.SendGrid.From = c.Mailbox.Address
	}
}

func resolveSecrets(c *models.Config, secrets credential.Source) {
	resolve := func(key string, dst *string) {
		v, err := credential.Resolve(secrets, key, *dst)
		if err != nil {
			logging.Log.WithError(err).Warnf("Keyring lookup for %s failed", key)
			return
		}
		*dst = v
	}

	resolve(credential.KeyMailboxPassword, &c.Mailbox.Password)
	resolve(credential.KeySendGridAPIKey, &c.Notify.SendGrid.APIKey)
	if c.Notify.SMTP.Host != "" {
		resolve(credential.KeySMTPPassword, &c.Notify.SMTP.Password)
		// The relay usually shares the mailbox app password.
		if c.Notify.SMTP.Password == "" && c.Notify.SMTP.Username == c.Mailbox.Address {
			c.Notify.SMTP.Password = c.Mailbox.Password
		}
	}
}

// Validate checks that the settings the pipeline cannot run without are present
func Validate(c *models.Config) error {
	var errs []error
	if c.Mailbox.Address == "" {
		errs = append(errs, errors.New("mailbox address is required"))
	}
	if c.Mailbox.Password == "" {
		errs = append(errs, errors.New("mailbox password is required"))
	}

	switch c.Ledger.Backend {
	case models.LedgerSheets:
		if c.Ledger.SheetID == "" {
			errs = append(errs, errors.New("ledger sheetId is required for the sheets backend"))
		}
		if c.Ledger.ServiceAccountFile == "" {
			errs = append(errs, errors.New("ledger serviceAccountFile is required for the sheets backend"))
		}
	case models.LedgerSQLite:
		if c.Ledger.Path == "" {
			errs = append(errs, errors.New("ledger path is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ledger backend %q", c.Ledger.Backend))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
