package models

import "time"

// Config represents the application configuration
type Config struct {
	Mailbox MailboxConfig `yaml:"mailbox"`
	Poll    PollConfig    `yaml:"poll"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	Notify  NotifyConfig  `yaml:"notify"`
	Log     LogConfig     `yaml:"log"`
}

// MailboxConfig represents IMAP mailbox configuration
type MailboxConfig struct {
	Server   string        `yaml:"server"`
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	Folder   string        `yaml:"folder"`
	Timeout  time.Duration `yaml:"timeout"`
}

// PollConfig controls the polling loop
type PollConfig struct {
	Interval       time.Duration `yaml:"interval"`
	FailureBackoff *bool         `yaml:"failureBackoff"`
}

// BackoffEnabled reports whether repeated connection failures stretch the sleep
func (p PollConfig) BackoffEnabled() bool {
	return p.FailureBackoff == nil || *p.FailureBackoff
}

// Ledger backends
const (
	LedgerSheets = "sheets"
	LedgerSQLite = "sqlite"
)

// LedgerConfig selects and configures the ticket ledger
type LedgerConfig struct {
	Backend            string        `yaml:"backend"`
	SheetID            string        `yaml:"sheetId"`
	Table              string        `yaml:"table"`
	ServiceAccountFile string        `yaml:"serviceAccountFile"`
	Path               string        `yaml:"path"`
	Timeout            time.Duration `yaml:"timeout"`
}

// NotifyConfig holds the configuration of every confirmation channel
type NotifyConfig struct {
	SupportAddress string         `yaml:"supportAddress"`
	Timeout        time.Duration  `yaml:"timeout"`
	Gmail          GmailConfig    `yaml:"gmail"`
	SendGrid       SendGridConfig `yaml:"sendgrid"`
	SMTP           SMTPConfig     `yaml:"smtp"`
}

// GmailConfig configures the Gmail API channel
type GmailConfig struct {
	TokenFile        string `yaml:"tokenFile"`
	ClientSecretFile string `yaml:"clientSecretFile"`
}

// SendGridConfig configures the SendGrid API channel
type SendGridConfig struct {
	APIKey   string `yaml:"apiKey"`
	Host     string `yaml:"host"`
	From     string `yaml:"from"`
}

// SMTPConfig configures the authenticated SMTP relay channel
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// LogConfig configures the logger
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}
