package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Ingestion IngestionConfig `mapstructure:"ingestion"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Server    ServerConfig    `mapstructure:"server"`
	Mail      MailConfig      `mapstructure:"mail"`
	Sheets    SheetsConfig    `mapstructure:"sheets"`
	Log       LogConfig       `mapstructure:"log"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`     // database holding students_grade
	AdminDB  string `mapstructure:"admin_db"` // database used for CREATE/DROP DATABASE
	SSLMode  string `mapstructure:"sslmode"`
}

// IngestionConfig holds statistics API settings
type IngestionConfig struct {
	APIEndpoint string        `mapstructure:"api_endpoint"`
	Timeout     time.Duration `mapstructure:"timeout"` // 0 disables the client timeout
	Client      string        `mapstructure:"client"`
	ClientKey   string        `mapstructure:"client_key"`
}

// ArchiveConfig selects where raw API batches and ingestion status are kept
type ArchiveConfig struct {
	Type          string `mapstructure:"type"` // "none", "dynamodb", "mongodb"
	Region        string `mapstructure:"region"`
	TableName     string `mapstructure:"table_name"`
	Endpoint      string `mapstructure:"endpoint"` // Custom endpoint for local testing
	MongoDBURI    string `mapstructure:"mongodb_uri"`
	MongoDatabase string `mapstructure:"mongodb_database"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// MailConfig holds report delivery settings for email
type MailConfig struct {
	Transport string `mapstructure:"transport"` // "smtp" or "ses"
	From      string `mapstructure:"from"`
	Password  string `mapstructure:"password"`
	SMTPHost  string `mapstructure:"smtp_host"`
	SMTPPort  int    `mapstructure:"smtp_port"`
	Region    string `mapstructure:"region"`
}

// SheetsConfig holds Google Sheets settings
type SheetsConfig struct {
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	CredentialsFile string `mapstructure:"credentials_file"`
	Range           string `mapstructure:"range"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level     string        `mapstructure:"level"`
	Dir       string        `mapstructure:"dir"`
	Retention time.Duration `mapstructure:"retention"`
}

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string]string{
	"database.host":            "DB_HOST",
	"database.port":            "DB_PORT",
	"database.user":            "DB_USER",
	"database.password":        "DB_PASSWORD",
	"database.name":            "DB_NAME",
	"database.admin_db":        "DB_ADMIN_NAME",
	"database.sslmode":         "DB_SSLMODE",
	"ingestion.api_endpoint":   "API_ENDPOINT",
	"ingestion.timeout":        "API_TIMEOUT",
	"ingestion.client":         "CLIENT",
	"ingestion.client_key":     "CLIENT_KEY",
	"archive.type":             "ARCHIVE_TYPE",
	"archive.region":           "AWS_REGION",
	"archive.table_name":       "TABLE_NAME",
	"archive.endpoint":         "DYNAMODB_ENDPOINT",
	"archive.mongodb_uri":      "MONGODB_URI",
	"archive.mongodb_database": "MONGODB_DATABASE",
	"server.port":              "SERVER_PORT",
	"mail.transport":           "MAIL_TRANSPORT",
	"mail.from":                "EMAIL_ADDRESS",
	"mail.password":            "EMAIL_PASSWORD",
	"mail.smtp_host":           "SMTP_HOST",
	"mail.smtp_port":           "SMTP_PORT",
	"mail.region":              "AWS_REGION",
	"sheets.spreadsheet_id":    "SPREADSHEET_ID",
	"sheets.credentials_file":  "GOOGLE_CREDENTIALS",
	"sheets.range":             "SHEET_RANGE",
	"log.level":                "LOG_LEVEL",
	"log.dir":                  "LOG_DIR",
	"log.retention":            "LOG_RETENTION",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "simulative")
	v.SetDefault("database.admin_db", "postgres")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("ingestion.api_endpoint", "https://b2b.itresume.ru/api/statistics")
	v.SetDefault("ingestion.timeout", time.Duration(0))
	v.SetDefault("ingestion.client", "")
	v.SetDefault("ingestion.client_key", "")

	v.SetDefault("archive.type", "none")
	v.SetDefault("archive.region", "us-west-2")
	v.SetDefault("archive.table_name", "students_grade_raw")
	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.mongodb_uri", "")
	v.SetDefault("archive.mongodb_database", "simulative")

	v.SetDefault("server.port", 8080)

	v.SetDefault("mail.transport", "smtp")
	v.SetDefault("mail.from", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.smtp_host", "smtp.mail.ru")
	v.SetDefault("mail.smtp_port", 465)
	v.SetDefault("mail.region", "us-west-2")

	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.credentials_file", "credentials.json")
	v.SetDefault("sheets.range", "A1:B3")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.dir", "logs")
	v.SetDefault("log.retention", 72*time.Hour)
}

// Load loads configuration from a .env file (if present) and environment
// variables, falling back to defaults.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path. A missing file is not an error.
func LoadFile(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s: %w", env, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		return fmt.Errorf("invalid database port %d", cfg.Database.Port)
	}
	if cfg.Database.Name == "" {
		return fmt.Errorf("database name must not be empty")
	}
	switch cfg.Archive.Type {
	case "none", "dynamodb", "mongodb":
	default:
		return fmt.Errorf("unsupported archive type: %s", cfg.Archive.Type)
	}
	switch cfg.Mail.Transport {
	case "smtp", "ses":
	default:
		return fmt.Errorf("unsupported mail transport: %s", cfg.Mail.Transport)
	}
	if cfg.Ingestion.Timeout < 0 {
		return fmt.Errorf("api timeout must not be negative")
	}
	return nil
}
