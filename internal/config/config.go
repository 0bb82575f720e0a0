package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Supported database adapters. Rails-style aliases are accepted by NormalizeAdapter.
const (
	AdapterMySQL    = "mysql"
	AdapterPostgres = "postgres"
	AdapterSQLite   = "sqlite3"
)

const defaultContentDir = "content"

type Settings struct {
	Adapter      string `env:"DB_ADAPTER"    envDefault:"mysql"`
	Host         string `env:"DB_HOST"       envDefault:"localhost"`
	Database     string `env:"DB_NAME"       envDefault:"mephisto"`
	Username     string `env:"DB_USERNAME"`
	Password     string `env:"DB_PASSWORD"`
	Domain       string `env:"ATOM_DOMAIN"`
	NestaConfig  string `env:"NESTA_CONFIG"  envDefault:"config/config.yml"`
	ContentDir   string `env:"CONTENT_DIR"`
	ArticlePath  string `env:"ARTICLE_PATH"`
	CommentPath  string `env:"COMMENT_PATH"`
	CategoryPath string `env:"CATEGORY_PATH"`
	LogLevel     string `env:"LOG_LEVEL"     envDefault:"INFO"`
}

// nestaConfig is the subset of a Nesta config.yml the importer reads.
type nestaConfig struct {
	Content string `yaml:"content"`
}

func LoadSettings() (*Settings, error) {
	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			slog.Warn("Error loading .env file", "error", err)
		}
	}

	cfg := Settings{}
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ContentRoot returns the directory content is exported into. An explicit
// ContentDir wins, then the "content" key of the Nesta config file, then
// "content".
func (s *Settings) ContentRoot() (string, error) {
	if s.ContentDir != "" {
		return s.ContentDir, nil
	}
	if s.NestaConfig == "" {
		return defaultContentDir, nil
	}

	raw, err := os.ReadFile(s.NestaConfig)
	if errors.Is(err, os.ErrNotExist) {
		return defaultContentDir, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read nesta config: %w", err)
	}

	var nc nestaConfig
	if err := yaml.Unmarshal(raw, &nc); err != nil {
		return "", fmt.Errorf("failed to parse nesta config %s: %w", s.NestaConfig, err)
	}
	if nc.Content == "" {
		return defaultContentDir, nil
	}
	slog.Debug("Using content directory from nesta config", "config", s.NestaConfig, "content", nc.Content)
	return nc.Content, nil
}

// ExportDirs returns the article, comment and category directories below root,
// honouring any explicit overrides.
func (s *Settings) ExportDirs(root string) (articles, comments, categories string) {
	articles = s.ArticlePath
	if articles == "" {
		articles = filepath.Join(root, "articles")
	}
	comments = s.CommentPath
	if comments == "" {
		comments = filepath.Join(root, "comments")
	}
	categories = s.CategoryPath
	if categories == "" {
		categories = filepath.Join(root, "categories")
	}
	return articles, comments, categories
}

// NormalizeAdapter maps adapter names as they appear in Rails database.yml
// files onto the adapters the importer can open.
func NormalizeAdapter(adapter string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(adapter)) {
	case "mysql", "mysql2":
		return AdapterMySQL, nil
	case "postgres", "postgresql", "pg":
		return AdapterPostgres, nil
	case "sqlite", "sqlite3":
		return AdapterSQLite, nil
	default:
		return "", fmt.Errorf("unsupported adapter %q", adapter)
	}
}

// DSN builds the driver connection string for the configured adapter.
func (s *Settings) DSN() (string, error) {
	adapter, err := NormalizeAdapter(s.Adapter)
	if err != nil {
		return "", err
	}

	switch adapter {
	case AdapterMySQL:
		mc := mysql.NewConfig()
		mc.User = s.Username
		mc.Passwd = s.Password
		mc.DBName = s.Database
		mc.ParseTime = true
		mc.Loc = time.UTC
		if strings.HasPrefix(s.Host, "/") {
			mc.Net = "unix"
			mc.Addr = s.Host
		} else {
			mc.Net = "tcp"
			mc.Addr = withDefaultPort(s.Host, "3306")
		}
		return mc.FormatDSN(), nil
	case AdapterPostgres:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(s.Username, s.Password),
			Host:     withDefaultPort(s.Host, "5432"),
			Path:     "/" + s.Database,
			RawQuery: "sslmode=disable",
		}
		return u.String(), nil
	default:
		return s.Database, nil
	}
}

func withDefaultPort(host, port string) string {
	if host == "" {
		host = "localhost"
	}
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, port)
}

// ParseLogLevel maps LOG_LEVEL values onto slog levels. Unknown values fall
// back to info and report false.
func ParseLogLevel(level string) (slog.Level, bool) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
