package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"
)

// EnvPrefix: префикс переменных окружения.
const EnvPrefix = "SCOUTADMIN_"

type Config struct {
	Port           string   `json:"port" env:"PORT"`
	BackendURL     string   `json:"backendUrl" env:"BACKEND_URL"`
	BackendTimeout Duration `json:"backendTimeout" env:"BACKEND_TIMEOUT"`
	TemplatesDir   string   `json:"templatesDir" env:"TEMPLATES_DIR"` // пусто: встроенный каталог
	DBURL          string   `json:"dbUrl" env:"DB_URL"`               // пусто: сессии в памяти
	AutoMigrate    bool     `json:"autoMigrate" env:"AUTO_MIGRATE"`

	// локальный кэш выгрузок
	FilesRoot string `json:"filesRoot" env:"FILES_ROOT"`

	LogLevel     string   `json:"logLevel" env:"LOG_LEVEL"`
	SessionTTL   Duration `json:"sessionTtl" env:"SESSION_TTL"`
	DefaultLang  string   `json:"defaultLang" env:"DEFAULT_LANG"`
	CookieSecure bool     `json:"cookieSecure" env:"COOKIE_SECURE"`
}

func def() Config {
	return Config{
		Port:           "8080",
		BackendURL:     "http://localhost:8081/api",
		BackendTimeout: Duration{15 * time.Second},
		FilesRoot:      "exports",
		LogLevel:       "info",
		SessionTTL:     Duration{30 * time.Minute},
		DefaultLang:    "sv",
	}
}

// Default: значения без файла, окружения и флагов.
func Default() Config { return def() }

func loadJSON(path string, c *Config) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, c); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

// LoadWithPath: значения по умолчанию, затем JSON (если файл существует), затем ENV.
// Флаги накладываются отдельно через Flags.Apply.
func LoadWithPath(jsonPath string) (Config, error) {
	cfg := def()

	if jsonPath != "" {
		if st, err := os.Stat(jsonPath); err == nil && !st.IsDir() {
			if err := loadJSON(jsonPath, &cfg); err != nil {
				return cfg, err
			}
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("config env: %w", err)
	}
	return cfg, nil
}

// Validate проверяет то, без чего сервер не стартует.
func (c Config) Validate() error {
	var problems []string
	if p, err := strconv.Atoi(strings.TrimSpace(c.Port)); err != nil || p <= 0 || p > 65535 {
		problems = append(problems, fmt.Sprintf("port %q is not a valid TCP port", c.Port))
	}
	if u, err := url.Parse(c.BackendURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		problems = append(problems, fmt.Sprintf("backendUrl %q must be an http(s) URL", c.BackendURL))
	}
	if c.BackendTimeout.Duration <= 0 {
		problems = append(problems, "backendTimeout must be positive")
	}
	if c.SessionTTL.Duration <= 0 {
		problems = append(problems, "sessionTtl must be positive")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("logLevel %q is unknown", c.LogLevel))
	}
	if strings.TrimSpace(c.FilesRoot) == "" {
		problems = append(problems, "filesRoot is required")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Duration читается из "15s" в JSON и ENV, а также из числа секунд в JSON.
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return d.UnmarshalText([]byte(s))
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("duration: expected string or seconds, got %s", b)
	}
	d.Duration = time.Duration(secs * float64(time.Second))
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) { return json.Marshal(d.String()) }

// Flags: флаги командной строки поверх загруженной конфигурации.
type Flags struct {
	ConfigPath string
	shadow     Config
}

// BindFlags регистрирует флаги. Значения по умолчанию у флагов: встроенные,
// переопределяют конфигурацию только явно заданные флаги.
func BindFlags(fs *pflag.FlagSet, defaultPath string) *Flags {
	f := &Flags{ConfigPath: defaultPath, shadow: def()}
	s := &f.shadow
	fs.StringVar(&f.ConfigPath, "config", defaultPath, "Path to config JSON")
	fs.StringVar(&s.Port, "port", s.Port, "HTTP port")
	fs.StringVar(&s.BackendURL, "backend-url", s.BackendURL, "Registration backend base URL")
	fs.DurationVar(&s.BackendTimeout.Duration, "backend-timeout", s.BackendTimeout.Duration, "Backend request timeout")
	fs.StringVar(&s.TemplatesDir, "templates", s.TemplatesDir, "Field template directory (empty = embedded)")
	fs.StringVar(&s.DBURL, "db", s.DBURL, "Postgres URL for sessions (empty = in-memory)")
	fs.BoolVar(&s.AutoMigrate, "auto-migrate", s.AutoMigrate, "Create session tables on start")
	fs.StringVar(&s.FilesRoot, "files-root", s.FilesRoot, "Export cache directory")
	fs.StringVar(&s.LogLevel, "log-level", s.LogLevel, "Log level (debug/info/warn/error)")
	fs.DurationVar(&s.SessionTTL.Duration, "session-ttl", s.SessionTTL.Duration, "Console session idle timeout")
	fs.StringVar(&s.DefaultLang, "lang", s.DefaultLang, "Default message language (sv/en)")
	fs.BoolVar(&s.CookieSecure, "cookie-secure", s.CookieSecure, "Mark cookies Secure")
	return f
}

// Apply переносит в cfg только флаги, заданные в командной строке.
func (f *Flags) Apply(fs *pflag.FlagSet, cfg *Config) {
	s := f.shadow
	fs.Visit(func(fl *pflag.Flag) {
		switch fl.Name {
		case "port":
			cfg.Port = strings.TrimSpace(s.Port)
		case "backend-url":
			cfg.BackendURL = strings.TrimSpace(s.BackendURL)
		case "backend-timeout":
			cfg.BackendTimeout = s.BackendTimeout
		case "templates":
			cfg.TemplatesDir = strings.TrimSpace(s.TemplatesDir)
		case "db":
			cfg.DBURL = strings.TrimSpace(s.DBURL)
		case "auto-migrate":
			cfg.AutoMigrate = s.AutoMigrate
		case "files-root":
			cfg.FilesRoot = strings.TrimSpace(s.FilesRoot)
		case "log-level":
			cfg.LogLevel = strings.TrimSpace(s.LogLevel)
		case "session-ttl":
			cfg.SessionTTL = s.SessionTTL
		case "lang":
			cfg.DefaultLang = strings.TrimSpace(s.DefaultLang)
		case "cookie-secure":
			cfg.CookieSecure = s.CookieSecure
		}
	})
}

// Load применяет полный порядок: умолчания, JSON из --config, ENV, флаги.
func (f *Flags) Load(fs *pflag.FlagSet) (Config, error) {
	cfg, err := LoadWithPath(f.ConfigPath)
	if err != nil {
		return cfg, err
	}
	f.Apply(fs, &cfg)
	return cfg, cfg.Validate()
}
