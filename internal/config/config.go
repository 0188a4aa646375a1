package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// SourcesConfig points at the two static documents. Each value is either a
// local file path or an http(s) URL.
type SourcesConfig struct {
	Games   string `yaml:"games" json:"games" validate:"required"`
	Updates string `yaml:"updates" json:"updates" validate:"required"`
}

// ColorsConfig holds the event colors per type, plus the end-milestone color.
type ColorsConfig struct {
	Update    string `yaml:"update" json:"update" validate:"hexcolor"`
	Broadcast string `yaml:"broadcast" json:"broadcast" validate:"hexcolor"`
	Release   string `yaml:"release" json:"release" validate:"hexcolor"`
	End       string `yaml:"end" json:"end" validate:"hexcolor"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// LogConfig controls log level and the optional rotating log file.
type LogConfig struct {
	Level      string `yaml:"level" json:"level" validate:"oneof=debug info warn error"`
	File       string `yaml:"file" json:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" json:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" json:"max_age_days" validate:"gte=0"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen" validate:"required,hostname_port"`

	// Timezone is the IANA timezone used for date-only values and the
	// rolling date window (e.g. "Asia/Seoul").
	Timezone string `yaml:"timezone" json:"timezone" validate:"required"`

	Sources SourcesConfig `yaml:"sources" json:"sources"`

	// RefreshCron reloads both documents on a cron schedule
	// (e.g. "*/30 * * * *"). Empty disables scheduled reloads.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// WatchFiles reloads local documents when they change on disk.
	// Omitted means true; set it to false explicitly to turn watching off.
	WatchFiles *bool `yaml:"watch_files" json:"watch_files"`

	// WindowMonths is how far back regular updates stay visible.
	WindowMonths int `yaml:"window_months" json:"window_months" validate:"gte=1,lte=120"`

	// Tidy strips price placeholders and drops duplicate updates on load.
	Tidy bool `yaml:"tidy" json:"tidy"`

	// EventLimit caps visible events per day in the page ("more" link).
	// 0 disables the cap.
	EventLimit int `yaml:"event_limit" json:"event_limit" validate:"gte=0"`

	// Subculture lists game ids shown in the first filter group, in order.
	Subculture []string `yaml:"subculture" json:"subculture"`

	// Priority is the display order used when sorting events within a day.
	// The pseudo ids "switch" and "steam" rank console entries.
	Priority []string `yaml:"priority" json:"priority"`

	Colors ColorsConfig `yaml:"colors" json:"colors"`

	Log LogConfig `yaml:"log" json:"log"`

	// CORSOrigins lists origins allowed to read the JSON and ICS endpoints
	// from a browser. Empty disables CORS headers.
	CORSOrigins []string `yaml:"cors_origins" json:"cors_origins" validate:"dive,required"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

var defaultSubculture = []string{"nikke", "ww", "genshin", "star_rail", "zzz"}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:   "127.0.0.1:8080",
		Timezone: "Asia/Seoul",
		Sources: SourcesConfig{
			Games:   "data/games.json",
			Updates: "data/updates.json",
		},
		RefreshCron:  "",
		WatchFiles:   boolPtr(true),
		WindowMonths: 3,
		EventLimit:   10,
		Subculture:   append([]string(nil), defaultSubculture...),
		Priority:     append(append([]string(nil), defaultSubculture...), "switch", "steam"),
		Colors: ColorsConfig{
			Update:    "#0d6efd",
			Broadcast: "#ffc107",
			Release:   "#198754",
			End:       "#dc3545",
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.Sources.Games == "" {
		c.Sources.Games = def.Sources.Games
	}
	if c.Sources.Updates == "" {
		c.Sources.Updates = def.Sources.Updates
	}
	c.RefreshCron = strings.TrimSpace(c.RefreshCron)
	if c.WatchFiles == nil {
		c.WatchFiles = def.WatchFiles
	}
	if c.WindowMonths <= 0 {
		c.WindowMonths = def.WindowMonths
	}
	if c.EventLimit < 0 {
		c.EventLimit = 0
	}
	if c.Subculture == nil {
		c.Subculture = def.Subculture
	}
	if c.Priority == nil {
		c.Priority = def.Priority
	}
	if c.Colors.Update == "" {
		c.Colors.Update = def.Colors.Update
	}
	if c.Colors.Broadcast == "" {
		c.Colors.Broadcast = def.Colors.Broadcast
	}
	if c.Colors.Release == "" {
		c.Colors.Release = def.Colors.Release
	}
	if c.Colors.End == "" {
		c.Colors.End = def.Colors.End
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = def.Log.MaxSizeMB
	}
	// 빈 사용자명/비밀번호는 인증 비활성화로 취급한다.
	if c.BasicAuth != nil && (c.BasicAuth.Username == "" || c.BasicAuth.Password == "") {
		c.BasicAuth = nil
	}
}

// Watching reports whether local sources should be watched for changes.
func (c *Config) Watching() bool {
	return c.WatchFiles == nil || *c.WatchFiles
}

func boolPtr(b bool) *bool { return &b }

var validate = validator.New()

// Validate checks field constraints after Normalize.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("config: %s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is decoded, normalized and validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename, 0600).
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".gamecal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
