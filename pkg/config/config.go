// pkg/config/config.go
//
// Package config persists the settings of the download job in a YAML file
// read through viper. Every read goes back to the file, so edits made while
// the daemon runs are picked up by the next cycle.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/jeepinbird/autoftp/pkg/remote"
)

// DefaultPath is used when no --config flag is given.
const DefaultPath = "/etc/autoftp/autoftp.conf"

// PasswordEnv overrides host.password without being written to the file.
const PasswordEnv = "AUTOFTP_HOST_PASSWORD"

// DefaultInterval is the scan interval when none is configured.
const DefaultInterval = 15 * time.Minute

// Keys of the configuration file.
const (
	KeyHostName          = "host.name"
	KeyHostUser          = "host.user"
	KeyHostPassword      = "host.password"
	KeyHostPort          = "host.port"
	KeyHostType          = "host.type"
	KeyHostFileDir       = "host.file-dir"
	KeyHostTimeout       = "host.timeout"
	KeyHostKeyFile       = "host.key-file"
	KeyHostKnownHosts    = "host.known-hosts"
	KeyHostRegion        = "host.region"
	KeyDownloadDir       = "download-dir"
	KeyFilters           = "filters.expression"
	KeyExcludes          = "filters.exclude"
	KeyLastRun           = "last-run"
	KeyInterval          = "interval"
	KeyMoveEnabled       = "move.enabled"
	KeyMoveDirectory     = "move.directory"
	KeyPushbulletKey     = "pushbullet.api.key"
	KeyPushbulletEnabled = "pushbullet.notify.enabled"
)

var (
	// ErrInvalidConfig wraps every problem found while loading settings.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrUnknownKey is returned by Set for keys outside the list above.
	ErrUnknownKey = errors.New("unknown configuration key")
)

// Move relocates finished downloads.
type Move struct {
	Enabled   bool   `mapstructure:"enabled"`
	Directory string `mapstructure:"directory"`
}

// Pushbullet configures push notifications.
type Pushbullet struct {
	Enabled bool
	APIKey  string
}

// Settings is the view of the file a cycle works from.
type Settings struct {
	Host        remote.HostConfig
	DownloadDir string
	Filters     []string
	Excludes    []string
	LastRun     time.Time
	Interval    time.Duration
	Move        Move
	Pushbullet  Pushbullet
}

// Validate reports every missing or inconsistent setting.
func (s *Settings) Validate() error {
	errs := s.Host.Validate()
	if s.DownloadDir == "" {
		errs = multierr.Append(errs, fmt.Errorf("%s is required", KeyDownloadDir))
	}
	if s.Interval < time.Minute {
		errs = multierr.Append(errs, fmt.Errorf("%s must be at least 1 minute", KeyInterval))
	}
	if s.Move.Enabled && s.Move.Directory == "" {
		errs = multierr.Append(errs, fmt.Errorf("%s is required when %s is set", KeyMoveDirectory, KeyMoveEnabled))
	}
	if s.Pushbullet.Enabled && s.Pushbullet.APIKey == "" {
		errs = multierr.Append(errs, fmt.Errorf("%s is required when %s is set", KeyPushbulletKey, KeyPushbulletEnabled))
	}
	return errs
}

// Store reads and writes one configuration file.
type Store struct {
	mu     sync.Mutex
	fs     afero.Fs
	path   string
	now    func() time.Time
	getenv func(string) string
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces time.Now as the default for an unset last-run.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithEnv replaces os.Getenv for the password override.
func WithEnv(getenv func(string) string) Option {
	return func(s *Store) { s.getenv = getenv }
}

// Open returns a Store for path on fsys, creating an empty file (and its
// directory) if none exists yet.
func Open(fsys afero.Fs, path string, opts ...Option) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	s := &Store{fs: fsys, path: path, now: time.Now, getenv: os.Getenv}
	for _, opt := range opts {
		opt(s)
	}

	exists, err := afero.Exists(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}
	if !exists {
		if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("unable to create config directory: %w", err)
		}
		// The file holds the host password.
		if err := afero.WriteFile(fsys, path, nil, 0o600); err != nil {
			return nil, fmt.Errorf("unable to create config file: %w", err)
		}
	}
	if _, err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the file backing the store.
func (s *Store) Path() string { return s.path }

func (s *Store) load() (*viper.Viper, error) {
	v := viper.New()
	v.SetFs(s.fs)
	v.SetConfigFile(s.path)
	v.SetConfigType("yaml")
	v.SetDefault(KeyHostType, remote.FTP.String())
	v.SetDefault(KeyInterval, int(DefaultInterval/time.Minute))
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}
	return v, nil
}

var decodeHook = viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
	mapstructure.TextUnmarshallerHookFunc(),
	mapstructure.StringToTimeDurationHookFunc(),
	mapstructure.StringToSliceHookFunc(","),
))

// Snapshot reads the file and returns validated settings. Any failure wraps
// ErrInvalidConfig.
func (s *Store) Snapshot() (*Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.load()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	settings, err := s.decode(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return settings, nil
}

func (s *Store) decode(v *viper.Viper) (*Settings, error) {
	var settings Settings
	if err := v.UnmarshalKey("host", &settings.Host, decodeHook); err != nil {
		return nil, fmt.Errorf("decode host: %w", err)
	}
	if err := v.UnmarshalKey("move", &settings.Move, decodeHook); err != nil {
		return nil, fmt.Errorf("decode move: %w", err)
	}
	if settings.Host.Port == 0 {
		settings.Host.Port = settings.Host.Protocol.DefaultPort()
	}
	if pw := s.getenv(PasswordEnv); pw != "" {
		settings.Host.Password = pw
	}

	settings.DownloadDir = v.GetString(KeyDownloadDir)
	settings.Filters = listValue(v, KeyFilters)
	settings.Excludes = listValue(v, KeyExcludes)
	settings.Interval = time.Duration(v.GetInt(KeyInterval)) * time.Minute
	settings.Pushbullet = Pushbullet{
		Enabled: v.GetBool(KeyPushbulletEnabled),
		APIKey:  v.GetString(KeyPushbulletKey),
	}

	settings.LastRun = s.now()
	if v.IsSet(KeyLastRun) {
		settings.LastRun = time.UnixMilli(v.GetInt64(KeyLastRun))
	}
	return &settings, nil
}

// listValue accepts both a YAML list and a comma separated string.
func listValue(v *viper.Viper, key string) []string {
	if raw, ok := v.Get(key).(string); ok {
		return splitList(raw)
	}
	return v.GetStringSlice(key)
}
