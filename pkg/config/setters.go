// pkg/config/setters.go
package config

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jeepinbird/autoftp/pkg/remote"
)

// update applies set to a fresh read of the file and writes it back.
func (s *Store) update(set func(v *viper.Viper)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, err := s.load()
	if err != nil {
		return err
	}
	set(v)
	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("unable to save new configuration property: %w", err)
	}
	return nil
}

// SetLastRun persists the watermark as Unix milliseconds.
func (s *Store) SetLastRun(t time.Time) error {
	return s.update(func(v *viper.Viper) {
		v.Set(KeyLastRun, t.UnixMilli())
	})
}

// SetHost replaces every host.* key.
func (s *Store) SetHost(h remote.HostConfig) error {
	return s.update(func(v *viper.Viper) {
		v.Set(KeyHostName, h.Hostname)
		v.Set(KeyHostUser, h.Username)
		v.Set(KeyHostPassword, h.Password)
		v.Set(KeyHostPort, h.Port)
		v.Set(KeyHostType, h.Protocol.String())
		v.Set(KeyHostFileDir, h.RemoteDirectory)
		v.Set(KeyHostKeyFile, h.KeyFile)
		v.Set(KeyHostKnownHosts, h.KnownHosts)
		v.Set(KeyHostRegion, h.Region)
		if h.Timeout > 0 {
			v.Set(KeyHostTimeout, h.Timeout.String())
		}
	})
}

// SetDownloadDirectory sets where files are downloaded to.
func (s *Store) SetDownloadDirectory(dir string) error {
	return s.update(func(v *viper.Viper) { v.Set(KeyDownloadDir, dir) })
}

// SetFilterExpressions replaces the include filters, in order.
func (s *Store) SetFilterExpressions(filters []string) error {
	return s.update(func(v *viper.Viper) { v.Set(KeyFilters, nonNil(filters)) })
}

// SetExcludeExpressions replaces the gitignore-style exclusions.
func (s *Store) SetExcludeExpressions(excludes []string) error {
	return s.update(func(v *viper.Viper) { v.Set(KeyExcludes, nonNil(excludes)) })
}

// SetInterval stores the scan interval in whole minutes.
func (s *Store) SetInterval(minutes int) error {
	if minutes < 1 {
		return fmt.Errorf("%w: %s must be at least 1 minute", ErrInvalidConfig, KeyInterval)
	}
	return s.update(func(v *viper.Viper) { v.Set(KeyInterval, minutes) })
}

// SetMove stores the move.* keys.
func (s *Store) SetMove(m Move) error {
	return s.update(func(v *viper.Viper) {
		v.Set(KeyMoveEnabled, m.Enabled)
		v.Set(KeyMoveDirectory, m.Directory)
	})
}

// SetPushbullet stores the pushbullet.* keys.
func (s *Store) SetPushbullet(p Pushbullet) error {
	return s.update(func(v *viper.Viper) {
		v.Set(KeyPushbulletEnabled, p.Enabled)
		v.Set(KeyPushbulletKey, p.APIKey)
	})
}

type kind int

const (
	kindString kind = iota
	kindInt
	kindBool
	kindList
	kindDuration
	kindProtocol
)

var keyKinds = map[string]kind{
	KeyHostName:          kindString,
	KeyHostUser:          kindString,
	KeyHostPassword:      kindString,
	KeyHostPort:          kindInt,
	KeyHostType:          kindProtocol,
	KeyHostFileDir:       kindString,
	KeyHostTimeout:       kindDuration,
	KeyHostKeyFile:       kindString,
	KeyHostKnownHosts:    kindString,
	KeyHostRegion:        kindString,
	KeyDownloadDir:       kindString,
	KeyFilters:           kindList,
	KeyExcludes:          kindList,
	KeyLastRun:           kindInt,
	KeyInterval:          kindInt,
	KeyMoveEnabled:       kindBool,
	KeyMoveDirectory:     kindString,
	KeyPushbulletKey:     kindString,
	KeyPushbulletEnabled: kindBool,
}

// Keys returns every known key, sorted.
func Keys() []string {
	keys := make([]string, 0, len(keyKinds))
	for k := range keyKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set parses value according to the type of key and stores it. Lists are
// comma separated.
func (s *Store) Set(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	k, ok := keyKinds[key]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKey, key)
	}

	var parsed any
	switch k {
	case kindString:
		parsed = value
	case kindInt:
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %s: %q is not a number", ErrInvalidConfig, key, value)
		}
		parsed = n
	case kindBool:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: %s: %q is not a boolean", ErrInvalidConfig, key, value)
		}
		parsed = b
	case kindList:
		parsed = splitList(value)
	case kindDuration:
		d, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
		}
		parsed = d.String()
	case kindProtocol:
		p, err := remote.ParseProtocolType(value)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
		}
		parsed = p.String()
	}
	return s.update(func(v *viper.Viper) { v.Set(key, parsed) })
}

func splitList(value string) []string {
	out := []string{}
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

// Show writes the stored settings as YAML with the password masked. It does
// not validate, so it works on an incomplete file.
func (s *Store) Show(w io.Writer) error {
	s.mu.Lock()
	v, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return err
	}
	all := v.AllSettings()
	if host, ok := all["host"].(map[string]any); ok {
		if pw, _ := host["password"].(string); pw != "" {
			host["password"] = "********"
		}
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(all); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return enc.Close()
}
