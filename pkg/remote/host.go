// pkg/remote/host.go
package remote

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// ProtocolType selects the transfer client used for a host.
type ProtocolType int

const (
	FTP  ProtocolType = iota // Plain FTP
	FTPS                     // FTP with explicit TLS (AUTH TLS)
	SFTP                     // SSH file transfer
	S3                       // S3-compatible object storage
	FILE                     // Local or mounted directory
)

var protocolNames = map[ProtocolType]string{
	FTP:  "FTP",
	FTPS: "FTPS",
	SFTP: "SFTP",
	S3:   "S3",
	FILE: "FILE",
}

func (p ProtocolType) String() string {
	if name, ok := protocolNames[p]; ok {
		return name
	}
	return "Unknown"
}

// DefaultPort is the well-known port of the protocol, or 0 when it has none.
func (p ProtocolType) DefaultPort() int {
	switch p {
	case FTP, FTPS:
		return 21
	case SFTP:
		return 22
	case S3:
		return 443
	}
	return 0
}

// ParseProtocolType parses a protocol name case-insensitively.
func ParseProtocolType(s string) (ProtocolType, error) {
	want := strings.ToUpper(strings.TrimSpace(s))
	for p, name := range protocolNames {
		if name == want {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown protocol type %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p ProtocolType) MarshalText() ([]byte, error) {
	if _, ok := protocolNames[p]; !ok {
		return nil, fmt.Errorf("unknown protocol type %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so the type can be
// decoded straight from configuration.
func (p *ProtocolType) UnmarshalText(text []byte) error {
	parsed, err := ParseProtocolType(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// DefaultTimeout applies to dialing and to each blocking client call when a
// host doesn't configure one.
const DefaultTimeout = 30 * time.Second

// HostConfig holds the connection parameters for one remote endpoint.
type HostConfig struct {
	Hostname        string        `mapstructure:"name"`
	Username        string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Port            int           `mapstructure:"port"`
	Protocol        ProtocolType  `mapstructure:"type"`
	RemoteDirectory string        `mapstructure:"file-dir"`
	Timeout         time.Duration `mapstructure:"timeout"`
	KeyFile         string        `mapstructure:"key-file"`    // SFTP private key, used instead of Password
	KnownHosts      string        `mapstructure:"known-hosts"` // SFTP known_hosts file; empty skips verification
	Region          string        `mapstructure:"region"`      // S3 region
}

// Address returns host:port.
func (h HostConfig) Address() string {
	return net.JoinHostPort(h.Hostname, strconv.Itoa(h.Port))
}

// DialTimeout returns the configured timeout or DefaultTimeout.
func (h HostConfig) DialTimeout() time.Duration {
	if h.Timeout > 0 {
		return h.Timeout
	}
	return DefaultTimeout
}

// Validate checks that every field the protocol needs is present. All
// problems are reported together.
func (h HostConfig) Validate() error {
	var errs error
	require := func(ok bool, field string) {
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("%s is required for %s", field, h.Protocol))
		}
	}
	validPort := func() {
		if h.Port < 1 || h.Port > 65535 {
			errs = multierr.Append(errs, fmt.Errorf("port %d is out of range 1-65535", h.Port))
		}
	}

	switch h.Protocol {
	case FTP, FTPS:
		require(h.Hostname != "", "hostname")
		require(h.Username != "", "username")
		require(h.Password != "", "password")
		validPort()
	case SFTP:
		require(h.Hostname != "", "hostname")
		require(h.Username != "", "username")
		require(h.Password != "" || h.KeyFile != "", "password or key file")
		validPort()
	case S3:
		require(h.Username != "", "access key (username)")
		require(h.Password != "", "secret key (password)")
		if h.Hostname != "" {
			validPort()
		}
	case FILE:
	default:
		errs = multierr.Append(errs, fmt.Errorf("unknown protocol type %d", int(h.Protocol)))
	}
	require(h.RemoteDirectory != "", "remote directory")
	if h.Timeout < 0 {
		errs = multierr.Append(errs, fmt.Errorf("timeout must not be negative"))
	}
	return errs
}

// Redacted returns a copy safe for printing.
func (h HostConfig) Redacted() HostConfig {
	if h.Password != "" {
		h.Password = "********"
	}
	return h
}
