package remote

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileChangedSince(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		file File
		want bool
	}{
		{"older file", File{Name: "a.txt", ModTime: t0.Add(-time.Second)}, false},
		{"same instant is included", File{Name: "a.txt", ModTime: t0}, true},
		{"newer file", File{Name: "a.txt", ModTime: t0.Add(time.Second)}, true},
		{"newer directory", File{Name: "sub", ModTime: t0.Add(time.Hour), IsDir: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.file.ChangedSince(t0))
		})
	}
}

func TestOpErrorMatchesSentinel(t *testing.T) {
	cause := errors.New("550 permission denied")
	err := DownloadError("b.pdf", cause)

	assert.ErrorIs(t, err, ErrDownload)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrListing)
	assert.Equal(t, "download failed: b.pdf: 550 permission denied", err.Error())

	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, KindDownload, opErr.Kind)
}

func TestOpErrorWithoutCause(t *testing.T) {
	err := NoSuchDirectoryError("/missing", nil)
	assert.ErrorIs(t, err, ErrNoSuchDirectory)
	assert.Equal(t, "no such directory: /missing", err.Error())
}

func TestParseProtocolType(t *testing.T) {
	for input, want := range map[string]ProtocolType{
		"ftp":   FTP,
		"FTPS":  FTPS,
		" sftp": SFTP,
		"s3":    S3,
		"File":  FILE,
	} {
		got, err := ParseProtocolType(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseProtocolType("gopher")
	assert.Error(t, err)

	var p ProtocolType
	require.NoError(t, p.UnmarshalText([]byte("sftp")))
	assert.Equal(t, SFTP, p)

	text, err := FTPS.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "FTPS", string(text))

	assert.Equal(t, 21, FTPS.DefaultPort())
	assert.Equal(t, 22, SFTP.DefaultPort())
	assert.Equal(t, 0, FILE.DefaultPort())
}

func TestHostConfigValidate(t *testing.T) {
	valid := HostConfig{
		Hostname:        "ftp.example.com",
		Username:        "user",
		Password:        "secret",
		Port:            21,
		Protocol:        FTP,
		RemoteDirectory: "/outgoing",
	}
	require.NoError(t, valid.Validate())

	t.Run("reports every missing field", func(t *testing.T) {
		err := HostConfig{Protocol: FTP}.Validate()
		require.Error(t, err)
		for _, want := range []string{"hostname", "username", "password", "port", "remote directory"} {
			assert.Contains(t, err.Error(), want)
		}
	})

	t.Run("sftp accepts key file instead of password", func(t *testing.T) {
		h := valid
		h.Protocol = SFTP
		h.Port = 22
		h.Password = ""
		h.KeyFile = "/home/user/.ssh/id_ed25519"
		assert.NoError(t, h.Validate())
	})

	t.Run("port out of range", func(t *testing.T) {
		h := valid
		h.Port = 70000
		assert.ErrorContains(t, h.Validate(), "out of range")
	})

	t.Run("file protocol only needs a directory", func(t *testing.T) {
		assert.NoError(t, HostConfig{Protocol: FILE, RemoteDirectory: "/mnt/share"}.Validate())
	})

	t.Run("s3 without endpoint ignores port", func(t *testing.T) {
		h := HostConfig{Protocol: S3, Username: "AKIA", Password: "secret", RemoteDirectory: "bucket/in"}
		assert.NoError(t, h.Validate())
	})
}

func TestHostConfigRedacted(t *testing.T) {
	h := HostConfig{Password: "secret"}
	assert.Equal(t, "********", h.Redacted().Password)
	assert.Equal(t, "secret", h.Password)
}

func TestFactory(t *testing.T) {
	called := false
	f := NewFactory().Register(SFTP, DialerFunc(func(ctx context.Context, host HostConfig) (Session, error) {
		called = true
		return nil, ConnectionError(host.Address(), errors.New("refused"))
	}))

	_, err := f.Dial(context.Background(), HostConfig{Hostname: "h", Port: 22, Protocol: SFTP})
	assert.True(t, called)
	assert.ErrorIs(t, err, ErrConnection)
	assert.Contains(t, err.Error(), "h:22")

	_, err = f.Dial(context.Background(), HostConfig{Protocol: FTP})
	assert.ErrorIs(t, err, ErrConnection)
	assert.Contains(t, err.Error(), "no client registered for protocol FTP")
}

func TestSinkStore(t *testing.T) {
	fs := afero.NewMemMapFs()
	sink := NewSink(fs)
	modTime := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	file := File{Name: "b.pdf", Size: 5, ModTime: modTime}

	require.NoError(t, sink.Store("/downloads", file, strings.NewReader("hello")))

	data, err := afero.ReadFile(fs, "/downloads/b.pdf")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	info, err := fs.Stat("/downloads/b.pdf")
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(modTime))

	exists, err := afero.Exists(fs, "/downloads/b.pdf"+partSuffix)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSinkStoreWithProgress(t *testing.T) {
	fs := afero.NewMemMapFs()
	sink := &Sink{Fs: fs, Progress: true, Output: io.Discard}

	require.NoError(t, sink.Store("/downloads", File{Name: "c.bin"}, strings.NewReader("payload")))

	data, err := afero.ReadFile(fs, "/downloads/c.bin")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestSinkStoreCleansUpOnFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	sink := NewSink(fs)

	err := sink.Store("/downloads", File{Name: "broken.iso"}, failingReader{})
	require.ErrorContains(t, err, "connection reset")

	for _, name := range []string{"/downloads/broken.iso", "/downloads/broken.iso" + partSuffix} {
		exists, err := afero.Exists(fs, name)
		require.NoError(t, err)
		assert.False(t, exists, name)
	}
}

func TestSinkRejectsUnsafeNames(t *testing.T) {
	sink := NewSink(afero.NewMemMapFs())
	for _, name := range []string{"", ".", "..", "../etc/passwd", "a/b"} {
		assert.Error(t, sink.Store("/downloads", File{Name: name}, strings.NewReader("x")), name)
	}
}
