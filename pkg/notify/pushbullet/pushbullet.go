// pkg/notify/pushbullet/pushbullet.go
//
// Package pushbullet pushes sync results to a phone through the Pushbullet
// API.
package pushbullet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jeepinbird/autoftp/pkg/notify"
	"github.com/jeepinbird/autoftp/pkg/remote"
)

const (
	// DefaultBaseURL is the public Pushbullet API.
	DefaultBaseURL = "https://api.pushbullet.com"
	// DefaultTitle heads every note.
	DefaultTitle = "AutoFTP"

	pushesPath  = "/v2/pushes"
	maxListed   = 10
	sendTimeout = 10 * time.Second
)

// ErrNoAPIKey is returned by New when the key is empty.
var ErrNoAPIKey = errors.New("pushbullet api key is not set")

// Client posts notes. The zero value is not usable; use New.
type Client struct {
	APIKey     string
	BaseURL    string
	Title      string
	HTTPClient *http.Client
}

// New creates a Client for apiKey.
func New(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return &Client{
		APIKey:     apiKey,
		BaseURL:    DefaultBaseURL,
		Title:      DefaultTitle,
		HTTPClient: &http.Client{Timeout: sendTimeout},
	}, nil
}

type push struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Send posts a note with the given body.
func (c *Client) Send(ctx context.Context, body string) error {
	payload, err := json.Marshal(push{Type: "note", Title: c.Title, Body: body})
	if err != nil {
		return fmt.Errorf("encode push: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimSuffix(c.BaseURL, "/")+pushesPath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Access-Token", c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var ae apiError
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &ae) == nil && ae.Error.Message != "" {
			return fmt.Errorf("pushbullet: %s: %s", resp.Status, ae.Error.Message)
		}
		return fmt.Errorf("pushbullet: %s", resp.Status)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Observer sends a note when files are selected, when a download finishes
// and when an error is reported. Connection events are not pushed.
type Observer struct {
	notify.BaseObserver
	client *Client
}

var _ notify.Observer = (*Observer)(nil)

// NewObserver pushes through client.
func NewObserver(client *Client) *Observer {
	return &Observer{client: client}
}

// OnFilesSelected pushes the count and the first names of the selection.
func (o *Observer) OnFilesSelected(files []remote.File) error {
	names := remote.Names(files)
	body := fmt.Sprintf("Found %d file(s) to download: %s", len(names), strings.Join(truncate(names, maxListed), ", "))
	return o.client.Send(context.Background(), body)
}

// OnDownloadFinished pushes the name of the finished file.
func (o *Observer) OnDownloadFinished(name string) error {
	return o.client.Send(context.Background(), "Download complete: "+name)
}

// OnError pushes the error message.
func (o *Observer) OnError(message string) error {
	return o.client.Send(context.Background(), "There was an error: "+message)
}

func truncate(names []string, n int) []string {
	if len(names) <= n {
		return names
	}
	out := append([]string(nil), names[:n]...)
	return append(out, fmt.Sprintf("and %d more", len(names)-n))
}
