// Package cocon is a client for the recording appliance's "CoCon" HTTP API.
//
// Every endpoint answers with a JSON envelope keyed by the last segment of
// the request path. The keyed value is itself a JSON document serialized
// into a string, so payloads are decoded twice. Some firmware versions also
// serialize the whole envelope as a string; both shapes are accepted.
package cocon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/alnah/avremote/internal/apierr"
)

// Port is the fixed TCP port of the CoCon API.
const Port = 8890

// API paths relative to the CoCon root.
const (
	PathStartRecording    = "Recording/StartRecording"
	PathStopRecording     = "Recording/StopRecording"
	PathGetRecordingState = "Recording/GetRecordingState"
	PathGetRecordingFiles = "Recording/GetRecordingFilesInfo"
)

// Default timeouts.
const (
	DefaultTimeout         = 30 * time.Second
	DefaultDownloadTimeout = 10 * time.Minute
)

// State is the recorder state reported by the device.
type State string

// Known recorder states.
const (
	StateActive  State = "active"
	StateError   State = "error"
	StateIdle    State = "idle"
	StatePaused  State = "paused"
	StateUnknown State = "unknown"
)

// FileInfo is one entry of the device's recording file listing.
// Name is a path relative to the device's web root.
type FileInfo struct {
	Name string `mapstructure:"Name"`
}

type stateResult struct {
	RecordingState State `mapstructure:"RecordingState"`
}

type filesResult struct {
	RecordingFilesInfo []struct {
		RecordingFiles []FileInfo `mapstructure:"RecordingFiles"`
	} `mapstructure:"RecordingFilesInfo"`
}

// Client talks to a single device.
type Client struct {
	host            string
	apiURL          string
	fileURL         string
	timeout         time.Duration
	downloadTimeout time.Duration
	logger          *zap.Logger

	api      *resty.Client
	download *resty.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds every API call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithDownloadTimeout bounds every file download, body included.
func WithDownloadTimeout(d time.Duration) Option {
	return func(c *Client) { c.downloadTimeout = d }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithBaseURLs overrides the API root and the file root (for testing
// against httptest servers).
func WithBaseURLs(apiURL, fileURL string) Option {
	return func(c *Client) {
		c.apiURL = apiURL
		c.fileURL = fileURL
	}
}

// New creates a client for the device at host (IP address or hostname).
func New(host string, opts ...Option) *Client {
	c := &Client{
		host:            host,
		apiURL:          "http://" + net.JoinHostPort(host, strconv.Itoa(Port)) + "/CoCon/",
		fileURL:         "http://" + host + "/",
		timeout:         DefaultTimeout,
		downloadTimeout: DefaultDownloadTimeout,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.api = resty.New().
		SetBaseURL(c.apiURL).
		SetTimeout(c.timeout).
		SetHeader("Accept", "application/json")
	c.download = resty.New().SetTimeout(c.downloadTimeout)

	return c
}

// Host returns the device address the client was created for.
func (c *Client) Host() string {
	return c.host
}

// Do performs method on path and returns the decoded payload keyed by the
// last path segment.
func (c *Client) Do(ctx context.Context, method, apiPath string) (map[string]any, error) {
	c.logger.Debug("cocon request", zap.String("method", method), zap.String("path", apiPath))

	resp, err := c.api.R().SetContext(ctx).Execute(method, apiPath)
	if err != nil {
		return nil, classify(apiPath, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%s: HTTP %d: %w", apiPath, resp.StatusCode(), apierr.ErrTransport)
	}

	payload, err := decodeEnvelope(resp.Body(), path.Base(apiPath))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", apiPath, err)
	}
	return payload, nil
}

// StartRecording asks the device to start recording and returns the
// resulting state.
func (c *Client) StartRecording(ctx context.Context) (State, error) {
	return c.state(ctx, PathStartRecording)
}

// StopRecording asks the device to stop recording and returns the
// resulting state.
func (c *Client) StopRecording(ctx context.Context) (State, error) {
	return c.state(ctx, PathStopRecording)
}

// RecordingState returns the current recorder state.
func (c *Client) RecordingState(ctx context.Context) (State, error) {
	return c.state(ctx, PathGetRecordingState)
}

func (c *Client) state(ctx context.Context, apiPath string) (State, error) {
	payload, err := c.Do(ctx, http.MethodGet, apiPath)
	if err != nil {
		return "", err
	}

	var res stateResult
	if err := mapstructure.Decode(payload, &res); err != nil {
		return "", fmt.Errorf("%s: decode state: %v: %w", apiPath, err, apierr.ErrProtocol)
	}
	if res.RecordingState == "" {
		return "", fmt.Errorf("%s: RecordingState missing: %w", apiPath, apierr.ErrProtocol)
	}
	return res.RecordingState, nil
}

// RecordingFiles returns the device's recording file listing, in device order.
func (c *Client) RecordingFiles(ctx context.Context) ([]FileInfo, error) {
	payload, err := c.Do(ctx, http.MethodGet, PathGetRecordingFiles)
	if err != nil {
		return nil, err
	}

	var res filesResult
	if err := mapstructure.Decode(payload, &res); err != nil {
		return nil, fmt.Errorf("%s: decode files: %v: %w", PathGetRecordingFiles, err, apierr.ErrProtocol)
	}
	if len(res.RecordingFilesInfo) == 0 {
		return nil, fmt.Errorf("%s: RecordingFilesInfo empty: %w", PathGetRecordingFiles, apierr.ErrProtocol)
	}
	return res.RecordingFilesInfo[0].RecordingFiles, nil
}

// FileURL resolves a listing entry name against the device's web root.
func (c *Client) FileURL(name string) (string, error) {
	base, err := url.Parse(c.fileURL)
	if err != nil {
		return "", fmt.Errorf("parse file root %q: %w", c.fileURL, err)
	}
	ref, err := url.Parse(name)
	if err != nil {
		return "", fmt.Errorf("parse file name %q: %w", name, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// Open starts a download of fileURL and returns the response body.
// The caller must close it.
func (c *Client) Open(ctx context.Context, fileURL string) (io.ReadCloser, error) {
	c.logger.Debug("cocon download", zap.String("url", fileURL))

	resp, err := c.download.R().SetContext(ctx).SetDoNotParseResponse(true).Get(fileURL)
	if err != nil {
		return nil, classify(fileURL, err)
	}
	body := resp.RawBody()
	if resp.IsError() {
		_ = body.Close()
		return nil, fmt.Errorf("%s: HTTP %d: %w", fileURL, resp.StatusCode(), apierr.ErrTransport)
	}
	return body, nil
}

// decodeEnvelope unwraps {"<key>": "<json>"} into a map.
func decodeEnvelope(body []byte, key string) (map[string]any, error) {
	var outer any
	if err := json.Unmarshal(body, &outer); err != nil {
		return nil, fmt.Errorf("decode envelope: %v: %w", err, apierr.ErrProtocol)
	}

	envelope, err := asObject(outer)
	if err != nil {
		return nil, fmt.Errorf("envelope: %w", err)
	}

	inner, ok := envelope[key]
	if !ok {
		return nil, fmt.Errorf("envelope has no %q key: %w", key, apierr.ErrProtocol)
	}

	payload, err := asObject(inner)
	if err != nil {
		return nil, fmt.Errorf("payload %q: %w", key, err)
	}
	return payload, nil
}

// asObject returns v as a JSON object, decoding it first when the device
// serialized it into a string.
func asObject(v any) (map[string]any, error) {
	if s, ok := v.(string); ok {
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil, fmt.Errorf("decode embedded JSON: %v: %w", err, apierr.ErrProtocol)
		}
		v = decoded
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected JSON object, got %T: %w", v, apierr.ErrProtocol)
	}
	return obj, nil
}

// classify maps a transport error onto the shared taxonomy.
func classify(target string, err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", target, err)
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%s: %v: %w", target, err, apierr.ErrTimeout)
	}
	return fmt.Errorf("%s: %v: %w", target, err, apierr.ErrTransport)
}
