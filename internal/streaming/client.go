package streaming

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/alnah/avremote/internal/apierr"
)

// DefaultTimeout bounds each send and receive.
const DefaultTimeout = 5 * time.Second

// Outcome describes the effect of Start or Stop.
type Outcome int

const (
	// Changed means the device switched mode and confirmed it.
	Changed Outcome = iota
	// AlreadyInState means no frame was sent, the device was already there.
	AlreadyInState
)

// dialFunc opens a connection. Overridable for tests.
type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Option configures Dial.
type Option func(*dialOptions)

type dialOptions struct {
	timeout time.Duration
	retry   apierr.RetryConfig
	logger  *zap.Logger
	dial    dialFunc
}

// WithTimeout sets the per-call deadline for dialing and each exchange.
func WithTimeout(d time.Duration) Option {
	return func(o *dialOptions) { o.timeout = d }
}

// WithRetry sets the dial retry policy.
func WithRetry(cfg apierr.RetryConfig) Option {
	return func(o *dialOptions) { o.retry = cfg }
}

// WithLogger sets the logger for frame tracing.
func WithLogger(l *zap.Logger) Option {
	return func(o *dialOptions) { o.logger = l }
}

// withDialer replaces the network dialer.
func withDialer(fn dialFunc) Option {
	return func(o *dialOptions) { o.dial = fn }
}

// Client holds one control connection to a camera. Not safe for
// concurrent use: exchanges must not interleave on the wire.
type Client struct {
	conn    net.Conn
	host    string
	timeout time.Duration
	logger  *zap.Logger
}

// Address joins host and port for Dial.
func Address(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Dial connects to addr ("host:port"). Failed dials are retried with
// backoff; exchanges on the open connection never are.
func Dial(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	o := dialOptions{
		timeout: DefaultTimeout,
		retry:   apierr.DefaultDialRetry,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.timeout <= 0 {
		o.timeout = DefaultTimeout
	}
	if o.dial == nil {
		d := &net.Dialer{Timeout: o.timeout}
		o.dial = d.DialContext
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid address %q: %w", apierr.ErrTransport, addr, err)
	}

	conn, err := apierr.RetryWithBackoff(ctx, o.retry, func() (net.Conn, error) {
		c, err := o.dial(ctx, "tcp", addr)
		if err != nil {
			o.logger.Debug("dial failed", zap.String("addr", addr), zap.Error(err))
		}
		return c, err
	}, apierr.IsTemporaryNetError)
	if err != nil {
		return nil, classify(ctx, fmt.Errorf("connect %s: %w", addr, err))
	}

	o.logger.Debug("connected", zap.String("addr", addr))
	return &Client{conn: conn, host: host, timeout: o.timeout, logger: o.logger}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// StreamURL is where viewers find the stream once started.
func (c *Client) StreamURL() string {
	return "rtsp://" + c.host + "/stream"
}

// IsStreaming queries the current mode.
func (c *Client) IsStreaming(ctx context.Context) (bool, error) {
	resp, err := c.exchange(ctx, QueryState, stateLen)
	if err != nil {
		return false, err
	}
	switch {
	case resp.Equal(StateOn):
		return true, nil
	case resp.Equal(StateOff):
		return false, nil
	}
	return false, fmt.Errorf("%w: unexpected response to streaming mode query: %s", apierr.ErrProtocol, resp)
}

// Start turns streaming on.
func (c *Client) Start(ctx context.Context) (Outcome, error) {
	return c.toggle(ctx, true)
}

// Stop turns streaming off.
func (c *Client) Stop(ctx context.Context) (Outcome, error) {
	return c.toggle(ctx, false)
}

// toggle queries, sets, then re-queries to confirm the device reached want.
func (c *Client) toggle(ctx context.Context, want bool) (Outcome, error) {
	current, err := c.IsStreaming(ctx)
	if err != nil {
		return Changed, err
	}
	if current == want {
		return AlreadyInState, nil
	}

	cmd := SetOff
	if want {
		cmd = SetOn
	}
	ack, err := c.exchange(ctx, cmd, ackLen)
	if err != nil {
		return Changed, err
	}
	if !ack.Equal(Ack) {
		return Changed, fmt.Errorf("%w: expected ack %s, got %s", apierr.ErrProtocol, Ack, ack)
	}

	now, err := c.IsStreaming(ctx)
	if err != nil {
		return Changed, err
	}
	if now != want {
		return Changed, fmt.Errorf("%w: streaming is %t after setting it to %t", apierr.ErrStateMismatch, now, want)
	}
	return Changed, nil
}

// exchange writes req and reads exactly n response bytes under one
// deadline. Cancelling ctx interrupts a blocked read or write.
func (c *Client) exchange(ctx context.Context, req Frame, n int) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("%w: set deadline: %w", apierr.ErrTransport, err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Now())
	})
	defer stop()

	if _, err := c.conn.Write(req); err != nil {
		return nil, classify(ctx, fmt.Errorf("send %s: %w", req, err))
	}
	c.logger.Debug("sent", zap.Stringer("frame", req))

	resp := make(Frame, n)
	read, err := io.ReadFull(c.conn, resp)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: short response to %s: %s", apierr.ErrProtocol, req, resp[:read])
		}
		return nil, classify(ctx, fmt.Errorf("receive response to %s: %w", req, err))
	}
	c.logger.Debug("received", zap.Stringer("frame", resp))
	return resp, nil
}

// classify tags I/O errors with the apierr taxonomy. Context errors pass
// through so callers can tell an interrupt from a device fault.
func classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", apierr.ErrTimeout, err)
		}
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("%w: %w", apierr.ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", apierr.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", apierr.ErrTransport, err)
}
