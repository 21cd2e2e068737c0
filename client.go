package bulkudp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/bitdabbler/backoff"
	"golang.org/x/time/rate"
)

var (
	// ErrRateLimited is returned by Send when the packet was shed because
	// ClientOptions.RateLimit was exceeded.
	ErrRateLimited = errors.New("packet rate limit exceeded")

	// ErrShutdown is returned by Send after Shutdown.
	ErrShutdown = errors.New("client is shut down")
)

// Client sends packets to the bulk ingestion server as UDP datagrams. It
// holds one connected UDP socket, shared by every goroutine that sends; each
// packet is written with exactly one Write, so packets are never interleaved,
// but their order on the wire is not guaranteed.
type Client struct {
	opts    *ClientOptions
	addr    string
	limiter *rate.Limiter

	mu     sync.RWMutex
	conn   net.Conn
	closed bool
}

// NewClient creates a new Client and dials the server immediately, returning
// an error if it is unable to. Dialing UDP only fails when the address can not
// be resolved.
func NewClient(host string, opts *ClientOptions) (*Client, error) {
	return NewClientContext(context.Background(), host, opts)
}

// NewClientContext creates a new Client and dials the server immediately,
// returning an error if it is unable to. The Context can be used to cancel the
// dial, or set a global deadline for it.
func NewClientContext(ctx context.Context, host string, opts *ClientOptions) (*Client, error) {

	if len(host) == 0 {
		return nil, errors.New("valid host required")
	}

	if opts == nil {
		opts = DefaultClientOptions()
	} else {
		opts.resolve()
	}

	c := &Client{
		opts: opts,
		addr: net.JoinHostPort(host, strconv.Itoa(opts.Port)),
	}

	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateBurst)
	}

	c.debug("starting Client with the resolved ClientOptions: %+v", c.opts)

	if opts.SkipEagerDial {
		return c, nil
	}

	if err := c.tryConnect(ctx, opts.MaxEagerDialTries); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Client) tryConnect(ctx context.Context, maxAttempts int) error {
	c.debug("attempting to connect to %s\n", c.addr)

	b, err := backoff.New(
		backoff.WithInitialDelay(0),
		backoff.WithExponentialLimit(time.Second*20),
	)
	if err != nil {
		return err
	}

	i := 0
	for {
		i++
		err = c.connect(ctx)
		if err == nil {
			c.debug("successfully connected to %s\n", c.addr)
			return nil
		}

		c.debug("failed to connect to %s on attempt %d: %v\n", c.addr, i, err)

		if maxAttempts > 0 && i >= maxAttempts {
			break
		}
		if ctx.Err() != nil {
			break
		}

		b.Sleep()
	}

	return fmt.Errorf("failed to connect to %s; attempts: %d: %w", c.addr, i, err)
}

func (c *Client) connect(ctx context.Context) error {
	var d net.Dialer
	ctx, cancel := context.WithTimeout(ctx, c.opts.DialTimeout)
	defer cancel()

	conn, err := d.DialContext(ctx, "udp", c.addr)
	if err != nil {
		return fmt.Errorf("failed to dial server at %s over udp: %w", c.addr, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		conn.Close()
		return ErrShutdown
	}
	if c.conn != nil {
		// lost a race with a concurrent lazy dial
		conn.Close()
		return nil
	}
	c.conn = conn

	return nil
}

// Send writes p to the server as one datagram. It never retries: when the
// write fails, or the packet is shed by the rate limiter, the error is
// returned and the packet is gone.
func (c *Client) Send(p []byte) error {
	if c.limiter != nil && !c.limiter.Allow() {
		c.debug("rate limit exceeded: dropping packet of %d bytes", len(p))
		return ErrRateLimited
	}

	conn, err := c.getConn()
	if err != nil {
		return err
	}

	if c.opts.WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(c.opts.WriteTimeout)); err != nil {
			return fmt.Errorf("failed to set write deadline on connection to %s: %w", c.addr, err)
		}
	}

	if _, err := conn.Write(p); err != nil {
		return fmt.Errorf("failed to write packet of %d bytes to %s: %w", len(p), c.addr, err)
	}

	return nil
}

// getConn returns the shared connection, dialing it first (once, without
// retries) if the Client was created with SkipEagerDial.
func (c *Client) getConn() (net.Conn, error) {
	c.mu.RLock()
	conn, closed := c.conn, c.closed
	c.mu.RUnlock()

	if closed {
		return nil, ErrShutdown
	}
	if conn != nil {
		return conn, nil
	}

	if err := c.connect(context.Background()); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn == nil {
		return nil, ErrShutdown
	}
	return c.conn, nil
}

// Shutdown closes the connection. Any further calls to Send return
// ErrShutdown. Nothing is buffered, so there is nothing to drain, and the
// Context is not used.
func (c *Client) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.conn == nil {
		return nil
	}

	c.debug("closing connection to %s", c.addr)
	err := c.conn.Close()
	c.conn = nil
	return err
}

// internal logging helpers:
func (c *Client) debug(format string, args ...any) {
	if !c.opts.Verbose {
		return
	}
	InternalLogger().Printf(format, args...)
}
