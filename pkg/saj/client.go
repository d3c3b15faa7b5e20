package saj

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTimeout = 5 * time.Second
	maxBodySize    = 64 * 1024
)

// Client reads one inverter. Reads are not safe to run concurrently against
// the same catalog; the owner serializes them.
type Client struct {
	host        string
	dialect     Dialect
	credentials Credentials
	protocol    protocol
	http        *http.Client
	logger      *zap.Logger
	instrument  *Instrument

	mu           sync.RWMutex
	serialNumber string
	identity     Identity
	requestURL   *url.URL
	lastError    error
}

func CreateClient(host string, dialect Dialect, credentials Credentials, timeout time.Duration, logger *zap.Logger, instrument *Instrument) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		host:        host,
		dialect:     dialect,
		credentials: credentials,
		protocol:    newProtocol(dialect, credentials),
		http:        &http.Client{Timeout: timeout},
		logger:      logger.With(zap.String("host", host), zap.Stringer("dialect", dialect)),
		instrument:  instrument,
	}
}

func (c *Client) Host() string {
	return c.host
}

func (c *Client) Dialect() Dialect {
	return c.dialect
}

// SerialNumber is empty until the first read that decoded the identity document.
func (c *Client) SerialNumber() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.serialNumber
}

func (c *Client) Identity() Identity {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity
}

// URL returns the last info URL requested, with any password redacted.
func (c *Client) URL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.requestURL == nil {
		return ""
	}
	return c.requestURL.Redacted()
}

func (c *Client) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

// ConfigurationURL is the device's own web page.
func (c *Client) ConfigurationURL() string {
	u := url.URL{Scheme: "http", Host: c.host, Path: "/"}
	if c.dialect == WiFi {
		u.User = c.credentials.userinfo()
	}
	return u.String()
}

// Read fetches the identity and status documents concurrently and applies the
// status to the catalog. It returns false when either round trip fails or the
// identity cannot be decoded. On a network failure nothing is mutated.
func (c *Client) Read(ctx context.Context, catalog *Catalog) bool {
	infoURL := c.protocol.infoURL(c.host)
	statusURL := c.protocol.statusURL(c.host)

	c.mu.Lock()
	c.requestURL = infoURL
	c.mu.Unlock()

	var infoBody, statusBody []byte
	var statusErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		infoBody, err = c.fetch(gctx, EndpointInfo, infoURL)
		return err
	})
	g.Go(func() error {
		body, err := c.fetch(gctx, EndpointStatus, statusURL)
		if errors.Is(err, ErrStructure) {
			statusErr = err
			return nil
		}
		statusBody = body
		return err
	})
	if err := g.Wait(); err != nil {
		c.fail(err)
		return false
	}

	var status Payload
	if statusErr == nil {
		status, statusErr = c.protocol.decodeStatus(statusBody)
	}
	if statusErr != nil {
		c.logger.Warn("status document could not be decoded, disabling all sensors", zap.Error(statusErr))
		status = invalidPayload{}
	}
	enabled, fieldErr := catalog.ApplyUpdate(status)
	if fieldErr != nil && statusErr == nil {
		c.logger.Debug("some sensors could not be decoded", zap.Int("enabled", enabled), zap.Error(fieldErr))
	}

	identity, err := c.protocol.decodeIdentity(infoBody)
	if err != nil {
		c.fail(err)
		return false
	}

	c.mu.Lock()
	c.serialNumber = identity.SerialNumber
	c.identity = identity
	c.lastError = statusErr
	c.mu.Unlock()

	c.logger.Debug("inverter read", zap.String("serial", identity.SerialNumber), zap.Int("enabled", enabled))
	return true
}

func (c *Client) fail(err error) {
	c.mu.Lock()
	c.lastError = err
	c.mu.Unlock()
	if errors.Is(err, ErrNetwork) {
		c.logger.Debug("inverter read failed", zap.Error(err))
	} else {
		c.logger.Warn("inverter read failed", zap.Error(err))
	}
}

func (c *Client) fetch(ctx context.Context, endpoint string, u *url.URL) ([]byte, error) {
	if c.instrument != nil {
		defer c.instrument.StartTimer(endpoint).Stop()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if username, password, ok := c.protocol.basicAuth(); ok {
		req.SetBasicAuth(username, password)
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNetwork, u.Redacted(), err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s: unexpected status %s", ErrNetwork, u.Redacted(), res.Status)
	}
	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: reading body: %v", ErrNetwork, u.Redacted(), err)
	}
	if len(body) > maxBodySize {
		return nil, fmt.Errorf("%w: %s: body exceeds %d bytes", ErrStructure, u.Redacted(), maxBodySize)
	}
	return body, nil
}
