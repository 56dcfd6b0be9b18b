// Package airtouch provides an API client for the AirTouch 3 ducted
// air-conditioning controller, through its HTTP/JSON bridge.
//
// The client caches the last retrieved state and throttles reads: calling
// Update again within the throttle interval returns the cached state, unless
// the caller forces a refresh:
//
//	c := airtouch.New("192.168.1.10", 0)
//	state, err := c.Update(ctx, true)
package airtouch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// DefaultPort is the port the AirTouch 3 bridge listens on
const DefaultPort = 8899

const defaultMinInterval = 10 * time.Second

// Client is an API client for one AirTouch 3 unit
type Client struct {
	HTTPClient  *http.Client
	baseURL     string
	minInterval time.Duration
	lock        sync.RWMutex
	cached      Aircon
	lastUpdate  time.Time
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient overrides the http.Client used to call the bridge
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.HTTPClient = httpClient
	}
}

// WithMinInterval overrides the read throttle interval
func WithMinInterval(interval time.Duration) Option {
	return func(c *Client) {
		c.minInterval = interval
	}
}

// New creates a Client for the AirTouch 3 bridge at host:port. If port is
// zero, DefaultPort is used.
func New(host string, port int, options ...Option) *Client {
	if port == 0 {
		port = DefaultPort
	}
	c := Client{
		HTTPClient:  &http.Client{Timeout: time.Minute},
		baseURL:     "http://" + host + ":" + strconv.Itoa(port),
		minInterval: defaultMinInterval,
	}
	for _, option := range options {
		option(&c)
	}
	return &c
}

// Update retrieves the current state of the unit. Reads are throttled: if the
// last successful read is more recent than the throttle interval, the cached
// state is returned instead. force bypasses the throttle.
func (c *Client) Update(ctx context.Context, force bool) (Aircon, error) {
	c.lock.RLock()
	cached, lastUpdate := c.cached, c.lastUpdate
	c.lock.RUnlock()

	if !force && !lastUpdate.IsZero() && time.Since(lastUpdate) < c.minInterval {
		return cached, nil
	}

	var aircon Aircon
	if err := c.call(ctx, http.MethodGet, "/api/aircon", &aircon); err != nil {
		return Aircon{}, err
	}

	c.lock.Lock()
	c.cached = aircon
	c.lastUpdate = time.Now()
	c.lock.Unlock()

	return aircon, nil
}

// Aircon returns the last retrieved state and when it was retrieved
func (c *Client) Aircon() (Aircon, time.Time) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.cached, c.lastUpdate
}

// SetPower switches the AC unit on or off
func (c *Client) SetPower(ctx context.Context, on bool) error {
	return c.call(ctx, http.MethodPut, "/api/aircon/switch/"+onOff(on), nil)
}

// SetMode sets the unit's operating mode
func (c *Client) SetMode(ctx context.Context, mode Mode) error {
	return c.call(ctx, http.MethodPut, "/api/aircon/mode/"+strconv.Itoa(int(mode)), nil)
}

// SetFanMode sets the unit's fan speed
func (c *Client) SetFanMode(ctx context.Context, fanMode FanMode) error {
	return c.call(ctx, http.MethodPut, "/api/aircon/fanmode/"+strconv.Itoa(int(fanMode)), nil)
}

// SetZoneState opens or closes a zone
func (c *Client) SetZoneState(ctx context.Context, zoneID int, on bool) error {
	return c.call(ctx, http.MethodPut, "/api/aircon/zones/"+strconv.Itoa(zoneID)+"/switch/"+onOff(on), nil)
}

// SetZoneDamper sets a zone's damper percentage (0-100)
func (c *Client) SetZoneDamper(ctx context.Context, zoneID int, percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("invalid damper percentage: %d", percent)
	}
	return c.call(ctx, http.MethodPut, "/api/aircon/zones/"+strconv.Itoa(zoneID)+"/damper/"+strconv.Itoa(percent), nil)
}

// SetZoneTemperature sets a zone's target temperature and returns the target
// temperature reported back by the console. A returned value of
// NotTemperatureControlled means the zone does not support temperature
// control.
func (c *Client) SetZoneTemperature(ctx context.Context, zoneID int, temperature int) (int, error) {
	if temperature < MinTargetTemperature || temperature > MaxTargetTemperature {
		return 0, fmt.Errorf("invalid target temperature: %d (valid range: %d-%d)", temperature, MinTargetTemperature, MaxTargetTemperature)
	}
	var response struct {
		DesiredTemperature int `json:"desiredTemperature"`
	}
	err := c.call(ctx, http.MethodPut, "/api/aircon/zones/"+strconv.Itoa(zoneID)+"/temperature/"+strconv.Itoa(temperature), &response)
	if err != nil {
		return 0, err
	}
	return response.DesiredTemperature, nil
}

func (c *Client) call(ctx context.Context, method, path string, response any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("airtouch: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("airtouch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("airtouch: %s", resp.Status)
	}

	if response != nil {
		if err = json.NewDecoder(resp.Body).Decode(response); err != nil {
			return fmt.Errorf("airtouch: decode: %w", err)
		}
	}
	return nil
}

func onOff(on bool) string {
	if on {
		return "1"
	}
	return "0"
}
