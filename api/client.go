// Package api implements the core client for the NestYard platform API: a
// generic, typed, cached, authenticated HTTP client with automatic credential
// refresh and bounded retries. Resource packages such as apps and deployments
// are thin typed wrappers over the generic verbs in this package.
package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	cleanhttp "github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-hclog"
	retryablehttp "github.com/hashicorp/go-retryablehttp"
	rootcerts "github.com/hashicorp/go-rootcerts"
	"github.com/hashicorp/go-secure-stdlib/base62"
	"github.com/hashicorp/go-secure-stdlib/parseutil"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"

	"github.com/nestyard/nest-go/cache"
)

const EnvNestAddress = "NEST_ADDR"
const EnvNestApiVersion = "NEST_API_VERSION"
const EnvNestDevice = "NEST_DEVICE"
const EnvNestCachePath = "NEST_CACHE_PATH"
const EnvNestBasicAuth = "NEST_BASIC_AUTH"
const EnvNestCACert = "NEST_CACERT"
const EnvNestCAPath = "NEST_CAPATH"
const EnvNestClientCert = "NEST_CLIENT_CERT"
const EnvNestClientKey = "NEST_CLIENT_KEY"
const EnvNestClientTimeout = "NEST_CLIENT_TIMEOUT"
const EnvNestTLSInsecure = "NEST_TLS_INSECURE"
const EnvNestTLSServerName = "NEST_TLS_SERVER_NAME"
const EnvNestMaxRetries = "NEST_MAX_RETRIES"
const EnvNestRateLimit = "NEST_RATE_LIMIT"

// deviceSignatureLength is the length of a generated device signature when
// none is configured.
const deviceSignatureLength = 20

// Config is used to configure the creation of the client.
type Config struct {
	// Address is the base URL of the platform controller. This should be a
	// complete URL such as "https://api.nestyard.io". If you need a custom
	// SSL cert or want to enable insecure mode, you need to specify a custom
	// HttpClient.
	Address string

	// ApiVersion is the protocol version carried on every request in the
	// Accept header, as "application/vnd.nest.v{N}+json". Defaults to 1.
	ApiVersion int

	// DeviceSignature identifies the installation in the Device header. A
	// random signature is generated when left empty.
	DeviceSignature string

	// BasicAuthUser and BasicAuthPassword, when both set, add HTTP basic
	// auth credentials to every request. These are deployment-level
	// credentials, distinct from the per-session Permit.
	BasicAuthUser     string
	BasicAuthPassword string

	// CachePath is the root directory of the disk-backed object cache. An
	// empty path disables caching entirely.
	CachePath string

	// HttpClient is the HTTP client to use. The client sets sane defaults
	// for the http.Client and its associated http.Transport created in
	// DefaultConfig. If you must modify the defaults, it is suggested that
	// you start with that client and modify as needed rather than start with
	// an empty client (or http.DefaultClient).
	HttpClient *http.Client

	// TLSConfig contains TLS configuration information. After modifying
	// these values, ConfigureTLS should be called.
	TLSConfig *TLSConfig

	// Headers contains extra headers that will be added to any request.
	Headers http.Header

	// MaxRetries controls the maximum number of times to retry when a 5xx
	// error occurs at the transport layer. Set to 0 to disable retrying.
	// Defaults to 2 (for a total of three tries). This is independent of the
	// authentication retry loop, which is bounded separately.
	MaxRetries int

	// Timeout is for setting custom timeout parameter in the HttpClient.
	Timeout time.Duration

	// If there is an error when creating the configuration, this will be the
	// error.
	Error error

	// The Backoff function to use; a default is used if not provided.
	Backoff retryablehttp.Backoff

	// The CheckRetry function to use; a default is used if not provided.
	CheckRetry retryablehttp.CheckRetry

	// Limiter is the rate limiter used by the client. If this pointer is
	// nil, then there will be no limit set. Note that an empty Limiter is
	// equivalent to blocking all events.
	Limiter *rate.Limiter

	// Logger receives client diagnostics. A null logger is used when unset.
	Logger hclog.Logger
}

// TLSConfig contains the parameters needed to configure TLS on the HTTP
// client used to communicate with the platform.
type TLSConfig struct {
	// CACert is the path to a PEM-encoded CA cert file to use to verify the
	// server SSL certificate.
	CACert string

	// CAPath is the path to a directory of PEM-encoded CA cert files to
	// verify the server SSL certificate.
	CAPath string

	// ClientCert is the path to the certificate for platform communication.
	ClientCert string

	// ClientKey is the path to the private key for platform communication.
	ClientKey string

	// ServerName, if set, is used to set the SNI host when connecting via
	// TLS.
	ServerName string

	// Insecure enables or disables SSL verification.
	Insecure bool
}

// DefaultConfig returns a default configuration for the client. It is safe
// to modify the return value of this function.
//
// The default Address is https://127.0.0.1:9400, but this can be overridden
// by setting the `NEST_ADDR` environment variable.
//
// If an error is encountered, the config is returned with the Error field
// set.
func DefaultConfig() *Config {
	config := &Config{
		Address:    "https://127.0.0.1:9400",
		ApiVersion: 1,
		HttpClient: cleanhttp.DefaultPooledClient(),
		Timeout:    time.Second * 60,
	}

	// We read the environment now; after DefaultConfig returns the caller
	// can override values, which should take precedence.
	if err := config.ReadEnvironment(); err != nil {
		config.Error = err
		return config
	}

	transport := config.HttpClient.Transport.(*http.Transport)
	transport.TLSHandshakeTimeout = 10 * time.Second
	transport.TLSClientConfig = &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	config.Backoff = retryablehttp.LinearJitterBackoff
	config.MaxRetries = 2
	config.Headers = make(http.Header)

	return config
}

// ConfigureTLS takes a set of TLS configurations and applies those to the
// HTTP client.
func (c *Config) ConfigureTLS() error {
	if c.HttpClient == nil {
		c.HttpClient = DefaultConfig().HttpClient
	}
	clientTLSConfig := c.HttpClient.Transport.(*http.Transport).TLSClientConfig

	var clientCert tls.Certificate
	foundClientCert := false

	switch {
	case c.TLSConfig.ClientCert != "" && c.TLSConfig.ClientKey != "":
		var err error
		clientCert, err = tls.LoadX509KeyPair(c.TLSConfig.ClientCert, c.TLSConfig.ClientKey)
		if err != nil {
			return err
		}
		foundClientCert = true
	case c.TLSConfig.ClientCert != "" || c.TLSConfig.ClientKey != "":
		return fmt.Errorf("both client cert and client key must be provided")
	}

	if c.TLSConfig.CACert != "" || c.TLSConfig.CAPath != "" {
		rootConfig := &rootcerts.Config{
			CAFile: c.TLSConfig.CACert,
			CAPath: c.TLSConfig.CAPath,
		}
		if err := rootcerts.ConfigureTLS(clientTLSConfig, rootConfig); err != nil {
			return err
		}
	}

	if c.TLSConfig.Insecure {
		clientTLSConfig.InsecureSkipVerify = true
	}

	if foundClientCert {
		// We use this function to ignore the server's preferential list of
		// CAs, otherwise any CA used for the cert auth backend must be in
		// the server's CA pool
		clientTLSConfig.GetClientCertificate = func(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
			return &clientCert, nil
		}
	}

	if c.TLSConfig.ServerName != "" {
		clientTLSConfig.ServerName = c.TLSConfig.ServerName
	}

	return nil
}

// setAddress normalizes a base address, trimming any trailing slash or
// "/api" suffix; requests add those segments themselves so we don't require
// callers to strip them.
func (c *Config) setAddress(addr string) {
	c.Address = strings.TrimSuffix(addr, "/")
	c.Address = strings.TrimSuffix(c.Address, "/api")
}

// ReadEnvironment reads configuration information from the environment. If
// there is an error, no configuration value is updated.
func (c *Config) ReadEnvironment() error {
	var envCACert string
	var envCAPath string
	var envClientCert string
	var envClientKey string
	var envInsecure bool
	var envServerName string

	// Parse the environment variables
	if v := os.Getenv(EnvNestAddress); v != "" {
		c.Address = v
	}

	if v := os.Getenv(EnvNestDevice); v != "" {
		c.DeviceSignature = v
	}

	if v := os.Getenv(EnvNestCachePath); v != "" {
		c.CachePath = v
	}

	if v := os.Getenv(EnvNestApiVersion); v != "" {
		version, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("could not parse %s", EnvNestApiVersion)
		}
		c.ApiVersion = version
	}

	if v := os.Getenv(EnvNestBasicAuth); v != "" {
		user, pass, found := strings.Cut(v, ":")
		if !found {
			return fmt.Errorf("%s must be formatted as user:password", EnvNestBasicAuth)
		}
		c.BasicAuthUser = user
		c.BasicAuthPassword = pass
	}

	if v := os.Getenv(EnvNestMaxRetries); v != "" {
		maxRetries, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return err
		}
		c.MaxRetries = int(maxRetries)
	}

	if t := os.Getenv(EnvNestClientTimeout); t != "" {
		clientTimeout, err := parseutil.ParseDurationSecond(t)
		if err != nil {
			return fmt.Errorf("could not parse %q", EnvNestClientTimeout)
		}
		c.Timeout = clientTimeout
	}

	if v := os.Getenv(EnvNestRateLimit); v != "" {
		rateLimit, burstLimit, err := parseRateLimit(v)
		if err != nil {
			return err
		}
		c.Limiter = rate.NewLimiter(rate.Limit(rateLimit), burstLimit)
	}

	// TLS Config
	{
		var foundTLSConfig bool
		if v := os.Getenv(EnvNestCACert); v != "" {
			foundTLSConfig = true
			envCACert = v
		}
		if v := os.Getenv(EnvNestCAPath); v != "" {
			foundTLSConfig = true
			envCAPath = v
		}
		if v := os.Getenv(EnvNestClientCert); v != "" {
			foundTLSConfig = true
			envClientCert = v
		}
		if v := os.Getenv(EnvNestClientKey); v != "" {
			foundTLSConfig = true
			envClientKey = v
		}
		if v := os.Getenv(EnvNestTLSInsecure); v != "" {
			foundTLSConfig = true
			var err error
			envInsecure, err = strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("could not parse %s", EnvNestTLSInsecure)
			}
		}
		if v := os.Getenv(EnvNestTLSServerName); v != "" {
			foundTLSConfig = true
			envServerName = v
		}
		// Configure the HTTP client's TLS configuration.
		if foundTLSConfig {
			c.TLSConfig = &TLSConfig{
				CACert:     envCACert,
				CAPath:     envCAPath,
				ClientCert: envClientCert,
				ClientKey:  envClientKey,
				ServerName: envServerName,
				Insecure:   envInsecure,
			}
			return c.ConfigureTLS()
		}
	}

	return nil
}

func parseRateLimit(val string) (rate float64, burst int, err error) {
	_, err = fmt.Sscanf(val, "%f:%d", &rate, &burst)
	if err != nil {
		rate, err = strconv.ParseFloat(val, 64)
		if err != nil {
			err = fmt.Errorf("%v was provided but incorrectly formatted", EnvNestRateLimit)
		}
		burst = int(rate)
	}

	return rate, burst, err
}

// Client is the client to the platform API. Create a client with NewClient.
// A client may be shared by any number of goroutines; all of them share one
// active Permit.
type Client struct {
	modifyLock sync.RWMutex
	config     *Config

	permit atomic.Pointer[Permit]
	store  *cache.Store
	logger hclog.Logger
}

// NewClient returns a new client for the given configuration.
//
// If the configuration is nil, configuration from DefaultConfig() is used,
// which is the recommended starting configuration.
func NewClient(c *Config) (*Client, error) {
	def := DefaultConfig()
	if def == nil {
		return nil, fmt.Errorf("could not create/read default configuration")
	}
	if def.Error != nil {
		return nil, fmt.Errorf("error encountered setting up default configuration: %w", def.Error)
	}

	if c == nil {
		c = def
	}

	if c.HttpClient == nil {
		c.HttpClient = def.HttpClient
	}
	if c.HttpClient.Transport == nil {
		c.HttpClient.Transport = def.HttpClient.Transport
	}
	if c.HttpClient.CheckRedirect == nil {
		// Ensure redirects are not automatically followed
		c.HttpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			// Returning this value causes the Go net library to not close
			// the response body and to nil out the error. Otherwise retry
			// clients may try three times on every redirect because it sees
			// an error from this function (to prevent redirects) passing
			// through to it.
			return http.ErrUseLastResponse
		}
	}
	if c.ApiVersion == 0 {
		c.ApiVersion = def.ApiVersion
	}
	if c.DeviceSignature == "" {
		signature, err := base62.Random(deviceSignatureLength)
		if err != nil {
			return nil, fmt.Errorf("error generating device signature: %w", err)
		}
		c.DeviceSignature = signature
	}
	if c.Logger == nil {
		c.Logger = hclog.NewNullLogger()
	}

	c.setAddress(c.Address)

	client := &Client{
		config: c,
		logger: c.Logger,
	}
	if c.CachePath != "" {
		client.store = cache.New(c.CachePath, cache.WithLogger(c.Logger.Named("cache")))
	}

	return client, nil
}

// SetAddress sets the base address of the platform in the client. The format
// of address should be "<Scheme>://<Host>:<Port>".
func (c *Client) SetAddress(addr string) {
	c.modifyLock.Lock()
	defer c.modifyLock.Unlock()

	c.config.setAddress(addr)
}

// SetLimiter will set the rate limiter for this client. This method is
// thread-safe. rateLimit and burst are specified according to
// https://godoc.org/golang.org/x/time/rate#NewLimiter
func (c *Client) SetLimiter(rateLimit float64, burst int) {
	c.modifyLock.Lock()
	defer c.modifyLock.Unlock()

	c.config.Limiter = rate.NewLimiter(rate.Limit(rateLimit), burst)
}

// SetMaxRetries sets the number of transport-level retries that will be used
// in the case of certain errors.
func (c *Client) SetMaxRetries(retries int) {
	c.modifyLock.Lock()
	defer c.modifyLock.Unlock()

	c.config.MaxRetries = retries
}

// SetCheckRetry sets the CheckRetry function to be used for future requests.
func (c *Client) SetCheckRetry(checkRetry retryablehttp.CheckRetry) {
	c.modifyLock.Lock()
	defer c.modifyLock.Unlock()

	c.config.CheckRetry = checkRetry
}

// SetClientTimeout sets the client request timeout.
func (c *Client) SetClientTimeout(timeout time.Duration) {
	c.modifyLock.Lock()
	defer c.modifyLock.Unlock()

	c.config.Timeout = timeout
}

// SetBackoff sets the backoff function to be used for future requests.
func (c *Client) SetBackoff(backoff retryablehttp.Backoff) {
	c.modifyLock.Lock()
	defer c.modifyLock.Unlock()

	c.config.Backoff = backoff
}

// SetHeaders clears all previous extra headers and uses only the given ones
// going forward.
func (c *Client) SetHeaders(headers http.Header) {
	c.modifyLock.Lock()
	defer c.modifyLock.Unlock()

	c.config.Headers = headers
}

// SetPermit atomically replaces the client's active Permit. A nil permit
// makes subsequent operations anonymous.
func (c *Client) SetPermit(p *Permit) {
	c.permit.Store(p)
}

// ActivePermit returns the currently held Permit, or nil when operating
// anonymously. The returned value is the live credential snapshot; it is
// replaced wholesale on refresh, never mutated in place.
func (c *Client) ActivePermit() *Permit {
	return c.permit.Load()
}

// Cache returns the client's object cache, or nil when caching is disabled.
func (c *Client) Cache() *cache.Store {
	return c.store
}

// ClearCache drops the entire cache namespace. Typically called at session
// start to avoid stale cross-session data.
func (c *Client) ClearCache() {
	if c.store != nil {
		c.store.Clear()
	}
}

// Clone creates a new client with the same configuration. Note that the same
// underlying http.Client is used; modifying the client from more than one
// goroutine at once may not be safe, so modify the client as needed and then
// clone. The active Permit is not carried over.
func (c *Client) Clone() (*Client, error) {
	c.modifyLock.RLock()
	defer c.modifyLock.RUnlock()

	config := c.config

	newConfig := &Config{
		Address:           config.Address,
		ApiVersion:        config.ApiVersion,
		DeviceSignature:   config.DeviceSignature,
		BasicAuthUser:     config.BasicAuthUser,
		BasicAuthPassword: config.BasicAuthPassword,
		CachePath:         config.CachePath,
		HttpClient:        config.HttpClient,
		Headers:           make(http.Header),
		MaxRetries:        config.MaxRetries,
		Timeout:           config.Timeout,
		Backoff:           config.Backoff,
		CheckRetry:        config.CheckRetry,
		Limiter:           config.Limiter,
		Logger:            config.Logger,
	}
	if config.TLSConfig != nil {
		newConfig.TLSConfig = new(TLSConfig)
		*newConfig.TLSConfig = *config.TLSConfig
	}
	for k, v := range config.Headers {
		vSlice := make([]string, 0, len(v))
		vSlice = append(vSlice, v...)
		newConfig.Headers[k] = vSlice
	}

	return NewClient(newConfig)
}

func copyHeaders(in http.Header) http.Header {
	ret := make(http.Header)
	for k, v := range in {
		for _, val := range v {
			ret[k] = append(ret[k], val)
		}
	}

	return ret
}

// newRequest creates a raw request addressed at the given path relative to
// the configured base address. It attaches the protocol version and device
// identity headers and optional basic auth, but knows nothing about permits
// or caching.
func (c *Client) newRequest(ctx context.Context, method, requestPath string, body any, query url.Values, extraHeaders http.Header) (*http.Request, error) {
	c.modifyLock.RLock()
	addr := c.config.Address
	apiVersion := c.config.ApiVersion
	device := c.config.DeviceSignature
	basicUser := c.config.BasicAuthUser
	basicPass := c.config.BasicAuthPassword
	headers := copyHeaders(c.config.Headers)
	c.modifyLock.RUnlock()

	u, err := url.Parse(addr)
	if err != nil {
		return nil, err
	}

	req := &http.Request{
		Method: method,
		URL: &url.URL{
			User:     u.User,
			Scheme:   u.Scheme,
			Host:     u.Host,
			Path:     path.Join(u.Path, "api", requestPath),
			RawQuery: query.Encode(),
		},
		Host: u.Host,
	}
	req.Header = headers
	for k, v := range extraHeaders {
		for _, val := range v {
			req.Header.Add(k, val)
		}
	}
	req.Header.Set("Accept", fmt.Sprintf("application/vnd.nest.v%d+json", apiVersion))
	req.Header.Set("Device", device)
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("error marshaling request body: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Body = io.NopCloser(bytes.NewReader(b))
		req.ContentLength = int64(len(b))
	}
	if basicUser != "" && basicPass != "" {
		req.SetBasicAuth(basicUser, basicPass)
	}
	if ctx != nil {
		req = req.WithContext(ctx)
	}

	return req, nil
}

// Do takes a properly configured request and applies client configuration to
// it, returning the response. Transport-level 5xx retries happen here; the
// authentication retry loop lives a level above, in execute.
func (c *Client) Do(r *http.Request) (*http.Response, error) {
	c.modifyLock.RLock()
	limiter := c.config.Limiter
	maxRetries := c.config.MaxRetries
	checkRetry := c.config.CheckRetry
	backoff := c.config.Backoff
	httpClient := c.config.HttpClient
	timeout := c.config.Timeout
	c.modifyLock.RUnlock()

	ctx := r.Context()

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := retryablehttp.FromRequest(r)
	if err != nil {
		return nil, fmt.Errorf("error converting request to retryable request: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("nil request created")
	}

	if timeout != 0 {
		// NOTE: this leaks a timer. But deferring a cancel call here causes
		// problems for response body reads happening after this function
		// returns, so until that is chased down keep it not-canceled even
		// though vet complains.
		ctx, _ = context.WithTimeout(ctx, timeout)
	}
	req.Request = req.Request.WithContext(ctx)

	if backoff == nil {
		backoff = retryablehttp.LinearJitterBackoff
	}

	if checkRetry == nil {
		checkRetry = retryablehttp.DefaultRetryPolicy
	}

	client := &retryablehttp.Client{
		HTTPClient:   httpClient,
		RetryWaitMin: 1000 * time.Millisecond,
		RetryWaitMax: 1500 * time.Millisecond,
		RetryMax:     maxRetries,
		Backoff:      backoff,
		CheckRetry:   checkRetry,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
	}

	return client.Do(req)
}
