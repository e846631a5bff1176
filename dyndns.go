package dyndns

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"time"

	"github.com/cloudflare/cloudflare-go"
	"github.com/go-logr/logr"
)

// New constructs a Client that keeps hostname's A record pointed at the
// machine's current IP address.
//
// A DNS provider must be registered with UsingDreamhost, UsingCloudflare,
// or UsingProvider; there is no default. Every other collaborator has
// one: the current IP comes from [DefaultResolver] and the last pushed IP
// is cached by a [FileCache] in the working directory.
func New(hostname string, options ...Option) (Client, error) {
	if hostname == "" {
		return nil, fmt.Errorf("dyndns.New: hostname cannot be empty")
	}
	c := &client{
		Resolver: DefaultResolver,
		cache:    &FileCache{},
		logger:   logr.Discard(),
		hostname: hostname,
	}
	for i, opt := range options {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("dyndns.New: option %d returned an error: %s", i, err)
		}
	}

	if c.Provider == nil {
		return nil, fmt.Errorf("dyndns.New: no DNS provider was registered and there is no default option - use dyndns.UsingDreamhost or similar")
	}

	// this lets us propagate the logger and http client to dependencies that use them if WithLogger or UsingHTTPClient was called before all of the dependencies were registered
	withLogger(c.logger)(c)
	if c.httpClient != nil {
		withHTTPClient(c.httpClient)(c)
	}
	return c, nil
}

// An Option configures the client returned by New.
type Option func(*client) error

// UsingDreamhost registers a DreamHost DNS provider using the given API
// key.
func UsingDreamhost(key string) Option {
	return func(c *client) error {
		c.Provider = NewDreamhost(key)
		return nil
	}
}

// UsingCloudflare registers a Cloudflare DNS provider using the given API
// token.
func UsingCloudflare(token string) Option {
	return func(c *client) (err error) {
		if c.Provider, err = NewCloudflare(token); err != nil {
			return fmt.Errorf("dyndns.UsingCloudflare: error creating cloudflare DNS provider: %w", err)
		}
		return nil
	}
}

// UsingProvider registers provider as the DNS provider. It is how
// implementations of [Provider] from outside this package are plugged in.
func UsingProvider(provider Provider) Option {
	return func(c *client) error {
		if provider == nil {
			return errors.New("provider cannot be nil")
		}
		c.Provider = provider
		return nil
	}
}

// UsingResolver sets the resolver that determines the current IP.
// A nil resolver resets the client to [DefaultResolver].
func UsingResolver(resolver Resolver) Option {
	return func(c *client) error {
		if resolver == nil {
			resolver = DefaultResolver
		}
		c.Resolver = resolver
		return nil
	}
}

// UsingWebResolver is shorthand for UsingResolver with a [WebResolver]
// built from the given service URLs.
func UsingWebResolver(serviceURL ...string) Option {
	return func(c *client) error {
		c.Resolver = WebResolver(serviceURL...)
		return nil
	}
}

// UsingCache sets the store for the last pushed IP. A nil cache resets
// the client to a [FileCache] in the working directory.
func UsingCache(cache Cache) Option {
	return func(c *client) error {
		if cache == nil {
			cache = &FileCache{}
		}
		c.cache = cache
		return nil
	}
}

// WithLogger sets the logger that receives one line per action taken.
// The default discards log messages.
func WithLogger(logger logr.Logger) Option {
	return func(c *client) error {
		if logger.GetSink() == nil {
			logger = logr.Discard()
		}
		c.logger = logger
		return nil
	}
}

func withLogger(logger logr.Logger) Option {
	return func(c *client) error {
		type setLogger interface {
			SetLogger(logr.Logger)
		}

		switch p := c.Provider.(type) {
		case *Dreamhost:
			p.logger = logger
		case *Cloudflare:
			p.logger = logger
		case setLogger:
			p.SetLogger(logger)
		}

		switch r := c.Resolver.(type) {
		case setLogger:
			r.SetLogger(logger)
		case *OutboundResolver:
		case *webResolver:
		}

		return nil
	}
}

// WithForce makes Update rewrite the remote record even when the cached
// IP matches the current one.
func WithForce(force bool) Option {
	return func(c *client) error {
		c.force = force
		return nil
	}
}

// WithComment attaches comment to records created by Update.
func WithComment(comment string) Option {
	return func(c *client) error {
		c.comment = comment
		return nil
	}
}

// UsingHTTPClient sets the http.Client used by providers and resolvers
// that speak HTTP.
func UsingHTTPClient(httpclient *http.Client) Option {
	return func(c *client) error {
		if httpclient == nil {
			httpclient = http.DefaultClient
		}
		c.httpClient = httpclient
		return withHTTPClient(httpclient)(c)
	}
}

func withHTTPClient(httpclient *http.Client) Option {
	return func(c *client) error {
		type setHTTPClient interface {
			SetHTTPClient(*http.Client)
		}
		switch r := c.Resolver.(type) {
		case *webResolver:
			r.httpClient = httpclient
		case setHTTPClient:
			r.SetHTTPClient(httpclient)
		}
		switch p := c.Provider.(type) {
		case *Dreamhost:
			p.httpClient = httpclient
		case *Cloudflare:
			cloudflare.HTTPClient(httpclient)(p.api)
		case setHTTPClient:
			p.SetHTTPClient(httpclient)
		}
		return nil
	}
}

// A Client performs one reconciliation pass per call.
// Implementations are returned by [New].
type Client interface {
	// Update points the hostname's A record at the current IP if it
	// appears to have changed.
	Update(ctx context.Context) error
	// Clean removes the hostname's editable A records and forgets the
	// cached IP.
	Clean(ctx context.Context) error
}

type client struct {
	Resolver
	Provider
	cache      Cache
	logger     logr.Logger
	httpClient *http.Client
	hostname   string
	comment    string
	force      bool
}

// Update runs one reconcile pass: resolve the current IP, compare it with
// the cached one, and if they differ remove the hostname's editable A
// records and add one holding the current IP. The new IP is cached only
// after the add succeeds, so a failed pass is retried in full by the next
// one.
//
// Step failures are logged and do not stop the later steps, except that a
// failed resolution or record listing ends the pass (see below) and a
// failed add skips the cache write. Whatever failures were logged are also
// returned, joined, for callers that want to inspect them; a pass that
// finds nothing to do returns nil without calling the provider.
func (c *client) Update(ctx context.Context) error {
	var errs []error

	current, err := c.Resolve(ctx)
	if err != nil {
		// Updating to an unknown IP would be a guess, so the pass ends
		// here and the next scheduled one catches up.
		c.logger.Error(err, "could not determine current IP", "hostname", c.hostname)
		return err
	}

	cached, err := c.cache.Read(c.hostname)
	if err != nil {
		// A missing or unreadable cache entry means "unknown", which
		// forces an update; first runs land here.
		c.logger.Info("could not read cached IP", "hostname", c.hostname, "reason", err.Error())
		cached = netip.Addr{}
	}

	if !updateNeeded(cached, current, c.force) {
		c.logger.V(1).Info("record is current", "hostname", c.hostname, "ip", current.String())
		return errors.Join(errs...)
	}

	removeErrs, err := c.removeMatching(ctx)
	if err != nil {
		// Without a listing there is no way to know what the add would
		// leave behind, so the pass ends here.
		c.logger.Error(err, "could not list records", "hostname", c.hostname)
		errs = append(errs, err)
		return errors.Join(errs...)
	}
	errs = append(errs, removeErrs...)
	c.logger.Info("removed A records", "hostname", c.hostname)

	add := Record{Name: c.hostname, Type: RecordTypeA, Value: current.String(), Comment: c.comment}
	if err := c.AddRecord(ctx, add); err != nil {
		c.logger.Error(err, "could not add record", "hostname", c.hostname, "ip", current.String())
		errs = append(errs, err)
		return errors.Join(errs...)
	}
	c.logger.Info("set A record", "hostname", c.hostname, "ip", current.String())

	if err := c.cache.Write(c.hostname, current); err != nil {
		c.logger.Error(err, "could not write cached IP", "hostname", c.hostname)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Clean removes the hostname's editable A records and deletes the cached
// IP, returning the record to an unmanaged state. The cache entry is
// deleted even when the removals fail, since a later Update heals the
// remote side from scratch.
func (c *client) Clean(ctx context.Context) error {
	var errs []error

	removeErrs, err := c.removeMatching(ctx)
	if err != nil {
		c.logger.Error(err, "could not list records", "hostname", c.hostname)
		errs = append(errs, err)
	} else {
		errs = append(errs, removeErrs...)
		c.logger.Info("removed A records", "hostname", c.hostname)
	}

	if err := c.cache.Delete(c.hostname); err != nil {
		c.logger.Info("unable to remove cached IP", "hostname", c.hostname, "reason", err.Error())
		errs = append(errs, err)
	} else {
		c.logger.Info("removed cached IP", "hostname", c.hostname)
	}
	return errors.Join(errs...)
}

// removeMatching deletes every editable A record named for the hostname.
// A list failure comes back as err with nothing attempted; removal
// failures come back in removeErrs with the remaining records still
// attempted.
func (c *client) removeMatching(ctx context.Context) (removeErrs []error, err error) {
	editable := true
	records, err := c.ListRecords(ctx, RecordFilter{
		Name:     c.hostname,
		Type:     RecordTypeA,
		Editable: &editable,
	})
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if err := c.RemoveRecord(ctx, r); err != nil {
			c.logger.Error(err, "could not remove record", "hostname", c.hostname, "value", r.Value)
			removeErrs = append(removeErrs, err)
		}
	}
	return removeErrs, nil
}

// updateNeeded decides whether the remote record should be rewritten. An
// unknown current IP never triggers an update; an unknown cached IP
// always does, because nothing proves the remote record is current.
func updateNeeded(cached, current netip.Addr, force bool) bool {
	if !current.IsValid() {
		return false
	}
	return !cached.IsValid() || cached != current || force
}

// RunDaemon starts ddnsClient as a goroutine that calls Update every
// interval until ctx is canceled. Intervals under one minute are raised
// to one minute.
//
// An empty logr.Logger for a Client supplied by this library indicates
// that the daemon should send error logs to the logger configured in the
// client. Otherwise the default is to discard log messages.
func RunDaemon(ddnsClient Client, ctx context.Context, interval time.Duration, logger logr.Logger) {
	if interval < 1*time.Minute {
		interval = 1 * time.Minute
	}
	if logger.GetSink() == nil {
		if c, ok := ddnsClient.(*client); ok {
			logger = c.logger
		} else {
			logger = logr.Discard()
		}
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := ddnsClient.Update(ctx); err != nil {
					logger.Error(err, "dyndns.RunDaemon: update failed")
				}
			}
		}
	}()
}
