// Command dyndns keeps a DNS A record pointed at this machine's current
// IP address. It is built to run unattended from cron or a systemd timer
// and exits zero even when a pass fails, leaving retries to the
// scheduler; pass --strict to surface failures in the exit status.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/ericsuh/dyndns"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// options holds the flags that never come from the config file.
type options struct {
	configPath string
	keyFile    string
	clean      bool
	hard       bool
	strict     bool
	interval   time.Duration
	ip         string
	verbose    bool
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cfg := &config{}
	cmd := &cobra.Command{
		Use:   "dyndns [flags] [KEY] HOSTNAME",
		Short: "Keep a DNS A record pointed at this machine's current IP",
		Long: `dyndns keeps a DNS A record pointed at this machine's current IP address.

Each run determines the current IP, compares it with the IP recorded by
the previous successful run, and rewrites the record at the DNS provider
only when they differ. The API key may be given as the first positional
argument, as key in the config file, or through --key-file; a missing key
file starts an interactive setup that prompts for the key and saves it.`,
		Example: `  dyndns QXJlIHlvdSBib3JlZD8 home.example.com
  dyndns --key-file ~/.dreamhost --log /var/log/dyndns.log home.example.com
  dyndns --config /etc/dyndns.yaml --interval 10m home.example.com`,
		Args:         cobra.RangeArgs(1, 2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, cfg, args)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&cfg.Log, "log", "l", "", "append one timestamped line per action to this `file`")
	f.StringVar(&cfg.CacheDir, "cache-dir", "", "`directory` holding the cached IP files (default \".\")")
	f.StringVar(&cfg.Comment, "comment", "", "comment to attach to records created by the update")
	f.StringVar(&cfg.Provider, "provider", "", "DNS provider, dreamhost or cloudflare (default \"dreamhost\")")
	f.StringVar(&opts.configPath, "config", "", "`path` to a YAML config file")
	f.StringVar(&opts.keyFile, "key-file", "", "`path` to a file holding the API key")
	f.BoolVarP(&opts.clean, "clean", "c", false, "remove the hostname's A records and cached IP, then exit")
	f.BoolVar(&opts.hard, "hard", false, "rewrite the record even when the cached IP matches the current one")
	f.BoolVar(&opts.strict, "strict", false, "exit nonzero when a pass fails")
	f.DurationVar(&opts.interval, "interval", 0, "keep running and update every `duration` (0 means run once)")
	f.StringVar(&opts.ip, "ip", "", "use this IP `address` instead of detecting one")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "also log actions to stderr")
	return cmd
}

func run(opts *options, cfg *config, args []string) error {
	if opts.configPath != "" {
		file, err := loadConfig(opts.configPath)
		if err != nil {
			return err
		}
		cfg.merge(file)
	}

	key, hostname := "", args[0]
	if len(args) == 2 {
		key, hostname = args[0], args[1]
	}
	if !strings.Contains(hostname, ".") {
		return errors.New("hostname must have at least one dot")
	}
	if opts.clean && opts.interval > 0 {
		return errors.New("--clean cannot be combined with --interval")
	}

	logger, closeLog, err := buildLogger(cfg.Log, opts.verbose)
	if err != nil {
		return err
	}
	defer closeLog()

	if key == "" {
		key = cfg.Key
	}
	if key == "" && opts.keyFile != "" {
		key, err = keyFromFile(opts.keyFile, func(k string) error {
			return verifyKey(cfg, k, hostname)
		})
		if err != nil {
			return err
		}
	}
	if key == "" {
		return errors.New("an API key is required: pass it before the hostname, set key in the config file, or use --key-file")
	}

	provider, err := buildProvider(cfg, key)
	if err != nil {
		return err
	}
	resolver, err := buildResolver(cfg, opts.ip)
	if err != nil {
		return err
	}

	client, err := dyndns.New(hostname,
		dyndns.UsingProvider(provider),
		dyndns.UsingResolver(resolver),
		dyndns.UsingCache(&dyndns.FileCache{Dir: cfg.CacheDir}),
		dyndns.WithLogger(logger),
		dyndns.WithForce(opts.hard),
		dyndns.WithComment(cfg.Comment),
	)
	if err != nil {
		return err
	}

	ctx := context.Background()
	switch {
	case opts.clean:
		err = client.Clean(ctx)
	case opts.interval > 0:
		return runDaemon(ctx, client, opts.interval, logger)
	default:
		err = client.Update(ctx)
	}

	// Pass failures were already logged and the next scheduled run is the
	// retry, so they only reach the exit status when asked for.
	if err != nil && opts.strict {
		return err
	}
	return nil
}

// buildLogger assembles the audit logger: an append-only file for --log,
// stderr for --verbose, both when both are given. With neither, log lines
// are discarded.
func buildLogger(path string, verbose bool) (logr.Logger, func(), error) {
	var writers []io.Writer
	closeLog := func() {}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return logr.Logger{}, nil, fmt.Errorf("error opening log file: %w", err)
		}
		closeLog = func() { f.Close() }
		writers = append(writers, f)
	}
	if verbose {
		writers = append(writers, os.Stderr)
	}
	if len(writers) == 0 {
		return logr.Discard(), closeLog, nil
	}
	return dyndns.NewFileLogger(io.MultiWriter(writers...)), closeLog, nil
}

func buildProvider(cfg *config, key string) (dyndns.Provider, error) {
	switch cfg.Provider {
	case "", "dreamhost":
		var opts []dyndns.DreamhostOption
		if cfg.BaseURL != "" {
			opts = append(opts, dyndns.WithAPIURL(cfg.BaseURL))
		}
		return dyndns.NewDreamhost(key, opts...), nil
	case "cloudflare":
		return dyndns.NewCloudflare(key)
	default:
		return nil, fmt.Errorf("unknown provider \"%s\" (expected dreamhost or cloudflare)", cfg.Provider)
	}
}

// buildResolver picks the IP source. --ip short-circuits detection; the
// config file can add a DNS echo lookup and web lookups as fallbacks
// behind the default routing-table probe.
func buildResolver(cfg *config, fixed string) (dyndns.Resolver, error) {
	if fixed != "" {
		return dyndns.FromString(fixed), nil
	}
	resolvers := []dyndns.Resolver{
		&dyndns.OutboundResolver{Target: cfg.Resolver.Probe},
	}
	if cfg.Resolver.DNS != "" {
		resolvers = append(resolvers, &dyndns.DNSResolver{Server: cfg.Resolver.DNS})
	}
	if len(cfg.Resolver.URLs) > 0 {
		resolvers = append(resolvers, dyndns.WebResolver(cfg.Resolver.URLs...))
	}
	if len(resolvers) == 1 {
		return resolvers[0], nil
	}
	return dyndns.Fallback(resolvers...), nil
}

// verifyKey makes one list call with the candidate key so that setup does
// not save a key the provider rejects.
func verifyKey(cfg *config, key, hostname string) error {
	p, err := buildProvider(cfg, key)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = p.ListRecords(ctx, dyndns.RecordFilter{Name: hostname, Type: dyndns.RecordTypeA})
	return err
}

// runDaemon blocks until interrupted, updating on a fixed interval. The
// first pass runs immediately; the ticker covers the rest.
func runDaemon(ctx context.Context, client dyndns.Client, interval time.Duration, logger logr.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := client.Update(ctx); err != nil {
		logger.Error(err, "update failed")
	}
	dyndns.RunDaemon(client, ctx, interval, logger)
	<-ctx.Done()
	return nil
}
