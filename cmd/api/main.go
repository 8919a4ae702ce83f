package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"busboard.hk/internal/appconf"
)

func main() {
	cfg, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	coreApp, err := BuildApplication(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	srv, api := CreateServer(coreApp, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Run(ctx, srv, coreApp, api); err != nil {
		coreApp.Logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

// parseFlags builds the configuration from defaults, an optional -config file
// and explicitly set flags, in increasing precedence.
func parseFlags(args []string, output io.Writer) (appconf.Config, error) {
	fs := flag.NewFlagSet("busboard", flag.ContinueOnError)
	fs.SetOutput(output)

	def := appconf.Default()
	var (
		configPath     = fs.String("config", "", "path to a JSON or YAML config file")
		port           = fs.Int("port", def.Port, "API server port")
		env            = fs.String("env", def.Env.String(), "environment (development|test|production)")
		verbose        = fs.Bool("verbose", false, "enable debug logging")
		logLevel       = fs.String("log-level", def.LogLevel, "log level (debug|info|warn|error)")
		rateLimit      = fs.Int("rate-limit", def.RateLimit, "requests per second per client, 0 disables limiting")
		rateExempt     = fs.String("rate-limit-exempt", "", "comma separated client addresses exempt from rate limiting")
		baseURL        = fs.String("base-url", def.BaseURL, "upstream ETA API base URL")
		requestTimeout = fs.Duration("request-timeout", def.RequestTimeout, "timeout of one upstream request")
		upstreamRate   = fs.Float64("upstream-rate", def.UpstreamRatePerSecond, "upstream requests per second, 0 is unlimited")
		retryAttempts  = fs.Int("retry-attempts", def.RetryAttempts, "attempts for the route catalog fetch")
		retryDelay     = fs.Duration("retry-delay", def.RetryDelay, "delay between attempts")
		catalogTTL     = fs.Duration("catalog-ttl", def.CatalogTTL, "how long the route catalog is cached")
		language       = fs.String("language", def.Language, "display language (tc|en)")
	)
	if err := fs.Parse(args); err != nil {
		return appconf.Config{}, err
	}

	cfg := def
	if *configPath != "" {
		fileCfg, err := appconf.LoadFromFile(*configPath)
		if err != nil {
			return appconf.Config{}, err
		}
		cfg = fileCfg.ToAppConfig()
	}

	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "env":
			e, err := appconf.EnvFlagToEnvironment(*env)
			if err != nil {
				flagErr = err
				return
			}
			cfg.Env = e
		case "verbose":
			cfg.Verbose = *verbose
		case "log-level":
			cfg.LogLevel = *logLevel
		case "rate-limit":
			cfg.RateLimit = *rateLimit
		case "rate-limit-exempt":
			cfg.RateLimitExempt = ParseAddrList(*rateExempt)
		case "base-url":
			cfg.BaseURL = strings.TrimRight(*baseURL, "/")
		case "request-timeout":
			cfg.RequestTimeout = *requestTimeout
		case "upstream-rate":
			cfg.UpstreamRatePerSecond = *upstreamRate
		case "retry-attempts":
			cfg.RetryAttempts = *retryAttempts
		case "retry-delay":
			cfg.RetryDelay = *retryDelay
		case "catalog-ttl":
			cfg.CatalogTTL = *catalogTTL
		case "language":
			cfg.Language = *language
		}
	})
	if flagErr != nil {
		return appconf.Config{}, flagErr
	}
	return cfg, nil
}
