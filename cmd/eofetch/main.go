// SPDX-License-Identifier: MIT

// Command eofetch locates and downloads Sentinel-1 orbit auxiliary
// files (EOF) for local products, an explicit product name, or a given
// acquisition time. With the serve subcommand it answers orbit queries
// over HTTP instead.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/perigee-io/eofetch/internal/asf"
	"github.com/perigee-io/eofetch/internal/catalog"
	"github.com/perigee-io/eofetch/internal/config"
	"github.com/perigee-io/eofetch/internal/dataspace"
	"github.com/perigee-io/eofetch/internal/download"
	xlog "github.com/perigee-io/eofetch/internal/log"
	"github.com/perigee-io/eofetch/internal/orbit"
	"github.com/perigee-io/eofetch/internal/product"
	"github.com/perigee-io/eofetch/internal/scrape"
	"github.com/perigee-io/eofetch/internal/server"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "serve":
			os.Exit(runServe(os.Args[2:]))
		case "orbtiming":
			os.Exit(runOrbTiming(os.Args[2:]))
		}
	}
	os.Exit(run(os.Args[1:]))
}

type options struct {
	searchPath   string
	saveDir      string
	sentinelFile string
	date         string
	mission      string
	orbitType    string
	forceASF     bool
	maxWorkers   int
	cdseToken    string
	cdseUser     string
	cdsePassword string
	cdse2FA      string
	netrcFile    string
	configPath   string
	debug        bool
	showVersion  bool
}

func parseFlags(fs *flag.FlagSet, args []string) (options, error) {
	var o options
	fs.StringVar(&o.searchPath, "search-path", ".", "directory to scan for Sentinel-1 products")
	fs.StringVar(&o.saveDir, "save-dir", "", "directory to save orbit files into (default: config or .)")
	fs.StringVar(&o.sentinelFile, "sentinel-file", "", "single Sentinel-1 product name or path to fetch orbits for")
	fs.StringVar(&o.date, "date", "", "acquisition date or datetime to fetch an orbit for")
	fs.StringVar(&o.mission, "mission", "", "mission (S1A, S1B or S1C), requires -date")
	fs.StringVar(&o.orbitType, "orbit-type", "", "orbit file kind: precise or restituted")
	fs.BoolVar(&o.forceASF, "force-asf", false, "skip the Copernicus Data Space backend")
	fs.IntVar(&o.maxWorkers, "max-workers", 0, "concurrent downloads (default: config)")
	fs.StringVar(&o.cdseToken, "cdse-token", "", "Copernicus Data Space access token")
	fs.StringVar(&o.cdseUser, "cdse-user", "", "Copernicus Data Space username")
	fs.StringVar(&o.cdsePassword, "cdse-password", "", "Copernicus Data Space password")
	fs.StringVar(&o.cdse2FA, "cdse-2fa", "", "Copernicus Data Space one-time 2FA code")
	fs.StringVar(&o.netrcFile, "netrc-file", "", "netrc file with Copernicus Data Space credentials")
	fs.StringVar(&o.configPath, "config", "", "path to config file (YAML)")
	fs.BoolVar(&o.debug, "debug", false, "enable debug logging")
	fs.BoolVar(&o.showVersion, "version", false, "print version and exit")
	err := fs.Parse(args)
	return o, err
}

// applyFlags lays explicitly set flags over the loaded config.
func applyFlags(cfg *config.Config, fs *flag.FlagSet, o options) {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if set["save-dir"] {
		cfg.SaveDir = o.saveDir
	}
	if set["orbit-type"] {
		cfg.OrbitKind = orbit.Kind(o.orbitType)
	}
	if set["force-asf"] {
		cfg.ForceASF = o.forceASF
	}
	if set["max-workers"] {
		cfg.MaxWorkers = o.maxWorkers
	}
	if set["cdse-token"] {
		cfg.CDSEToken = o.cdseToken
	}
	if set["cdse-user"] {
		cfg.CDSEUser = o.cdseUser
	}
	if set["cdse-password"] {
		cfg.CDSEPassword = o.cdsePassword
	}
	if set["cdse-2fa"] {
		cfg.CDSE2FA = o.cdse2FA
	}
	if set["netrc-file"] {
		cfg.NetrcFile = o.netrcFile
	}
	if set["debug"] && o.debug {
		cfg.LogLevel = "debug"
	}
}

func run(args []string) int {
	fs := flag.NewFlagSet("eofetch", flag.ExitOnError)
	o, err := parseFlags(fs, args)
	if err != nil {
		return 2
	}
	if o.showVersion {
		fmt.Printf("eofetch %s (commit: %s, built: %s)\n", version, commit, buildDate)
		return 0
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	applyFlags(&cfg, fs, o)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	xlog.Configure(xlog.Config{Level: cfg.LogLevel, Service: "eofetch", Version: version})
	logger := xlog.WithComponent("cli")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reqs, err := buildRequests(o, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("cannot determine orbit requests")
		return 1
	}
	if len(reqs) == 0 {
		logger.Info().Msg("no Sentinel-1 products need orbit files, nothing to do")
		return 0
	}

	orch := buildOrchestrator(cfg)
	paths, unresolved, err := orch.Run(ctx, reqs, cfg.OrbitKind)
	for _, p := range paths {
		fmt.Println(p)
	}
	if err != nil {
		logger.Error().Err(err).Msg("orbit download failed")
		return 1
	}
	for _, miss := range unresolved {
		logger.Warn().
			Str(xlog.FieldMission, string(miss.Mission)).
			Time("target", miss.Time).
			Msg("no orbit file covers this acquisition yet")
	}

	logger.Info().
		Int("downloaded", len(paths)).
		Int("unresolved", len(unresolved)).
		Msg("done")
	return 0
}

// buildRequests determines what to fetch: an explicit product, an
// explicit instant, or whatever products in the search path still miss
// an orbit file on disk.
func buildRequests(o options, cfg config.Config) ([]orbit.Request, error) {
	switch {
	case o.sentinelFile != "":
		p, err := product.Parse(o.sentinelFile)
		if err != nil {
			return nil, err
		}
		return []orbit.Request{{Time: p.StartTime, Mission: p.Mission}}, nil

	case o.mission != "" && o.date == "":
		return nil, errors.New("-mission requires -date")

	case o.date != "":
		t, err := parseDate(o.date)
		if err != nil {
			return nil, err
		}
		if o.mission == "" {
			// No mission given: ask for every known mission and let the
			// misses fall out as unresolved.
			return []orbit.Request{
				{Time: t, Mission: product.S1A},
				{Time: t, Mission: product.S1B},
				{Time: t, Mission: product.S1C},
			}, nil
		}
		m := product.Mission(o.mission)
		if !m.Valid() {
			return nil, fmt.Errorf("unknown mission %q (want S1A, S1B or S1C)", o.mission)
		}
		return []orbit.Request{{Time: t, Mission: m}}, nil

	default:
		products, err := download.FindProducts(o.searchPath)
		if err != nil {
			return nil, err
		}
		local, err := download.FindLocalOrbits(cfg.SaveDir)
		if err != nil {
			return nil, err
		}
		return download.MissingRequests(products, local, cfg.OrbitKind), nil
	}
}

// parseDate accepts a handful of date and datetime layouts. A bare date
// is moved to 23:00 so the request lands inside the day's last orbit
// file rather than on a validity boundary.
func parseDate(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "20060102T150405", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	for _, layout := range []string{"2006-01-02", "20060102"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Add(23 * time.Hour), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}

func buildOrchestrator(cfg config.Config) *download.Orchestrator {
	logger := xlog.WithComponent("cli")

	var sources []download.Source
	if !cfg.ForceASF {
		creds := dataspace.Credentials{
			AccessToken: cfg.CDSEToken,
			Username:    cfg.CDSEUser,
			Password:    cfg.CDSEPassword,
			TOTP:        cfg.CDSE2FA,
			NetrcFile:   cfg.NetrcFile,
		}
		sources = append(sources, download.NewQuerySource(dataspace.New(creds)))
	}

	var store catalog.Store
	fc, err := catalog.NewFileCache(cfg.CacheDir)
	if err != nil {
		logger.Warn().Err(err).Str(xlog.FieldCacheDir, cfg.CacheDir).
			Msg("filename cache unavailable, continuing without it")
	} else {
		store = fc
	}
	sources = append(sources, download.NewListingSource(asf.New(), store))
	if cfg.ScrapeURL != "" {
		sources = append(sources, download.NewScrapeSource(scrape.New(cfg.ScrapeURL), nil))
	}

	fetcher := download.NewFetcher(cfg.SaveDir, cfg.MaxWorkers)
	return download.NewOrchestrator(fetcher, sources...)
}

// runOrbTiming converts the state vectors of a downloaded EOF file into
// the flat orbtiming text format.
func runOrbTiming(args []string) int {
	fs := flag.NewFlagSet("eofetch orbtiming", flag.ExitOnError)
	in := fs.String("in", "", "EOF file to read")
	out := fs.String("out", "", "output file (default: stdout)")
	minRaw := fs.String("min", "", "drop state vectors before this time")
	maxRaw := fs.String("max", "", "drop state vectors after this time")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *in == "" {
		fmt.Fprintln(os.Stderr, "orbtiming: -in is required")
		return 2
	}

	var min, max time.Time
	var err error
	if *minRaw != "" {
		if min, err = parseDate(*minRaw); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
	}
	if *maxRaw != "" {
		if max, err = parseDate(*maxRaw); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
	}

	f, err := os.Open(*in)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer f.Close()

	vectors, err := orbit.ParseStateVectors(f, min, max)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	w := os.Stdout
	if *out != "" {
		w, err = os.Create(*out)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		defer w.Close()
	}
	if err := orbit.WriteOrbTiming(w, vectors); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("eofetch serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file (YAML)")
	listen := fs.String("listen", "", "listen address (default: config)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *listen != "" {
		cfg.Listen = *listen
	}

	xlog.Configure(xlog.Config{Level: cfg.LogLevel, Service: "eofetch", Version: version})
	logger := xlog.WithComponent("serve")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	holder := config.NewHolder(cfg, *configPath)
	if err := holder.Watch(ctx); err != nil {
		logger.Warn().Err(err).Msg("config watcher unavailable, hot reload disabled")
	}

	var store catalog.Store
	if fc, err := catalog.NewFileCache(cfg.CacheDir); err == nil {
		store = fc
	}
	source := download.NewListingSource(asf.New(), store)

	srv := server.New(server.Config{
		Listen:       cfg.Listen,
		RateLimit:    cfg.RateLimit,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}, source)

	logger.Info().Str("addr", cfg.Listen).Msg("starting orbit query service")
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("server exited")
		return 1
	}
	return 0
}
