package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kardianos/service"
	"github.com/rs/zerolog"

	"github.com/openclaw/quotatop/cli/internal/config"
	"github.com/openclaw/quotatop/cli/internal/output"
	"github.com/openclaw/quotatop/cli/internal/sync"
	"github.com/openclaw/quotatop/internal/aggregate"
	"github.com/openclaw/quotatop/internal/pricing"
)

const version = "0.1.0"

func main() {
	command := "report"
	args := os.Args[1:]

	if len(args) > 0 {
		switch args[0] {
		case "report", "status", "init", "daily", "sync", "config":
			command = args[0]
			args = args[1:]
		case "--help", "-h", "help":
			usage()
			return
		case "--version", "-v":
			fmt.Printf("quotatop version %s\n", version)
			return
		}
	}

	switch command {
	case "report":
		runReport(args)
	case "status":
		runStatus(args)
	case "init":
		runInit(args)
	case "daily":
		runDaily(args)
	case "sync":
		runSync(args)
	case "config":
		runConfig(args)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `quotatop - AI subscription quota and usage tracker

Usage: quotatop [command] [options]

Commands:
  report    Show the full quota report for a day (default)
  status    Quick quota status
  daily     Show per-day usage table
  init      Write the default configuration file
  sync      Push day aggregates to a quotatop server
  config    Configure sync settings

Examples:
  quotatop
  quotatop report --date 2026-08-29
  quotatop daily --json
  quotatop config --server https://example.com --api-key qt_xxx
  quotatop sync
`)
}

// commonFlags registers the flags shared by the read commands and returns
// pointers the caller reads after parsing.
func commonFlags(fs *flag.FlagSet) (cfgPath, logDir, provider *string) {
	cfgPath = fs.String("config", "", "Config file path (default ~/.quotatop.yaml)")
	logDir = fs.String("logs", "", "Session log directory (overrides config)")
	provider = fs.String("provider", "claude_pro", "Pricing table to apply to session usage")
	return cfgPath, logDir, provider
}

func loadConfig(cfgPath string) (string, *config.Config) {
	path := cfgPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error resolving config path: %v\n", err)
			os.Exit(1)
		}
		path = p
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return path, cfg
}

func runReport(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	cfgPath, logDir, provider := commonFlags(fs)
	date := fs.String("date", "", "Target day (YYYY-MM-DD, default today)")
	all := fs.Bool("all", false, "Aggregate every record regardless of day")
	fs.Parse(args)

	_, cfg := loadConfig(*cfgPath)
	dir := cfg.LogDir
	if *logDir != "" {
		dir = *logDir
	}

	opts := aggregate.Options{Pricing: pricing.For(cfg.Pricing, *provider)}
	if !*all {
		if *date != "" {
			day, err := time.Parse("2006-01-02", *date)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: invalid --date, use YYYY-MM-DD\n")
				os.Exit(1)
			}
			opts.Day = day
		} else {
			opts.Day = time.Now()
		}
	}

	totals := aggregate.Sum(dir, opts)
	fmt.Print(output.Report(cfg.Quotas, totals, time.Now()))
}

func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Config file path (default ~/.quotatop.yaml)")
	fs.Parse(args)

	_, cfg := loadConfig(*cfgPath)
	fmt.Print(output.Status(cfg.Quotas, cfg.LastCheck))
}

func runInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Config file path (default ~/.quotatop.yaml)")
	fs.Parse(args)

	path, cfg := loadConfig(*cfgPath)
	cfg.LastCheck = time.Now()
	if err := config.Save(path, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Configuration written to %s\n", path)
	fmt.Print(output.Status(cfg.Quotas, cfg.LastCheck))
}

func runDaily(args []string) {
	fs := flag.NewFlagSet("daily", flag.ExitOnError)
	cfgPath, logDir, provider := commonFlags(fs)
	jsonOut := fs.Bool("json", false, "Output as JSON")
	compact := fs.Bool("compact", false, "Force compact table output")
	fs.Parse(args)

	_, cfg := loadConfig(*cfgPath)
	dir := cfg.LogDir
	if *logDir != "" {
		dir = *logDir
	}

	days := aggregate.ByDay(dir, pricing.For(cfg.Pricing, *provider))
	if *jsonOut {
		output.PrintJSON(days)
		return
	}
	output.PrintDailyTable(days, output.TableOptions{ForceCompact: *compact})
}

func runConfig(args []string) {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Config file path (default ~/.quotatop.yaml)")
	server := fs.String("server", "", "Server URL")
	apiKey := fs.String("api-key", "", "API key for authentication")
	logDir := fs.String("logs", "", "Session log directory")
	show := fs.Bool("show", false, "Show current configuration")
	fs.Parse(args)

	path, cfg := loadConfig(*cfgPath)

	if *show {
		if cfg.Server == "" {
			fmt.Println("No sync target configured. Run 'quotatop config --server <url> --api-key <key>'.")
		} else {
			fmt.Printf("Server: %s\n", cfg.Server)
			if len(cfg.APIKey) > 14 {
				fmt.Printf("API Key: %s...%s\n", cfg.APIKey[:10], cfg.APIKey[len(cfg.APIKey)-4:])
			}
			if cfg.ClientID != "" {
				fmt.Printf("Client ID: %s\n", cfg.ClientID)
			}
		}
		fmt.Printf("Log dir: %s\n", cfg.LogDir)
		return
	}

	if *server == "" && *apiKey == "" && *logDir == "" {
		fs.Usage()
		return
	}

	if *server != "" {
		cfg.Server = *server
	}
	if *apiKey != "" {
		cfg.APIKey = *apiKey
	}
	if *logDir != "" {
		cfg.LogDir = *logDir
	}

	if err := config.Save(path, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Configuration saved.")
}

// pushAgent implements service.Interface for the background push loop.
type pushAgent struct {
	cfgPath  string
	provider string
	interval time.Duration
	stop     chan struct{}
	log      zerolog.Logger
}

func (a *pushAgent) Start(svc service.Service) error {
	a.stop = make(chan struct{})
	go a.run()
	return nil
}

func (a *pushAgent) Stop(svc service.Service) error {
	close(a.stop)
	return nil
}

func (a *pushAgent) run() {
	a.pushOnce()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.pushOnce()
		case <-a.stop:
			return
		}
	}
}

func (a *pushAgent) pushOnce() {
	path := a.cfgPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			a.log.Error().Err(err).Msg("cannot resolve config path")
			return
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		a.log.Error().Err(err).Msg("cannot load config")
		return
	}
	if cfg.Server == "" || cfg.APIKey == "" {
		a.log.Error().Msg("not configured; run 'quotatop config' first")
		return
	}

	days := aggregate.ByDay(cfg.LogDir, pricing.For(cfg.Pricing, a.provider))
	if len(days) == 0 {
		a.log.Info().Msg("no usage to push")
		return
	}

	client := sync.NewClient(cfg)
	updated, err := client.Push(sync.FromDays(days))
	if err != nil {
		a.log.Error().Err(err).Msg("push failed")
		return
	}

	cfg.LastCheck = time.Now()
	if err := config.Save(path, cfg); err != nil {
		a.log.Warn().Err(err).Msg("cannot record last check")
	}
	a.log.Info().Int("days", len(days)).Int64("updated", updated).Msg("pushed usage")
}

func runSync(args []string) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Config file path (default ~/.quotatop.yaml)")
	provider := fs.String("provider", "claude_pro", "Pricing table to apply to session usage")
	dryRun := fs.Bool("dry-run", false, "Show what would be pushed without sending")
	interval := fs.Duration("interval", time.Hour, "Push interval for service mode (e.g., 1h, 30m)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: quotatop sync [command] [options]

Commands:
  (none)      Push once
  install     Install as a background service
  start       Start the background service
  stop        Stop the background service
  uninstall   Remove the background service
  status      Show service status

Options:
`)
		fs.PrintDefaults()
	}

	// Check for service commands before parsing flags
	var svcCommand string
	if len(args) > 0 {
		switch args[0] {
		case "install", "start", "stop", "uninstall", "status", "run":
			svcCommand = args[0]
			args = args[1:]
		}
	}

	fs.Parse(args)

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	svcConfig := &service.Config{
		Name:        "quotatop-push",
		DisplayName: "quotatop Push Service",
		Description: "Periodically pushes local usage aggregates to a quotatop server",
		Arguments:   []string{"sync", "run", fmt.Sprintf("--interval=%s", *interval)},
	}

	agent := &pushAgent{
		cfgPath:  *cfgPath,
		provider: *provider,
		interval: *interval,
		log:      logger,
	}
	s, err := service.New(agent, svcConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create service")
	}

	switch svcCommand {
	case "install":
		_, cfg := loadConfig(*cfgPath)
		if cfg.Server == "" || cfg.APIKey == "" {
			fmt.Fprintf(os.Stderr, "Error: not configured. Run 'quotatop config --server <url> --api-key <key>' first.\n")
			os.Exit(1)
		}
		if err := s.Install(); err != nil {
			logger.Fatal().Err(err).Msg("failed to install service")
		}
		if err := s.Start(); err != nil {
			logger.Fatal().Err(err).Msg("service installed but failed to start")
		}
		fmt.Printf("Service installed and started (interval %s).\n", *interval)

	case "start":
		if err := s.Start(); err != nil {
			logger.Fatal().Err(err).Msg("failed to start service")
		}
		fmt.Println("Service started.")

	case "stop":
		if err := s.Stop(); err != nil {
			logger.Fatal().Err(err).Msg("failed to stop service")
		}
		fmt.Println("Service stopped.")

	case "uninstall":
		s.Stop() // ignore error
		if err := s.Uninstall(); err != nil {
			logger.Fatal().Err(err).Msg("failed to uninstall service")
		}
		fmt.Println("Service uninstalled.")

	case "status":
		status, err := s.Status()
		if err != nil {
			fmt.Printf("Service status: not installed or error (%v)\n", err)
			return
		}
		switch status {
		case service.StatusRunning:
			fmt.Println("Service status: running")
		case service.StatusStopped:
			fmt.Println("Service status: stopped")
		default:
			fmt.Println("Service status: unknown")
		}

	case "run":
		if err := s.Run(); err != nil {
			logger.Error().Err(err).Msg("service run failed")
		}

	default:
		// One-time push
		path, cfg := loadConfig(*cfgPath)
		if cfg.Server == "" || cfg.APIKey == "" {
			fmt.Fprintf(os.Stderr, "Error: not configured. Run 'quotatop config --server <url> --api-key <key>' first.\n")
			os.Exit(1)
		}

		days := aggregate.ByDay(cfg.LogDir, pricing.For(cfg.Pricing, *provider))
		if len(days) == 0 {
			fmt.Println("No usage to push.")
			return
		}

		fmt.Printf("Found %d day aggregates to push.\n", len(days))
		if *dryRun {
			fmt.Println("Dry run - no data sent.")
			return
		}

		client := sync.NewClient(cfg)
		updated, err := client.Push(sync.FromDays(days))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error pushing: %v\n", err)
			os.Exit(1)
		}

		cfg.LastCheck = time.Now()
		if err := config.Save(path, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not record last check: %v\n", err)
		}
		fmt.Printf("Push complete. %d day rows updated.\n", updated)
	}
}
