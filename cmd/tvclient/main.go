package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/tradevortex-client/apiclient"
	"github.com/jrsteele09/tradevortex-client/internal/config"
	"github.com/jrsteele09/tradevortex-client/sessions"
	"github.com/jrsteele09/tradevortex-client/storage"
	"github.com/jrsteele09/tradevortex-client/token/refresh"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) (exitCode int) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			exitCode = 2
		}
	}()

	global := flag.NewFlagSet("tvclient", flag.ContinueOnError)
	configPath := global.String("config", "tvclient.toml", "optional TOML config file")
	global.Usage = func() { usage(global) }
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		global.Usage()
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	configureLogging(cfg)

	cmd, ok := commands[global.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", global.Arg(0))
		global.Usage()
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to start")
		return 1
	}
	defer app.close()

	if err := cmd.run(ctx, app, global.Args()[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 2
		}
		fmt.Fprintf(os.Stderr, "%s: %s\n", global.Arg(0), err)
		return 1
	}
	return 0
}

func configureLogging(cfg config.Config) {
	level, err := zerolog.ParseLevel(cfg.GetLogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// app holds what every command needs: the client and its storage
type app struct {
	cfg    config.Config
	kv     storage.KV
	store  *sessions.PersistedStore
	client *apiclient.Client
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	kv, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage.Open: %w", err)
	}
	store := sessions.NewPersistedStore(kv)

	httpClient := &http.Client{Timeout: cfg.GetRequestTimeout()}
	exchanger, err := refresh.FromConfig(ctx, cfg, httpClient)
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("refresh.FromConfig: %w", err)
	}

	loginPath := cfg.GetLoginPath()
	client, err := apiclient.New(cfg.GetAPIBaseURL(), store, exchanger,
		apiclient.WithTimeout(cfg.GetRequestTimeout()),
		apiclient.WithSingleFlight(cfg.GetSingleFlightRefresh()),
		apiclient.WithOnSessionExpired(func(context.Context) {
			fmt.Fprintf(os.Stderr, "Session expired. Log in again (%s).\n", loginPath)
		}),
	)
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("apiclient.New: %w", err)
	}
	return &app{cfg: cfg, kv: kv, store: store, client: client}, nil
}

func (a *app) close() {
	if err := a.kv.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close storage")
	}
}

func usage(fs *flag.FlagSet) {
	displayAppname(config.New().GetAppName())
	fmt.Fprintf(os.Stderr, "Usage: tvclient [-config file] <command> [flags]\n\nCommands:\n")
	for _, name := range commandOrder {
		fmt.Fprintf(os.Stderr, "  %-13s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(os.Stderr)
	fs.PrintDefaults()
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
