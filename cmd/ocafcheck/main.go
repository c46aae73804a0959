package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/S0me0neR0man/xmlocaf/internal/app"
	"github.com/S0me0neR0man/xmlocaf/internal/client"
	"github.com/S0me0neR0man/xmlocaf/internal/config"
	"github.com/S0me0neR0man/xmlocaf/internal/roundtrip"
	"github.com/S0me0neR0man/xmlocaf/internal/token"
	"github.com/S0me0neR0man/xmlocaf/internal/xmldrivers"
	"github.com/S0me0neR0man/xmlocaf/internal/xmlldrivers"
)

type options struct {
	addr     string
	format   string
	samples  int
	workers  uint
	seed     int64
	secret   string
	keep     bool
	noShapes bool
	validate bool
	watch    string
	verbose  bool
}

func parseOptions() options {
	var o options
	flag.StringVar(&o.addr, "ADDR", "127.0.0.1:3200", "server address")
	flag.StringVar(&o.format, "FORMAT", xmldrivers.FormatName, "format of generated documents")
	flag.IntVar(&o.samples, "SAMPLES", 100, "documents to check, 0 - until interrupted")
	flag.UintVar(&o.workers, "WORKERS", 2, "goroutines per stage")
	flag.Int64Var(&o.seed, "SEED", time.Now().UnixNano(), "generator seed")
	flag.StringVar(&o.secret, "TOKEN_SECRET", "", "JWT signing secret of the server")
	flag.BoolVar(&o.keep, "KEEP", false, "leave checked documents on the server")
	flag.BoolVar(&o.noShapes, "NO_SHAPES", false, "generate documents without shapes")
	flag.BoolVar(&o.validate, "VALIDATE", false, "validate the document files given as arguments")
	flag.StringVar(&o.watch, "WATCH", "", "validate documents written to this directory")
	flag.BoolVar(&o.verbose, "V", false, "debug logging")
	flag.Parse()
	return o
}

func main() {
	o := parseOptions()
	level := zapcore.InfoLevel
	if o.verbose {
		level = zapcore.DebugLevel
	}
	logger := config.NewLogger(level)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	a := app.New(logger)
	xmldrivers.DefineFormat(a)
	xmlldrivers.DefineFormat(a)

	var err error
	switch {
	case o.validate:
		err = validateFiles(a, flag.Args(), logger)
	case o.watch != "":
		err = watch(ctx, a, o.watch, logger)
	default:
		err = check(ctx, a, o, logger)
	}
	if err != nil {
		logger.Sugar().Errorw("ocafcheck", "err", err)
		os.Exit(1)
	}
}

func check(ctx context.Context, a *app.Application, o options, logger *zap.Logger) error {
	var c *client.GRPCClient
	var err error
	if o.secret != "" {
		c, err = client.NewGRPClient(o.addr, token.NewTokens(o.secret, "ocafcheck", time.Hour))
	} else {
		c, err = client.NewGRPClient(o.addr, nil)
	}
	if err != nil {
		return err
	}
	defer c.Close()

	sv, err := roundtrip.NewChecker(c, a, roundtrip.CheckerOptions{
		Format:     o.format,
		WithShapes: !o.noShapes && o.format == xmldrivers.FormatName,
		Seed:       o.seed,
		GoCount:    o.workers,
		Keep:       o.keep,
	}, logger)
	if err != nil {
		return err
	}

	stats, err := sv.Run(ctx, o.samples)
	fmt.Fprintf(os.Stdout, "seed=%d %s\n", o.seed, stats)
	if err != nil {
		return err
	}
	if stats.Failed > 0 || stats.Mismatched > 0 {
		return fmt.Errorf("%d of %d documents did not survive the round trip", stats.Failed+stats.Mismatched, stats.Produced)
	}
	return nil
}
