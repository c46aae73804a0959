package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/S0me0neR0man/xmlocaf/internal/app"
	"github.com/S0me0neR0man/xmlocaf/internal/config"
	"github.com/S0me0neR0man/xmlocaf/internal/docstore"
	"github.com/S0me0neR0man/xmlocaf/internal/server"
	"github.com/S0me0neR0man/xmlocaf/internal/shapes"
	"github.com/S0me0neR0man/xmlocaf/internal/xmldrivers"
	"github.com/S0me0neR0man/xmlocaf/internal/xmlldrivers"
)

func main() {
	conf, err := config.NewConfig("ocafd", os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := config.NewLogger(conf.Level())
	defer func() { _ = logger.Sync() }()

	if err := run(conf, logger); err != nil {
		logger.Sugar().Errorw("ocafd", "err", err)
		os.Exit(1)
	}
}

func run(conf *config.Config, logger *zap.Logger) error {
	a := app.New(logger)
	xmlldrivers.DefineFormat(a)
	if conf.Copyright != "" {
		xmldrivers.DefineFormatWith(a, shapes.MeshKernel{}, conf.Copyright)
	} else {
		xmldrivers.DefineFormat(a)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	store := docstore.New(a, conf.StoreDir, logger)
	if conf.Restore {
		if _, err := store.Restore(ctx); err != nil {
			logger.Sugar().Warnw("restore", "err", err)
		}
	}

	s := server.NewDocumentServer(store, a, conf, logger)
	err := s.Start(ctx)
	stop()
	s.Wait()
	return err
}
