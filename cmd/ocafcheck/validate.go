package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/S0me0neR0man/xmlocaf/internal/app"
	"github.com/S0me0neR0man/xmlocaf/internal/roundtrip"
)

func printReport(r roundtrip.Report, err error) {
	if err != nil {
		fmt.Fprintf(os.Stdout, "FAIL %s: %v\n", r.Path, err)
		return
	}
	fmt.Fprintf(os.Stdout, "ok   %s: %s v%d, %d labels, %d attributes, %d warnings\n",
		r.Path, r.Format, r.Version, r.Labels, r.Attributes, len(r.Warnings))
	for _, w := range r.Warnings {
		fmt.Fprintf(os.Stdout, "     %s: %s\n", w.Gravity, w.Text)
	}
}

func validateFiles(a *app.Application, paths []string, logger *zap.Logger) error {
	if len(paths) == 0 {
		return errors.New("no files to validate")
	}
	failed := 0
	for _, p := range paths {
		r, err := roundtrip.ValidateFile(a, p, nil)
		printReport(r, err)
		if err != nil {
			failed++
		}
	}
	logger.Sugar().Debugw("validated", "files", len(paths), "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}
	return nil
}

// watch validates every .xml file created or rewritten in dir until ctx is done
func watch(ctx context.Context, a *app.Application, dir string, logger *zap.Logger) error {
	sugar := logger.Sugar()
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	if err := w.Add(dir); err != nil {
		return err
	}
	sugar.Infow("watching", "dir", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}
			// atomic saves go through hidden temp files
			name := filepath.Base(event.Name)
			if strings.HasPrefix(name, ".") || filepath.Ext(name) != ".xml" {
				continue
			}
			if _, err := os.Stat(event.Name); err != nil {
				continue
			}
			printReport(roundtrip.ValidateFile(a, event.Name, nil))
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			sugar.Warnw("watch", "err", err)
		}
	}
}
