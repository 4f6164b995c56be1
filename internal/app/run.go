package app

import (
	"context"
	"fmt"

	"github.com/vk/gribdef/internal/dumper"
	"github.com/vk/gribdef/internal/fsutil"
	"github.com/vk/gribdef/internal/grib"
)

// Run executes the main application logic based on the app's configuration.
func (a *App) Run(ctx context.Context) error {
	ctx = a.withLogger(ctx)
	a.logger.Debug("App.Run method started.")
	defer a.logger.Debug("App.Run method finished.")

	if a.config.CheckOnly {
		return a.Check(ctx)
	}

	data, err := readMessage(a.config.InputPath)
	if err != nil {
		return fmt.Errorf("failed to read message: %w", err)
	}
	a.logger.Debug("Message read.", "path", a.config.InputPath, "bytes", len(data))

	var opts []grib.HandleOption
	if a.config.Partial {
		opts = append(opts, grib.WithPartial())
	}
	h, err := grib.NewHandle(ctx, a.context, data, opts...)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", a.config.InputPath, err)
	}
	defer h.Close()

	if len(a.config.Keys) > 0 {
		return a.printKeys(h)
	}
	d := dumper.NewText(a.outW, a.config.DumpHidden)
	h.Dump(d)
	return d.Err()
}

func (a *App) printKeys(h *grib.Handle) error {
	for _, key := range a.config.Keys {
		v, err := h.GetString(key)
		if err != nil {
			return fmt.Errorf("key %s: %w", key, err)
		}
		if _, err := fmt.Fprintf(a.outW, "%s=%s\n", key, v); err != nil {
			return err
		}
	}
	return nil
}

// Check parses every definition file found on the search path. Files that
// are not statement programs are tried as concept files.
func (a *App) Check(ctx context.Context) error {
	var checked int
	for _, dir := range a.config.SearchPath() {
		files, err := fsutil.FindFilesByExtension(dir, ".hcl")
		if err != nil {
			return fmt.Errorf("failed to list definitions in %s: %w", dir, err)
		}
		for _, f := range files {
			if _, err := a.parser.ParseDefinitions(f); err != nil {
				if _, cerr := a.parser.ParseConcepts(f); cerr != nil {
					return fmt.Errorf("invalid definition file %s: %w", f, err)
				}
			}
			checked++
		}
	}
	a.logger.Info("Definitions checked.", "files", checked)
	_, err := fmt.Fprintf(a.outW, "%d definition files OK\n", checked)
	return err
}
