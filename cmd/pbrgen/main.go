// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Command pbrgen derives PBR texture maps from base color images.
//
// Usage:
//
//	pbrgen [-workflow base|diffuse] [-out dir] [-cpu] [-accel gpu|tiles|none]
//	       [-workers n] [-diffuse] [-config file.toml] [-watch] [-v] image...
//
// For every input image it writes <name>_<Map>.png files to the output
// directory. With -watch it keeps running and regenerates a map set
// whenever its input file is written.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/gogpu/pbr"
	_ "github.com/gogpu/pbr/gpu" // enable GPU acceleration
)

func main() {
	var (
		workflow   = flag.String("workflow", "base", "map workflow: base (metallic/roughness) or diffuse (specular/glossiness)")
		out        = flag.String("out", ".", "output directory")
		cpu        = flag.Bool("cpu", false, "disable acceleration (same as -accel none)")
		accel      = flag.String("accel", accelGPU, "accelerator: gpu, tiles or none")
		workers    = flag.Int("workers", 0, "concurrent map conversions (0 = GOMAXPROCS)")
		diffuseMap = flag.Bool("diffuse", false, "also write the Diffuse map")
		configPath = flag.String("config", "", "TOML configuration file")
		watch      = flag.Bool("watch", false, "regenerate when an input file changes")
		verbose    = flag.Bool("v", false, "verbose (debug) logging")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: pbrgen [flags] image...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	pbr.SetLogger(logger)

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Error("pbrgen: config", "err", err)
		os.Exit(1)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "workflow":
			if err == nil {
				cfg.Workflow, err = pbr.ParseWorkflow(*workflow)
			}
		case "out":
			cfg.Out = *out
		case "accel":
			cfg.Accel = *accel
		case "cpu":
			if *cpu {
				cfg.Accel = accelNone
			}
		case "workers":
			cfg.Workers = *workers
		case "diffuse":
			cfg.DiffuseMap = *diffuseMap
		}
	})
	if err == nil {
		err = cfg.validate()
	}
	if err != nil {
		logger.Error("pbrgen: flags", "err", err)
		os.Exit(2)
	}

	if err := selectAccelerator(cfg); err != nil {
		logger.Error("pbrgen: accelerator", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	failed := false
	for _, path := range flag.Args() {
		if err := generate(ctx, cfg, logger, path); err != nil {
			logger.Error("pbrgen: generate", "input", path, "err", err)
			failed = true
		}
	}

	if *watch {
		if err := watchInputs(ctx, cfg, logger, flag.Args()); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("pbrgen: watch", "err", err)
			os.Exit(1)
		}
		return
	}
	if failed {
		os.Exit(1)
	}
}

// selectAccelerator applies the accel setting to the process-wide registry.
func selectAccelerator(cfg Config) error {
	switch cfg.Accel {
	case accelNone:
		pbr.SetAcceleration(false)
	case accelTiles:
		return pbr.RegisterAccelerator(pbr.NewTileAccelerator(cfg.Workers))
	}
	return nil
}

// generate writes the map set of one input image.
func generate(ctx context.Context, cfg Config, logger *slog.Logger, path string) error {
	base, err := loadImage(path)
	if err != nil {
		return err
	}

	g := pbr.NewGenerator(append(cfg.options(), pbr.WithLogger(logger))...)
	defer g.Close()

	run, err := g.GenerateAll(ctx, base, cfg.Workflow)
	if err != nil {
		return err
	}
	set, err := run.Wait(ctx)
	if err != nil {
		return err
	}
	for kind, ferr := range set.Failures {
		logger.Warn("pbrgen: map not generated", "input", path, "kind", kind, "err", ferr)
	}
	if cfg.DiffuseMap {
		if _, err := g.Convert(ctx, pbr.Diffuse, base); err != nil {
			logger.Warn("pbrgen: map not generated", "input", path, "kind", pbr.Diffuse, "err", err)
		}
	}

	written, err := g.ExportAll(cfg.Out, baseName(path))
	for _, w := range written {
		logger.Info("pbrgen: wrote", "file", w)
	}
	return err
}

func loadImage(path string) (*pbr.Raster, error) {
	f, err := os.Open(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return pbr.FromImage(img), nil
}

// baseName returns the file name without directory and extension.
func baseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// watchInputs regenerates an input's maps whenever the file is written or
// replaced. Directories are watched rather than files so that editors
// saving through a rename are seen.
func watchInputs(ctx context.Context, cfg Config, logger *slog.Logger, paths []string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	inputs := make(map[string]string, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		inputs[abs] = p
		if err := w.Add(filepath.Dir(abs)); err != nil {
			return err
		}
	}
	logger.Info("pbrgen: watching", "inputs", len(inputs))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("pbrgen: watcher", "err", err)
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			path, ok := inputs[ev.Name]
			if !ok {
				continue
			}
			logger.Debug("pbrgen: input changed", "input", path, "op", ev.Op)
			if err := generate(ctx, cfg, logger, path); err != nil {
				logger.Error("pbrgen: generate", "input", path, "err", err)
			}
		}
	}
}
