// Command depthcap runs the depth composite pipeline headless on the software renderer and
// writes every capture as an OpenEXR depth file plus the last rendered frame.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-depth/engine"
	"github.com/Carmen-Shannon/oxy-depth/engine/app"
	"github.com/Carmen-Shannon/oxy-depth/engine/config"
	"github.com/Carmen-Shannon/oxy-depth/engine/export"
	"github.com/Carmen-Shannon/oxy-depth/engine/window"
)

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "depthcap: %v\n", err)
		}
		os.Exit(1)
	}
}

type options struct {
	configFile string
	preset     string
	frames     int
	outDir     string
	viewer     bool
	light      string
	width      int
	height     int
	format     string
	verbose    bool
	set        map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("depthcap", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configFile, "config", "", "Path to a TOML config file")
	fs.StringVar(&o.preset, "preset", "", "Base preset: directional or orthographic_only")
	fs.IntVar(&o.frames, "frames", 1, "Number of frames to draw")
	fs.StringVar(&o.outDir, "out", "out", "Output directory")
	fs.BoolVar(&o.viewer, "viewer", true, "Draw the frame from the viewer (false: from the observer)")
	fs.StringVar(&o.light, "light", "", "Light position as x,y,z")
	fs.IntVar(&o.width, "width", 800, "Frame width in pixels (default from config)")
	fs.IntVar(&o.height, "height", 600, "Frame height in pixels (default from config)")
	fs.StringVar(&o.format, "format", "webp", "Frame format: webp or png")
	fs.BoolVar(&o.verbose, "v", false, "Debug logging")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	o.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })

	if o.frames < 1 {
		return o, fmt.Errorf("-frames must be at least 1, got %d", o.frames)
	}
	if o.format != "webp" && o.format != "png" {
		return o, fmt.Errorf("-format must be webp or png, got %q", o.format)
	}
	return o, nil
}

// parseVec3 parses "x,y,z".
func parseVec3(s string) (x, y, z float32, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("want x,y,z, got %q", s)
	}
	var v [3]float32
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("parse %q: %w", s, err)
		}
		v[i] = float32(f)
	}
	return v[0], v[1], v[2], nil
}

func loadConfig(o options) (config.Config, error) {
	base := config.Default()
	if o.preset != "" {
		p, err := config.Preset(o.preset)
		if err != nil {
			return config.Config{}, err
		}
		base = p
	}

	overrides := []config.Option{config.WithBackend("software")}
	if o.set["width"] || o.set["height"] {
		overrides = append(overrides, config.WithWindowSize(o.width, o.height))
	}
	if o.set["viewer"] {
		overrides = append(overrides, config.WithViewerActive(o.viewer))
	}
	if o.light != "" {
		x, y, z, err := parseVec3(o.light)
		if err != nil {
			return config.Config{}, fmt.Errorf("-light: %w", err)
		}
		overrides = append(overrides, config.WithLightPosition(x, y, z))
	}

	if o.configFile != "" {
		return config.LoadOver(base, o.configFile, overrides...)
	}
	cfg := base.Apply(overrides...)
	return cfg, cfg.Validate()
}

func run(args []string, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(o)
	if err != nil {
		return err
	}

	win := window.NewWindow(
		window.WithHeadless(),
		window.WithTitle(cfg.WindowTitle),
		window.WithSize(cfg.WindowWidth, cfg.WindowHeight),
		window.WithSizeLimits(1, 1, 8192, 8192),
		window.WithFrameLimit(o.frames),
	)
	ctx, err := app.NewContext(cfg, win, app.WithLogger(logger))
	if err != nil {
		return err
	}
	defer ctx.Close()

	e := engine.NewEngine(win, ctx, engine.WithLogger(logger), engine.WithProfiling(o.verbose))
	if err := e.Run(); err != nil {
		if errors.Is(err, engine.ErrDisabled) {
			return fmt.Errorf("%s", ctx.Message())
		}
		return err
	}

	return writeOutputs(ctx, o.outDir, o.format, logger)
}

// writeOutputs writes depth_<i>.exr for every registry entry and frame.<format>.
func writeOutputs(ctx app.Context, dir, format string, logger *slog.Logger) error {
	for i, tex := range ctx.Registry().Textures() {
		path := filepath.Join(dir, fmt.Sprintf("depth_%d.exr", i))
		if err := export.WriteDepthEXR(path, tex); err != nil {
			return err
		}
		logger.Info("wrote depth", "path", path, "width", tex.Width(), "height", tex.Height())
	}

	img, err := ctx.Renderer().ReadFrame()
	if err != nil {
		return err
	}
	path := filepath.Join(dir, "frame."+format)
	if err := export.WriteFrame(path, format, img); err != nil {
		return err
	}
	logger.Info("wrote frame", "path", path, "frames", ctx.Frames())
	return nil
}
