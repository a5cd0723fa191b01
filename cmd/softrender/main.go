// softrender - CPU 3D renderer
// Renders scenes described in YAML, or a single OBJ/glTF model, to PNG files,
// the terminal or a desktop window.
//
// Terminal controls:
//
//	Mouse drag  - Orbit camera
//	Scroll      - Zoom in/out
//	W/S/A/D     - Orbit pitch and yaw
//	Space       - Random spin
//	R           - Reset view
//	X           - Toggle wireframe
//	B           - Toggle bounding boxes
//	G           - Toggle axes gizmo
//	+/-         - Adjust zoom
//	Esc, Q      - Quit
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/taigrr/softrender/pkg/render"
	"github.com/taigrr/softrender/pkg/scene"
)

var (
	scenePath  = flag.String("scene", "", "Scene file (YAML)")
	outPath    = flag.String("o", "out.png", "Output PNG path")
	width      = flag.Int("width", 0, "Override frame width")
	height     = flag.Int("height", 0, "Override frame height")
	scale      = flag.Int("scale", 1, "Integer upscale factor for saved images")
	frames     = flag.Int("frames", 1, "Render a turntable of this many frames")
	termMode   = flag.Bool("term", false, "View interactively in the terminal")
	windowMode = flag.Bool("window", false, "View in a desktop window")
	wireframe  = flag.Bool("wire", false, "Draw triangle edges only")
	axes       = flag.Float64("axes", 0, "Draw world axes of this length")
	grid       = flag.Float64("grid", 0, "Draw a ground grid of this extent")
	bounds     = flag.Bool("bounds", false, "Draw object bounding boxes")
	targetFPS  = flag.Int("fps", 30, "Target FPS for interactive views")
	debug      = flag.Bool("debug", false, "Log pipeline statistics to stderr")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "softrender - CPU 3D renderer\n\n")
		fmt.Fprintf(os.Stderr, "Usage: softrender [options] [model.obj|model.gltf|model.glb]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nTerminal controls:\n")
		fmt.Fprintf(os.Stderr, "  Mouse drag  - Orbit camera\n")
		fmt.Fprintf(os.Stderr, "  Scroll      - Zoom in/out\n")
		fmt.Fprintf(os.Stderr, "  W/S/A/D     - Orbit pitch and yaw\n")
		fmt.Fprintf(os.Stderr, "  Space       - Random spin\n")
		fmt.Fprintf(os.Stderr, "  R           - Reset view\n")
		fmt.Fprintf(os.Stderr, "  X           - Toggle wireframe\n")
		fmt.Fprintf(os.Stderr, "  B           - Toggle bounding boxes\n")
		fmt.Fprintf(os.Stderr, "  G           - Toggle axes gizmo\n")
		fmt.Fprintf(os.Stderr, "  +/-         - Adjust zoom\n")
		fmt.Fprintf(os.Stderr, "  Esc, Q      - Quit\n")
	}
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	render.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch {
	case *termMode:
		return runTerminal(ctx, cfg, *targetFPS)
	case *windowMode:
		return runWindow(cfg, *targetFPS)
	}
	return renderFiles(ctx, cfg)
}

// loadConfig reads the scene file, wraps a model path in a scene, or falls
// back to the built-in scene.
func loadConfig() (*scene.Config, error) {
	switch {
	case *scenePath != "":
		return scene.Load(*scenePath)
	case flag.NArg() > 0:
		return scene.ModelConfig(flag.Arg(0))
	}
	return scene.Default(), nil
}

func applyFlags(cfg *scene.Config) {
	if *width > 0 {
		cfg.Width = *width
	}
	if *height > 0 {
		cfg.Height = *height
	}
	if *wireframe {
		cfg.Wireframe = true
	}
	if *axes > 0 {
		cfg.Axes = *axes
	}
	if *grid > 0 {
		cfg.Grid = *grid
	}
	if *bounds {
		cfg.Bounds = true
	}
}

// renderFiles renders one image, or a turntable of numbered images when more
// than one frame is requested.
func renderFiles(ctx context.Context, cfg *scene.Config) error {
	start := time.Now()
	r := render.NewRasterizer(cfg.Width, cfg.Height)
	s, err := scene.Build(r, cfg)
	if err != nil {
		return err
	}
	rd := scene.NewRenderer(r)

	if *frames <= 1 {
		if err := rd.Render(s); err != nil {
			return err
		}
		if err := render.WritePNG(*outPath, r.OutputColorBuffer().ScaledImage(*scale)); err != nil {
			return err
		}
		fmt.Printf("Rendered %s (%dx%d, %d triangles) in %v\n",
			*outPath, cfg.Width, cfg.Height, s.Triangles(), time.Since(start).Round(time.Millisecond))
		return nil
	}

	base := s.Camera
	bar := progressbar.Default(int64(*frames), "rendering")
	for i := range *frames {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.Camera = base.Turntable(i, *frames)
		if err := rd.Render(s); err != nil {
			return fmt.Errorf("frame %d: %w", i, err)
		}
		path := framePath(*outPath, i, *frames)
		if err := render.WritePNG(path, r.OutputColorBuffer().ScaledImage(*scale)); err != nil {
			return err
		}
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	fmt.Printf("Rendered %d frames in %v\n", *frames, time.Since(start).Round(time.Millisecond))
	return nil
}

// framePath numbers out for frame i of n: out.png becomes out_007.png, with
// enough digits for the last frame.
func framePath(out string, i, n int) string {
	ext := filepath.Ext(out)
	if ext == "" {
		ext = ".png"
	}
	stem := strings.TrimSuffix(out, filepath.Ext(out))
	digits := len(strconv.Itoa(max(n-1, 0)))
	return fmt.Sprintf("%s_%0*d%s", stem, digits, i, ext)
}
