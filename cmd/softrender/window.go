package main

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/taigrr/softrender/pkg/render"
	"github.com/taigrr/softrender/pkg/scene"
)

// runWindow shows the scene in a desktop window, slowly orbiting the camera.
// Arrow keys orbit, Escape closes the window. It blocks until the window closes.
func runWindow(cfg *scene.Config, fps int) error {
	fps = max(fps, 1)
	r := render.NewRasterizer(cfg.Width, cfg.Height)
	s, err := scene.Build(r, cfg)
	if err != nil {
		return err
	}

	g := &viewerGame{
		s:     s,
		rd:    scene.NewRenderer(r),
		base:  s.Camera,
		orbit: NewOrbitState(fps),
	}
	ebiten.SetWindowTitle("softrender")
	ebiten.SetWindowSize(cfg.Width*2, cfg.Height*2)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(fps)
	if err := ebiten.RunGame(g); err != nil && err != ebiten.Termination {
		return err
	}
	return nil
}

type viewerGame struct {
	s     *scene.Scene
	rd    *scene.Renderer
	base  *scene.Camera
	orbit *OrbitState
	img   *ebiten.Image
}

func (g *viewerGame) Update() error {
	const torque = 0.01
	switch {
	case ebiten.IsKeyPressed(ebiten.KeyEscape):
		return ebiten.Termination
	case ebiten.IsKeyPressed(ebiten.KeyLeft):
		g.orbit.ApplyImpulse(-torque, 0)
	case ebiten.IsKeyPressed(ebiten.KeyRight):
		g.orbit.ApplyImpulse(torque, 0)
	case ebiten.IsKeyPressed(ebiten.KeyUp):
		g.orbit.ApplyImpulse(0, torque)
	case ebiten.IsKeyPressed(ebiten.KeyDown):
		g.orbit.ApplyImpulse(0, -torque)
	}
	_, wheel := ebiten.Wheel()
	if wheel > 0 {
		g.orbit.ZoomBy(0.9)
	} else if wheel < 0 {
		g.orbit.ZoomBy(1 / 0.9)
	}

	g.orbit.Update()
	g.s.Camera = g.orbit.Camera(g.base)
	return g.rd.Render(g.s)
}

func (g *viewerGame) Draw(screen *ebiten.Image) {
	fb := g.rd.Rasterizer().OutputColorBuffer()
	if g.img == nil || g.img.Bounds().Dx() != fb.Width() || g.img.Bounds().Dy() != fb.Height() {
		if g.img != nil {
			g.img.Deallocate()
		}
		g.img = ebiten.NewImage(fb.Width(), fb.Height())
	}
	g.img.WritePixels(fb.ToImage().Pix)
	screen.DrawImage(g.img, nil)
}

// Layout keeps the logical screen at the frame buffer size; ebiten scales it
// to the window.
func (g *viewerGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	fb := g.rd.Rasterizer().OutputColorBuffer()
	return fb.Width(), fb.Height()
}
