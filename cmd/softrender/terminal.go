package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/charmbracelet/harmonica"
	uv "github.com/charmbracelet/ultraviolet"

	"github.com/taigrr/softrender/pkg/render"
	"github.com/taigrr/softrender/pkg/scene"
)

// RotationAxis tracks position and velocity for one orbit axis with spring decay
type RotationAxis struct {
	Position  float64
	Velocity  float64
	velSpring harmonica.Spring
	velAccel  float64 // internal spring velocity (for animating Velocity toward 0)
}

// NewRotationAxis creates an axis with harmonica spring for smooth velocity decay
func NewRotationAxis(fps int) RotationAxis {
	return RotationAxis{
		// Frequency 4.0 = moderate speed, damping 1.0 = critically damped (no overshoot)
		velSpring: harmonica.NewSpring(harmonica.FPS(fps), 4.0, 1.0),
	}
}

// Update applies velocity to position and decays velocity toward 0 using spring
func (a *RotationAxis) Update() {
	a.Position += a.Velocity
	a.Velocity, a.velAccel = a.velSpring.Update(a.Velocity, a.velAccel, 0)
}

// OrbitState holds the camera orbit offsets and zoom of the viewer.
type OrbitState struct {
	Yaw, Pitch RotationAxis
	Zoom       float64
	fps        int
}

func NewOrbitState(fps int) *OrbitState {
	return &OrbitState{
		Yaw:   NewRotationAxis(fps),
		Pitch: NewRotationAxis(fps),
		Zoom:  1,
		fps:   fps,
	}
}

func (o *OrbitState) Update() {
	o.Yaw.Update()
	o.Pitch.Update()
}

func (o *OrbitState) ApplyImpulse(yaw, pitch float64) {
	o.Yaw.Velocity += yaw
	o.Pitch.Velocity += pitch
}

func (o *OrbitState) Reset() {
	*o = *NewOrbitState(o.fps)
}

// ZoomBy scales the zoom factor, keeping it within [0.2, 5].
func (o *OrbitState) ZoomBy(f float64) {
	o.Zoom = max(0.2, min(5, o.Zoom*f))
}

// Camera returns base orbited and zoomed by the current state.
func (o *OrbitState) Camera(base *scene.Camera) *scene.Camera {
	c := *base
	c.Orbit(o.Yaw.Position, o.Pitch.Position)
	c.Zoom(o.Zoom)
	return &c
}

// runTerminal shows the scene in the terminal using half-block cells, two
// pixels per cell, until Esc or ctx is done.
func runTerminal(ctx context.Context, cfg *scene.Config, fps int) error {
	fps = max(fps, 1)
	term := uv.DefaultTerminal()

	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}

	r := render.NewRasterizer(width, height*2)
	s, err := scene.Build(r, cfg)
	if err != nil {
		return err
	}
	rd := scene.NewRenderer(r)
	base := s.Camera

	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}
	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	// Any-event mouse tracking with SGR extended coordinates.
	fmt.Fprint(os.Stdout, "\x1b[?1003h")
	fmt.Fprint(os.Stdout, "\x1b[?1006h")

	defer func() {
		fmt.Fprint(os.Stdout, "\x1b[?1003l")
		fmt.Fprint(os.Stdout, "\x1b[?1006l")
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}()

	orbit := NewOrbitState(fps)
	const torqueStrength = 0.05

	var mouseDown bool
	var lastMouseX, lastMouseY int

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	events := term.Events()
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev := <-events:
			switch ev := ev.(type) {
			case uv.WindowSizeEvent:
				width, height = ev.Width, ev.Height
				term.Erase()
				term.Resize(width, height)
				r.Resize(width, height*2)

			case uv.KeyPressEvent:
				switch {
				case ev.MatchString("escape", "ctrl+c", "q"):
					return nil
				case ev.MatchString("w", "up"):
					orbit.ApplyImpulse(0, torqueStrength)
				case ev.MatchString("s", "down"):
					orbit.ApplyImpulse(0, -torqueStrength)
				case ev.MatchString("a", "left"):
					orbit.ApplyImpulse(-torqueStrength, 0)
				case ev.MatchString("d", "right"):
					orbit.ApplyImpulse(torqueStrength, 0)
				case ev.MatchString("space"):
					orbit.ApplyImpulse((rand.Float64()-0.5)*0.5, (rand.Float64()-0.5)*0.2)
				case ev.MatchString("r"):
					orbit.Reset()
				case ev.MatchString("x"):
					s.Wireframe = !s.Wireframe
				case ev.MatchString("b"):
					s.Bounds = !s.Bounds
				case ev.MatchString("g"):
					if s.Axes > 0 {
						s.Axes = 0
					} else {
						s.Axes = 1
					}
				case ev.MatchString("+", "="):
					orbit.ZoomBy(0.9)
				case ev.MatchString("-", "_"):
					orbit.ZoomBy(1 / 0.9)
				}

			case uv.MouseClickEvent:
				mouseDown = true
				lastMouseX, lastMouseY = ev.X, ev.Y

			case uv.MouseReleaseEvent:
				mouseDown = false

			case uv.MouseMotionEvent:
				if mouseDown {
					dx := ev.X - lastMouseX
					dy := ev.Y - lastMouseY
					orbit.ApplyImpulse(float64(dx)*0.01, float64(-dy)*0.02)
					lastMouseX, lastMouseY = ev.X, ev.Y
				}

			case uv.MouseWheelEvent:
				switch ev.Button {
				case uv.MouseWheelUp:
					orbit.ZoomBy(0.9)
				case uv.MouseWheelDown:
					orbit.ZoomBy(1 / 0.9)
				}
			}

		case <-ticker.C:
			orbit.Update()
			s.Camera = orbit.Camera(base)
			if err := rd.Render(s); err != nil {
				return err
			}
			// Wrapped so the terminal sizes the frame by its own rows, not
			// by the frame buffer's pixel height.
			term.Draw(uv.DrawableFunc(r.OutputColorBuffer().Draw))
			if err := term.Display(); err != nil {
				return fmt.Errorf("display: %w", err)
			}
		}
	}
}
