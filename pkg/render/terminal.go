package render

import (
	"image/color"

	uv "github.com/charmbracelet/ultraviolet"
)

// Draw paints the color attachment onto a terminal screen using upper
// half-block cells, so each cell shows two vertically stacked pixels.
// The frame buffer height should be 2x the number of terminal rows.
func (fb *FrameBuffer) Draw(scr uv.Screen, area uv.Rectangle) {
	for row := area.Min.Y; row < area.Max.Y; row++ {
		// Frame buffer row 0 is the bottom, terminal row 0 is the top.
		topY := fb.height - 1 - (row-area.Min.Y)*2
		botY := topY - 1
		if topY < 0 {
			break
		}

		for col := area.Min.X; col < area.Max.X && col-area.Min.X < fb.width; col++ {
			x := col - area.Min.X
			cell := &uv.Cell{
				Content: "▀",
				Width:   1,
				Style: uv.Style{
					Fg: cellColor(fb.ColorAt(x, topY)),
				},
			}
			if botY >= 0 {
				cell.Style.Bg = cellColor(fb.ColorAt(x, botY))
			}
			scr.SetCell(col, row, cell)
		}
	}
}

// cellColor converts to an opaque terminal color; transparent pixels map to
// the terminal default.
func cellColor(c Color) color.Color {
	n := c.NRGBA()
	if n.A == 0 {
		return nil
	}
	return color.RGBA{n.R, n.G, n.B, 255}
}
