package viz

import (
	"math"
	"strings"
)

// Braille cells hold 2x4 dots:
// 1 4
// 2 5
// 3 6
// 7 8
const brailleBlank = 0x2800

var pixelMap = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// Canvas is a Braille dot canvas of Width x Height cells, which is
// 2*Width x 4*Height dots.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, Grid: make([][]rune, h)}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

func (c *Canvas) Dots() (w, h int) { return c.Width * 2, c.Height * 4 }

// Set lights the dot at (x, y); y grows downwards. Out-of-range dots are
// ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= pixelMap[y%4][x%2]
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// DrawLine uses Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) DrawCircle(cx, cy, r int) {
	steps := max(12, 4*r)
	for i := 0; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		c.Set(cx+int(math.Round(float64(r)*math.Cos(a))), cy+int(math.Round(float64(r)*math.Sin(a))))
	}
}

// DrawTerrain sketches the ground at angleDeg through the canvas centre with
// a side view of the rover on it: a chassis box over three wheels.
func (c *Canvas) DrawTerrain(angleDeg float64) {
	w, h := c.Dots()
	cx, cy := float64(w)/2, float64(h)*0.65
	theta := angleDeg * math.Pi / 180
	ux, uy := math.Cos(theta), -math.Sin(theta) // along the ground, screen coordinates
	nx, ny := uy, -ux                           // ground normal pointing up the screen

	at := func(s, n float64) (int, int) {
		return int(math.Round(cx + s*ux + n*nx)), int(math.Round(cy + s*uy + n*ny))
	}

	half := float64(w)
	x0, y0 := at(-half, 0)
	x1, y1 := at(half, 0)
	c.DrawLine(x0, y0, x1, y1)

	scale := float64(min(w, h)) / 24
	wheelR := max(1, int(math.Round(2*scale)))
	for _, s := range []float64{-5, 0, 5} {
		x, y := at(s*scale, float64(wheelR))
		c.DrawCircle(x, y, wheelR)
	}

	base := 2*float64(wheelR) + scale
	top := base + 3*scale
	corners := [4][2]float64{{-7, base}, {7, base}, {7, top}, {-7, top}}
	for i := range corners {
		a, b := corners[i], corners[(i+1)%4]
		xa, ya := at(a[0]*scale, a[1])
		xb, yb := at(b[0]*scale, b[1])
		c.DrawLine(xa, ya, xb, yb)
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
