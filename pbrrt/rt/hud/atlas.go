// Package hud draws the debug text overlay: frame rate and profiler scopes.
package hud

import (
	"fmt"
	"image"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const atlasSize = 512

type Vertex struct {
	Pos   [2]float32
	UV    [2]float32
	Color [4]float32
}

// VertexStride is the byte size of Vertex.
const VertexStride = 32

type Item struct {
	Text     string
	Position [2]float32 // pixels from the top-left corner
	Scale    float32
	Color    [4]float32
}

type Glyph struct {
	UVMin [2]float32
	UVMax [2]float32
	Size  [2]float32
	Off   [2]float32
	Adv   float32
}

// Atlas rasterizes printable ASCII into a single coverage image.
type Atlas struct {
	Image  *image.Alpha
	Glyphs map[rune]Glyph
	Face   font.Face
}

// NewAtlas builds an atlas from the embedded Go Regular font.
func NewAtlas(size float64) (*Atlas, error) {
	return NewAtlasFromTTF(goregular.TTF, size)
}

func NewAtlasFromTTF(ttf []byte, size float64) (*Atlas, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create face: %w", err)
	}

	img := image.NewAlpha(image.Rect(0, 0, atlasSize, atlasSize))
	glyphs := make(map[rune]Glyph)
	x, y := 2, 2
	rowHeight := 0
	for r := rune(32); r < 127; r++ {
		bounds, mask, maskp, adv, ok := face.Glyph(fixed.Point26_6{}, r)
		if !ok {
			continue
		}
		w, h := bounds.Dx(), bounds.Dy()
		if x+w >= atlasSize {
			x = 2
			y += rowHeight + 4
			rowHeight = 0
		}
		if y+h >= atlasSize {
			break
		}
		draw.Draw(img, image.Rect(x, y, x+w, y+h), mask, maskp, draw.Src)

		glyphs[r] = Glyph{
			UVMin: [2]float32{float32(x) / atlasSize, float32(y) / atlasSize},
			UVMax: [2]float32{float32(x+w) / atlasSize, float32(y+h) / atlasSize},
			Size:  [2]float32{float32(w), float32(h)},
			Off:   [2]float32{float32(bounds.Min.X), float32(bounds.Min.Y)},
			Adv:   float32(adv) / 64.0,
		}
		x += w + 4
		rowHeight = max(rowHeight, h)
	}
	return &Atlas{Image: img, Glyphs: glyphs, Face: face}, nil
}

func (a *Atlas) LineHeight(scale float32) float32 {
	return float32(a.Face.Metrics().Height.Ceil()) * scale
}

// Layout emits two triangles per glyph in clip space for a screenW x
// screenH target. Unknown runes are skipped and '\n' starts a new line.
func (a *Atlas) Layout(items []Item, screenW, screenH int) []Vertex {
	vertices := make([]Vertex, 0, len(items)*6)
	sw, sh := float32(screenW), float32(screenH)
	ascent := float32(a.Face.Metrics().Ascent.Ceil())

	for _, item := range items {
		startX := item.Position[0]
		posX := startX
		posY := item.Position[1] + ascent*item.Scale
		for _, r := range item.Text {
			if r == '\n' {
				posX = startX
				posY += a.LineHeight(item.Scale)
				continue
			}
			g, ok := a.Glyphs[r]
			if !ok {
				continue
			}
			x0 := (posX+g.Off[0]*item.Scale)/sw*2 - 1
			y0 := 1 - (posY+g.Off[1]*item.Scale)/sh*2
			x1 := (posX+(g.Off[0]+g.Size[0])*item.Scale)/sw*2 - 1
			y1 := 1 - (posY+(g.Off[1]+g.Size[1])*item.Scale)/sh*2

			vertices = append(vertices,
				Vertex{Pos: [2]float32{x0, y0}, UV: g.UVMin, Color: item.Color},
				Vertex{Pos: [2]float32{x1, y0}, UV: [2]float32{g.UVMax[0], g.UVMin[1]}, Color: item.Color},
				Vertex{Pos: [2]float32{x0, y1}, UV: [2]float32{g.UVMin[0], g.UVMax[1]}, Color: item.Color},
				Vertex{Pos: [2]float32{x1, y0}, UV: [2]float32{g.UVMax[0], g.UVMin[1]}, Color: item.Color},
				Vertex{Pos: [2]float32{x1, y1}, UV: g.UVMax, Color: item.Color},
				Vertex{Pos: [2]float32{x0, y1}, UV: [2]float32{g.UVMin[0], g.UVMax[1]}, Color: item.Color},
			)
			posX += g.Adv * item.Scale
		}
	}
	return vertices
}

// Measure returns the pixel extent of text at scale.
func (a *Atlas) Measure(text string, scale float32) (float32, float32) {
	maxW, currentW := float32(0), float32(0)
	lines := 1
	for _, r := range text {
		if r == '\n' {
			maxW = max(maxW, currentW)
			currentW = 0
			lines++
			continue
		}
		if g, ok := a.Glyphs[r]; ok {
			currentW += g.Adv * scale
		}
	}
	return max(maxW, currentW), a.LineHeight(scale) * float32(lines)
}
