// Package render rasterizes text captions into images so conditioning
// prompts can be logged next to generated samples.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/wholecell/pipekit/logger"
)

const lineHeight = 13

// Captions renders each caption onto its own white canvas of the given
// size. Lines wrap at 40*(width/256) runes, matching the caption panels
// used in training-image grids. A caption that cannot be rendered is
// skipped with a warning, leaving its canvas blank.
func Captions(width, height int, captions []string) []*image.RGBA {
	imgs := make([]*image.RGBA, len(captions))
	for i, caption := range captions {
		canvas := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)

		if !utf8.ValidString(caption) {
			logger.WithComponent("render").Warn("cannot encode caption for logging, skipping",
				logger.Fields("index", i))
			imgs[i] = canvas
			continue
		}

		drawer := font.Drawer{
			Dst:  canvas,
			Src:  image.NewUniform(color.Black),
			Face: basicfont.Face7x13,
		}
		for li, line := range wrap(caption, wrapWidth(width)) {
			drawer.Dot = fixed.P(2, lineHeight*(li+1))
			drawer.DrawString(line)
		}
		imgs[i] = canvas
	}
	return imgs
}

// Normalize converts an image to channel-major float32 planes (C, H, W)
// scaled to [-1, 1].
func Normalize(img image.Image) [][][]float32 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	planes := make([][][]float32, 3)
	for c := range planes {
		planes[c] = make([][]float32, h)
		for y := range planes[c] {
			planes[c][y] = make([]float32, w)
		}
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			planes[0][y][x] = float32(r>>8)/127.5 - 1.0
			planes[1][y][x] = float32(g>>8)/127.5 - 1.0
			planes[2][y][x] = float32(b>>8)/127.5 - 1.0
		}
	}
	return planes
}

func wrapWidth(imageWidth int) int {
	nc := 40 * imageWidth / 256
	if nc < 1 {
		nc = 1
	}
	return nc
}

// wrap splits a caption into rune chunks of at most n.
func wrap(s string, n int) []string {
	runes := []rune(s)
	var lines []string
	for start := 0; start < len(runes); start += n {
		end := start + n
		if end > len(runes) {
			end = len(runes)
		}
		lines = append(lines, string(runes[start:end]))
	}
	return lines
}
