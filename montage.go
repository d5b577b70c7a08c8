// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package styletransfer

import (
	"image"
	"image/color"
	"slices"

	"github.com/cenkalti/dominantcolor"
	"github.com/disintegration/imaging"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// Montage composes the content, style and result tensors (each
// [size, size, 3] with values in [0, 1], see DenormalizeImage) side by side
// into a single image, in that order.
func Montage(content, style, result *tensors.Tensor) image.Image {
	const gap = 4
	panels := []image.Image{
		TensorToImage(content), TensorToImage(style), TensorToImage(result)}
	height := panels[0].Bounds().Dy()
	width := panels[0].Bounds().Dx()
	dst := imaging.New(3*width+2*gap, height, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	for ii, panel := range panels {
		dst = imaging.Paste(dst, panel, image.Pt(ii*(width+gap), 0))
	}
	return dst
}

// SaveMontage writes the side-by-side composition of the three image tensors
// to filePath. The format is taken from the extension (".png" in the demo).
func SaveMontage(filePath string, content, style, result *tensors.Tensor) error {
	err := imaging.Save(Montage(content, style, result), filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to save montage to %q", filePath)
	}
	return nil
}

// Palette returns the k dominant colors of img, darkest first. Useful as a
// cheap sanity check that the style colors made it into the result.
func Palette(img image.Image, k int) []colorful.Color {
	if k <= 0 {
		return nil
	}
	candidates := dominantcolor.FindWeight(img, k)
	if len(candidates) > k {
		// FindWeight orders by weight, keep the heaviest.
		candidates = candidates[:k]
	}
	palette := make([]colorful.Color, 0, len(candidates))
	for _, c := range candidates {
		col, _ := colorful.MakeColor(c.RGBA)
		palette = append(palette, col.Clamped())
	}
	// Darkest first, by linear luminance.
	slices.SortFunc(palette, func(a, b colorful.Color) int {
		ra, ga, ba := a.LinearRgb()
		rb, gb, bb := b.LinearRgb()
		ya := 0.2126*ra + 0.7152*ga + 0.0722*ba
		yb := 0.2126*rb + 0.7152*gb + 0.0722*bb
		switch {
		case ya < yb:
			return -1
		case ya > yb:
			return 1
		}
		return 0
	})
	return palette
}

// PaletteHex formats a palette as "#rrggbb" strings.
func PaletteHex(palette []colorful.Color) []string {
	hexes := make([]string, len(palette))
	for ii, col := range palette {
		hexes[ii] = col.Hex()
	}
	return hexes
}
