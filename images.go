// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package styletransfer

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/dtypes"
	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/shapes"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/core/tensors/images"
	"github.com/gomlx/styletransfer/vgg19"
	"github.com/pkg/errors"
)

// LoadImage reads and prepares one image for the backbone: stretched to
// size×size (no cropping, the aspect ratio is not preserved), scaled to
// [0, 1], batched and ImageNet-normalized. The result is shaped
// [1, size, size, 3].
//
// It never fails: on an empty path, missing file or undecodable content it
// prints a diagnostic and substitutes a random image (see SyntheticImage),
// so a demo run always completes. Mind typos in image paths.
func LoadImage(backend backends.Backend, filePath string, size int) *tensors.Tensor {
	img, err := openImage(filePath)
	if err != nil {
		fmt.Printf("Could not load image %q (%v): substituting random pixels.\n", filePath, err)
		return SyntheticImage(backend, size)
	}
	img = imaging.Resize(img, size, size, imaging.Lanczos)
	imageT := images.ToTensor(dtypes.Float32).Single(img)
	return MustExecOnce(backend, func(img *Node) *Node {
		return vgg19.PreprocessImage(InsertAxes(img, 0))
	}, imageT)
}

func openImage(filePath string) (image.Image, error) {
	if filePath == "" {
		return nil, errors.New("no image path given")
	}
	img, err := imaging.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open image %q", filePath)
	}
	return img, nil
}

// SyntheticImage returns independent uniformly random pixels in [0, 1),
// normalized like LoadImage, shaped [1, size, size, 3].
func SyntheticImage(backend backends.Backend, size int) *tensors.Tensor {
	return MustExecOnce(backend, func(g *Graph) *Node {
		state := RNGStateForGraph(g)
		_, img := RandomUniform(state, shapes.Make(dtypes.Float32, 1, size, size, 3))
		return vgg19.PreprocessImage(img)
	})
}

// DenormalizeImage reverts the LoadImage normalization and drops the batch
// axis: [1, size, size, 3] normalized becomes [size, size, 3] in [0, 1].
func DenormalizeImage(backend backends.Backend, t *tensors.Tensor) *tensors.Tensor {
	return MustExecOnce(backend, func(img *Node) *Node {
		img = vgg19.UnpreprocessImage(img)
		dims := img.Shape().Dimensions
		return Reshape(img, dims[1], dims[2], dims[3])
	}, t)
}

// TensorToImage converts a [height, width, 3] tensor with values in [0, 1]
// (as returned by Engine.Run) to an image.
func TensorToImage(t *tensors.Tensor) image.Image {
	return images.ToImage().Single(t)
}
