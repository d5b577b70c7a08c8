// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package styletransfer re-renders the content of one image in the artistic
// style of another (Gatys et al., "A Neural Algorithm of Artistic Style").
//
// Both images are passed through a frozen pre-trained VGG19 backbone. A
// candidate image, initialized to the content image, is then optimized by
// Adam directly on its pixels: a content loss pulls its deep features
// towards the content image's, while a style loss matches the Gram matrices
// of its shallower features to the style image's.
//
// See cmd/styletransfer for the demo driver.
package styletransfer

import (
	"os"

	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/gomlx/gomlx/pkg/support/fsutil"
	"github.com/janpfeifer/must"
)

// Layers of the VGG19 backbone used by the losses.
var (
	// ContentLayer is the convolution whose raw activation is matched to the
	// content image's.
	ContentLayer = "conv_4_2"

	// StyleLayers are the convolutions whose Gram matrices are matched to
	// the style image's: the first convolution of each block.
	StyleLayers = []string{"conv_1_1", "conv_2_1", "conv_3_1", "conv_4_1", "conv_5_1"}
)

// StyleLossGain scales each per-layer style loss before "style_weight" is
// applied. Gram matrix entries are small after the channels*height*width
// normalization, this brings them to a workable magnitude.
const StyleLossGain = 5000.0

// CreateDefaultContext sets the context with the default hyperparameters.
func CreateDefaultContext() *context.Context {
	ctx := context.New()
	ctx.SetParams(map[string]any{
		// image_size: content, style and result are all square images with
		// this side. Inputs are stretched (not cropped) to fit.
		"image_size": 256,

		// train_steps of gradient descent on the candidate pixels.
		"train_steps": 300,

		// content_weight scales the content loss in the total loss.
		"content_weight": 1.0,

		// style_weight scales the style loss in the total loss. The style
		// loss is tiny in comparison, hence the large default.
		"style_weight": 1e6,

		optimizers.ParamLearningRate: 0.01,
	})
	return ctx
}

// Config holds the configuration for a style transfer run. See NewConfig.
type Config struct {
	Backend backends.Backend
	Context *context.Context // Usually, at the root scope.

	// DataDir caches the downloaded VGG19 weights.
	DataDir string

	ImageSize     int
	TrainSteps    int
	ContentWeight float64
	StyleWeight   float64
	LearningRate  float64

	// PreTrained selects the Keras ImageNet weights for the backbone,
	// downloaded to DataDir if missing. Only tests disable it, running on a
	// randomly initialized (still frozen) backbone instead.
	PreTrained bool
}

// NewConfig materializes the hyperparameters in ctx into a Config. The
// dataDir is created if it doesn't exist yet.
func NewConfig(backend backends.Backend, ctx *context.Context, dataDir string) *Config {
	dataDir = fsutil.MustReplaceTildeInDir(dataDir)
	if !fsutil.MustFileExists(dataDir) {
		must.M(os.MkdirAll(dataDir, 0777))
	}
	return &Config{
		Backend:       backend,
		Context:       ctx,
		DataDir:       dataDir,
		ImageSize:     context.GetParamOr(ctx, "image_size", 256),
		TrainSteps:    context.GetParamOr(ctx, "train_steps", 300),
		ContentWeight: context.GetParamOr(ctx, "content_weight", 1.0),
		StyleWeight:   context.GetParamOr(ctx, "style_weight", 1e6),
		LearningRate:  context.GetParamOr(ctx, optimizers.ParamLearningRate, 0.01),
		PreTrained:    true,
	}
}
