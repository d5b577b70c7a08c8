// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package styletransfer

import (
	"fmt"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/train/optimizers"
	"github.com/gomlx/styletransfer/vgg19"
	"github.com/schollz/progressbar/v3"
)

// Engine holds the state of one style transfer optimization: the frozen
// backbone, the precomputed targets and the candidate image being optimized.
// Create it with New, and drive it with Run.
type Engine struct {
	config *Config
	ctx    *context.Context

	// contentTarget is the content image's ContentLayer activation;
	// styleTargets are the style image's Gram matrices, one per StyleLayers.
	contentTarget *tensors.Tensor
	styleTargets  []*tensors.Tensor

	// candidate is the only trainable variable: the pixels being optimized,
	// initialized to the (normalized) content image.
	candidate *context.Variable

	optimizer optimizers.Interface
	stepExec  *context.Exec
	lossExec  *context.Exec
}

// New creates a style transfer engine for the given content and style
// images, both shaped [1, size, size, 3] and normalized (see LoadImage).
//
// If cfg.PreTrained is set, the VGG19 weights are downloaded to cfg.DataDir
// first; a download failure is returned as an error. The targets (content
// features and style Gram matrices) are extracted once, here.
func New(cfg *Config, content, style *tensors.Tensor) (*Engine, error) {
	if cfg.PreTrained {
		if err := vgg19.DownloadAndUnpackWeights(cfg.DataDir); err != nil {
			return nil, err
		}
	}
	e := &Engine{
		config:    cfg,
		ctx:       cfg.Context,
		optimizer: optimizers.Adam().LearningRate(cfg.LearningRate).Done(),
	}

	// One extraction for both target images: the backbone variables are
	// created (and loaded) here and reused by every graph built afterwards.
	targets := context.MustExecOnceN(cfg.Backend, e.ctx,
		func(ctx *context.Context, contentImg, styleImg *Node) []*Node {
			contentFeatures := e.featuresGraph(ctx, contentImg, ContentLayer)
			styleFeatures := e.featuresGraph(ctx, styleImg, StyleLayers...)
			outputs := []*Node{contentFeatures[ContentLayer]}
			for _, name := range StyleLayers {
				outputs = append(outputs, GramMatrix(styleFeatures[name]))
			}
			return outputs
		}, content, style)
	e.contentTarget = targets[0]
	e.styleTargets = targets[1:]

	e.candidate = e.ctx.In("stylized").Checked(false).VariableWithValue("pixels", content)
	e.stepExec = context.MustNewExec(cfg.Backend, e.ctx, e.stepGraph)
	e.lossExec = context.MustNewExec(cfg.Backend, e.ctx, e.lossGraph)
	return e, nil
}

// featuresGraph runs image through the backbone, capturing layerNames.
func (e *Engine) featuresGraph(ctx *context.Context, image *Node, layerNames ...string) map[string]*Node {
	builder := vgg19.BuildGraph(ctx, image)
	if e.config.PreTrained {
		builder = builder.PreTrained(e.config.DataDir)
	}
	return builder.Capture(layerNames...).Done()
}

// lossGraph computes the current (raw, unweighted) content and style losses
// of the candidate against the precomputed targets.
func (e *Engine) lossGraph(ctx *context.Context, g *Graph) []*Node {
	candidate := e.candidate.ValueGraph(g)
	capture := append([]string{ContentLayer}, StyleLayers...)
	features := e.featuresGraph(ctx, candidate, capture...)

	contentLoss := meanSquares(Sub(features[ContentLayer], Const(g, e.contentTarget)))
	var styleLoss *Node
	for ii, name := range StyleLayers {
		layerLoss := meanSquares(Sub(GramMatrix(features[name]), Const(g, e.styleTargets[ii])))
		if styleLoss == nil {
			styleLoss = layerLoss
		} else {
			styleLoss = Add(styleLoss, layerLoss)
		}
	}
	styleLoss = MulScalar(styleLoss, StyleLossGain)
	return []*Node{contentLoss, styleLoss}
}

// stepGraph takes one optimization step on the candidate pixels and returns
// the (pre-step) content and style losses.
func (e *Engine) stepGraph(ctx *context.Context, g *Graph) []*Node {
	losses := e.lossGraph(ctx, g)
	contentLoss, styleLoss := losses[0], losses[1]
	total := Add(
		MulScalar(contentLoss, e.config.ContentWeight),
		MulScalar(styleLoss, e.config.StyleWeight))
	// The backbone is frozen, only the candidate pixels get updated.
	e.optimizer.UpdateGraph(ctx, g, total)
	return losses
}

func meanSquares(diff *Node) *Node {
	return ReduceAllMean(Square(diff))
}

// Losses evaluates the current content and style losses without taking an
// optimization step. Deterministic: the losses only change when the
// candidate does.
func (e *Engine) Losses() (contentLoss, styleLoss float32) {
	results := e.lossExec.MustExec()
	return tensors.ToScalar[float32](results[0]), tensors.ToScalar[float32](results[1])
}

// Run takes Config.TrainSteps optimization steps, printing the losses every
// 50 steps (and at the last one), and returns the result. There is no early
// stopping: a diverging optimization runs to the end.
func (e *Engine) Run() *tensors.Tensor {
	numSteps := e.config.TrainSteps
	bar := progressbar.Default(int64(numSteps), "stylizing")
	for step := 1; step <= numSteps; step++ {
		results := e.stepExec.MustExec()
		_ = bar.Add(1)
		if step%50 == 0 || step == numSteps {
			fmt.Printf("\tstep %d: content-loss=%.5f, style-loss=%.5f\n",
				step, tensors.ToScalar[float32](results[0]), tensors.ToScalar[float32](results[1]))
		}
	}
	_ = bar.Finish()
	return e.Result()
}

// Result returns the current candidate denormalized to a [size, size, 3]
// tensor with values in [0, 1], ready for TensorToImage.
func (e *Engine) Result() *tensors.Tensor {
	return DenormalizeImage(e.config.Backend, e.candidate.MustValue())
}
