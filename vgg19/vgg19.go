// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package vgg19 implements the convolutional stack of the VGG19 model
// (Simonyan & Zisserman, "Very Deep Convolutional Networks for Large-Scale
// Image Recognition"), optionally loading the Keras pre-trained ImageNet
// weights.
//
// Only the feature-extraction layers are built ("no top"): 16 convolutions
// in 5 blocks, each block followed by a 2x2 max-pooling. The backbone is
// always frozen, its variables are created non-trainable.
//
// Inputs are batched, channels-last images, normalized with PreprocessImage.
package vgg19

import (
	"fmt"

	. "github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gomlx/pkg/ml/context"
	"github.com/gomlx/gomlx/pkg/ml/layers"
	"github.com/gomlx/gomlx/pkg/ml/layers/activations"
	"github.com/gomlx/gomlx/pkg/support/exceptions"
	"github.com/pkg/errors"
)

// ConvLayer describes one convolution of the VGG19 feature stack.
type ConvLayer struct {
	// Name is the layer name in the usual style-transfer convention,
	// "conv_{block}_{index}", both starting at 1: the block advances after
	// each pooling layer, the index restarts at each block.
	Name string

	// KerasName ("block{block}_conv{index}") keys the corresponding kernel
	// and bias datasets in the Keras weights file.
	KerasName string

	// OutputChannels of the 3x3 convolution.
	OutputChannels int

	// PoolAfter is set on the last convolution of each block: a 2x2/stride-2
	// max-pooling follows its activation.
	PoolAfter bool
}

// Architecture returns the VGG19 convolutions in forward order: 5 blocks of
// (2, 2, 4, 4, 4) 3x3 convolutions with (64, 128, 256, 512, 512) output
// channels respectively. It is a pure function, the returned slice is freshly
// allocated at each call.
func Architecture() []ConvLayer {
	blocks := []struct{ numConvs, channels int }{
		{2, 64}, {2, 128}, {4, 256}, {4, 512}, {4, 512},
	}
	layersList := make([]ConvLayer, 0, 16)
	for blockIdx, block := range blocks {
		for conv := 1; conv <= block.numConvs; conv++ {
			layersList = append(layersList, ConvLayer{
				Name:           fmt.Sprintf("conv_%d_%d", blockIdx+1, conv),
				KerasName:      fmt.Sprintf("block%d_conv%d", blockIdx+1, conv),
				OutputChannels: block.channels,
				PoolAfter:      conv == block.numConvs,
			})
		}
	}
	return layersList
}

// FeaturesBuilder holds the configuration for building the VGG19 features
// extraction graph. Create it with BuildGraph.
type FeaturesBuilder struct {
	ctx      *context.Context
	image    *Node
	baseDir  string
	captures []string
}

// BuildGraph starts the configuration of a VGG19 features extraction on
// image, a batched channels-last image already normalized with
// PreprocessImage. Variables are created (or reused) under ctx, so graphs
// built with the same context share the backbone weights.
//
// Configure the layers of interest with Capture, and then call Done.
func BuildGraph(ctx *context.Context, image *Node) *FeaturesBuilder {
	return &FeaturesBuilder{ctx: ctx.In("vgg19"), image: image}
}

// PreTrained configures the convolutions to load the Keras ImageNet weights
// previously unpacked under baseDir -- see DownloadAndUnpackWeights. If not
// set the backbone is randomly initialized (still frozen), which is only
// useful for testing.
//
// It returns the builder, so configuration calls can be cascaded.
func (b *FeaturesBuilder) PreTrained(baseDir string) *FeaturesBuilder {
	b.baseDir = baseDir
	return b
}

// Capture adds layer names (as in Architecture, e.g. "conv_4_2") whose
// pre-activation outputs are to be returned by Done.
//
// It returns the builder, so configuration calls can be cascaded.
func (b *FeaturesBuilder) Capture(names ...string) *FeaturesBuilder {
	b.captures = append(b.captures, names...)
	return b
}

// Done builds the graph and returns the captured convolution outputs (before
// the ReLU), keyed by layer name. The forward pass stops as soon as the
// deepest captured layer has been computed.
//
// It panics on unknown layer names or unloadable weights.
func (b *FeaturesBuilder) Done() map[string]*Node {
	arch := Architecture()
	valid := make(map[string]bool, len(arch))
	for _, layer := range arch {
		valid[layer.Name] = true
	}
	pending := make(map[string]bool, len(b.captures))
	for _, name := range b.captures {
		if !valid[name] {
			exceptions.Panicf("vgg19: unknown layer %q requested for capture", name)
		}
		pending[name] = true
	}

	captured := make(map[string]*Node, len(pending))
	x := b.image
	for _, layer := range arch {
		x = b.convLayer(layer, x)
		if pending[layer.Name] {
			captured[layer.Name] = x
			delete(pending, layer.Name)
			if len(pending) == 0 {
				break
			}
		}
		x = activations.Relu(x)
		if layer.PoolAfter {
			x = MaxPool(x).Window(2).NoPadding().Done()
		}
	}
	return captured
}

// convLayer builds one 3x3/stride-1 "same" convolution, loading the Keras
// weights when configured, and freezes its variables.
func (b *FeaturesBuilder) convLayer(layer ConvLayer, x *Node) *Node {
	// Mixed usage: variables may already exist from a previous graph built
	// on the same context.
	ctxConv := b.ctx.In(layer.Name).Checked(false)
	if b.baseDir != "" {
		group := layer.KerasName + "/" + layer.KerasName + "/"
		b.loadVariable(ctxConv, group+"kernel:0", "weights")
		b.loadVariable(ctxConv, group+"bias:0", "biases")
	}
	output := layers.Convolution(ctxConv, x).CurrentScope().
		Channels(layer.OutputChannels).KernelSize(3).PadSame().Done()
	for _, varName := range []string{"weights", "biases"} {
		if v := ctxConv.InspectVariable(ctxConv.Scope(), varName); v != nil {
			v.SetTrainable(false)
		}
	}
	return output
}

// loadVariable reads one unpacked tensor file into a context variable. If the
// variable already exists it is left untouched.
//
// The Keras kernels are stored as [kernelH, kernelW, inputChannels,
// outputChannels], the same layout layers.Convolution uses for channels-last
// inputs, so no transposition is needed.
func (b *FeaturesBuilder) loadVariable(ctx *context.Context, tensorFileName, variableName string) {
	if ctx.InspectVariable(ctx.Scope(), variableName) != nil {
		return
	}
	tensorPath := PathToTensor(b.baseDir, tensorFileName)
	local, err := tensors.Load(tensorPath)
	if err != nil {
		panic(errors.WithMessagef(err, "vgg19: failed to load pre-trained weights from %q -- "+
			"see vgg19.DownloadAndUnpackWeights", tensorPath))
	}
	_ = ctx.VariableWithValue(variableName, local)
}
