// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package vgg19

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
)

// Per-channel RGB statistics of the ImageNet training set, in the [0, 1]
// domain, the same normalization VGG19 was trained with.
var (
	ImageNetMean   = []float32{0.485, 0.456, 0.406}
	ImageNetStdDev = []float32{0.229, 0.224, 0.225}
)

// PreprocessImage normalizes a batched channels-last image with values in
// [0, 1] to the domain the backbone was trained on: per-channel ImageNet mean
// subtracted, divided by the per-channel standard deviation.
func PreprocessImage(image *Node) *Node {
	g := image.Graph()
	mean := InsertAxes(Const(g, ImageNetMean), 0, 0, 0)
	stddev := InsertAxes(Const(g, ImageNetStdDev), 0, 0, 0)
	return Div(Sub(image, mean), stddev)
}

// UnpreprocessImage reverts PreprocessImage and clips the result to [0, 1]
// for display.
func UnpreprocessImage(image *Node) *Node {
	g := image.Graph()
	mean := InsertAxes(Const(g, ImageNetMean), 0, 0, 0)
	stddev := InsertAxes(Const(g, ImageNetStdDev), 0, 0, 0)
	return ClipScalar(Add(Mul(image, stddev), mean), 0.0, 1.0)
}
