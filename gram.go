// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package styletransfer

import (
	. "github.com/gomlx/gomlx/pkg/core/graph"
)

// GramMatrix summarizes which feature channels fire together, discarding
// where: for features shaped [batch, height, width, channels] it returns
// [batch, channels, channels], entry (c, d) being the product of channels c
// and d summed over all spatial positions, divided by channels*height*width.
//
// Because the spatial structure is summed away, Gram matrices of feature
// maps with different spatial sizes remain comparable, which is what makes
// them a useful style summary.
func GramMatrix(features *Node) *Node {
	dims := features.Shape().Dimensions
	height, width, channels := dims[1], dims[2], dims[3]
	gram := Einsum("bhwc,bhwd->bcd", features, features)
	return DivScalar(gram, float64(channels*height*width))
}
