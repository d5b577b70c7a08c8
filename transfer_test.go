package styletransfer

import (
	"testing"

	"github.com/gomlx/gomlx/pkg/core/dtypes"
	"github.com/gomlx/gomlx/pkg/core/graph/graphtest"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestConfig builds a small run on a randomly initialized backbone, so
// tests need no weights download.
func newTestConfig(t *testing.T, imageSize, trainSteps int, overrides map[string]any) *Config {
	backend := graphtest.BuildTestBackend()
	ctx := CreateDefaultContext()
	ctx.SetParams(map[string]any{
		"image_size":  imageSize,
		"train_steps": trainSteps,
	})
	if overrides != nil {
		ctx.SetParams(overrides)
	}
	cfg := NewConfig(backend, ctx, t.TempDir())
	cfg.PreTrained = false
	return cfg
}

func TestEngineLossesDeterministic(t *testing.T) {
	cfg := newTestConfig(t, 16, 1, nil)
	content := SyntheticImage(cfg.Backend, cfg.ImageSize)
	style := SyntheticImage(cfg.Backend, cfg.ImageSize)
	engine, err := New(cfg, content, style)
	require.NoError(t, err)

	// Without a step in between, recomputing the losses on the unchanged
	// candidate gives identical values.
	content1, style1 := engine.Losses()
	content2, style2 := engine.Losses()
	assert.Equal(t, content1, content2)
	assert.Equal(t, style1, style2)
}

func TestEngineContentOnly(t *testing.T) {
	// With the style loss weighted to zero and the candidate initialized to
	// the content image, the total loss starts at its minimum: the gradient
	// on the pixels is zero and the candidate must not move.
	cfg := newTestConfig(t, 16, 5, map[string]any{"style_weight": 0.0})
	content := SyntheticImage(cfg.Backend, cfg.ImageSize)
	style := SyntheticImage(cfg.Backend, cfg.ImageSize)
	engine, err := New(cfg, content, style)
	require.NoError(t, err)

	contentLoss, _ := engine.Losses()
	assert.InDelta(t, 0.0, contentLoss, 1e-5)

	result := engine.Run()
	contentLoss, _ = engine.Losses()
	assert.InDelta(t, 0.0, contentLoss, 1e-5)

	want := DenormalizeImage(cfg.Backend, content)
	require.True(t, want.Shape().Equal(result.Shape()))
	tensors.MustConstFlatData[float32](want, func(wantFlat []float32) {
		tensors.MustConstFlatData[float32](result, func(gotFlat []float32) {
			for ii := range wantFlat {
				assert.InDelta(t, wantFlat[ii], gotFlat[ii], 1e-5)
			}
		})
	})
}

func TestEngineRun(t *testing.T) {
	// LoadImage on paths that don't exist falls back to synthetic images,
	// so the whole pipeline runs with no input files at all.
	cfg := newTestConfig(t, 16, 10, nil)
	content := LoadImage(cfg.Backend, "/does/not/exist/content.jpg", cfg.ImageSize)
	style := LoadImage(cfg.Backend, "", cfg.ImageSize)
	require.NoError(t, content.Shape().Check(dtypes.F32, 1, 16, 16, 3))
	require.NoError(t, style.Shape().Check(dtypes.F32, 1, 16, 16, 3))

	engine, err := New(cfg, content, style)
	require.NoError(t, err)
	_, styleBefore := engine.Losses()

	result := engine.Run()
	require.NoError(t, result.Shape().Check(dtypes.F32, 16, 16, 3))
	tensors.MustConstFlatData[float32](result, func(flat []float32) {
		for _, v := range flat {
			assert.GreaterOrEqual(t, v, float32(0))
			assert.LessOrEqual(t, v, float32(1))
		}
	})

	// Soft check: the heavily weighted style loss should not have gotten
	// worse over the run.
	_, styleAfter := engine.Losses()
	assert.LessOrEqual(t, styleAfter, styleBefore*1.01)
}
