// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Command styletransfer renders a content image in the style of another
// image and saves a "content | style | result" montage as PNG.
//
// Example:
//
//	styletransfer --content=photo.jpg --style=painting.jpg --output=stylized.png
//
// Hyperparameters can be overridden with --set, e.g.
// --set="train_steps=500;style_weight=1e5".
package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/support/exceptions"
	"github.com/gomlx/gomlx/ui/commandline"
	"github.com/gomlx/styletransfer"
	"k8s.io/klog/v2"

	_ "github.com/gomlx/gomlx/backends/default"
)

var (
	flagContent = flag.String("content", "", "Path to the content image (JPEG or PNG). If empty or unreadable, random pixels are substituted.")
	flagStyle   = flag.String("style", "", "Path to the style image (JPEG or PNG). If empty or unreadable, random pixels are substituted.")
	flagOutput  = flag.String("output", "stylized.png", "Path for the output montage (content | style | result).")
	flagDataDir = flag.String("data", "~/.cache/styletransfer", "Directory to cache the downloaded VGG19 weights.")
	flagPalette = flag.Int("palette", 5, "Number of dominant colors to report for the style and result images. Set to 0 to disable the report.")
)

var backend = backends.MustNew()

func main() {
	ctx := styletransfer.CreateDefaultContext()
	settings := commandline.CreateContextSettingsFlag(ctx, "")
	klog.InitFlags(nil)
	flag.Parse()
	_ = check1(commandline.ParseContextSettings(ctx, *settings))
	cfg := styletransfer.NewConfig(backend, ctx, *flagDataDir)
	err := exceptions.TryCatch[error](func() { run(cfg) })
	if err != nil {
		klog.Fatalf("Failed with error: %+v", err)
	}
}

func run(cfg *styletransfer.Config) {
	content := styletransfer.LoadImage(backend, *flagContent, cfg.ImageSize)
	style := styletransfer.LoadImage(backend, *flagStyle, cfg.ImageSize)
	engine := check1(styletransfer.New(cfg, content, style))
	result := engine.Run()

	styleImage := styletransfer.DenormalizeImage(backend, style)
	check(styletransfer.SaveMontage(*flagOutput,
		styletransfer.DenormalizeImage(backend, content), styleImage, result))
	fmt.Printf("Montage (content | style | result) saved to %s\n", *flagOutput)

	if *flagPalette > 0 {
		stylePalette := styletransfer.Palette(styletransfer.TensorToImage(styleImage), *flagPalette)
		resultPalette := styletransfer.Palette(styletransfer.TensorToImage(result), *flagPalette)
		fmt.Printf("Style palette:  %s\n", strings.Join(styletransfer.PaletteHex(stylePalette), " "))
		fmt.Printf("Result palette: %s\n", strings.Join(styletransfer.PaletteHex(resultPalette), " "))
	}
}

// check reports and exits on error.
func check(err error) {
	if err == nil {
		return
	}
	klog.Fatalf("Fatal error: %+v", err)
}

// check1 reports and exits on error. Otherwise returns the value passed.
func check1[T any](v T, err error) T {
	check(err)
	return v
}
