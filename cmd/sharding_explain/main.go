// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// sharding_explain prints how an array is laid out over devices by a sharding: for each device, the region
// of the global array it holds, its shard shape and its size in bytes.
//
// The sharding is given by a YAML or TOML description file, e.g.:
//
//	kind: mesh
//	shape: [8, 512]
//	dtype: Float32
//	mesh:
//	  axes_sizes: [2, 2]
//	  axes_names: [data, model]
//	spec: [[data], []]
//
// Usage:
//
//	sharding_explain --config=sharding.yaml [--shape=16,512] [--bind=batch=8] [--diag] [--no_color]
//
// Arrays with dynamic axes are described with "axes" instead of "shape", e.g. axes: ["batch<=16", "512"],
// and the dynamic axes are resolved with "bindings" in the configuration, or with --bind.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/sharding/pkg/core/shapes"
	"github.com/gomlx/sharding/pkg/core/sharding"
	"github.com/gomlx/sharding/pkg/support/xslices"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	flagConfig  = flag.String("config", "", "Sharding description file, in YAML (.yaml, .yml) or TOML (.toml).")
	flagNoColor = flag.Bool("no_color", false, "Disable colors and styles in the output.")
	flagDiag    = flag.Bool("diag", false, "Print the CBOR diagnostic notation of the serialized sharding.")
	flagShape   = xslices.Flag("shape", nil,
		"Comma-separated dimensions of the global array. If set, it overrides the shape in --config.",
		strconv.Atoi)
	flagBind    = flag.String("bind", "",
		"Comma-separated values of the dynamic axes, e.g. \"batch=8,seq=128\". They are merged with the bindings in --config.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if *flagConfig == "" {
		klog.Errorf("Missing --config with the sharding description. See 'sharding_explain -help'.")
		os.Exit(1)
	}
	output := termenv.NewOutput(os.Stdout)
	if *flagNoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	} else {
		lipgloss.SetColorProfile(output.EnvColorProfile())
	}

	cfg, err := LoadConfig(*flagConfig)
	if err != nil {
		klog.Exitf("%+v", err)
	}
	if len(*flagShape) > 0 {
		cfg.Shape = *flagShape
		cfg.Axes = nil
	}
	bindings, err := shapes.ParseAxisBindings(*flagBind)
	if err != nil {
		klog.Exitf("Invalid --bind: %+v", err)
	}
	if err := cfg.BindAxes(bindings); err != nil {
		klog.Exitf("%+v", err)
	}
	if err := explain(os.Stdout, cfg, *flagDiag); err != nil {
		klog.Exitf("%+v", err)
	}
}

// explain writes the report of the sharding described by cfg.
func explain(w io.Writer, cfg *Config, diag bool) error {
	s, err := cfg.Build()
	if err != nil {
		return err
	}
	shape, dtype, err := cfg.Array()
	if err != nil {
		return err
	}
	klog.V(1).Infof("explaining %s for %s of %s", s, dtype, shape)

	// Index domains give origins and shapes. Variants without them may still know the shard shapes.
	origins := make([]string, s.Devices().Len())
	shardShapes := make([]*shapes.Shape, s.Devices().Len())
	domains, err := s.IndexDomains(shape)
	switch {
	case err == nil:
		for i, domain := range domains {
			origins[i] = fmt.Sprint([]int(domain.Origin))
			shardShapes[i] = &domain.Shape
		}
	case errors.Is(err, sharding.ErrUnsupported):
		klog.V(1).Infof("no index domains: %v", err)
		shards, err := s.Disassemble(shape)
		if err != nil && !errors.Is(err, sharding.ErrUnsupported) {
			return err
		}
		for i, shard := range shards {
			shardShapes[i] = &shard.Shape
		}
	default:
		return err
	}

	_, _ = fmt.Fprintln(w, titleStyle.Render("Shards"))
	table := newPlainTable(lipgloss.Right, lipgloss.Left, lipgloss.Left, lipgloss.Left, lipgloss.Left, lipgloss.Right)
	table.Headers("#", "Device", "Memory", "Origin", "Shard shape", "Bytes")
	var totalBytes uint64
	for i, device := range s.Devices().All() {
		origin, shardShape, size := "-", "-", "-"
		if origins[i] != "" {
			origin = origins[i]
		}
		if shardShapes[i] != nil {
			shardShape = shardShapes[i].String()
			bytes := uint64(shardShapes[i].ByteSize(dtype))
			totalBytes += bytes
			size = humanize.Bytes(bytes)
		}
		table.Row(strconv.Itoa(i), device.String(), s.MemoryKind().String(), origin, shardShape, size)
	}
	_, _ = fmt.Fprintln(w, table.Render())

	dynamicShape, isDynamic, err := cfg.DynamicShape()
	if err != nil {
		return err
	}
	if isDynamic {
		if err := explainDynamic(w, s, dynamicShape); err != nil {
			return err
		}
	}

	data, err := sharding.Serialize(s)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(w, titleStyle.Render("Summary"))
	summary := newPlainTable(lipgloss.Right, lipgloss.Left)
	summary.Row("sharding", s.String())
	summary.Row("kind", s.Kind().String())
	summary.Row("array", fmt.Sprintf("%s %s", dtype, shape))
	if isDynamic {
		summary.Row("dynamic shape", dynamicShape.String())
		summary.Row("bindings", cfg.Bindings.Key())
	}
	summary.Row("array bytes", humanize.Bytes(uint64(shape.ByteSize(dtype))))
	summary.Row("# devices", humanize.Comma(int64(s.Devices().Len())))
	summary.Row("fully replicated", strconv.FormatBool(s.IsFullyReplicated()))
	if totalBytes > 0 {
		summary.Row("bytes on devices", humanize.Bytes(totalBytes))
	}
	summary.Row("serialized size", humanize.Bytes(uint64(len(data))))
	_, _ = fmt.Fprintln(w, summary.Render())

	if diag {
		diagnostic, err := sharding.Diagnose(data)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(w, titleStyle.Render("Serialized"))
		_, _ = fmt.Fprintln(w, diagnostic)
	}
	return nil
}

// explainDynamic writes the dynamic shard shapes, for the shardings that define them.
func explainDynamic(w io.Writer, s sharding.Sharding, dynamicShape shapes.DynamicShape) error {
	shards, err := s.DisassembleDynamic(dynamicShape)
	if err != nil {
		if errors.Is(err, sharding.ErrUnsupported) || errors.Is(err, sharding.ErrInvalidArgument) {
			klog.V(1).Infof("no dynamic shards: %v", err)
			return nil
		}
		return err
	}
	_, _ = fmt.Fprintln(w, titleStyle.Render("Dynamic shards"))
	table := newPlainTable(lipgloss.Right, lipgloss.Left, lipgloss.Left)
	table.Headers("#", "Device", "Dynamic shard shape")
	for i, shard := range shards {
		table.Row(strconv.Itoa(i), s.Devices().At(i).String(), shard.Shape.String())
	}
	_, _ = fmt.Fprintln(w, table.Render())
	return nil
}
