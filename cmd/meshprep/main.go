// meshprep is a CLI utility for inspecting and preparing mesh fragment files.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/midgard-meshprep/internal/config"
	"github.com/Faultbox/midgard-meshprep/internal/glbind"
	"github.com/Faultbox/midgard-meshprep/internal/gpucaps/probe"
	"github.com/Faultbox/midgard-meshprep/internal/logger"
	"github.com/Faultbox/midgard-meshprep/internal/prepare"
	"github.com/Faultbox/midgard-meshprep/pkg/component"
	"github.com/Faultbox/midgard-meshprep/pkg/mesh"
	"github.com/Faultbox/midgard-meshprep/pkg/meshopt"
)

func main() {
	config.ParseFlags()
	args := config.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fileCfg := logger.FileConfig{
		Path:       cfg.Logging.LogFile,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, fileCfg, true); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	command := args[0]
	args = args[1:]

	switch command {
	case "info":
		cmdInfo(args)
	case "prepare", "p":
		cmdPrepare(cfg, args)
	case "batch":
		cmdBatch(cfg, args)
	case "caps":
		cmdCaps(cfg)
	case "layout":
		cmdLayout(args)
	case "config":
		cmdConfig(cfg, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`meshprep - mesh fragment preparation utility

Usage:
  meshprep [flags] <command> [options]

Commands:
  info [-yaml] <file.mfrg>             Show fragment components and combination
  prepare <file.mfrg> [output]         Optimize one fragment (in place by default)
  batch <dir>                          Optimize every fragment under a directory
  caps                                 Show the target device capabilities
  layout [-mode m] <file.mfrg>         Show GL buffer bindings (m: shading, depth, motion)
  config [path]                        Write the effective config (YAML or TOML)

Flags:
  -config <path>   Config file (.yaml or .toml)
  -debug           Debug logging
  -log-file <path> Also log to a rotated JSON file
  -mesh-shading    Build meshlets
  -task-shading    Build meshlets with culling bounds
  -probe           Read capabilities from the local GPU
  -workers <n>     Parallel fragments in batch mode
  -out <dir>       Output directory for batch mode

Examples:
  meshprep info hull.mfrg
  meshprep -task-shading prepare hull.mfrg hull_opt.mfrg
  meshprep -workers 8 -out ./prepared batch ./fragments`)
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", a...)
	logger.Sync()
	os.Exit(1)
}

func newRegistry() *component.Registry {
	reg := component.NewRegistry(component.WithLogger(logger.Named("registry")))
	if err := component.RegisterBuiltins(reg); err != nil {
		fatalf("registering components: %v", err)
	}
	return reg
}

func newPreparer(cfg *config.Config) *prepare.Preparer {
	caps := probe.Resolve(cfg.Device)
	p, err := prepare.New(prepare.OptionsFromConfig(cfg, caps), logger.Named("prepare"))
	if err != nil {
		fatalf("%v", err)
	}
	return p
}

type componentInfo struct {
	Type     string `yaml:"type"`
	Category string `yaml:"category"`
	Records  int    `yaml:"records"`
}

type fragmentInfo struct {
	Name        string          `yaml:"name"`
	Vertices    int             `yaml:"vertices"`
	Triangles   int             `yaml:"triangles"`
	Combination uint32          `yaml:"combination"`
	Flags       string          `yaml:"flags"`
	ACMR        float32         `yaml:"acmr,omitempty"`
	Components  []componentInfo `yaml:"components"`
}

func cmdInfo(args []string) {
	fset := flag.NewFlagSet("info", flag.ExitOnError)
	asYAML := fset.Bool("yaml", false, "Print as YAML")
	fset.Parse(args)

	if fset.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshprep info [-yaml] <file.mfrg>")
		os.Exit(1)
	}

	reg := newRegistry()
	f, err := mesh.ReadFile(fset.Arg(0), reg.NewInstance)
	if err != nil {
		fatalf("%v", err)
	}

	id := reg.InternFragment(f)
	info := fragmentInfo{
		Name:        f.Name,
		Vertices:    f.VertexCount(),
		Combination: id,
		Flags:       reg.Combination(id).Flags.String(),
	}
	if ib, ok := f.Indices(); ok && ib.IsTriangles() {
		info.Triangles = len(ib.Indices) / 3
		info.ACMR = meshopt.AnalyzeVertexCache(ib.Indices, f.VertexCount(), meshopt.DefaultCacheSize).ACMR
	}
	for _, c := range f.Components() {
		info.Components = append(info.Components, componentInfo{
			Type:     c.TypeName(),
			Category: c.Category().String(),
			Records:  c.Len(),
		})
	}

	if *asYAML {
		out, err := yaml.Marshal(info)
		if err != nil {
			fatalf("%v", err)
		}
		os.Stdout.Write(out)
		return
	}

	fmt.Printf("Fragment:    %s\n", info.Name)
	fmt.Printf("Vertices:    %d\n", info.Vertices)
	fmt.Printf("Triangles:   %d\n", info.Triangles)
	if info.ACMR > 0 {
		fmt.Printf("ACMR:        %.3f\n", info.ACMR)
	}
	fmt.Printf("Combination: %d %s\n", info.Combination, info.Flags)
	fmt.Println()
	fmt.Println("Components:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, c := range info.Components {
		fmt.Fprintf(w, "  %s\t%s\t%d\n", c.Type, c.Category, c.Records)
	}
	w.Flush()
}

func cmdPrepare(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshprep prepare <file.mfrg> [output]")
		os.Exit(1)
	}
	in := args[0]
	out := in
	if len(args) > 1 {
		out = args[1]
	}

	reg := newRegistry()
	f, err := mesh.ReadFile(in, reg.NewInstance)
	if err != nil {
		fatalf("%v", err)
	}

	res, err := newPreparer(cfg).Prepare(f)
	if err != nil {
		fatalf("%v", err)
	}
	if !res.Applied {
		fmt.Printf("%s: no triangle list, left unchanged\n", f.Name)
		if out == in {
			return
		}
	}
	if err := mesh.WriteFile(out, f); err != nil {
		fatalf("%v", err)
	}
	reg.InternFragment(f)
	printResult(f.Name, res)
}

func printResult(name string, res prepare.Result) {
	if !res.Applied {
		return
	}
	fmt.Printf("%s: %d -> %d vertices, %d triangles, ACMR %.3f -> %.3f",
		name, res.OriginalVertexCount, res.VertexCount, res.TriangleCount, res.Before.ACMR, res.After.ACMR)
	if res.Meshlets != nil {
		fmt.Printf(", %d meshlets", res.Meshlets.Len())
	}
	fmt.Println()
}

func cmdBatch(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshprep batch <dir>")
		os.Exit(1)
	}
	root := args[0]

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), cfg.Batch.Extension) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		fatalf("%v", err)
	}
	if len(paths) == 0 {
		fmt.Printf("No %s files under %s\n", cfg.Batch.Extension, root)
		return
	}

	reg := newRegistry()
	frags := make([]*mesh.Fragment, len(paths))
	for i, path := range paths {
		if frags[i], err = mesh.ReadFile(path, reg.NewInstance); err != nil {
			fatalf("%v", err)
		}
	}

	log := logger.Named("batch")
	log.Info("preparing fragments", zap.Int("count", len(frags)), zap.Int("workers", cfg.Batch.Workers))

	bar := progressbar.Default(int64(len(frags)), "preparing")
	results, err := newPreparer(cfg).PrepareAll(context.Background(), frags, cfg.Batch.Workers, func(int) {
		bar.Add(1)
	})
	bar.Finish()
	if err != nil {
		fatalf("%v", err)
	}

	var applied, before, after int
	for i, f := range frags {
		res := results[i]
		if !res.Applied {
			continue
		}
		applied++
		before += res.OriginalVertexCount
		after += res.VertexCount
		reg.InternFragment(f)

		out := paths[i]
		if cfg.Batch.OutputDir != "" {
			rel, err := filepath.Rel(root, paths[i])
			if err != nil {
				fatalf("%v", err)
			}
			out = filepath.Join(cfg.Batch.OutputDir, rel)
			if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
				fatalf("%v", err)
			}
		}
		if err := mesh.WriteFile(out, f); err != nil {
			fatalf("%v", err)
		}
	}

	fmt.Printf("Prepared %d of %d fragments, %d -> %d vertices, %d combinations\n",
		applied, len(frags), before, after, reg.CombinationCount())
}

func cmdCaps(cfg *config.Config) {
	caps := probe.Resolve(cfg.Device)
	if caps.Renderer != "" {
		fmt.Printf("Renderer:      %s\n", caps.Renderer)
	}
	fmt.Printf("Mesh shading:  %v\n", caps.MeshShading)
	fmt.Printf("Task shading:  %v\n", caps.TaskShading)
	if caps.MeshShading {
		fmt.Printf("Meshlet size:  %d vertices, %d triangles\n", cfg.Meshlet.MaxVertices, cfg.Meshlet.MaxTriangles)
	}
}

func cmdLayout(args []string) {
	fset := flag.NewFlagSet("layout", flag.ExitOnError)
	modeName := fset.String("mode", "shading", "Filter mode: shading, depth or motion")
	fset.Parse(args)

	if fset.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshprep layout [-mode m] <file.mfrg>")
		os.Exit(1)
	}

	var mode mesh.FilterMode
	switch strings.ToLower(*modeName) {
	case "shading":
		mode = mesh.FilterShading
	case "depth":
		mode = mesh.FilterDepth
	case "motion":
		mode = mesh.FilterMotion
	default:
		fatalf("unknown filter mode %q", *modeName)
	}

	reg := newRegistry()
	f, err := mesh.ReadFile(fset.Arg(0), reg.NewInstance)
	if err != nil {
		fatalf("%v", err)
	}

	active := reg.Combination(reg.InternFragment(f)).Flags
	fmt.Printf("%s (%s)\n\n", f.Name, mode)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BUFFER\tTARGET\tSTRIDE\tCOUNT\tATTRIBUTES")
	for _, b := range glbind.Translate(f.Gather(mode)) {
		var attrs []string
		for _, a := range b.Attributes {
			attrs = append(attrs, fmt.Sprintf("%d:%dx%s+%d", a.Index, a.Size, glbind.TypeName(a.Type), a.Offset))
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", b.Name, glbind.TargetName(b.Target), b.Stride, b.Count, strings.Join(attrs, " "))
	}
	w.Flush()

	fmt.Println()
	fmt.Println("Surface fields:")
	for _, s := range reg.SurfaceShaders(active, mode) {
		for _, fld := range s.Fields {
			fmt.Printf("  %-10s %-6s %-14s = %s\n", s.Component, fld.Type, fld.Name, fld.Default)
		}
	}
}

func cmdConfig(cfg *config.Config, args []string) {
	if len(args) < 1 {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			fatalf("%v", err)
		}
		os.Stdout.Write(out)
		return
	}
	if err := cfg.SaveTo(args[0]); err != nil {
		fatalf("%v", err)
	}
	fmt.Printf("Wrote %s\n", args[0])
}
