// Package prepare rewrites mesh fragments into a GPU-friendly layout:
// duplicate vertices are merged, triangles are reordered for the vertex
// cache and for overdraw, vertex storage follows first use, and meshlets are
// built when the device can draw them.
//
// Every step runs on a working copy; the fragment is only modified once all
// steps have succeeded.
package prepare

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-meshprep/internal/config"
	"github.com/Faultbox/midgard-meshprep/internal/gpucaps"
	"github.com/Faultbox/midgard-meshprep/internal/logger"
	"github.com/Faultbox/midgard-meshprep/pkg/mesh"
	"github.com/Faultbox/midgard-meshprep/pkg/meshopt"
)

// Options configures a Preparer.
type Options struct {
	Capabilities gpucaps.Capabilities

	MaxMeshletVertices  int
	MaxMeshletTriangles int

	CacheSize         int
	OverdrawThreshold float32
}

// DefaultOptions targets a device without mesh shaders.
func DefaultOptions() Options {
	return Options{
		MaxMeshletVertices:  meshopt.DefaultMaxMeshletVertices,
		MaxMeshletTriangles: meshopt.DefaultMaxMeshletTriangles,
		CacheSize:           meshopt.DefaultCacheSize,
		OverdrawThreshold:   meshopt.DefaultOverdrawThreshold,
	}
}

// OptionsFromConfig combines configuration with resolved capabilities.
func OptionsFromConfig(cfg *config.Config, caps gpucaps.Capabilities) Options {
	return Options{
		Capabilities:        caps,
		MaxMeshletVertices:  cfg.Meshlet.MaxVertices,
		MaxMeshletTriangles: cfg.Meshlet.MaxTriangles,
		CacheSize:           cfg.Optimizer.CacheSize,
		OverdrawThreshold:   cfg.Optimizer.OverdrawThreshold,
	}
}

// Result describes one Prepare call.
type Result struct {
	// Applied is false when the fragment was left alone because it has no
	// triangle list.
	Applied bool

	OriginalVertexCount int
	VertexCount         int
	TriangleCount       int

	Before meshopt.CacheStats
	After  meshopt.CacheStats

	// Meshlets is nil unless the device supports mesh shading.
	Meshlets *mesh.MeshletBuffer
}

// Preparer runs the preparation pipeline. It holds no per-fragment state, so
// one Preparer may serve many goroutines.
type Preparer struct {
	opts Options
	log  *zap.Logger
}

// New creates a Preparer. A nil logger uses the global one.
func New(opts Options, log *zap.Logger) (*Preparer, error) {
	if opts.CacheSize <= 0 {
		opts.CacheSize = meshopt.DefaultCacheSize
	}
	if opts.OverdrawThreshold < 1 {
		opts.OverdrawThreshold = meshopt.DefaultOverdrawThreshold
	}
	if opts.Capabilities.MeshShading {
		if err := meshopt.ValidateMeshletLimits(opts.MaxMeshletVertices, opts.MaxMeshletTriangles); err != nil {
			return nil, err
		}
	}
	if log == nil {
		log = logger.Named("prepare")
	}
	return &Preparer{opts: opts, log: log}, nil
}

// Options returns the effective options.
func (p *Preparer) Options() Options {
	return p.opts
}

// Prepare rewrites f in place. Fragments without a triangle list are not an
// error: Prepare returns a Result with Applied false and f untouched. On
// error f is also untouched.
func (p *Preparer) Prepare(f *mesh.Fragment) (Result, error) {
	start := time.Now()

	ib, ok := f.Indices()
	if !ok || !ib.IsTriangles() || len(ib.Indices) == 0 {
		p.log.Debug("fragment not applicable", logger.Fragment(f.Name))
		return Result{}, nil
	}

	ws, err := gather(f, ib)
	if err != nil {
		return Result{}, fmt.Errorf("preparing %s: %w", f.Name, err)
	}

	res := Result{
		Applied:             true,
		OriginalVertexCount: ws.vertexCount,
		TriangleCount:       len(ws.indices) / 3,
		Before:              meshopt.AnalyzeVertexCache(ws.indices, ws.vertexCount, p.opts.CacheSize),
	}

	remap, unique := meshopt.GenerateVertexRemap(ws.indices, ws.vertexCount, ws.key)
	ws.apply(remap, unique)

	ws.indices = meshopt.OptimizeVertexCache(ws.indices, ws.vertexCount, p.opts.CacheSize)

	if ws.positions != nil {
		ws.indices = meshopt.OptimizeOverdraw(ws.indices, ws.positions, p.opts.CacheSize, p.opts.OverdrawThreshold)
	}

	remap, unique = meshopt.OptimizeVertexFetchRemap(ws.indices, ws.vertexCount)
	ws.apply(remap, unique)

	if p.opts.Capabilities.MeshShading {
		res.Meshlets, err = p.buildMeshlets(ws)
		if err != nil {
			return Result{}, fmt.Errorf("preparing %s: %w", f.Name, err)
		}
	}

	res.VertexCount = ws.vertexCount
	res.After = meshopt.AnalyzeVertexCache(ws.indices, ws.vertexCount, p.opts.CacheSize)

	p.commit(f, ib, ws, res.Meshlets)

	fields := []zap.Field{
		logger.Fragment(f.Name),
		zap.Int("triangles", res.TriangleCount),
		zap.Int("vertices_before", res.OriginalVertexCount),
		zap.Int("vertices_after", res.VertexCount),
		zap.Float32("acmr_before", res.Before.ACMR),
		zap.Float32("acmr_after", res.After.ACMR),
		zap.Duration("elapsed", time.Since(start)),
	}
	if res.Meshlets != nil {
		fields = append(fields, zap.Int("meshlets", res.Meshlets.Len()))
	}
	p.log.Info("prepared fragment", fields...)
	return res, nil
}

func (p *Preparer) buildMeshlets(ws *workingSet) (*mesh.MeshletBuffer, error) {
	meshlets, err := meshopt.BuildMeshlets(ws.indices, ws.vertexCount, p.opts.MaxMeshletVertices, p.opts.MaxMeshletTriangles)
	if err != nil {
		return nil, err
	}
	out := &mesh.MeshletBuffer{Meshlets: meshlets}
	if p.opts.Capabilities.TaskShading && ws.positions != nil {
		out.Bounds = make([]meshopt.Bounds, len(meshlets))
		for i := range meshlets {
			out.Bounds[i] = meshopt.ComputeMeshletBounds(&meshlets[i], ws.positions)
		}
	}
	return out, nil
}

// commit swaps the working set into f. Stale meshlets from an earlier run
// are dropped because they index the old vertex order.
func (p *Preparer) commit(f *mesh.Fragment, ib *mesh.IndexBuffer, ws *workingSet, meshlets *mesh.MeshletBuffer) {
	ib.Indices = ws.indices
	for _, s := range ws.streams {
		f.Add(s)
	}
	if meshlets != nil {
		f.Add(meshlets)
	} else {
		f.Remove(mesh.MeshletTypeName)
	}
}
