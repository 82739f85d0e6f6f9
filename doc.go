// Package gpures manages GPU resources on top of an abstract graphics
// device: typed generational handles, images with their views, and
// shader pipelines that can be rebuilt from their sources while the
// program runs.
//
// # Overview
//
// The module is organized into:
//   - handle: generational handle tables (Table[T], Handle[T])
//   - layout: vertex attribute layouts derived from struct fields
//   - device: the Device capability plus formats, image types and constants
//   - device/halgpu: Device on a gogpu/wgpu HAL device (WGSL via naga)
//   - device/gldevice: Device on an OpenGL 4.6 context (GLSL via the driver)
//   - images: image and view manager
//   - shaders: pipeline manager with hot reload and a file watcher
//
// # Quick Start
//
//	dev := halgpu.New(halDevice, halQueue)
//	res := gpures.New(dev, gpures.WithLabelPrefix("demo"))
//	defer res.Close()
//
//	img, err := res.Images.LoadImageFile("albedo.png", 0, true)
//	if err != nil {
//		return err
//	}
//	view, _ := res.Images.CreateViewWhole(img)
//	res.Images.Bind(0, view)
//
//	pipe, err := res.Shaders.CreatePipelineFromFiles("mesh.vert.wgsl", "mesh.frag.wgsl")
//	if err != nil {
//		return err
//	}
//	res.Shaders.BindPipeline(pipe)
//
//	// later, after editing the shader files:
//	for _, r := range res.Shaders.ReloadAll() {
//		if r.Err != nil {
//			log.Print(r.Err) // the previous pipeline is still bound
//		}
//	}
//
// # Ownership
//
// Managers borrow the Device and own every native object they create.
// Handles are plain values; a handle whose entry was deleted never
// resolves again, even if its slot is reused.
//
// # Concurrency
//
// Managers are not safe for concurrent use. Drive them from the goroutine
// that owns the graphics context.
package gpures
