package halgpu

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/spirv"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpures/device"
)

// shader is a compiled WGSL module and the entry point for its stage.
type shader struct {
	stage  device.ShaderStage
	module *ir.Module
	entry  string
	log    string
}

// compileKey identifies a compilation by stage and source digest.
type compileKey struct {
	stage device.ShaderStage
	sum   [sha256.Size]byte
}

// compiled is a validated module and its entry point, shared by every
// shader created from the same source. SPIR-V generation does not modify
// the module.
type compiled struct {
	module *ir.Module
	entry  string
}

// irStage maps a stage to its naga IR stage. WGSL has no geometry or
// tessellation stages.
func irStage(s device.ShaderStage) (ir.ShaderStage, bool) {
	switch s {
	case device.StageVertex:
		return ir.StageVertex, true
	case device.StageFragment:
		return ir.StageFragment, true
	case device.StageCompute:
		return ir.StageCompute, true
	case device.StageTask:
		return ir.StageTask, true
	case device.StageMesh:
		return ir.StageMesh, true
	default:
		return 0, false
	}
}

// compile parses, lowers and validates WGSL source and picks the first
// entry point of the requested stage.
func compile(stage device.ShaderStage, src string) (*ir.Module, string, error) {
	want, ok := irStage(stage)
	if !ok {
		return nil, "", fmt.Errorf("WGSL has no %s stage", stage)
	}

	ast, err := naga.Parse(src)
	if err != nil {
		return nil, "", err
	}
	module, err := naga.LowerWithSource(ast, src)
	if err != nil {
		return nil, "", err
	}
	verrs, err := naga.Validate(module)
	if err != nil {
		return nil, "", err
	}
	if len(verrs) > 0 {
		msgs := make([]string, len(verrs))
		for i, v := range verrs {
			msgs[i] = v.Error()
		}
		return nil, "", errors.New(strings.Join(msgs, "\n"))
	}

	for _, ep := range module.EntryPoints {
		if ep.Stage == want {
			return module, ep.Name, nil
		}
	}
	return nil, "", fmt.Errorf("no %s entry point", stage)
}

// toSPIRV generates SPIR-V words for a compiled module.
func (d *Device) toSPIRV(sh *shader) ([]uint32, error) {
	b, err := naga.GenerateSPIRV(sh.module, spirv.Options{
		Version: d.opts.spirvVersion,
		Debug:   d.opts.debugInfo,
	})
	if err != nil {
		return nil, err
	}
	// SPIR-V is little-endian 32-bit words
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return words, nil
}

// createModule uploads a compiled shader to the HAL device.
func (d *Device) createModule(sh *shader) (hal.ShaderModule, error) {
	words, err := d.toSPIRV(sh)
	if err != nil {
		return nil, fmt.Errorf("%s shader: %w", sh.stage, err)
	}
	m, err := d.dev.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  fmt.Sprintf("%s %s %s", d.opts.label, sh.stage, sh.entry),
		Source: hal.ShaderSource{SPIRV: words},
	})
	if err != nil {
		return nil, fmt.Errorf("%s shader module: %w", sh.stage, err)
	}
	return m, nil
}
