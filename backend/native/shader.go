//go:build !nogpu

package native

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// AtlasSampleWGSL is the reference shader for drawing a cache entry: it
// reads the palette index from the atlas layer and remaps it through the
// palette texture row.
//
//go:embed shaders/atlas_sample.wgsl
var AtlasSampleWGSL string

// CompileAtlasSampleShader compiles AtlasSampleWGSL to SPIR-V words.
func CompileAtlasSampleShader() ([]uint32, error) {
	spirvBytes, err := naga.Compile(AtlasSampleWGSL)
	if err != nil {
		return nil, fmt.Errorf("native: compile atlas shader: %w", err)
	}

	// SPIR-V is little-endian 32-bit words.
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return code, nil
}

// CreateAtlasSampleModule compiles the atlas shader and creates a shader
// module for it on the backend's device.
func (b *Backend) CreateAtlasSampleModule() (hal.ShaderModule, error) {
	code, err := CompileAtlasSampleShader()
	if err != nil {
		return nil, err
	}
	return b.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "texcache_atlas_sample",
		Source: hal.ShaderSource{SPIRV: code},
	})
}
