package shader

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/goki/vulkan"
)

func sliceUint32(raw []byte) []uint32 {
	const SIZEOF_UINT32 = 4

	result := make([]uint32, len(raw)/SIZEOF_UINT32)
	for i := range result {
		// SPIR-V is little endian on every supported target
		result[i] = binary.LittleEndian.Uint32(raw[i*SIZEOF_UINT32 : (i+1)*SIZEOF_UINT32])
	}

	return result
}

// Load reads a SPIR-V file and creates a module from it.
func Load(path string, logicalDevice vulkan.Device) (vulkan.ShaderModule, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read shader %s: %w", path, err)
	}
	if len(code) == 0 || len(code)%4 != 0 {
		return nil, fmt.Errorf("shader %s: size %d is not a multiple of 4", path, len(code))
	}

	var shaderModule vulkan.ShaderModule
	if err := vulkan.Error(vulkan.CreateShaderModule(logicalDevice, &vulkan.ShaderModuleCreateInfo{
		SType:    vulkan.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code)),
		PCode:    sliceUint32(code),
	}, nil, &shaderModule)); err != nil {
		return nil, fmt.Errorf("create shader module %s: %w", path, err)
	}

	return shaderModule, nil
}
