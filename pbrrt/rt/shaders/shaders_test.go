package shaders

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// naga does not implement every WGSL feature yet; those failures are skipped.
var nagaLimitations = []string{
	"not yet implemented",
	"not supported",
	"unsupported",
	"lowering error",
	"atomic",
}

func knownLimitation(err error) bool {
	msg := err.Error()
	for _, s := range nagaLimitations {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func TestEmbeddedSources(t *testing.T) {
	for name, src := range All() {
		assert.NotEmpty(t, src, name)
	}
	assert.Contains(t, LightingWGSL, "@workgroup_size(8, 8, 1)")
	assert.Contains(t, IrradianceWGSL, "AZIMUTH_STEP: f32 = 0.125")
	assert.Contains(t, IrradianceWGSL, "POLAR_STEP: f32 = 0.025")
}

func TestComputeShadersBoundsCheck(t *testing.T) {
	for _, src := range []string{IrradianceWGSL, EquirectWGSL, LightingWGSL, SSRWGSL, DownsampleWGSL, ToneMapWGSL} {
		assert.Contains(t, src, "textureDimensions(")
		assert.Contains(t, src, "return;")
	}
}

func TestToneMapClampsOverflow(t *testing.T) {
	// +inf texels from the f16 target must not reach c / (c + 1)
	assert.Contains(t, ToneMapWGSL, "const HDR_MAX: f32 = 65504.0;")
	assert.Contains(t, ToneMapWGSL, "vec3<f32>(HDR_MAX)")
	assert.Contains(t, ToneMapWGSL, "vec3<f32>(BELOW_ONE)")
}

func TestShadersCompile(t *testing.T) {
	for name, src := range All() {
		t.Run(name, func(t *testing.T) {
			words, err := Compile(name, src)
			if err != nil {
				if knownLimitation(err) {
					t.Skipf("Skipping: naga limitation: %v", err)
				}
				t.Fatalf("failed to compile %s: %v", name, err)
			}
			require.NotEmpty(t, words)
			assert.Equal(t, uint32(SPIRVMagic), words[0])
		})
	}
}
