package shaders

import (
	_ "embed"
)

//go:embed gbuffer.wgsl
var GBufferWGSL string

//go:embed shadow_directional.wgsl
var ShadowDirectionalWGSL string

//go:embed shadow_point.wgsl
var ShadowPointWGSL string

//go:embed equirect.wgsl
var EquirectWGSL string

//go:embed irradiance.wgsl
var IrradianceWGSL string

//go:embed lighting.wgsl
var LightingWGSL string

//go:embed ssr.wgsl
var SSRWGSL string

//go:embed downsample.wgsl
var DownsampleWGSL string

//go:embed tonemap.wgsl
var ToneMapWGSL string

//go:embed picking.wgsl
var PickingWGSL string

//go:embed fullscreen.wgsl
var FullscreenWGSL string

//go:embed text.wgsl
var TextWGSL string

// All returns every embedded shader keyed by file name.
func All() map[string]string {
	return map[string]string{
		"gbuffer.wgsl":            GBufferWGSL,
		"shadow_directional.wgsl": ShadowDirectionalWGSL,
		"shadow_point.wgsl":       ShadowPointWGSL,
		"equirect.wgsl":           EquirectWGSL,
		"irradiance.wgsl":         IrradianceWGSL,
		"lighting.wgsl":           LightingWGSL,
		"ssr.wgsl":                SSRWGSL,
		"downsample.wgsl":         DownsampleWGSL,
		"tonemap.wgsl":            ToneMapWGSL,
		"picking.wgsl":            PickingWGSL,
		"fullscreen.wgsl":         FullscreenWGSL,
		"text.wgsl":               TextWGSL,
	}
}
