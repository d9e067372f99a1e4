package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

type ToneMapOperator uint32

const (
	// ToneMapExposure maps c to 1 - exp(-c * exposure).
	ToneMapExposure ToneMapOperator = iota
	// ToneMapReinhard maps c to c / (c + 1).
	ToneMapReinhard
)

func (o ToneMapOperator) String() string {
	switch o {
	case ToneMapExposure:
		return "exposure"
	case ToneMapReinhard:
		return "reinhard"
	}
	return fmt.Sprintf("ToneMapOperator(%d)", uint32(o))
}

func ParseToneMapOperator(s string) (ToneMapOperator, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "exposure":
		return ToneMapExposure, nil
	case "reinhard":
		return ToneMapReinhard, nil
	}
	return 0, fmt.Errorf("%w: unknown tone map operator %q", ErrInvalidParams, s)
}

var ErrInvalidParams = errors.New("invalid render params")

// RenderParams are the runtime-tunable knobs, safe to change between frames.
type RenderParams struct {
	ToneMap  ToneMapOperator
	Exposure float32

	SSRThickness   float32 // world units
	SSRMaxDistance float32
	SSRMaxSteps    uint32
	SSRStrength    float32

	DirectionalShadowBias float32 // NDC depth units
	PointShadowBias       float32 // normalized distance units

	Picking bool
}

func DefaultRenderParams() RenderParams {
	return RenderParams{
		ToneMap:               ToneMapExposure,
		Exposure:              1.0,
		SSRThickness:          0.3,
		SSRMaxDistance:        15.0,
		SSRMaxSteps:           256,
		SSRStrength:           1.0,
		DirectionalShadowBias: 0.0008,
		PointShadowBias:       0.002,
	}
}

func (p RenderParams) Validate() error {
	if p.ToneMap != ToneMapExposure && p.ToneMap != ToneMapReinhard {
		return fmt.Errorf("%w: tone map %v", ErrInvalidParams, p.ToneMap)
	}
	checks := []struct {
		name string
		v    float32
	}{
		{"exposure", p.Exposure},
		{"ssr thickness", p.SSRThickness},
		{"ssr max distance", p.SSRMaxDistance},
		{"ssr strength", p.SSRStrength},
		{"directional shadow bias", p.DirectionalShadowBias},
		{"point shadow bias", p.PointShadowBias},
	}
	for _, c := range checks {
		f := float64(c.v)
		if math.IsNaN(f) || math.IsInf(f, 0) || c.v < 0 {
			return fmt.Errorf("%w: %s = %v", ErrInvalidParams, c.name, c.v)
		}
	}
	if p.Exposure == 0 && p.ToneMap == ToneMapExposure {
		return fmt.Errorf("%w: exposure must be positive", ErrInvalidParams)
	}
	return nil
}
