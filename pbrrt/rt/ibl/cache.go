package ibl

import (
	"time"

	"github.com/gekko3d/deferred"
	"github.com/gekko3d/deferred/pbrrt/rt/core"
	"github.com/gekko3d/deferred/pbrrt/rt/frame"
)

// Cache holds the irradiance of the last environment it convolved and
// recomputes only when the environment or its version changes.
type Cache struct {
	Size       int
	Dispatcher *frame.Dispatcher
	Logger     deferred.Logger

	env        *core.Cubemap
	version    uint64
	irradiance *core.Cubemap
	builds     int
}

func NewCache(size int, d *frame.Dispatcher, logger deferred.Logger) *Cache {
	return &Cache{Size: size, Dispatcher: d, Logger: deferred.OrNop(logger)}
}

// Irradiance returns the irradiance cube for env, or nil without an environment.
func (c *Cache) Irradiance(env *core.Cubemap, version uint64) *core.Cubemap {
	if env == nil {
		c.env, c.irradiance = nil, nil
		return nil
	}
	if c.irradiance != nil && c.env == env && c.version == version {
		return c.irradiance
	}
	start := time.Now()
	c.irradiance = Convolve(env, c.Size, c.Dispatcher)
	c.env, c.version = env, version
	c.builds++
	c.Logger.Infof("ibl: irradiance %d^2 from %d^2 environment in %v", c.irradiance.Size, env.Size, time.Since(start))
	return c.irradiance
}

// Builds reports how many convolutions the cache has run.
func (c *Cache) Builds() int {
	return c.builds
}
