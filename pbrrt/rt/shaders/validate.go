package shaders

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gogpu/naga"
)

// SPIRVMagic is the first word of every SPIR-V module.
const SPIRVMagic = 0x07230203

var ErrBadSPIRV = errors.New("invalid SPIR-V output")

// Compile translates one WGSL source to SPIR-V words.
func Compile(name, src string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	if len(spirvBytes) < 4 || len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("%s: %w: %d bytes", name, ErrBadSPIRV, len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	if words[0] != SPIRVMagic {
		return nil, fmt.Errorf("%s: %w: magic %#x", name, ErrBadSPIRV, words[0])
	}
	return words, nil
}

// Validate compiles every embedded shader and joins the failures.
func Validate() error {
	all := All()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		if _, err := Compile(name, all[name]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
