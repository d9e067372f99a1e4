package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCursorToPixel(t *testing.T) {
	x, y := CursorToPixel(100, 50, 800, 600, 1600, 1200)
	assert.Equal(t, 200, x)
	assert.Equal(t, 100, y)

	x, y = CursorToPixel(10.7, 3.2, 0, 0, 1600, 1200)
	assert.Equal(t, 10, x)
	assert.Equal(t, 3, y)
}
