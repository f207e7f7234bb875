package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageAlign(t *testing.T) {
	const pageSize = 4096

	assert.Equal(t, uint64(0x1000), PageRoundDown(0x1abc, pageSize))
	assert.Equal(t, uint64(0x1000), PageRoundDown(0x1000, pageSize))
	assert.Equal(t, uint64(0x2000), PageRoundUp(0x1001, pageSize))
	assert.Equal(t, uint64(0x1000), PageRoundUp(0x1000, pageSize))

	assert.True(t, IsPageAligned(0x3000, pageSize))
	assert.False(t, IsPageAligned(0x3001, pageSize))
}
