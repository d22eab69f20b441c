package acl

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskBuilder(t *testing.T) {
	b := NewMaskBuilder(0).Add(MaskView).Add(MaskEdit).Add(MaskOwner)
	assert.Equal(t, int32(1|4|128), b.Get())

	b.Remove(MaskEdit)
	assert.Equal(t, MaskView|MaskOwner, b.Get())

	pattern := b.Pattern()
	assert.Len(t, pattern, 32)
	assert.True(t, strings.HasSuffix(pattern, "N......V"), pattern)

	assert.Equal(t, int32(0), b.Reset().Get())
}

func TestMaskPatternUnknownBits(t *testing.T) {
	pattern := NewMaskBuilder(1 << 9).Pattern()
	assert.Equal(t, strings.Repeat(".", 22)+"*"+strings.Repeat(".", 9), pattern)
}

func TestParseMask(t *testing.T) {
	m, err := ParseMask("edit")
	require.NoError(t, err)
	assert.Equal(t, MaskEdit, m)

	_, err = ParseMask("fly")
	assert.Error(t, err)
}
