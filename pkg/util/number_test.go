package util

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.01, Round2(1.005))
	assert.Equal(t, -1.01, Round2(-1.005))
	assert.Equal(t, 154.8, Round2(154.8))
}

func TestToFloat(t *testing.T) {
	for _, v := range []interface{}{1.5, float32(1.5), json.Number("1.5")} {
		f, ok := ToFloat(v)
		assert.True(t, ok)
		assert.Equal(t, 1.5, f)
	}
	f, ok := ToFloat(true)
	assert.True(t, ok)
	assert.Equal(t, 1.0, f)

	_, ok = ToFloat("1.5")
	assert.False(t, ok)
}
