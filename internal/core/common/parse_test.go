package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type verdict struct {
	IsDuplicate bool    `json:"is_duplicate"`
	Confidence  float64 `json:"confidence"`
}

func TestParseJSONPlain(t *testing.T) {
	v, err := ParseJSON[verdict](`{"is_duplicate": true, "confidence": 0.9}`)
	require.NoError(t, err)
	assert.True(t, v.IsDuplicate)
	assert.Equal(t, 0.9, v.Confidence)
}

func TestParseJSONWithSurroundingProse(t *testing.T) {
	v, err := ParseJSON[verdict]("Here you go:\n```json\n{\"is_duplicate\": false, \"confidence\": 0.3}\n```\nLet me know!")
	require.NoError(t, err)
	assert.False(t, v.IsDuplicate)
	assert.Equal(t, 0.3, v.Confidence)
}

func TestParseJSONNoObject(t *testing.T) {
	_, err := ParseJSON[verdict]("no json here")
	assert.Error(t, err)
}

func TestParseJSONInvalidBody(t *testing.T) {
	_, err := ParseJSON[verdict](`{"confidence": "not a number"}`)
	assert.Error(t, err)
}
