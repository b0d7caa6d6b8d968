package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalar_UnmarshalJSON(t *testing.T) {
	var payload struct {
		A Scalar `json:"a"`
		B Scalar `json:"b"`
		C Scalar `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"x","b":42,"c":null}`), &payload))
	assert.Equal(t, Scalar("x"), payload.A)
	assert.Equal(t, Scalar("42"), payload.B)
	assert.Equal(t, Scalar(""), payload.C)

	err := json.Unmarshal([]byte(`{"a":{"nested":true}}`), &payload)
	assert.Error(t, err)
}

func TestSmartTruncate(t *testing.T) {
	assert.Equal(t, "short", SmartTruncate("short", 10))
	assert.Equal(t, "hello...", SmartTruncate("hello world again", 10))
	assert.Equal(t, "abcdefghij...", SmartTruncate("abcdefghijklmnop", 10))
}

func TestItem_ShortDescription(t *testing.T) {
	desc := strings.Repeat("word ", 100)
	it := Item{Description: desc}

	short := it.ShortDescription()
	assert.True(t, strings.HasSuffix(short, "..."))
	assert.LessOrEqual(t, len(short), shortDescriptionLen+3)
}
