package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"single line", "```json{\"a\":1}```", `{"a":1}`},
		{"surrounding whitespace", "  \n```json\n{\"a\":1}\n```  \n", `{"a":1}`},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFence(tt.input))
		})
	}
}

func TestParseJSON_RejectsTrailingData(t *testing.T) {
	var v map[string]interface{}
	err := ParseJSON(`{"a":1} trailing`, &v)
	require.Error(t, err)

	require.NoError(t, ParseJSON(`{"a":1}`, &v))
	assert.Contains(t, v, "a")
}

func TestTruncateRunes(t *testing.T) {
	out, cut := TruncateRunes("żółć", 2)
	assert.Equal(t, "żó", out)
	assert.True(t, cut)

	out, cut = TruncateRunes("abc", 5)
	assert.Equal(t, "abc", out)
	assert.False(t, cut)

	out, cut = TruncateRunes("abc", 3)
	assert.Equal(t, "abc", out)
	assert.False(t, cut)
}
