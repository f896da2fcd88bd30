package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenSetRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"fuzzy was a bear", "fuzzy fuzzy was a bear", 100},
		{"fever", "fever elevated body temperature", 100},
		{"temperature fever high", "fever elevated body temperature", 87},
		{"body heat", "cough dry cough", 33},
		{"fever", "cough dry cough", 14},
		{"feve", "fever elevated body temperature", 22},
		{"", "fever", 0},
		{"fever", "   ", 0},
	}
	for _, tt := range tests {
		t.Run(tt.a+"|"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, int(TokenSetRatio(tt.a, tt.b)))
			assert.Equal(t, tt.want, tokenSetSimilarity(tokenize(tt.a), tokenize(tt.b)).Int())
		})
	}
}

func TestTokenSetRatio_OrderInsensitive(t *testing.T) {
	assert.Equal(t, TokenSetRatio("dry cough night", "night cough"), TokenSetRatio("night cough dry", "cough night"))
	assert.Equal(t, TokenSetRatio("a b c", "x y"), TokenSetRatio("x y", "c b a"))
}

func TestRatio(t *testing.T) {
	assert.InDelta(t, 96.55, Ratio("this is a test", "this is a test!"), 0.01)
	assert.Equal(t, 100.0, Ratio("", ""))
	assert.Equal(t, 0.0, Ratio("abc", "xyz"))
	// rune based
	assert.Equal(t, 100.0, Ratio("ज्वर", "ज्वर"))
}
