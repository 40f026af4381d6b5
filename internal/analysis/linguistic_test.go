package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormalText(t *testing.T) {
	a := NewLinguisticAnalyzer()
	res := a.Analyze("Dear Board Members, the engineering division has achieved every strategic objective for this fiscal year.")

	assert.Equal(t, "formal", res.Formality)
	assert.Greater(t, res.FormalityConfidence, 0.5)
}

func TestInformalPositiveText(t *testing.T) {
	a := NewLinguisticAnalyzer()
	res := a.Analyze("Hey team! We're gonna crush it this quarter and the vibe is absolutely amazing lol!")

	assert.Equal(t, "informal", res.Formality)
	assert.Equal(t, "positive", res.Tone)
	assert.Greater(t, res.ToneConfidence, 0.3)
}

func TestConfidenceBounds(t *testing.T) {
	a := NewLinguisticAnalyzer()
	for _, text := range []string{"", "ok", "Mixed kinda formal text with SOME noise.", "Excellent work, truly outstanding results!"} {
		res := a.Analyze(text)
		assert.GreaterOrEqual(t, res.FormalityConfidence, 0.1, "text %q", text)
		assert.LessOrEqual(t, res.FormalityConfidence, 1.0, "text %q", text)
		assert.GreaterOrEqual(t, res.ToneConfidence, 0.05, "text %q", text)
		assert.LessOrEqual(t, res.ToneConfidence, 1.0, "text %q", text)
	}
}

func TestStyleVectorShapeAndNorm(t *testing.T) {
	vec := StyleVector("The project timeline spans three quarters with monthly checkpoints.")
	require.Len(t, vec, 128)

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}

func TestStyleVectorEmptyInputIsZero(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		vec := StyleVector(text)
		require.Len(t, vec, 128)
		for _, v := range vec {
			assert.Zero(t, v)
		}
	}
}

func TestStyleVectorIsDeterministic(t *testing.T) {
	a := StyleVector("repeatable input text")
	b := StyleVector("repeatable input text")
	assert.Equal(t, a, b)
}
