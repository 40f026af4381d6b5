// Package analysis derives linguistic style and image classification
// from parsed document content.
package analysis

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"github.com/jonreiter/govader"
)

// styleVectorDims is the fixed StyleVector dimensionality.
const styleVectorDims = 128

var (
	tokenRe       = regexp.MustCompile(`\b[\p{L}\p{M}']+\b`)
	contractionRe = regexp.MustCompile(`(?i)\b(\w+)'(re|ve|ll|d|m|s|t)\b`)

	informalMarkers = map[string]bool{
		"gonna": true, "wanna": true, "kinda": true, "sorta": true,
		"lol": true, "btw": true, "fyi": true, "hey": true, "yo": true,
		"what's up": true, "dude": true,
	}
)

// LinguisticAnalyzer computes formality, tone and a writing-style
// fingerprint from sample text.
type LinguisticAnalyzer struct {
	sentiment *govader.SentimentIntensityAnalyzer
}

// NewLinguisticAnalyzer creates the analyzer with its VADER lexicon.
func NewLinguisticAnalyzer() *LinguisticAnalyzer {
	return &LinguisticAnalyzer{sentiment: govader.NewSentimentIntensityAnalyzer()}
}

// LinguisticResult is the style summary for one text sample.
type LinguisticResult struct {
	Formality           string
	FormalityConfidence float64
	Tone                string
	ToneConfidence      float64
	StyleVector         []float64
}

// Analyze scores formality and tone and builds the style vector.
func (a *LinguisticAnalyzer) Analyze(text string) LinguisticResult {
	formality, formalityConf := a.formality(text)
	tone, toneConf := a.tone(text)
	return LinguisticResult{
		Formality:           formality,
		FormalityConfidence: round3(formalityConf),
		Tone:                tone,
		ToneConfidence:      round3(toneConf),
		StyleVector:         StyleVector(text),
	}
}

func (a *LinguisticAnalyzer) formality(text string) (string, float64) {
	tokens := tokenRe.FindAllString(text, -1)
	w := float64(len(tokens))
	if w < 1 {
		w = 1
	}

	contractions := float64(len(contractionRe.FindAllString(text, -1)))

	var informal, uppercase float64
	for _, tok := range tokens {
		if informalMarkers[strings.ToLower(tok)] {
			informal++
		}
		if len(tok) > 1 && isAllUpper(tok) {
			uppercase++
		}
	}
	// The one multi-word marker cannot match a single token.
	informal += float64(strings.Count(strings.ToLower(text), "what's up"))

	score := 1 -
		contractions/w*0.8 -
		math.Min(0.8, informal/w*2.0) -
		math.Min(0.3, uppercase/w*0.3)
	score = clamp(score, 0, 1)

	formality := "informal"
	if score >= 0.55 {
		formality = "formal"
	}
	confidence := clamp(math.Abs(score-0.5)*2, 0.1, 1.0)
	return formality, confidence
}

func (a *LinguisticAnalyzer) tone(text string) (string, float64) {
	compound := a.sentiment.PolarityScores(text).Compound

	tone := "neutral"
	switch {
	case compound > 0.25:
		tone = "positive"
	case compound < -0.25:
		tone = "negative"
	}
	confidence := clamp(math.Abs(compound), 0.05, 1.0)
	return tone, confidence
}

// StyleVector builds a 128-dim hashed bag-of-words fingerprint,
// L2-normalised. Empty input yields the zero vector.
func StyleVector(text string) []float64 {
	vec := make([]float64, styleVectorDims)

	for _, tok := range tokenRe.FindAllString(strings.ToLower(text), -1) {
		vec[xxhash.Sum64String(tok)%styleVectorDims]++

		var sum uint64
		for _, r := range tok {
			sum += uint64(r)
		}
		vec[(sum+uint64(len(tok)))%styleVectorDims] += 0.5
	}

	var magnitude float64
	for _, v := range vec {
		magnitude += v * v
	}
	if magnitude > 0 {
		magnitude = math.Sqrt(magnitude)
		for i := range vec {
			vec[i] /= magnitude
		}
	}
	return vec
}

func isAllUpper(s string) bool {
	for _, r := range s {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
