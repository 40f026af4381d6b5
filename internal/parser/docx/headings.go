package docx

import (
	"math"
	"sort"
	"strings"
)

const (
	defaultBodyFontSize = 11.0
	defaultBodyWordCount = 20.0
	defaultFontFamily   = "Calibri"
)

// patternModel holds the document-wide statistics the scorer compares
// against.
type patternModel struct {
	avgBodyFontSize  float64
	avgBodyWordCount float64
}

// buildPatternModel averages font size and word count over paragraphs
// that are neither heading-styled nor bold.
func buildPatternModel(features []paragraphFeatures) patternModel {
	var sizeSum, wordSum float64
	var n int
	for _, f := range features {
		if f.isHeadingStyle || f.bold {
			continue
		}
		sizeSum += f.fontSizePt
		wordSum += float64(f.wordCount)
		n++
	}
	if n == 0 {
		return patternModel{avgBodyFontSize: defaultBodyFontSize, avgBodyWordCount: defaultBodyWordCount}
	}
	return patternModel{
		avgBodyFontSize:  sizeSum / float64(n),
		avgBodyWordCount: wordSum / float64(n),
	}
}

// headingScore accumulates the statistical heading score in [0,1].
func headingScore(f paragraphFeatures, model patternModel) float64 {
	score := 0.0

	if f.isHeadingStyle {
		score += 0.40
	}

	switch {
	case f.fontSizePt > model.avgBodyFontSize*1.1:
		score += 0.30
	case f.fontSizePt < model.avgBodyFontSize*0.9:
		score -= 0.20
	}

	if f.bold {
		score += 0.15
	}

	switch {
	case f.wordCount > 0 && f.wordCount <= 15:
		score += 0.10
	case f.wordCount > 30:
		score -= 0.20
	}

	if f.endsWithColon {
		score += 0.10
	}
	if f.isNumbered {
		score += 0.10
	}
	if f.uppercaseRatio > 0.6 && f.wordCount <= 10 {
		score += 0.10
	}
	if f.isBulleted {
		score -= 0.30
	}
	if strings.Count(f.text, ".")+strings.Count(f.text, "!")+strings.Count(f.text, "?") >= 2 {
		score -= 0.20
	}

	return math.Max(0, math.Min(1, score))
}

// isHeadingCandidate applies the detection threshold: style-backed
// paragraphs clear a lower bar, bullets never qualify. The bounds are
// inclusive so a paragraph whose only signal is a clearly larger font
// (+0.30) plus heading-length text (+0.10) still qualifies.
func isHeadingCandidate(f paragraphFeatures, model patternModel) bool {
	if f.isBulleted {
		return false
	}
	score := headingScore(f, model)
	if f.isHeadingStyle {
		return score >= 0.30
	}
	return score >= 0.40
}

// candidate is a detected heading awaiting a level.
type candidate struct {
	featureIndex int // index into the features slice
	level        int
	group        int // -1 for style-derived candidates
}

// assignLevels runs Pass 3: style levels are taken directly; the rest
// are clustered by (font size, boldness, indentation) into up to six
// groups, walked in document order against a level stack, then
// smoothed so recurring visual patterns share a level and no level
// jumps remain.
func assignLevels(features []paragraphFeatures, model patternModel) []candidate {
	var cands []candidate
	for i, f := range features {
		if isHeadingCandidate(f, model) {
			cands = append(cands, candidate{featureIndex: i, group: -1})
		}
	}
	if len(cands) == 0 {
		return nil
	}

	// Style-derived levels are authoritative.
	var unstyled []int // indexes into cands
	for ci := range cands {
		f := features[cands[ci].featureIndex]
		if f.isHeadingStyle && f.styleLevel > 0 {
			cands[ci].level = f.styleLevel
		} else {
			unstyled = append(unstyled, ci)
		}
	}

	clusterByFormatting(cands, unstyled, features, model)
	walkLevelStack(cands, features)
	adjustRecurringPatterns(cands, features)

	return cands
}

// clusterByFormatting sorts unstyled candidates by descending
// prominence and partitions them into up to six groups; group i seeds
// base level i+1.
func clusterByFormatting(cands []candidate, unstyled []int, features []paragraphFeatures, model patternModel) {
	if len(unstyled) == 0 {
		return
	}

	sorted := make([]int, len(unstyled))
	copy(sorted, unstyled)
	sort.SliceStable(sorted, func(a, b int) bool {
		fa := features[cands[sorted[a]].featureIndex]
		fb := features[cands[sorted[b]].featureIndex]
		if fa.fontSizePt != fb.fontSizePt {
			return fa.fontSizePt > fb.fontSizePt
		}
		if fa.bold != fb.bold {
			return fa.bold
		}
		return fa.leftIndentTwips > fb.leftIndentTwips
	})

	group := 0
	head := features[cands[sorted[0]].featureIndex]
	for _, ci := range sorted {
		f := features[cands[ci].featureIndex]
		if math.Abs(f.fontSizePt-head.fontSizePt) >= 0.3*model.avgBodyFontSize ||
			f.bold != head.bold ||
			absInt(f.leftIndentTwips-head.leftIndentTwips) >= 100 {
			if group < 5 {
				group++
			}
			head = f
		}
		cands[ci].group = group
		cands[ci].level = group + 1
	}
}

// walkLevelStack enforces nesting discipline in document order: a
// candidate may open at most one level deeper than the enclosing
// heading.
func walkLevelStack(cands []candidate, features []paragraphFeatures) {
	var stack []int
	for ci := range cands {
		base := cands[ci].level
		for len(stack) > 0 && stack[len(stack)-1] >= base {
			stack = stack[:len(stack)-1]
		}
		top := 0
		if len(stack) > 0 {
			top = stack[len(stack)-1]
		}
		level := base
		if top+1 < level {
			level = top + 1
		}
		level = clampLevel(level)
		cands[ci].level = level
		stack = append(stack, level)
	}
}

// adjustRecurringPatterns makes every member of a formatting group with
// two or more members share the group's modal level, then removes any
// remaining level jumps and demotes a same-level run whose following
// candidate looks visually subordinate.
func adjustRecurringPatterns(cands []candidate, features []paragraphFeatures) {
	counts := make(map[int]map[int]int) // group -> level -> members
	sizes := make(map[int]int)
	for _, c := range cands {
		if c.group < 0 {
			continue
		}
		if counts[c.group] == nil {
			counts[c.group] = make(map[int]int)
		}
		counts[c.group][c.level]++
		sizes[c.group]++
	}
	for ci := range cands {
		g := cands[ci].group
		if g < 0 || sizes[g] < 2 {
			continue
		}
		cands[ci].level = modalLevel(counts[g])
	}

	for ci := 1; ci < len(cands); ci++ {
		prev := cands[ci-1].level
		switch {
		case cands[ci].level > prev+1:
			cands[ci].level = prev + 1
		case cands[ci].level == prev && ci+1 < len(cands):
			cur := features[cands[ci].featureIndex]
			next := features[cands[ci+1].featureIndex]
			if cur.fontSizePt-next.fontSizePt >= 1.0 ||
				next.leftIndentTwips-cur.leftIndentTwips >= 100 {
				cands[ci].level = clampLevel(cands[ci].level + 1)
			}
		}
	}
}

func modalLevel(levels map[int]int) int {
	best, bestCount := 0, -1
	for level, count := range levels {
		if count > bestCount || (count == bestCount && level < best) {
			best, bestCount = level, count
		}
	}
	return best
}

func clampLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > 6 {
		return 6
	}
	return level
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
