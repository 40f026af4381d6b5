package render

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstituteFillsPlaceholders(t *testing.T) {
	r := NewRenderer(nil)
	template, err := r.RenderTemplateDocument(context.Background(), sampleTemplate())
	require.NoError(t, err)

	filled, err := Substitute(template, map[string]string{
		"placeholder_section_1":    "Ten years of backend work.\n- Kafka pipelines",
		"PLACEHOLDER_SUBSECTION_2": "Internal tooling overhaul",
	}, nil)
	require.NoError(t, err)

	joined := strings.Join(documentTexts(t, filled), "\n")
	assert.Contains(t, joined, "Ten years of backend work.")
	assert.Contains(t, joined, "• Kafka pipelines")
	assert.Contains(t, joined, "Internal tooling overhaul")

	assert.NotContains(t, joined, "{{placeholder_section_1}}")
	assert.NotContains(t, joined, "{{placeholder_subsection_2}}")
	// No override for section 3: its placeholder paragraph is removed.
	assert.NotContains(t, joined, "{{placeholder_section_3}}")

	// Headings survive substitution untouched.
	assert.Contains(t, joined, "Experience")
	assert.Contains(t, joined, "Education")
}

func TestSubstituteLeavesPlainParagraphsAlone(t *testing.T) {
	r := NewRenderer(nil)
	original, err := r.Render(context.Background(), sampleTemplate(), sampleContext(), Options{})
	require.NoError(t, err)

	out, err := Substitute(original, map[string]string{"placeholder_section_1": "replacement"}, nil)
	require.NoError(t, err)

	joined := strings.Join(documentTexts(t, out), "\n")
	// The rendered document has no placeholder-token paragraphs, so
	// nothing changes.
	assert.Contains(t, joined, "Led the platform team.")
	assert.NotContains(t, joined, "replacement")
}
