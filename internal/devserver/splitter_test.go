package devserver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/csheth/mdtranslate/internal/api"
)

func joinRaw(chunks []api.WireChunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.SourceText)
	}
	return b.String()
}

func TestSplitWithoutHeadingsIsOneChunk(t *testing.T) {
	chunks := Split("Hello\nWorld", 3)
	require.Len(t, chunks, 1)
	require.Equal(t, "Hello\nWorld", chunks[0].SourceText)
	require.Equal(t, "pending", chunks[0].Status)
	require.Equal(t, 0, chunks[0].StartLine)
	require.Equal(t, 2, chunks[0].EndLine)
}

func TestSplitUsesNaturalHeadingBoundaries(t *testing.T) {
	doc := "# One\nintro\n\n## Two\nbody\n# Three\nend\n"
	chunks := Split(doc, 3)
	require.Len(t, chunks, 3)
	require.Equal(t, "# One\nintro\n\n", chunks[0].SourceText)
	require.Equal(t, "## Two\nbody\n", chunks[1].SourceText)
	require.Equal(t, "# Three\nend\n", chunks[2].SourceText)
	for i, c := range chunks {
		require.Equal(t, i, c.Index)
	}
	require.Equal(t, doc, joinRaw(chunks))
}

func TestSplitIgnoresHeadingsInCodeAndDeepLevels(t *testing.T) {
	doc := "# Top\n```sh\n# not a heading\n```\n### Deep\ntext\n"
	chunks := Split(doc, 5)
	require.Len(t, chunks, 1)
	require.Equal(t, doc, chunks[0].SourceText)
}

func TestSplitSetextHeading(t *testing.T) {
	doc := "intro\n\nSecond\n------\nbody\n"
	chunks := Split(doc, 3)
	require.Len(t, chunks, 2)
	require.Equal(t, "intro\n\n", chunks[0].SourceText)
	require.Equal(t, "Second\n------\nbody\n", chunks[1].SourceText)
}

func TestSplitSpreadsManyHeadingsOverRequestedCount(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 8; i++ {
		b.WriteString("## Section\n")
		b.WriteString("line a\nline b\n\n")
	}
	doc := b.String()
	chunks := Split(doc, 3)
	require.Len(t, chunks, 3)
	require.Equal(t, doc, joinRaw(chunks))
	for _, c := range chunks {
		require.True(t, strings.HasPrefix(c.SourceText, "## Section"), "chunk should start at a heading: %q", c.SourceText)
	}
}

func TestSplitEdgeCases(t *testing.T) {
	require.Nil(t, Split("", 3))
	whitespace := Split("\n\n   \n", 3)
	require.Len(t, whitespace, 1)
	require.Equal(t, "\n\n   \n", whitespace[0].SourceText)
	require.Len(t, Split("# A\nx\n# B\ny\n", 0), 1)
}
