package devserver

import (
	"bytes"
	"math"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/csheth/mdtranslate/internal/api"
	"github.com/csheth/mdtranslate/internal/chunk"
)

var markdown = goldmark.New()

// Split cuts content into at most n chunks, preferring top-level H1/H2
// boundaries. Concatenating the raw text of the chunks in index order gives
// back the content, minus any whitespace-only spans.
func Split(content string, n int) []api.WireChunk {
	if content == "" {
		return nil
	}
	if n < 1 {
		n = 1
	}
	lines := strings.SplitAfter(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	total := len(lines)
	if total == 0 {
		return nil
	}

	points := headingLines(content)
	points = append(points, 0, total)
	points = uniqueSorted(points)

	var ranges [][2]int
	if len(points)-1 <= n {
		for i := 0; i < len(points)-1; i++ {
			ranges = append(ranges, [2]int{points[i], points[i+1]})
		}
	} else {
		ranges = spreadRanges(points, total, n)
	}

	var chunks []api.WireChunk
	for _, r := range ranges {
		raw := strings.Join(lines[r[0]:r[1]], "")
		if strings.TrimSpace(raw) == "" {
			continue
		}
		chunks = append(chunks, api.WireChunk{
			Index:      len(chunks),
			SourceText: raw,
			Status:     string(chunk.StatusPending),
			StartLine:  r[0],
			EndLine:    r[1],
		})
	}
	if len(chunks) == 0 {
		chunks = append(chunks, api.WireChunk{Index: 0, SourceText: content, Status: string(chunk.StatusPending), EndLine: total})
	}
	return chunks
}

// spreadRanges picks n-1 boundaries among the heading lines, each the one
// closest to an even share of the remaining lines.
func spreadRanges(points []int, total, n int) [][2]int {
	target := float64(total) / float64(n)
	var ranges [][2]int
	start := 0
	for i := 0; i < n; i++ {
		if i == n-1 {
			ranges = append(ranges, [2]int{start, total})
			break
		}
		want := float64(start) + target
		best, bestDistance := total, math.Inf(1)
		for _, p := range points {
			if p <= start {
				continue
			}
			d := math.Abs(float64(p) - want)
			if d < bestDistance {
				best, bestDistance = p, d
			} else if d > bestDistance {
				break
			}
		}
		ranges = append(ranges, [2]int{start, best})
		start = best
		if start >= total {
			break
		}
	}
	return ranges
}

// headingLines returns the zero-based line of every top-level H1 or H2 after
// the first line.
func headingLines(content string) []int {
	source := []byte(content)
	doc := markdown.Parser().Parse(text.NewReader(source))
	var out []int
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		heading, ok := node.(*ast.Heading)
		if !ok || heading.Level > 2 || heading.Lines().Len() == 0 {
			continue
		}
		start := heading.Lines().At(0).Start
		line := lineStart(source, start)
		if line > 0 {
			out = append(out, line)
		}
	}
	return out
}

func lineStart(source []byte, offset int) int {
	if offset > len(source) {
		offset = len(source)
	}
	return bytes.Count(source[:offset], []byte("\n"))
}

func uniqueSorted(values []int) []int {
	sort.Ints(values)
	out := values[:0]
	for _, v := range values {
		if len(out) > 0 && v == out[len(out)-1] {
			continue
		}
		out = append(out, v)
	}
	return out
}
