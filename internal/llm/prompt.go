package llm

import (
	"strings"
)

const systemPromptEnToZh = "You are a professional technical translator. Translate the task text from English " +
	"into Simplified Chinese. Preserve all Markdown syntax exactly: headings, lists, tables, links, " +
	"inline code and fenced code blocks (never translate code). Keep line breaks where they are. " +
	"Output only the translation of the task text, without commentary."

const systemPromptZhToEn = "You are a professional technical translator. Translate the task text from Chinese " +
	"into natural English. Preserve all Markdown syntax exactly: headings, lists, tables, links, " +
	"inline code and fenced code blocks (never translate code). Keep line breaks where they are. " +
	"Output only the translation of the task text, without commentary."

func systemPrompt(direction string) string {
	if direction == "zh2en" {
		return systemPromptZhToEn
	}
	return systemPromptEnToZh
}

func targetLanguage(direction string) string {
	if direction == "zh2en" {
		return "English"
	}
	return "Chinese"
}

// buildUserPrompt frames the chunk between its neighbours, which are marked
// as context only.
func buildUserPrompt(req Request) string {
	var b strings.Builder
	if pre := strings.TrimSpace(req.PreContext); pre != "" {
		b.WriteString("[Pre-Context (Do not translate)]:\n")
		b.WriteString(pre)
		b.WriteString("\n\n")
	}
	b.WriteString("[Task (Translate to " + targetLanguage(req.Direction) + ")]:\n")
	b.WriteString(clipText(req.Text, maxChunkChars))
	b.WriteString("\n\n")
	if post := strings.TrimSpace(req.PostContext); post != "" {
		b.WriteString("[Post-Context (Do not translate)]:\n")
		b.WriteString(post)
		b.WriteString("\n")
	}
	return b.String()
}

func clipText(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

// Tail returns the last n runes of text.
func Tail(text string, n int) string {
	runes := []rune(text)
	if n <= 0 {
		return ""
	}
	if len(runes) <= n {
		return text
	}
	return string(runes[len(runes)-n:])
}

// Head returns the first n runes of text.
func Head(text string, n int) string {
	if n <= 0 {
		return ""
	}
	return clipText(text, n)
}

// preserveEdges restores the leading and trailing newlines of the source on a
// translation, since models tend to trim them and chunks are joined verbatim.
func preserveEdges(source, translated string) string {
	trimmed := strings.Trim(translated, "\n")
	lead := len(source) - len(strings.TrimLeft(source, "\n"))
	trail := len(source) - len(strings.TrimRight(source, "\n"))
	if lead == len(source) {
		return source
	}
	return strings.Repeat("\n", lead) + trimmed + strings.Repeat("\n", trail)
}
