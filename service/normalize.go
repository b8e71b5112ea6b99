package service

import (
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// NormalizeForEmbedding strips HTML markup out of rich-client message content
// before it is sent to the embedding provider, so tags do not dominate the
// vector. Plain text passes through untouched.
func NormalizeForEmbedding(content string) string {
	if !looksLikeHTML(content) {
		return content
	}

	converted, err := htmltomarkdown.ConvertString(content)
	if err != nil {
		logger.Warnf("[embedding] html convert error, %s", err)
		return content
	}
	converted = strings.TrimSpace(converted)
	if converted == "" {
		return content
	}
	return converted
}

// looksLikeHTML wants a '<' immediately followed by a tag name or '/', with a
// closing '>' somewhere after. Bare comparisons like "a < b" stay plain text.
func looksLikeHTML(content string) bool {
	open := strings.IndexByte(content, '<')
	for open >= 0 && open+1 < len(content) {
		next := content[open+1]
		if next == '/' || (next >= 'a' && next <= 'z') || (next >= 'A' && next <= 'Z') {
			return strings.IndexByte(content[open:], '>') > 1
		}
		rest := strings.IndexByte(content[open+1:], '<')
		if rest < 0 {
			break
		}
		open += 1 + rest
	}
	return false
}
