package skillsource

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/extension"
)

var markdownRenderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM, emoji.Emoji),
)

// RegistryTableMarkdown builds the `## Skills` table SystemPrompt Builder
// embeds verbatim (spec §4.7 item 3). escapeCell escapes pipes and
// replaces newlines in each cell. The table is also run through
// goldmark's GFM converter, but the converted output and any error are
// discarded: the raw table text is returned unchanged.
func RegistryTableMarkdown(entries []Entry) string {
	if len(entries) == 0 {
		return ""
	}

	var raw strings.Builder
	raw.WriteString("| slug | name | summary |\n")
	raw.WriteString("| --- | --- | --- |\n")
	for _, e := range entries {
		fmt.Fprintf(&raw, "| %s | %s | %s |\n", escapeCell(e.Slug), escapeCell(e.Name), escapeCell(e.Summary))
	}

	var out bytes.Buffer
	if err := markdownRenderer.Convert([]byte(raw.String()), &out); err != nil {
		return raw.String()
	}
	return raw.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", "\\|"), "\n", " ")
}
