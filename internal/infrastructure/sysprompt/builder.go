// Package sysprompt implements SystemPrompt Builder (spec §4.7): assembles
// one system message per turn from a fixed base preamble, the turn's
// numbered rule list, and the skill registry table, plus the post-tool
// "[Rule review]" reminder line. Simplified from the teacher's layered
// PromptEngine (system/workspace/channel soul+component discovery) down
// to the flat composition the spec names — the teacher's file-discovery
// machinery belongs to a richer persona system this core doesn't have.
package sysprompt

import (
	"fmt"
	"strings"

	"github.com/agentcore/core/internal/domain/agentcore"
	"github.com/agentcore/core/internal/infrastructure/skillsource"
)

const basePreamble = `You are an autonomous coding assistant operating in a ReAct loop: reason, then act through tools, observe results, and repeat until the task is done.

Tool catalog:
- read_file: read a file's contents, optionally restricted to a line range.
- write_file: overwrite a file with new content, creating parent directories as needed. Use only for new files or large rewrites.
- edit_file: replace a unique occurrence of old text with new text. Prefer this over write_file for any existing file.
- list_dir: list a directory's entries.
- run_terminal: run a shell command under the project root with a timeout.
- search_files: search project files for a query, with matched lines and surrounding context.
- start_service / check_service / stop_service: manage a named background service.
- load_skill: load detailed markdown guidance for a topic by slug.

Discipline: never output partial code through write_file or edit_file — write the complete intended content. Do not re-read a file you have already read this turn unless it may have changed. You may issue multiple independent tool calls in a single turn; they run concurrently.`

// Builder assembles the per-turn system message.
type Builder struct {
	skills *skillsource.SkillSource
}

func New(skills *skillsource.SkillSource) *Builder {
	return &Builder{skills: skills}
}

// Build composes the system message for cfg (spec §4.7 items 1-3).
func (b *Builder) Build(cfg agentcore.AgentConfig) string {
	var sb strings.Builder
	sb.WriteString(basePreamble)

	if len(cfg.Rules) > 0 {
		sb.WriteString("\n\n## Rules\n")
		for i, rule := range cfg.Rules {
			fmt.Fprintf(&sb, "Rule %d: %s\n", i+1, rule)
		}
	}

	entries := b.registryEntries()
	if len(entries) > 0 {
		sb.WriteString("\n## Skills\n")
		sb.WriteString(skillsource.RegistryTableMarkdown(entries))
		sb.WriteString("\nCall load_skill with a slug above for detailed guidance before acting on that topic.\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

func (b *Builder) registryEntries() []skillsource.Entry {
	if b.skills == nil {
		return nil
	}
	return b.skills.LoadRegistry()
}

// RuleReminder builds the "[Rule review]" line appended after each tool
// result (spec §4.7). Returns "" when rules is empty, per spec.
func RuleReminder(rules []string) string {
	if len(rules) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("[Rule review] Ensure your next action complies with:")
	for i, rule := range rules {
		fmt.Fprintf(&sb, " (%d) %s", i+1, rule)
	}
	return sb.String()
}
