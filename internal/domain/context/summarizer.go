package context

import (
	"context"
	"fmt"
	"strings"

	"github.com/agentcore/core/internal/domain/agentcore"
)

// ModelSummarizer is the minimal capability ContextMemory needs from a
// ModelAdapter to compress history: a single-shot text completion given a
// system prompt and a user-role transcript. Grounded in the teacher's
// summarizer.go ModelClient interface, narrowed to what compression needs.
type ModelSummarizer interface {
	Summarize(ctx context.Context, systemPrompt, transcript string) (string, error)
}

const compressorSystemPrompt = `You are compressing a coding-agent conversation history into a durable summary.
Produce exactly four sections, each a short bulleted list:

## Project Info
## Completed Actions
## Key Findings
## Outstanding Items

Be terse. Do not invent facts not present in the transcript.`

const mergeInstruction = "\n\nAn existing summary is provided below; merge it with the new transcript rather than discarding it:\n\n"

const compressionTargetToolResultMax = 1000

// CompressWithModel implements spec §4.2 "Compression". It partitions
// messages into system and rest, keeps the newest rest messages that fit
// under 50% of budget, and asks the adapter to summarize everything older.
// On adapter failure (or nil adapter/empty result) it falls back to a
// deterministic local summary so a Run never stalls on a flaky summarizer.
func CompressWithModel(ctx context.Context, messages []agentcore.Message, existingSummary string, adapter ModelSummarizer, maxTokens int) (string, []agentcore.Message, error) {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	var system []agentcore.Message
	var rest []agentcore.Message
	for _, m := range messages {
		if m.IsSystem() {
			system = append(system, m)
		} else {
			rest = append(rest, m)
		}
	}

	budget := int(float64(maxTokens) * hardKeepRatio)
	systemTokens := EstimateTokens(system)
	remaining := budget - systemTokens

	keepFromIdx := len(rest) // index of first kept message
	used := 0
	for i := len(rest) - 1; i >= 0; i-- {
		cost := EstimateMessageTokens(rest[i])
		if used+cost > remaining && keepFromIdx != len(rest) {
			break
		}
		used += cost
		keepFromIdx = i
	}

	target := rest[:keepFromIdx]
	kept := rest[keepFromIdx:]

	if len(target) == 0 {
		summary := existingSummary
		return summary, append(append([]agentcore.Message{}, system...), kept...), nil
	}

	transcript := formatTranscript(target)

	var summary string
	var err error
	if adapter != nil {
		prompt := compressorSystemPrompt
		input := transcript
		if existingSummary != "" {
			prompt += mergeInstruction + existingSummary
		}
		summary, err = adapter.Summarize(ctx, prompt, input)
	} else {
		err = fmt.Errorf("no summarizer adapter configured")
	}

	if err != nil || strings.TrimSpace(summary) == "" {
		summary = localFallbackSummary(target, existingSummary)
	}

	result := append(append([]agentcore.Message{}, system...), kept...)
	return summary, result, nil
}

// formatTranscript renders the compression target as a human-readable
// transcript, truncating tool results to <=1000 chars for the request.
func formatTranscript(messages []agentcore.Message) string {
	var b strings.Builder
	for _, m := range messages {
		switch m.Role {
		case agentcore.RoleUser:
			fmt.Fprintf(&b, "user: %s\n", m.Content)
		case agentcore.RoleAssistant:
			if m.Content != "" {
				fmt.Fprintf(&b, "assistant: %s\n", m.Content)
			}
			for _, tc := range m.ToolCalls {
				fmt.Fprintf(&b, "tool-call: %s(%v)\n", tc.Name, tc.Arguments)
			}
		case agentcore.RoleTool:
			content := m.Content
			if len(content) > compressionTargetToolResultMax {
				content = content[:compressionTargetToolResultMax] + "…"
			}
			fmt.Fprintf(&b, "tool-result: %s\n", content)
		}
	}
	return b.String()
}

const localSummaryResultHeadLen = 200

// localFallbackSummary builds a deterministic bulleted summary without any
// model call, used when the adapter fails or is absent (spec §4.2). It
// extracts user inputs, tool names/key args, assistant text, and tool
// result heads — grounded in the teacher's SimpleSummarizer.
func localFallbackSummary(messages []agentcore.Message, existingSummary string) string {
	var b strings.Builder
	if existingSummary != "" {
		b.WriteString(existingSummary)
		b.WriteString("\n")
	}
	b.WriteString("## Project Info\n## Completed Actions\n")
	for _, m := range messages {
		switch m.Role {
		case agentcore.RoleUser:
			fmt.Fprintf(&b, "- user asked: %s\n", truncate(m.Content, localSummaryResultHeadLen))
		case agentcore.RoleAssistant:
			for _, tc := range m.ToolCalls {
				fmt.Fprintf(&b, "- called %s %s\n", tc.Name, truncate(fmt.Sprint(tc.Arguments), localSummaryResultHeadLen))
			}
			if m.Content != "" {
				fmt.Fprintf(&b, "- assistant said: %s\n", truncate(m.Content, localSummaryResultHeadLen))
			}
		case agentcore.RoleTool:
			fmt.Fprintf(&b, "- tool result: %s\n", truncate(m.Content, localSummaryResultHeadLen))
		}
	}
	b.WriteString("## Key Findings\n## Outstanding Items\n")
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
