package context

import (
	"fmt"

	"github.com/agentcore/core/internal/domain/agentcore"
)

const (
	// DefaultMaxTokens is used when AgentConfig.MaxContextTokens is unset,
	// matching the teacher's domain/context/pruner.go PruneConfig default
	// order of magnitude.
	DefaultMaxTokens = 100000

	softTrimRatio     = 0.80
	hardKeepRatio     = 0.50
	emergencyRatio    = 0.95
	emergencyKeepTail = 6

	toolResultMaxChars = 3000
	toolResultHeadLen  = 2000
	toolResultTailLen  = 500
)

// Prepare implements spec §4.2 "Preparing messages for a turn":
//  1. inject the memory-summary pseudo-system message if present,
//  2. compress over-long tool results,
//  3. return as-is if under the soft threshold, otherwise keep all system
//     messages plus the newest non-system messages that fit under the hard
//     ceiling.
func Prepare(messages []agentcore.Message, memorySummary string, maxTokens int) []agentcore.Message {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	out := compressToolResults(messages)
	out = injectMemorySummary(out, memorySummary)

	if EstimateTokens(out) <= int(float64(maxTokens)*softTrimRatio) {
		return out
	}

	return trimToHardCeiling(out, maxTokens)
}

// EmergencyTruncate implements spec §4.1 step 5a: when estimated tokens
// exceed 95% of max mid-loop, collapse to system + last 6 non-system
// messages.
func EmergencyTruncate(messages []agentcore.Message, maxTokens int) []agentcore.Message {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if EstimateTokens(messages) <= int(float64(maxTokens)*emergencyRatio) {
		return messages
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
	if len(rest) > emergencyKeepTail {
		rest = rest[len(rest)-emergencyKeepTail:]
	}
	return append(system, rest...)
}

// NeedsPruning reports whether the given messages are at or above the soft
// trim threshold for the given budget.
func NeedsPruning(messages []agentcore.Message, maxTokens int) bool {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return EstimateTokens(messages) >= int(float64(maxTokens)*softTrimRatio)
}

func injectMemorySummary(messages []agentcore.Message, summary string) []agentcore.Message {
	if summary == "" {
		return messages
	}
	synthetic := agentcore.Message{
		Role:    agentcore.RoleSystem,
		Content: fmt.Sprintf("[session memory]\n%s", summary),
	}
	insertAt := 0
	for i, m := range messages {
		if m.IsSystem() {
			insertAt = i + 1
		} else {
			break
		}
	}
	out := make([]agentcore.Message, 0, len(messages)+1)
	out = append(out, messages[:insertAt]...)
	out = append(out, synthetic)
	out = append(out, messages[insertAt:]...)
	return out
}

func compressToolResults(messages []agentcore.Message) []agentcore.Message {
	out := make([]agentcore.Message, len(messages))
	copy(out, messages)
	for i, m := range out {
		if m.Role != agentcore.RoleTool || len(m.Content) <= toolResultMaxChars {
			continue
		}
		head := m.Content[:toolResultHeadLen]
		tail := m.Content[len(m.Content)-toolResultTailLen:]
		elided := len(m.Content) - toolResultHeadLen - toolResultTailLen
		m.Content = fmt.Sprintf("%s…(elided %d chars)…%s", head, elided, tail)
		out[i] = m
	}
	return out
}

// trimToHardCeiling keeps all system messages, then walks non-system
// messages from the newest backwards, keeping as many as fit under
// hardKeepRatio of max. Invariant (spec §8-4): system messages are never
// dropped, and the dropped messages form a contiguous prefix of the
// non-system suffix beyond the first kept one.
func trimToHardCeiling(messages []agentcore.Message, maxTokens int) []agentcore.Message {
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

	keptReversed := make([]agentcore.Message, 0, len(rest))
	used := 0
	for i := len(rest) - 1; i >= 0; i-- {
		cost := EstimateMessageTokens(rest[i])
		if used+cost > remaining && len(keptReversed) > 0 {
			break
		}
		keptReversed = append(keptReversed, rest[i])
		used += cost
	}

	kept := make([]agentcore.Message, len(keptReversed))
	for i, m := range keptReversed {
		kept[len(keptReversed)-1-i] = m
	}

	return append(system, kept...)
}
