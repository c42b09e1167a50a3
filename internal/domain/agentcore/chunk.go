package agentcore

// ChunkType tags the variant carried by a Chunk. Grounded in the teacher's
// entity.AgentEventType vocabulary, generalized to the adapter-contract
// vocabulary required by spec §3/§4.5 (adds tool_result, which the
// teacher only emits at the driver layer, not the adapter layer).
type ChunkType string

const (
	ChunkText       ChunkType = "text"
	ChunkThinking   ChunkType = "thinking"
	ChunkToolCall   ChunkType = "tool_call"
	ChunkToolResult ChunkType = "tool_result"
	ChunkDone       ChunkType = "done"
	ChunkError      ChunkType = "error"
)

// Chunk is the normalized stream element every ModelAdapter implementation
// produces and every ReActDriver run emits outward (spec §3, §4.5).
//
// An adapter stream is zero-or-more {text,thinking,tool_call} chunks
// followed by exactly one {done} or {error}, with no chunks after either.
// A ReActDriver run carries text, thinking and tool_result chunks and
// always ends with exactly one {done}; when the turn fails, one {error}
// comes immediately before that {done}. The driver consumes the adapter's
// tool_call chunks rather than forwarding them.
type Chunk struct {
	Type ChunkType `json:"type"`

	// Text carries the delta payload for Text/Thinking chunks.
	Text string `json:"text,omitempty"`

	// ToolCall is set for ChunkToolCall; arguments are fully accumulated
	// by the time this chunk is emitted (never piecemeal — spec §4.5).
	ToolCall *ToolCall `json:"tool_call,omitempty"`

	// ToolResult is set for ChunkToolResult, emitted by the driver (not
	// the adapter) once a dispatched tool call has resolved.
	ToolResult *ToolResultChunk `json:"tool_result,omitempty"`

	// Err carries the message for ChunkError.
	Err string `json:"error,omitempty"`
}

// ToolResultChunk carries a resolved tool result outward to stream consumers.
type ToolResultChunk struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Output     string `json:"output"`
	Success    bool   `json:"success"`
}

// TextChunk builds a ChunkText.
func TextChunk(s string) Chunk { return Chunk{Type: ChunkText, Text: s} }

// ThinkingChunk builds a ChunkThinking.
func ThinkingChunk(s string) Chunk { return Chunk{Type: ChunkThinking, Text: s} }

// ToolCallChunk builds a ChunkToolCall.
func ToolCallChunk(tc ToolCall) Chunk { return Chunk{Type: ChunkToolCall, ToolCall: &tc} }

// ToolResultChunkOf builds a ChunkToolResult.
func ToolResultChunkOf(id, name, output string, success bool) Chunk {
	return Chunk{Type: ChunkToolResult, ToolResult: &ToolResultChunk{
		ToolCallID: id, Name: name, Output: output, Success: success,
	}}
}

// DoneChunk builds the terminal ChunkDone.
func DoneChunk() Chunk { return Chunk{Type: ChunkDone} }

// ErrorChunk builds the terminal ChunkError.
func ErrorChunk(msg string) Chunk { return Chunk{Type: ChunkError, Err: msg} }
