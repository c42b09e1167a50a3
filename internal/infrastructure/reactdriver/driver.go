package reactdriver

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/agentcore/core/internal/domain/agentcore"
	dctx "github.com/agentcore/core/internal/domain/context"
	domaintool "github.com/agentcore/core/internal/domain/tool"
	"github.com/agentcore/core/internal/infrastructure/mcp"
	"github.com/agentcore/core/internal/infrastructure/modeladapter"
	"github.com/agentcore/core/internal/infrastructure/sysprompt"
	"github.com/agentcore/core/internal/infrastructure/toolexec"
)

// MaxSteps bounds the step loop (spec §4.1).
const MaxSteps = 25

const rateLimitSoftRetryBase = 15 * time.Second

// Config wires the Driver's collaborators. Executor, Fabric and
// PromptBuilder are concrete pointers rather than interfaces because
// each has exactly one implementation in this repository and the
// driver needs their full surface (SetMCPDispatch, ToolSpecs, RegisterMCPTool).
type Config struct {
	Adapter       modeladapter.Adapter
	Executor      *toolexec.Executor
	Fabric        *mcp.Fabric
	PromptBuilder *sysprompt.Builder
	Store         Store
	Logger        *zap.Logger
	DefaultModel  string
}

// Driver is the concrete ReActDriver.
type Driver struct {
	adapter modeladapter.Adapter
	exec    *toolexec.Executor
	fabric  *mcp.Fabric
	prompt  *sysprompt.Builder
	store   Store
	logger  *zap.Logger
	model   string

	cfgMu  sync.RWMutex
	config agentcore.AgentConfig

	mcpMu         sync.Mutex
	mcpConnectedForFingerprint string

	aborted atomic.Bool
}

func New(cfg Config) *Driver {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Driver{
		adapter: cfg.Adapter,
		exec:    cfg.Executor,
		fabric:  cfg.Fabric,
		prompt:  cfg.PromptBuilder,
		store:   cfg.Store,
		logger:  logger,
		model:   cfg.DefaultModel,
	}
	if d.exec != nil && d.fabric != nil {
		d.exec.SetMCPDispatch(d.fabric.Dispatch)
	}
	return d
}

// SetConfig replaces the per-turn AgentConfig snapshot (spec §6.4). It
// takes effect no later than the next Run call; a Run already in flight
// keeps using the snapshot it started with.
func (d *Driver) SetConfig(cfg agentcore.AgentConfig) {
	d.cfgMu.Lock()
	defer d.cfgMu.Unlock()
	d.config = cfg.Clone()
}

func (d *Driver) snapshotConfig() agentcore.AgentConfig {
	d.cfgMu.RLock()
	defer d.cfgMu.RUnlock()
	return d.config.Clone()
}

// Stop aborts the in-flight Run at the next safe point: between adapter
// chunks or between tool dispatches (spec §4.1 "Cancellation").
func (d *Driver) Stop() {
	d.aborted.Store(true)
}

// Shutdown closes the MCP fabric. Idempotent.
func (d *Driver) Shutdown() {
	if d.fabric != nil {
		d.fabric.Shutdown()
	}
}

// Run drives one turn to completion, streaming chunks outward. The
// returned channel is always closed, terminated by exactly one `done` or
// one preceding `error` followed by `done`.
func (d *Driver) Run(ctx context.Context, sessionID, userMessage, projectPath, modelID string, images []agentcore.ImageRef) <-chan agentcore.Chunk {
	out := make(chan agentcore.Chunk, 16)
	d.aborted.Store(false)
	go d.run(ctx, sessionID, userMessage, projectPath, modelID, images, out)
	return out
}

func (d *Driver) run(ctx context.Context, sessionID, userMessage, projectPath, modelID string, images []agentcore.ImageRef, out chan<- agentcore.Chunk) {
	defer close(out)

	if d.adapter == nil {
		out <- agentcore.ErrorChunk("no active model configured")
		out <- agentcore.DoneChunk()
		return
	}

	model := modelID
	if model == "" {
		model = d.model
	}

	cfg := d.snapshotConfig()

	// Step 1: skill registry caching is handled lazily inside SkillSource
	// itself; ensure MCP is connected for this config and the executor's
	// dispatch function is live.
	d.ensureMCPConnected(ctx, cfg)
	if d.exec != nil && d.fabric != nil {
		for name, spec := range d.fabric.ToolSpecs() {
			_ = d.exec.RegisterMCPTool(name, spec.Description, spec.InputSchema)
		}
	}

	// Step 2: persist the user message, build system prompt + tool list.
	if _, err := d.store.AddMessage(ctx, sessionID, agentcore.RoleUser, userMessage, "", nil); err != nil {
		d.logger.Warn("failed to persist user message", zap.Error(err))
	}

	systemPrompt := ""
	if d.prompt != nil {
		systemPrompt = d.prompt.Build(cfg)
	}
	var tools []agentcore.ToolDefinition
	if d.exec != nil {
		tools = d.exec.ToolDefinitions()
	}

	maxTokens := cfg.MaxContextTokens
	if maxTokens <= 0 {
		maxTokens = dctx.DefaultMaxTokens
	}

	// Step 3: load history + memory summary, attach images, fit window.
	history, err := d.store.GetMessages(ctx, sessionID)
	if err != nil {
		d.logger.Warn("failed to load history", zap.Error(err))
	}
	if systemPrompt != "" {
		history = append([]agentcore.Message{{Role: agentcore.RoleSystem, Content: systemPrompt}}, history...)
	}
	if len(images) > 0 {
		attachImages(history, images)
	}

	summary, _, err := d.store.GetSessionMemory(ctx, sessionID)
	if err != nil {
		d.logger.Warn("failed to load session memory", zap.Error(err))
	}

	messages := dctx.Prepare(history, summary, maxTokens)

	if dctx.NeedsPruning(messages, maxTokens) {
		summarizer := &adapterSummarizer{adapter: d.adapter, model: model}
		newSummary, kept, err := dctx.CompressWithModel(ctx, messages, summary, summarizer, maxTokens)
		if err != nil {
			d.logger.Warn("compression failed", zap.Error(err))
		} else {
			messages = kept
			if saveErr := d.store.SaveSessionMemory(ctx, sessionID, newSummary); saveErr != nil {
				d.logger.Warn("failed to persist session memory", zap.Error(saveErr))
			}
		}
	}

	// Step 4: defensive guard against an empty non-system message list.
	if !hasNonSystemMessage(messages) {
		messages = append(messages, agentcore.Message{Role: agentcore.RoleUser, Content: userMessage})
	}

	d.stepLoop(ctx, sessionID, model, tools, messages, maxTokens, cfg, out)
}

func hasNonSystemMessage(messages []agentcore.Message) bool {
	for _, m := range messages {
		if !m.IsSystem() {
			return true
		}
	}
	return false
}

func attachImages(history []agentcore.Message, images []agentcore.ImageRef) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == agentcore.RoleUser {
			history[i].Images = append(history[i].Images, images...)
			return
		}
	}
}

// stepLoop runs the bounded step loop (spec §4.1 step 5).
func (d *Driver) stepLoop(ctx context.Context, sessionID, model string, tools []agentcore.ToolDefinition, messages []agentcore.Message, maxTokens int, cfg agentcore.AgentConfig, out chan<- agentcore.Chunk) {
	rulesReminder := sysprompt.RuleReminder(cfg.Rules)

	var recentBatchSignatures []string
	usedIDs := make(map[string]bool)

	for step := 0; step < MaxSteps; {
		if d.aborted.Load() {
			out <- agentcore.DoneChunk()
			return
		}

		messages = dctx.EmergencyTruncate(messages, maxTokens)

		text, thinking, toolCalls, softRetry, fatalErr := d.streamOneAttempt(ctx, messages, tools, model, out)
		if d.aborted.Load() {
			out <- agentcore.DoneChunk()
			return
		}
		if softRetry {
			out <- agentcore.TextChunk("[rate limited, retrying shortly]")
			delay := rateLimitSoftRetryBase + time.Duration(rand.Intn(5000))*time.Millisecond
			if sleepErr := sleepCtx(ctx, delay); sleepErr != nil {
				out <- agentcore.DoneChunk()
				return
			}
			continue // repeat the same step without incrementing the counter
		}
		if fatalErr != nil {
			out <- agentcore.ErrorChunk(fatalErr.Error())
			out <- agentcore.DoneChunk()
			return
		}
		_ = thinking

		if len(toolCalls) == 0 {
			if _, err := d.store.AddMessage(ctx, sessionID, agentcore.RoleAssistant, text, "", nil); err != nil {
				d.logger.Warn("failed to persist final assistant message", zap.Error(err))
			}
			out <- agentcore.DoneChunk()
			return
		}

		toolCalls = assignUniqueIDs(toolCalls, usedIDs)

		if _, err := d.store.AddMessage(ctx, sessionID, agentcore.RoleAssistant, text, "", toolCalls); err != nil {
			d.logger.Warn("failed to persist assistant tool-call message", zap.Error(err))
		}
		messages = append(messages, agentcore.Message{Role: agentcore.RoleAssistant, Content: text, ToolCalls: toolCalls})

		sig := batchSignature(toolCalls)
		recentBatchSignatures = append(recentBatchSignatures, sig)
		if len(recentBatchSignatures) > 3 {
			recentBatchSignatures = recentBatchSignatures[len(recentBatchSignatures)-3:]
		}
		if len(recentBatchSignatures) == 3 && recentBatchSignatures[0] == recentBatchSignatures[1] && recentBatchSignatures[1] == recentBatchSignatures[2] {
			out <- agentcore.TextChunk("[repetition detected, stopping]")
			out <- agentcore.DoneChunk()
			return
		}

		results := d.dispatchToolCalls(ctx, sessionID, toolCalls)
		if d.aborted.Load() {
			out <- agentcore.DoneChunk()
			return
		}

		for i, tc := range toolCalls {
			res := results[i]
			if err := d.store.AddToolLog(ctx, sessionID, tc.Name, argsToJSON(tc.Arguments), res.Output); err != nil {
				d.logger.Warn("failed to write tool log", zap.Error(err))
			}
			if _, err := d.store.AddMessage(ctx, sessionID, agentcore.RoleTool, res.Output, tc.ID, nil); err != nil {
				d.logger.Warn("failed to persist tool result message", zap.Error(err))
			}
			out <- agentcore.ToolResultChunkOf(tc.ID, tc.Name, res.Output, res.Success)

			content := res.Output
			if rulesReminder != "" {
				content = content + "\n" + rulesReminder
			}
			messages = append(messages, agentcore.Message{Role: agentcore.RoleTool, Content: content, ToolCallID: tc.ID})
		}

		step++
	}

	out <- agentcore.TextChunk(fmt.Sprintf("[stopped after %d steps]", MaxSteps))
	out <- agentcore.DoneChunk()
}

// streamOneAttempt drives a single adapter Stream call, forwarding
// text/thinking chunks live and collecting tool_calls. softRetry is true
// when the stream ended with a rate-limit error chunk that should be
// retried without counting against the step budget.
func (d *Driver) streamOneAttempt(ctx context.Context, messages []agentcore.Message, tools []agentcore.ToolDefinition, model string, out chan<- agentcore.Chunk) (text, thinking string, toolCalls []agentcore.ToolCall, softRetry bool, err error) {
	ch, streamErr := d.adapter.Stream(ctx, messages, tools, model)
	if streamErr != nil {
		return "", "", nil, false, streamErr
	}

	var textBuf, thinkingBuf strings.Builder
	for chunk := range ch {
		if d.aborted.Load() {
			return "", "", nil, false, nil
		}
		switch chunk.Type {
		case agentcore.ChunkText:
			textBuf.WriteString(chunk.Text)
			out <- chunk
		case agentcore.ChunkThinking:
			thinkingBuf.WriteString(chunk.Text)
			out <- chunk
		case agentcore.ChunkToolCall:
			if chunk.ToolCall != nil {
				toolCalls = append(toolCalls, *chunk.ToolCall)
			}
		case agentcore.ChunkDone:
			// terminal, nothing further to drain
		case agentcore.ChunkError:
			if isRateLimitError(chunk.Err) {
				return textBuf.String(), thinkingBuf.String(), toolCalls, true, nil
			}
			return textBuf.String(), thinkingBuf.String(), toolCalls, false, fmt.Errorf("%s", chunk.Err)
		}
	}
	return textBuf.String(), thinkingBuf.String(), toolCalls, false, nil
}

func isRateLimitError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "429") || strings.Contains(lower, "rate_limit") || strings.Contains(lower, "rate limit")
}

// dispatchToolCalls runs every call concurrently through the executor
// and collects results in input order regardless of completion order
// (spec §5 "Ordering guarantees").
func (d *Driver) dispatchToolCalls(ctx context.Context, sessionID string, toolCalls []agentcore.ToolCall) []*domaintool.Result {
	results := make([]*domaintool.Result, len(toolCalls))
	var wg sync.WaitGroup
	for i, tc := range toolCalls {
		wg.Add(1)
		go func(i int, tc agentcore.ToolCall) {
			defer wg.Done()
			if d.aborted.Load() {
				results[i] = &domaintool.Result{Success: false, Output: "run cancelled", Error: "run cancelled"}
				return
			}
			res, err := d.exec.Execute(ctx, tc.Name, tc.Arguments)
			if err != nil {
				msg := fmt.Sprintf("tool %s failed: %v", tc.Name, err)
				results[i] = &domaintool.Result{Success: false, Output: msg, Error: msg}
				return
			}
			results[i] = res
		}(i, tc)
	}
	wg.Wait()
	return results
}

func assignUniqueIDs(toolCalls []agentcore.ToolCall, used map[string]bool) []agentcore.ToolCall {
	out := make([]agentcore.ToolCall, len(toolCalls))
	for i, tc := range toolCalls {
		if tc.ID == "" || used[tc.ID] {
			tc.ID = generateToolCallID()
			for used[tc.ID] {
				tc.ID = generateToolCallID()
			}
		}
		used[tc.ID] = true
		out[i] = tc
	}
	return out
}

func generateToolCallID() string {
	return "call_" + uuid.New().String()[:8]
}

func batchSignature(toolCalls []agentcore.ToolCall) string {
	parts := make([]string, len(toolCalls))
	for i, tc := range toolCalls {
		parts[i] = fmt.Sprintf("%s:%s", tc.Name, argsToJSON(tc.Arguments))
	}
	return strings.Join(parts, "|")
}

func argsToJSON(args map[string]interface{}) string {
	b, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	return string(b)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// adapterSummarizer adapts Adapter into dctx.ModelSummarizer without this
// package depending on the modeladapter.ModelSummarizer concrete type,
// which would otherwise require plumbing a second adapter reference
// through Config purely for compression.
type adapterSummarizer struct {
	adapter modeladapter.Adapter
	model   string
}

func (s *adapterSummarizer) Summarize(ctx context.Context, systemPrompt, transcript string) (string, error) {
	messages := []agentcore.Message{
		{Role: agentcore.RoleSystem, Content: systemPrompt},
		{Role: agentcore.RoleUser, Content: transcript},
	}
	ch, err := s.adapter.Stream(ctx, messages, nil, s.model)
	if err != nil {
		return "", err
	}
	var out strings.Builder
	for chunk := range ch {
		switch chunk.Type {
		case agentcore.ChunkText:
			out.WriteString(chunk.Text)
		case agentcore.ChunkError:
			return "", fmt.Errorf("%s", chunk.Err)
		}
	}
	return out.String(), nil
}

// ensureMCPConnected connects every enabled MCP server in cfg the first
// time this exact server set is seen; later calls with the same set are
// no-ops (connect is otherwise already idempotent per-server inside
// Fabric, this just avoids the fingerprint recomputation on every turn
// when nothing changed).
func (d *Driver) ensureMCPConnected(ctx context.Context, cfg agentcore.AgentConfig) {
	if d.fabric == nil {
		return
	}
	fp := mcpFingerprint(cfg.MCPServers)

	d.mcpMu.Lock()
	if d.mcpConnectedForFingerprint == fp {
		d.mcpMu.Unlock()
		return
	}
	d.mcpConnectedForFingerprint = fp
	d.mcpMu.Unlock()

	d.fabric.Connect(ctx, cfg.MCPServers)
}

func mcpFingerprint(specs []agentcore.MCPServerSpec) string {
	var b strings.Builder
	for _, s := range specs {
		fmt.Fprintf(&b, "%s:%v;", s.Name, s.Enabled)
	}
	return b.String()
}
