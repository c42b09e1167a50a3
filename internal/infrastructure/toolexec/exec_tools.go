package toolexec

import (
	"context"
	"fmt"
	"strings"

	domaintool "github.com/agentcore/core/internal/domain/tool"
	"github.com/agentcore/core/internal/infrastructure/sandbox"
	"go.uber.org/zap"
)

// denylistSubstrings are case-insensitively matched against the full
// command string (spec §4.3 safety invariant).
var denylistSubstrings = []string{
	"rm -rf /",
	"format",
	"shutdown",
	"del /f /s /q",
	"rmdir /s /q c:",
}

// RunTerminalTool implements spec §4.3 run_terminal: denylist check, 30s
// timeout with partial output + notice, combined stdout+stderr. Grounded
// in the teacher's ProcessSandbox.ExecuteShell.
type RunTerminalTool struct {
	sandbox *sandbox.ProcessSandbox
	logger  *zap.Logger
}

func NewRunTerminalTool(sb *sandbox.ProcessSandbox, logger *zap.Logger) *RunTerminalTool {
	return &RunTerminalTool{sandbox: sb, logger: logger}
}

func (t *RunTerminalTool) Name() string         { return "run_terminal" }
func (t *RunTerminalTool) Kind() domaintool.Kind { return domaintool.KindExecute }
func (t *RunTerminalTool) Description() string {
	return "Run a shell command under the project root with a 30 second timeout. Returns combined stdout and stderr."
}
func (t *RunTerminalTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"command": map[string]interface{}{"type": "string"}},
		"required":   []string{"command"},
	}
}

func (t *RunTerminalTool) Execute(ctx context.Context, args map[string]interface{}) (*domaintool.Result, error) {
	command, _ := argString(args, "command")

	lower := strings.ToLower(command)
	for _, d := range denylistSubstrings {
		if strings.Contains(lower, d) {
			msg := fmt.Sprintf("command refused: matches denylisted pattern %q", d)
			return &domaintool.Result{Success: false, Error: msg, Output: msg}, nil
		}
	}

	res, err := t.sandbox.ExecuteShell(ctx, command)
	if res == nil {
		msg := fmt.Sprintf("execution failed: %v", err)
		return &domaintool.Result{Success: false, Error: msg, Output: msg}, nil
	}

	output := res.Stdout
	if res.Stderr != "" {
		output += res.Stderr
	}
	if res.Killed {
		output += "\n[timeout: command exceeded 30s, partial output shown]"
	}

	return &domaintool.Result{Success: err == nil && res.ExitCode == 0 && !res.Killed, Output: output}, nil
}

// SearchMatch is one hit returned by an injected SearchFunc.
type SearchMatch struct {
	Path        string
	Line        int
	Text        string
	ContextPre  []string
	ContextPost []string
}

// SearchOptions configures a search_files call.
type SearchOptions struct {
	Pattern string
	IsRegex bool
}

// SearchFunc is the search-worker transport consumed by the core (spec §1,
// §6): `Search(cwd, query, opts) -> (matches, truncated)`.
type SearchFunc func(ctx context.Context, cwd, query string, opts SearchOptions) (matches []SearchMatch, truncated bool, err error)

const searchMaxMatches = 50

// SearchFilesTool implements spec §4.3 search_files: delegates to the
// injected search function, caps at 50 matches with a truncation notice.
type SearchFilesTool struct {
	root   string
	search SearchFunc
	logger *zap.Logger
}

func NewSearchFilesTool(root string, search SearchFunc, logger *zap.Logger) *SearchFilesTool {
	return &SearchFilesTool{root: root, search: search, logger: logger}
}

func (t *SearchFilesTool) Name() string         { return "search_files" }
func (t *SearchFilesTool) Kind() domaintool.Kind { return domaintool.KindSearch }
func (t *SearchFilesTool) Description() string {
	return "Search project files for a query, returning matches with surrounding context."
}
func (t *SearchFilesTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query":    map[string]interface{}{"type": "string"},
			"pattern":  map[string]interface{}{"type": "string"},
			"is_regex": map[string]interface{}{"type": "boolean"},
		},
		"required": []string{"query"},
	}
}

func (t *SearchFilesTool) Execute(ctx context.Context, args map[string]interface{}) (*domaintool.Result, error) {
	if t.search == nil {
		msg := "search is not configured"
		return &domaintool.Result{Success: false, Error: msg, Output: msg}, nil
	}

	query, _ := argString(args, "query")
	pattern, _ := argString(args, "pattern")
	isRegex, _ := args["is_regex"].(bool)

	matches, truncated, err := t.search(ctx, t.root, query, SearchOptions{Pattern: pattern, IsRegex: isRegex})
	if err != nil {
		msg := fmt.Sprintf("search failed: %v", err)
		return &domaintool.Result{Success: false, Error: msg, Output: msg}, nil
	}

	if len(matches) > searchMaxMatches {
		matches = matches[:searchMaxMatches]
		truncated = true
	}

	var b strings.Builder
	for _, m := range matches {
		for _, c := range m.ContextPre {
			fmt.Fprintf(&b, "  %s\n", c)
		}
		fmt.Fprintf(&b, "%s:%d: %s\n", m.Path, m.Line, m.Text)
		for _, c := range m.ContextPost {
			fmt.Fprintf(&b, "  %s\n", c)
		}
	}
	if truncated {
		fmt.Fprintf(&b, "…(truncated, showing first %d matches)\n", searchMaxMatches)
	}

	return &domaintool.Result{Success: true, Output: strings.TrimRight(b.String(), "\n")}, nil
}

// ServiceManager is the injected delegate for the start/check/stop_service
// built-ins (spec §4.3 — "delegated verbatim").
type ServiceManager interface {
	Start(ctx context.Context, name string, args map[string]interface{}) (string, error)
	Check(ctx context.Context, name string) (string, error)
	Stop(ctx context.Context, name string) (string, error)
}

type serviceTool struct {
	action  string
	mgr     ServiceManager
	logger  *zap.Logger
}

func NewStartServiceTool(mgr ServiceManager, logger *zap.Logger) domaintool.Tool {
	return &serviceTool{action: "start", mgr: mgr, logger: logger}
}
func NewCheckServiceTool(mgr ServiceManager, logger *zap.Logger) domaintool.Tool {
	return &serviceTool{action: "check", mgr: mgr, logger: logger}
}
func NewStopServiceTool(mgr ServiceManager, logger *zap.Logger) domaintool.Tool {
	return &serviceTool{action: "stop", mgr: mgr, logger: logger}
}

func (t *serviceTool) Name() string { return t.action + "_service" }
func (t *serviceTool) Kind() domaintool.Kind {
	if t.action == "check" {
		return domaintool.KindRead
	}
	return domaintool.KindExecute
}
func (t *serviceTool) Description() string {
	verb := t.action
	if len(verb) > 0 {
		verb = strings.ToUpper(verb[:1]) + verb[1:]
	}
	return fmt.Sprintf("%s a named background service via the host's service manager.", verb)
}
func (t *serviceTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"name": map[string]interface{}{"type": "string"}},
		"required":   []string{"name"},
	}
}

func (t *serviceTool) Execute(ctx context.Context, args map[string]interface{}) (*domaintool.Result, error) {
	if t.mgr == nil {
		msg := "service manager is not configured"
		return &domaintool.Result{Success: false, Error: msg, Output: msg}, nil
	}
	name, _ := argString(args, "name")

	var out string
	var err error
	switch t.action {
	case "start":
		out, err = t.mgr.Start(ctx, name, args)
	case "check":
		out, err = t.mgr.Check(ctx, name)
	case "stop":
		out, err = t.mgr.Stop(ctx, name)
	}
	if err != nil {
		msg := err.Error()
		return &domaintool.Result{Success: false, Error: msg, Output: msg}, nil
	}
	return &domaintool.Result{Success: true, Output: out}, nil
}

// SkillSource is the injected delegate for load_skill (spec §4.6).
type SkillSource interface {
	LoadContent(slug string) (string, bool)
}

// LoadSkillTool implements spec §4.3 load_skill.
type LoadSkillTool struct {
	source SkillSource
	logger *zap.Logger
}

func NewLoadSkillTool(source SkillSource, logger *zap.Logger) *LoadSkillTool {
	return &LoadSkillTool{source: source, logger: logger}
}

func (t *LoadSkillTool) Name() string         { return "load_skill" }
func (t *LoadSkillTool) Kind() domaintool.Kind { return domaintool.KindRead }
func (t *LoadSkillTool) Description() string {
	return "Load the detailed markdown content of a skill by slug."
}
func (t *LoadSkillTool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"slug": map[string]interface{}{"type": "string"}},
		"required":   []string{"slug"},
	}
}

func (t *LoadSkillTool) Execute(_ context.Context, args map[string]interface{}) (*domaintool.Result, error) {
	slug, _ := argString(args, "slug")
	if t.source == nil {
		msg := fmt.Sprintf("no skill source configured for %q", slug)
		return &domaintool.Result{Success: false, Error: msg, Output: msg}, nil
	}
	content, ok := t.source.LoadContent(slug)
	if !ok {
		msg := fmt.Sprintf("skill not found: %s", slug)
		return &domaintool.Result{Success: false, Error: msg, Output: msg}, nil
	}
	return &domaintool.Result{Success: true, Output: content}, nil
}
