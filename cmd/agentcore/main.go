// Command agentcore wires ModelAdapter, MCPClient Fabric, ToolExecutor,
// SystemPrompt Builder and the GORM-backed Store into one ReActDriver and
// streams Run's output to the terminal. Grounded on cmd/gateway/main.go's
// subcommand/signal handling and interfaces/repl's interactive loop shape,
// retargeted from the application.App/usecase stack to reactdriver.Driver
// directly.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agentcore/core/internal/domain/agentcore"
	"github.com/agentcore/core/internal/infrastructure/config"
	"github.com/agentcore/core/internal/infrastructure/llm"
	"github.com/agentcore/core/internal/infrastructure/logger"
	"github.com/agentcore/core/internal/infrastructure/mcp"
	"github.com/agentcore/core/internal/infrastructure/modeladapter"
	"github.com/agentcore/core/internal/infrastructure/persistence"
	"github.com/agentcore/core/internal/infrastructure/reactdriver"
	"github.com/agentcore/core/internal/infrastructure/sandbox"
	"github.com/agentcore/core/internal/infrastructure/skillsource"
	"github.com/agentcore/core/internal/infrastructure/sysprompt"
	"github.com/agentcore/core/internal/infrastructure/toolexec"
)

func main() {
	log, err := logger.NewLogger(logger.Config{Level: "warn", Format: "console", OutputPath: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	root := &cobra.Command{
		Use:   "agentcore",
		Short: "Agent Core — ReAct coding assistant driver",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(log)
		},
	}

	mcpCmd := &cobra.Command{Use: "mcp", Short: "Manage configured MCP servers"}
	mcpCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List configured MCP servers",
		RunE:  func(cmd *cobra.Command, args []string) error { return mcpList() },
	})
	mcpCmd.AddCommand(&cobra.Command{
		Use:   "add [name] [endpoint]",
		Short: "Add an MCP server to ~/.ngoclaw/mcp.json",
		Args:  cobra.ExactArgs(2),
		RunE:  func(cmd *cobra.Command, args []string) error { return mcpAdd(args[0], args[1]) },
	})
	root.AddCommand(mcpCmd)

	if err := root.Execute(); err != nil {
		log.Fatal("command failed", zap.Error(err))
	}
}

func mcpList() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	cfg, path, err := config.LoadMCPConfig(home)
	if err != nil {
		return err
	}
	fmt.Printf("MCP servers (%s):\n", path)
	for _, s := range cfg.Servers {
		state := "disabled"
		if s.Enabled {
			state = "enabled"
		}
		fmt.Printf("  %-20s %-30s %s\n", s.Name, s.Endpoint, state)
	}
	return nil
}

func mcpAdd(name, endpoint string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	cfg, path, err := config.LoadMCPConfig(home)
	if err != nil {
		return err
	}
	cfg.Servers = append(cfg.Servers, config.MCPServerEntry{Name: name, Endpoint: endpoint, Enabled: true})
	if err := config.SaveMCPConfig(path, cfg); err != nil {
		return err
	}
	fmt.Printf("added MCP server %q (%s)\n", name, endpoint)
	return nil
}

func runAgent(log *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}

	driver, err := buildDriver(cfg, log)
	if err != nil {
		log.Fatal("failed to wire agent core", zap.Error(err))
	}
	defer driver.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		driver.Stop()
		cancel()
	}()

	stopWatch := watchProjectConfig(cfg, driver, log)
	defer stopWatch()

	runREPL(ctx, driver, cfg)
	return nil
}

// watchProjectConfig watches the project-local config file and, on write or
// create, reloads the configuration and pushes Config.ToAgentConfig (MCP
// server list and context-token budget) into the driver without restarting
// the process. The pushed snapshot carries no rules or skills.
func watchProjectConfig(cfg *config.Config, driver *reactdriver.Driver, log *zap.Logger) func() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("config hot-reload disabled: failed to start watcher", zap.Error(err))
		return func() {}
	}

	projectRoot, err := os.Getwd()
	if err != nil {
		watcher.Close()
		return func() {}
	}
	path := config.ProjectConfigPath(projectRoot)
	if err := watcher.Add(path); err != nil {
		// Project-local config may not exist yet; that's fine, not an error.
		watcher.Close()
		return func() {}
	}

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				reloaded, err := config.Load()
				if err != nil {
					log.Warn("project config reload failed", zap.Error(err))
					continue
				}
				driver.SetConfig(reloaded.ToAgentConfig())
				log.Info("project config hot-reloaded", zap.String("path", path))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("config watcher error", zap.Error(err))
			}
		}
	}()

	return func() { watcher.Close() }
}

func buildDriver(cfg *config.Config, log *zap.Logger) (*reactdriver.Driver, error) {
	providerCfg := llm.ProviderConfig{
		Name:    "default",
		Type:    "openai",
		BaseURL: os.Getenv("AGENTCORE_BASE_URL"),
		APIKey:  os.Getenv("AGENTCORE_API_KEY"),
	}
	provider, err := llm.CreateProvider(providerCfg, log)
	var adapter modeladapter.Adapter
	if err != nil {
		log.Warn("no model provider configured, driver will report fatal config errors", zap.Error(err))
	} else {
		adapter = modeladapter.NewRetryingAdapter(modeladapter.NewProviderAdapter(provider, log), log)
	}

	projectRoot, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	sbCfg := sandbox.DefaultConfig()
	sbCfg.WorkDir = projectRoot
	sb, err := sandbox.NewProcessSandbox(sbCfg, log)
	if err != nil {
		return nil, fmt.Errorf("sandbox init: %w", err)
	}
	executor := toolexec.NewExecutor(projectRoot, sb, log)

	skills := skillsource.New(projectRoot, log)
	promptBuilder := sysprompt.New(skills)

	fabric := mcp.NewFabric(log)

	db, err := persistence.NewDBConnection(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database init: %w", err)
	}
	store := persistence.NewGormSessionStore(db)

	return reactdriver.New(reactdriver.Config{
		Adapter:       adapter,
		Executor:      executor,
		Fabric:        fabric,
		PromptBuilder: promptBuilder,
		Store:         store,
		Logger:        log,
		DefaultModel:  cfg.Agent.DefaultModel,
	}), nil
}

func runREPL(ctx context.Context, driver *reactdriver.Driver, cfg *config.Config) {
	sessionID := fmt.Sprintf("repl-%d", os.Getpid())
	projectRoot, _ := os.Getwd()

	renderer, _ := glamour.NewTermRenderer(glamour.WithAutoStyle())

	driver.SetConfig(cfg.ToAgentConfig())

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("agentcore repl — Ctrl-C to exit")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if ctx.Err() != nil {
			return
		}

		var answer strings.Builder
		chunks := driver.Run(ctx, sessionID, line, projectRoot, cfg.Agent.DefaultModel, nil)
		for chunk := range chunks {
			switch chunk.Type {
			case agentcore.ChunkText:
				answer.WriteString(chunk.Text)
			case agentcore.ChunkThinking:
				fmt.Print(chunk.Text)
			case agentcore.ChunkToolCall:
				fmt.Printf("\n[calling %s]\n", chunk.ToolCall.Name)
			case agentcore.ChunkToolResult:
				fmt.Printf("[%s -> %s]\n", chunk.ToolResult.Name, truncate(chunk.ToolResult.Output, 200))
			case agentcore.ChunkError:
				fmt.Printf("\n[error: %s]\n", chunk.Err)
			case agentcore.ChunkDone:
				printAnswer(answer.String(), renderer)
			}
		}
	}
}

// printAnswer renders the turn's accumulated text answer through glamour;
// falls back to a raw print if the renderer isn't available (e.g. no TTY)
// or rendering fails.
func printAnswer(text string, renderer *glamour.TermRenderer) {
	if renderer == nil {
		fmt.Println(text)
		return
	}
	out, err := renderer.Render(text)
	if err != nil {
		fmt.Println(text)
		return
	}
	fmt.Print(out)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
