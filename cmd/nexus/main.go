// Package main provides the CLI entry point for the agentproxy server.
//
// agentproxy impersonates an Anthropic-compatible /v1/messages API in
// front of a coding-assistant client, translating requests to an
// upstream LLM provider (Databricks, Azure-hosted Anthropic, or
// Bedrock) and running a bounded server-side tool-use agent loop.
//
// # Basic Usage
//
// Start the server:
//
//	agentproxy serve --config agentproxy.yaml
//
// Validate a configuration file without starting the server:
//
//	agentproxy config validate --config agentproxy.yaml
//
// # Environment Variables
//
// Configuration can be provided via environment variables layered over
// the YAML file; see internal/config for the full list, including:
//
//   - MODEL_PROVIDER: "databricks", "azure", or "bedrock"
//   - DATABRICKS_API_BASE, DATABRICKS_API_KEY
//   - AZURE_ANTHROPIC_ENDPOINT, AZURE_ANTHROPIC_API_KEY
//   - SESSION_DB_PATH
//   - MCP_SERVER_MANIFEST, MCP_MANIFEST_DIRS
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nexusrelay/agentproxy/internal/agent"
	"github.com/nexusrelay/agentproxy/internal/cache"
	"github.com/nexusrelay/agentproxy/internal/config"
	"github.com/nexusrelay/agentproxy/internal/httpapi"
	"github.com/nexusrelay/agentproxy/internal/mcp"
	"github.com/nexusrelay/agentproxy/internal/policy"
	"github.com/nexusrelay/agentproxy/internal/providers"
	"github.com/nexusrelay/agentproxy/internal/sandbox"
	"github.com/nexusrelay/agentproxy/internal/sessions"
	"github.com/nexusrelay/agentproxy/internal/tools/edits"
	"github.com/nexusrelay/agentproxy/internal/tools/exec"
	"github.com/nexusrelay/agentproxy/internal/tools/files"
	"github.com/nexusrelay/agentproxy/internal/tools/git"
	"github.com/nexusrelay/agentproxy/internal/tools/indexer"
	"github.com/nexusrelay/agentproxy/internal/tools/tasks"
	"github.com/nexusrelay/agentproxy/internal/tools/testsrun"
	"github.com/nexusrelay/agentproxy/internal/tools/websearch"
	"github.com/nexusrelay/agentproxy/internal/workspace"
)

// Build information - populated by ldflags during build.
//
// Example build command:
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse HEAD) -X main.date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version = "dev"     // Semantic version (e.g., "v1.0.0")
	commit  = "none"    // Git commit SHA
	date    = "unknown" // Build timestamp
)

// main is the entry point for the agentproxy CLI.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// This is separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "agentproxy",
		Short: "agentproxy - self-hosted Anthropic-compatible coding-agent proxy",
		Long: `agentproxy impersonates an Anthropic-compatible /v1/messages API on
behalf of a coding-assistant client, translating requests to an
upstream LLM provider and running a bounded server-side tool-use agent
loop against a workspace and any configured MCP tool servers.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildConfigCmd(),
		buildMcpCmd(),
	)

	return rootCmd
}

// buildServeCmd builds the "serve" command: the only long-running
// command this binary exposes.
func buildServeCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the agentproxy HTTP server",
		Long: `Start the agentproxy HTTP server.

The server will:
1. Load configuration from the specified file (or ./agentproxy.yaml)
2. Open the session store
3. Discover and connect configured MCP tool servers
4. Register the built-in workspace/exec/web tools
5. Select and construct the upstream LLM provider adapter
6. Serve /v1/messages, /health, /metrics, and /debug/session

Graceful shutdown is handled on SIGINT/SIGTERM.`,
		Example: `  # Start with default config
  agentproxy serve

  # Start with a custom config
  agentproxy serve --config /etc/agentproxy/production.yaml

  # Start with debug logging
  agentproxy serve --debug`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "agentproxy.yaml",
		"Path to YAML configuration file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false,
		"Enable debug logging (verbose output)")

	return cmd
}

// runServe implements the serve command: it wires every SPEC_FULL.md
// component into one *httpapi.Server and runs it until a shutdown
// signal arrives.
func runServe(ctx context.Context, configPath string, debug bool) error {
	if debug {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	slog.Info("starting agentproxy",
		"version", version,
		"commit", commit,
		"config", configPath,
		"debug", debug,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	slog.Info("configuration loaded",
		"listen", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		"llm_provider", cfg.LLM.Provider,
		"workspace", cfg.Workspace.Root,
	)

	store, err := sessions.Open(cfg.Session.DBPath)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	bootstrapResult, err := workspace.EnsureWorkspaceFiles(cfg.Workspace.Root, workspace.BootstrapFilesForConfig(cfg), false)
	if err != nil {
		return fmt.Errorf("bootstrap workspace files: %w", err)
	}
	slog.Info("workspace files bootstrapped",
		"created", len(bootstrapResult.Created),
		"skipped", len(bootstrapResult.Skipped),
	)

	workspaceCtx, err := workspace.LoadWorkspace(workspace.LoaderConfigFromConfig(cfg))
	if err != nil {
		return fmt.Errorf("load workspace context: %w", err)
	}

	resolver := policy.NewResolver()
	registry := agent.NewToolRegistry()

	mcpManager, stopWatcher, err := startMCP(ctx, cfg, registry, resolver)
	if err != nil {
		return fmt.Errorf("start mcp: %w", err)
	}
	defer stopWatcher()
	defer mcpManager.Stop()

	execManager := registerBuiltinTools(registry, cfg, mcpManager)

	provider, err := providers.Select(ctx, &cfg.LLM)
	if err != nil {
		return fmt.Errorf("select llm provider: %w", err)
	}

	promptCache := cache.NewPromptCache(cache.PromptCacheOptions{
		MaxEntries: cfg.Cache.MaxEntries,
		TTL:        cfg.Cache.TTL,
	})

	executor := agent.NewExecutor(registry, resolver).WithGitTestRunner(func(ctx context.Context, command string) (int, error) {
		result, err := execManager.RunCommand(ctx, command, "", nil, "", 5*time.Minute)
		if err != nil {
			return 0, err
		}
		return result.ExitCode, nil
	})

	orchestrator := agent.NewOrchestrator(provider, registry, executor, resolver, promptCache, store, agent.OrchestratorConfig{
		MaxSteps:              cfg.Policy.MaxSteps,
		MaxToolCallsPerTurn:   cfg.Policy.MaxToolCallsPerTurn,
		CacheEnabled:          cfg.Cache.Enabled,
		WebFallbackEnabled:    cfg.LLM.Provider == "databricks",
		WorkspaceSystemPrompt: workspaceCtx.SystemPromptContext(),
		Policy:                cfg.Policy.ToPolicy(),
	})

	server := httpapi.NewServer(orchestrator, store, slog.Default())

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{Addr: addr, Handler: server.Routes()}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("agentproxy listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received, initiating graceful shutdown")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpapi.Shutdown(shutdownCtx, httpServer); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
		return err
	}

	slog.Info("agentproxy stopped gracefully")
	return nil
}

// registerBuiltinTools registers the fixed vocabulary of in-process
// tools (§4.8) against the workspace root, plus the group:mcp
// introspection tools backed by mcpManager. It returns the exec.Manager
// so the caller can wire it into git commit test gating (§4.2).
func registerBuiltinTools(registry *agent.ToolRegistry, cfg *config.Config, mcpManager *mcp.Manager) *exec.Manager {
	editHistory := edits.NewStore()

	filesCfg := files.Config{Workspace: cfg.Workspace.Root, MaxReadBytes: 0}
	registry.Register(files.NewReadTool(filesCfg))
	registry.Register(files.NewWriteTool(filesCfg).WithHistory(editHistory))
	registry.Register(files.NewApplyPatchTool(filesCfg).WithHistory(editHistory))
	registry.Register(edits.NewHistoryTool(editHistory))
	registry.Register(edits.NewRevertTool(editHistory, files.Resolver{Root: cfg.Workspace.Root}))

	execManager := exec.NewManager(cfg.Workspace.Root)
	if cfg.Sandbox.Enabled {
		sandboxRunner := sandbox.NewRunner(sandbox.Config{
			Enabled:            cfg.Sandbox.Enabled,
			Image:              cfg.Sandbox.Image,
			Runtime:            cfg.Sandbox.Runtime,
			ContainerWorkspace: cfg.Sandbox.ContainerWorkspace,
			MountWorkspace:     cfg.Sandbox.MountWorkspace,
			AllowNetworking:    cfg.Sandbox.AllowNetworking,
			NetworkMode:        cfg.Sandbox.NetworkMode,
			PassthroughEnv:     cfg.Sandbox.PassthroughEnv,
			ExtraMounts:        cfg.Sandbox.ExtraMounts,
			Timeout:            cfg.Sandbox.Timeout,
			User:               cfg.Sandbox.User,
			Entrypoint:         cfg.Sandbox.Entrypoint,
			ReuseSession:       cfg.Sandbox.ReuseSession,
		}, cfg.Workspace.Root)
		execManager.WithSandbox(sandboxRunner, sandbox.ModeAuto)
	}
	registry.Register(exec.NewExecTool("shell", execManager))
	registry.Register(exec.NewExecTool("python_exec", execManager))
	registry.Register(exec.NewProcessTool(execManager))
	registry.Register(exec.NewSandboxSessionsTool(execManager))

	registry.Register(websearch.NewWebSearchTool(&websearch.Config{
		SearXNGURL:         cfg.WebSearch.Endpoint,
		DefaultBackend:     websearch.BackendSearXNG,
		ExtractContent:     true,
		DefaultResultCount: 5,
	}))
	registry.Register(websearch.NewWebFetchTool(&websearch.FetchConfig{MaxChars: cfg.WebFetch.MaxChars}))

	for _, name := range git.Names() {
		registry.Register(git.New(name, execManager))
	}

	projectIndex := indexer.New(cfg.Workspace.Root)
	if err := projectIndex.Rebuild(); err != nil {
		slog.Warn("initial workspace index build failed", "error", err)
	}
	registry.Register(indexer.NewListTool(projectIndex))
	registry.Register(indexer.NewSearchTool(projectIndex))
	registry.Register(indexer.NewSymbolSearchTool(projectIndex))
	registry.Register(indexer.NewSymbolReferencesTool(projectIndex))
	registry.Register(indexer.NewGotoDefinitionTool(projectIndex))
	registry.Register(indexer.NewIndexRebuildTool(projectIndex))
	registry.Register(indexer.NewProjectSummaryTool(projectIndex))

	taskStore := tasks.NewStore()
	for _, action := range []string{"create", "get", "update", "set_status", "delete"} {
		registry.Register(tasks.NewTaskTool(action, taskStore))
	}
	registry.Register(tasks.NewTasksListTool(taskStore))

	testStore := testsrun.NewStore()
	registry.Register(testsrun.NewRunTool(execManager, testStore, cfg.Policy.Git.TestCommand))
	registry.Register(testsrun.NewHistoryTool(testStore))
	registry.Register(testsrun.NewSummaryTool(testStore))

	registry.Register(mcp.NewServersTool(mcpManager))
	registry.Register(mcp.NewCallTool(mcpManager))

	return execManager
}

// startMCP builds an MCP manager and hands its lifecycle to a
// ManifestWatcher, which performs the first manifest discovery pass
// synchronously (connecting auto-start servers and registering their
// tools) before this function returns, then keeps watching
// manifest_dirs for changes. The returned stop func tears down the
// watcher's background goroutine.
func startMCP(ctx context.Context, cfg *config.Config, registry *agent.ToolRegistry, resolver *policy.Resolver) (*mcp.Manager, func(), error) {
	mgr := mcp.NewManager(&mcp.Config{}, slog.Default())

	watchCtx, cancel := context.WithCancel(ctx)
	watcher := mcp.NewManifestWatcher(cfg.MCP.ManifestPath, cfg.MCP.ManifestDirs, slog.Default(), func(discovered []*mcp.ServerConfig) {
		mgr.UpdateServers(discovered)
		if err := mgr.Start(watchCtx); err != nil {
			slog.Warn("mcp manager start reported errors", "error", err)
		}
		mcp.RegisterToolsWithRegistrar(registry, mgr, resolver)
	})
	if err := watcher.Run(watchCtx); err != nil {
		cancel()
		return mgr, func() {}, err
	}

	return mgr, cancel, nil
}

// buildConfigCmd builds the "config" command group.
func buildConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate configuration",
	}
	cmd.AddCommand(buildConfigValidateCmd())
	return cmd
}

func buildConfigValidateCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate a configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "config OK: provider=%s listen=%s:%d workspace=%s\n",
				cfg.LLM.Provider, cfg.Server.Host, cfg.Server.Port, cfg.Workspace.Root)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "agentproxy.yaml", "Path to YAML configuration file")
	return cmd
}

// buildMcpCmd builds the "mcp" command group, offering read-only
// inspection of configured MCP servers without starting the HTTP server.
func buildMcpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Inspect configured MCP tool servers",
	}
	cmd.AddCommand(buildMcpListCmd())
	return cmd
}

func buildMcpListCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List servers discovered from manifest_path/manifest_dirs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			servers, err := mcp.DiscoverManifests(cfg.MCP.ManifestPath, cfg.MCP.ManifestDirs)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(servers) == 0 {
				fmt.Fprintln(out, "no MCP servers discovered")
				return nil
			}
			for _, server := range servers {
				fmt.Fprintf(out, "%s\t%s\t%s\n", server.ID, server.Name, server.Command)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "agentproxy.yaml", "Path to YAML configuration file")
	return cmd
}
