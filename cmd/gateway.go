package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sprklai/mesoclaw/internal/agent"
	"github.com/sprklai/mesoclaw/internal/bootstrap"
	"github.com/sprklai/mesoclaw/internal/bus"
	"github.com/sprklai/mesoclaw/internal/channels"
	"github.com/sprklai/mesoclaw/internal/channels/discord"
	"github.com/sprklai/mesoclaw/internal/channels/telegram"
	"github.com/sprklai/mesoclaw/internal/config"
	"github.com/sprklai/mesoclaw/internal/gateway"
	"github.com/sprklai/mesoclaw/internal/gateway/methods"
	"github.com/sprklai/mesoclaw/internal/memory"
	"github.com/sprklai/mesoclaw/internal/pairing"
	"github.com/sprklai/mesoclaw/internal/permissions"
	"github.com/sprklai/mesoclaw/internal/providers"
	"github.com/sprklai/mesoclaw/internal/scheduler"
	"github.com/sprklai/mesoclaw/internal/security"
	"github.com/sprklai/mesoclaw/internal/sessions"
	"github.com/sprklai/mesoclaw/internal/skills"
	"github.com/sprklai/mesoclaw/internal/store/file"
	"github.com/sprklai/mesoclaw/internal/tools"
	"github.com/sprklai/mesoclaw/internal/tracing"
	"github.com/sprklai/mesoclaw/pkg/protocol"
)

func runGateway() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfgPath := resolveConfigPath()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	_, cfgStatErr := os.Stat(cfgPath)
	configMissing := os.IsNotExist(cfgStatErr)
	if !cfg.HasAnyProvider() || configMissing {
		if canAutoOnboard() {
			if runAutoOnboard(cfgPath) {
				cfg, _ = config.Load(cfgPath)
			} else {
				os.Exit(1)
			}
		} else if _, statErr := os.Stat(cfgPath); statErr == nil {
			envPath := filepath.Join(filepath.Dir(cfgPath), ".env.local")
			fmt.Println("No AI provider API key found. Did you forget to load your secrets?")
			fmt.Println()
			fmt.Printf("  source %s && ./mesoclaw\n", envPath)
			fmt.Println()
			fmt.Println("Or re-run the setup wizard:  ./mesoclaw onboard")
			os.Exit(1)
		} else {
			fmt.Println("No configuration found. Starting setup wizard...")
			fmt.Println()
			if !runInteractiveOnboard(cfgPath) {
				os.Exit(1)
			}
			cfg, _ = config.Load(cfgPath)
		}
	}

	msgBus := bus.New()

	providerRegistry := providers.NewRegistry()
	registerProviders(providerRegistry, cfg)

	workspace := config.ExpandHome(cfg.Agents.Defaults.Workspace)
	if !filepath.IsAbs(workspace) {
		workspace, _ = filepath.Abs(workspace)
	}
	os.MkdirAll(workspace, 0755)

	if seededFiles, seedErr := bootstrap.EnsureWorkspaceFiles(workspace); seedErr != nil {
		slog.Warn("bootstrap template seeding failed", "error", seedErr)
	} else if len(seededFiles) > 0 {
		slog.Info("seeded workspace templates", "files", seededFiles)
	}

	toolsReg := tools.NewRegistry()
	agentCfg := cfg.ResolveAgent(config.DefaultAgentID)

	// Security gate: risk-classifies tool calls and rate-limits per tool.
	autonomy := security.ParseAutonomy(cfg.Security.Autonomy)
	gate := security.NewGate(autonomy, cfg.Security.RateLimitPerMinute, cfg.Security.RateLimitPerHour)
	approvalBroker := security.NewApprovalBroker()

	toolsReg.Register(tools.NewReadFileTool(workspace, agentCfg.RestrictToWorkspace))
	toolsReg.Register(tools.NewWriteFileTool(workspace, agentCfg.RestrictToWorkspace))
	toolsReg.Register(tools.NewListFilesTool(workspace, agentCfg.RestrictToWorkspace))
	toolsReg.Register(tools.NewEditTool(workspace, agentCfg.RestrictToWorkspace))
	toolsReg.Register(tools.NewExecTool(workspace, agentCfg.RestrictToWorkspace, gate))

	// Memory system: SQLite-backed hybrid vector+keyword recall.
	var memStore *memory.Store
	memEnabled := cfg.Memory.Enabled == nil || *cfg.Memory.Enabled
	if memEnabled {
		memStore = setupMemory(cfg)
	}
	if memStore != nil {
		defer memStore.Close()
		toolsReg.Register(tools.NewMemorySearchTool(memStore))
		toolsReg.Register(tools.NewMemoryGetTool(memStore))
		slog.Info("memory system enabled", "tools", []string{"memory_search", "memory_get"})
	}

	webSearchTool := tools.NewWebSearchTool(tools.WebSearchConfig{
		BraveEnabled: cfg.Tools.Web.Brave.Enabled,
		BraveAPIKey:  cfg.Tools.Web.Brave.APIKey,
		DDGEnabled:   cfg.Tools.Web.DuckDuckGo.Enabled,
	})
	if webSearchTool != nil {
		toolsReg.Register(webSearchTool)
		slog.Info("web_search tool enabled")
	}
	toolsReg.Register(tools.NewWebFetchTool(tools.WebFetchConfig{}))
	slog.Info("web_fetch tool enabled")

	// Subagent system: bounded in-process delegation.
	subagentCfg := tools.DefaultSubagentConfig()
	if sc := cfg.Agents.Defaults.Subagents; sc != nil {
		if sc.MaxConcurrent > 0 {
			subagentCfg.MaxConcurrent = sc.MaxConcurrent
		}
		if sc.MaxSpawnDepth > 0 {
			subagentCfg.MaxSpawnDepth = sc.MaxSpawnDepth
		}
		if sc.MaxChildrenPerAgent > 0 {
			subagentCfg.MaxChildrenPerAgent = sc.MaxChildrenPerAgent
		}
		if sc.ArchiveAfterMinutes > 0 {
			subagentCfg.ArchiveAfterMinutes = sc.ArchiveAfterMinutes
		}
		if sc.Model != "" {
			subagentCfg.Model = sc.Model
		}
	}
	subagentModel := subagentCfg.Model
	if subagentModel == "" {
		subagentModel = agentCfg.Model
	}
	defaultProvider, provErr := providerRegistry.Get(agentCfg.Provider)
	if provErr != nil {
		slog.Warn("subagents: default provider unavailable, subagent system disabled", "provider", agentCfg.Provider, "error", provErr)
	} else {
		subagentMgr := tools.NewSubagentManager(defaultProvider, subagentModel, msgBus, func() *tools.Registry {
			return buildSubagentTools(cfg, workspace, gate)
		}, subagentCfg)
		subagentMgr.SetAnnounceQueue(tools.NewAnnounceQueue(msgBus, 20*time.Second))

		toolsReg.Register(tools.NewSpawnTool(subagentMgr, config.DefaultAgentID, 0))
		toolsReg.Register(tools.NewSubagentTool(subagentMgr, config.DefaultAgentID, 0))
		slog.Info("subagent system enabled", "tools", []string{"spawn", "subagent"}, "max_concurrent", subagentCfg.MaxConcurrent, "max_spawn_depth", subagentCfg.MaxSpawnDepth)
	}

	permPE := permissions.NewPolicyEngine(cfg.Gateway.OwnerIDs)
	toolPE := tools.NewPolicyEngine(&cfg.Tools)

	dataDir := os.Getenv("MESOCLAW_DATA_DIR")
	if dataDir == "" {
		dataDir = config.ExpandHome("~/.mesoclaw/data")
	}
	os.MkdirAll(dataDir, 0755)

	sessStore := file.NewFileSessionStore(sessions.NewManager(config.ExpandHome(cfg.Sessions.Storage)))
	pairingStorePath := filepath.Join(dataDir, "pairing.json")
	pairingStore := file.NewFilePairingStore(pairing.NewService(pairingStorePath))

	// Bootstrap files for the default agent's system prompt.
	rawFiles := bootstrap.LoadWorkspaceFiles(workspace)
	truncCfg := bootstrap.TruncateConfig{
		MaxCharsPerFile: agentCfg.BootstrapMaxChars,
		TotalMaxChars:   agentCfg.BootstrapTotalMaxChars,
	}
	if truncCfg.MaxCharsPerFile <= 0 {
		truncCfg.MaxCharsPerFile = bootstrap.DefaultMaxCharsPerFile
	}
	if truncCfg.TotalMaxChars <= 0 {
		truncCfg.TotalMaxChars = bootstrap.DefaultTotalMaxChars
	}
	contextFiles := bootstrap.BuildContextFiles(rawFiles, truncCfg)
	slog.Info("bootstrap loaded from filesystem", "count", len(contextFiles))

	globalSkillsDir := os.Getenv("MESOCLAW_SKILLS_DIR")
	if globalSkillsDir == "" {
		globalSkillsDir = filepath.Join(config.ExpandHome("~/.mesoclaw"), "skills")
	}
	skillsLoader := skills.NewLoader(workspace, globalSkillsDir, "")
	toolsReg.Register(tools.NewSkillSearchTool(skillsLoader, nil))
	slog.Info("skill_search tool registered")

	if readTool, ok := toolsReg.Get("read_file"); ok {
		if rt, ok := readTool.(*tools.ReadFileTool); ok {
			rt.AllowPaths(globalSkillsDir)
			if homeDir, herr := os.UserHomeDir(); herr == nil {
				rt.AllowPaths(filepath.Join(homeDir, ".agents", "skills"))
			}
		}
	}

	// Agents are registered into the router before the scheduler is built so
	// the scheduler's RunFunc closure resolves them at dispatch time, not
	// construction time.
	agentRouter := agent.NewRouter()

	// Scheduler: unifies lane-based live dispatch and registered cron/heartbeat jobs.
	sched := scheduler.NewScheduler(scheduler.DefaultLanes(), scheduler.DefaultQueueConfig(), makeSchedulerRunFunc(agentRouter, cfg))
	defer sched.Stop()

	toolsReg.Register(tools.NewCronTool(sched))
	slog.Info("cron tool registered")

	toolsReg.Register(tools.NewSessionsListTool())
	toolsReg.Register(tools.NewSessionStatusTool())
	toolsReg.Register(tools.NewSessionsHistoryTool())
	toolsReg.Register(tools.NewSessionsSendTool())
	if t, ok := toolsReg.Get("sessions_list"); ok {
		t.(*tools.SessionsListTool).SetSessionStore(sessStore)
	}
	if t, ok := toolsReg.Get("session_status"); ok {
		t.(*tools.SessionStatusTool).SetSessionStore(sessStore)
	}
	if t, ok := toolsReg.Get("sessions_history"); ok {
		t.(*tools.SessionsHistoryTool).SetSessionStore(sessStore)
	}
	if t, ok := toolsReg.Get("sessions_send"); ok {
		st := t.(*tools.SessionsSendTool)
		st.SetSessionStore(sessStore)
		st.SetMessageBus(msgBus)
	}
	slog.Info("session tools registered")

	// Channel manager — created before the message tool so it can be wired in directly.
	channelMgr := channels.NewManager(msgBus)
	toolsReg.Register(tools.NewMessageTool(channelMgr))
	slog.Info("message tool registered")

	// Tracing: OTLP span export (no-op tracer when telemetry is disabled or
	// no endpoint is configured).
	tracerCtx, tracerCancel := context.WithCancel(context.Background())
	tracingEndpoint := cfg.Telemetry.Endpoint
	if !cfg.Telemetry.Enabled {
		tracingEndpoint = ""
	}
	_, shutdownTracing, tracingErr := tracing.InitProvider(tracerCtx, tracing.Config{
		Endpoint:    tracingEndpoint,
		Protocol:    cfg.Telemetry.Protocol,
		Insecure:    cfg.Telemetry.Insecure,
		ServiceName: cfg.Telemetry.ServiceName,
		Headers:     cfg.Telemetry.Headers,
	})
	if tracingErr != nil {
		slog.Warn("tracing init failed", "error", tracingErr)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if shutdownTracing != nil {
			shutdownTracing(shutdownCtx)
		}
		tracerCancel()
	}()

	// Create the default agent and any additional agents from agents.list.
	if err := createAgentLoop(config.DefaultAgentID, cfg, providerRegistry, agentRouter, msgBus, sessStore, toolsReg, toolPE, contextFiles, skillsLoader, memStore != nil, gate, approvalBroker); err != nil {
		slog.Error("failed to create default agent", "error", err)
		os.Exit(1)
	}
	for agentID := range cfg.Agents.List {
		if agentID == config.DefaultAgentID {
			continue
		}
		if err := createAgentLoop(agentID, cfg, providerRegistry, agentRouter, msgBus, sessStore, toolsReg, toolPE, contextFiles, skillsLoader, memStore != nil, gate, approvalBroker); err != nil {
			slog.Error("failed to create agent", "agent", agentID, "error", err)
		}
	}

	sched.SetTokenEstimateFunc(func(sessionKey string) (int, int) {
		history := sessStore.GetHistory(sessionKey)
		lastPT, lastMC := sessStore.GetLastPromptTokens(sessionKey)
		tokens := agent.EstimateTokensWithCalibration(history, lastPT, lastMC)
		cw := sessStore.GetContextWindow(sessionKey)
		if cw <= 0 {
			cw = agentCfg.ContextWindow
		}
		return tokens, cw
	})

	server := gateway.NewServer(cfg, msgBus, agentRouter, sessStore, toolsReg)
	server.SetPolicyEngine(permPE)
	server.SetPairingService(pairingStore)
	server.SetMemoryStore(memStore)
	server.SetApprovalBroker(approvalBroker)
	server.SetScheduler(sched)

	methods.NewChannelsMethods(channelMgr).Register(server.Router())

	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token != "" {
		tg, tgErr := telegram.New(cfg.Channels.Telegram, msgBus, pairingStore)
		if tgErr != nil {
			slog.Error("failed to initialize telegram channel", "error", tgErr)
		} else {
			channelMgr.RegisterChannel("telegram", tg)
			slog.Info("telegram channel enabled")
		}
	}
	if cfg.Channels.Discord.Enabled && cfg.Channels.Discord.Token != "" {
		dc, dcErr := discord.New(cfg.Channels.Discord, msgBus, pairingStore)
		if dcErr != nil {
			slog.Error("failed to initialize discord channel", "error", dcErr)
		} else {
			channelMgr.RegisterChannel("discord", dc)
			slog.Info("discord channel enabled")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if skillsWatcher, werr := skills.NewWatcher(skillsLoader); werr != nil {
		slog.Warn("skills watcher unavailable", "error", werr)
	} else {
		if serr := skillsWatcher.Start(ctx); serr != nil {
			slog.Warn("skills watcher start failed", "error", serr)
		} else {
			defer skillsWatcher.Stop()
		}
	}

	if err := channelMgr.StartAll(ctx); err != nil {
		slog.Error("failed to start channels", "error", err)
	}

	sched.StartJobLoop(ctx, scheduler.DefaultJobRunnerConfig(), heartbeatPrompt(workspace), &schedulerSink{bus: msgBus})
	registerHeartbeatJob(sched, cfg)

	msgBus.Subscribe("channel-streaming", func(event bus.Event) {
		if event.Name != protocol.EventAgent {
			return
		}
		agentEvent, ok := event.Payload.(agent.AgentEvent)
		if !ok {
			return
		}
		channelMgr.HandleAgentEvent(agentEvent.Type, agentEvent.RunID, agentEvent.Payload)
	})

	go consumeInboundMessages(ctx, msgBus, agentRouter, cfg, sched, channelMgr)

	go func() {
		sig := <-sigCh
		slog.Info("graceful shutdown initiated", "signal", sig)
		server.BroadcastEvent(*protocol.NewEvent(protocol.EventShutdown, nil))
		channelMgr.StopAll(context.Background())
		cancel()
	}()

	slog.Info("mesoclaw gateway starting",
		"version", Version,
		"protocol", protocol.ProtocolVersion,
		"agents", agentRouter.Keys(),
		"tools", toolsReg.Count(),
		"channels", channelMgr.GetEnabledChannels(),
	)

	if err := server.Start(ctx); err != nil {
		slog.Error("gateway error", "error", err)
		os.Exit(1)
	}
}

// createAgentLoop resolves agentID's effective config, wires a *agent.Loop
// sharing the gateway-wide tool registry and session store, and registers it
// into router under agentID.
func createAgentLoop(
	agentID string,
	cfg *config.Config,
	providerRegistry *providers.Registry,
	router *agent.Router,
	msgBus *bus.MessageBus,
	sessStore *file.FileSessionStore,
	toolsReg *tools.Registry,
	toolPE *tools.PolicyEngine,
	contextFiles []bootstrap.ContextFile,
	skillsLoader *skills.Loader,
	hasMemory bool,
	gate *security.Gate,
	approvalBroker *security.ApprovalBroker,
) error {
	agentCfg := cfg.ResolveAgent(agentID)

	provider, err := providerRegistry.Get(agentCfg.Provider)
	if err != nil {
		return fmt.Errorf("agent %s: %w", agentID, err)
	}

	var skillAllowList []string
	if spec, ok := cfg.Agents.List[agentID]; ok {
		skillAllowList = spec.Skills
	}

	var agentToolPolicy *config.ToolPolicySpec
	if spec, ok := cfg.Agents.List[agentID]; ok {
		agentToolPolicy = spec.Tools
	}

	approvalTimeout, _ := time.ParseDuration(cfg.Security.ApprovalTimeout)
	if approvalTimeout <= 0 {
		approvalTimeout = 5 * time.Minute
	}

	onEvent := func(evt agent.AgentEvent) {
		msgBus.Broadcast(bus.Event{Name: protocol.EventAgent, Payload: evt})
	}

	loop := agent.NewLoop(agent.LoopConfig{
		ID:                agentID,
		Provider:          provider,
		Model:             agentCfg.Model,
		ContextWindow:     agentCfg.ContextWindow,
		MaxIterations:     agentCfg.MaxToolIterations,
		Workspace:         config.ExpandHome(agentCfg.Workspace),
		Bus:               msgBus,
		Sessions:          sessStore,
		Tools:             toolsReg,
		ToolPolicy:        toolPE,
		AgentToolPolicy:   agentToolPolicy,
		OnEvent:           onEvent,
		OwnerIDs:          cfg.Gateway.OwnerIDs,
		SkillsLoader:      skillsLoader,
		SkillAllowList:    skillAllowList,
		HasMemory:         hasMemory,
		ContextFiles:      contextFiles,
		CompactionCfg:     agentCfg.Compaction,
		ContextPruningCfg: agentCfg.ContextPruning,
		InjectionAction:   cfg.Gateway.InjectionAction,
		MaxMessageChars:   cfg.Gateway.MaxMessageChars,
		SecurityGate:      gate,
		ApprovalBroker:    approvalBroker,
		ApprovalTimeout:   approvalTimeout,
	})

	router.Register(agentID, loop)
	slog.Info("agent registered", "agent", agentID, "provider", agentCfg.Provider, "model", agentCfg.Model)
	return nil
}

// buildSubagentTools assembles a fresh tool registry for a spawned subagent:
// the same filesystem/web surface as the parent, minus spawn/subagent/session
// tools that SubagentManager.applyDenyList strips based on depth.
func buildSubagentTools(cfg *config.Config, workspace string, gate *security.Gate) *tools.Registry {
	reg := tools.NewRegistry()
	agentCfg := cfg.ResolveAgent(config.DefaultAgentID)
	reg.Register(tools.NewReadFileTool(workspace, agentCfg.RestrictToWorkspace))
	reg.Register(tools.NewWriteFileTool(workspace, agentCfg.RestrictToWorkspace))
	reg.Register(tools.NewListFilesTool(workspace, agentCfg.RestrictToWorkspace))
	reg.Register(tools.NewEditTool(workspace, agentCfg.RestrictToWorkspace))
	reg.Register(tools.NewExecTool(workspace, agentCfg.RestrictToWorkspace, gate))
	if webSearchTool := tools.NewWebSearchTool(tools.WebSearchConfig{
		BraveEnabled: cfg.Tools.Web.Brave.Enabled,
		BraveAPIKey:  cfg.Tools.Web.Brave.APIKey,
		DDGEnabled:   cfg.Tools.Web.DuckDuckGo.Enabled,
	}); webSearchTool != nil {
		reg.Register(webSearchTool)
	}
	reg.Register(tools.NewWebFetchTool(tools.WebFetchConfig{}))
	return reg
}

// setupMemory opens the SQLite-backed memory store at cfg.Memory.StoragePath,
// wiring an embedding provider resolved from cfg.Memory.EmbeddingProvider.
func setupMemory(cfg *config.Config) *memory.Store {
	storagePath := config.ExpandHome(cfg.Memory.StoragePath)
	if storagePath == "" {
		storagePath = config.ExpandHome("~/.mesoclaw/data/memory.db")
	}
	os.MkdirAll(filepath.Dir(storagePath), 0755)

	embProvider := resolveEmbeddingProvider(cfg)
	cacheCapacity := cfg.Memory.CacheCapacity
	if cacheCapacity <= 0 {
		cacheCapacity = 10_000
	}
	cachedProvider := memory.NewLruEmbeddingCache(embProvider, cacheCapacity)

	storeCfg := memory.DefaultStoreConfig()
	if cfg.Memory.ChunkSize > 0 {
		storeCfg.Chunk.ChunkSize = cfg.Memory.ChunkSize
	}
	if cfg.Memory.ChunkOverlap > 0 {
		storeCfg.Chunk.Overlap = cfg.Memory.ChunkOverlap
	}
	if cfg.Memory.VectorWeight > 0 {
		storeCfg.VectorWeight = cfg.Memory.VectorWeight
	}
	if cfg.Memory.TextWeight > 0 {
		storeCfg.TextWeight = cfg.Memory.TextWeight
	}
	if cfg.Memory.MinScore > 0 {
		storeCfg.MinScore = cfg.Memory.MinScore
	}
	storeCfg.CacheCapacity = cacheCapacity

	memStore, err := memory.NewStore(storagePath, cachedProvider, storeCfg)
	if err != nil {
		slog.Warn("memory store unavailable", "path", storagePath, "error", err)
		return nil
	}
	return memStore
}

// resolveEmbeddingProvider maps cfg.Memory.EmbeddingProvider to a concrete
// memory.EmbeddingProvider, falling back to a deterministic mock so memory
// still works (without real semantic recall) when no embedding API key is set.
func resolveEmbeddingProvider(cfg *config.Config) memory.EmbeddingProvider {
	switch cfg.Memory.EmbeddingProvider {
	case "openai":
		if cfg.Providers.OpenAI.APIKey != "" {
			model := cfg.Memory.EmbeddingModel
			if model == "" {
				model = "text-embedding-3-small"
			}
			return memory.NewHTTPEmbeddingProvider(cfg.Providers.OpenAI.APIKey, cfg.Memory.EmbeddingAPIBase, model)
		}
	case "gemini":
		if cfg.Providers.Gemini.APIKey != "" {
			model := cfg.Memory.EmbeddingModel
			if model == "" {
				model = "text-embedding-004"
			}
			return memory.NewHTTPEmbeddingProvider(cfg.Providers.Gemini.APIKey, cfg.Memory.EmbeddingAPIBase, model)
		}
	}
	return memory.NewMockEmbeddingProvider()
}

// heartbeatPrompt reads HEARTBEAT.md fresh on every firing so edits to the
// checklist take effect without a restart.
func heartbeatPrompt(workspace string) scheduler.HeartbeatPrompt {
	return func() (string, error) {
		content, err := os.ReadFile(filepath.Join(workspace, bootstrap.HeartbeatFile))
		if err != nil {
			return "", err
		}
		return string(content), nil
	}
}

// registerHeartbeatJob adds the default agent's recurring PayloadHeartbeat
// job, unless disabled via heartbeat.every = "0m".
func registerHeartbeatJob(sched *scheduler.Scheduler, cfg *config.Config) {
	hbCfg := cfg.Agents.Defaults.Heartbeat
	if hbCfg != nil && hbCfg.Every == "0m" {
		slog.Info("heartbeat disabled by config")
		return
	}
	intervalSecs := uint64(cfg.Lifecycle.HeartbeatIntervalSec)
	if hbCfg != nil && hbCfg.Every != "" {
		if d, derr := time.ParseDuration(hbCfg.Every); derr == nil && d > 0 {
			intervalSecs = uint64(d.Seconds())
		}
	}
	if intervalSecs == 0 {
		intervalSecs = 600
	}

	if _, err := sched.AddJob(scheduler.ScheduledJob{
		Name:          "heartbeat",
		Schedule:      scheduler.IntervalSchedule(intervalSecs),
		SessionTarget: scheduler.SessionMain,
		Payload:       scheduler.JobPayload{Kind: scheduler.PayloadHeartbeat},
		Enabled:       true,
		AgentID:       config.DefaultAgentID,
	}); err != nil {
		slog.Warn("failed to register heartbeat job", "error", err)
		return
	}
	slog.Info("heartbeat job registered", "interval_secs", intervalSecs)
}

// schedulerSink relays scheduler job side effects (Notify payloads, execution
// records) onto the event bus for channels/UIs to pick up.
type schedulerSink struct {
	bus *bus.MessageBus
}

func (s *schedulerSink) Notify(job *scheduler.ScheduledJob, message string) {
	s.bus.Broadcast(bus.Event{
		Name:    "scheduler.notify",
		Payload: map[string]string{"job": job.Name, "message": message},
	})
}

func (s *schedulerSink) Recorded(job *scheduler.ScheduledJob, exec scheduler.JobExecution) {
	slog.Debug("scheduler job executed", "job", job.Name, "status", exec.Status.String())
}
