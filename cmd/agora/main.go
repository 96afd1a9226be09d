// Command agora runs multi-agent interaction patterns from the command
// line: sequential chaining, parallel fan-out, ensemble aggregation,
// judged cross-check, and multi-round debate.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"agora/pkg/agent"
	"agora/pkg/agent/middleware/budgetguard"
	"agora/pkg/agent/middleware/metrics"
	"agora/pkg/agent/middleware/retry"
	"agora/pkg/agent/middleware/usage"
	"agora/pkg/agent/provider/anthropic"
	"agora/pkg/agent/provider/google"
	"agora/pkg/agent/provider/ollama"
	"agora/pkg/agent/provider/openai"
	"agora/pkg/budget"
	"agora/pkg/config"
	"agora/pkg/debate"
	"agora/pkg/event"
	"agora/pkg/eventlog"
	"agora/pkg/logx"
	"agora/pkg/pattern"
	"agora/pkg/run"
	"agora/pkg/session"
	"agora/pkg/skills"
	"agora/pkg/trace"
)

func main() {
	var (
		configPath  = flag.String("config", "agora.json", "path to project config")
		patternName = flag.String("pattern", "debate", "pattern to run: sequential, parallel, ensemble, crosscheck, debate")
		strategy    = flag.String("strategy", "first", "ensemble aggregation strategy: first, longest, shortest, concat")
		jsonOut     = flag.Bool("json", false, "print the full result as JSON")
		noRetry     = flag.Bool("no-retry", false, "disable bounded retry at the capability boundary")
	)
	flag.Parse()

	logger := logx.NewLogger("agora")

	topic := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if topic == "" {
		fmt.Fprintln(os.Stderr, "usage: agora [flags] <topic>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("config: %v", err)
		os.Exit(1)
	}

	app, err := newApp(cfg, logger, *noRetry)
	if err != nil {
		logger.Error("setup: %v", err)
		os.Exit(1)
	}
	defer app.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.run(ctx, *patternName, *strategy, topic, *jsonOut); err != nil {
		logger.Error("run failed: %v", err)
		os.Exit(1)
	}
}

// app wires the config into runnable capabilities and sinks.
type app struct {
	cfg      *config.Config
	logger   *logx.Logger
	store    *session.Store
	elog     *eventlog.Writer
	agents   []agent.Config
	orch     *agent.Config
	skillLdr skills.Loader
}

func newApp(cfg *config.Config, logger *logx.Logger, noRetry bool) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "agora.db"
	}
	store, err := session.Open(dbPath)
	if err != nil {
		return nil, err
	}
	a.store = store

	logDir := cfg.LogDir
	if logDir == "" {
		logDir = "logs"
	}
	elog, err := eventlog.NewWriter(logDir)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	a.elog = elog

	if len(cfg.SkillDirs) > 0 {
		a.skillLdr = skills.NewDirLoader(cfg.SkillDirs...)
	}

	vault, err := openVault()
	if err != nil {
		a.close()
		return nil, err
	}

	recorder := metrics.NewPrometheusRecorder()
	estimator, err := budget.NewEstimator("gpt-4")
	if err != nil {
		a.logger.Warn("token estimator unavailable, falling back to length heuristic: %v", err)
		estimator = nil
	}

	build := func(ac config.AgentConfig) (agent.Config, error) {
		base, err := a.capability(ac, vault)
		if err != nil {
			return agent.Config{}, err
		}
		mw := []agent.Middleware{
			budgetguard.Middleware(ac.Provider, ac.Model, estimator),
			metrics.Middleware(recorder, ac.Provider, ac.Model, cfg.PriceLookup(), logx.NewLogger("metrics")),
			usage.Middleware(a.store, ac.Provider, ac.Model, logx.NewLogger("usage")),
		}
		if !noRetry {
			mw = append([]agent.Middleware{retry.Middleware(retry.DefaultPolicy())}, mw...)
		}
		return ac.ToAgent(agent.Chain(base, mw...)), nil
	}

	for _, ac := range cfg.Agents {
		built, err := build(ac)
		if err != nil {
			a.close()
			return nil, err
		}
		a.agents = append(a.agents, built)
	}
	if cfg.Orchestrator != nil {
		built, err := build(*cfg.Orchestrator)
		if err != nil {
			a.close()
			return nil, err
		}
		a.orch = &built
	}
	return a, nil
}

// capability constructs the raw provider client for one agent entry.
func (a *app) capability(ac config.AgentConfig, vault *config.Vault) (agent.Capability, error) {
	provider := a.cfg.Providers[ac.Provider]

	key := ""
	if provider.APIKeyEnv != "" {
		var err error
		key, err = vault.Get(provider.APIKeyEnv)
		if err != nil {
			key, err = promptForKey(provider.APIKeyEnv)
			if err != nil {
				return nil, fmt.Errorf("agent %s: %w", ac.ID, err)
			}
			vault.Set(provider.APIKeyEnv, key)
		}
	}

	switch ac.Provider {
	case "anthropic":
		return anthropic.New(key, ac.Model), nil
	case "openai":
		return openai.New(key, ac.Model), nil
	case "google":
		return google.New(key, ac.Model), nil
	case "ollama":
		host := provider.Host
		if host == "" {
			host = "http://localhost:11434"
		}
		return ollama.New(host, ac.Model), nil
	default:
		return nil, fmt.Errorf("agent %s: unsupported provider %q", ac.ID, ac.Provider)
	}
}

// openVault loads encrypted secrets when present, prompting for the vault
// password on a terminal.
func openVault() (*config.Vault, error) {
	if !config.SecretsFileExists(".") {
		return config.NewVault(), nil
	}
	password, err := promptForKey("vault password")
	if err != nil {
		return nil, err
	}
	return config.OpenVault(".", password)
}

func promptForKey(name string) (string, error) {
	if !term.IsTerminal(int(syscall.Stdin)) {
		return "", fmt.Errorf("%s not set and stdin is not a terminal", name)
	}
	fmt.Fprintf(os.Stderr, "Enter %s: ", name)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	value := strings.TrimSpace(string(raw))
	if value == "" {
		return "", fmt.Errorf("%s is empty", name)
	}
	return value, nil
}

func (a *app) run(ctx context.Context, patternName, strategy, topic string, jsonOut bool) error {
	tracker := budget.NewTracker(a.cfg.BudgetLimits(), a.cfg.PriceLookup())
	rc := run.New(ctx,
		run.WithBudget(tracker),
		run.WithTrace(trace.New(patternName)),
		run.WithMetadata(map[string]string{"session": a.store.SessionID()}),
	)
	defer rc.Cancel()

	var result any
	var err error
	switch patternName {
	case "sequential":
		stream := pattern.NewSequential(a.agents).Run(rc, topic)
		a.consume(stream.Events())
		result, err = stream.Wait(ctx)
	case "parallel":
		stream := pattern.NewParallel(a.agents).Run(rc, topic)
		a.consume(stream.Events())
		result, err = stream.Wait(ctx)
	case "ensemble":
		stream := pattern.NewEnsemble(a.agents, pattern.AggregationStrategy(strategy)).Run(rc, topic)
		a.consume(stream.Events())
		result, err = stream.Wait(ctx)
	case "crosscheck":
		if a.orch == nil {
			return fmt.Errorf("crosscheck requires an orchestrator in the config")
		}
		stream := pattern.NewCrossCheck(a.agents, *a.orch).Run(rc, topic)
		a.consume(stream.Events())
		result, err = stream.Wait(ctx)
	case "debate":
		p := debate.New(debate.Config{
			Participants:     a.agents,
			Orchestrator:     a.orch,
			Mode:             debate.Mode(a.cfg.Debate.Mode),
			SkillLoader:      a.skillLdr,
			DefaultSkills:    a.cfg.Debate.DefaultSkills,
			ToolAugmentation: a.cfg.Debate.ToolAugmentation,
		})
		stream := p.Run(rc, topic)
		a.consume(stream.Events())
		result, err = stream.Wait(ctx)
	default:
		return fmt.Errorf("unknown pattern %q", patternName)
	}
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	printSummary(result)

	snap := tracker.Current()
	a.logger.Info("usage: %d tokens, $%.4f estimated", snap.TotalTokens, snap.EstimatedCostUSD)
	return nil
}

// consume drains the pattern's events into the terminal log and the
// persistent event log.
func (a *app) consume(events <-chan event.Event) {
	for ev := range events {
		if err := a.elog.Write(ev); err != nil {
			a.logger.Warn("event log write failed: %v", err)
		}
		switch e := ev.(type) {
		case event.AgentStart:
			a.logger.Info("agent %s started", e.AgentName)
		case event.AgentEnd:
			a.logger.Info("agent %s finished in %dms", e.AgentID, e.DurationMs)
		case event.DebatePhaseStart:
			a.logger.Info("debate phase: %s", e.Phase)
		case event.DebateRoundStart:
			a.logger.Info("  %s speaking (%s)", e.Speaker, e.Phase)
		case event.PositionChange:
			a.logger.Info("position change: %s", e.Participant)
		case event.Chunk:
			a.logger.Debug("chunk from %s (%d chars)", e.AgentID, len(e.Content))
		}
	}
}

func printSummary(result any) {
	switch r := result.(type) {
	case pattern.SequentialResult:
		fmt.Println(r.FinalOutput)
	case pattern.ParallelResult:
		for _, resp := range r.Responses {
			if resp.Success {
				fmt.Printf("=== %s ===\n%s\n\n", resp.AgentName, resp.Content)
			} else {
				fmt.Printf("=== %s (failed) ===\n%s\n\n", resp.AgentName, resp.Err)
			}
		}
	case pattern.EnsembleResult:
		fmt.Println(r.FinalAnswer)
	case pattern.CrossCheckResult:
		fmt.Printf("%s\n\nagreement: %.2f\n", r.FinalAnswer, r.Agreement)
	case debate.Result:
		for _, round := range r.Rounds {
			fmt.Printf("=== %s [%s] ===\n%s\n\n", round.Speaker, round.Phase, round.Content)
		}
		if r.Consensus != "" {
			fmt.Printf("=== consensus ===\n%s\n", r.Consensus)
		}
		for _, d := range r.UnresolvedDisagreements {
			fmt.Printf("unresolved: %s\n", d)
		}
	}
}

func (a *app) close() {
	if a.elog != nil {
		if err := a.elog.Close(); err != nil {
			a.logger.Warn("closing event log: %v", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("closing session store: %v", err)
		}
	}
}
