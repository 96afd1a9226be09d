// Package config loads the JSON project configuration: providers and
// model pricing, agent definitions, budget ceilings, and ambient paths.
// `${VAR}` references in the file are expanded from the environment
// before parsing.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"time"

	"agora/pkg/agent"
	"agora/pkg/budget"
)

// ModelConfig carries per-model pricing in USD per million tokens.
type ModelConfig struct {
	CPMTokensIn  float64 `json:"cpm_tokens_in"`
	CPMTokensOut float64 `json:"cpm_tokens_out"`
}

// ProviderConfig describes one provider and its known models.
type ProviderConfig struct {
	// APIKeyEnv names the environment variable or secret holding the key.
	APIKeyEnv string `json:"api_key_env,omitempty"`
	// Host is the server URL for local providers such as ollama.
	Host   string                 `json:"host,omitempty"`
	Models map[string]ModelConfig `json:"models"`
}

// AgentConfig describes one configured agent.
type AgentConfig struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Provider     string   `json:"provider"`
	Model        string   `json:"model"`
	SystemPrompt string   `json:"system_prompt,omitempty"`
	Skills       []string `json:"skills,omitempty"`
}

// BudgetConfig sets the per-run ceilings. Zero disables a ceiling.
type BudgetConfig struct {
	MaxTokens          int64   `json:"max_tokens,omitempty"`
	MaxCostUSD         float64 `json:"max_cost_usd,omitempty"`
	MaxDurationSeconds int64   `json:"max_duration_seconds,omitempty"`
}

// DebateConfig sets debate-specific behavior.
type DebateConfig struct {
	Mode             string   `json:"mode,omitempty"`
	ToolAugmentation bool     `json:"tool_augmentation,omitempty"`
	DefaultSkills    []string `json:"default_skills,omitempty"`
}

// Config is the root of the project configuration file.
type Config struct {
	Providers    map[string]ProviderConfig `json:"providers"`
	Agents       []AgentConfig             `json:"agents"`
	Orchestrator *AgentConfig              `json:"orchestrator,omitempty"`
	Budget       BudgetConfig              `json:"budget"`
	Debate       DebateConfig              `json:"debate"`
	SkillDirs    []string                  `json:"skill_dirs,omitempty"`
	LogDir       string                    `json:"log_dir,omitempty"`
	DBPath       string                    `json:"db_path,omitempty"`
}

var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads, env-expands, parses, and validates the config at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses and validates raw config bytes.
func Parse(data []byte) (*Config, error) {
	expanded := envRefPattern.ReplaceAllStringFunc(string(data), func(ref string) string {
		name := envRefPattern.FindStringSubmatch(ref)[1]
		return os.Getenv(name)
	})

	var cfg Config
	if err := json.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Agents) == 0 {
		return fmt.Errorf("config: at least one agent is required")
	}

	seen := make(map[string]bool)
	check := func(a *AgentConfig, what string) error {
		if a.ID == "" {
			return fmt.Errorf("config: %s is missing an id", what)
		}
		if seen[a.ID] {
			return fmt.Errorf("config: duplicate agent id %q", a.ID)
		}
		seen[a.ID] = true
		if a.Name == "" {
			a.Name = a.ID
		}
		if _, ok := c.Providers[a.Provider]; !ok {
			return fmt.Errorf("config: %s %q references unknown provider %q", what, a.ID, a.Provider)
		}
		if a.Model == "" {
			return fmt.Errorf("config: %s %q is missing a model", what, a.ID)
		}
		return nil
	}

	for i := range c.Agents {
		if err := check(&c.Agents[i], "agent"); err != nil {
			return err
		}
	}
	if c.Orchestrator != nil {
		if err := check(c.Orchestrator, "orchestrator"); err != nil {
			return err
		}
	}
	return nil
}

// PriceLookup returns the budget tracker's price function over the
// configured models. Unknown provider/model pairs report no price, which
// the tracker treats as zero cost.
func (c *Config) PriceLookup() budget.PriceLookup {
	return func(provider, model string) (float64, float64, bool) {
		p, ok := c.Providers[provider]
		if !ok {
			return 0, 0, false
		}
		m, ok := p.Models[model]
		if !ok {
			return 0, 0, false
		}
		return m.CPMTokensIn, m.CPMTokensOut, true
	}
}

// BudgetLimits converts the config's ceilings to tracker limits.
func (c *Config) BudgetLimits() budget.Limits {
	return budget.Limits{
		MaxTokens:   c.Budget.MaxTokens,
		MaxCostUSD:  c.Budget.MaxCostUSD,
		MaxDuration: time.Duration(c.Budget.MaxDurationSeconds) * time.Second,
	}
}

// ToAgent converts a config entry to the runtime agent config around an
// already-constructed capability.
func (a *AgentConfig) ToAgent(cap agent.Capability) agent.Config {
	return agent.Config{
		ID:           a.ID,
		Name:         a.Name,
		Capability:   cap,
		SystemPrompt: a.SystemPrompt,
		Skills:       a.Skills,
	}
}
