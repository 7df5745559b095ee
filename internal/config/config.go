package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server     ServerConfig     `toml:"server"`
	Database   DatabaseConfig   `toml:"database"`
	Auth       AuthConfig       `toml:"auth"`
	LLM        LLMConfig        `toml:"llm"`
	Agent      AgentConfig      `toml:"agent"`
	Chain      ChainConfig      `toml:"chain"`
	Debate     DebateConfig     `toml:"debate"`
	Settlement SettlementConfig `toml:"settlement"`
	Instance   InstanceConfig   `toml:"instance"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type AuthConfig struct {
	JWTSecret      string `toml:"jwt_secret"`
	TokenExpiryMin int    `toml:"token_expiry_min"`
}

type LLMConfig struct {
	AnthropicAPIKey string `toml:"anthropic_api_key"`
	OpenAIAPIKey    string `toml:"openai_api_key"`
	// Model optionally pins a model ("provider/name"); empty uses the
	// provider fallback chain.
	Model string `toml:"model"`
}

// AgentConfig points at the wallet/agent collaborator, an LLM-driven service
// that answers natural-language wallet operations over POST {base_url}/chat.
type AgentConfig struct {
	BaseURL    string `toml:"base_url"`
	TimeoutSec int    `toml:"timeout_sec"`
}

type ChainConfig struct {
	RPCURL     string `toml:"rpc_url"`
	TimeoutSec int    `toml:"timeout_sec"`
}

type DebateConfig struct {
	// MessageThreshold is the message count at which a debate ends and
	// settlement is scheduled. Debates may override it at creation.
	MessageThreshold int `toml:"message_threshold"`
	// DefaultJurorCount is how many personas to generate when a debate is
	// created without explicit juror personas.
	DefaultJurorCount int `toml:"default_juror_count"`
}

type SettlementConfig struct {
	// Policy controls step 4 of settlement: "majority" executes the action
	// directive only when the approve side wins the tally; "passthrough"
	// delegates the raw tally to the agent and lets it decide.
	Policy string `toml:"policy"`
	// NFTSymbol is the token symbol for the per-debate record contract.
	NFTSymbol string `toml:"nft_symbol"`
	// RecordBaseURL is the public base for debate record URIs embedded in
	// the NFT contract (the durable alternative to inlining chat history).
	RecordBaseURL string `toml:"record_base_url"`
}

type InstanceConfig struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
}

const (
	PolicyMajority    = "majority"
	PolicyPassthrough = "passthrough"
)

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Database: DatabaseConfig{
			Path: "data/daocouncil.db",
		},
		Auth: AuthConfig{
			JWTSecret:      "change-me-in-production",
			TokenExpiryMin: 1440, // 24h
		},
		Agent: AgentConfig{
			BaseURL:    "http://localhost:8000",
			TimeoutSec: 120,
		},
		Chain: ChainConfig{
			RPCURL:     "https://sepolia.base.org",
			TimeoutSec: 15,
		},
		Debate: DebateConfig{
			MessageThreshold:  20,
			DefaultJurorCount: 5,
		},
		Settlement: SettlementConfig{
			Policy:        PolicyMajority,
			NFTSymbol:     "DEBATE",
			RecordBaseURL: "http://localhost:8080/debates",
		},
		Instance: InstanceConfig{
			ID:   "local",
			Name: "daocouncil-local",
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Settlement.Policy {
	case PolicyMajority, PolicyPassthrough:
	default:
		return fmt.Errorf("settlement.policy must be %q or %q, got %q",
			PolicyMajority, PolicyPassthrough, c.Settlement.Policy)
	}
	if c.Debate.MessageThreshold < 1 {
		return fmt.Errorf("debate.message_threshold must be >= 1")
	}
	if c.Debate.DefaultJurorCount < 1 {
		return fmt.Errorf("debate.default_juror_count must be >= 1")
	}
	return nil
}
