package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"go-solver/internal/storage"
)

// Residual-routing failure policy. The core never hard-codes this
// choice: the operator decides whether one failed intent sinks the
// whole batch-solve attempt or is merely excluded from the solution.
const (
	ResidualPolicyAbort   = "abort"
	ResidualPolicyExclude = "exclude"
)

// Partial-match remainder policy. The excess of the larger side of a
// partial match either re-enters residual routing or stays unfilled.
const (
	RemainderPolicyRoute = "route"
	RemainderPolicyDrop  = "drop"
)

// Config is the application configuration, resolved once at startup
// and passed by reference through the call chain.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	NATS       NATSConfig       `yaml:"nats"`
	Solver     SolverConfig     `yaml:"solver"`
	Venue      VenueConfig      `yaml:"venue"`
	Blockchain BlockchainConfig `yaml:"blockchain"`
	Storage    StorageConfig    `yaml:"storage"`
	CORS       CORSConfig       `yaml:"cors"`
	Admin      AdminConfig      `yaml:"admin"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig database configuration
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// NATSConfig message server configuration
type NATSConfig struct {
	URL           string `yaml:"url"`
	Timeout       int    `yaml:"timeout"`        // seconds
	ReconnectWait int    `yaml:"reconnect_wait"` // seconds
	MaxReconnects int    `yaml:"max_reconnects"`
	StreamName    string `yaml:"stream_name"`
	ConsumerName  string `yaml:"consumer_name"`
}

// SolverConfig solver behavior configuration
type SolverConfig struct {
	// Address identifies this solver in submitted solutions.
	Address string `yaml:"address"`
	// ResidualPolicy is "abort" or "exclude" (default).
	ResidualPolicy string `yaml:"residual_policy"`
	// RemainderPolicy is "route" (default) or "drop".
	RemainderPolicy string `yaml:"remainder_policy"`
	// MaxConcurrentSolves bounds parallel batch-solve attempts.
	MaxConcurrentSolves int `yaml:"max_concurrent_solves"`
}

// VenueConfig external venue routing configuration
type VenueConfig struct {
	// ID labels routed outcomes' execution path.
	ID string `yaml:"id"`
	// BaseURL of the venue's quote/route API.
	BaseURL string `yaml:"base_url"`
	// Timeout in seconds for a single route call.
	Timeout int `yaml:"timeout"`
}

// BlockchainConfig registry submission configuration
type BlockchainConfig struct {
	// Network selects the active entry in Networks.
	Network  string                   `yaml:"network"`
	Networks map[string]NetworkConfig `yaml:"networks"`
}

// NetworkConfig per-network constants, resolved once at startup
type NetworkConfig struct {
	ChainID          int64  `yaml:"chain_id"`
	RPCEndpoint      string `yaml:"rpc_endpoint"`
	RegistryContract string `yaml:"registry_contract"`
	GasLimit         uint64 `yaml:"gas_limit"`
	ConfirmTimeout   int    `yaml:"confirm_timeout"` // seconds
}

// StorageConfig artifact storage configuration
type StorageConfig struct {
	Advisor storage.AdvisorConfig `yaml:"advisor"`
	// RetentionDays for stored solution artifacts; zero keeps forever.
	RetentionDays int `yaml:"retention_days"`
}

// CORSConfig CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowCredentials bool     `yaml:"allow_credentials"`
	MaxAge           int      `yaml:"max_age"`
}

// AdminConfig admin API access control configuration
type AdminConfig struct {
	AllowedIPs []string `yaml:"allowed_ips"`
}

// Load reads the YAML config file and applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides lets deployment environments override the fields
// that routinely differ between installs. Environment wins over YAML.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	if v := os.Getenv("SOLVER_ADDRESS"); v != "" {
		c.Solver.Address = v
	}
	if v := os.Getenv("VENUE_BASE_URL"); v != "" {
		c.Venue.BaseURL = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Solver.ResidualPolicy == "" {
		c.Solver.ResidualPolicy = ResidualPolicyExclude
	}
	if c.Solver.RemainderPolicy == "" {
		c.Solver.RemainderPolicy = RemainderPolicyRoute
	}
	if c.Solver.MaxConcurrentSolves <= 0 {
		c.Solver.MaxConcurrentSolves = 4
	}
	if c.Venue.ID == "" {
		c.Venue.ID = "external"
	}
	if c.Venue.Timeout <= 0 {
		c.Venue.Timeout = 15
	}
	if c.NATS.StreamName == "" {
		c.NATS.StreamName = "SOLVER_EVENTS"
	}
	if c.NATS.ConsumerName == "" {
		c.NATS.ConsumerName = "solver-backend-consumer"
	}
}

func (c *Config) validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Solver.Address == "" {
		return fmt.Errorf("solver.address is required")
	}
	switch c.Solver.ResidualPolicy {
	case ResidualPolicyAbort, ResidualPolicyExclude:
	default:
		return fmt.Errorf("solver.residual_policy must be %q or %q, got %q",
			ResidualPolicyAbort, ResidualPolicyExclude, c.Solver.ResidualPolicy)
	}
	switch c.Solver.RemainderPolicy {
	case RemainderPolicyRoute, RemainderPolicyDrop:
	default:
		return fmt.Errorf("solver.remainder_policy must be %q or %q, got %q",
			RemainderPolicyRoute, RemainderPolicyDrop, c.Solver.RemainderPolicy)
	}
	if c.Blockchain.Network != "" {
		if _, ok := c.Blockchain.Networks[c.Blockchain.Network]; !ok {
			return fmt.Errorf("blockchain.network %q has no entry in blockchain.networks", c.Blockchain.Network)
		}
	}
	return nil
}

// ActiveNetwork returns the selected network configuration, or nil
// when chain submission is not configured.
func (c *Config) ActiveNetwork() *NetworkConfig {
	if c.Blockchain.Network == "" {
		return nil
	}
	network, ok := c.Blockchain.Networks[c.Blockchain.Network]
	if !ok {
		return nil
	}
	return &network
}
