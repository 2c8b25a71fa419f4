package coordinator

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/holdem-table/internal/engine"
)

// ServerConfig is the complete configuration for one hosted table: the
// listener settings and the table it deals.
type ServerConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Table  TableSettings  `hcl:"table,block"`
}

// ServerSettings contains listener and logging configuration.
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// TableSettings configures the single table this server hosts.
type TableSettings struct {
	Variant       string `hcl:"variant,optional"`
	Seats         int    `hcl:"seats,optional"`
	StartingStack int    `hcl:"starting_stack,optional"`
	SmallBlind    int    `hcl:"small_blind"`
	BigBlind      int    `hcl:"big_blind"`
	MoveTimeMs    int64  `hcl:"move_time_ms,optional"`
}

// DefaultConfig returns the configuration used when no HCL file is given.
func DefaultConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Table: TableSettings{
			Variant:       "NLHE",
			Seats:         6,
			StartingStack: 1000,
			SmallBlind:    5,
			BigBlind:      10,
			MoveTimeMs:    15000,
		},
	}
}

// LoadConfig loads configuration from an HCL file, falling back to
// DefaultConfig if filename is empty or does not exist.
func LoadConfig(filename string) (*ServerConfig, error) {
	if filename == "" {
		return DefaultConfig(), nil
	}
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var cfg ServerConfig
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	defaults := DefaultConfig()
	if cfg.Server.Address == "" {
		cfg.Server.Address = defaults.Server.Address
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = defaults.Server.LogLevel
	}
	if cfg.Table.Variant == "" {
		cfg.Table.Variant = defaults.Table.Variant
	}
	if cfg.Table.Seats == 0 {
		cfg.Table.Seats = defaults.Table.Seats
	}
	if cfg.Table.StartingStack == 0 {
		cfg.Table.StartingStack = defaults.Table.StartingStack
	}
	if cfg.Table.MoveTimeMs == 0 {
		cfg.Table.MoveTimeMs = defaults.Table.MoveTimeMs
	}

	return &cfg, nil
}

// Validate checks the structural invariants a ServerConfig must satisfy.
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Table.SmallBlind <= 0 {
		return fmt.Errorf("small blind must be positive")
	}
	if c.Table.BigBlind < c.Table.SmallBlind {
		return fmt.Errorf("big blind must be at least the small blind")
	}
	if c.Table.Seats < 2 || c.Table.Seats > 10 {
		return fmt.Errorf("seats must be between 2 and 10")
	}
	if c.Table.StartingStack <= 0 {
		return fmt.Errorf("starting stack must be positive")
	}
	if c.Table.MoveTimeMs < 0 {
		return fmt.Errorf("move_time_ms must not be negative")
	}
	return nil
}

// Address returns the listener's host:port.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// TableConfig converts the HCL table settings to the engine's TableConfig.
func (c *ServerConfig) TableConfig() engine.TableConfig {
	return engine.TableConfig{
		Seats:            c.Table.Seats,
		StartingStack:    c.Table.StartingStack,
		SmallBlind:       c.Table.SmallBlind,
		BigBlind:         c.Table.BigBlind,
		DecisionDeadline: time.Duration(c.Table.MoveTimeMs) * time.Millisecond,
		Variant:          c.Table.Variant,
	}
}
