package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"spaceship-roguelite/sim"
)

// Config holds host settings. Sources are layered: defaults, then the YAML
// file named by -config, then .env and SRL_* environment variables, then
// explicitly set flags.
type Config struct {
	Addr          string  `yaml:"addr"`
	DBPath        string  `yaml:"db"`
	ClientDir     string  `yaml:"clientDir"`
	JWTSecret     string  `yaml:"jwtSecret"`
	CatalogPath   string  `yaml:"catalog"`
	ArenaSize     float64 `yaml:"arenaSize"`
	HPRegenRate   float64 `yaml:"hpRegenRate"`
	DilemmaOffers int     `yaml:"dilemmaOffers"`
	AllowGodMode  bool    `yaml:"allowGodMode"`

	RepairZoneRate     float64 `yaml:"repairZoneRate"`
	RepairZoneRadius   float64 `yaml:"repairZoneRadius"`
	RepairZoneDuration float64 `yaml:"repairZoneDuration"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	return &Config{
		Addr:          ":8080",
		DBPath:        "roguelite.db",
		ClientDir:     "../client",
		ArenaSize:     200,
		HPRegenRate:   0,
		DilemmaOffers: 3,

		RepairZoneRate:     RepairZoneRate,
		RepairZoneRadius:   RepairZoneRadius,
		RepairZoneDuration: RepairZoneDuration,
	}
}

// LoadConfig builds the config from args (without the program name).
func LoadConfig(args []string) (*Config, error) {
	cfg := DefaultConfig()

	fset := flag.NewFlagSet("roguelite", flag.ContinueOnError)
	configPath := fset.String("config", "", "YAML config file")
	envFile := fset.String("env", ".env", "dotenv file")
	addr := fset.String("addr", cfg.Addr, "HTTP listen address")
	dbPath := fset.String("db", cfg.DBPath, "SQLite database path")
	clientDir := fset.String("client", cfg.ClientDir, "Path to client directory")
	catalog := fset.String("catalog", "", "Progression catalog YAML (default: embedded)")
	god := fset.Bool("god", false, "Allow the debug god-mode action")
	if err := fset.Parse(args); err != nil {
		return nil, err
	}

	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", *configPath, err)
		}
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", *envFile, err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	fset.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			cfg.Addr = *addr
		case "db":
			cfg.DBPath = *dbPath
		case "client":
			cfg.ClientDir = *clientDir
		case "catalog":
			cfg.CatalogPath = *catalog
		case "god":
			cfg.AllowGodMode = *god
		}
	})

	if cfg.ArenaSize <= 0 {
		return nil, fmt.Errorf("arenaSize must be positive, got %v", cfg.ArenaSize)
	}
	if cfg.DilemmaOffers < 1 {
		cfg.DilemmaOffers = 1
	}
	return cfg, nil
}

func (cfg *Config) applyEnv() error {
	str := map[string]*string{
		"SRL_ADDR":       &cfg.Addr,
		"SRL_DB":         &cfg.DBPath,
		"SRL_CLIENT_DIR": &cfg.ClientDir,
		"SRL_JWT_SECRET": &cfg.JWTSecret,
		"SRL_CATALOG":    &cfg.CatalogPath,
	}
	for k, dst := range str {
		if v, ok := os.LookupEnv(k); ok {
			*dst = v
		}
	}
	if v, ok := os.LookupEnv("SRL_ARENA_SIZE"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("SRL_ARENA_SIZE: %w", err)
		}
		cfg.ArenaSize = f
	}
	if v, ok := os.LookupEnv("SRL_ALLOW_GOD"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SRL_ALLOW_GOD: %w", err)
		}
		cfg.AllowGodMode = b
	}
	return nil
}

// LoadCatalog returns the configured catalog, or the embedded one.
func (cfg *Config) LoadCatalog() (*sim.Catalog, error) {
	if cfg.CatalogPath == "" {
		return sim.DefaultCatalog(), nil
	}
	data, err := os.ReadFile(cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return sim.LoadCatalog(data)
}
