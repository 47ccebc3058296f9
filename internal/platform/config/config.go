package config

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid config")

const (
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
	StorageBolt     = "bolt"
	StorageMemory   = "memory"
)

type Config struct {
	Server   ServerConfig   `toml:"server" yaml:"server"`
	Storage  StorageConfig  `toml:"storage" yaml:"storage"`
	Redis    RedisConfig    `toml:"redis" yaml:"redis"`
	Market   MarketConfig   `toml:"market" yaml:"market"`
	Payments PaymentsConfig `toml:"payments" yaml:"payments"`
	Chain    ChainConfig    `toml:"chain" yaml:"chain"`
	Oracle   OracleConfig   `toml:"oracle" yaml:"oracle"`
	Monitor  MonitorConfig  `toml:"monitor" yaml:"monitor"`
}

type ServerConfig struct {
	Listen          string        `toml:"listen" yaml:"listen"`
	AllowedOrigin   string        `toml:"allowed_origin" yaml:"allowed_origin"`
	RequestTimeout  time.Duration `toml:"request_timeout" yaml:"request_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type StorageConfig struct {
	Driver   string `toml:"driver" yaml:"driver"`
	Path     string `toml:"path" yaml:"path"`
	Host     string `toml:"host" yaml:"host"`
	Port     string `toml:"port" yaml:"port"`
	User     string `toml:"user" yaml:"user"`
	Password string `toml:"password" yaml:"password"`
	Name     string `toml:"name" yaml:"name"`
	SSLMode  string `toml:"sslmode" yaml:"sslmode"`
}

type RedisConfig struct {
	Enabled bool          `toml:"enabled" yaml:"enabled"`
	Host    string        `toml:"host" yaml:"host"`
	Port    string        `toml:"port" yaml:"port"`
	DB      int           `toml:"db" yaml:"db"`
	Key     string        `toml:"key" yaml:"key"`
	TTL     time.Duration `toml:"ttl" yaml:"ttl"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// Prices are kept as decimal strings so neither file format rounds them
// through float64.
type MarketConfig struct {
	SeedArea      int    `toml:"seed_area" yaml:"seed_area"`
	SeedFirstPlot int    `toml:"seed_first_plot" yaml:"seed_first_plot"`
	PlotsPerArea  int    `toml:"plots_per_area" yaml:"plots_per_area"`
	SeedPrice     string `toml:"seed_price" yaml:"seed_price"`
	PriceStep     string `toml:"price_step" yaml:"price_step"`
}

type PaymentsConfig struct {
	RequireConfirmation bool   `toml:"require_confirmation" yaml:"require_confirmation"`
	ValidateAddresses   bool   `toml:"validate_addresses" yaml:"validate_addresses"`
	TokenUSD            string `toml:"token_usd" yaml:"token_usd"`
	FallbackSOLUSD      string `toml:"fallback_sol_usd" yaml:"fallback_sol_usd"`
}

type ChainConfig struct {
	RPCURL            string        `toml:"rpc_url" yaml:"rpc_url"`
	Commitment        string        `toml:"commitment" yaml:"commitment"`
	Timeout           time.Duration `toml:"timeout" yaml:"timeout"`
	RequestsPerSecond float64       `toml:"requests_per_second" yaml:"requests_per_second"`
	AllowAirdrop      bool          `toml:"allow_airdrop" yaml:"allow_airdrop"`
	AirdropAmount     string        `toml:"airdrop_amount" yaml:"airdrop_amount"`
}

type OracleConfig struct {
	Enabled  bool          `toml:"enabled" yaml:"enabled"`
	BaseURL  string        `toml:"base_url" yaml:"base_url"`
	CacheTTL time.Duration `toml:"cache_ttl" yaml:"cache_ttl"`
}

type MonitorConfig struct {
	Enabled   bool          `toml:"enabled" yaml:"enabled"`
	Treasury  string        `toml:"treasury" yaml:"treasury"`
	TokenMint string        `toml:"token_mint" yaml:"token_mint"`
	Interval  time.Duration `toml:"interval" yaml:"interval"`
	BatchSize int           `toml:"batch_size" yaml:"batch_size"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Listen:          ":8080",
			AllowedOrigin:   "*",
			RequestTimeout:  15 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Storage: StorageConfig{
			Driver:  StorageSQLite,
			Path:    "data/land.sqlite",
			Host:    "localhost",
			Port:    "5432",
			User:    "postgres",
			Name:    "land_marketplace",
			SSLMode: "disable",
		},
		Redis: RedisConfig{
			Host: "localhost",
			Port: "6379",
			Key:  "land:view",
			TTL:  30 * time.Second,
		},
		Market: MarketConfig{
			SeedArea:      8,
			SeedFirstPlot: 2,
			PlotsPerArea:  10,
			SeedPrice:     "0.8",
			PriceStep:     "0.1",
		},
		Payments: PaymentsConfig{
			RequireConfirmation: true,
			ValidateAddresses:   true,
			TokenUSD:            "0.001",
			FallbackSOLUSD:      "200",
		},
		Chain: ChainConfig{
			RPCURL:            "https://api.devnet.solana.com",
			Commitment:        "confirmed",
			Timeout:           10 * time.Second,
			RequestsPerSecond: 4,
			AirdropAmount:     "1",
		},
		Oracle: OracleConfig{
			Enabled:  true,
			BaseURL:  "https://api.coingecko.com/api/v3",
			CacheTTL: time.Minute,
		},
		Monitor: MonitorConfig{
			Interval:  10 * time.Second,
			BatchSize: 10,
		},
	}
}

// Load builds the configuration from defaults, the optional config file,
// the optional dotenv file and finally the process environment.
func Load(path, dotEnv string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return cfg, err
		}
	}

	if dotEnv != "" {
		LoadDotEnv(dotEnv)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(raw), cfg); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	default:
		return fmt.Errorf("%w: unsupported config format %q", ErrInvalid, filepath.Ext(path))
	}

	return nil
}

// LoadDotEnv exports KEY=VALUE lines from path into the environment.
// Variables already set in the environment win.
func LoadDotEnv(path string) {
	file, err := os.Open(path)
	if err != nil {
		log.Printf("No %s file found, using OS environment.", path)
		return
	}

	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if _, exists := os.LookupEnv(key); exists {
			continue
		}

		os.Setenv(key, value)
	}

	if err := scanner.Err(); err != nil {
		log.Printf("Failed to read %s: %v", path, err)
	}
}

func applyEnv(cfg *Config) {
	set := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	set("DB_HOST", &cfg.Storage.Host)
	set("DB_PORT", &cfg.Storage.Port)
	set("DB_USER", &cfg.Storage.User)
	set("DB_PASSWORD", &cfg.Storage.Password)
	set("DB_NAME", &cfg.Storage.Name)
	set("LAND_STORAGE", &cfg.Storage.Driver)
	set("LAND_STORAGE_PATH", &cfg.Storage.Path)
	set("LAND_LISTEN", &cfg.Server.Listen)
	set("SOLANA_RPC_URL", &cfg.Chain.RPCURL)
	set("LAND_TOKEN_MINT", &cfg.Monitor.TokenMint)

	if v := os.Getenv("REDIS_HOST"); v != "" {
		cfg.Redis.Host = v
		cfg.Redis.Enabled = true
	}
	set("REDIS_PORT", &cfg.Redis.Port)

	if v := os.Getenv("LAND_TREASURY"); v != "" {
		cfg.Monitor.Treasury = v
		cfg.Monitor.Enabled = true
	}

	if v := os.Getenv("LAND_ALLOW_AIRDROP"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Chain.AllowAirdrop = b
		}
	}
}

func (c Config) Validate() error {
	switch c.Storage.Driver {
	case StoragePostgres, StorageMemory:
	case StorageSQLite, StorageBolt:
		if c.Storage.Path == "" {
			return fmt.Errorf("%w: storage.path is required for %s", ErrInvalid, c.Storage.Driver)
		}
	default:
		return fmt.Errorf("%w: unknown storage driver %q", ErrInvalid, c.Storage.Driver)
	}

	if c.Market.SeedArea < 1 || c.Market.PlotsPerArea < 1 {
		return fmt.Errorf("%w: market.seed_area and market.plots_per_area must be positive", ErrInvalid)
	}
	if c.Market.SeedFirstPlot < 1 || c.Market.SeedFirstPlot > c.Market.PlotsPerArea {
		return fmt.Errorf("%w: market.seed_first_plot must be within 1..%d", ErrInvalid, c.Market.PlotsPerArea)
	}

	decimals := map[string]string{
		"market.seed_price":         c.Market.SeedPrice,
		"market.price_step":         c.Market.PriceStep,
		"payments.token_usd":        c.Payments.TokenUSD,
		"payments.fallback_sol_usd": c.Payments.FallbackSOLUSD,
		"chain.airdrop_amount":      c.Chain.AirdropAmount,
	}
	for name, v := range decimals {
		d, err := decimal.NewFromString(v)
		if err != nil || d.IsNegative() {
			return fmt.Errorf("%w: %s must be a non-negative decimal, got %q", ErrInvalid, name, v)
		}
	}

	if c.Monitor.Enabled {
		if c.Monitor.Treasury == "" {
			return fmt.Errorf("%w: monitor.treasury is required when the monitor is enabled", ErrInvalid)
		}
		if c.Monitor.Interval <= 0 || c.Monitor.BatchSize < 1 {
			return fmt.Errorf("%w: monitor.interval and monitor.batch_size must be positive", ErrInvalid)
		}
	}

	if (c.Payments.RequireConfirmation || c.Monitor.Enabled) && c.Chain.RPCURL == "" {
		return fmt.Errorf("%w: chain.rpc_url is required", ErrInvalid)
	}

	return nil
}

// Decimal parses one of the validated decimal settings.
func Decimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
