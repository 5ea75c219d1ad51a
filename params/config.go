package params

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type API struct {
	Addr           string
	CORSOrigins    []string
	MaxBodyBytes   int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	ShutdownPeriod time.Duration
}

type Node struct {
	// LedgerPath is the Pebble directory of the uniqueness ledger.
	// Empty keeps the ledger in memory: replays are only rejected until restart.
	LedgerPath string
	LogFile    string
	Verbose    bool
	// DrainInterval and DrainBatch pace handing queued orders to the matcher.
	DrainInterval time.Duration
	DrainBatch    int
}

// Gossip configures publishing drained batches to matcher nodes over libp2p.
// An empty ListenAddr disables it.
type Gossip struct {
	ListenAddr string   // multiaddr, e.g. /ip4/0.0.0.0/tcp/4001
	Bootstrap  []string // full /p2p/ multiaddrs of matcher peers
}

type Config struct {
	API    API
	Node   Node
	Gossip Gossip
}

func Default() Config {
	return Config{
		API: API{
			Addr:           ":8080",
			CORSOrigins:    []string{"http://localhost:3000", "http://localhost:5173"},
			MaxBodyBytes:   16 << 10, // a submission is well under 1KB
			ReadTimeout:    5 * time.Second,
			WriteTimeout:   10 * time.Second,
			ShutdownPeriod: 5 * time.Second,
		},
		Node: Node{
			LedgerPath:    "data/ledger",
			LogFile:       "data/sequencer.log",
			DrainInterval: 100 * time.Millisecond,
			DrainBatch:    256,
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	// Try to load .env file (optional - won't fail if not exists)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	cfg.API.Addr = getEnv("API_ADDR", cfg.API.Addr)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		// Example: "http://localhost:3000,https://app.example"
		cfg.API.CORSOrigins = splitList(origins)
	}
	if n := os.Getenv("MAX_BODY_BYTES"); n != "" {
		if v, err := strconv.ParseInt(n, 10, 64); err == nil && v > 0 {
			cfg.API.MaxBodyBytes = v
		}
	}
	cfg.API.ReadTimeout = getEnvMillis("API_READ_TIMEOUT_MS", cfg.API.ReadTimeout)
	cfg.API.WriteTimeout = getEnvMillis("API_WRITE_TIMEOUT_MS", cfg.API.WriteTimeout)

	if path, ok := os.LookupEnv("LEDGER_PATH"); ok {
		cfg.Node.LedgerPath = path // "" selects the in-memory ledger
	}
	if path, ok := os.LookupEnv("LOG_FILE"); ok {
		cfg.Node.LogFile = path // "" logs to stdout only
	}
	if verbose := os.Getenv("VERBOSE"); verbose != "" {
		cfg.Node.Verbose = verbose == "true"
	}
	cfg.Gossip.ListenAddr = getEnv("P2P_LISTEN", cfg.Gossip.ListenAddr)
	if peers := os.Getenv("P2P_BOOTSTRAP"); peers != "" {
		cfg.Gossip.Bootstrap = splitList(peers)
	}
	cfg.Node.DrainInterval = getEnvMillis("DRAIN_INTERVAL_MS", cfg.Node.DrainInterval)
	if n := os.Getenv("DRAIN_BATCH"); n != "" {
		if v, err := strconv.Atoi(n); err == nil && v > 0 {
			cfg.Node.DrainBatch = v
		}
	}

	return cfg
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvMillis(key string, defaultValue time.Duration) time.Duration {
	if ms := os.Getenv(key); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 {
			return time.Duration(v) * time.Millisecond
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
