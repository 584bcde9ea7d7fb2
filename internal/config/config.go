package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"tennis-sim/internal/store"
)

type Config struct {
	// Server
	Port       string `mapstructure:"PORT"`
	Env        string `mapstructure:"ENV"`
	CorsOrigin string `mapstructure:"CORS_ORIGIN"`
	DevMode    bool   `mapstructure:"DEV_MODE"`
	// AdminKeyHash is the bcrypt hash of the admin bearer key.
	AdminKeyHash string `mapstructure:"ADMIN_KEY_HASH"`

	// Logging
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Storage
	StoreBackend    string `mapstructure:"STORE_BACKEND"` // "memory", "file", "sql", "firestore"
	DataDir         string `mapstructure:"DATA_DIR"`
	DatabaseURL     string `mapstructure:"DATABASE_URL"`
	GCPProjectID    string `mapstructure:"GCP_PROJECT_ID"`
	FirestoreDB     string `mapstructure:"FIRESTORE_DATABASE"`
	CredentialsFile string `mapstructure:"GOOGLE_APPLICATION_CREDENTIALS"`

	// Simulation defaults
	DrawSize   int     `mapstructure:"DRAW_SIZE"`
	SeedRate   float64 `mapstructure:"SEED_RATE"`
	Iterations int     `mapstructure:"ITERATIONS"`
	Seed       uint64  `mapstructure:"SEED"`
	Workers    int     `mapstructure:"WORKERS"`
}

// Development reports whether the service runs outside production.
func (c *Config) Development() bool {
	return c.Env != "production"
}

var defaults = map[string]any{
	"PORT":                           "8080",
	"ENV":                            "development",
	"CORS_ORIGIN":                    "http://localhost:5173",
	"DEV_MODE":                       false,
	"ADMIN_KEY_HASH":                 "",
	"LOG_LEVEL":                      "info",
	"LOG_FORMAT":                     "",
	"STORE_BACKEND":                  "memory",
	"DATA_DIR":                       "./data",
	"DATABASE_URL":                   "tennis.db",
	"GCP_PROJECT_ID":                 "",
	"FIRESTORE_DATABASE":             "",
	"GOOGLE_APPLICATION_CREDENTIALS": "",
	"DRAW_SIZE":                      32,
	"SEED_RATE":                      0.25,
	"ITERATIONS":                     1000,
	"SEED":                           1,
	"WORKERS":                        4,
}

// flagName maps an environment key to its command line flag, e.g.
// DRAW_SIZE to --draw-size.
func flagName(key string) string {
	return strings.ReplaceAll(strings.ToLower(key), "_", "-")
}

// Load reads the configuration from defaults, an optional .env file, the
// environment and finally any flag of flags that was set explicitly. Flags
// are matched by name (--draw-size for DRAW_SIZE); flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	for key, value := range defaults {
		v.SetDefault(key, value)
		// AutomaticEnv only covers keys viper already knows about.
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
		if flags == nil {
			continue
		}
		if f := flags.Lookup(flagName(key)); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("binding flag --%s: %w", f.Name, err)
			}
		}
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}

// OpenStore opens the backend selected by StoreBackend. The returned close
// function releases its connections.
func (c *Config) OpenStore(ctx context.Context, log logrus.FieldLogger) (store.Store, func() error, error) {
	noop := func() error { return nil }
	switch c.StoreBackend {
	case "", "memory":
		return store.NewMemoryStore(), noop, nil
	case "file":
		fs, err := store.NewFileStore(c.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("initializing file store: %w", err)
		}
		return fs, noop, nil
	case "sql":
		ss, err := store.NewSQLStore(c.DatabaseURL, c.Development(), log)
		if err != nil {
			return nil, nil, fmt.Errorf("initializing sql store: %w", err)
		}
		return ss, ss.Close, nil
	case "firestore":
		if c.GCPProjectID == "" {
			return nil, nil, fmt.Errorf("GCP_PROJECT_ID is required for the firestore backend")
		}
		fs, err := store.NewFirestoreStore(ctx, c.GCPProjectID, c.FirestoreDB, c.CredentialsFile)
		if err != nil {
			return nil, nil, fmt.Errorf("initializing firestore store: %w", err)
		}
		return fs, fs.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", c.StoreBackend)
}
