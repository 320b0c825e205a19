package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr string `yaml:"listen_addr"`

	DataDir          string `yaml:"data_dir"`
	RecruitmentCSV   string `yaml:"recruitment_csv"`
	CompetitorsCSV   string `yaml:"competitors_csv"`
	CommunesCSV      string `yaml:"communes_csv"`
	ComplicationsCSV string `yaml:"complications_csv"`
	GeoJSONPath      string `yaml:"geojson_path"`

	CacheDBPath  string `yaml:"cache_db_path"`
	CacheVersion string `yaml:"cache_version"`

	RefreshSchedule string `yaml:"refresh_schedule"`

	TopCompetitors int    `yaml:"top_competitors"`
	AllocationMode string `yaml:"allocation_mode"`
	// Explicit interval order for complication quarter labels. Labels like
	// "2024T1" sort fine lexicographically, but mixed formats do not, so
	// deployments with such data must set this.
	TimeOrder []string `yaml:"time_order"`

	AssistantEnabled bool   `yaml:"assistant_enabled"`
	AssistantModel   string `yaml:"assistant_model"`
	AnthropicAPIKey  string `yaml:"anthropic_api_key"`
}

func LoadConfig() Config {
	var cfg Config

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	envOverride(&cfg.ListenAddr, "LISTEN_ADDR")
	envOverride(&cfg.DataDir, "DATA_DIR")
	envOverride(&cfg.RecruitmentCSV, "RECRUITMENT_CSV")
	envOverride(&cfg.CompetitorsCSV, "COMPETITORS_CSV")
	envOverride(&cfg.CommunesCSV, "COMMUNES_CSV")
	envOverride(&cfg.ComplicationsCSV, "COMPLICATIONS_CSV")
	envOverride(&cfg.GeoJSONPath, "GEOJSON_PATH")
	envOverride(&cfg.CacheDBPath, "CACHE_DB_PATH")
	envOverride(&cfg.CacheVersion, "CACHE_VERSION")
	envOverride(&cfg.RefreshSchedule, "REFRESH_SCHEDULE")
	envOverrideInt(&cfg.TopCompetitors, "TOP_COMPETITORS")
	envOverride(&cfg.AllocationMode, "ALLOCATION_MODE")
	envOverrideBool(&cfg.AssistantEnabled, "ASSISTANT_ENABLED")
	envOverride(&cfg.AssistantModel, "ASSISTANT_MODEL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	if order := os.Getenv("TIME_ORDER"); order != "" {
		cfg.TimeOrder = nil
		for _, l := range strings.Split(order, ",") {
			l = strings.TrimSpace(l)
			if l != "" {
				cfg.TimeOrder = append(cfg.TimeOrder, l)
			}
		}
	}

	applyDefaults(&cfg)

	if cfg.AllocationMode != "even_split" && cfg.AllocationMode != "no_split" {
		log.Fatalf("Invalid allocation_mode %q: want even_split or no_split", cfg.AllocationMode)
	}

	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}
	if cfg.RecruitmentCSV == "" {
		cfg.RecruitmentCSV = filepath.Join(cfg.DataDir, "recruitment.csv")
	}
	if cfg.CompetitorsCSV == "" {
		cfg.CompetitorsCSV = filepath.Join(cfg.DataDir, "competitors.csv")
	}
	if cfg.CommunesCSV == "" {
		cfg.CommunesCSV = filepath.Join(cfg.DataDir, "communes.csv")
	}
	if cfg.ComplicationsCSV == "" {
		cfg.ComplicationsCSV = filepath.Join(cfg.DataDir, "complications.csv")
	}
	if cfg.GeoJSONPath == "" {
		cfg.GeoJSONPath = filepath.Join(cfg.DataDir, "communes.geojson")
	}
	if cfg.CacheDBPath == "" {
		cfg.CacheDBPath = "./navira-cache.db"
	}
	if cfg.CacheVersion == "" {
		cfg.CacheVersion = "v1"
	}
	if cfg.TopCompetitors <= 0 {
		cfg.TopCompetitors = 5
	}
	if cfg.AllocationMode == "" {
		cfg.AllocationMode = "even_split"
	}
	if cfg.AssistantModel == "" {
		cfg.AssistantModel = "claude-sonnet-4-5-20250929"
	}
}

func envOverride(field *string, key string) {
	if v := os.Getenv(key); v != "" {
		*field = v
	}
}

func envOverrideInt(field *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*field = n
		} else {
			log.Printf("Ignoring invalid %s=%q: %v", key, v, err)
		}
	}
}

func envOverrideBool(field *bool, key string) {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "on":
			*field = true
		case "0", "false", "no", "off":
			*field = false
		default:
			log.Printf("Ignoring invalid %s=%q", key, v)
		}
	}
}
