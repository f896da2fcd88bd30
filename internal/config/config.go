package config

import (
	"os"
	"strconv"
	"time"
)

// Config AyushSetu 术语服务配置（全部来自环境变量）
type Config struct {
	HTTP struct {
		Addr string
	}

	// WHO 标准术语 JSON 目录，以及 serve 时加载的各体系术语文件
	WHOJSONFolder string
	WHOCatalogs   map[string]string

	// NAMASTE 编码表（xlsx/csv）目录
	NAMASTEFolder string

	IngestWorkers int

	DBEnabled bool
	Database  DatabaseConfig
	Redis     struct {
		Enabled  bool
		Addr     string
		Password string
		DB       int
	}
	SearchCacheTTL time.Duration

	ICD ICDConfig

	Log struct {
		Level  string
		Format string
	}
}

// ICDConfig ICD-11 API（WHO）
type ICDConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	SearchURL    string
	Timeout      time.Duration
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8090")

	cfg.WHOJSONFolder = getEnv("WHO_TERMINOLOGIES_JSON_FOLDER", "./data/who_terminologies/json")
	cfg.WHOCatalogs = map[string]string{
		"ayurveda": getEnv("WHO_AYURVEDA_JSON", "./data/who_terminologies/json/ayurveda_terms.json"),
		"siddha":   getEnv("WHO_SIDDHA_JSON", "./data/who_terminologies/json/siddha_terms.json"),
		"unani":    getEnv("WHO_UNANI_JSON", "./data/who_terminologies/json/unani_terms.json"),
	}
	cfg.NAMASTEFolder = getEnv("NAMASTE_CODES_FOLDER", "./data/namaste_codes")
	cfg.IngestWorkers = parseInt(getEnv("INGEST_WORKERS", "4"), 4)

	// Default to false: without a database the CLI ingests into memory and prints the tables.
	cfg.DBEnabled = getEnv("DB_ENABLED", "false") == "true"
	cfg.Database.Host = "localhost"
	cfg.Database.Port = 5432
	cfg.Database.User = "postgres"
	cfg.Database.Password = "postgres"
	cfg.Database.Database = "ayushsetu"
	cfg.Database.SSLMode = "disable"
	cfg.Database.LoadFromEnv("DB")

	cfg.Redis.Enabled = getEnv("REDIS_ENABLED", "false") == "true"
	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = parseInt(getEnv("REDIS_DB", "0"), 0)
	cfg.SearchCacheTTL = time.Duration(parseInt(getEnv("SEARCH_CACHE_TTL_SECONDS", "300"), 300)) * time.Second

	cfg.ICD.ClientID = getEnv("ICD_API_CLIENT_ID", "")
	cfg.ICD.ClientSecret = getEnv("ICD_API_CLIENT_SECRET", "")
	cfg.ICD.TokenURL = getEnv("ICD_TOKEN_URL", "https://icdaccessmanagement.who.int/connect/token")
	cfg.ICD.SearchURL = getEnv("ICD_SEARCH_URL", "https://id.who.int/icd/release/11/2024-01/mms/search")
	cfg.ICD.Timeout = time.Duration(parseInt(getEnv("ICD_TIMEOUT_SECONDS", "30"), 30)) * time.Second

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg
}

// MissingPaths 检查启动所需的目录和文件，返回不存在的路径
func (c *Config) MissingPaths() []string {
	required := []string{c.WHOJSONFolder, c.NAMASTEFolder}
	for _, system := range []string{"ayurveda", "siddha", "unani"} {
		if p := c.WHOCatalogs[system]; p != "" {
			required = append(required, p)
		}
	}

	var missing []string
	for _, p := range required {
		if _, err := os.Stat(p); err != nil {
			missing = append(missing, p)
		}
	}
	return missing
}

// ICDEnabled reports whether ICD-11 credentials are configured.
func (c *Config) ICDEnabled() bool {
	return c.ICD.ClientID != "" && c.ICD.ClientSecret != ""
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}
