package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/monreader/extension/internal/layout"
	"github.com/monreader/extension/internal/util"
)

// FileName is the config file looked up in the config directory.
const FileName = "monreader.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds the in-memory SQLite backend settings.
type SQLiteConfig struct {
	OutputDir    string        `json:"outputDir" mapstructure:"outputDir"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// DBConfig holds Postgres connection settings.
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// DSN renders the libpq connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		c.Host, c.Port, c.Username, c.Password, c.Database)
}

// WebSocketConfig holds the relay backend settings.
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// InfluxConfig holds InfluxDB settings.
type InfluxConfig struct {
	Enabled    bool   `json:"enabled" mapstructure:"enabled"`
	Host       string `json:"host" mapstructure:"host"`
	Port       string `json:"port" mapstructure:"port"`
	Protocol   string `json:"protocol" mapstructure:"protocol"`
	Token      string `json:"token" mapstructure:"token"`
	Org        string `json:"org" mapstructure:"org"`
	Bucket     string `json:"bucket" mapstructure:"bucket"`
	BackupPath string `json:"backupPath" mapstructure:"backupPath"`
}

// URL returns the server URL.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// StorageConfig selects and configures the storage backends. Type is a
// comma separated list; more than one entry fans out to all of them.
type StorageConfig struct {
	Type          string          `json:"type" mapstructure:"type"`
	FlushInterval time.Duration   `json:"flushInterval" mapstructure:"flushInterval"`
	Memory        MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite        SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	DB            DBConfig        `json:"db" mapstructure:"db"`
	WebSocket     WebSocketConfig `json:"websocket" mapstructure:"websocket"`
	Influx        InfluxConfig    `json:"influx" mapstructure:"influx"`
}

// Types splits Type into backend names.
func (c StorageConfig) Types() []string {
	var out []string
	for _, t := range strings.Split(c.Type, ",") {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled        bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName    string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout   time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	MetricInterval time.Duration `json:"metricInterval" mapstructure:"metricInterval"`
	Endpoint       string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure       bool          `json:"insecure" mapstructure:"insecure"`
}

// GraylogConfig holds the GELF sink settings.
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// UploadConfig points at the recording server exports are sent to.
type UploadConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	ServerURL string `json:"serverUrl" mapstructure:"serverUrl"`
	APIKey    string `json:"apiKey" mapstructure:"apiKey"`
}

// Source kinds.
const (
	SourceRetroArch = "retroarch"
	SourceImage     = "image"
)

// SourceConfig selects where memory is read from.
type SourceConfig struct {
	Kind        string        `json:"kind" mapstructure:"kind"`
	Address     string        `json:"address" mapstructure:"address"`
	Timeout     time.Duration `json:"timeout" mapstructure:"timeout"`
	RateLimit   float64       `json:"rateLimit" mapstructure:"rateLimit"`
	Burst       int           `json:"burst" mapstructure:"burst"`
	EWRAMWindow uint32        `json:"ewramWindow" mapstructure:"ewramWindow"`
	IWRAM       string        `json:"iwram" mapstructure:"iwram"`
	EWRAM       string        `json:"ewram" mapstructure:"ewram"`
	ROM         string        `json:"rom" mapstructure:"rom"`
}

// ScheduleConfig sets the tracker cadence in frames.
type ScheduleConfig struct {
	Update      uint64 `json:"update" mapstructure:"update"`
	FullUpdate  uint64 `json:"fullUpdate" mapstructure:"fullUpdate"`
	BattleCheck uint64 `json:"battleCheck" mapstructure:"battleCheck"`
	Boxes       bool   `json:"boxes" mapstructure:"boxes"`
	PointerTTL  uint64 `json:"pointerTtl" mapstructure:"pointerTtl"`
	Strict      bool   `json:"strict" mapstructure:"strict"`
	Rate        bool   `json:"rate" mapstructure:"rate"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// SetDefaults registers every default. Load calls it; binaries that run
// without a config file call it directly.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")
	viper.SetDefault("logsKeep", 10)

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("source.kind", SourceRetroArch)
	viper.SetDefault("source.address", "127.0.0.1:55355")
	viper.SetDefault("source.timeout", "100ms")
	viper.SetDefault("source.rateLimit", 0)
	viper.SetDefault("source.burst", 1)
	viper.SetDefault("source.ewramWindow", 0x8000)
	viper.SetDefault("source.iwram", "")
	viper.SetDefault("source.ewram", "")
	viper.SetDefault("source.rom", "")

	viper.SetDefault("schedule.update", 30)
	viper.SetDefault("schedule.fullUpdate", 300)
	viper.SetDefault("schedule.battleCheck", 10)
	viper.SetDefault("schedule.boxes", true)
	viper.SetDefault("schedule.pointerTtl", 300)
	viper.SetDefault("schedule.strict", false)
	viper.SetDefault("schedule.rate", true)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.flushInterval", "2s")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.outputDir", "./recordings")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")

	viper.SetDefault("storage.db.host", "localhost")
	viper.SetDefault("storage.db.port", "5432")
	viper.SetDefault("storage.db.username", "postgres")
	viper.SetDefault("storage.db.password", "postgres")
	viper.SetDefault("storage.db.database", "monreader")

	viper.SetDefault("storage.websocket.url", "ws://localhost:5000/api/v1/stream")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("storage.influx.enabled", true)
	viper.SetDefault("storage.influx.host", "localhost")
	viper.SetDefault("storage.influx.port", "8086")
	viper.SetDefault("storage.influx.protocol", "http")
	viper.SetDefault("storage.influx.token", "supersecrettoken")
	viper.SetDefault("storage.influx.org", "monreader")
	viper.SetDefault("storage.influx.bucket", "party_data")
	viper.SetDefault("storage.influx.backupPath", "./recordings/influx_backup.log.gzip")

	viper.SetDefault("upload.enabled", false)
	viper.SetDefault("upload.serverUrl", "http://localhost:5000")
	viper.SetDefault("upload.apiKey", "")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "monreader")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.metricInterval", "30s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetStorageConfig returns the storage section.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type:          viper.GetString("storage.type"),
		FlushInterval: viper.GetDuration("storage.flushInterval"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			OutputDir:    viper.GetString("storage.sqlite.outputDir"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		DB: DBConfig{
			Host:     viper.GetString("storage.db.host"),
			Port:     viper.GetString("storage.db.port"),
			Username: viper.GetString("storage.db.username"),
			Password: viper.GetString("storage.db.password"),
			Database: viper.GetString("storage.db.database"),
		},
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
		Influx: InfluxConfig{
			Enabled:    viper.GetBool("storage.influx.enabled"),
			Host:       viper.GetString("storage.influx.host"),
			Port:       viper.GetString("storage.influx.port"),
			Protocol:   viper.GetString("storage.influx.protocol"),
			Token:      viper.GetString("storage.influx.token"),
			Org:        viper.GetString("storage.influx.org"),
			Bucket:     viper.GetString("storage.influx.bucket"),
			BackupPath: viper.GetString("storage.influx.backupPath"),
		},
	}
}

// GetOTelConfig returns the otel section.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:        viper.GetBool("otel.enabled"),
		ServiceName:    viper.GetString("otel.serviceName"),
		BatchTimeout:   viper.GetDuration("otel.batchTimeout"),
		MetricInterval: viper.GetDuration("otel.metricInterval"),
		Endpoint:       viper.GetString("otel.endpoint"),
		Insecure:       viper.GetBool("otel.insecure"),
	}
}

// GetGraylogConfig returns the graylog section.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetUploadConfig returns the upload section.
func GetUploadConfig() UploadConfig {
	return UploadConfig{
		Enabled:   viper.GetBool("upload.enabled"),
		ServerURL: viper.GetString("upload.serverUrl"),
		APIKey:    viper.GetString("upload.apiKey"),
	}
}

// GetSourceConfig returns the source section.
func GetSourceConfig() SourceConfig {
	return SourceConfig{
		Kind:        strings.ToLower(viper.GetString("source.kind")),
		Address:     viper.GetString("source.address"),
		Timeout:     viper.GetDuration("source.timeout"),
		RateLimit:   viper.GetFloat64("source.rateLimit"),
		Burst:       viper.GetInt("source.burst"),
		EWRAMWindow: viper.GetUint32("source.ewramWindow"),
		IWRAM:       viper.GetString("source.iwram"),
		EWRAM:       viper.GetString("source.ewram"),
		ROM:         viper.GetString("source.rom"),
	}
}

// GetScheduleConfig returns the schedule section.
func GetScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		Update:      viper.GetUint64("schedule.update"),
		FullUpdate:  viper.GetUint64("schedule.fullUpdate"),
		BattleCheck: viper.GetUint64("schedule.battleCheck"),
		Boxes:       viper.GetBool("schedule.boxes"),
		PointerTTL:  viper.GetUint64("schedule.pointerTtl"),
		Strict:      viper.GetBool("schedule.strict"),
		Rate:        viper.GetBool("schedule.rate"),
	}
}

// GetAddressOverrides parses the addresses section, a map of table keys to
// address strings. Viper lowercases keys, so they are matched against the
// table's key names case-insensitively. Missing section yields an empty map.
func GetAddressOverrides() (map[string]uint32, error) {
	canon := make(map[string]string)
	for _, k := range layout.Keys() {
		canon[strings.ToLower(k)] = k
	}

	raw := viper.GetStringMapString("addresses")
	out := make(map[string]uint32, len(raw))
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		name, ok := canon[strings.ToLower(k)]
		if !ok {
			return nil, fmt.Errorf("addresses.%s: unknown address key", k)
		}
		addr, err := util.ParseAddress(raw[k])
		if err != nil {
			return nil, fmt.Errorf("addresses.%s: %w", k, err)
		}
		out[name] = addr
	}
	return out, nil
}
