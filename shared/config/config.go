package config

import (
	"fmt"
	"os"
	"path"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Public  Public
	Private Private
}

type Public struct {
	Server     Server        `yaml:"server"`
	Storage    Storage       `yaml:"storage"`
	Upload     Upload        `yaml:"upload"`
	Sync       Sync          `yaml:"sync"`
	GC         GC            `yaml:"gc"`
	Log        Log           `yaml:"log"`
	JwtTTL     time.Duration `yaml:"jwt_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
}

type Server struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

type Storage struct {
	// Driver selects the catalog/ledger backend: "pg" or "memory".
	Driver       string `yaml:"driver"`
	ContentDir   string `yaml:"content_dir"`
	ThumbnailDir string `yaml:"thumbnail_dir"`
}

type Upload struct {
	MaxFileSizeBytes int64 `yaml:"max_file_size_bytes"`
}

type Sync struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

type GC struct {
	Interval        time.Duration `yaml:"interval"`
	SafetyThreshold time.Duration `yaml:"safety_threshold"`
}

type Log struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type Pg struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Dbname   string `yaml:"dbname"`
}

type Private struct {
	Pg         Pg     `yaml:"pg"`
	JwtKey     string `yaml:"jwt_key"`
	RefreshKey string `yaml:"refresh_key"`
	BcryptCost int    `yaml:"bcrypt_cost"`
}

func (c *Config) JwtKey() string {
	return c.Private.JwtKey
}

func (c *Config) RefreshKey() string {
	return c.Private.RefreshKey
}

func (c *Config) JwtTTL() time.Duration {
	return c.Public.JwtTTL
}

func (c *Config) RefreshTTL() time.Duration {
	return c.Public.RefreshTTL
}

func mustLoadPath(configPath string, output interface{}) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		panic("can't read config file")
	}

	err = yaml.Unmarshal(configFile, output)
	if err != nil {
		panic("can't unmarshal config file")
	}
}

func MustLoad(configFolder string) *Config {
	var public Public
	mustLoadPath(path.Join(configFolder, "public.yaml"), &public)

	var private Private
	mustLoadPath(path.Join(configFolder, "private.yaml"), &private)

	cfg := &Config{public, private}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		panic(err.Error())
	}
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Public.Server.Port == 0 {
		c.Public.Server.Port = 8000
	}
	if c.Public.Upload.MaxFileSizeBytes == 0 {
		c.Public.Upload.MaxFileSizeBytes = 100 << 20
	}
	if c.Public.Sync.DefaultLimit == 0 {
		c.Public.Sync.DefaultLimit = 100
	}
	if c.Public.Sync.MaxLimit == 0 {
		c.Public.Sync.MaxLimit = 1000
	}
	if c.Public.GC.Interval == 0 {
		c.Public.GC.Interval = time.Hour
	}
	if c.Public.GC.SafetyThreshold == 0 {
		c.Public.GC.SafetyThreshold = 30 * time.Minute
	}
	if c.Public.Log.Level == "" {
		c.Public.Log.Level = "info"
	}
	if c.Private.BcryptCost == 0 {
		c.Private.BcryptCost = 10
	}
}

func (c *Config) validate() error {
	if c.Public.Storage.ContentDir == "" {
		return fmt.Errorf("storage.content_dir is required")
	}
	if d := c.Public.Storage.Driver; d != "pg" && d != "memory" {
		return fmt.Errorf("storage.driver must be \"pg\" or \"memory\", got %q", d)
	}
	if c.Private.JwtKey == "" || c.Private.RefreshKey == "" {
		return fmt.Errorf("jwt_key and refresh_key are required")
	}
	if c.Public.Sync.DefaultLimit > c.Public.Sync.MaxLimit {
		return fmt.Errorf("sync.default_limit exceeds sync.max_limit")
	}
	return nil
}
