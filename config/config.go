package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"tuition-server-go/models"
)

const envPrefix = "TUITION"

// Config is the resolved runtime configuration.
type Config struct {
	ServerAddr      string
	GinMode         string
	StoreDriver     string
	StorePath       string
	StoreKey        string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	DefaultEndpoint string
	RemoteTimeout   time.Duration
	DefaultPresent  bool
	MasterPassword  string
	AllowOrigins    []string
}

// New returns a viper instance with defaults, env binding and an optional config file.
// A .env file in the working directory is loaded first when present.
func New(configFile string) (*viper.Viper, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("loading .env: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat .env: %w", err)
	}

	v := viper.New()
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("gin.mode", "debug")
	v.SetDefault("store.driver", "file")
	v.SetDefault("store.path", "data/tuition.json")
	v.SetDefault("store.key", "quan_ly_hoc_them_data")
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("remote.defaultEndpoint", models.DefaultSheetLink)
	v.SetDefault("remote.timeout", 30*time.Second)
	v.SetDefault("attendance.defaultPresent", true)
	v.SetDefault("auth.masterPassword", "123456")
	v.SetDefault("cors.allowOrigins", []string{"*"})

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", configFile, err)
		}
		log.Printf("Using config file %s", v.ConfigFileUsed())
	}
	return v, nil
}

// Resolve reads the typed configuration out of v.
func Resolve(v *viper.Viper) (Config, error) {
	cfg := Config{
		ServerAddr:      v.GetString("server.addr"),
		GinMode:         v.GetString("gin.mode"),
		StoreDriver:     strings.ToLower(v.GetString("store.driver")),
		StorePath:       v.GetString("store.path"),
		StoreKey:        v.GetString("store.key"),
		RedisAddr:       v.GetString("redis.addr"),
		RedisPassword:   v.GetString("redis.password"),
		RedisDB:         v.GetInt("redis.db"),
		DefaultEndpoint: v.GetString("remote.defaultEndpoint"),
		RemoteTimeout:   v.GetDuration("remote.timeout"),
		DefaultPresent:  v.GetBool("attendance.defaultPresent"),
		MasterPassword:  v.GetString("auth.masterPassword"),
		AllowOrigins:    v.GetStringSlice("cors.allowOrigins"),
	}
	switch cfg.StoreDriver {
	case "file", "redis", "memory":
	default:
		return Config{}, fmt.Errorf("unknown store.driver %q (want file, redis or memory)", cfg.StoreDriver)
	}
	if cfg.RemoteTimeout < 0 {
		return Config{}, fmt.Errorf("remote.timeout must not be negative")
	}
	return cfg, nil
}

// Load is New followed by Resolve.
func Load(configFile string) (Config, error) {
	v, err := New(configFile)
	if err != nil {
		return Config{}, err
	}
	return Resolve(v)
}
