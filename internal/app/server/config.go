package server

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	IdleTimeout time.Duration
	JwtSecret   string

	DrawTurnLimit int
	LeaveGrace    time.Duration
	BotMinDelay   time.Duration
	BotMaxDelay   time.Duration

	SearchInterval time.Duration
	QueueTimeout   time.Duration

	StorageBackend         string
	RedisUrl               string
	AwsRegion              string
	RankUpdateFunctionName string
}

func NewConfig() Config {
	cfg, err := LoadConfig("./configs/server", ".")
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %s", err))
	}
	return cfg
}

// LoadConfig reads config.yaml from the first path that has one, merges
// the env files that exist, and lets the environment override both.
func LoadConfig(paths ...string) (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		return Config{}, err
	}

	envFiles := []string{
		"./configs/aws/base.env",
		"./configs/aws/lambda.env",
		"./configs/server/secrets.env",
	}
	if err := loadEnvFiles(v, envFiles); err != nil {
		return Config{}, err
	}
	v.AutomaticEnv()

	var cfg Config
	var err error
	cfg.Port = v.GetString("Server.Port")
	if cfg.IdleTimeout, err = duration(v, "Server.IdleTimeout"); err != nil {
		return Config{}, err
	}
	cfg.JwtSecret = v.GetString("JWT_SECRET")

	cfg.DrawTurnLimit = v.GetInt("Game.DrawTurnLimit")
	if cfg.LeaveGrace, err = duration(v, "Game.LeaveGrace"); err != nil {
		return Config{}, err
	}
	if cfg.BotMinDelay, err = duration(v, "Bot.MinDelay"); err != nil {
		return Config{}, err
	}
	if cfg.BotMaxDelay, err = duration(v, "Bot.MaxDelay"); err != nil {
		return Config{}, err
	}
	if cfg.SearchInterval, err = duration(v, "Matchmaking.SearchInterval"); err != nil {
		return Config{}, err
	}
	if cfg.QueueTimeout, err = duration(v, "Matchmaking.QueueTimeout"); err != nil {
		return Config{}, err
	}

	cfg.StorageBackend = v.GetString("Storage.Backend")
	if b := v.GetString("STORAGE_BACKEND"); b != "" {
		cfg.StorageBackend = b
	}
	cfg.RedisUrl = v.GetString("REDIS_URL")
	cfg.AwsRegion = v.GetString("AWS_REGION")
	cfg.RankUpdateFunctionName = v.GetString("RANK_UPDATE_FUNCTION_NAME")
	return cfg, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func loadEnvFiles(v *viper.Viper, filenames []string) error {
	for _, file := range filenames {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		v.SetConfigFile(file)
		v.SetConfigType("env")
		if err := v.MergeInConfig(); err != nil {
			return err
		}
	}
	return nil
}
