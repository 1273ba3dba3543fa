package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// LoadConfig 从文件加载配置并应用默认值
func LoadConfig(file string) (*Config, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	ApplyDefaults(cfg)

	return cfg, nil
}

// ApplyDefaults 为配置项设置默认值
func ApplyDefaults(cfg *Config) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}

	if cfg.Kernel.Endpoint == "" {
		cfg.Kernel.Endpoint = "tcp://127.0.0.1:5555"
	}
	if cfg.Kernel.TimeoutSeconds == 0 {
		cfg.Kernel.TimeoutSeconds = 30
	}

	if cfg.History.DBPath == "" {
		cfg.History.DBPath = cfg.DataDir + "/exchanges.db"
	}
	if cfg.History.MaxOpenConns == 0 {
		cfg.History.MaxOpenConns = 10
	}
	if cfg.History.MaxIdleConns == 0 {
		cfg.History.MaxIdleConns = 5
	}
	if cfg.History.ConnMaxLifetimeSeconds == 0 {
		cfg.History.ConnMaxLifetimeSeconds = 300 // 5 minutes
	}
}
