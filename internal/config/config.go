package config

// Config 应用级配置
// 包含桥接进程运行所需的所有配置，各模块配置通过组合方式引入
type Config struct {
	// 应用基础配置
	ListenAddr string `yaml:"listen_addr"` // e.g., ":8080"
	DataDir    string `yaml:"data_dir"`    // e.g., "./data"
	LogDir     string `yaml:"log_dir"`     // 为空时只输出到控制台

	// 模块配置
	Kernel  KernelConfig  `yaml:"kernel"`  // 内核连接配置
	History HistoryConfig `yaml:"history"` // 交换历史配置
	Auth    AuthConfig    `yaml:"auth"`    // API 认证配置
}

// KernelConfig 内核连接配置
type KernelConfig struct {
	Endpoint       string `yaml:"endpoint"`        // e.g., "tcp://127.0.0.1:5555"
	TimeoutSeconds int    `yaml:"timeout_seconds"` // 单次交换的超时（秒）
}

// HistoryConfig 交换历史配置
type HistoryConfig struct {
	DBPath                 string `yaml:"db_path"` // e.g., "./data/exchanges.db"
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeSeconds int    `yaml:"conn_max_lifetime_seconds"`
}

// AuthConfig API 认证配置
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"` // 为空时禁用认证
}
