// Package config 定义服务配置（YAML）。
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config 是 recserve 的服务配置。
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Artifact  ArtifactConfig  `yaml:"artifact"`
	Recommend RecommendConfig `yaml:"recommend"`
	Profile   ProfileConfig   `yaml:"profile"`
	Cache     CacheConfig     `yaml:"cache"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig 是 HTTP 服务配置。
type ServerConfig struct {
	Addr string `yaml:"addr"` // 监听地址，默认 ":8000"
}

// ArtifactConfig 是产物包配置。
type ArtifactConfig struct {
	Path      string `yaml:"path"`      // 产物包（bbolt 文件）路径
	Dimension int    `yaml:"dimension"` // 向量维度 D，默认 64
}

// RecommendConfig 是推荐链路配置。
type RecommendConfig struct {
	// Filter 是召回与精排之间的 CEL 过滤表达式；为空则不过滤。
	// 例如：`year >= 1990` / `"Comedy" in genres`
	Filter string `yaml:"filter"`

	// Shards 是目录扫描的并行分片数；0 表示 GOMAXPROCS
	Shards int `yaml:"shards"`
}

// ProfileConfig 是用户属性来源配置。
type ProfileConfig struct {
	// Source 可选 "table"（产物包内属性表，默认）或 "feast"
	Source string `yaml:"source"`
	Feast  FeastConfig `yaml:"feast"`
}

// FeastConfig 是 Feast 在线特征库连接配置（Source = "feast" 时生效）。
type FeastConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	Project string `yaml:"project"`
}

// CacheConfig 是用户向量记忆化缓存配置；RedisAddr 为空则不启用。
type CacheConfig struct {
	RedisAddr  string `yaml:"redis_addr"`
	RedisDB    int    `yaml:"redis_db"`
	TTLSeconds int    `yaml:"ttl_seconds"` // 默认 600
}

// LogConfig 是日志配置。
type LogConfig struct {
	Level  string `yaml:"level"`  // debug / info / warn / error，默认 info
	Pretty bool   `yaml:"pretty"` // true 时输出控制台格式而非 JSON
}

// Default 返回带默认值的配置。
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Addr: ":8000"},
		Artifact: ArtifactConfig{Dimension: 64},
		Profile:  ProfileConfig{Source: "table"},
		Cache:    CacheConfig{TTLSeconds: 600},
		Log:      LogConfig{Level: "info"},
	}
}

// Load 从 YAML 文件加载配置（未出现的字段保持默认值）并校验。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置的内部一致性。
func (c *Config) Validate() error {
	if c.Artifact.Path == "" {
		return fmt.Errorf("artifact.path is required")
	}
	if c.Artifact.Dimension <= 0 {
		return fmt.Errorf("artifact.dimension must be positive, got %d", c.Artifact.Dimension)
	}
	switch c.Profile.Source {
	case "table", "feast":
	default:
		return fmt.Errorf("profile.source must be \"table\" or \"feast\", got %q", c.Profile.Source)
	}
	if c.Profile.Source == "feast" && c.Profile.Feast.Host == "" {
		return fmt.Errorf("profile.feast.host is required when profile.source is \"feast\"")
	}
	return nil
}
