package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return configPath
}

// TestLoadConfig_AppliesDefaults 验证缺省字段被填充为默认值
func TestLoadConfig_AppliesDefaults(t *testing.T) {
	configPath := writeTempConfig(t, `
qdrant:
  endpoint: "http://localhost:6333"
`)

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "candidates", cfg.Qdrant.Collection)
	assert.Equal(t, 1024, cfg.Qdrant.Dimension)
	assert.Equal(t, "text-embedding-v3", cfg.Aliyun.Embedding.Model)
	assert.Equal(t, 10, cfg.Search.SectionTopK)
	assert.Equal(t, 10, cfg.Search.ResultLimit)
	assert.Equal(t, "5s", cfg.Search.SectionQueryTimeout)
	assert.Equal(t, "10m", cfg.Search.CacheTTL)
	assert.Equal(t, "candidate.events", cfg.RabbitMQ.CandidateEventsExchange)
	assert.Equal(t, "candidate.indexed", cfg.RabbitMQ.CandidateIndexedRoutingKey)
}

// TestLoadConfig_ExplicitValues 验证显式配置不被默认值覆盖
func TestLoadConfig_ExplicitValues(t *testing.T) {
	configPath := writeTempConfig(t, `
qdrant:
  endpoint: "http://qdrant.internal:6333"
  collection: "talent_pool"
  dimension: 768

server:
  address: ":9090"

search:
  section_top_k: 20
  result_limit: 30
  section_query_timeout: "3s"

mysql:
  host: "db.internal"
  port: 3307
  database: "resumes"
`)

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "http://qdrant.internal:6333", cfg.Qdrant.Endpoint)
	assert.Equal(t, "talent_pool", cfg.Qdrant.Collection)
	assert.Equal(t, 768, cfg.Qdrant.Dimension)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, 20, cfg.Search.SectionTopK)
	assert.Equal(t, 30, cfg.Search.ResultLimit)
	assert.Equal(t, "3s", cfg.Search.SectionQueryTimeout)
	assert.Equal(t, "db.internal", cfg.MySQL.Host)
	assert.Equal(t, 3307, cfg.MySQL.Port)
}

// TestLoadConfig_EnvOverride 验证环境变量覆盖文件配置
func TestLoadConfig_EnvOverride(t *testing.T) {
	configPath := writeTempConfig(t, `
aliyun:
  api_key: "file-key"
  model: "qwen-plus"
`)

	t.Setenv("ALIYUN_API_KEY", "env-key")
	t.Setenv("ALIYUN_MODEL", "qwen-max")

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Aliyun.APIKey)
	assert.Equal(t, "qwen-max", cfg.Aliyun.Model)
}

// TestLoadConfig_InvalidYAML 验证语法错误的配置文件报错
func TestLoadConfig_InvalidYAML(t *testing.T) {
	configPath := writeTempConfig(t, "qdrant: [unclosed")

	_, err := LoadConfig(configPath)
	assert.Error(t, err)
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, GetDuration("5s", time.Minute))
	assert.Equal(t, time.Minute, GetDuration("", time.Minute))
	assert.Equal(t, time.Minute, GetDuration("not-a-duration", time.Minute))
}
