package conf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCfgDefaults(t *testing.T) {
	cfg := NewCfg().Load(&CommandLineArgs{ConfigPath: filepath.Join(t.TempDir(), "absent.ini")})

	assert.Equal(t, "grid", cfg.User)
	assert.Equal(t, int64(67108864), cfg.StorageSegmentSize)
	assert.Equal(t, 16384, cfg.StoragePageSize)
	assert.Equal(t, "snappy", cfg.StorageCompressionMethod)
	assert.Equal(t, 1, cfg.StorageFlushLogAtCommit)
	assert.Equal(t, 4, cfg.StorageFlushWorkers)
}

func TestCfgLoadFromIni(t *testing.T) {
	dir := t.TempDir()
	iniPath := filepath.Join(dir, "xgrid.ini")
	content := `
[grid]
user         = tester
bind-address = 0.0.0.0
port         = 4410
datadir      = ` + dir + `

[storage]
storage_wal_dir            = redo
storage_checkpoint_dir     = snap
storage_segment_size       = 1048576
storage_page_size          = 8192
storage_flush_workers      = 8
storage_compression_method = LZ4
storage_compression_level  = 1
storage_flush_log_at_commit = 0

[logs]
log_level = debug
`
	require.NoError(t, os.WriteFile(iniPath, []byte(content), 0644))

	cfg := NewCfg().Load(&CommandLineArgs{ConfigPath: iniPath})

	t.Run("基础段解析", func(t *testing.T) {
		assert.Equal(t, "tester", cfg.User)
		assert.Equal(t, "0.0.0.0", cfg.BindAddress)
		assert.Equal(t, 4410, cfg.Port)
	})

	t.Run("存储段解析", func(t *testing.T) {
		assert.Equal(t, int64(1048576), cfg.StorageSegmentSize)
		assert.Equal(t, 8192, cfg.StoragePageSize)
		assert.Equal(t, 8, cfg.StorageFlushWorkers)
		assert.Equal(t, "lz4", cfg.StorageCompressionMethod)
		assert.Equal(t, 1, cfg.StorageCompressionLevel)
		assert.Equal(t, 0, cfg.StorageFlushLogAtCommit)
	})

	t.Run("日志段解析", func(t *testing.T) {
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("相对目录挂在datadir下", func(t *testing.T) {
		assert.Equal(t, filepath.Join(dir, "redo"), cfg.WALPath())
		assert.Equal(t, filepath.Join(dir, "snap"), cfg.CheckpointPath())
	})

	t.Run("绝对目录原样使用", func(t *testing.T) {
		abs := filepath.Join(dir, "elsewhere")
		cfg.StorageWALDir = abs
		assert.Equal(t, abs, cfg.WALPath())
	})
}
