package conf

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/zhukovaskychina/xgrid-storage/logger"

	"gopkg.in/ini.v1"
)

var ConfigPath string

type CommandLineArgs struct {
	ConfigPath string
}

/*
*
user                      = grid
bind-address              = 127.0.0.1
port                      = 3310
datadir                   = /var/lib/xgrid
storage_wal_dir           = wal
storage_checkpoint_dir    = checkpoint
storage_segment_size      = 67108864
storage_page_size         = 16384
*/
type Cfg struct {
	Raw         *ini.File
	User        string
	BindAddress string
	Port        int
	BaseDir     string
	DataDir     string
	AppName     string

	ProfilePort int

	// logs
	LogError string `default:"/var/log/xgrid/error.log" yaml:"log_error" json:"log_error,omitempty"`
	LogInfos string `default:"/var/log/xgrid/xgrid.log" yaml:"log_infos" json:"log_infos,omitempty"`
	LogLevel string `default:"info" yaml:"log_level" json:"log_level,omitempty"`

	// storage
	StorageDataDir           string `default:"data" yaml:"storage_data_dir" json:"storage_data_dir,omitempty"`
	StorageWALDir            string `default:"wal" yaml:"storage_wal_dir" json:"storage_wal_dir,omitempty"`
	StorageCheckpointDir     string `default:"checkpoint" yaml:"storage_checkpoint_dir" json:"storage_checkpoint_dir,omitempty"`
	StorageSegmentSize       int64  `default:"67108864" yaml:"storage_segment_size" json:"storage_segment_size,omitempty"`
	StoragePageSize          int    `default:"16384" yaml:"storage_page_size" json:"storage_page_size,omitempty"`
	StorageFlushWorkers      int    `default:"4" yaml:"storage_flush_workers" json:"storage_flush_workers,omitempty"`
	StorageCompressionMethod string `default:"snappy" yaml:"storage_compression_method" json:"storage_compression_method,omitempty"`
	StorageCompressionLevel  int    `default:"6" yaml:"storage_compression_level" json:"storage_compression_level,omitempty"`
	StorageFlushLogAtCommit  int    `default:"1" yaml:"storage_flush_log_at_commit" json:"storage_flush_log_at_commit,omitempty"`
}

func NewCfg() *Cfg {
	return &Cfg{
		Raw:         ini.Empty(),
		User:        "grid",
		BindAddress: "127.0.0.1",
		Port:        3310,
		DataDir:     "data",
		AppName:     "xgrid-storage",
		// Logs 默认配置
		LogError: "/var/log/xgrid/error.log",
		LogInfos: "/var/log/xgrid/xgrid.log",
		LogLevel: "info",
		// Storage 默认配置
		StorageDataDir:           "data",
		StorageWALDir:            "wal",
		StorageCheckpointDir:     "checkpoint",
		StorageSegmentSize:       67108864, // 64MB
		StoragePageSize:          16384,    // 16KB，存储生命周期内固定
		StorageFlushWorkers:      4,
		StorageCompressionMethod: "snappy",
		StorageCompressionLevel:  6,
		StorageFlushLogAtCommit:  1,
	}
}

func (cfg *Cfg) Load(args *CommandLineArgs) *Cfg {
	setHomePath(args)
	iniFile, err := cfg.loadConfiguration(args)
	if err != nil {
		logger.Debugf("加载配置文件时有异常: %v\n", err)
		os.Exit(1)
	}
	cfg.Raw = iniFile

	cfg.parseGridCfg(cfg.Raw.Section("grid"))
	cfg.parseStorageCfg(cfg.Raw.Section("storage"))
	cfg.parseLogsCfg(cfg.Raw.Section("logs"))
	return cfg
}

func setHomePath(args *CommandLineArgs) {
	if args.ConfigPath != "" {
		ConfigPath = args.ConfigPath
		return
	}

	ConfigPath, _ = filepath.Abs(".")
}

func (cfg *Cfg) loadConfiguration(args *CommandLineArgs) (*ini.File, error) {
	// 如果没有指定配置文件路径，使用默认的conf/xgrid.ini
	configFile := "conf/xgrid.ini"
	if args.ConfigPath != "" {
		configFile = args.ConfigPath
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		logger.Debugf("配置文件不存在: %s，使用默认配置\n", configFile)
		return ini.Empty(), nil
	}

	parsedFile, err := ini.Load(configFile)
	if err != nil {
		return nil, errors.Wrapf(err, "解析配置文件失败: %s", configFile)
	}

	logger.Debugf("成功加载配置文件: %s\n", configFile)
	return parsedFile, nil
}

func (cfg *Cfg) parseGridCfg(section *ini.Section) *Cfg {
	cfg.User = section.Key("user").MustString(cfg.User)
	cfg.BindAddress = section.Key("bind-address").MustString(cfg.BindAddress)
	cfg.Port = section.Key("port").MustInt(cfg.Port)
	cfg.BaseDir = section.Key("basedir").MustString(cfg.BaseDir)
	cfg.DataDir = section.Key("datadir").MustString(cfg.DataDir)
	cfg.AppName = section.Key("app_name").MustString(cfg.AppName)
	cfg.ProfilePort = section.Key("profile_port").MustInt(cfg.ProfilePort)
	return cfg
}

func (cfg *Cfg) parseStorageCfg(section *ini.Section) *Cfg {
	cfg.StorageDataDir = section.Key("storage_data_dir").MustString(cfg.StorageDataDir)
	cfg.StorageWALDir = section.Key("storage_wal_dir").MustString(cfg.StorageWALDir)
	cfg.StorageCheckpointDir = section.Key("storage_checkpoint_dir").MustString(cfg.StorageCheckpointDir)
	cfg.StorageSegmentSize = section.Key("storage_segment_size").MustInt64(cfg.StorageSegmentSize)
	cfg.StoragePageSize = section.Key("storage_page_size").MustInt(cfg.StoragePageSize)
	cfg.StorageFlushWorkers = section.Key("storage_flush_workers").MustInt(cfg.StorageFlushWorkers)
	cfg.StorageCompressionMethod = strings.ToLower(section.Key("storage_compression_method").MustString(cfg.StorageCompressionMethod))
	cfg.StorageCompressionLevel = section.Key("storage_compression_level").MustInt(cfg.StorageCompressionLevel)
	cfg.StorageFlushLogAtCommit = section.Key("storage_flush_log_at_commit").MustInt(cfg.StorageFlushLogAtCommit)
	return cfg
}

func (cfg *Cfg) parseLogsCfg(section *ini.Section) *Cfg {
	cfg.LogError = section.Key("log_error").MustString(cfg.LogError)
	cfg.LogInfos = section.Key("log_infos").MustString(cfg.LogInfos)
	cfg.LogLevel = section.Key("log_level").MustString(cfg.LogLevel)
	return cfg
}

// WALPath WAL目录绝对路径（相对路径时挂在datadir下）
func (cfg *Cfg) WALPath() string {
	if filepath.IsAbs(cfg.StorageWALDir) {
		return cfg.StorageWALDir
	}
	return filepath.Join(cfg.DataDir, cfg.StorageWALDir)
}

// CheckpointPath 检查点目录绝对路径
func (cfg *Cfg) CheckpointPath() string {
	if filepath.IsAbs(cfg.StorageCheckpointDir) {
		return cfg.StorageCheckpointDir
	}
	return filepath.Join(cfg.DataDir, cfg.StorageCheckpointDir)
}
