package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zhukovaskychina/xgrid-storage/logger"
	"github.com/zhukovaskychina/xgrid-storage/server/conf"
	"github.com/zhukovaskychina/xgrid-storage/server/storage/engine"
)

const help = `
******************************************************************************************
 __  ______ ____  ___ ____          ____ _____ ___  ____      _    ____ _____
 \ \/ / ___|  _ \|_ _|  _ \        / ___|_   _/ _ \|  _ \    / \  / ___| ____|
  \  / |  _| |_) || || | | |  _____\___ \ | || | | | |_) |  / _ \| |  _|  _|
  /  \ |_| |  _ < | || |_| | |_____|___) || || |_| |  _ <  / ___ \ |_| | |___
 /_/\_\____|_| \_\___|____/        |____/ |_| \___/|_| \_\/_/   \_\____|_____|
******************************************************************************************
*帮助:
*1. -- help
*2. -- configPath    指定xgrid.ini配置文件
*3. -- flushInterval 脏页定期落盘间隔（秒）
******************************************************************************************
`

func main() {
	var configPath string
	var flushInterval int
	var showHelp bool
	flag.StringVar(&configPath, "configPath", "", "配置文件路径")
	flag.IntVar(&flushInterval, "flushInterval", 30, "脏页落盘间隔秒数")
	flag.BoolVar(&showHelp, "help", false, "显示帮助")
	flag.Parse()

	if showHelp {
		fmt.Print(help)
		return
	}

	config := conf.NewCfg().Load(&conf.CommandLineArgs{ConfigPath: configPath})

	logConfig := logger.LogConfig{
		ErrorLogPath: config.LogError,
		InfoLogPath:  config.LogInfos,
		LogLevel:     config.LogLevel,
	}
	if err := logger.InitLogger(logConfig); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	eng, err := engine.Open(config)
	if err != nil {
		logger.Fatalf("open storage engine: %v", err)
	}

	logger.Info("XGrid storage starting, recovering pages from checkpoint and log...")
	if err = eng.Recover(); err != nil {
		logger.Fatalf("recover storage: %v", err)
	}
	logger.Infof("recovery finished, %d pages resident", eng.PageStore().PageCount())

	ticker := time.NewTicker(time.Duration(flushInterval) * time.Second)
	defer ticker.Stop()
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			if err = eng.FlushAll(ctx); err != nil {
				logger.Errorf("periodic flush: %v", err)
			} else if _, err = eng.ReclaimWAL(); err != nil {
				logger.Errorf("reclaim wal segments: %v", err)
			}
			cancel()
		case sig := <-stop:
			logger.Infof("get signal %s, shutting down", sig.String())
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			if err = eng.FlushAll(ctx); err != nil {
				logger.Errorf("final flush: %v", err)
			}
			cancel()
			if err = eng.Close(); err != nil {
				logger.Errorf("close engine: %v", err)
			}
			return
		}
	}
}
