package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zhukovaskychina/xgrid-storage/server/common"
	"github.com/zhukovaskychina/xgrid-storage/server/conf"
	"github.com/zhukovaskychina/xgrid-storage/server/storage/engine"
	"github.com/zhukovaskychina/xgrid-storage/server/storage/record"
)

func main() {
	fmt.Println("=== XGrid 存储引擎崩溃恢复演示 ===")
	fmt.Println()

	demoDir, err := os.MkdirTemp("", "xgrid-demo")
	if err != nil {
		fmt.Printf("创建演示目录失败: %v\n", err)
		return
	}
	defer func() {
		fmt.Println("清理演示数据...")
		os.RemoveAll(demoDir)
	}()

	cfg := conf.NewCfg()
	cfg.DataDir = demoDir
	cfg.StorageWALDir = filepath.Join(demoDir, "wal")
	cfg.StorageCheckpointDir = filepath.Join(demoDir, "checkpoint")
	cfg.StorageSegmentSize = 1 << 20 // 1MB，演示段滚动
	cfg.StoragePageSize = 4096
	cfg.StorageCompressionMethod = "snappy"

	fmt.Printf("数据目录: %s\n", demoDir)
	fmt.Printf("  - 段大小: %d KB\n", cfg.StorageSegmentSize/1024)
	fmt.Printf("  - 页大小: %d KB\n", cfg.StoragePageSize/1024)
	fmt.Println()

	// 第一阶段：写入并部分落盘
	fmt.Println("--- 第一阶段: 写入增量并做检查点 ---")
	eng, err := engine.Open(cfg)
	if err != nil {
		fmt.Printf("打开引擎失败: %v\n", err)
		return
	}

	const groupID, pageID = 7, 100
	if _, err = eng.Apply(record.NewInitNewPageRecord(groupID, pageID)); err != nil {
		fmt.Printf("初始化页失败: %v\n", err)
		return
	}
	for i := 0; i < 8; i++ {
		row := []byte(fmt.Sprintf("row-%02d", i))
		if _, err = eng.Apply(record.NewDataPageInsertRecord(groupID, pageID, uint16(i), row)); err != nil {
			fmt.Printf("插入行失败: %v\n", err)
			return
		}
	}
	fmt.Println("已写入 8 行")

	if err = eng.FlushAll(context.Background()); err != nil {
		fmt.Printf("落盘失败: %v\n", err)
		return
	}
	fmt.Println("检查点完成，脏页已清零")

	// 检查点之后继续写，这部分只存在于日志里
	for i := 0; i < 4; i++ {
		if _, err = eng.Apply(record.NewMvccTxStateHintRecord(groupID, pageID, uint16(i), common.TxStateCommitted)); err != nil {
			fmt.Printf("写事务状态提示失败: %v\n", err)
			return
		}
	}
	fmt.Println("检查点后追加 4 条事务状态提示（未落盘）")

	// 模拟崩溃：不经 FlushAll 直接关闭
	if err = eng.Close(); err != nil {
		fmt.Printf("关闭引擎失败: %v\n", err)
		return
	}
	fmt.Println()

	// 第二阶段：重启恢复
	fmt.Println("--- 第二阶段: 重启并恢复 ---")
	eng, err = engine.Open(cfg)
	if err != nil {
		fmt.Printf("重新打开引擎失败: %v\n", err)
		return
	}
	defer eng.Close()

	if err = eng.Recover(); err != nil {
		fmt.Printf("恢复失败: %v\n", err)
		return
	}

	p, ok := eng.PageStore().Get(groupID, pageID)
	if !ok {
		fmt.Println("恢复后页面缺失!")
		return
	}
	for i := 0; i < 8; i++ {
		row, rowErr := p.RowAt(uint16(i))
		if rowErr != nil {
			fmt.Printf("读取行 %d 失败: %v\n", i, rowErr)
			return
		}
		st, stErr := p.TxStateAt(uint16(i))
		if stErr != nil {
			fmt.Printf("读取事务状态 %d 失败: %v\n", i, stErr)
			return
		}
		fmt.Printf("  槽 %d: %-8s 事务状态=%s\n", i, string(row), st)
	}
	fmt.Println()
	fmt.Println("前 4 行应为 COMMITTED（来自日志回放），后 4 行为 ABSENT（来自快照）")
	fmt.Println("=== 演示结束 ===")
}
