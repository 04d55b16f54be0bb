package engine

import (
	"context"
	"sync"
	"sync/atomic"

	log "github.com/AlexStocks/log4go"
	gxsync "github.com/dubbogo/gost/sync"
	"github.com/juju/errors"
	"github.com/zhukovaskychina/xgrid-storage/logger"
	"github.com/zhukovaskychina/xgrid-storage/server/common"
	"github.com/zhukovaskychina/xgrid-storage/server/conf"
	"github.com/zhukovaskychina/xgrid-storage/server/storage/basic"
	"github.com/zhukovaskychina/xgrid-storage/server/storage/future"
	"github.com/zhukovaskychina/xgrid-storage/server/storage/page"
	"github.com/zhukovaskychina/xgrid-storage/server/storage/record"
	"github.com/zhukovaskychina/xgrid-storage/server/storage/wal"
)

// ErrEngineClosed 引擎已关闭
var ErrEngineClosed = errors.New("storage engine has been closed")

// StorageEngine 持久化引擎：先写日志后改页，检查点由协程池并发刷盘
type StorageEngine struct {
	mu           sync.Mutex
	barrier      sync.RWMutex // Apply持读锁，取检查点标记时持写锁排空在途写入
	cfg          *conf.Cfg
	walMgr       *wal.Manager
	pageStore    *page.Store
	taskPool     gxsync.GenericTaskPool
	checkpointID uint64
	closed       bool
}

func Open(cfg *conf.Cfg) (*StorageEngine, error) {
	walMgr, err := wal.NewManager(cfg.WALPath(), cfg.StorageSegmentSize)
	if err != nil {
		return nil, errors.Annotatef(err, "open wal at %s", cfg.WALPath())
	}

	method, err := page.CompressionMethodFromName(cfg.StorageCompressionMethod)
	if err != nil {
		_ = walMgr.Close()
		return nil, errors.Trace(err)
	}
	pageStore, err := page.NewStore(page.Options{
		PageSize:         cfg.StoragePageSize,
		CheckpointDir:    cfg.CheckpointPath(),
		Compression:      method,
		CompressionLevel: uint8(cfg.StorageCompressionLevel),
	})
	if err != nil {
		_ = walMgr.Close()
		return nil, errors.Trace(err)
	}

	eng := &StorageEngine{
		cfg:       cfg,
		walMgr:    walMgr,
		pageStore: pageStore,
		taskPool:  gxsync.NewTaskPoolSimple(cfg.StorageFlushWorkers),
	}
	logger.Infof("storage engine opened, wal=%s, checkpoint=%s, page size=%d",
		cfg.WALPath(), cfg.CheckpointPath(), cfg.StoragePageSize)
	return eng, nil
}

// WAL 日志管理器
func (e *StorageEngine) WAL() *wal.Manager {
	return e.walMgr
}

// PageStore 页存储
func (e *StorageEngine) PageStore() *page.Store {
	return e.pageStore
}

// Append 仅追加日志，不触碰页（逻辑补偿记录使用）
func (e *StorageEngine) Append(rec basic.Record) (common.WALPointer, error) {
	if e.isClosed() {
		return common.WALPointer{}, errors.Trace(ErrEngineClosed)
	}
	ptr, err := e.walMgr.AppendRecord(rec)
	if err != nil {
		return common.WALPointer{}, errors.Trace(err)
	}
	if e.cfg.StorageFlushLogAtCommit == 1 {
		if err = e.walMgr.Flush(); err != nil {
			return common.WALPointer{}, errors.Trace(err)
		}
	}
	return ptr, nil
}

// Apply 先写日志再施加到页，日志落盘成功前页面不变
func (e *StorageEngine) Apply(rec basic.Record) (common.WALPointer, error) {
	e.barrier.RLock()
	defer e.barrier.RUnlock()

	ptr, err := e.Append(rec)
	if err != nil {
		return common.WALPointer{}, errors.Trace(err)
	}
	if err = e.pageStore.ApplyRecord(rec, ptr); err != nil {
		return common.WALPointer{}, errors.Trace(err)
	}
	return ptr, nil
}

// FlushAll 将全部脏页并发落盘，全部成功后持久化检查点标记
// 任一页失败则整轮失败，检查点标记不会推进
func (e *StorageEngine) FlushAll(ctx context.Context) error {
	if e.isClosed() {
		return errors.Trace(ErrEngineClosed)
	}

	// 屏障内先取标记再取脏页集合：此刻没有已入日志却未施加到页的写入，
	// 标记之前的每条增量要么已被既有快照覆盖，要么落在本轮脏页里
	e.barrier.Lock()
	mark, err := e.walMgr.CurrentPosition()
	if err != nil {
		e.barrier.Unlock()
		return errors.Trace(err)
	}
	dirty := e.pageStore.DirtyPages()
	e.barrier.Unlock()

	if len(dirty) == 0 {
		log.Debug("flush skipped, no dirty pages")
		return nil
	}

	fut := future.NewCountDownFuture(len(dirty), future.WithAfterDone(func(err error) {
		if err != nil {
			log.Warn("flush round of %d pages failed: %v", len(dirty), err)
			return
		}
		log.Info("flush round of %d pages finished", len(dirty))
	}))
	for _, p := range dirty {
		p := p
		e.taskPool.AddTaskAlways(func() {
			fut.Done(e.pageStore.Checkpoint(p))
		})
	}
	if err := fut.WaitContext(ctx); err != nil {
		return errors.Annotatef(err, "flush %d dirty pages", len(dirty))
	}

	id := atomic.AddUint64(&e.checkpointID, 1)
	if _, err = e.walMgr.AppendRecord(record.NewCheckpointRecord(id, mark)); err != nil {
		return errors.Annotatef(err, "append checkpoint mark %d", id)
	}
	if err = e.walMgr.Flush(); err != nil {
		return errors.Trace(err)
	}
	// 标记落盘后恢复才允许从它起步，回收也以它为界
	return errors.Trace(e.pageStore.SaveCheckpointMark(mark))
}

// ReclaimWAL 删除完全位于检查点标记之前的日志段
// 被删段的记录全部已由页快照覆盖，恢复不再引用它们
func (e *StorageEngine) ReclaimWAL() (int, error) {
	if e.isClosed() {
		return 0, errors.Trace(ErrEngineClosed)
	}
	mark, err := e.pageStore.LoadCheckpointMark()
	if err != nil {
		return 0, errors.Trace(err)
	}
	if mark.IsZero() {
		return 0, nil
	}
	removed, err := e.walMgr.ReclaimBelow(mark.SegmentID)
	if removed > 0 {
		logger.Infof("reclaimed %d wal segments below checkpoint mark %s", removed, mark.String())
	}
	return removed, errors.Trace(err)
}

// Recover 重启后从快照与日志重建页面状态
func (e *StorageEngine) Recover() error {
	if e.isClosed() {
		return errors.Trace(ErrEngineClosed)
	}
	return errors.Trace(e.pageStore.Recover(e.walMgr))
}

func (e *StorageEngine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *StorageEngine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.taskPool.Close()
	err := e.walMgr.Close()
	logger.Info("storage engine closed")
	return errors.Trace(err)
}
