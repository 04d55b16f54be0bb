package page

import (
	"io"
	"os"
	"path"
	"sync"

	"github.com/juju/errors"
	"github.com/zhukovaskychina/xgrid-storage/logger"
	"github.com/zhukovaskychina/xgrid-storage/server/common"
	"github.com/zhukovaskychina/xgrid-storage/server/storage/basic"
	"github.com/zhukovaskychina/xgrid-storage/server/storage/wal"
	"github.com/zhukovaskychina/xgrid-storage/util"
)

// pageKey 页在存储内的唯一标识
type pageKey struct {
	groupID uint32
	pageID  uint64
}

// Options 页存储配置
type Options struct {
	PageSize         int
	CheckpointDir    string
	Compression      uint8
	CompressionLevel uint8
}

// Store 页存储，持有全部内存页镜像并负责检查点与恢复
type Store struct {
	mu    sync.RWMutex
	pages map[pageKey]*Page
	opts  Options
	cache *imageCache
}

func NewStore(opts Options) (*Store, error) {
	if opts.PageSize < MinPageSize {
		return nil, errors.Errorf("page size %d below minimum %d", opts.PageSize, MinPageSize)
	}
	if opts.PageSize > 0xFFFF {
		return nil, errors.Errorf("page size %d exceeds maximum %d", opts.PageSize, 0xFFFF)
	}
	if opts.Compression != CompressionNone &&
		opts.Compression != CompressionZlib &&
		opts.Compression != CompressionSnappy &&
		opts.Compression != CompressionLZ4 {
		return nil, errors.Trace(ErrUnknownCompression)
	}
	if err := util.EnsureDir(opts.CheckpointDir); err != nil {
		return nil, errors.Annotatef(err, "create checkpoint dir %s", opts.CheckpointDir)
	}
	return &Store{
		pages: make(map[pageKey]*Page),
		opts:  opts,
		cache: newImageCache(),
	}, nil
}

// GetOrAllocate 返回指定页，不存在时分配一张已初始化的空页
func (s *Store) GetOrAllocate(groupID uint32, pageID uint64) *Page {
	key := pageKey{groupID: groupID, pageID: pageID}
	s.mu.RLock()
	p, ok := s.pages[key]
	s.mu.RUnlock()
	if ok {
		return p
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok = s.pages[key]; ok {
		return p
	}
	p = NewPage(groupID, pageID, s.opts.PageSize)
	s.pages[key] = p
	return p
}

// Get 返回指定页，不会分配新页
func (s *Store) Get(groupID uint32, pageID uint64) (*Page, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pages[pageKey{groupID: groupID, pageID: pageID}]
	return p, ok
}

// PageCount 当前内存页数量
func (s *Store) PageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pages)
}

// ApplyRecord 将一条增量记录施加到它指向的页上
// ptr 为记录在日志中的物理位置，位于页回放边界之前的记录会被跳过，
// 因此重复回放同一段日志是幂等的
func (s *Store) ApplyRecord(rec basic.Record, ptr common.WALPointer) error {
	delta, ok := rec.(basic.DeltaRecord)
	if !ok {
		// 非增量记录（如检查点标记）不作用于页
		return nil
	}
	p := s.GetOrAllocate(rec.GroupID(), rec.PageID())
	p.lt.Lock()
	defer p.lt.Unlock()
	if ptr.Less(p.boundary) {
		return nil
	}
	if err := delta.ApplyDelta(p); err != nil {
		return errors.Annotatef(err, "apply record type %d to page [%d,%d]",
			rec.Type(), rec.GroupID(), rec.PageID())
	}
	p.setReplayBoundary(common.WALPointer{SegmentID: ptr.SegmentID, Offset: ptr.Offset + 1})
	p.markDirty()
	return nil
}

// DirtyPages 所有脏页的快照
func (s *Store) DirtyPages() []*Page {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Page
	for _, p := range s.pages {
		if p.Dirty() {
			out = append(out, p)
		}
	}
	return out
}

// Checkpoint 将单页镜像落盘，成功后清除脏标记
// 落盘期间页上的新写入会重新置脏，不会丢失
func (s *Store) Checkpoint(p *Page) error {
	p.lt.RLock()
	image := p.Image()
	boundary := p.boundary
	groupID, pageID := p.GroupID(), p.PageID()
	p.lt.RUnlock()

	data, err := encodeCheckpoint(s.opts.Compression, s.opts.CompressionLevel, image, boundary)
	if err != nil {
		return errors.Annotatef(err, "encode checkpoint for page [%d,%d]", groupID, pageID)
	}
	name := path.Join(s.opts.CheckpointDir, checkpointFileName(groupID, pageID))
	if err = util.WriteFileAtomic(name, data); err != nil {
		return errors.Annotatef(err, "write checkpoint %s", name)
	}
	key := pageKey{groupID: groupID, pageID: pageID}
	s.cache.put(key, cachedSnapshot{image: image, ptr: boundary})

	p.lt.Lock()
	if p.boundary == boundary {
		p.clearDirty()
	}
	p.lt.Unlock()
	return nil
}

// SaveCheckpointMark 持久化日志回放起点
// 调用方保证起点之前的全部增量记录已被某页快照覆盖
func (s *Store) SaveCheckpointMark(ptr common.WALPointer) error {
	name := path.Join(s.opts.CheckpointDir, checkpointMarkFile)
	return errors.Annotatef(util.WriteFileAtomic(name, encodeCheckpointMark(ptr)), "write checkpoint mark %s", name)
}

// LoadCheckpointMark 读取回放起点，缺失或损坏时退回日志头
// 起点偏早只是多做一段幂等回放，不影响重建结果
func (s *Store) LoadCheckpointMark() (common.WALPointer, error) {
	name := path.Join(s.opts.CheckpointDir, checkpointMarkFile)
	data, err := os.ReadFile(name)
	if err != nil {
		if os.IsNotExist(err) {
			return common.WALPointer{}, nil
		}
		return common.WALPointer{}, errors.Annotatef(err, "read checkpoint mark %s", name)
	}
	ptr, ok := decodeCheckpointMark(data)
	if !ok {
		logger.Warnf("检查点标记文件损坏，从日志头回放: %s", name)
		return common.WALPointer{}, nil
	}
	return ptr, nil
}

// Recover 从检查点镜像与日志重建全部页
// 先装载每页最近一次落盘的镜像，再从最近一次检查点标记处回放日志，
// 页自身的回放边界会跳过镜像已覆盖的记录
func (s *Store) Recover(mgr *wal.Manager) error {
	if err := s.loadSnapshots(); err != nil {
		return errors.Trace(err)
	}
	start, err := s.LoadCheckpointMark()
	if err != nil {
		return errors.Trace(err)
	}
	it, err := mgr.IterateFrom(start)
	if err != nil {
		return errors.Trace(err)
	}
	replayed := 0
	for {
		rec, ptr, nextErr := it.Next()
		if nextErr == io.EOF {
			break
		}
		if nextErr != nil {
			return errors.Annotatef(nextErr, "replay log at %s", ptr.String())
		}
		if err = s.ApplyRecord(rec, ptr); err != nil {
			return errors.Trace(err)
		}
		replayed++
	}
	logger.Infof("recover finished: %d pages, %d records replayed", s.PageCount(), replayed)
	return nil
}

func (s *Store) loadSnapshots() error {
	names, err := util.ListFilesBySuffix(s.opts.CheckpointDir, checkpointFileSuffix)
	if err != nil {
		return errors.Annotatef(err, "list checkpoint dir %s", s.opts.CheckpointDir)
	}
	for _, name := range names {
		groupID, pageID, ok := parseCheckpointFileName(name)
		if !ok {
			logger.Warnf("skip unrecognized checkpoint file %s", name)
			continue
		}
		key := pageKey{groupID: groupID, pageID: pageID}
		snap, hit := s.cache.get(key)
		if !hit {
			data, readErr := os.ReadFile(path.Join(s.opts.CheckpointDir, name))
			if readErr != nil {
				return errors.Annotatef(readErr, "read checkpoint %s", name)
			}
			image, ptr, decErr := decodeCheckpoint(data)
			if decErr != nil {
				return errors.Annotatef(decErr, "decode checkpoint %s", name)
			}
			snap = cachedSnapshot{image: image, ptr: ptr}
			s.cache.put(key, snap)
		}
		p, pageErr := NewPageFromImage(snap.image)
		if pageErr != nil {
			return errors.Annotatef(pageErr, "restore page from checkpoint %s", name)
		}
		p.setReplayBoundary(snap.ptr)
		s.mu.Lock()
		s.pages[key] = p
		s.mu.Unlock()
	}
	return nil
}
