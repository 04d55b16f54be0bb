package wal

import (
	"os"
	"sort"
	"sync"

	"github.com/juju/errors"
	"github.com/zhukovaskychina/xgrid-storage/logger"
	"github.com/zhukovaskychina/xgrid-storage/server/common"
	"github.com/zhukovaskychina/xgrid-storage/server/storage/basic"
	"github.com/zhukovaskychina/xgrid-storage/server/storage/record"
	"github.com/zhukovaskychina/xgrid-storage/util"
)

// Manager 段集合的属主：分配单调段号、按大小阈值轮转、
// 提供当前可写段与任意归档段的随机访问
type Manager struct {
	mu          sync.Mutex
	dir         string
	segmentSize int64
	segments    map[uint64]*Segment
	active      *Segment
}

// NewManager 打开（或初始化）WAL目录
// 目录里已有的段按段号升序恢复，最大段号的段继续作为活跃段
func NewManager(dir string, segmentSize int64) (*Manager, error) {
	if segmentSize <= 0 {
		return nil, errors.Errorf("invalid wal segment size %d", segmentSize)
	}
	if err := util.EnsureDir(dir); err != nil {
		return nil, errors.Annotatef(err, "create wal dir %s", dir)
	}

	names, err := util.ListFilesBySuffix(dir, segmentFileSuffix)
	if err != nil {
		return nil, errors.Annotatef(err, "list wal dir %s", dir)
	}

	m := &Manager{
		dir:         dir,
		segmentSize: segmentSize,
		segments:    make(map[uint64]*Segment),
	}

	var ids []uint64
	for _, name := range names {
		id, ok := parseSegmentFileName(name)
		if !ok {
			logger.Warnf("忽略WAL目录下的无关文件: %s", name)
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for i, id := range ids {
		state := common.SegmentArchived
		if i == len(ids)-1 {
			state = common.SegmentActive
		}
		seg, err := openSegment(dir, id, state)
		if err != nil {
			m.closeAll()
			return nil, errors.Trace(err)
		}
		m.segments[id] = seg
		if state == common.SegmentActive {
			m.active = seg
		}
	}

	if m.active == nil {
		seg, err := openSegment(dir, 0, common.SegmentActive)
		if err != nil {
			return nil, errors.Trace(err)
		}
		m.segments[0] = seg
		m.active = seg
	}

	logger.Infof("WAL目录已打开: %s, 段数=%d, 活跃段=%d", dir, len(m.segments), m.active.ID())
	return m, nil
}

// CurrentSegment 返回可写段，活跃段达到大小阈值时先轮转
func (m *Manager) CurrentSegment() (*SegmentIO, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	size, err := m.active.Size()
	if err != nil {
		return nil, errors.Trace(err)
	}
	if size >= m.segmentSize {
		if err := m.rotate(); err != nil {
			return nil, errors.Trace(err)
		}
	}
	return m.active.IO(), nil
}

// AppendRecord 序列化记录并追加到当前段，返回记录的起始位置
// 锁内完成轮转判断与写入：一条记录绝不跨段，越界只触发一次轮转
func (m *Manager) AppendRecord(rec basic.Record) (common.WALPointer, error) {
	body, err := record.MarshalRecord(rec)
	if err != nil {
		return common.WALPointer{}, errors.Trace(err)
	}
	frame, release := frameRecord(body)
	defer release()

	m.mu.Lock()
	defer m.mu.Unlock()

	size, err := m.active.Size()
	if err != nil {
		return common.WALPointer{}, errors.Trace(err)
	}
	if size > 0 && size+int64(len(frame)) > m.segmentSize {
		if err := m.rotate(); err != nil {
			return common.WALPointer{}, errors.Trace(err)
		}
	}

	end, err := m.active.IO().Append(frame)
	if err != nil {
		return common.WALPointer{}, errors.Trace(err)
	}
	return common.WALPointer{
		SegmentID: m.active.ID(),
		Offset:    end - int64(len(frame)),
	}, nil
}

// rotate 归档活跃段并创建下一个段，调用方持有m.mu
func (m *Manager) rotate() error {
	old := m.active

	// 归档前把旧段落盘，段内记录先于轮转持久
	if err := old.IO().Flush(); err != nil {
		return errors.Trace(err)
	}
	if err := old.Archive(); err != nil {
		return errors.Trace(err)
	}

	seg, err := openSegment(m.dir, old.ID()+1, common.SegmentActive)
	if err != nil {
		return errors.Trace(err)
	}
	m.segments[seg.ID()] = seg
	m.active = seg

	logger.Infof("WAL段轮转: %d -> %d", old.ID(), seg.ID())
	return nil
}

// Segment 按段号随机访问（回放与滞后消费者使用）
func (m *Manager) Segment(id uint64) (*Segment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seg, ok := m.segments[id]
	if !ok {
		return nil, errors.Annotatef(ErrSegmentNotFound, "segment %d", id)
	}
	return seg, nil
}

// ActiveSegmentID 当前活跃段号
func (m *Manager) ActiveSegmentID() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active.ID()
}

// CurrentPosition 活跃段尾部位置，此前追加的记录物理位置均小于该值
func (m *Manager) CurrentPosition() (common.WALPointer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	size, err := m.active.Size()
	if err != nil {
		return common.WALPointer{}, errors.Trace(err)
	}
	return common.WALPointer{SegmentID: m.active.ID(), Offset: size}, nil
}

// Flush 持久屏障：此前追加完成的记录全部落盘
func (m *Manager) Flush() error {
	m.mu.Lock()
	active := m.active
	m.mu.Unlock()

	return errors.Trace(active.IO().Flush())
}

// segmentIDs 现存段号快照，升序
func (m *Manager) segmentIDs() []uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]uint64, 0, len(m.segments))
	for id := range m.segments {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// IterateFrom 从指定位置开始按物理顺序产出记录，可从任意历史位置重启
func (m *Manager) IterateFrom(ptr common.WALPointer) (*Iterator, error) {
	ids := m.segmentIDs()
	idx := sort.Search(len(ids), func(i int) bool { return ids[i] >= ptr.SegmentID })
	if idx == len(ids) {
		return nil, errors.Annotatef(ErrSegmentNotFound, "iterate from segment %d", ptr.SegmentID)
	}

	// 起始段已被回收删除时，从后继段的段首开始
	offset := ptr.Offset
	if ids[idx] != ptr.SegmentID {
		offset = 0
	}
	return &Iterator{
		mgr:    m,
		ids:    ids[idx:],
		offset: offset,
	}, nil
}

// Compact 归档段被检查点覆盖后标记回收
func (m *Manager) Compact(id uint64) error {
	seg, err := m.Segment(id)
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(seg.Compact())
}

// Remove 删除已回收段的文件，此后恢复不再引用它
func (m *Manager) Remove(id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	seg, ok := m.segments[id]
	if !ok {
		return errors.Annotatef(ErrSegmentNotFound, "remove segment %d", id)
	}
	if seg.State() != common.SegmentCompacted {
		return errors.Annotatef(ErrSegmentState, "remove segment %d in state %s", id, seg.State())
	}

	if err := seg.IO().Close(); err != nil {
		logger.Warnf("关闭段 %d 失败: %v", id, err)
	}
	if err := os.Remove(seg.Path()); err != nil {
		return errors.Annotatef(err, "remove segment file %s", seg.Path())
	}
	delete(m.segments, id)

	logger.Infof("WAL段已删除: %d", id)
	return nil
}

// ReclaimBelow 回收段号严格小于bound的段：先标记再删文件
// 调用方保证这些段的记录已全部被检查点覆盖
func (m *Manager) ReclaimBelow(bound uint64) (int, error) {
	removed := 0
	for _, id := range m.segmentIDs() {
		if id >= bound {
			break
		}
		if err := m.Compact(id); err != nil {
			return removed, errors.Trace(err)
		}
		if err := m.Remove(id); err != nil {
			return removed, errors.Trace(err)
		}
		removed++
	}
	return removed, nil
}

// Close 落盘并关闭全部段
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.active.IO().Flush(); err != nil {
		logger.Errorf("关闭前落盘失败: %v", err)
	}
	return m.closeAll()
}

func (m *Manager) closeAll() error {
	var firstErr error
	for _, seg := range m.segments {
		if err := seg.IO().Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return errors.Trace(firstErr)
}
