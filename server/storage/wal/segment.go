package wal

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/juju/errors"
	"github.com/zhukovaskychina/xgrid-storage/server/common"
)

// 段文件后缀
const segmentFileSuffix = ".wal"

var (
	// ErrSegmentNotFound 段号不存在（或已被删除）
	ErrSegmentNotFound = errors.New("wal segment not found")
	// ErrSegmentActive 操作不允许作用在活跃段上
	ErrSegmentActive = errors.New("wal segment is still active")
	// ErrSegmentState 段状态不满足操作前置条件
	ErrSegmentState = errors.New("wal segment state mismatch")
)

// segmentFileName 段号到文件名，十六进制定宽保证字典序即段号序
func segmentFileName(id uint64) string {
	return fmt.Sprintf("%016x%s", id, segmentFileSuffix)
}

// parseSegmentFileName 从文件名还原段号
func parseSegmentFileName(name string) (uint64, bool) {
	if !strings.HasSuffix(name, segmentFileSuffix) {
		return 0, false
	}
	base := strings.TrimSuffix(name, segmentFileSuffix)
	if len(base) != 16 {
		return 0, false
	}
	id, err := strconv.ParseUint(base, 16, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Segment 一个物理日志段
type Segment struct {
	mu    sync.RWMutex
	id    uint64
	path  string
	state common.SegmentState
	io    *SegmentIO
}

// openSegment 打开段文件并套上段标识装饰层
func openSegment(dir string, id uint64, state common.SegmentState) (*Segment, error) {
	path := filepath.Join(dir, segmentFileName(id))
	fio, err := OpenFileIO(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Segment{
		id:    id,
		path:  path,
		state: state,
		io:    NewSegmentIO(id, fio),
	}, nil
}

func (s *Segment) ID() uint64 {
	return s.id
}

func (s *Segment) Path() string {
	return s.path
}

func (s *Segment) State() common.SegmentState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IO 段的字节级读写入口
func (s *Segment) IO() *SegmentIO {
	return s.io
}

func (s *Segment) Size() (int64, error) {
	return s.io.Size()
}

// Archive 活跃段轮转时归档，只读化
func (s *Segment) Archive() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != common.SegmentActive {
		return errors.Annotatef(ErrSegmentState, "archive segment %d in state %s", s.id, s.state)
	}
	s.state = common.SegmentArchived
	return nil
}

// Compact 归档段被检查点覆盖后回收
func (s *Segment) Compact() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case common.SegmentActive:
		return errors.Annotatef(ErrSegmentActive, "compact segment %d", s.id)
	case common.SegmentCompacted:
		return nil
	}
	s.state = common.SegmentCompacted
	return nil
}
