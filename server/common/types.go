package common

import "fmt"

// TxState 行槽位上的MVCC事务状态提示
// 提示位只在槽位持有行数据期间有意义
type TxState byte

const (
	TxStateAbsent    TxState = iota // 未记录提示
	TxStateActive                   // 写入事务仍活跃
	TxStateCommitted                // 写入事务已提交
	TxStateAborted                  // 写入事务已回滚
)

// Valid 校验状态值是否在固定集合内
func (s TxState) Valid() bool {
	return s <= TxStateAborted
}

func (s TxState) String() string {
	switch s {
	case TxStateAbsent:
		return "ABSENT"
	case TxStateActive:
		return "ACTIVE"
	case TxStateCommitted:
		return "COMMITTED"
	case TxStateAborted:
		return "ABORTED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", byte(s))
	}
}

// RecordType WAL记录类型判别码，写盘与回放分发共用
type RecordType uint8

const (
	RecordTypeInitNewPage         RecordType = iota + 1 // 初始化新页面
	RecordTypeDataPageInsert                            // 数据页插入行
	RecordTypeDataPageRemove                            // 数据页删除行
	RecordTypeMvccTxStateHint                           // MVCC事务状态提示更新
	RecordTypeDataEntry                                 // 未解析的键值数据项
	RecordTypeCheckpoint                                // 检查点标记
)

func (t RecordType) String() string {
	switch t {
	case RecordTypeInitNewPage:
		return "INIT_NEW_PAGE"
	case RecordTypeDataPageInsert:
		return "DATA_PAGE_INSERT"
	case RecordTypeDataPageRemove:
		return "DATA_PAGE_REMOVE"
	case RecordTypeMvccTxStateHint:
		return "MVCC_TX_STATE_HINT"
	case RecordTypeDataEntry:
		return "DATA_ENTRY"
	case RecordTypeCheckpoint:
		return "CHECKPOINT"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
	}
}

// WALPointer 记录在日志中的物理位置：段号+段内偏移
// 段号单调递增，(SegmentID, Offset) 升序即追加顺序
type WALPointer struct {
	SegmentID uint64
	Offset    int64
}

// Less 物理顺序比较
func (p WALPointer) Less(o WALPointer) bool {
	if p.SegmentID != o.SegmentID {
		return p.SegmentID < o.SegmentID
	}
	return p.Offset < o.Offset
}

// IsZero 零值指针表示日志起点之前
func (p WALPointer) IsZero() bool {
	return p.SegmentID == 0 && p.Offset == 0
}

func (p WALPointer) String() string {
	return fmt.Sprintf("[seg=%d off=%d]", p.SegmentID, p.Offset)
}

// SegmentState 段生命周期状态
type SegmentState uint8

const (
	SegmentActive    SegmentState = iota // 当前可写段，全局唯一
	SegmentArchived                      // 已归档，只读
	SegmentCompacted                     // 已回收，等待删除
)

func (s SegmentState) String() string {
	switch s {
	case SegmentActive:
		return "ACTIVE"
	case SegmentArchived:
		return "ARCHIVED"
	case SegmentCompacted:
		return "COMPACTED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(s))
	}
}
