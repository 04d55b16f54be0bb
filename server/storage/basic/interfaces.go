package basic

import (
	"github.com/juju/errors"
	"github.com/zhukovaskychina/xgrid-storage/server/common"
)

// ErrClosed 对已关闭文件句柄的任何操作都返回该错误
var ErrClosed = errors.New("file io has been closed")

// FileIO 段文件的字节级读写抽象
// 通过装饰器组合叠加行为（段标识、校验、压缩），调用方无需感知
type FileIO interface {
	// Append 顺序追加，返回追加后的文件末尾偏移
	Append(p []byte) (int64, error)
	// ReadAt 定位读，不影响追加游标
	ReadAt(p []byte, off int64) (int, error)
	// Flush 将之前追加的全部字节落盘
	Flush() error
	// Close 释放文件句柄
	Close() error
	// Size 当前文件大小（即追加游标位置）
	Size() (int64, error)
}

// Record WAL记录，自描述类型与目标页面，负责自身的序列化
type Record interface {
	Type() common.RecordType
	GroupID() uint32
	PageID() uint64
	// Marshal 编码类型特定的载荷部分
	Marshal() ([]byte, error)
	// Unmarshal 从载荷字节恢复记录内容
	Unmarshal(payload []byte) error
}

// DeltaRecord 增量记录，可把自身效果施加到一个页面镜像上
// 施加顺序必须与追加顺序一致，乱序施加行为未定义
type DeltaRecord interface {
	Record
	ApplyDelta(page PageMutator) error
}

// PageMutator 增量记录可触达的页面操作面
type PageMutator interface {
	// InitPage 将页面镜像初始化为结构完整的空页
	InitPage(groupID uint32, pageID uint64)
	// InsertRowAt 把行数据写入指定槽位
	InsertRowAt(itemID uint16, row []byte) error
	// RemoveRow 释放槽位
	RemoveRow(itemID uint16) error
	// UpdateTxState 原地改写槽位的事务状态提示，不移动行数据
	UpdateTxState(itemID uint16, st common.TxState) error
	// RowAt 读取槽位上的行数据
	RowAt(itemID uint16) ([]byte, error)
	// TxStateAt 读取槽位的事务状态提示
	TxStateAt(itemID uint16) (common.TxState, error)
}
