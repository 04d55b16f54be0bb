package record

import (
	"github.com/juju/errors"
)

var (
	// ErrUnknownRecordType 回放遇到未注册的类型判别码
	ErrUnknownRecordType = errors.New("unknown wal record type")
	// ErrBadPayload 载荷长度与类型定义不符
	ErrBadPayload = errors.New("malformed wal record payload")
)

// pageDelta 增量记录的公共部分：标识目标页面
type pageDelta struct {
	groupID uint32
	pageID  uint64
}

func (d *pageDelta) GroupID() uint32 {
	return d.groupID
}

func (d *pageDelta) PageID() uint64 {
	return d.pageID
}
