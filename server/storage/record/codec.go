package record

import (
	"github.com/juju/errors"
	"github.com/zhukovaskychina/xgrid-storage/server/common"
	"github.com/zhukovaskychina/xgrid-storage/server/storage/basic"
	"github.com/zhukovaskychina/xgrid-storage/util"
)

// 记录体布局: type(1) + groupId(UB4) + pageId(UB8) + 类型特定载荷
const bodyHeaderSize = 1 + 4 + 8

// factory 类型判别码到空记录的分发表，集合封闭
var factory = map[common.RecordType]func() basic.Record{
	common.RecordTypeInitNewPage:    func() basic.Record { return new(InitNewPageRecord) },
	common.RecordTypeDataPageInsert: func() basic.Record { return new(DataPageInsertRecord) },
	common.RecordTypeDataPageRemove: func() basic.Record { return new(DataPageRemoveRecord) },
	common.RecordTypeMvccTxStateHint: func() basic.Record {
		return new(MvccTxStateHintRecord)
	},
	common.RecordTypeDataEntry:  func() basic.Record { return new(DataEntryRecord) },
	common.RecordTypeCheckpoint: func() basic.Record { return new(CheckpointRecord) },
}

// pageRefSetter 反序列化时回填记录头里的页面标识
type pageRefSetter interface {
	setPageRef(groupID uint32, pageID uint64)
}

func (d *pageDelta) setPageRef(groupID uint32, pageID uint64) {
	d.groupID = groupID
	d.pageID = pageID
}

func (r *DataEntryRecord) setPageRef(groupID uint32, pageID uint64) {
	r.groupID = groupID
	r.pageID = pageID
}

func (r *CheckpointRecord) setPageRef(groupID uint32, pageID uint64) {
	// 检查点记录不针对页面
}

// MarshalRecord 编码完整记录体（不含段文件帧头）
func MarshalRecord(rec basic.Record) ([]byte, error) {
	payload, err := rec.Marshal()
	if err != nil {
		return nil, errors.Annotatef(err, "marshal %s record payload", rec.Type())
	}

	buf := make([]byte, 0, bodyHeaderSize+len(payload))
	buf = util.WriteByte(buf, byte(rec.Type()))
	buf = util.WriteUB4(buf, rec.GroupID())
	buf = util.WriteUB8(buf, rec.PageID())
	buf = util.WriteBytes(buf, payload)
	return buf, nil
}

// UnmarshalRecord 从记录体还原类型化记录
func UnmarshalRecord(body []byte) (basic.Record, error) {
	if len(body) < bodyHeaderSize {
		return nil, errors.Annotatef(ErrBadPayload, "record body too short: %d bytes", len(body))
	}

	cursor, typeCode := util.ReadByte(body, 0)
	cursor, groupID := util.ReadUB4(body, cursor)
	cursor, pageID := util.ReadUB8(body, cursor)

	newRecord, ok := factory[common.RecordType(typeCode)]
	if !ok {
		return nil, errors.Annotatef(ErrUnknownRecordType, "type code %d", typeCode)
	}

	rec := newRecord()
	rec.(pageRefSetter).setPageRef(groupID, pageID)
	if err := rec.Unmarshal(body[cursor:]); err != nil {
		return nil, errors.Annotatef(err, "unmarshal %s record", common.RecordType(typeCode))
	}
	return rec, nil
}
