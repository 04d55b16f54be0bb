package record

import (
	"github.com/juju/errors"
	"github.com/zhukovaskychina/xgrid-storage/server/common"
	"github.com/zhukovaskychina/xgrid-storage/server/storage/basic"
	"github.com/zhukovaskychina/xgrid-storage/util"
)

// DataPageInsertRecord 数据页插入行记录
type DataPageInsertRecord struct {
	pageDelta
	itemID uint16
	row    []byte
}

func NewDataPageInsertRecord(groupID uint32, pageID uint64, itemID uint16, row []byte) *DataPageInsertRecord {
	return &DataPageInsertRecord{
		pageDelta: pageDelta{groupID: groupID, pageID: pageID},
		itemID:    itemID,
		row:       row,
	}
}

func (r *DataPageInsertRecord) Type() common.RecordType {
	return common.RecordTypeDataPageInsert
}

func (r *DataPageInsertRecord) ItemID() uint16 {
	return r.itemID
}

func (r *DataPageInsertRecord) Row() []byte {
	return r.row
}

// Marshal 载荷: itemId(UB2) + 行长度(UB4) + 行数据
func (r *DataPageInsertRecord) Marshal() ([]byte, error) {
	buf := make([]byte, 0, 2+4+len(r.row))
	buf = util.WriteUB2(buf, r.itemID)
	buf = util.WriteWithLength(buf, r.row)
	return buf, nil
}

func (r *DataPageInsertRecord) Unmarshal(payload []byte) error {
	if len(payload) < 6 {
		return errors.Annotatef(ErrBadPayload, "data page insert record too short: %d bytes", len(payload))
	}
	cursor, itemID := util.ReadUB2(payload, 0)
	cursor, rowLen := util.ReadUB4(payload, cursor)
	if len(payload)-cursor != int(rowLen) {
		return errors.Annotatef(ErrBadPayload, "data page insert record row length mismatch: declared %d, left %d", rowLen, len(payload)-cursor)
	}
	_, row := util.ReadBytes(payload, cursor, int(rowLen))
	r.itemID = itemID
	r.row = append([]byte(nil), row...)
	return nil
}

func (r *DataPageInsertRecord) ApplyDelta(page basic.PageMutator) error {
	return errors.Trace(page.InsertRowAt(r.itemID, r.row))
}
