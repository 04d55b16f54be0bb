package record

import (
	"github.com/juju/errors"
	"github.com/zhukovaskychina/xgrid-storage/server/common"
	"github.com/zhukovaskychina/xgrid-storage/server/storage/basic"
	"github.com/zhukovaskychina/xgrid-storage/util"
)

// DataPageRemoveRecord 数据页删除行记录，只释放槽位不搬动行堆
type DataPageRemoveRecord struct {
	pageDelta
	itemID uint16
}

func NewDataPageRemoveRecord(groupID uint32, pageID uint64, itemID uint16) *DataPageRemoveRecord {
	return &DataPageRemoveRecord{
		pageDelta: pageDelta{groupID: groupID, pageID: pageID},
		itemID:    itemID,
	}
}

func (r *DataPageRemoveRecord) Type() common.RecordType {
	return common.RecordTypeDataPageRemove
}

func (r *DataPageRemoveRecord) ItemID() uint16 {
	return r.itemID
}

// Marshal 载荷: itemId(UB2)
func (r *DataPageRemoveRecord) Marshal() ([]byte, error) {
	buf := make([]byte, 0, 2)
	buf = util.WriteUB2(buf, r.itemID)
	return buf, nil
}

func (r *DataPageRemoveRecord) Unmarshal(payload []byte) error {
	if len(payload) != 2 {
		return errors.Annotatef(ErrBadPayload, "data page remove record expects 2 bytes, got %d", len(payload))
	}
	_, r.itemID = util.ReadUB2(payload, 0)
	return nil
}

func (r *DataPageRemoveRecord) ApplyDelta(page basic.PageMutator) error {
	return errors.Trace(page.RemoveRow(r.itemID))
}
