package record

import (
	"github.com/juju/errors"
	"github.com/zhukovaskychina/xgrid-storage/server/common"
	"github.com/zhukovaskychina/xgrid-storage/server/storage/basic"
)

// InitNewPageRecord 页面初始化记录
// 后续所有针对该页面的增量都依赖它建立的结构
type InitNewPageRecord struct {
	pageDelta
}

func NewInitNewPageRecord(groupID uint32, pageID uint64) *InitNewPageRecord {
	return &InitNewPageRecord{pageDelta{groupID: groupID, pageID: pageID}}
}

func (r *InitNewPageRecord) Type() common.RecordType {
	return common.RecordTypeInitNewPage
}

// Marshal 载荷为空，页面标识在记录头里
func (r *InitNewPageRecord) Marshal() ([]byte, error) {
	return nil, nil
}

func (r *InitNewPageRecord) Unmarshal(payload []byte) error {
	if len(payload) != 0 {
		return errors.Annotatef(ErrBadPayload, "init new page record expects empty payload, got %d bytes", len(payload))
	}
	return nil
}

func (r *InitNewPageRecord) ApplyDelta(page basic.PageMutator) error {
	page.InitPage(r.groupID, r.pageID)
	return nil
}
