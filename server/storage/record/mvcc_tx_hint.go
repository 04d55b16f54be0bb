package record

import (
	"github.com/juju/errors"
	"github.com/zhukovaskychina/xgrid-storage/server/common"
	"github.com/zhukovaskychina/xgrid-storage/server/storage/basic"
	"github.com/zhukovaskychina/xgrid-storage/util"
)

// MvccTxStateHintRecord MVCC事务状态提示更新记录
// 原地改写目标槽位的提示位，不移动行数据、不影响其他槽位
// 重复施加同一记录得到同一页面状态（崩溃后可能重放日志尾部）
type MvccTxStateHintRecord struct {
	pageDelta
	itemID  uint16
	txState common.TxState
}

func NewMvccTxStateHintRecord(groupID uint32, pageID uint64, itemID uint16, txState common.TxState) *MvccTxStateHintRecord {
	return &MvccTxStateHintRecord{
		pageDelta: pageDelta{groupID: groupID, pageID: pageID},
		itemID:    itemID,
		txState:   txState,
	}
}

func (r *MvccTxStateHintRecord) Type() common.RecordType {
	return common.RecordTypeMvccTxStateHint
}

func (r *MvccTxStateHintRecord) ItemID() uint16 {
	return r.itemID
}

func (r *MvccTxStateHintRecord) TxState() common.TxState {
	return r.txState
}

// Marshal 载荷: itemId(UB2) + txState(1字节)
func (r *MvccTxStateHintRecord) Marshal() ([]byte, error) {
	buf := make([]byte, 0, 3)
	buf = util.WriteUB2(buf, r.itemID)
	buf = util.WriteByte(buf, byte(r.txState))
	return buf, nil
}

func (r *MvccTxStateHintRecord) Unmarshal(payload []byte) error {
	if len(payload) != 3 {
		return errors.Annotatef(ErrBadPayload, "mvcc tx state hint record expects 3 bytes, got %d", len(payload))
	}
	cursor, itemID := util.ReadUB2(payload, 0)
	_, st := util.ReadByte(payload, cursor)
	if !common.TxState(st).Valid() {
		return errors.Annotatef(ErrBadPayload, "invalid tx state %d", st)
	}
	r.itemID = itemID
	r.txState = common.TxState(st)
	return nil
}

func (r *MvccTxStateHintRecord) ApplyDelta(page basic.PageMutator) error {
	return errors.Trace(page.UpdateTxState(r.itemID, r.txState))
}
