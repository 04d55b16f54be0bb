package record

import (
	"github.com/juju/errors"
	"github.com/zhukovaskychina/xgrid-storage/server/common"
	"github.com/zhukovaskychina/xgrid-storage/util"
)

// CheckpointRecord 检查点标记记录
// Mark之前的增量已被页面快照覆盖，回放可以从Mark开始
type CheckpointRecord struct {
	checkpointID uint64
	mark         common.WALPointer
}

func NewCheckpointRecord(checkpointID uint64, mark common.WALPointer) *CheckpointRecord {
	return &CheckpointRecord{checkpointID: checkpointID, mark: mark}
}

func (r *CheckpointRecord) Type() common.RecordType {
	return common.RecordTypeCheckpoint
}

// GroupID 检查点不针对具体页面
func (r *CheckpointRecord) GroupID() uint32 {
	return 0
}

func (r *CheckpointRecord) PageID() uint64 {
	return 0
}

func (r *CheckpointRecord) CheckpointID() uint64 {
	return r.checkpointID
}

func (r *CheckpointRecord) Mark() common.WALPointer {
	return r.mark
}

// Marshal 载荷: checkpointId(UB8) + 段号(UB8) + 段内偏移(UB8)
func (r *CheckpointRecord) Marshal() ([]byte, error) {
	buf := make([]byte, 0, 24)
	buf = util.WriteUB8(buf, r.checkpointID)
	buf = util.WriteUB8(buf, r.mark.SegmentID)
	buf = util.WriteUB8(buf, uint64(r.mark.Offset))
	return buf, nil
}

func (r *CheckpointRecord) Unmarshal(payload []byte) error {
	if len(payload) != 24 {
		return errors.Annotatef(ErrBadPayload, "checkpoint record expects 24 bytes, got %d", len(payload))
	}
	cursor, id := util.ReadUB8(payload, 0)
	cursor, segID := util.ReadUB8(payload, cursor)
	_, off := util.ReadUB8(payload, cursor)
	r.checkpointID = id
	r.mark = common.WALPointer{SegmentID: segID, Offset: int64(off)}
	return nil
}
