package record

import (
	"github.com/juju/errors"
	"github.com/piex/transcode"
	"github.com/zhukovaskychina/xgrid-storage/server/common"
	"github.com/zhukovaskychina/xgrid-storage/util"
)

// 数据项键值的内置类型码
const (
	EntryTypeBytes     byte = iota // 原始字节
	EntryTypeString                // UTF-8字符串
	EntryTypeGBKString             // GBK编码字符串
)

// DataEntryRecord 未解析的键值数据项记录
// 反序列化阶段不还原成上层对象模型，键值保持字节形态
// 值为空表示逻辑删除
type DataEntryRecord struct {
	groupID  uint32
	pageID   uint64
	keyType  byte
	keyBytes []byte
	valType  byte
	valBytes []byte
}

func NewDataEntryRecord(groupID uint32, pageID uint64, keyType byte, key []byte, valType byte, val []byte) *DataEntryRecord {
	return &DataEntryRecord{
		groupID:  groupID,
		pageID:   pageID,
		keyType:  keyType,
		keyBytes: key,
		valType:  valType,
		valBytes: val,
	}
}

func (r *DataEntryRecord) Type() common.RecordType {
	return common.RecordTypeDataEntry
}

func (r *DataEntryRecord) GroupID() uint32 {
	return r.groupID
}

func (r *DataEntryRecord) PageID() uint64 {
	return r.pageID
}

func (r *DataEntryRecord) KeyType() byte {
	return r.keyType
}

func (r *DataEntryRecord) KeyBytes() []byte {
	return r.keyBytes
}

func (r *DataEntryRecord) ValType() byte {
	return r.valType
}

func (r *DataEntryRecord) ValBytes() []byte {
	return r.valBytes
}

// IsRemove 值为空的项表示逻辑删除
func (r *DataEntryRecord) IsRemove() bool {
	return len(r.valBytes) == 0
}

// KeyString 按类型码解码键
func (r *DataEntryRecord) KeyString() string {
	return decodeEntryString(r.keyType, r.keyBytes)
}

// ValueString 按类型码解码值
func (r *DataEntryRecord) ValueString() string {
	return decodeEntryString(r.valType, r.valBytes)
}

func decodeEntryString(typeCode byte, raw []byte) string {
	if typeCode == EntryTypeGBKString {
		return transcode.FromByteArray(raw).Decode("GBK").ToString()
	}
	return string(raw)
}

// Marshal 载荷: keyType(1) + 键长(UB4) + 键 + valType(1) + 值长(UB4) + 值
func (r *DataEntryRecord) Marshal() ([]byte, error) {
	buf := make([]byte, 0, 1+4+len(r.keyBytes)+1+4+len(r.valBytes))
	buf = util.WriteByte(buf, r.keyType)
	buf = util.WriteWithLength(buf, r.keyBytes)
	buf = util.WriteByte(buf, r.valType)
	buf = util.WriteWithLength(buf, r.valBytes)
	return buf, nil
}

func (r *DataEntryRecord) Unmarshal(payload []byte) error {
	if len(payload) < 10 {
		return errors.Annotatef(ErrBadPayload, "data entry record too short: %d bytes", len(payload))
	}
	cursor, keyType := util.ReadByte(payload, 0)
	cursor, keyLen := util.ReadUB4(payload, cursor)
	if cursor+int(keyLen)+5 > len(payload) {
		return errors.Annotatef(ErrBadPayload, "data entry record key overruns payload")
	}
	cursor, key := util.ReadBytes(payload, cursor, int(keyLen))
	cursor, valType := util.ReadByte(payload, cursor)
	cursor, valLen := util.ReadUB4(payload, cursor)
	if len(payload)-cursor != int(valLen) {
		return errors.Annotatef(ErrBadPayload, "data entry record value length mismatch: declared %d, left %d", valLen, len(payload)-cursor)
	}
	_, val := util.ReadBytes(payload, cursor, int(valLen))

	r.keyType = keyType
	r.keyBytes = append([]byte(nil), key...)
	r.valType = valType
	r.valBytes = append([]byte(nil), val...)
	return nil
}
