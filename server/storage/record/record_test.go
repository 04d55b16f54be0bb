package record

import (
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhukovaskychina/xgrid-storage/server/common"
)

func TestRecordCodec(t *testing.T) {
	t.Run("页面初始化记录往返", func(t *testing.T) {
		body, err := MarshalRecord(NewInitNewPageRecord(3, 42))
		require.NoError(t, err)

		rec, err := UnmarshalRecord(body)
		require.NoError(t, err)
		got, ok := rec.(*InitNewPageRecord)
		require.True(t, ok)
		assert.Equal(t, uint32(3), got.GroupID())
		assert.Equal(t, uint64(42), got.PageID())
	})

	t.Run("插入记录往返", func(t *testing.T) {
		row := []byte("order=1001,amount=250")
		body, err := MarshalRecord(NewDataPageInsertRecord(1, 7, 5, row))
		require.NoError(t, err)

		rec, err := UnmarshalRecord(body)
		require.NoError(t, err)
		got, ok := rec.(*DataPageInsertRecord)
		require.True(t, ok)
		assert.Equal(t, uint16(5), got.ItemID())
		assert.Equal(t, row, got.Row())
	})

	t.Run("删除记录往返", func(t *testing.T) {
		body, err := MarshalRecord(NewDataPageRemoveRecord(1, 7, 9))
		require.NoError(t, err)

		rec, err := UnmarshalRecord(body)
		require.NoError(t, err)
		got, ok := rec.(*DataPageRemoveRecord)
		require.True(t, ok)
		assert.Equal(t, uint16(9), got.ItemID())
	})

	t.Run("事务状态提示往返", func(t *testing.T) {
		body, err := MarshalRecord(NewMvccTxStateHintRecord(2, 8, 3, common.TxStateCommitted))
		require.NoError(t, err)

		rec, err := UnmarshalRecord(body)
		require.NoError(t, err)
		got, ok := rec.(*MvccTxStateHintRecord)
		require.True(t, ok)
		assert.Equal(t, uint16(3), got.ItemID())
		assert.Equal(t, common.TxStateCommitted, got.TxState())
	})

	t.Run("检查点记录往返", func(t *testing.T) {
		mark := common.WALPointer{SegmentID: 4, Offset: 8192}
		body, err := MarshalRecord(NewCheckpointRecord(11, mark))
		require.NoError(t, err)

		rec, err := UnmarshalRecord(body)
		require.NoError(t, err)
		got, ok := rec.(*CheckpointRecord)
		require.True(t, ok)
		assert.Equal(t, uint64(11), got.CheckpointID())
		assert.Equal(t, mark, got.Mark())
	})

	t.Run("未知类型码", func(t *testing.T) {
		body, err := MarshalRecord(NewInitNewPageRecord(1, 1))
		require.NoError(t, err)
		body[0] = 0xEE

		_, err = UnmarshalRecord(body)
		assert.True(t, errors.Cause(err) == ErrUnknownRecordType)
	})

	t.Run("记录体过短", func(t *testing.T) {
		_, err := UnmarshalRecord([]byte{0x01, 0x02})
		assert.True(t, errors.Cause(err) == ErrBadPayload)
	})

	t.Run("载荷截断", func(t *testing.T) {
		body, err := MarshalRecord(NewDataPageInsertRecord(1, 7, 5, []byte("truncate me")))
		require.NoError(t, err)

		_, err = UnmarshalRecord(body[:len(body)-4])
		assert.Error(t, err)
	})

	t.Run("非法事务状态拒绝", func(t *testing.T) {
		body, err := MarshalRecord(NewMvccTxStateHintRecord(2, 8, 3, common.TxStateAborted))
		require.NoError(t, err)
		body[len(body)-1] = 0x7F

		_, err = UnmarshalRecord(body)
		assert.Error(t, err)
	})
}

func TestDataEntryRecord(t *testing.T) {
	t.Run("键值往返", func(t *testing.T) {
		entry := NewDataEntryRecord(9, 77, EntryTypeString, []byte("user:1"), EntryTypeBytes, []byte{0xCA, 0xFE})
		body, err := MarshalRecord(entry)
		require.NoError(t, err)

		rec, err := UnmarshalRecord(body)
		require.NoError(t, err)
		got, ok := rec.(*DataEntryRecord)
		require.True(t, ok)
		assert.Equal(t, "user:1", got.KeyString())
		assert.Equal(t, []byte{0xCA, 0xFE}, got.ValBytes())
		assert.False(t, got.IsRemove())
	})

	t.Run("空值表示删除", func(t *testing.T) {
		entry := NewDataEntryRecord(9, 77, EntryTypeString, []byte("user:1"), EntryTypeBytes, nil)
		body, err := MarshalRecord(entry)
		require.NoError(t, err)

		rec, err := UnmarshalRecord(body)
		require.NoError(t, err)
		assert.True(t, rec.(*DataEntryRecord).IsRemove())
	})

	t.Run("GBK字符串解码", func(t *testing.T) {
		// "中文" 的GBK编码
		gbk := []byte{0xD6, 0xD0, 0xCE, 0xC4}
		entry := NewDataEntryRecord(9, 77, EntryTypeGBKString, gbk, EntryTypeString, []byte("v"))
		body, err := MarshalRecord(entry)
		require.NoError(t, err)

		rec, err := UnmarshalRecord(body)
		require.NoError(t, err)
		assert.Equal(t, "中文", rec.(*DataEntryRecord).KeyString())
	})
}
