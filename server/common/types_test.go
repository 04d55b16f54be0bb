package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWALPointerOrdering(t *testing.T) {
	t.Run("段号优先比较", func(t *testing.T) {
		assert.True(t, WALPointer{SegmentID: 1, Offset: 9999}.Less(WALPointer{SegmentID: 2, Offset: 0}))
		assert.False(t, WALPointer{SegmentID: 2, Offset: 0}.Less(WALPointer{SegmentID: 1, Offset: 9999}))
	})

	t.Run("同段比偏移", func(t *testing.T) {
		assert.True(t, WALPointer{SegmentID: 3, Offset: 10}.Less(WALPointer{SegmentID: 3, Offset: 11}))
		assert.False(t, WALPointer{SegmentID: 3, Offset: 11}.Less(WALPointer{SegmentID: 3, Offset: 11}))
	})

	t.Run("零值判定", func(t *testing.T) {
		assert.True(t, WALPointer{}.IsZero())
		assert.False(t, WALPointer{Offset: 1}.IsZero())
	})
}

func TestTxState(t *testing.T) {
	for _, st := range []TxState{TxStateAbsent, TxStateActive, TxStateCommitted, TxStateAborted} {
		assert.True(t, st.Valid())
		assert.NotEqual(t, "UNKNOWN", st.String())
	}
	assert.False(t, TxState(0x7F).Valid())
}
