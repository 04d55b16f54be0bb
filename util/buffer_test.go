package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferWriterReader(t *testing.T) {
	t.Run("定长整数读写往返", func(t *testing.T) {
		var buf []byte
		buf = WriteByte(buf, 0x7F)
		buf = WriteUB2(buf, 0xBEEF)
		buf = WriteUB4(buf, 0xDEADBEEF)
		buf = WriteUB8(buf, 0x0102030405060708)

		cursor, b := ReadByte(buf, 0)
		assert.Equal(t, byte(0x7F), b)
		cursor, u2 := ReadUB2(buf, cursor)
		assert.Equal(t, uint16(0xBEEF), u2)
		cursor, u4 := ReadUB4(buf, cursor)
		assert.Equal(t, uint32(0xDEADBEEF), u4)
		cursor, u8 := ReadUB8(buf, cursor)
		assert.Equal(t, uint64(0x0102030405060708), u8)
		assert.Equal(t, len(buf), cursor)
	})

	t.Run("带长度前缀往返", func(t *testing.T) {
		payload := []byte("hello xgrid")
		var buf []byte
		buf = WriteWithLength(buf, payload)

		cursor, got := ReadWithLength(buf, 0)
		require.Equal(t, payload, got)
		assert.Equal(t, len(buf), cursor)
	})

	t.Run("空串带长度前缀", func(t *testing.T) {
		buf := WriteWithLength(nil, nil)
		cursor, got := ReadWithLength(buf, 0)
		assert.Empty(t, got)
		assert.Equal(t, 4, cursor)
	})

	t.Run("原地写入", func(t *testing.T) {
		buf := make([]byte, 14)
		WriteUB2At(buf, 0, 0x1122)
		WriteUB4At(buf, 2, 0x33445566)
		WriteUB8At(buf, 6, 0x778899AABBCCDDEE)

		_, u2 := ReadUB2(buf, 0)
		assert.Equal(t, uint16(0x1122), u2)
		_, u4 := ReadUB4(buf, 2)
		assert.Equal(t, uint32(0x33445566), u4)
		_, u8 := ReadUB8(buf, 6)
		assert.Equal(t, uint64(0x778899AABBCCDDEE), u8)
	})

	t.Run("字节段读取", func(t *testing.T) {
		buf := WriteBytes(nil, []byte{1, 2, 3, 4, 5})
		cursor, got := ReadBytes(buf, 1, 3)
		assert.Equal(t, []byte{2, 3, 4}, got)
		assert.Equal(t, 4, cursor)
	})
}

func TestChecksum32(t *testing.T) {
	data := []byte("the quick brown fox")
	sum := Checksum32(data)
	assert.Equal(t, sum, Checksum32(data))

	mutated := append([]byte{}, data...)
	mutated[0] ^= 0xFF
	assert.NotEqual(t, sum, Checksum32(mutated))
}
