package page

import (
	"bytes"
	"compress/zlib"
	"io"

	"github.com/golang/snappy"
	"github.com/juju/errors"
	"github.com/pierrec/lz4/v4"
)

// 快照压缩方法常量
const (
	CompressionNone   uint8 = iota // 不压缩
	CompressionZlib                // zlib压缩
	CompressionSnappy              // snappy压缩
	CompressionLZ4                 // lz4压缩
)

// 压缩级别常量（仅zlib使用）
const (
	CompressionLevelNone    uint8 = 0
	CompressionLevelFastest uint8 = 1
	CompressionLevelDefault uint8 = 6
	CompressionLevelBest    uint8 = 9
)

// ErrUnknownCompression 未知压缩方法码
var ErrUnknownCompression = errors.New("unknown checkpoint compression method")

// CompressionMethodFromName 配置项字符串到方法码
func CompressionMethodFromName(name string) (uint8, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "zlib":
		return CompressionZlib, nil
	case "snappy":
		return CompressionSnappy, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, errors.Annotatef(ErrUnknownCompression, "method %q", name)
	}
}

// compressImage 压缩页面镜像
func compressImage(method, level uint8, src []byte) ([]byte, error) {
	switch method {
	case CompressionNone:
		return src, nil
	case CompressionZlib:
		buf := new(bytes.Buffer)
		w, err := zlib.NewWriterLevel(buf, int(level))
		if err != nil {
			return nil, errors.Trace(err)
		}
		if _, err := w.Write(src); err != nil {
			return nil, errors.Trace(err)
		}
		if err := w.Close(); err != nil {
			return nil, errors.Trace(err)
		}
		return buf.Bytes(), nil
	case CompressionSnappy:
		return snappy.Encode(nil, src), nil
	case CompressionLZ4:
		buf := new(bytes.Buffer)
		w := lz4.NewWriter(buf)
		if _, err := w.Write(src); err != nil {
			return nil, errors.Trace(err)
		}
		if err := w.Close(); err != nil {
			return nil, errors.Trace(err)
		}
		return buf.Bytes(), nil
	default:
		return nil, errors.Annotatef(ErrUnknownCompression, "method code %d", method)
	}
}

// decompressImage 解压页面镜像，rawLen为解压后的期望大小
func decompressImage(method uint8, src []byte, rawLen int) ([]byte, error) {
	switch method {
	case CompressionNone:
		return src, nil
	case CompressionZlib:
		r, err := zlib.NewReader(bytes.NewReader(src))
		if err != nil {
			return nil, errors.Trace(err)
		}
		defer r.Close()
		dst := make([]byte, rawLen)
		if _, err := io.ReadFull(r, dst); err != nil {
			return nil, errors.Trace(err)
		}
		return dst, nil
	case CompressionSnappy:
		dst, err := snappy.Decode(nil, src)
		if err != nil {
			return nil, errors.Trace(err)
		}
		return dst, nil
	case CompressionLZ4:
		r := lz4.NewReader(bytes.NewReader(src))
		dst := make([]byte, rawLen)
		if _, err := io.ReadFull(r, dst); err != nil {
			return nil, errors.Trace(err)
		}
		return dst, nil
	default:
		return nil, errors.Annotatef(ErrUnknownCompression, "method code %d", method)
	}
}
