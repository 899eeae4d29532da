package history

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// The encoder and decoder are safe for concurrent use and reused across calls.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("history: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("history: zstd decoder initialization failed: " + err.Error())
	}
}

func compressDiagnostics(text string) []byte {
	if text == "" {
		return nil
	}
	return zstdEncoder.EncodeAll([]byte(text), nil)
}

func decompressDiagnostics(data []byte) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	out, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return "", fmt.Errorf("zstd decompress: %w", err)
	}
	return string(out), nil
}
