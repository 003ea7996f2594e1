package cache

import (
	"github.com/klauspost/compress/zstd"
)

// Codec compresses cached bodies. The zero value is not usable; use NewZstdCodec.
type Codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewZstdCodec builds a codec whose encoder and decoder are safe for concurrent
// EncodeAll/DecodeAll calls.
func NewZstdCodec() (*Codec, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, err
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, err
	}
	return &Codec{encoder: encoder, decoder: decoder}, nil
}

func (c *Codec) Compress(data []byte) []byte {
	return c.encoder.EncodeAll(data, nil)
}

func (c *Codec) Decompress(data []byte) ([]byte, error) {
	return c.decoder.DecodeAll(data, nil)
}

func (c *Codec) Close() {
	c.encoder.Close()
	c.decoder.Close()
}
