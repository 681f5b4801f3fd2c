package roadnet

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	blobFormat        = "globalplanner/roadnet"
	blobFormatVersion = 1
)

type blobEnvelope struct {
	Format  string  `msgpack:"format"`
	Version int     `msgpack:"version"`
	Bundle  *Bundle `msgpack:"bundle"`
}

// EncodeBlob serializes a bundle into the prebuilt map blob format.
func EncodeBlob(b *Bundle) ([]byte, error) {
	data, err := msgpack.Marshal(blobEnvelope{Format: blobFormat, Version: blobFormatVersion, Bundle: b})
	if err != nil {
		return nil, fmt.Errorf("failed to encode map blob: %w", err)
	}
	return data, nil
}

// DecodeBlob parses a prebuilt map blob.
func DecodeBlob(data []byte) (*Bundle, error) {
	var env blobEnvelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBlob, err)
	}
	if env.Format != blobFormat {
		return nil, fmt.Errorf("%w: unexpected format %q", ErrInvalidBlob, env.Format)
	}
	if env.Version != blobFormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidBlob, env.Version)
	}
	if env.Bundle == nil {
		return nil, fmt.Errorf("%w: missing bundle", ErrInvalidBlob)
	}
	return env.Bundle, nil
}
