package layout

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// KeyCodec converts 32-byte account identifiers to and from their string form.
type KeyCodec interface {
	EncodeKey(raw []byte) string
	DecodeKey(s string) ([]byte, error)
}

// Base58 is the canonical Solana address codec.
var Base58 KeyCodec = base58Codec{}

type base58Codec struct{}

func (base58Codec) EncodeKey(raw []byte) string {
	return base58.Encode(raw)
}

func (base58Codec) DecodeKey(s string) ([]byte, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode base58 key %q: %w", s, err)
	}
	return raw, nil
}
