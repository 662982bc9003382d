package layout

import (
	"fmt"

	"github.com/holiman/uint256"
)

type valueKind uint8

const (
	valNone valueKind = iota
	valUint
	valBig
	valBool
	valKey
	valBlob
	valSeq
)

// Value is a decoded field: an unsigned integer, a 128-bit integer, a bool,
// an account identifier, an opaque blob or a sequence of values.
type Value struct {
	kind  valueKind
	u     uint64
	big   *uint256.Int
	b     bool
	key   string
	raw   []byte
	items []Value
}

// UintValue wraps an integer of up to 64 bits.
func UintValue(v uint64) Value { return Value{kind: valUint, u: v} }

// BigValue wraps an integer wider than 64 bits. The argument is copied.
func BigValue(v *uint256.Int) Value {
	if v == nil {
		v = new(uint256.Int)
	}
	return Value{kind: valBig, big: v.Clone()}
}

// BoolValue wraps a boolean.
func BoolValue(v bool) Value { return Value{kind: valBool, b: v} }

// KeyValue wraps an account identifier in its codec string form.
func KeyValue(v string) Value { return Value{kind: valKey, key: v} }

// BlobValue wraps raw bytes. The argument is copied.
func BlobValue(v []byte) Value {
	return Value{kind: valBlob, raw: append([]byte(nil), v...)}
}

// SeqValue wraps an ordered list of values.
func SeqValue(items ...Value) Value { return Value{kind: valSeq, items: items} }

// Uint returns the value as uint64. 128-bit values convert when they fit.
func (v Value) Uint() (uint64, bool) {
	switch v.kind {
	case valUint:
		return v.u, true
	case valBig:
		if v.big.IsUint64() {
			return v.big.Uint64(), true
		}
	}
	return 0, false
}

// U128 returns the value as a 256-bit container holding at most 128 bits.
func (v Value) U128() (*uint256.Int, bool) {
	switch v.kind {
	case valUint:
		return uint256.NewInt(v.u), true
	case valBig:
		return v.big.Clone(), true
	}
	return nil, false
}

// Bool returns the value as bool.
func (v Value) Bool() (bool, bool) {
	if v.kind != valBool {
		return false, false
	}
	return v.b, true
}

// Key returns the value as an account identifier string.
func (v Value) Key() (string, bool) {
	if v.kind != valKey {
		return "", false
	}
	return v.key, true
}

// Blob returns a copy of the raw bytes.
func (v Value) Blob() ([]byte, bool) {
	if v.kind != valBlob {
		return nil, false
	}
	return append([]byte(nil), v.raw...), true
}

// Items returns the elements of a sequence value.
func (v Value) Items() ([]Value, bool) {
	if v.kind != valSeq {
		return nil, false
	}
	return v.items, true
}

func (v Value) String() string {
	switch v.kind {
	case valUint:
		return fmt.Sprintf("%d", v.u)
	case valBig:
		return v.big.ToBig().String()
	case valBool:
		return fmt.Sprintf("%t", v.b)
	case valKey:
		return v.key
	case valBlob:
		return fmt.Sprintf("%x", v.raw)
	case valSeq:
		return fmt.Sprintf("%v", v.items)
	default:
		return "<none>"
	}
}

// Record maps field names to decoded values.
type Record map[string]Value

func (r Record) get(name string) (Value, error) {
	v, ok := r[name]
	if !ok {
		return Value{}, fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	return v, nil
}

// Uint returns the named integer field.
func (r Record) Uint(name string) (uint64, error) {
	v, err := r.get(name)
	if err != nil {
		return 0, err
	}
	n, ok := v.Uint()
	if !ok {
		return 0, fmt.Errorf("%w: %s is not a 64-bit integer", ErrInvalidValue, name)
	}
	return n, nil
}

// U128 returns the named wide integer field.
func (r Record) U128(name string) (*uint256.Int, error) {
	v, err := r.get(name)
	if err != nil {
		return nil, err
	}
	n, ok := v.U128()
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an integer", ErrInvalidValue, name)
	}
	return n, nil
}

// Bool returns the named boolean field.
func (r Record) Bool(name string) (bool, error) {
	v, err := r.get(name)
	if err != nil {
		return false, err
	}
	b, ok := v.Bool()
	if !ok {
		return false, fmt.Errorf("%w: %s is not a bool", ErrInvalidValue, name)
	}
	return b, nil
}

// Key returns the named account identifier field.
func (r Record) Key(name string) (string, error) {
	v, err := r.get(name)
	if err != nil {
		return "", err
	}
	k, ok := v.Key()
	if !ok {
		return "", fmt.Errorf("%w: %s is not a public key", ErrInvalidValue, name)
	}
	return k, nil
}

// Blob returns the named opaque field.
func (r Record) Blob(name string) ([]byte, error) {
	v, err := r.get(name)
	if err != nil {
		return nil, err
	}
	b, ok := v.Blob()
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a blob", ErrInvalidValue, name)
	}
	return b, nil
}

// Seq returns the elements of the named sequence field.
func (r Record) Seq(name string) ([]Value, error) {
	v, err := r.get(name)
	if err != nil {
		return nil, err
	}
	items, ok := v.Items()
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a sequence", ErrInvalidValue, name)
	}
	return items, nil
}

// recordReader reads typed fields and keeps the first error.
type recordReader struct {
	rec Record
	err error
}

func (rr *recordReader) uint(name string) uint64 {
	if rr.err != nil {
		return 0
	}
	n, err := rr.rec.Uint(name)
	rr.err = err
	return n
}

func (rr *recordReader) u128(name string) *uint256.Int {
	if rr.err != nil {
		return nil
	}
	n, err := rr.rec.U128(name)
	rr.err = err
	return n
}

func (rr *recordReader) bool(name string) bool {
	if rr.err != nil {
		return false
	}
	b, err := rr.rec.Bool(name)
	rr.err = err
	return b
}

func (rr *recordReader) key(name string) string {
	if rr.err != nil {
		return ""
	}
	k, err := rr.rec.Key(name)
	rr.err = err
	return k
}

func (rr *recordReader) blob(name string) []byte {
	if rr.err != nil {
		return nil
	}
	b, err := rr.rec.Blob(name)
	rr.err = err
	return b
}
