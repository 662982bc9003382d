package layout

import (
	"encoding/binary"
	"fmt"

	"github.com/holiman/uint256"
)

// Schema is an immutable ordered list of fields with precomputed offsets.
type Schema struct {
	fields  []Field
	offsets []int
	size    int
	codec   KeyCodec
}

// NewSchema validates fields and computes their offsets.
func NewSchema(fields ...Field) (*Schema, error) {
	s := &Schema{
		fields:  make([]Field, len(fields)),
		offsets: make([]int, len(fields)),
		codec:   Base58,
	}
	copy(s.fields, fields)

	names := make(map[string]struct{}, len(fields))
	for i, f := range s.fields {
		if err := validateField(f); err != nil {
			return nil, fmt.Errorf("%w: field %d (%q): %v", ErrInvalidSchema, i, f.Name, err)
		}
		if f.Kind != KindPadding {
			if _, dup := names[f.Name]; dup {
				return nil, fmt.Errorf("%w: duplicate field %q", ErrInvalidSchema, f.Name)
			}
			names[f.Name] = struct{}{}
		}
		s.offsets[i] = s.size
		s.size += f.Size()
	}

	return s, nil
}

// MustSchema is NewSchema that panics on error. Intended for package-level schemas.
func MustSchema(fields ...Field) *Schema {
	s, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

func validateField(f Field) error {
	if f.Repeat < 0 {
		return fmt.Errorf("sequence needs a positive count and a scalar element")
	}
	switch f.Kind {
	case KindPadding:
		if f.Width <= 0 {
			return fmt.Errorf("padding width must be positive")
		}
		return nil
	case KindBlob:
		if f.Width <= 0 {
			return fmt.Errorf("blob width must be positive")
		}
	case KindUint:
		switch f.Width {
		case 1, 2, 4, 8, 16:
		default:
			return fmt.Errorf("unsupported integer width %d", f.Width)
		}
	case KindBool:
		if f.Width != 1 {
			return fmt.Errorf("bool width must be 1, got %d", f.Width)
		}
	case KindPublicKey:
		if f.Width != PublicKeySize {
			return fmt.Errorf("public key width must be %d, got %d", PublicKeySize, f.Width)
		}
	default:
		return fmt.Errorf("unknown kind %d", f.Kind)
	}
	if f.Name == "" {
		return fmt.Errorf("%s field needs a name", f.Kind)
	}
	return nil
}

// Size returns the total byte length of a buffer matching the schema.
func (s *Schema) Size() int { return s.size }

// Fields returns a copy of the field list.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Offset returns the byte offset of the named field.
func (s *Schema) Offset(name string) (int, bool) {
	for i, f := range s.fields {
		if f.Kind != KindPadding && f.Name == name {
			return s.offsets[i], true
		}
	}
	return 0, false
}

// WithCodec returns a copy of the schema that renders keys with codec.
func (s *Schema) WithCodec(codec KeyCodec) *Schema {
	cp := *s
	cp.codec = codec
	return &cp
}

// Decode parses buf into a Record. buf must be exactly Size() bytes.
func (s *Schema) Decode(buf []byte) (Record, error) {
	if len(buf) != s.size {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrLengthMismatch, len(buf), s.size)
	}

	rec := make(Record, len(s.fields))
	for i, f := range s.fields {
		if f.Kind == KindPadding {
			continue
		}
		off := s.offsets[i]
		if f.Repeat > 0 {
			items := make([]Value, f.Repeat)
			for j := range items {
				start := off + j*f.Width
				items[j] = s.decodeScalar(f, buf[start:start+f.Width])
			}
			rec[f.Name] = SeqValue(items...)
			continue
		}
		rec[f.Name] = s.decodeScalar(f, buf[off:off+f.Width])
	}
	return rec, nil
}

func (s *Schema) decodeScalar(f Field, b []byte) Value {
	switch f.Kind {
	case KindUint:
		switch f.Width {
		case 1:
			return UintValue(uint64(b[0]))
		case 2:
			return UintValue(uint64(binary.LittleEndian.Uint16(b)))
		case 4:
			return UintValue(uint64(binary.LittleEndian.Uint32(b)))
		case 8:
			return UintValue(binary.LittleEndian.Uint64(b))
		default:
			be := make([]byte, len(b))
			for i := range b {
				be[len(b)-1-i] = b[i]
			}
			return Value{kind: valBig, big: new(uint256.Int).SetBytes(be)}
		}
	case KindBool:
		return BoolValue(b[0] != 0)
	case KindPublicKey:
		return KeyValue(s.codec.EncodeKey(b))
	default:
		return BlobValue(b)
	}
}

// Encode serializes rec. Every named field must be present; padding is zero-filled.
func (s *Schema) Encode(rec Record) ([]byte, error) {
	buf := make([]byte, s.size)
	for i, f := range s.fields {
		if f.Kind == KindPadding {
			continue
		}
		v, ok := rec[f.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, f.Name)
		}
		off := s.offsets[i]
		if f.Repeat > 0 {
			items, ok := v.Items()
			if !ok {
				return nil, fmt.Errorf("%w: %s expects a sequence", ErrInvalidValue, f.Name)
			}
			if len(items) != f.Repeat {
				return nil, fmt.Errorf("%w: %s has %d items, want %d", ErrInvalidValue, f.Name, len(items), f.Repeat)
			}
			for j, item := range items {
				start := off + j*f.Width
				if err := s.encodeScalar(f, item, buf[start:start+f.Width]); err != nil {
					return nil, err
				}
			}
			continue
		}
		if err := s.encodeScalar(f, v, buf[off:off+f.Width]); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func (s *Schema) encodeScalar(f Field, v Value, dst []byte) error {
	switch f.Kind {
	case KindUint:
		if f.Width == 16 {
			n, ok := v.U128()
			if !ok {
				return fmt.Errorf("%w: %s expects an integer", ErrInvalidValue, f.Name)
			}
			if n.BitLen() > 128 {
				return fmt.Errorf("%w: %s overflows 128 bits", ErrInvalidValue, f.Name)
			}
			be := n.Bytes32()
			for i := 0; i < 16; i++ {
				dst[i] = be[31-i]
			}
			return nil
		}
		n, ok := v.Uint()
		if !ok {
			return fmt.Errorf("%w: %s expects a 64-bit integer", ErrInvalidValue, f.Name)
		}
		if f.Width < 8 && n>>(8*uint(f.Width)) != 0 {
			return fmt.Errorf("%w: %s value %d overflows %d bytes", ErrInvalidValue, f.Name, n, f.Width)
		}
		switch f.Width {
		case 1:
			dst[0] = byte(n)
		case 2:
			binary.LittleEndian.PutUint16(dst, uint16(n))
		case 4:
			binary.LittleEndian.PutUint32(dst, uint32(n))
		case 8:
			binary.LittleEndian.PutUint64(dst, n)
		}
	case KindBool:
		b, ok := v.Bool()
		if !ok {
			return fmt.Errorf("%w: %s expects a bool", ErrInvalidValue, f.Name)
		}
		if b {
			dst[0] = 1
		}
	case KindPublicKey:
		k, ok := v.Key()
		if !ok {
			return fmt.Errorf("%w: %s expects a public key", ErrInvalidValue, f.Name)
		}
		raw, err := s.codec.DecodeKey(k)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidValue, f.Name, err)
		}
		if len(raw) != PublicKeySize {
			return fmt.Errorf("%w: %s key is %d bytes", ErrInvalidValue, f.Name, len(raw))
		}
		copy(dst, raw)
	case KindBlob:
		raw, ok := v.Blob()
		if !ok {
			return fmt.Errorf("%w: %s expects raw bytes", ErrInvalidValue, f.Name)
		}
		if len(raw) != f.Width {
			return fmt.Errorf("%w: %s has %d bytes, want %d", ErrInvalidValue, f.Name, len(raw), f.Width)
		}
		copy(dst, raw)
	}
	return nil
}
