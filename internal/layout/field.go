// Package layout decodes and encodes fixed-size binary account records
// described by a declarative list of fields.
package layout

// Kind identifies how a field's bytes are interpreted.
type Kind int

const (
	// KindPadding is an unnamed gap: skipped on decode, zero-filled on encode.
	KindPadding Kind = iota
	// KindBlob is an opaque named byte range copied verbatim both ways.
	KindBlob
	// KindUint is a little-endian unsigned integer of width 1, 2, 4, 8 or 16.
	KindUint
	// KindBool is a single byte, nonzero meaning true.
	KindBool
	// KindPublicKey is a 32-byte account identifier rendered through a KeyCodec.
	KindPublicKey
)

// PublicKeySize is the width of an account identifier.
const PublicKeySize = 32

// DiscriminatorSize is the width of the opaque account-type prefix.
const DiscriminatorSize = 8

func (k Kind) String() string {
	switch k {
	case KindPadding:
		return "padding"
	case KindBlob:
		return "blob"
	case KindUint:
		return "uint"
	case KindBool:
		return "bool"
	case KindPublicKey:
		return "publicKey"
	default:
		return "unknown"
	}
}

// Field describes one entry of a schema.
// Width is the size of a single element; Repeat > 0 turns the field into
// a fixed-length sequence of Repeat elements.
type Field struct {
	Name   string
	Kind   Kind
	Width  int
	Repeat int
}

// Size returns the number of bytes the field occupies.
func (f Field) Size() int {
	if f.Repeat > 0 {
		return f.Width * f.Repeat
	}
	return f.Width
}

// Padding returns an unnamed n-byte gap.
func Padding(n int) Field { return Field{Kind: KindPadding, Width: n} }

// Blob returns a named opaque n-byte field.
func Blob(name string, n int) Field { return Field{Name: name, Kind: KindBlob, Width: n} }

// Discriminator returns the 8-byte account-type prefix field.
func Discriminator() Field { return Blob("discriminator", DiscriminatorSize) }

func U8(name string) Field   { return Field{Name: name, Kind: KindUint, Width: 1} }
func U16(name string) Field  { return Field{Name: name, Kind: KindUint, Width: 2} }
func U32(name string) Field  { return Field{Name: name, Kind: KindUint, Width: 4} }
func U64(name string) Field  { return Field{Name: name, Kind: KindUint, Width: 8} }
func U128(name string) Field { return Field{Name: name, Kind: KindUint, Width: 16} }

// Bool returns a one-byte boolean field.
func Bool(name string) Field { return Field{Name: name, Kind: KindBool, Width: 1} }

// PublicKey returns a 32-byte account identifier field.
func PublicKey(name string) Field {
	return Field{Name: name, Kind: KindPublicKey, Width: PublicKeySize}
}

// Seq repeats elem count times under name. The element's own name is ignored.
// A non-positive count or a nested sequence yields a field NewSchema rejects.
func Seq(name string, elem Field, count int) Field {
	elem.Name = name
	if count < 1 || elem.Repeat != 0 {
		elem.Repeat = -1
		return elem
	}
	elem.Repeat = count
	return elem
}
