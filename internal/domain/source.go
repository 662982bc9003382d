package domain

// Source identifies where a token record in the registry came from.
type Source string

const (
	// SourceOfficial is the built-in native asset.
	SourceOfficial Source = "official"
	// SourceExternal is the bulk external token list.
	SourceExternal Source = "external"
	// SourceCurated is the locally supplied list plus lazily resolved tokens.
	SourceCurated Source = "curated"
)

// Sources lists all provenance groups in merge order.
var Sources = []Source{SourceOfficial, SourceExternal, SourceCurated}

// String returns the string representation of Source.
func (s Source) String() string {
	return string(s)
}

// IsValid checks if the source is a valid value.
func (s Source) IsValid() bool {
	return s == SourceOfficial || s == SourceExternal || s == SourceCurated
}
