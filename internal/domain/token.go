package domain

import (
	"encoding/json"
	"fmt"
)

// Well-known identifiers.
const (
	// NativeMint is the wrapped SOL mint address.
	NativeMint = "So11111111111111111111111111111111111111112"
	// NativeAlias is the symbolic name accepted in place of NativeMint.
	NativeAlias = "sol"

	TokenProgramID     = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	Token2022ProgramID = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnboZdVeEXvBtb"

	MainnetChainID = 101
)

// Token priorities by how the record was obtained.
const (
	PriorityOfficial = 0
	PriorityListed   = 1
	PriorityAPI      = 2
	PriorityLedger   = 0
)

// TypeUnknown marks records synthesized from raw mint accounts.
const TypeUnknown = "unknown"

// TokenRecord is one token's metadata keyed by Address.
type TokenRecord struct {
	ChainID    int        `json:"chainId"`
	Address    string     `json:"address"`
	ProgramID  string     `json:"programId"`
	LogoURI    string     `json:"logoURI"`
	Symbol     string     `json:"symbol"`
	Name       string     `json:"name"`
	Decimals   int        `json:"decimals"`
	Tags       TagSet     `json:"tags"`
	Priority   int        `json:"priority"`
	Type       string     `json:"type,omitempty"`
	Extensions Extensions `json:"extensions"`
}

// Clone returns a deep copy.
func (t TokenRecord) Clone() TokenRecord {
	out := t
	out.Tags = t.Tags.Clone()
	out.Extensions = t.Extensions.Clone()
	return out
}

// NativeToken returns the built-in SOL record.
func NativeToken() TokenRecord {
	return TokenRecord{
		ChainID:   MainnetChainID,
		Address:   NativeMint,
		ProgramID: TokenProgramID,
		LogoURI:   "https://img-v1.raydium.io/icon/So11111111111111111111111111111111111111112.png",
		Symbol:    "SOL",
		Name:      "Solana",
		Decimals:  9,
		Tags:      TagSet{},
		Priority:  PriorityOfficial,
		Type:      "raydium",
		Extensions: Extensions{
			CoingeckoID: ptr("solana"),
		},
	}
}

// TagSet is an insertion-ordered set of tags.
type TagSet []string

// NewTagSet de-duplicates tags, keeping first occurrences.
func NewTagSet(tags ...string) TagSet {
	out := make(TagSet, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// Has reports whether tag is in the set.
func (s TagSet) Has(tag string) bool {
	for _, t := range s {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone returns a copy.
func (s TagSet) Clone() TagSet {
	if s == nil {
		return nil
	}
	return append(TagSet{}, s...)
}

// UnmarshalJSON de-duplicates the incoming array.
func (s *TagSet) UnmarshalJSON(data []byte) error {
	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode tags: %w", err)
	}
	*s = NewTagSet(raw...)
	return nil
}

// MarshalJSON renders nil as an empty array.
func (s TagSet) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(s))
}

func ptr[T any](v T) *T {
	return &v
}

// TokenList is the bulk external list together with addresses the
// publisher marks as blacklisted.
type TokenList struct {
	Tokens    []TokenRecord
	Blacklist []string
}
