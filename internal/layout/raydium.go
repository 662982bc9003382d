package layout

import (
	"fmt"

	"github.com/holiman/uint256"
)

// PoolConfigSchema is the constant-product AMM fee configuration account.
var PoolConfigSchema = MustSchema(
	Discriminator(),
	U8("bump"),
	Bool("disableCreatePool"),
	U16("index"),
	U64("tradeFeeRate"),
	U64("protocolFeeRate"),
	U64("fundFeeRate"),
	U64("createPoolFee"),
	PublicKey("protocolOwner"),
	PublicKey("fundOwner"),
	Seq("padding", U64(""), 16),
)

// PoolStateSchema is the constant-product AMM pool account.
var PoolStateSchema = MustSchema(
	Discriminator(),
	PublicKey("configId"),
	PublicKey("poolCreator"),
	PublicKey("vaultA"),
	PublicKey("vaultB"),
	PublicKey("mintLp"),
	PublicKey("mintA"),
	PublicKey("mintB"),
	PublicKey("mintProgramA"),
	PublicKey("mintProgramB"),
	PublicKey("observationId"),
	U8("bump"),
	U8("status"),
	U8("lpDecimals"),
	U8("mintDecimalA"),
	U8("mintDecimalB"),
	U64("lpAmount"),
	U64("protocolFeesMintA"),
	U64("protocolFeesMintB"),
	U64("fundFeesMintA"),
	U64("fundFeesMintB"),
	U64("openTime"),
	U64("recentEpoch"),
	U128("cumulativeFeesA"),
	U128("cumulativeFeesB"),
	U128("cumulativeVolumeA"),
	U128("cumulativeVolumeB"),
	Seq("padding", U64(""), 23),
)

// MintSchema is the base SPL token mint account. Token-2022 mints append
// extension data after these bytes.
var MintSchema = MustSchema(
	U32("mintAuthorityOption"),
	PublicKey("mintAuthority"),
	U64("supply"),
	U8("decimals"),
	Bool("isInitialized"),
	U32("freezeAuthorityOption"),
	PublicKey("freezeAuthority"),
)

// PoolConfig is the typed view of PoolConfigSchema.
type PoolConfig struct {
	Discriminator     []byte `json:"-"`
	Bump              uint8  `json:"bump"`
	DisableCreatePool bool   `json:"disableCreatePool"`
	Index             uint16 `json:"index"`
	TradeFeeRate      uint64 `json:"tradeFeeRate"`
	ProtocolFeeRate   uint64 `json:"protocolFeeRate"`
	FundFeeRate       uint64 `json:"fundFeeRate"`
	CreatePoolFee     uint64 `json:"createPoolFee"`
	ProtocolOwner     string `json:"protocolOwner"`
	FundOwner         string `json:"fundOwner"`
}

// DecodePoolConfig decodes a pool configuration account.
func DecodePoolConfig(data []byte) (*PoolConfig, error) {
	rec, err := PoolConfigSchema.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode pool config: %w", err)
	}
	rr := &recordReader{rec: rec}
	cfg := &PoolConfig{
		Discriminator:     rr.blob("discriminator"),
		Bump:              uint8(rr.uint("bump")),
		DisableCreatePool: rr.bool("disableCreatePool"),
		Index:             uint16(rr.uint("index")),
		TradeFeeRate:      rr.uint("tradeFeeRate"),
		ProtocolFeeRate:   rr.uint("protocolFeeRate"),
		FundFeeRate:       rr.uint("fundFeeRate"),
		CreatePoolFee:     rr.uint("createPoolFee"),
		ProtocolOwner:     rr.key("protocolOwner"),
		FundOwner:         rr.key("fundOwner"),
	}
	if rr.err != nil {
		return nil, fmt.Errorf("decode pool config: %w", rr.err)
	}
	return cfg, nil
}

// PoolState is the typed view of PoolStateSchema.
type PoolState struct {
	Discriminator     []byte       `json:"-"`
	ConfigID          string       `json:"configId"`
	PoolCreator       string       `json:"poolCreator"`
	VaultA            string       `json:"vaultA"`
	VaultB            string       `json:"vaultB"`
	MintLp            string       `json:"mintLp"`
	MintA             string       `json:"mintA"`
	MintB             string       `json:"mintB"`
	MintProgramA      string       `json:"mintProgramA"`
	MintProgramB      string       `json:"mintProgramB"`
	ObservationID     string       `json:"observationId"`
	Bump              uint8        `json:"bump"`
	Status            uint8        `json:"status"`
	LpDecimals        uint8        `json:"lpDecimals"`
	MintDecimalA      uint8        `json:"mintDecimalA"`
	MintDecimalB      uint8        `json:"mintDecimalB"`
	LpAmount          uint64       `json:"lpAmount"`
	ProtocolFeesMintA uint64       `json:"protocolFeesMintA"`
	ProtocolFeesMintB uint64       `json:"protocolFeesMintB"`
	FundFeesMintA     uint64       `json:"fundFeesMintA"`
	FundFeesMintB     uint64       `json:"fundFeesMintB"`
	OpenTime          uint64       `json:"openTime"`
	RecentEpoch       uint64       `json:"recentEpoch"`
	CumulativeFeesA   *uint256.Int `json:"cumulativeFeesA"`
	CumulativeFeesB   *uint256.Int `json:"cumulativeFeesB"`
	CumulativeVolumeA *uint256.Int `json:"cumulativeVolumeA"`
	CumulativeVolumeB *uint256.Int `json:"cumulativeVolumeB"`
}

// DecodePoolState decodes a pool state account.
func DecodePoolState(data []byte) (*PoolState, error) {
	rec, err := PoolStateSchema.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode pool state: %w", err)
	}
	rr := &recordReader{rec: rec}
	st := &PoolState{
		Discriminator:     rr.blob("discriminator"),
		ConfigID:          rr.key("configId"),
		PoolCreator:       rr.key("poolCreator"),
		VaultA:            rr.key("vaultA"),
		VaultB:            rr.key("vaultB"),
		MintLp:            rr.key("mintLp"),
		MintA:             rr.key("mintA"),
		MintB:             rr.key("mintB"),
		MintProgramA:      rr.key("mintProgramA"),
		MintProgramB:      rr.key("mintProgramB"),
		ObservationID:     rr.key("observationId"),
		Bump:              uint8(rr.uint("bump")),
		Status:            uint8(rr.uint("status")),
		LpDecimals:        uint8(rr.uint("lpDecimals")),
		MintDecimalA:      uint8(rr.uint("mintDecimalA")),
		MintDecimalB:      uint8(rr.uint("mintDecimalB")),
		LpAmount:          rr.uint("lpAmount"),
		ProtocolFeesMintA: rr.uint("protocolFeesMintA"),
		ProtocolFeesMintB: rr.uint("protocolFeesMintB"),
		FundFeesMintA:     rr.uint("fundFeesMintA"),
		FundFeesMintB:     rr.uint("fundFeesMintB"),
		OpenTime:          rr.uint("openTime"),
		RecentEpoch:       rr.uint("recentEpoch"),
		CumulativeFeesA:   rr.u128("cumulativeFeesA"),
		CumulativeFeesB:   rr.u128("cumulativeFeesB"),
		CumulativeVolumeA: rr.u128("cumulativeVolumeA"),
		CumulativeVolumeB: rr.u128("cumulativeVolumeB"),
	}
	if rr.err != nil {
		return nil, fmt.Errorf("decode pool state: %w", rr.err)
	}
	return st, nil
}

// Mint is the typed view of MintSchema.
type Mint struct {
	MintAuthority   *string `json:"mintAuthority"`
	Supply          uint64  `json:"supply"`
	Decimals        uint8   `json:"decimals"`
	IsInitialized   bool    `json:"isInitialized"`
	FreezeAuthority *string `json:"freezeAuthority"`
}

// DecodeMint decodes the leading MintSchema bytes of a mint account.
// Longer buffers (Token-2022 extensions) are accepted; shorter ones are not.
func DecodeMint(data []byte) (*Mint, error) {
	size := MintSchema.Size()
	if len(data) < size {
		return nil, fmt.Errorf("decode mint: %w: got %d bytes, want at least %d", ErrLengthMismatch, len(data), size)
	}
	rec, err := MintSchema.Decode(data[:size])
	if err != nil {
		return nil, fmt.Errorf("decode mint: %w", err)
	}
	rr := &recordReader{rec: rec}
	m := &Mint{
		Supply:        rr.uint("supply"),
		Decimals:      uint8(rr.uint("decimals")),
		IsInitialized: rr.bool("isInitialized"),
	}
	if rr.uint("mintAuthorityOption") != 0 {
		k := rr.key("mintAuthority")
		m.MintAuthority = &k
	}
	if rr.uint("freezeAuthorityOption") != 0 {
		k := rr.key("freezeAuthority")
		m.FreezeAuthority = &k
	}
	if rr.err != nil {
		return nil, fmt.Errorf("decode mint: %w", rr.err)
	}
	return m, nil
}
