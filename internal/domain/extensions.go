package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	extCoingeckoID = "coingeckoId"
	extFeeConfig   = "feeConfig"
)

// Extensions holds the known optional token attributes. Keys not modeled
// here are kept verbatim in Unknown.
type Extensions struct {
	CoingeckoID *string
	FeeConfig   *TransferFeeConfig
	Unknown     map[string]json.RawMessage
}

// TransferFeeConfig is the Token-2022 transfer fee extension.
type TransferFeeConfig struct {
	TransferFeeConfigAuthority string      `json:"transferFeeConfigAuthority"`
	WithdrawWithheldAuthority  string      `json:"withdrawWithheldAuthority"`
	WithheldAmount             string      `json:"withheldAmount"`
	OlderTransferFee           TransferFee `json:"olderTransferFee"`
	NewerTransferFee           TransferFee `json:"newerTransferFee"`
}

// TransferFee is one scheduled fee setting, effective from Epoch.
type TransferFee struct {
	Epoch                  Uint64String `json:"epoch"`
	MaximumFee             Uint64String `json:"maximumFee"`
	TransferFeeBasisPoints uint16       `json:"transferFeeBasisPoints"`
}

// FeeAt returns the fee in effect at epoch.
func (c *TransferFeeConfig) FeeAt(epoch uint64) TransferFee {
	if epoch >= uint64(c.NewerTransferFee.Epoch) {
		return c.NewerTransferFee
	}
	return c.OlderTransferFee
}

// Uint64String accepts a JSON number or a decimal string. Large u64 values
// are commonly sent as strings.
type Uint64String uint64

func (u *Uint64String) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("decode uint64 %s: %w", data, err)
	}
	*u = Uint64String(n)
	return nil
}

func (u Uint64String) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(strconv.FormatUint(uint64(u), 10))), nil
}

// Clone returns a deep copy.
func (e Extensions) Clone() Extensions {
	out := Extensions{}
	if e.CoingeckoID != nil {
		out.CoingeckoID = ptr(*e.CoingeckoID)
	}
	if e.FeeConfig != nil {
		fc := *e.FeeConfig
		out.FeeConfig = &fc
	}
	if e.Unknown != nil {
		out.Unknown = make(map[string]json.RawMessage, len(e.Unknown))
		for k, v := range e.Unknown {
			out.Unknown[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}

// UnmarshalJSON splits known keys from unknown ones. Known keys match
// case-insensitively since config loaders lowercase map keys.
func (e *Extensions) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode extensions: %w", err)
	}

	*e = Extensions{}
	for key, val := range raw {
		switch {
		case strings.EqualFold(key, extCoingeckoID):
			var id *string
			if err := json.Unmarshal(val, &id); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			e.CoingeckoID = id
		case strings.EqualFold(key, extFeeConfig):
			var fc *TransferFeeConfig
			if err := json.Unmarshal(val, &fc); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			e.FeeConfig = fc
		default:
			if e.Unknown == nil {
				e.Unknown = make(map[string]json.RawMessage)
			}
			e.Unknown[key] = val
		}
	}
	return nil
}

// MarshalJSON merges known and unknown keys into one object.
func (e Extensions) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Unknown)+2)
	for k, v := range e.Unknown {
		out[k] = v
	}
	if e.CoingeckoID != nil {
		out[extCoingeckoID] = *e.CoingeckoID
	}
	if e.FeeConfig != nil {
		out[extFeeConfig] = e.FeeConfig
	}
	return json.Marshal(out)
}
