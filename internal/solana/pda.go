package solana

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

const (
	maxSeeds      = 16
	maxSeedLength = 32
	pdaMarker     = "ProgramDerivedAddress"
)

var (
	// ErrInvalidSeeds is returned when seeds exceed the runtime limits.
	ErrInvalidSeeds = errors.New("invalid program address seeds")

	// ErrOnCurve is returned when a candidate program address lies on the ed25519 curve.
	ErrOnCurve = errors.New("program address is on curve")

	// ErrNoViableBump is returned when no bump seed yields an off-curve address.
	ErrNoViableBump = errors.New("no viable bump seed")
)

// FindProgramAddress derives the canonical program address for seeds,
// trying bump seeds from 255 downwards. Returns the base58 address and bump.
func FindProgramAddress(seeds [][]byte, programID string) (string, uint8, error) {
	program, err := decodeKey(programID)
	if err != nil {
		return "", 0, err
	}
	if len(seeds) >= maxSeeds {
		return "", 0, fmt.Errorf("%w: %d seeds", ErrInvalidSeeds, len(seeds))
	}

	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)
	for bump := 255; bump > 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		addr, err := createProgramAddress(withBump, program)
		if errors.Is(err, ErrOnCurve) {
			continue
		}
		if err != nil {
			return "", 0, err
		}
		return base58.Encode(addr), uint8(bump), nil
	}
	return "", 0, ErrNoViableBump
}

// CreateProgramAddress hashes seeds with the program ID. Fails with
// ErrOnCurve when the result is a valid ed25519 point.
func CreateProgramAddress(seeds [][]byte, programID string) (string, error) {
	program, err := decodeKey(programID)
	if err != nil {
		return "", err
	}
	addr, err := createProgramAddress(seeds, program)
	if err != nil {
		return "", err
	}
	return base58.Encode(addr), nil
}

func createProgramAddress(seeds [][]byte, program []byte) ([]byte, error) {
	if len(seeds) > maxSeeds {
		return nil, fmt.Errorf("%w: %d seeds", ErrInvalidSeeds, len(seeds))
	}

	h := sha256.New()
	for _, seed := range seeds {
		if len(seed) > maxSeedLength {
			return nil, fmt.Errorf("%w: seed of %d bytes", ErrInvalidSeeds, len(seed))
		}
		h.Write(seed)
	}
	h.Write(program)
	h.Write([]byte(pdaMarker))
	hash := h.Sum(nil)

	if IsOnCurve(hash) {
		return nil, ErrOnCurve
	}
	return hash, nil
}

// IsOnCurve reports whether point is a valid compressed ed25519 point.
func IsOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// ValidAddress reports whether s is a base58 string of exactly 32 bytes.
func ValidAddress(s string) bool {
	_, err := decodeKey(s)
	return err == nil
}

func decodeKey(s string) ([]byte, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode address %q: %w", s, err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("address %q is %d bytes, want 32", s, len(raw))
	}
	return raw, nil
}
