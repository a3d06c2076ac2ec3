package cache

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// CBOR modes configured for determinism and safety. Canonical sort makes
// encoding stable (same value, same bytes), which matters for derived keys;
// the decode limits guard against pathological payloads in the store.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

//nolint:gochecknoinits // CBOR mode configuration at package load time
func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort: cbor.SortCanonical,
		Time: cbor.TimeRFC3339,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoding mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		MaxArrayElements: 100000,
		MaxMapPairs:      100000,
		MaxNestedLevels:  16,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoding mode: %v", err))
	}
}

// Marshal serializes a value to CBOR bytes.
// Encoding is canonical: decode(encode(v)) == v for all cacheable types.
func Marshal[T any](v T) ([]byte, error) {
	data, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cbor marshal failed: %w", err)
	}
	return data, nil
}

// Unmarshal deserializes CBOR bytes into a value of type T.
func Unmarshal[T any](data []byte) (T, error) {
	var v T
	if err := decMode.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("cbor unmarshal failed: %w", err)
	}
	return v, nil
}

// MustMarshal is like Marshal but panics on error. Intended for tests and
// pre-validated values only.
func MustMarshal[T any](v T) []byte {
	data, err := Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("MustMarshal failed: %v", err))
	}
	return data
}
