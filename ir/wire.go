package ir

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Canonical mode keeps the encoding of a program deterministic.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("ir: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal serializes p to CBOR.
func Marshal(p *Program) ([]byte, error) {
	data, err := cborEncMode.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("ir: marshal program: %w", err)
	}
	return data, nil
}

// Unmarshal deserializes a program produced by Marshal.
func Unmarshal(data []byte) (*Program, error) {
	var p Program
	if err := cbor.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("ir: unmarshal program: %w", err)
	}
	return &p, nil
}
