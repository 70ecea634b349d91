// Package progfile reads and writes .svm program containers: an
// assembled program plus the tool-side metadata that raw bytecode, by
// contract, cannot carry. The encoding is canonical CBOR so identical
// input always produces identical files.
package progfile

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("progfile: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// File is one assembled program. Labels preserves the assembler's
// label table so the disassembler can print symbolic branch targets.
type File struct {
	Source  string         `cbor:"source,omitempty"`
	Program []byte         `cbor:"program"`
	Labels  map[string]int `cbor:"labels,omitempty"`
}

// Marshal serializes f to canonical CBOR bytes.
func Marshal(f *File) ([]byte, error) {
	return cborEncMode.Marshal(f)
}

// Unmarshal deserializes a File from CBOR bytes.
func Unmarshal(data []byte) (*File, error) {
	var f File
	if err := cbor.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("progfile: unmarshal: %w", err)
	}
	return &f, nil
}

// Write marshals f and writes it to path.
func Write(path string, f *File) error {
	data, err := Marshal(f)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Read loads and unmarshals the container at path.
func Read(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}
