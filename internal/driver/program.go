package driver

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"quill/internal/ast"
)

// Programs cross the process boundary as msgpack: the upstream front end
// serializes the checked AST, this core decodes it and compiles.

// ReadProgram decodes a program from r.
func ReadProgram(r io.Reader) (*ast.Program, error) {
	var prog ast.Program
	dec := msgpack.NewDecoder(r)
	if err := dec.Decode(&prog); err != nil {
		return nil, fmt.Errorf("decode program: %w", err)
	}
	return &prog, nil
}

// LoadProgram reads a program file produced by the front end.
func LoadProgram(path string) (*ast.Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ReadProgram(f)
}

// WriteProgram encodes a program to w. The front end uses the same encoding;
// keeping both directions here makes fixtures and round-trip tests cheap.
func WriteProgram(w io.Writer, prog *ast.Program) error {
	enc := msgpack.NewEncoder(w)
	if err := enc.Encode(prog); err != nil {
		return fmt.Errorf("encode program: %w", err)
	}
	return nil
}

// SaveProgram writes a program file atomically next to its final path.
func SaveProgram(path string, prog *ast.Program) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if err := WriteProgram(tmp, prog); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
