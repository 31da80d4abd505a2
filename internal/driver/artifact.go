package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"quill/internal/mono"
)

// Current schema version. Bump when Artifact's shape changes so stale cache
// entries read as misses instead of garbage.
const artifactSchemaVersion uint16 = 1

// Digest is a sha256 content hash.
type Digest [sha256.Size]byte

func DigestBytes(data []byte) Digest {
	return sha256.Sum256(data)
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Artifact is what a finished build exports: the emitted SSA text, the
// entry-point symbols and the instantiation listing. Enough to rerun
// `inspect` without recompiling.
type Artifact struct {
	Schema uint16

	ProgramHash Digest
	Funcs       []string
	Entry       map[string]string

	SSAText        string
	Instantiations string
}

// NewArtifact captures a build's exportable state.
func NewArtifact(b *Build, programHash Digest) *Artifact {
	var ssa strings.Builder
	b.Module.Print(&ssa)
	var insts strings.Builder
	mono.DumpInstantiations(&insts, b.Store.Uses())
	return &Artifact{
		Schema:         artifactSchemaVersion,
		ProgramHash:    programHash,
		Funcs:          b.Module.FuncNames(),
		Entry:          b.Entry,
		SSAText:        ssa.String(),
		Instantiations: insts.String(),
	}
}

// ArtifactCache stores build artifacts by program hash on disk.
// Safe for concurrent use.
type ArtifactCache struct {
	mu  sync.RWMutex
	dir string
}

// OpenArtifactCache initializes a cache at the standard user location.
func OpenArtifactCache(app string) (*ArtifactCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &ArtifactCache{dir: dir}, nil
}

// OpenArtifactCacheAt initializes a cache rooted at dir. Tests use this.
func OpenArtifactCacheAt(dir string) (*ArtifactCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &ArtifactCache{dir: dir}, nil
}

func (c *ArtifactCache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "builds", key.String()+".mp")
}

// Put serializes and writes an artifact, atomically via a temp file.
func (c *ArtifactCache) Put(key Digest, art *Artifact) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(f.Name()) }()
	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(art); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode artifact: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads the artifact stored under key. A missing entry or a schema
// mismatch is a miss, not an error.
func (c *ArtifactCache) Get(key Digest) (*Artifact, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer func() { _ = f.Close() }()
	var art Artifact
	dec := msgpack.NewDecoder(f)
	if err := dec.Decode(&art); err != nil {
		return nil, false, fmt.Errorf("decode artifact: %w", err)
	}
	if art.Schema != artifactSchemaVersion {
		return nil, false, nil
	}
	return &art, true, nil
}
