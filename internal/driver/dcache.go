package driver

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"flatns/internal/diag"
	"flatns/internal/source"
)

// Bump when CachedPayload changes shape; older entries become misses.
const cacheSchemaVersion uint16 = 1

// Digest is a sha256 content hash, the cache key for one unit fixture.
type Digest = [32]byte

// DiskCache persists per-unit check results keyed by content digest.
// A hit replays the unit's diagnostics without reloading the graph.
// Safe for concurrent use.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// CachedNote mirrors diag.Note with file-relative offsets only: the
// FileID is reassigned on replay since it depends on load order.
type CachedNote struct {
	Start uint32
	End   uint32
	Msg   string
}

type CachedDiag struct {
	Code     uint16
	Severity uint8
	Start    uint32
	End      uint32
	Msg      string
	Notes    []CachedNote
}

// CachedPayload is the msgpack-encoded disk format of one unit result.
type CachedPayload struct {
	Schema uint16
	Unit   string
	Diags  []CachedDiag
}

// OpenDiskCache creates (if needed) and opens the cache directory under
// XDG_CACHE_HOME, falling back to ~/.cache.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return OpenDiskCacheAt(filepath.Join(base, app))
}

// OpenDiskCacheAt opens a cache rooted at an explicit directory.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "units", hex.EncodeToString(key[:])+".mp")
}

// Lookup returns the payload for key, or false on a miss. A corrupt or
// schema-mismatched entry is treated as a miss, never an error.
func (c *DiskCache) Lookup(key Digest) (*CachedPayload, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		return nil, false
	}
	defer f.Close() // #nosec G307 -- read-only handle

	var payload CachedPayload
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, false
	}
	if payload.Schema != cacheSchemaVersion {
		return nil, false
	}
	return &payload, true
}

// Store writes a payload atomically: encode to a temp file, then rename
// into place.
func (c *DiskCache) Store(key Digest, payload *CachedPayload) error {
	if c == nil || payload == nil {
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
	tmp := f.Name()
	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// DropAll wipes the cache directory, for --disk-cache=clear and schema
// migrations during development.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	err := os.RemoveAll(filepath.Join(c.dir, "units"))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// cachePayload renders a finished unit result into the disk format.
func cachePayload(res *UnitResult) *CachedPayload {
	payload := &CachedPayload{
		Schema: cacheSchemaVersion,
		Unit:   res.Unit,
		Diags:  make([]CachedDiag, 0, res.Bag.Len()),
	}
	for _, d := range res.Bag.Items() {
		cd := CachedDiag{
			Code:     uint16(d.Code),
			Severity: uint8(d.Severity),
			Start:    d.Primary.Start,
			End:      d.Primary.End,
			Msg:      d.Message,
		}
		for _, n := range d.Notes {
			cd.Notes = append(cd.Notes, CachedNote{Start: n.Span.Start, End: n.Span.End, Msg: n.Msg})
		}
		payload.Diags = append(payload.Diags, cd)
	}
	return payload
}

// replayCached rebuilds the bag of a cache hit, rebinding spans to the
// freshly loaded file.
func replayCached(bag *diag.Bag, fileID source.FileID, payload *CachedPayload) {
	for _, cd := range payload.Diags {
		d := diag.Diagnostic{
			Severity: diag.Severity(cd.Severity),
			Code:     diag.Code(cd.Code),
			Message:  cd.Msg,
			Primary:  source.Span{File: fileID, Start: cd.Start, End: cd.End},
		}
		for _, n := range cd.Notes {
			d.Notes = append(d.Notes, diag.Note{
				Span: source.Span{File: fileID, Start: n.Start, End: n.End},
				Msg:  n.Msg,
			})
		}
		bag.Add(d)
	}
}
