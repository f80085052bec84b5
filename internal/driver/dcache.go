package driver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"ember/internal/diag"
	"ember/internal/project"
	"ember/internal/source"
)

// Bump when the payload layout changes.
const diskCacheSchemaVersion uint16 = 1

// DiskCache stores per-bundle analysis results keyed by content digest,
// so unchanged bundles skip re-analysis. Thread-safe.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// NoteRec mirrors diag.Note in the cache payload.
type NoteRec struct {
	Msg   string
	File  uint32
	Start uint32
	End   uint32
}

// DiagRec mirrors diag.Diagnostic in the cache payload.
type DiagRec struct {
	Severity uint8
	Code     uint16
	Msg      string
	File     uint32
	Start    uint32
	End      uint32
	Notes    []NoteRec
}

// DiskPayload is the cached outcome of analysing one bundle.
type DiskPayload struct {
	Schema      uint16
	Unit        string
	ContentHash project.Digest
	FuncCount   uint32
	Broken      bool
	Diags       []DiagRec
}

// OpenDiskCache initializes a disk cache at the standard user location.
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

// OpenDiskCacheAt initializes a disk cache rooted at dir.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(key project.Digest) string {
	// subdirectory keeps the cache easy to inspect and wipe
	return filepath.Join(c.dir, "units", key.String()+".mp")
}

// Put serializes and atomically writes a payload.
func (c *DiskCache) Put(key project.Digest, payload *DiskPayload) error {
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
	defer os.Remove(f.Name())

	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads a payload. Returns false on a miss and rejects payloads
// written by a different schema version.
func (c *DiskCache) Get(key project.Digest, out *DiskPayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, err
	}
	if out.Schema != diskCacheSchemaVersion {
		return false, fmt.Errorf("cache schema %d, want %d", out.Schema, diskCacheSchemaVersion)
	}
	return true, nil
}

// DropAll invalidates the whole cache.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		return err
	}
	return os.RemoveAll(old)
}

func payloadFromBag(unit string, hash project.Digest, funcs int, bag *diag.Bag) *DiskPayload {
	p := &DiskPayload{
		Schema:      diskCacheSchemaVersion,
		Unit:        unit,
		ContentHash: hash,
		FuncCount:   uint32(funcs),
		Broken:      bag.HasErrors(),
		Diags:       make([]DiagRec, 0, bag.Len()),
	}
	for _, d := range bag.Items() {
		rec := DiagRec{
			Severity: uint8(d.Severity),
			Code:     uint16(d.Code),
			Msg:      d.Message,
			File:     uint32(d.Primary.File),
			Start:    d.Primary.Start,
			End:      d.Primary.End,
		}
		for _, n := range d.Notes {
			rec.Notes = append(rec.Notes, NoteRec{
				Msg:   n.Msg,
				File:  uint32(n.Span.File),
				Start: n.Span.Start,
				End:   n.Span.End,
			})
		}
		p.Diags = append(p.Diags, rec)
	}
	return p
}

func (p *DiskPayload) fill(bag *diag.Bag) {
	for _, rec := range p.Diags {
		d := diag.Diagnostic{
			Severity: diag.Severity(rec.Severity),
			Code:     diag.Code(rec.Code),
			Message:  rec.Msg,
			Primary: source.Span{
				File:  source.FileID(rec.File),
				Start: rec.Start,
				End:   rec.End,
			},
		}
		for _, n := range rec.Notes {
			d.Notes = append(d.Notes, diag.Note{
				Msg: n.Msg,
				Span: source.Span{
					File:  source.FileID(n.File),
					Start: n.Start,
					End:   n.End,
				},
			})
		}
		bag.Add(d)
	}
}
