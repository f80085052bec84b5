package driver

import (
	"path/filepath"
	"testing"

	"ember/internal/diag"
	"ember/internal/project"
	"ember/internal/source"
)

func TestDiskCacheRoundTrip(t *testing.T) {
	cache, err := OpenDiskCacheAt(filepath.Join(t.TempDir(), "c"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	bag := diag.NewBag(4)
	bag.Add(diag.NewError(diag.ErrUnhandledCall,
		source.Span{File: 1, Start: 3, End: 9}, "unhandled").
		WithNote(source.Span{File: 1, Start: 0, End: 2}, "declared here"))

	key := project.HashBytes([]byte("unit-content"))
	if err := cache.Put(key, payloadFromBag("u", key, 2, bag)); err != nil {
		t.Fatalf("put: %v", err)
	}

	var got DiskPayload
	hit, err := cache.Get(key, &got)
	if err != nil || !hit {
		t.Fatalf("get: hit=%v err=%v", hit, err)
	}
	if got.Unit != "u" || got.FuncCount != 2 || !got.Broken {
		t.Fatalf("payload fields lost: %+v", got)
	}

	replay := diag.NewBag(4)
	got.fill(replay)
	if replay.Len() != 1 {
		t.Fatalf("diagnostics lost: %d", replay.Len())
	}
	d := replay.Items()[0]
	if d.Code != diag.ErrUnhandledCall || d.Primary.Start != 3 || len(d.Notes) != 1 {
		t.Fatalf("diagnostic mangled: %+v", d)
	}
}

func TestDiskCacheMiss(t *testing.T) {
	cache, err := OpenDiskCacheAt(filepath.Join(t.TempDir(), "c"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	var out DiskPayload
	hit, err := cache.Get(project.HashBytes([]byte("never stored")), &out)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if hit {
		t.Fatal("unexpected cache hit")
	}
}

func TestDiskCacheNilReceiverIsInert(t *testing.T) {
	var cache *DiskCache
	key := project.HashBytes([]byte("x"))
	if err := cache.Put(key, &DiskPayload{Schema: diskCacheSchemaVersion}); err != nil {
		t.Fatalf("nil put: %v", err)
	}
	hit, err := cache.Get(key, &DiskPayload{})
	if hit || err != nil {
		t.Fatalf("nil get: hit=%v err=%v", hit, err)
	}
}
