package source

import (
	"crypto/sha256"
	"fmt"
	"os"

	"fortio.org/safecast"
)

// FileSet manages the source files of a compilation unit and resolves
// spans to line/column positions.
type FileSet struct {
	files []File
	index map[string]FileID
}

func NewFileSet() *FileSet {
	return &FileSet{
		index: make(map[string]FileID),
	}
}

// Add stores normalized content under path and returns a fresh FileID.
func (fs *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	lenFiles, err := safecast.Conv[uint32](len(fs.files))
	if err != nil {
		panic(fmt.Errorf("len files overflow: %w", err))
	}
	id := FileID(lenFiles)
	fs.files = append(fs.files, File{
		ID:      id,
		Path:    path,
		Content: content,
		LineIdx: buildLineIndex(content),
		Hash:    sha256.Sum256(content),
		Flags:   flags,
	})
	fs.index[path] = id
	return id
}

// Load reads a file from disk, normalizes BOM/CRLF and adds it.
func (fs *FileSet) Load(path string) (FileID, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	content, hadBOM := removeBOM(content)
	content, hadCRLF := normalizeCRLF(content)

	flags := FileFlags(0)
	if hadBOM {
		flags |= FileHadBOM
	}
	if hadCRLF {
		flags |= FileNormalizedCRLF
	}
	return fs.Add(path, content, flags), nil
}

// AddVirtual adds an in-memory file (tests, decoded AST bundles).
func (fs *FileSet) AddVirtual(name string, content []byte) FileID {
	return fs.Add(name, content, FileVirtual)
}

// Get returns the file for id, or nil for an unknown id.
func (fs *FileSet) Get(id FileID) *File {
	if int(id) >= len(fs.files) {
		return nil
	}
	return &fs.files[id]
}

// ByPath returns the file registered under path, if any.
func (fs *FileSet) ByPath(path string) (*File, bool) {
	if id, ok := fs.index[path]; ok {
		return &fs.files[id], true
	}
	return nil, false
}

func (fs *FileSet) Len() int {
	return len(fs.files)
}

// Position resolves the start of a span to a line/column pair.
func (fs *FileSet) Position(sp Span) (string, LineCol) {
	f := fs.Get(sp.File)
	if f == nil {
		return "<unknown>", LineCol{Line: 1, Col: 1}
	}
	return f.Path, toLineCol(f.LineIdx, sp.Start)
}

// Line returns the full text of the 1-based line, without the newline.
func (fs *FileSet) Line(file FileID, line uint32) ([]byte, bool) {
	f := fs.Get(file)
	if f == nil || line == 0 {
		return nil, false
	}
	start := uint32(0)
	if line > 1 {
		if int(line-2) >= len(f.LineIdx) {
			return nil, false
		}
		start = f.LineIdx[line-2] + 1
	}
	end := uint32(len(f.Content))
	if int(line-1) < len(f.LineIdx) {
		end = f.LineIdx[line-1]
	}
	return f.Content[start:end], true
}
