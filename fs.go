package sarc

import (
	"bytes"
	"io"
	"io/fs"
	"path"
	"slices"
	"sort"
	"strings"
	"time"
)

// Open implements fs.FS.
//
// Entry names that are not valid fs paths (for example names with a
// leading slash) are only reachable through Lookup.
func (a *Archive) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	if e, ok := a.Entry(name); ok && name != "." {
		return &openFile{
			Reader: bytes.NewReader(e.Data),
			info:   &fileInfo{name: path.Base(name), size: int64(len(e.Data))},
		}, nil
	}
	if a.isDir(name) {
		return &openDir{a: a, name: name}, nil
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

// Stat implements fs.StatFS.
func (a *Archive) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	if e, ok := a.Entry(name); ok && name != "." {
		return &fileInfo{name: path.Base(name), size: int64(len(e.Data))}, nil
	}
	if a.isDir(name) {
		return dirInfo(name), nil
	}
	return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
}

// ReadFile implements fs.ReadFileFS. The returned slice is a copy.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrInvalid}
	}
	e, ok := a.Entry(name)
	if !ok {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: fs.ErrNotExist}
	}
	return bytes.Clone(e.Data), nil
}

// ReadDir implements fs.ReadDirFS.
//
// Directory entries are synthesized from entry names and sorted by name.
func (a *Archive) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	if !a.isDir(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	return a.dirEntries(name), nil
}

// dirPrefix returns the name prefix shared by all entries under dir.
func dirPrefix(dir string) string {
	if dir == "." {
		return ""
	}
	return dir + "/"
}

// isDir reports whether any entry lives under name. The root always exists.
func (a *Archive) isDir(name string) bool {
	if name == "." {
		return true
	}
	prefix := dirPrefix(name)
	i := sort.SearchStrings(a.paths, prefix)
	return i < len(a.paths) && strings.HasPrefix(a.paths[i], prefix)
}

// dirEntries lists the immediate children of dir.
func (a *Archive) dirEntries(dir string) []fs.DirEntry {
	prefix := dirPrefix(dir)
	var out []fs.DirEntry
	last := ""
	for i := sort.SearchStrings(a.paths, prefix); i < len(a.paths); i++ {
		p := a.paths[i]
		if !strings.HasPrefix(p, prefix) {
			break
		}
		rest := p[len(prefix):]
		child, _, isSubDir := strings.Cut(rest, "/")
		if isSubDir {
			if child == last {
				continue
			}
			last = child
			out = append(out, fs.FileInfoToDirEntry(dirInfo(child)))
			continue
		}
		e, _ := a.Entry(p)
		out = append(out, fs.FileInfoToDirEntry(&fileInfo{name: child, size: int64(len(e.Data))}))
	}
	slices.SortFunc(out, func(x, y fs.DirEntry) int {
		return strings.Compare(x.Name(), y.Name())
	})
	return out
}

// openFile is an fs.File over one entry's content.
type openFile struct {
	*bytes.Reader
	info *fileInfo
}

func (f *openFile) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *openFile) Close() error               { return nil }

// openDir implements fs.ReadDirFile for synthesized directories.
type openDir struct {
	a       *Archive
	name    string
	entries []fs.DirEntry
	read    bool
}

func (d *openDir) Read(_ []byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.name, Err: fs.ErrInvalid}
}

func (d *openDir) Stat() (fs.FileInfo, error) { return dirInfo(d.name), nil }
func (d *openDir) Close() error               { return nil }

func (d *openDir) ReadDir(n int) ([]fs.DirEntry, error) {
	if !d.read {
		d.entries = d.a.dirEntries(d.name)
		d.read = true
	}
	if n <= 0 {
		out := d.entries
		d.entries = nil
		if out == nil {
			out = []fs.DirEntry{}
		}
		return out, nil
	}
	if len(d.entries) == 0 {
		return nil, io.EOF
	}
	n = min(n, len(d.entries))
	out := d.entries[:n:n]
	d.entries = d.entries[n:]
	return out, nil
}

// fileInfo describes an entry or a synthesized directory.
type fileInfo struct {
	name string
	size int64
	dir  bool
}

func dirInfo(name string) *fileInfo {
	if name != "." {
		name = path.Base(name)
	}
	return &fileInfo{name: name, dir: true}
}

func (fi *fileInfo) Name() string       { return fi.name }
func (fi *fileInfo) Size() int64        { return fi.size }
func (fi *fileInfo) ModTime() time.Time { return time.Time{} }
func (fi *fileInfo) IsDir() bool        { return fi.dir }
func (fi *fileInfo) Sys() any           { return nil }

func (fi *fileInfo) Mode() fs.FileMode {
	if fi.dir {
		return fs.ModeDir | 0o555
	}
	return 0o444
}
