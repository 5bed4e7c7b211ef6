package vfat

import (
	"errors"
	"io"
	"io/fs"

	"github.com/spf13/afero"
)

type GoDirEntry struct {
	fs.FileInfo
}

func (g GoDirEntry) Type() fs.FileMode {
	return g.FileInfo.Mode().Type()
}

func (g GoDirEntry) Info() (fs.FileInfo, error) {
	return g.FileInfo, nil
}

type GoFile struct {
	*File
}

func (g GoFile) Stat() (fs.FileInfo, error) {
	return g.File.Stat()
}

func (g GoFile) Read(bytes []byte) (int, error) {
	return g.File.Read(bytes)
}

func (g GoFile) Close() error {
	return g.File.Close()
}

func (g GoFile) ReadDir(n int) ([]fs.DirEntry, error) {
	entries, err := g.File.Readdir(n)

	goEntries := make([]fs.DirEntry, len(entries))
	for i, e := range entries {
		goEntries[i] = GoDirEntry{e}
	}

	return goEntries, err
}

// GoFs just wraps the afero FAT32 implementation to be compatible with
// fs.FS.
type GoFs struct {
	Fs
}

// NewGoFS mounts the FAT32 volume on device as fs.FS compatible
// filesystem.
func NewGoFS(device BlockDevice) (*GoFs, error) {
	fatFs, err := New(device)
	if err != nil {
		return nil, err
	}

	return &GoFs{*fatFs}, nil
}

// NewIOFS mounts a FAT32 volume from the given reader wrapped into the
// afero.IOFS compatibility layer, assuming 512 byte physical sectors.
func NewIOFS(reader io.ReadSeeker) (afero.IOFS, error) {
	fatFs, err := NewFromReader(reader)
	if err != nil {
		return afero.IOFS{}, err
	}

	return afero.NewIOFS(fatFs), nil
}

// NewGoFSFromReader mounts a FAT32 volume from the given reader as fs.FS
// compatible filesystem, assuming 512 byte physical sectors.
func NewGoFSFromReader(reader io.ReadSeeker) (*GoFs, error) {
	fatFs, err := NewFromReader(reader)
	if err != nil {
		return nil, err
	}

	return &GoFs{*fatFs}, nil
}

func (g GoFs) Open(name string) (fs.File, error) {
	// The afero layer is lenient about leading slashes and "." components,
	// io/fs is not.
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	file, err := g.Fs.Open(name)
	if err != nil {
		return nil, err
	}

	f, ok := file.(*File)
	if !ok {
		return nil, errors.New("invalid File implementation")
	}

	return GoFile{f}, nil
}
