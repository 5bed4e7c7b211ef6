package vfat

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/aligator/checkpoint"
	"github.com/spf13/afero"
)

// ErrUnsupported is returned by every mutating operation. The driver is
// read-only by design.
var ErrUnsupported = errors.New("the filesystem is read-only")

// ErrorEntryNotFound is returned if a path component cannot be found in
// the directory being traversed.
var ErrorEntryNotFound = errors.New("entry not found")

// Fs is a read-only FAT32 filesystem on top of a BlockDevice. It
// implements afero.Fs.
//
// An Fs is not safe for concurrent use; wrap it in external locking if
// several goroutines share one mount.
type Fs struct {
	vfat *VFat
}

// New mounts the first FAT32 partition found on device.
func New(device BlockDevice) (*Fs, error) {
	vfat, err := newVFat(device)
	if err != nil {
		return nil, checkpoint.From(err)
	}

	return &Fs{vfat: vfat}, nil
}

// NewFromReader mounts a FAT32 volume from the given reader, usually an
// opened image file, assuming 512 byte physical sectors.
func NewFromReader(reader io.ReadSeeker) (*Fs, error) {
	return New(NewReaderDevice(reader, 512))
}

// Label returns the volume label.
func (fs *Fs) Label() string {
	return fs.vfat.label
}

// rootFileInfo is the synthetic metadata of the root directory, which has
// no directory record of its own.
type rootFileInfo struct{}

func (rootFileInfo) Name() string       { return "/" }
func (rootFileInfo) Size() int64        { return 0 }
func (rootFileInfo) Mode() os.FileMode  { return os.ModeDir | 0555 }
func (rootFileInfo) ModTime() time.Time { return time.Time{} }
func (rootFileInfo) IsDir() bool        { return true }
func (rootFileInfo) Sys() interface{}   { return nil }

// splitPath splits a slash separated path into its components. Empty
// components and "." are dropped, so "", "/" and "." all address the root
// directory.
func splitPath(name string) []string {
	var components []string
	for _, component := range strings.Split(name, "/") {
		if component != "" && component != "." {
			components = append(components, component)
		}
	}

	return components
}

func (fs *Fs) root() *File {
	return &File{
		fs:           fs.vfat,
		isDirectory:  true,
		firstCluster: fs.vfat.rootCluster,
		stat:         rootFileInfo{},
	}
}

func (fs *Fs) newFile(entry ExtendedEntryHeader, filePath string) *File {
	return &File{
		fs:           fs.vfat,
		path:         filePath,
		isDirectory:  entry.Attribute&AttrDirectory != 0,
		isReadOnly:   entry.Attribute&AttrReadOnly != 0,
		isHidden:     entry.Attribute&AttrHidden != 0,
		isSystem:     entry.Attribute&AttrSystem != 0,
		firstCluster: entry.FirstCluster(),
		stat:         entry.FileInfo(),
	}
}

// Open opens the file or directory at the given slash separated path,
// starting at the root directory. Each component is resolved by a
// case-insensitive scan of the current directory.
//
// May return an os.ErrNotExist error if a component does not exist and a
// syscall.ENOTDIR error if the path runs through a file.
func (fs *Fs) Open(name string) (afero.File, error) {
	return fs.open(name)
}

func (fs *Fs) open(name string) (*File, error) {
	current := fs.root()
	walked := ""

	for _, component := range splitPath(name) {
		if !current.isDirectory {
			return nil, checkpoint.Wrap(syscall.ENOTDIR, fmt.Errorf("open %v: %v is no directory", name, walked))
		}

		var entries []ExtendedEntryHeader
		var err error
		if walked == "" {
			entries, err = fs.vfat.readRoot()
		} else {
			entries, err = fs.vfat.readDir(current.firstCluster)
		}
		if err != nil {
			return nil, checkpoint.From(err)
		}

		found := false
		for _, entry := range entries {
			info := entry.FileInfo()
			if strings.EqualFold(info.Name(), component) {
				walked = path.Join(walked, info.Name())
				current = fs.newFile(entry, walked)
				found = true
				break
			}
		}

		if !found {
			return nil, checkpoint.Wrap(os.ErrNotExist, fmt.Errorf("open %v: %w: %v", name, ErrorEntryNotFound, component))
		}
	}

	return current, nil
}

// OpenFile opens a file like Open. Any flag requesting write access fails,
// the filesystem is read-only.
func (fs *Fs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_APPEND|os.O_CREATE|os.O_TRUNC) != 0 {
		return nil, checkpoint.Wrap(syscall.EPERM, ErrUnsupported)
	}

	return fs.Open(name)
}

func (fs *Fs) Stat(name string) (os.FileInfo, error) {
	file, err := fs.open(name)
	if err != nil {
		return nil, checkpoint.From(err)
	}

	return file.Stat()
}

func (fs *Fs) Name() string {
	return "vfat"
}

func (fs *Fs) Create(name string) (afero.File, error) {
	return nil, checkpoint.Wrap(syscall.EPERM, ErrUnsupported)
}

func (fs *Fs) Mkdir(name string, perm os.FileMode) error {
	return checkpoint.Wrap(syscall.EPERM, ErrUnsupported)
}

func (fs *Fs) MkdirAll(path string, perm os.FileMode) error {
	return checkpoint.Wrap(syscall.EPERM, ErrUnsupported)
}

func (fs *Fs) Remove(name string) error {
	return checkpoint.Wrap(syscall.EPERM, ErrUnsupported)
}

func (fs *Fs) RemoveAll(path string) error {
	return checkpoint.Wrap(syscall.EPERM, ErrUnsupported)
}

func (fs *Fs) Rename(oldname, newname string) error {
	return checkpoint.Wrap(syscall.EPERM, ErrUnsupported)
}

func (fs *Fs) Chmod(name string, mode os.FileMode) error {
	return checkpoint.Wrap(syscall.EPERM, ErrUnsupported)
}

func (fs *Fs) Chown(name string, uid, gid int) error {
	return checkpoint.Wrap(syscall.EPERM, ErrUnsupported)
}

func (fs *Fs) Chtimes(name string, atime time.Time, mtime time.Time) error {
	return checkpoint.Wrap(syscall.EPERM, ErrUnsupported)
}
