package vfat

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/aligator/checkpoint"
	"github.com/spf13/afero"
)

// These errors may occur while processing a file.
var (
	ErrReadFile = errors.New("could not read file completely")
	ErrSeekFile = errors.New("could not seek inside of the file")
	ErrReadDir  = errors.New("could not read the directory")
)

// fatFileFs provides all methods needed from the volume engine by File.
// It mainly exists to be able to mock the engine in tests.
// Generated mock using mockgen:
//  mockgen -source=file.go -destination=file_mock.go -package vfat
type fatFileFs interface {
	readChain(start fatEntry) ([]byte, error)
	readRoot() ([]ExtendedEntryHeader, error)
	readDir(cluster fatEntry) ([]ExtendedEntryHeader, error)
}

// File is an open file or directory of a mounted volume. It implements
// afero.File. A File holds a non-owning handle to the volume engine; the
// engine outlives every File derived from it.
type File struct {
	fs   fatFileFs
	path string

	isDirectory bool
	isReadOnly  bool
	isHidden    bool
	isSystem    bool

	firstCluster fatEntry
	stat         os.FileInfo
	offset       int64
	data         []byte
}

func (f *File) Close() error {
	f.fs = nil
	f.path = ""
	f.isDirectory = false
	f.isReadOnly = false
	f.isHidden = false
	f.isSystem = false
	f.firstCluster = 0
	f.stat = nil
	f.offset = 0
	f.data = nil

	return nil
}

// load materializes the file contents on first use. The whole cluster
// chain is read once, truncated to the declared file size, and kept for
// the lifetime of the File; later reads serve from memory.
func (f *File) load() error {
	if f.data != nil {
		return nil
	}

	if f.stat.Size() == 0 || !f.firstCluster.IsNextCluster() {
		// Empty files carry no chain; their start cluster is 0.
		f.data = []byte{}
		return nil
	}

	data, err := f.fs.readChain(f.firstCluster)
	if err != nil {
		return checkpoint.From(err)
	}

	if size := f.stat.Size(); int64(len(data)) > size {
		data = data[:size]
	}
	f.data = data

	return nil
}

func (f *File) Read(p []byte) (n int, err error) {
	// Reading a file if the size has been already reached, makes no sense.
	if f.stat.Size() <= f.offset {
		return 0, io.EOF
	}

	if err := f.load(); err != nil {
		return 0, checkpoint.Wrap(err, ErrReadFile)
	}

	// On a corrupt volume a record may declare a size larger than its
	// cluster chain holds. The missing tail is never readable.
	if f.offset >= int64(len(f.data)) {
		return 0, checkpoint.Wrap(
			fmt.Errorf("%w: the file claims %v bytes but its chain holds %v", ErrInvalidChain, f.stat.Size(), len(f.data)),
			ErrReadFile,
		)
	}

	n = copy(p, f.data[f.offset:])
	f.offset += int64(n)

	return n, nil
}

func (f *File) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, checkpoint.Wrap(syscall.EINVAL, ErrReadFile)
	}

	// Reading over the end makes no sense.
	if f.stat.Size() <= off {
		return 0, io.EOF
	}

	if err := f.load(); err != nil {
		return 0, checkpoint.Wrap(err, ErrReadFile)
	}

	if off >= int64(len(f.data)) {
		return 0, checkpoint.Wrap(
			fmt.Errorf("%w: the file claims %v bytes but its chain holds %v", ErrInvalidChain, f.stat.Size(), len(f.data)),
			ErrReadFile,
		)
	}

	n = copy(p, f.data[off:])
	if n < len(p) {
		if off+int64(n) < f.stat.Size() {
			// The copy ran into the end of a chain shorter than the
			// declared size.
			return n, checkpoint.Wrap(
				fmt.Errorf("%w: the file claims %v bytes but its chain holds %v", ErrInvalidChain, f.stat.Size(), len(f.data)),
				ErrReadFile,
			)
		}
		return n, io.EOF
	}

	return n, nil
}

// Seek jumps to a specific offset in the file. This affects all Read
// operations except ReadAt. A seek to exactly the file size is allowed; a
// seek before the start or beyond the end is not.
// May return a syscall.EINVAL error if the whence value is invalid.
// May return an afero.ErrOutOfRange error if the offset is out of range.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset = f.offset + offset
	case io.SeekEnd:
		offset = f.stat.Size() + offset
	default:
		return 0, checkpoint.Wrap(ErrSeekFile, fmt.Errorf("%w, offset: %v, whence: %v", syscall.EINVAL, offset, whence))
	}

	if offset < 0 || offset > f.stat.Size() {
		return 0, checkpoint.Wrap(afero.ErrOutOfRange, fmt.Errorf("%w, offset: %v, whence: %v", ErrSeekFile, offset, whence))
	}

	f.offset = offset
	return offset, nil
}

func (f *File) Write(p []byte) (n int, err error) {
	return 0, checkpoint.Wrap(syscall.EPERM, ErrUnsupported)
}

func (f *File) WriteAt(p []byte, off int64) (n int, err error) {
	return 0, checkpoint.Wrap(syscall.EPERM, ErrUnsupported)
}

func (f *File) Name() string {
	return f.stat.Name()
}

// Readdir reads the contents of a directory. A negative count reads the
// whole remaining directory; a count of 0 reads nothing and advances
// nothing, it does not mean "everything" as it does for os.File.
// May return syscall.ENOTDIR if the current File is no directory.
func (f *File) Readdir(count int) ([]os.FileInfo, error) {
	if !f.isDirectory {
		return nil, checkpoint.Wrap(syscall.ENOTDIR, ErrReadDir)
	}

	var content []ExtendedEntryHeader
	var err error
	if f.path == "" {
		content, err = f.fs.readRoot()
	} else {
		content, err = f.fs.readDir(f.firstCluster)
	}

	if err != nil {
		return nil, checkpoint.Wrap(err, ErrReadDir)
	}

	end := len(content)

	if int64(len(content)) < f.offset+int64(count) {
		count = len(content) - int(f.offset)
		err = io.EOF
	}

	if count >= 0 {
		end = int(f.offset) + count
	}

	content = content[f.offset:end]

	if count > 0 {
		f.offset += int64(count)
	} else if count < 0 {
		f.offset = int64(end)
	}

	result := make([]os.FileInfo, len(content))
	for i := range content {
		result[i] = content[i].FileInfo()
	}

	return result, err
}

func (f *File) Readdirnames(count int) ([]string, error) {
	content, err := f.Readdir(count)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, checkpoint.Wrap(err, ErrReadDir)
	}

	names := make([]string, len(content))
	for i, entry := range content {
		names[i] = entry.Name()
	}

	return names, err
}

func (f *File) Stat() (os.FileInfo, error) {
	return f.stat, nil
}

func (f *File) Sync() error {
	return checkpoint.Wrap(syscall.EPERM, ErrUnsupported)
}

func (f *File) Truncate(size int64) error {
	return checkpoint.Wrap(syscall.EPERM, ErrUnsupported)
}

func (f *File) WriteString(s string) (ret int, err error) {
	return f.Write([]byte(s))
}
