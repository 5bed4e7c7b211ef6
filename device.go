package vfat

import (
	"errors"
	"fmt"
	"io"
	"syscall"

	"github.com/aligator/checkpoint"
)

// These errors may occur while accessing a block device.
var (
	ErrDeviceIO  = errors.New("could not read from the device")
	ErrShortRead = errors.New("short read from the device")
)

// BlockDevice is the capability this driver consumes: sector-granular
// access to some storage medium. All sector indices are zero-based absolute
// sector numbers on the underlying medium.
//
// The driver never writes; WriteSector only exists so that devices which do
// support writing can be passed in unchanged.
type BlockDevice interface {
	// ReadSector reads sector n into buf. buf is always exactly one sector
	// long. It returns the number of bytes read.
	ReadSector(n uint64, buf []byte) (int, error)

	// WriteSector writes buf to sector n. Unused by this driver.
	WriteSector(n uint64, buf []byte) (int, error)

	// SectorSize reports the fixed size of one sector in bytes.
	SectorSize() uint32
}

// ReaderDevice adapts an io.ReadSeeker, usually an opened image file, to
// the BlockDevice interface using a fixed sector size.
type ReaderDevice struct {
	reader     io.ReadSeeker
	sectorSize uint32
}

// NewReaderDevice wraps reader into a read-only BlockDevice with the given
// sector size.
func NewReaderDevice(reader io.ReadSeeker, sectorSize uint32) *ReaderDevice {
	return &ReaderDevice{
		reader:     reader,
		sectorSize: sectorSize,
	}
}

func (d *ReaderDevice) ReadSector(n uint64, buf []byte) (int, error) {
	if _, err := d.reader.Seek(int64(n)*int64(d.sectorSize), io.SeekStart); err != nil {
		return 0, checkpoint.Wrap(err, ErrDeviceIO)
	}

	read, err := io.ReadFull(d.reader, buf)
	if err != nil {
		// A sector that cannot be read completely is an error, even at the
		// end of the image.
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return read, checkpoint.Wrap(fmt.Errorf("%w: sector %d", ErrShortRead, n), ErrDeviceIO)
		}
		return read, checkpoint.Wrap(err, ErrDeviceIO)
	}

	return read, nil
}

func (d *ReaderDevice) WriteSector(n uint64, buf []byte) (int, error) {
	return 0, checkpoint.Wrap(syscall.EPERM, ErrUnsupported)
}

func (d *ReaderDevice) SectorSize() uint32 {
	return d.sectorSize
}
