package vfat

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/max-b/vfat/fatimg"
)

// errSliceDevice is injected by sliceDevice to simulate failing hardware.
var errSliceDevice = errors.New("injected device error")

// sliceDevice is an in-memory BlockDevice over a raw image. It counts
// reads and can be told to fail on one specific sector.
type sliceDevice struct {
	data       []byte
	sectorSize uint32
	reads      int
	failSector int64
}

func newSliceDevice(data []byte) *sliceDevice {
	return &sliceDevice{
		data:       data,
		sectorSize: 512,
		failSector: -1,
	}
}

func (d *sliceDevice) ReadSector(n uint64, buf []byte) (int, error) {
	if d.failSector >= 0 && uint64(d.failSector) == n {
		return 0, errSliceDevice
	}

	d.reads++

	offset := int(n) * int(d.sectorSize)
	if offset+len(buf) > len(d.data) {
		return 0, fmt.Errorf("%w: sector %d outside of the image", ErrShortRead, n)
	}

	return copy(buf, d.data[offset:offset+len(buf)]), nil
}

func (d *sliceDevice) WriteSector(n uint64, buf []byte) (int, error) {
	return 0, errSliceDevice
}

func (d *sliceDevice) SectorSize() uint32 {
	return d.sectorSize
}

// Contents of the standard test image. bigContent spans three clusters at
// one sector per cluster.
var (
	readmeContent = []byte("Hello World from a FAT32 volume!\n")
	longContent   = []byte("long name, short file\n")
	helloContent  = []byte("Hello World!\n")
	bigContent    = bytes.Repeat([]byte("0123456789abcdef"), 75) // 1200 bytes
	innerContent  = []byte("nested file content\n")
)

// Allocation layout of the standard test image: one sector per cluster,
// partition start 64, 32 reserved sectors, 2 FATs of one sector each.
const (
	testPartitionStart  = 64
	testFATStartSector  = 96
	testDataStartSector = 98

	testRootCluster   = 2
	testReadmeCluster = 3
	testLongCluster   = 4
	testHelloCluster  = 5
	testBigCluster    = 6 // clusters 6, 7, 8
	testNestedCluster = 9
	testInnerCluster  = 10
)

// testImage builds the standard FAT32 image used all over the tests.
func testImage(t *testing.T) []byte {
	t.Helper()

	image, err := fatimg.Build(fatimg.Dir{
		Files: []fatimg.File{
			{Name: "README.TXT", Content: readmeContent},
			{Name: "LONGFILENAME.TXT", Content: longContent},
			{Name: "HelloWorldThisIsALoongFileName.txt", Content: helloContent},
			{Name: "big.bin", Content: bigContent},
			{Name: "empty.txt"},
		},
		Dirs: []fatimg.Dir{
			{
				Name: "nested",
				Files: []fatimg.File{
					{Name: "inner.txt", Content: innerContent},
				},
			},
		},
	}, fatimg.Options{Label: "TESTDATA"})
	if err != nil {
		t.Fatalf("could not build the test image: %v", err)
	}

	return image
}

// emptyRootImage builds an image whose root directory contains only the
// end-of-directory marker.
func emptyRootImage(t *testing.T) []byte {
	t.Helper()

	image, err := fatimg.Build(fatimg.Dir{}, fatimg.Options{Label: "EMPTY"})
	if err != nil {
		t.Fatalf("could not build the empty test image: %v", err)
	}

	return image
}

// testFs mounts the standard test image.
func testFs(t *testing.T) *Fs {
	t.Helper()

	fs, err := New(newSliceDevice(testImage(t)))
	if err != nil {
		t.Fatalf("could not mount the test image: %v", err)
	}

	return fs
}

// testVFat mounts the standard test image and returns the raw engine.
func testVFat(t *testing.T, image []byte) *VFat {
	t.Helper()

	vfat, err := newVFat(newSliceDevice(image))
	if err != nil {
		t.Fatalf("could not mount the test image: %v", err)
	}

	return vfat
}
