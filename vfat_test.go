package vfat

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestNewVFat(t *testing.T) {
	vfat := testVFat(t, testImage(t))

	if got := vfat.label; got != "TESTDATA" {
		t.Errorf("label = %q, want %q", got, "TESTDATA")
	}
	if got := vfat.bytesPerSector; got != 512 {
		t.Errorf("bytesPerSector = %v, want %v", got, 512)
	}
	if got := vfat.sectorsPerCluster; got != 1 {
		t.Errorf("sectorsPerCluster = %v, want %v", got, 1)
	}
	if got := vfat.fatStartSector; got != testFATStartSector {
		t.Errorf("fatStartSector = %v, want %v", got, testFATStartSector)
	}
	if got := vfat.dataStartSector; got != testDataStartSector {
		t.Errorf("dataStartSector = %v, want %v", got, testDataStartSector)
	}
	if got := vfat.rootCluster; got != testRootCluster {
		t.Errorf("rootCluster = %v, want %v", got, testRootCluster)
	}
}

func TestNewVFat_noFAT32Partition(t *testing.T) {
	image := testImage(t)
	// Retype the partition to Linux.
	image[mbrPartitionTableOffset+4] = 0x83

	_, err := newVFat(newSliceDevice(image))
	if !errors.Is(err, ErrNoFAT32Partition) {
		t.Errorf("newVFat() error = %v, want %v", err, ErrNoFAT32Partition)
	}
}

func TestNewVFat_badBootSector(t *testing.T) {
	image := testImage(t)
	image[testPartitionStart*512+511] = 0x00

	_, err := newVFat(newSliceDevice(image))
	if !errors.Is(err, ErrBadSignature) {
		t.Errorf("newVFat() error = %v, want %v", err, ErrBadSignature)
	}
}

func TestVFat_fatEntry(t *testing.T) {
	vfat := testVFat(t, testImage(t))

	tests := []struct {
		name    string
		cluster fatEntry
		want    func(entry fatEntry) bool
		desc    string
	}{
		{
			name:    "root directory is a single cluster",
			cluster: testRootCluster,
			want:    fatEntry.IsEOC,
			desc:    "end of chain",
		},
		{
			name:    "multi cluster file links forward",
			cluster: testBigCluster,
			want: func(entry fatEntry) bool {
				return entry == testBigCluster+1
			},
			desc: "the following cluster",
		},
		{
			name:    "last cluster of the multi cluster file",
			cluster: testBigCluster + 2,
			want:    fatEntry.IsEOC,
			desc:    "end of chain",
		},
		{
			name:    "unallocated cluster",
			cluster: 40,
			want:    fatEntry.IsFree,
			desc:    "a free entry",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := vfat.fatEntry(tt.cluster)
			if err != nil {
				t.Fatalf("fatEntry() error = %v", err)
			}
			if !tt.want(entry) {
				t.Errorf("fatEntry() = 0x%08X, want %v", entry.Value(), tt.desc)
			}
		})
	}
}

func TestVFat_firstSectorOfCluster(t *testing.T) {
	vfat := testVFat(t, testImage(t))

	tests := []struct {
		cluster fatEntry
		want    uint64
	}{
		{cluster: 2, want: testDataStartSector},
		{cluster: 3, want: testDataStartSector + 1},
		{cluster: 10, want: testDataStartSector + 8},
	}
	for _, tt := range tests {
		if got := vfat.firstSectorOfCluster(tt.cluster); got != tt.want {
			t.Errorf("firstSectorOfCluster(%d) = %v, want %v", tt.cluster, got, tt.want)
		}
	}
}

func TestVFat_readChain(t *testing.T) {
	vfat := testVFat(t, testImage(t))

	data, err := vfat.readChain(testBigCluster)
	if err != nil {
		t.Fatalf("readChain() error = %v", err)
	}

	// The chain is three clusters long; the tail of the last cluster is
	// zero padding beyond the file size.
	if len(data) != 3*vfat.bytesPerCluster() {
		t.Fatalf("readChain() returned %d bytes, want %d", len(data), 3*vfat.bytesPerCluster())
	}
	if !bytes.Equal(data[:len(bigContent)], bigContent) {
		t.Error("readChain() returned the wrong file content")
	}
	if !bytes.Equal(data[len(bigContent):], make([]byte, len(data)-len(bigContent))) {
		t.Error("readChain() did not zero pad the last cluster")
	}
}

func TestVFat_readChain_singleCluster(t *testing.T) {
	vfat := testVFat(t, testImage(t))

	data, err := vfat.readChain(testReadmeCluster)
	if err != nil {
		t.Fatalf("readChain() error = %v", err)
	}

	if len(data) != vfat.bytesPerCluster() {
		t.Fatalf("readChain() returned %d bytes, want %d", len(data), vfat.bytesPerCluster())
	}
	if !bytes.Equal(data[:len(readmeContent)], readmeContent) {
		t.Error("readChain() returned the wrong file content")
	}
}

func TestVFat_readChain_invalid(t *testing.T) {
	tests := []struct {
		name  string
		entry uint32
	}{
		{name: "chain runs into a free cluster", entry: 0x00000000},
		{name: "chain runs into a bad cluster", entry: 0x0FFFFFF7},
		{name: "chain runs into a reserved cluster", entry: 0x00000001},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			image := testImage(t)
			// Corrupt the FAT slot of the middle cluster of the chain.
			slot := testFATStartSector*512 + (testBigCluster+1)*fatEntrySize
			binary.LittleEndian.PutUint32(image[slot:], tt.entry)

			vfat := testVFat(t, image)

			data, err := vfat.readChain(testBigCluster)
			if !errors.Is(err, ErrInvalidChain) {
				t.Errorf("readChain() error = %v, want %v", err, ErrInvalidChain)
			}
			if data != nil {
				t.Errorf("readChain() returned %d bytes of partial data, want none", len(data))
			}
		})
	}
}

func TestVFat_readChain_startOnFreeCluster(t *testing.T) {
	vfat := testVFat(t, testImage(t))

	if _, err := vfat.readChain(40); !errors.Is(err, ErrInvalidChain) {
		t.Errorf("readChain() error = %v, want %v", err, ErrInvalidChain)
	}
}
