package vfat

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/aligator/checkpoint"
)

// ErrInvalidChain reports a cluster chain that runs through a free,
// reserved or bad FAT entry. It indicates on-disk corruption; no partial
// data is returned in that case.
var ErrInvalidChain = errors.New("cluster chain runs through a free, reserved or bad FAT entry")

// VFat is the volume engine. It owns the sector cache and the immutable
// geometry parsed at mount time and knows how to look up FAT entries,
// translate clusters to sectors and follow cluster chains.
//
// A VFat is not safe for concurrent use; callers sharing one across
// goroutines have to serialize access themselves.
type VFat struct {
	device *CachedDevice

	label             string
	bytesPerSector    uint16
	sectorsPerCluster uint8
	sectorsPerFAT     uint32
	fatStartSector    uint64
	dataStartSector   uint64
	rootCluster       fatEntry
}

// newVFat locates the first FAT32 partition on device and mounts it. The
// MBR and EBPB are only used to derive the geometry and are not retained.
func newVFat(device BlockDevice) (*VFat, error) {
	mbr, err := newMasterBootRecord(device)
	if err != nil {
		return nil, checkpoint.From(err)
	}

	offset, err := mbr.FAT32PartitionOffset()
	if err != nil {
		return nil, checkpoint.From(err)
	}

	ebpb, err := newBiosParameterBlock(device, uint64(offset))
	if err != nil {
		return nil, checkpoint.From(err)
	}

	partitionStart := uint64(offset)
	fatStart := partitionStart + uint64(ebpb.ReservedSectorCount)

	return &VFat{
		device: NewCachedDevice(device, Partition{
			Start:      partitionStart,
			SectorSize: uint64(ebpb.BytesPerSector),
		}),
		label:             ebpb.Label(),
		bytesPerSector:    ebpb.BytesPerSector,
		sectorsPerCluster: ebpb.SectorsPerCluster,
		sectorsPerFAT:     ebpb.FAT32.FATSize,
		fatStartSector:    fatStart,
		dataStartSector:   fatStart + uint64(ebpb.NumFATs)*uint64(ebpb.FAT32.FATSize),
		rootCluster:       ebpb.FAT32.RootCluster,
	}, nil
}

// fatEntry reads and returns the FAT slot of the given cluster.
func (v *VFat) fatEntry(cluster fatEntry) (fatEntry, error) {
	entriesPerSector := uint32(v.bytesPerSector) / fatEntrySize
	sector := v.fatStartSector + uint64(cluster.Value()/entriesPerSector)
	offset := (cluster.Value() % entriesPerSector) * fatEntrySize

	data, err := v.device.Get(sector)
	if err != nil {
		return 0, checkpoint.From(err)
	}

	return fatEntry(binary.LittleEndian.Uint32(data[offset : offset+fatEntrySize])), nil
}

// firstSectorOfCluster translates a data cluster number into its first
// logical sector. Cluster numbering is data-region-relative starting at 2.
func (v *VFat) firstSectorOfCluster(cluster fatEntry) uint64 {
	return v.dataStartSector + uint64(cluster.Value()-2)*uint64(v.sectorsPerCluster)
}

func (v *VFat) bytesPerCluster() int {
	return int(v.bytesPerSector) * int(v.sectorsPerCluster)
}

// readCluster copies one full cluster into buf, one cached sector read per
// sector. buf must hold at least bytesPerCluster bytes.
func (v *VFat) readCluster(cluster fatEntry, buf []byte) error {
	first := v.firstSectorOfCluster(cluster)
	for i := uint64(0); i < uint64(v.sectorsPerCluster); i++ {
		data, err := v.device.Get(first + i)
		if err != nil {
			return checkpoint.From(err)
		}

		copy(buf[i*uint64(v.bytesPerSector):], data)
	}

	return nil
}

// readChain follows the cluster chain starting at start and returns all of
// its data. The result is always a whole number of clusters long; callers
// that know a byte size have to truncate themselves.
//
// A chain must end in an end-of-chain marker. If a FAT entry resolves to a
// free, reserved or bad cluster mid-chain, readChain fails with
// ErrInvalidChain and returns no data.
func (v *VFat) readChain(start fatEntry) ([]byte, error) {
	var data []byte
	cursor := start

	for {
		entry, err := v.fatEntry(cursor)
		if err != nil {
			return nil, checkpoint.From(err)
		}

		if !entry.IsNextCluster() && !entry.IsEOC() {
			return nil, checkpoint.Wrap(
				fmt.Errorf("cluster %d resolves to 0x%08X", cursor.Value(), entry.Value()),
				ErrInvalidChain,
			)
		}

		buf := make([]byte, v.bytesPerCluster())
		if err := v.readCluster(cursor, buf); err != nil {
			return nil, checkpoint.From(err)
		}
		data = append(data, buf...)

		if entry.IsEOC() {
			return data, nil
		}
		cursor = entry
	}
}
