package vfat

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/aligator/checkpoint"
)

// These errors may occur while decoding a partition table or boot sector.
var (
	ErrBadSignature     = errors.New("invalid boot sector signature")
	ErrNoFAT32Partition = errors.New("no FAT32 partition found")
)

// UnknownBootIndicatorError reports a partition table entry whose boot
// indicator byte is neither 0x00 nor 0x80.
type UnknownBootIndicatorError struct {
	Partition int
	Indicator byte
}

func (e UnknownBootIndicatorError) Error() string {
	return fmt.Sprintf("partition %d has unknown boot indicator 0x%02X", e.Partition, e.Indicator)
}

const (
	bootSignature0 = 0x55
	bootSignature1 = 0xAA

	mbrPartitionTableOffset = 446
	partitionEntrySize      = 16
	mbrDiskIDOffset         = 436

	// Partition type bytes identifying a FAT32 volume, with and without
	// LBA addressing.
	PartitionTypeFAT32    = 0x0B
	PartitionTypeFAT32LBA = 0x0C
)

// CHS is a cylinder-head-sector address as stored in a partition entry.
// The driver only uses LBA addressing; the fields are retained verbatim.
type CHS struct {
	Head uint8
	// SectorCylinder packs the sector into bits 0-5 and the cylinder into
	// bits 6-15.
	SectorCylinder uint16
}

// PartitionEntry is one decoded 16 byte slot of the MBR partition table.
type PartitionEntry struct {
	BootIndicator  byte
	StartingCHS    CHS
	Type           byte
	EndingCHS      CHS
	RelativeSector uint32
	TotalSectors   uint32
}

func decodePartitionEntry(raw []byte) PartitionEntry {
	return PartitionEntry{
		BootIndicator: raw[0],
		StartingCHS: CHS{
			Head:           raw[1],
			SectorCylinder: binary.LittleEndian.Uint16(raw[2:4]),
		},
		Type: raw[4],
		EndingCHS: CHS{
			Head:           raw[5],
			SectorCylinder: binary.LittleEndian.Uint16(raw[6:8]),
		},
		RelativeSector: binary.LittleEndian.Uint32(raw[8:12]),
		TotalSectors:   binary.LittleEndian.Uint32(raw[12:16]),
	}
}

// Bytes encodes the entry back into its 16 byte on-disk form.
func (p PartitionEntry) Bytes() []byte {
	raw := make([]byte, partitionEntrySize)
	raw[0] = p.BootIndicator
	raw[1] = p.StartingCHS.Head
	binary.LittleEndian.PutUint16(raw[2:4], p.StartingCHS.SectorCylinder)
	raw[4] = p.Type
	raw[5] = p.EndingCHS.Head
	binary.LittleEndian.PutUint16(raw[6:8], p.EndingCHS.SectorCylinder)
	binary.LittleEndian.PutUint32(raw[8:12], p.RelativeSector)
	binary.LittleEndian.PutUint32(raw[12:16], p.TotalSectors)
	return raw
}

// MasterBootRecord is the decoded partition table from sector 0 of a
// device. The bootstrap code is not retained.
type MasterBootRecord struct {
	DiskID     [10]byte
	Partitions [4]PartitionEntry
}

// newMasterBootRecord reads sector 0 of device and decodes it.
func newMasterBootRecord(device BlockDevice) (*MasterBootRecord, error) {
	sector := make([]byte, device.SectorSize())
	if _, err := device.ReadSector(0, sector); err != nil {
		return nil, checkpoint.From(err)
	}

	return decodeMasterBootRecord(sector)
}

// decodeMasterBootRecord decodes a raw MBR sector. The sector must end in
// the 0x55 0xAA signature and every partition entry must carry a valid
// boot indicator.
func decodeMasterBootRecord(sector []byte) (*MasterBootRecord, error) {
	if len(sector) < mbrPartitionTableOffset+4*partitionEntrySize+2 {
		return nil, checkpoint.Wrap(fmt.Errorf("sector of %d bytes cannot hold an MBR", len(sector)), ErrBadSignature)
	}

	if sector[len(sector)-2] != bootSignature0 || sector[len(sector)-1] != bootSignature1 {
		return nil, checkpoint.From(ErrBadSignature)
	}

	mbr := &MasterBootRecord{}
	copy(mbr.DiskID[:], sector[mbrDiskIDOffset:mbrPartitionTableOffset])

	for i := range mbr.Partitions {
		raw := sector[mbrPartitionTableOffset+i*partitionEntrySize:][:partitionEntrySize]
		if raw[0] != 0x00 && raw[0] != 0x80 {
			return nil, checkpoint.From(UnknownBootIndicatorError{Partition: i, Indicator: raw[0]})
		}

		mbr.Partitions[i] = decodePartitionEntry(raw)
	}

	return mbr, nil
}

// FAT32PartitionOffset returns the relative starting sector of the first
// partition typed as FAT32. If the table contains none, it fails with
// ErrNoFAT32Partition.
func (m *MasterBootRecord) FAT32PartitionOffset() (uint32, error) {
	for _, partition := range m.Partitions {
		if partition.Type == PartitionTypeFAT32 || partition.Type == PartitionTypeFAT32LBA {
			return partition.RelativeSector, nil
		}
	}

	return 0, checkpoint.From(ErrNoFAT32Partition)
}
