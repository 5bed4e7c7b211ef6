package vfat

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/aligator/checkpoint"
)

// BiosParameterBlock is the decoded FAT32 boot sector: the common BPB plus
// the FAT32 specific extension. Beyond the trailing boot signature no
// validation happens here; a volume with nonsensical geometry fails at
// first use instead.
type BiosParameterBlock struct {
	BPB
	FAT32 FAT32SpecificData
}

// newBiosParameterBlock reads the boot sector at the given absolute sector
// of device and decodes it.
func newBiosParameterBlock(device BlockDevice, sector uint64) (*BiosParameterBlock, error) {
	raw := make([]byte, device.SectorSize())
	if _, err := device.ReadSector(sector, raw); err != nil {
		return nil, checkpoint.From(err)
	}

	return decodeBiosParameterBlock(raw)
}

func decodeBiosParameterBlock(raw []byte) (*BiosParameterBlock, error) {
	if len(raw) < 2 || raw[len(raw)-2] != bootSignature0 || raw[len(raw)-1] != bootSignature1 {
		return nil, checkpoint.From(ErrBadSignature)
	}

	ebpb := &BiosParameterBlock{}
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &ebpb.BPB); err != nil {
		return nil, checkpoint.From(err)
	}

	if err := binary.Read(bytes.NewReader(ebpb.FATSpecificData[:]), binary.LittleEndian, &ebpb.FAT32); err != nil {
		return nil, checkpoint.From(err)
	}

	return ebpb, nil
}

// Label returns the volume label without its space padding.
func (b *BiosParameterBlock) Label() string {
	return strings.TrimRight(string(b.FAT32.BSVolumeLabel[:]), " \x00")
}
