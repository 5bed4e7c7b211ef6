// File model contains the structs which match the raw on-disk structures of
// a FAT32 volume. All multi-byte fields are little-endian; the structs are
// laid out so that binary.Read decodes them at the documented offsets.

package vfat

// BPB is the part of the BIOS parameter block shared by all FAT variants.
// It covers bytes 0-35 of the boot sector; the FAT32 specific tail is kept
// raw in FATSpecificData and decoded separately.
type BPB struct {
	BSJumpBoot          [3]byte
	BSOEMName           [8]byte
	BytesPerSector      uint16
	SectorsPerCluster   byte
	ReservedSectorCount uint16
	NumFATs             byte
	RootEntryCount      uint16
	TotalSectors16      uint16
	Media               byte
	FATSize16           uint16
	SectorsPerTrack     uint16
	NumberOfHeads       uint16
	HiddenSectors       uint32
	TotalSectors32      uint32
	FATSpecificData     [54]byte
}

// FAT32SpecificData is the extended BPB tail as used by FAT32, decoded from
// BPB.FATSpecificData (boot sector bytes 36-89).
type FAT32SpecificData struct {
	FATSize          uint32
	ExtFlags         uint16
	FSVersion        uint16
	RootCluster      fatEntry
	FSInfo           uint16
	BkBootSector     uint16
	Reserved         [12]byte
	BSDriveNumber    byte
	BSReserved1      byte
	BSBootSignature  byte
	BSVolumeID       uint32
	BSVolumeLabel    [11]byte
	BSFileSystemType [8]byte
}

// Attribute flags of a directory record, stored at byte 11 of the record.
const (
	AttrReadOnly  = 0x01
	AttrHidden    = 0x02
	AttrSystem    = 0x04
	AttrVolumeID  = 0x08
	AttrDirectory = 0x10
	AttrArchive   = 0x20

	// AttrLongName marks a long filename continuation record.
	AttrLongName = AttrReadOnly | AttrHidden | AttrSystem | AttrVolumeID
)

// EntryHeader is one regular 32 byte directory record. Name holds the 8
// byte base name directly followed by the 3 byte extension, both padded
// with spaces.
type EntryHeader struct {
	Name            [11]byte
	Attribute       byte
	NTReserved      byte
	CreateTimeTenth byte
	CreateTime      uint16
	CreateDate      uint16
	LastAccessDate  uint16
	FirstClusterHI  uint16
	WriteTime       uint16
	WriteDate       uint16
	FirstClusterLO  uint16
	FileSize        uint32
}

// FirstCluster combines the two halves of the record's start cluster.
func (h *EntryHeader) FirstCluster() fatEntry {
	return fatEntry(uint32(h.FirstClusterHI)<<16 | uint32(h.FirstClusterLO))
}

// LongFilenameEntry is one 32 byte long filename continuation record. It
// carries 13 UTF-16 code units of the name, split over three groups.
type LongFilenameEntry struct {
	Sequence  byte
	First     [5]uint16
	Attribute byte
	EntryType byte
	Checksum  byte
	Second    [6]uint16
	Zero      [2]byte
	Third     [2]uint16
}

// ExtendedEntryHeader is a regular directory record together with the long
// filename reassembled from its preceding continuation records. If the
// record had no long filename, ExtendedName is empty and the name is
// synthesized from the 8.3 field.
type ExtendedEntryHeader struct {
	EntryHeader
	ExtendedName string
}
