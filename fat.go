package vfat

// fatEntry is the 32 bit value stored in one FAT slot, also used to address
// clusters. Only the low 28 bits are significant; the top 4 bits are
// reserved and masked off by Value.
type fatEntry uint32

const fatEntrySize = 4

func (e fatEntry) Value() uint32 {
	return uint32(e) & 0x0FFFFFFF
}

// IsFree reports an unallocated cluster slot.
func (e fatEntry) IsFree() bool {
	return e.Value() == 0
}

// IsReserved reports the reserved values: slot 1 and the range
// 0x0FFFFFF0-0x0FFFFFF6, which no chain may run through.
func (e fatEntry) IsReserved() bool {
	v := e.Value()
	return v == 1 || (v >= 0x0FFFFFF0 && v <= 0x0FFFFFF6)
}

// IsNextCluster reports a value that links to the next data cluster of a
// chain. Data clusters start at 2.
func (e fatEntry) IsNextCluster() bool {
	v := e.Value()
	return v >= 2 && v <= 0x0FFFFFEF
}

// IsBad marks a cluster unusable due to a media defect.
func (e fatEntry) IsBad() bool {
	return e.Value() == 0x0FFFFFF7
}

// IsEOC reports an end-of-chain marker.
func (e fatEntry) IsEOC() bool {
	return e.Value() >= 0x0FFFFFF8
}
