package vfat

import (
	"fmt"

	"github.com/aligator/checkpoint"
)

// Partition describes the logical window a CachedDevice serves: where the
// partition begins on the physical medium and how large one logical sector
// inside of it is.
type Partition struct {
	// Start is the physical sector where the partition begins.
	Start uint64
	// SectorSize is the size, in bytes, of a logical sector in the
	// partition. It must be a multiple of the device's sector size.
	SectorSize uint64
}

type cacheEntry struct {
	data  []byte
	dirty bool
}

// CachedDevice is the single point of device I/O for a mounted volume. It
// caches sector buffers keyed by logical sector index and rewrites
// addresses between physical and logical sector numbering.
//
// An access to a sector before Partition.Start is made 1:1 to the physical
// sector of that index and caches a physical-sized buffer. An access at or
// after Partition.Start materializes as many contiguous physical sectors
// as make up one logical sector.
//
// The cache never evicts; every sector read stays in memory for the
// lifetime of the CachedDevice, which bounds memory by the volume size.
// Dirty entries are never written back, the driver is read-only.
//
// A CachedDevice is not safe for concurrent use.
type CachedDevice struct {
	device    BlockDevice
	partition Partition
	cache     map[uint64]*cacheEntry
}

// NewCachedDevice creates a cache over device serving the window described
// by partition.
//
// Panics if partition.SectorSize is smaller than the device's sector size
// or not an integer multiple of it. That is a programming error of the
// caller, not a device condition.
func NewCachedDevice(device BlockDevice, partition Partition) *CachedDevice {
	physical := uint64(device.SectorSize())
	if partition.SectorSize < physical || partition.SectorSize%physical != 0 {
		panic(fmt.Sprintf(
			"vfat: logical sector size %d is no multiple of the device sector size %d",
			partition.SectorSize, physical,
		))
	}

	return &CachedDevice{
		device:    device,
		partition: partition,
		cache:     map[uint64]*cacheEntry{},
	}
}

// virtualToPhysical maps a logical sector index to the first physical
// sector backing it and the number of physical sectors making it up.
func (c *CachedDevice) virtualToPhysical(virt uint64) (uint64, uint64) {
	physical := uint64(c.device.SectorSize())
	if virt < c.partition.Start || physical == c.partition.SectorSize {
		return virt, 1
	}

	factor := c.partition.SectorSize / physical
	return c.partition.Start + (virt-c.partition.Start)*factor, factor
}

func (c *CachedDevice) readSectorFromDisk(virt uint64) ([]byte, error) {
	physicalSector, count := c.virtualToPhysical(virt)
	physicalSize := uint64(c.device.SectorSize())

	data := make([]byte, physicalSize*count)
	for i := uint64(0); i < count; i++ {
		buf := data[i*physicalSize : (i+1)*physicalSize]

		read, err := c.device.ReadSector(physicalSector+i, buf)
		if err != nil {
			return nil, checkpoint.Wrap(err, ErrDeviceIO)
		}
		if read != len(buf) {
			return nil, checkpoint.Wrap(fmt.Errorf("%w: sector %d", ErrShortRead, physicalSector+i), ErrDeviceIO)
		}
	}

	return data, nil
}

// Get returns the cached buffer of the given logical sector, reading
// through to the device on first access. The returned slice is owned by
// the cache and must not be modified; use GetMutable for that.
func (c *CachedDevice) Get(sector uint64) ([]byte, error) {
	entry, ok := c.cache[sector]
	if !ok {
		data, err := c.readSectorFromDisk(sector)
		if err != nil {
			return nil, checkpoint.From(err)
		}

		entry = &cacheEntry{data: data}
		c.cache[sector] = entry
	}

	return entry.data, nil
}

// GetMutable returns a writable buffer of the given logical sector,
// reading through if necessary, and marks the entry dirty. The dirt only
// ever lives in memory as there is no write-back.
func (c *CachedDevice) GetMutable(sector uint64) ([]byte, error) {
	data, err := c.Get(sector)
	if err != nil {
		return nil, checkpoint.From(err)
	}

	c.cache[sector].dirty = true
	return data, nil
}
