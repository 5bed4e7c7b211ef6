// Package fatimg builds minimal FAT32 volumes in memory: an MBR with a
// single FAT32 partition, a boot sector, the FATs and a data region filled
// from a directory tree. It exists for the test suite and for generating
// example images and is not a general purpose formatter.
package fatimg

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"
)

const (
	sectorSize    = 512
	dirRecordSize = 32

	endOfChain = 0x0FFFFFFF
	mediaFixed = 0xF8

	attrDirectory = 0x10
	attrArchive   = 0x20
	attrLongName  = 0x0F

	// Fixed timestamps stamped onto every record: 2023-06-15, 12:30:04.
	stampDate = (43 << 9) | (6 << 5) | 15
	stampTime = (12 << 11) | (30 << 5) | 2
)

var ErrBadName = errors.New("invalid file name")

// File describes one file to place into the image.
type File struct {
	Name    string
	Content []byte
}

// Dir describes a directory and its children. Children are laid out in
// order: files first, then subdirectories.
type Dir struct {
	Name  string
	Files []File
	Dirs  []Dir
}

// Options control the image geometry. Zero values pick the defaults.
type Options struct {
	Label             string
	SectorsPerCluster int    // default 1
	PartitionStart    uint32 // default 64
	ReservedSectors   int    // default 32
	NumFATs           int    // default 2
}

func (o *Options) applyDefaults() {
	if o.SectorsPerCluster == 0 {
		o.SectorsPerCluster = 1
	}
	if o.PartitionStart == 0 {
		o.PartitionStart = 64
	}
	if o.ReservedSectors == 0 {
		o.ReservedSectors = 32
	}
	if o.NumFATs == 0 {
		o.NumFATs = 2
	}
}

type node struct {
	isDir   bool
	name    string
	content []byte

	parent   *node
	children []*node

	shortName    [11]byte
	firstCluster uint32
	clusterCount int
}

// Build renders root into a complete disk image. The name of root itself
// is ignored; its children populate the root directory.
func Build(root Dir, opts Options) ([]byte, error) {
	opts.applyDefaults()
	clusterBytes := sectorSize * opts.SectorsPerCluster

	tree, err := buildTree(&root, nil)
	if err != nil {
		return nil, err
	}

	nextCluster := uint32(2)
	allocate(tree, clusterBytes, &nextCluster)

	fatSectors := int((nextCluster*4 + sectorSize - 1) / sectorSize)
	dataSectors := int(nextCluster-2) * opts.SectorsPerCluster
	partitionSectors := opts.ReservedSectors + opts.NumFATs*fatSectors + dataSectors
	totalSectors := int(opts.PartitionStart) + partitionSectors

	image := make([]byte, totalSectors*sectorSize)

	writeMBR(image, opts, uint32(partitionSectors))
	writeBootSector(image, opts, uint32(fatSectors), uint32(partitionSectors))

	fat := make([]uint32, nextCluster)
	fat[0] = 0x0FFFFF00 | mediaFixed
	fat[1] = endOfChain
	writeChains(tree, fat)

	fatStart := int(opts.PartitionStart) + opts.ReservedSectors
	for copyNo := 0; copyNo < opts.NumFATs; copyNo++ {
		offset := (fatStart + copyNo*fatSectors) * sectorSize
		for i, entry := range fat {
			binary.LittleEndian.PutUint32(image[offset+i*4:], entry)
		}
	}

	dataStart := fatStart + opts.NumFATs*fatSectors
	clusterOffset := func(cluster uint32) int {
		return (dataStart + int(cluster-2)*opts.SectorsPerCluster) * sectorSize
	}

	writeData(image, tree, clusterOffset)

	return image, nil
}

func buildTree(dir *Dir, parent *node) (*node, error) {
	n := &node{isDir: true, name: dir.Name, parent: parent}

	used := map[string]bool{}
	for i := range dir.Files {
		file := &dir.Files[i]
		if err := checkName(file.Name); err != nil {
			return nil, err
		}

		child := &node{name: file.Name, content: file.Content, parent: n}
		child.shortName = shortName(file.Name, used)
		n.children = append(n.children, child)
	}

	for i := range dir.Dirs {
		sub := &dir.Dirs[i]
		if err := checkName(sub.Name); err != nil {
			return nil, err
		}

		child, err := buildTree(sub, n)
		if err != nil {
			return nil, err
		}
		child.shortName = shortName(sub.Name, used)
		n.children = append(n.children, child)
	}

	return n, nil
}

func checkName(name string) error {
	if name == "" || strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("%w: %q", ErrBadName, name)
	}
	return nil
}

// allocate assigns each node its cluster chain in depth-first pre-order.
func allocate(n *node, clusterBytes int, next *uint32) {
	size := len(n.content)
	if n.isDir {
		size = n.recordBytes()
	}

	count := (size + clusterBytes - 1) / clusterBytes
	if n.isDir && count == 0 {
		count = 1
	}

	if count > 0 {
		n.firstCluster = *next
		n.clusterCount = count
		*next += uint32(count)
	}

	for _, child := range n.children {
		allocate(child, clusterBytes, next)
	}
}

// recordBytes is the encoded size of a directory, including dot entries
// for subdirectories and the end-of-directory marker.
func (n *node) recordBytes() int {
	records := 1 // end marker
	if n.parent != nil {
		records += 2 // "." and ".."
	}
	for _, child := range n.children {
		records += 1 + lfnRecords(child.name, child.shortName)
	}
	return records * dirRecordSize
}

func writeChains(n *node, fat []uint32) {
	for i := 0; i < n.clusterCount; i++ {
		cluster := n.firstCluster + uint32(i)
		if i == n.clusterCount-1 {
			fat[cluster] = endOfChain
		} else {
			fat[cluster] = cluster + 1
		}
	}

	for _, child := range n.children {
		writeChains(child, fat)
	}
}

func writeData(image []byte, n *node, clusterOffset func(uint32) int) {
	data := n.content
	if n.isDir {
		data = n.encodeRecords()
	}

	if n.clusterCount > 0 {
		copy(image[clusterOffset(n.firstCluster):], data)
	}

	for _, child := range n.children {
		writeData(image, child, clusterOffset)
	}
}

func (n *node) encodeRecords() []byte {
	var data []byte

	if n.parent != nil {
		parentCluster := n.parent.firstCluster
		if n.parent.parent == nil {
			// The ".." of a first-level directory points at cluster 0.
			parentCluster = 0
		}

		data = append(data, dotRecord(".", n.firstCluster)...)
		data = append(data, dotRecord("..", parentCluster)...)
	}

	for _, child := range n.children {
		data = append(data, lfnChain(child.name, child.shortName)...)
		data = append(data, child.record()...)
	}

	// The end-of-directory marker is a zero record; the remainder of the
	// cluster is already zero.
	data = append(data, make([]byte, dirRecordSize)...)

	return data
}

func dotRecord(name string, cluster uint32) []byte {
	record := make([]byte, dirRecordSize)
	copy(record, "           ")
	copy(record, name)
	record[11] = attrDirectory
	stampRecord(record)
	binary.LittleEndian.PutUint16(record[20:22], uint16(cluster>>16))
	binary.LittleEndian.PutUint16(record[26:28], uint16(cluster))
	return record
}

func (n *node) record() []byte {
	record := make([]byte, dirRecordSize)
	copy(record, n.shortName[:])

	if n.isDir {
		record[11] = attrDirectory
	} else {
		record[11] = attrArchive
	}

	stampRecord(record)

	firstCluster := n.firstCluster
	if n.clusterCount == 0 {
		firstCluster = 0
	}
	binary.LittleEndian.PutUint16(record[20:22], uint16(firstCluster>>16))
	binary.LittleEndian.PutUint16(record[26:28], uint16(firstCluster))

	if !n.isDir {
		binary.LittleEndian.PutUint32(record[28:32], uint32(len(n.content)))
	}

	return record
}

func stampRecord(record []byte) {
	binary.LittleEndian.PutUint16(record[14:16], stampTime) // create time
	binary.LittleEndian.PutUint16(record[16:18], stampDate) // create date
	binary.LittleEndian.PutUint16(record[18:20], stampDate) // access date
	binary.LittleEndian.PutUint16(record[22:24], stampTime) // write time
	binary.LittleEndian.PutUint16(record[24:26], stampDate) // write date
}

func writeMBR(image []byte, opts Options, partitionSectors uint32) {
	entry := image[446:462]
	entry[0] = 0x00
	entry[4] = 0x0C // FAT32 LBA
	binary.LittleEndian.PutUint32(entry[8:12], opts.PartitionStart)
	binary.LittleEndian.PutUint32(entry[12:16], partitionSectors)

	image[510] = 0x55
	image[511] = 0xAA
}

func writeBootSector(image []byte, opts Options, fatSectors, partitionSectors uint32) {
	sector := image[int(opts.PartitionStart)*sectorSize:][:sectorSize]

	sector[0] = 0xEB
	sector[1] = 0x3C
	sector[2] = 0x90
	copy(sector[3:11], "fatimg  ")

	binary.LittleEndian.PutUint16(sector[11:13], sectorSize)
	sector[13] = byte(opts.SectorsPerCluster)
	binary.LittleEndian.PutUint16(sector[14:16], uint16(opts.ReservedSectors))
	sector[16] = byte(opts.NumFATs)
	sector[21] = mediaFixed
	binary.LittleEndian.PutUint32(sector[28:32], opts.PartitionStart) // hidden sectors
	binary.LittleEndian.PutUint32(sector[32:36], partitionSectors)

	binary.LittleEndian.PutUint32(sector[36:40], fatSectors)
	binary.LittleEndian.PutUint32(sector[44:48], 2) // root cluster
	binary.LittleEndian.PutUint16(sector[48:50], 1) // FSInfo sector
	binary.LittleEndian.PutUint16(sector[50:52], 6) // backup boot sector
	sector[64] = 0x80
	sector[66] = 0x29
	binary.LittleEndian.PutUint32(sector[67:71], 0x1234ABCD)

	label := opts.Label
	if label == "" {
		label = "NO NAME"
	}
	copy(sector[71:82], "           ")
	copy(sector[71:82], label)
	copy(sector[82:90], "FAT32   ")

	sector[510] = 0x55
	sector[511] = 0xAA
}

// shortName derives a unique 8.3 name for the given long name within one
// directory, uppercasing and, where the name does not fit, truncating the
// base to six characters plus a "~N" tail.
func shortName(name string, used map[string]bool) [11]byte {
	base := name
	ext := ""
	if dot := strings.LastIndex(name, "."); dot > 0 {
		base = name[:dot]
		ext = name[dot+1:]
	}

	base = sanitize(base)
	ext = sanitize(ext)
	if len(ext) > 3 {
		ext = ext[:3]
	}

	if len(base) > 8 || needsTail(name, base, ext) {
		if len(base) > 6 {
			base = base[:6]
		}
		for i := 1; ; i++ {
			candidate := fmt.Sprintf("%s~%d", base, i)
			if !used[candidate+"."+ext] {
				base = candidate
				break
			}
		}
	}
	used[base+"."+ext] = true

	var short [11]byte
	copy(short[:], "           ")
	copy(short[:8], base)
	copy(short[8:], ext)
	return short
}

func sanitize(part string) string {
	part = strings.ToUpper(part)
	var b strings.Builder
	for _, r := range part {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 && part != "" {
		return "_"
	}
	return b.String()
}

// needsTail reports whether the long name cannot be represented by its
// plain uppercase 8.3 rendering, which means an LFN chain plus a ~N short
// name will be generated.
func needsTail(name, base, ext string) bool {
	rendered := base
	if ext != "" {
		rendered += "." + ext
	}
	return !strings.EqualFold(name, rendered) || strings.ToUpper(name) != name
}

// lfnRecords is the number of long filename continuation records written
// in front of the regular record.
func lfnRecords(name string, short [11]byte) int {
	if !lfnNeeded(name, short) {
		return 0
	}
	units := len(utf16.Encode([]rune(name))) + 1 // terminator
	return (units + 12) / 13
}

func lfnNeeded(name string, short [11]byte) bool {
	base := strings.TrimRight(string(short[:8]), " ")
	ext := strings.TrimRight(string(short[8:]), " ")
	rendered := base
	if ext != "" {
		rendered += "." + ext
	}
	return name != rendered
}

// lfnChain encodes the long filename continuation records for name, in
// descending sequence order as they appear on disk. Returns nil if the
// short name already represents the name exactly.
func lfnChain(name string, short [11]byte) []byte {
	if !lfnNeeded(name, short) {
		return nil
	}

	units := utf16.Encode([]rune(name))
	units = append(units, 0x0000)
	for len(units)%13 != 0 {
		units = append(units, 0xFFFF)
	}
	groups := len(units) / 13

	sum := checksum(short)

	var data []byte
	for seq := groups; seq >= 1; seq-- {
		record := make([]byte, dirRecordSize)

		sequence := byte(seq)
		if seq == groups {
			sequence |= 0x40 // last logical, first physical
		}
		record[0] = sequence
		record[11] = attrLongName
		record[13] = sum

		group := units[(seq-1)*13 : seq*13]
		for i, unit := range group[:5] {
			binary.LittleEndian.PutUint16(record[1+i*2:], unit)
		}
		for i, unit := range group[5:11] {
			binary.LittleEndian.PutUint16(record[14+i*2:], unit)
		}
		for i, unit := range group[11:13] {
			binary.LittleEndian.PutUint16(record[28+i*2:], unit)
		}

		data = append(data, record...)
	}

	return data
}

func checksum(short [11]byte) byte {
	var sum byte
	for _, c := range short {
		sum = ((sum & 1) << 7) + (sum >> 1) + c
	}
	return sum
}
