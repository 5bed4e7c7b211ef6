package vfat

import (
	"bytes"
	"encoding/binary"
	"unicode"
	"unicode/utf16"

	"github.com/aligator/checkpoint"
)

const (
	dirRecordSize = 32

	// Marker values in byte 0 of a directory record.
	endOfDirectory = 0x00
	deletedEntry   = 0xE5
)

// readDir reads the directory stored in the cluster chain starting at
// cluster and decodes its records.
func (v *VFat) readDir(cluster fatEntry) ([]ExtendedEntryHeader, error) {
	data, err := v.readChain(cluster)
	if err != nil {
		return nil, checkpoint.From(err)
	}

	return decodeDirEntries(data)
}

// readRoot reads the root directory. FAT32 keeps it in a regular cluster
// chain starting at the root cluster from the EBPB.
func (v *VFat) readRoot() ([]ExtendedEntryHeader, error) {
	return v.readDir(v.rootCluster)
}

// decodeDirEntries scans the raw byte sequence of a directory chain as
// consecutive 32 byte records, in on-disk order, and decodes them into
// entries. Long filenames are reassembled from the continuation records
// preceding their regular record.
//
// Volume label pseudo entries and the "." / ".." records of subdirectories
// are not surfaced.
func decodeDirEntries(data []byte) ([]ExtendedEntryHeader, error) {
	var entries []ExtendedEntryHeader
	var pendingLfn []LongFilenameEntry

	for offset := 0; offset+dirRecordSize <= len(data); offset += dirRecordSize {
		record := data[offset : offset+dirRecordSize]

		switch {
		case record[0] == endOfDirectory:
			// No more entries follow, even if chain bytes remain.
			return entries, nil

		case record[0] == deletedEntry:
			// Any pending long name fragments belonged to this record.
			pendingLfn = pendingLfn[:0]

		case record[11] == AttrLongName:
			lfn := LongFilenameEntry{}
			if err := binary.Read(bytes.NewReader(record), binary.LittleEndian, &lfn); err != nil {
				return nil, checkpoint.From(err)
			}

			if lfn.Sequence != deletedEntry {
				pendingLfn = append(pendingLfn, lfn)
			}

		case record[11]&AttrVolumeID != 0:
			// Volume label pseudo entry, not a file.
			pendingLfn = pendingLfn[:0]

		case record[0] == '.':
			// "." and ".." of a subdirectory.
			pendingLfn = pendingLfn[:0]

		default:
			header := EntryHeader{}
			if err := binary.Read(bytes.NewReader(record), binary.LittleEndian, &header); err != nil {
				return nil, checkpoint.From(err)
			}

			entries = append(entries, ExtendedEntryHeader{
				EntryHeader:  header,
				ExtendedName: longFilename(pendingLfn),
			})
			pendingLfn = pendingLfn[:0]
		}
	}

	return entries, nil
}

// longFilename reassembles the name carried by the given continuation
// records. Records are stored on disk in descending sequence order, so the
// 13-unit fragments concatenate in reverse record order. The name ends at
// the first 0x0000 terminator or 0xFFFF padding unit; code units that do
// not decode as UTF-16 become '_'.
func longFilename(lfns []LongFilenameEntry) string {
	if len(lfns) == 0 {
		return ""
	}

	units := make([]uint16, 0, len(lfns)*13)
	for i := len(lfns) - 1; i >= 0; i-- {
		units = append(units, lfns[i].First[:]...)
		units = append(units, lfns[i].Second[:]...)
		units = append(units, lfns[i].Third[:]...)
	}

	end := len(units)
	for i, unit := range units {
		if unit == 0x0000 || unit == 0xFFFF {
			end = i
			break
		}
	}

	runes := utf16.Decode(units[:end])
	for i, r := range runes {
		if r == unicode.ReplacementChar {
			runes[i] = '_'
		}
	}

	return string(runes)
}
