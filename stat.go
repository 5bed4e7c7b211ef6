package vfat

import (
	"os"
	"strings"
	"time"
)

// FileInfo returns an os.FileInfo view of the entry.
func (h *ExtendedEntryHeader) FileInfo() os.FileInfo {
	return entryHeaderFileInfo{*h}
}

type entryHeaderFileInfo struct {
	entry ExtendedEntryHeader
}

// Name returns the long filename if the entry has one, otherwise it
// synthesizes the name from the 8.3 field: the trimmed base name plus, if
// the extension is non-empty, a dot and the trimmed extension.
func (e entryHeaderFileInfo) Name() string {
	if e.entry.ExtendedName != "" {
		return e.entry.ExtendedName
	}

	name := strings.TrimRight(string(e.entry.Name[:8]), " \x00")
	ext := strings.TrimRight(string(e.entry.Name[8:11]), " \x00")

	if ext != "" {
		name += "."
	}

	return name + ext
}

func (e entryHeaderFileInfo) Size() int64 {
	return int64(e.entry.FileSize)
}

func (e entryHeaderFileInfo) Mode() os.FileMode {
	if e.IsDir() {
		return os.ModeDir | 0555
	}
	if e.entry.Attribute&AttrReadOnly != 0 {
		return 0444
	}
	return 0644
}

// ModTime combines the write date and time fields of the entry. A zero
// write date is invalid and yields the zero time.Time; a zero write time
// is a perfectly valid midnight and cannot be distinguished.
func (e entryHeaderFileInfo) ModTime() time.Time {
	writeDate := ParseDate(e.entry.WriteDate)
	writeTime := ParseTime(e.entry.WriteTime)

	if writeDate.IsZero() {
		return time.Time{}
	}

	return time.Date(
		writeDate.Year(), writeDate.Month(), writeDate.Day(),
		writeTime.Hour(), writeTime.Minute(), writeTime.Second(),
		0, time.UTC,
	)
}

func (e entryHeaderFileInfo) IsDir() bool {
	return e.entry.Attribute&AttrDirectory != 0
}

// Sys exposes the decoded raw entry, including the creation timestamp and
// last access date fields that os.FileInfo has no place for.
func (e entryHeaderFileInfo) Sys() interface{} {
	return e.entry
}
