package vfat

import (
	"bytes"
	"errors"
	"syscall"
	"testing"
)

func TestReaderDevice_ReadSector(t *testing.T) {
	data := make([]byte, 4*512)
	for i := range data {
		data[i] = byte(i / 512)
	}

	tests := []struct {
		name    string
		sector  uint64
		wantErr error
	}{
		{
			name:   "first sector",
			sector: 0,
		},
		{
			name:   "last sector",
			sector: 3,
		},
		{
			name:    "sector behind the end of the image",
			sector:  4,
			wantErr: ErrDeviceIO,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := NewReaderDevice(bytes.NewReader(data), 512)

			buf := make([]byte, 512)
			n, err := device.ReadSector(tt.sector, buf)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ReadSector() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Errorf("ReadSector() error = %v", err)
				return
			}
			if n != 512 {
				t.Errorf("ReadSector() n = %v, want %v", n, 512)
			}
			for i, b := range buf {
				if b != byte(tt.sector) {
					t.Errorf("ReadSector() buf[%d] = %v, want %v", i, b, byte(tt.sector))
					return
				}
			}
		})
	}
}

func TestReaderDevice_ReadSector_short(t *testing.T) {
	// 1.5 sectors of data, so the second sector can only be read partially.
	device := NewReaderDevice(bytes.NewReader(make([]byte, 768)), 512)

	_, err := device.ReadSector(1, make([]byte, 512))
	if !errors.Is(err, ErrShortRead) {
		t.Errorf("ReadSector() error = %v, want %v", err, ErrShortRead)
	}
	if !errors.Is(err, ErrDeviceIO) {
		t.Errorf("ReadSector() error = %v, want %v", err, ErrDeviceIO)
	}
}

func TestReaderDevice_WriteSector(t *testing.T) {
	device := NewReaderDevice(bytes.NewReader(make([]byte, 512)), 512)

	_, err := device.WriteSector(0, make([]byte, 512))
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("WriteSector() error = %v, want %v", err, ErrUnsupported)
	}
	if !errors.Is(err, syscall.EPERM) {
		t.Errorf("WriteSector() error = %v, want %v", err, syscall.EPERM)
	}
}

func TestReaderDevice_SectorSize(t *testing.T) {
	device := NewReaderDevice(bytes.NewReader(nil), 4096)

	if got := device.SectorSize(); got != 4096 {
		t.Errorf("SectorSize() = %v, want %v", got, 4096)
	}
}
