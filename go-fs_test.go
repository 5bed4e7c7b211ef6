package vfat

import (
	"bytes"
	"errors"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/spf13/afero"
)

func testGoFs(t *testing.T) *GoFs {
	t.Helper()

	gofs, err := NewGoFS(newSliceDevice(testImage(t)))
	if err != nil {
		t.Fatalf("could not mount the test image: %v", err)
	}

	return gofs
}

// TestGoFS runs the io/fs conformance test against the own compatibility
// layer.
func TestGoFS(t *testing.T) {
	err := fstest.TestFS(*testGoFs(t),
		"README.TXT",
		"HelloWorldThisIsALoongFileName.txt",
		"big.bin",
		"nested/inner.txt",
	)
	if err != nil {
		t.Fatal(err)
	}
}

// TestIOFS runs the io/fs conformance test against the afero.IOFS
// compatibility layer.
func TestIOFS(t *testing.T) {
	iofs, err := NewIOFS(bytes.NewReader(testImage(t)))
	if err != nil {
		t.Fatalf("NewIOFS() error = %v", err)
	}

	err = fstest.TestFS(iofs,
		"README.TXT",
		"HelloWorldThisIsALoongFileName.txt",
		"big.bin",
		"nested/inner.txt",
	)
	if err != nil {
		t.Fatal(err)
	}
}

func TestNewGoFS(t *testing.T) {
	gofs, err := NewGoFSFromReader(bytes.NewReader(testImage(t)))
	if err != nil {
		t.Fatalf("NewGoFSFromReader() error = %v", err)
	}
	if gofs == nil {
		t.Fatal("NewGoFSFromReader() = nil")
	}

	if _, err := NewGoFSFromReader(strings.NewReader("this is no image")); err == nil {
		t.Error("NewGoFSFromReader() succeeded on garbage input")
	}
}

func TestGoFs_Open_invalidPath(t *testing.T) {
	gofs := testGoFs(t)

	// io/fs paths are unrooted; the lenient afero forms must be rejected
	// here.
	for _, name := range []string{"/README.TXT", "./README.TXT", "nested/../README.TXT", ""} {
		_, err := gofs.Open(name)
		if !errors.Is(err, fs.ErrInvalid) {
			t.Errorf("Open(%q) error = %v, want %v", name, err, fs.ErrInvalid)
		}
	}
}

func TestGoFs_ReadFile(t *testing.T) {
	gofs := testGoFs(t)

	data, err := fs.ReadFile(gofs, "nested/inner.txt")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !bytes.Equal(data, innerContent) {
		t.Errorf("ReadFile() = %q, want %q", data, innerContent)
	}
}

func TestGoFs_WalkDir(t *testing.T) {
	gofs := testGoFs(t)

	var paths []string
	err := fs.WalkDir(gofs, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		t.Fatalf("WalkDir() error = %v", err)
	}

	// fs.WalkDir visits the entries of every directory in lexical order.
	want := []string{
		".",
		"HelloWorldThisIsALoongFileName.txt",
		"LONGFILENAME.TXT",
		"README.TXT",
		"big.bin",
		"empty.txt",
		"nested",
		"nested/inner.txt",
	}
	if len(paths) != len(want) {
		t.Fatalf("WalkDir() visited %v, want %v", paths, want)
	}
	for i := range paths {
		if paths[i] != want[i] {
			t.Errorf("WalkDir() visited %v, want %v", paths, want)
			return
		}
	}
}

var (
	_ fs.FS          = GoFs{}
	_ fs.File        = GoFile{}
	_ fs.ReadDirFile = GoFile{}
	_ fs.DirEntry    = GoDirEntry{}
	_ afero.Fs       = (*Fs)(nil)
)
