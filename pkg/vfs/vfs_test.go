package vfs

import (
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
)

func TestVirtualDisk_Write(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		data        []byte
		expectError bool
	}{
		{
			name:     "Valid module",
			filename: "rig_utils.py",
			data:     []byte("x = 1\n"),
		},
		{
			name:     "Leading underscore",
			filename: "_1tool.py",
			data:     []byte("pass\n"),
		},
		{
			name:        "Leading digit",
			filename:    "1tool.py",
			data:        []byte{1},
			expectError: true,
		},
		{
			name:        "Wrong extension",
			filename:    "tool.mel",
			data:        []byte{1},
			expectError: true,
		},
		{
			name:        "Path traversal",
			filename:    "../tool.py",
			data:        []byte{1},
			expectError: true,
		},
		{
			name:        "Dotted module",
			filename:    "my.tool.py",
			data:        []byte{1},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vd := NewVirtualDisk()
			err := vd.Write(tt.filename, "src.mel", tt.data)

			if (err != nil) != tt.expectError {
				t.Fatalf("Write() error = %v, expectError %v", err, tt.expectError)
			}
			if tt.expectError {
				if len(vd.Files) != 0 || vd.UsedBytes != 0 {
					t.Errorf("failed write changed the disk: %v", vd.Files)
				}
				return
			}
			stored, ok := vd.Files[tt.filename]
			if !ok {
				t.Fatalf("File %s not found in map", tt.filename)
			}
			if !reflect.DeepEqual(stored.Data, tt.data) {
				t.Errorf("Stored data = %v, expected %v", stored.Data, tt.data)
			}
			if !vd.DirtyFiles[tt.filename] {
				t.Error("new file is not dirty")
			}
			if vd.UsedBytes != len(tt.data) {
				t.Errorf("UsedBytes = %d, expected %d", vd.UsedBytes, len(tt.data))
			}
		})
	}
}

func TestVirtualDisk_Read(t *testing.T) {
	vd := NewVirtualDisk()
	data := []byte("print(1)\n")
	if err := vd.Write("main.py", "main.mel", data); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		filename    string
		expectError error
	}{
		{"Read existing file", "main.py", nil},
		{"Read missing file", "other.py", ErrFileNotFound},
		{"Read invalid filename", "../main.py", ErrInvalidFilename},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := vd.Read(tt.filename)
			if err != tt.expectError {
				t.Fatalf("Read() error = %v, want %v", err, tt.expectError)
			}
			if err == nil && !reflect.DeepEqual(got, data) {
				t.Errorf("Read() got = %q, want %q", got, data)
			}
		})
	}

	src, err := vd.SourceOf("main.py")
	if err != nil || src != "main.mel" {
		t.Errorf("SourceOf() = %q, %v", src, err)
	}
}

func TestVirtualDisk_Rewrite(t *testing.T) {
	vd := NewVirtualDisk()
	vd.Write("a.py", "a.mel", []byte("12345"))
	vd.Write("a.py", "a.mel", []byte("1234567"))
	if vd.UsedBytes != 7 {
		t.Errorf("UsedBytes after larger update = %d, expected 7", vd.UsedBytes)
	}
	vd.Write("a.py", "a.mel", []byte("12"))
	if vd.UsedBytes != 2 {
		t.Errorf("UsedBytes after smaller update = %d, expected 2", vd.UsedBytes)
	}

	delete(vd.DirtyFiles, "a.py")
	vd.Write("a.py", "b.mel", []byte("12"))
	if vd.DirtyFiles["a.py"] {
		t.Error("identical content marked the module dirty")
	}
	if src, _ := vd.SourceOf("a.py"); src != "b.mel" {
		t.Errorf("source = %q, want b.mel", src)
	}
}

func TestVirtualDisk_DeepCopy(t *testing.T) {
	vd := NewVirtualDisk()
	data := []byte{1, 2, 3}
	vd.Write("mutable.py", "", data)
	data[0] = 99

	got, _ := vd.Read("mutable.py")
	if got[0] != 1 {
		t.Errorf("VFS data was mutated externally. Expected 1, got %d", got[0])
	}
}

func TestVirtualDisk_List(t *testing.T) {
	vd := NewVirtualDisk()
	for _, name := range []string{"c.py", "a.py", "b.py"} {
		vd.Write(name, "", []byte(name))
	}
	want := []string{"a.py", "b.py", "c.py"}
	if got := vd.List(); !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
}

func TestVirtualDisk_ConcurrentWrites(t *testing.T) {
	vd := NewVirtualDisk()
	names := []string{"a.py", "b.py", "c.py", "d.py", "e.py", "f.py"}

	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			vd.Write(name, "", []byte(name))
		}(name)
	}
	wg.Wait()

	if len(vd.List()) != len(names) {
		t.Errorf("got %d files, want %d", len(vd.List()), len(names))
	}
	if vd.UsedBytes != 4*len(names) {
		t.Errorf("UsedBytes = %d, want %d", vd.UsedBytes, 4*len(names))
	}
}

func TestVirtualDisk_PersistTo(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	vd := NewVirtualDisk()
	vd.Write("a.py", "a.mel", []byte("a = 1\n"))
	vd.Write("b.py", "b.mel", []byte("b = 2\n"))

	written, err := vd.PersistTo(dir)
	if err != nil {
		t.Fatalf("PersistTo() error: %v", err)
	}
	if !reflect.DeepEqual(written, []string{"a.py", "b.py"}) {
		t.Errorf("written = %v", written)
	}
	got, err := os.ReadFile(filepath.Join(dir, "a.py"))
	if err != nil || string(got) != "a = 1\n" {
		t.Errorf("a.py = %q, %v", got, err)
	}
	if len(vd.DirtyFiles) != 0 {
		t.Errorf("dirty after persist: %v", vd.DirtyFiles)
	}

	// nothing dirty, nothing written
	written, err = vd.PersistTo(dir)
	if err != nil || len(written) != 0 {
		t.Errorf("second PersistTo() = %v, %v", written, err)
	}

	// a fresh disk with the same content finds the files up to date
	again := NewVirtualDisk()
	again.Write("a.py", "a.mel", []byte("a = 1\n"))
	again.Write("b.py", "b.mel", []byte("b = 3\n"))
	written, err = again.PersistTo(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(written, []string{"b.py"}) {
		t.Errorf("written = %v, want [b.py]", written)
	}
}

func TestVirtualDisk_PersistToFailure(t *testing.T) {
	dir := t.TempDir()
	// a directory in the way of the module makes the write fail
	if err := os.Mkdir(filepath.Join(dir, "a.py"), 0755); err != nil {
		t.Fatal(err)
	}
	vd := NewVirtualDisk()
	vd.Write("a.py", "", []byte("x"))

	if _, err := vd.PersistTo(dir); err == nil {
		t.Fatal("expected a write error")
	}
	if !vd.DirtyFiles["a.py"] {
		t.Error("failed module should stay dirty")
	}
}
