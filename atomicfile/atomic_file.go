package atomicfile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// ErrCancelled is returned by calls made after RemoveIfNotClosed
var ErrCancelled = errors.New("cancelled")

var _ io.WriteCloser = &File{}

// File writes to a destination path atomically: all writes go to a
// temporary file in the same directory and the temporary file is
// renamed over the destination on Close. A crash between write and
// rename leaves the previous destination file intact.
type File struct {
	dstPath string
	dir     string
	tmpPath string
	tmpFile *os.File
	err     error
}

// New creates a temporary file next to path and returns a File that
// will replace path on a successful Close.
func New(path string) (*File, error) {
	dir, name := filepath.Split(path)
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrInvalid}
	}
	tmpFile, err := os.CreateTemp(dir, name+".tmp")
	if err != nil {
		return nil, err
	}
	return &File{
		dstPath: path,
		dir:     dir,
		tmpPath: tmpFile.Name(),
		tmpFile: tmpFile,
	}, nil
}

// remember the first error and clean up the temp file
func (f *File) fail(err error) error {
	if err == nil {
		return nil
	}
	if f.err == nil {
		f.err = err
	}
	_ = f.Close()
	return err
}

func (f *File) Write(d []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := f.tmpFile.Write(d)
	return n, f.fail(err)
}

func (f *File) WriteString(s string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := f.tmpFile.WriteString(s)
	return n, f.fail(err)
}

// RemoveIfNotClosed deletes the temporary file if Close hasn't been
// called yet. The destination is not touched. Meant for defer so that
// an early return or panic doesn't leave the temp file behind.
// After Close it's a no-op.
func (f *File) RemoveIfNotClosed() {
	if f == nil || f.tmpFile == nil {
		return
	}
	f.err = ErrCancelled
	_ = f.Close()
}

// Close syncs and closes the temporary file and renames it over the
// destination. On any error (including an earlier Write error) the
// temporary file is deleted and the destination is left as it was.
// Calling Close again returns the first error encountered.
func (f *File) Close() error {
	if f.tmpFile == nil {
		return f.err
	}
	tmpFile := f.tmpFile
	f.tmpFile = nil

	// https://www.joeshaw.org/dont-defer-close-on-writable-files/
	errSync := tmpFile.Sync()
	errClose := tmpFile.Close()

	didRename := false
	defer func() {
		if !didRename {
			_ = os.Remove(f.tmpPath)
		}
	}()

	if f.err != nil {
		return f.err
	}

	err := errSync
	if err == nil {
		err = errClose
	}
	if err == nil {
		err = os.Rename(f.tmpPath, f.dstPath)
		didRename = err == nil
		// sync the directory so the rename survives a crash
		if fdir, errOpen := os.Open(f.dir); errOpen == nil {
			_ = fdir.Sync()
			_ = fdir.Close()
		}
	}
	f.err = err
	return f.err
}
