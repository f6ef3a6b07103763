package fileutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/google/renameio/v2"
)

// WriteFileAtomic replaces path with data. Readers see either the old file or
// the complete new one.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	return replace(path, mode, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// MoveFile renames src to dst. Across filesystems it copies src into place
// atomically, keeping its permissions, and then removes src.
func MoveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	err = replace(dst, info.Mode().Perm(), func(w io.Writer) error {
		n, err := io.Copy(w, in)
		if err == nil && n != info.Size() {
			err = fmt.Errorf("copied %d of %d bytes", n, info.Size())
		}
		return err
	})
	if err != nil {
		return err
	}
	return os.Remove(src)
}

func replace(path string, mode os.FileMode, fill func(io.Writer) error) error {
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(mode))
	if err != nil {
		return fmt.Errorf("create pending file for %s: %w", path, err)
	}
	defer pending.Cleanup()

	if err := fill(pending); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
