package frameio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// writeAtomic writes to a temp file next to filename, then renames it
// over filename. Readers never see a half written file, and a failed
// write leaves any previous file in place.
func writeAtomic(filename string, write func(w io.Writer) error) (err error) {
	dir, base := filepath.Split(filename)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("open+w '%s': %w", filename, err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = write(bw); err != nil {
		return fmt.Errorf("write '%s': %w", filename, err)
	}
	if err = bw.Flush(); err != nil {
		return fmt.Errorf("write '%s': %w", filename, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync '%s': %w", filename, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close '%s': %w", filename, err)
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("chmod '%s': %w", filename, err)
	}
	if err = os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("rename '%s': %w", filename, err)
	}

	return nil
}
