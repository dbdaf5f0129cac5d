package store

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// tempPath reserves a hidden file next to finalPath, so that the final
// rename stays within one file system.
func tempPath(finalPath string) (string, error) {
	file, err := os.CreateTemp(filepath.Dir(finalPath), "."+filepath.Base(finalPath)+".*.tmp")
	if err != nil {
		return "", err
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return "", err
	}
	return file.Name(), nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
