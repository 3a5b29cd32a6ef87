// Package filex holds small filesystem helpers.
package filex

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// EnsureDir creates dir with owner and group access if it does not exist and
// returns its absolute path.
func EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", dir, err)
	}

	if err := os.MkdirAll(abs, 0o770); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}

	return abs, nil
}

// RemoveContents deletes every entry directly under dir, keeping dir itself.
// It carries on past entries it cannot remove and reports them in failed,
// with their errors joined into err. A missing dir has nothing to remove.
func RemoveContents(dir string) (removed int, failed []string, err error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil, nil
	}
	if err != nil {
		return 0, nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var errs []error
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		if rmErr := os.RemoveAll(p); rmErr != nil {
			failed = append(failed, p)
			errs = append(errs, rmErr)
			continue
		}
		removed++
	}
	return removed, failed, errors.Join(errs...)
}
