package storage

import (
	"io/fs"
	"os"
	"path/filepath"
)

// Usage is the on-disk footprint of the profile store.
type Usage struct {
	DatabaseBytes int64 `json:"database_bytes"`
	IndexBytes    int64 `json:"index_bytes"`
}

// Total returns the combined size.
func (u Usage) Total() int64 { return u.DatabaseBytes + u.IndexBytes }

// DiskUsage measures the SQLite database (with its WAL and shared-memory files) and the
// search index directory. Missing paths count as zero.
func DiskUsage(dbPath, indexPath string) (Usage, error) {
	var u Usage
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if dbPath == "" {
			break
		}
		n, err := pathSize(p)
		if err != nil {
			return Usage{}, err
		}
		u.DatabaseBytes += n
	}
	n, err := pathSize(indexPath)
	if err != nil {
		return Usage{}, err
	}
	u.IndexBytes = n
	return u, nil
}

// pathSize returns the size of a file, or the recursive size of a directory.
func pathSize(p string) (int64, error) {
	if p == "" {
		return 0, nil
	}
	info, err := os.Stat(p)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}
	var total int64
	err = filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		total += fi.Size()
		return nil
	})
	return total, err
}
