package u

import (
	"crypto/sha1"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// FileExists returns true if path exists and is a regular file
func FileExists(path string) bool {
	st, err := os.Lstat(path)
	return err == nil && st.Mode().IsRegular()
}

// DirExists returns true if path exists and is a directory
func DirExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}

// ListFilesInDir returns paths of regular files directly in dir,
// sorted by name. Sub-directories are not visited.
func ListFilesInDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var res []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		res = append(res, filepath.Join(dir, e.Name()))
	}
	sort.Strings(res)
	return res, nil
}

func DataSha1Hex(d []byte) string {
	sha1 := sha1.Sum(d)
	return fmt.Sprintf("%x", sha1[:])
}
