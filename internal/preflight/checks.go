package preflight

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"authorship/internal/corpus"
)

// MinFreeBytes is the free space a run needs on the artifact filesystem.
const MinFreeBytes = 64 << 20

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies the filesystem holding path has at least minBytes available.
func CheckFreeSpace(name, path string, minBytes uint64) Result {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := st.Bavail * uint64(st.Bsize)
	if free < minBytes {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %d MiB free, need %d MiB)", path, free>>20, minBytes>>20)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d MiB free)", path, free>>20)}
}

// CheckCorpusFiles resolves the corpus patterns and verifies every match is readable.
func CheckCorpusFiles(ctx context.Context, name string, patterns []string) Result {
	files, err := corpus.ResolvePaths(patterns)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return Result{Name: name, Detail: err.Error()}
		}
		if err := unix.Access(file, unix.R_OK); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", file, err)}
		}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d file(s)", len(files))}
}
