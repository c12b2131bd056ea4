//go:build unix

package service

import "syscall"

// diskUsage reports used and total bytes on the filesystem containing path.
func diskUsage(path string) (used, total uint64, err error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}

	total = stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	return total - free, total, nil
}
