//go:build !unix

package service

// diskUsage has no portable implementation off unix; quota then reports only
// the catalog footprint.
func diskUsage(path string) (used, total uint64, err error) {
	return 0, 0, nil
}
