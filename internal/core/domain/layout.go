package domain

import "path/filepath"

const (
	// SiftDirName is the name of the runtime directory kept at the project root.
	SiftDirName = ".sift"

	// CacheDirName is the name of the cache directory.
	CacheDirName = "cache"

	// LocksDirName is the name of the lock directory.
	LocksDirName = "locks"

	// ResultsFileName is the aggregate results document consumed by report renderers.
	ResultsFileName = "results.json"

	// RunFileName holds volatile metadata about the last finalized run.
	RunFileName = "run.json"

	// MetricsFileName is the Prometheus textfile written on finalization.
	MetricsFileName = "metrics.prom"

	// ConfigFileName is the name of the project configuration file.
	ConfigFileName = "sift.yaml"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644

	// PrivateFilePerm is the default permission for private files (rw-------).
	PrivateFilePerm = 0o600
)

// SiftPath returns the runtime directory for the project at root.
func SiftPath(root string) string {
	return filepath.Join(root, SiftDirName)
}

// CachePath returns the cache directory.
// It joins root, .sift and cache.
func CachePath(root string) string {
	return filepath.Join(root, SiftDirName, CacheDirName)
}

// LocksPath returns the lock directory.
// It joins root, .sift and locks.
func LocksPath(root string) string {
	return filepath.Join(root, SiftDirName, LocksDirName)
}

// ResultsPath returns the path of the aggregate results document.
func ResultsPath(root string) string {
	return filepath.Join(root, SiftDirName, ResultsFileName)
}

// RunPath returns the path of the run metadata document.
func RunPath(root string) string {
	return filepath.Join(root, SiftDirName, RunFileName)
}

// MetricsPath returns the path of the metrics textfile.
func MetricsPath(root string) string {
	return filepath.Join(root, SiftDirName, MetricsFileName)
}
