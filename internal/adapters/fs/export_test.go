package fs

import "io/fs"

// NewWalkerWithWalkDir replaces filepath.WalkDir so tests can inject walk errors.
func NewWalkerWithWalkDir(walkDir func(root string, fn fs.WalkDirFunc) error) *Walker {
	return &Walker{walkDir: walkDir}
}
