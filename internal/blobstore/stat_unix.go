//go:build unix

package blobstore

import "syscall"

// syscallNotDir is returned when a parent component of a blob path is a
// regular file.
var syscallNotDir error = syscall.ENOTDIR
