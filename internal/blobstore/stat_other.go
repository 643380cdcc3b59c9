//go:build !unix

package blobstore

import "io/fs"

var syscallNotDir error = fs.ErrNotExist
