package drive

import (
	"fmt"
	"strconv"
	"strings"
)

const ownerPrefix = "user_"

// Path is a validated, owner-scoped location in the namespace. Its string
// form is "user_{owner}" for the owner's root and "user_{owner}/<relative>"
// otherwise. The same string is the metadata key and the blob key.
type Path struct {
	owner    int64
	relative string
}

// OwnerRoot returns the first path segment for the given owner.
func OwnerRoot(ownerID int64) string {
	return ownerPrefix + strconv.FormatInt(ownerID, 10)
}

// NewPath joins an owner and a relative path. An empty relative path names
// the owner's root. A single trailing slash is tolerated.
func NewPath(ownerID int64, relative string) (Path, error) {
	if ownerID <= 0 {
		return Path{}, fmt.Errorf("%w: owner id must be positive", ErrInvalidPath)
	}
	relative = strings.TrimSuffix(relative, "/")
	if relative != "" {
		if err := validateRelative(relative); err != nil {
			return Path{}, err
		}
	}
	return Path{owner: ownerID, relative: relative}, nil
}

// ParseFullPath parses a stored path such as "user_7/docs/a.txt" and
// recovers its owner.
func ParseFullPath(full string) (Path, error) {
	head, rest, _ := strings.Cut(full, "/")
	idStr, ok := strings.CutPrefix(head, ownerPrefix)
	if !ok {
		return Path{}, fmt.Errorf("%w: %q does not start with an owner segment", ErrInvalidPath, full)
	}
	ownerID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || OwnerRoot(ownerID) != head {
		return Path{}, fmt.Errorf("%w: malformed owner segment %q", ErrInvalidPath, head)
	}
	if strings.Contains(full, "/") && rest == "" {
		return Path{}, fmt.Errorf("%w: %q has an empty segment", ErrInvalidPath, full)
	}
	return NewPath(ownerID, rest)
}

// ParsePath parses a stored path on behalf of ownerID. A path rooted at
// another owner fails with ErrForbidden.
func ParsePath(ownerID int64, full string) (Path, error) {
	p, err := ParseFullPath(full)
	if err != nil {
		return Path{}, err
	}
	if p.owner != ownerID {
		return Path{}, fmt.Errorf("%w: %s belongs to another user", ErrForbidden, full)
	}
	return p, nil
}

func validateRelative(relative string) error {
	if strings.HasPrefix(relative, "/") {
		return fmt.Errorf("%w: %q is absolute", ErrInvalidPath, relative)
	}
	if strings.ContainsAny(relative, "\\\x00") {
		return fmt.Errorf("%w: %q contains a forbidden character", ErrInvalidPath, relative)
	}
	for _, seg := range strings.Split(relative, "/") {
		switch seg {
		case "":
			return fmt.Errorf("%w: %q has an empty segment", ErrInvalidPath, relative)
		case ".", "..":
			return fmt.Errorf("%w: %q contains a %q segment", ErrInvalidPath, relative, seg)
		}
	}
	return nil
}

// String returns the full path including the owner segment.
func (p Path) String() string {
	if p.relative == "" {
		return OwnerRoot(p.owner)
	}
	return OwnerRoot(p.owner) + "/" + p.relative
}

// Relative returns the path below the owner's root.
func (p Path) Relative() string { return p.relative }

// Owner returns the owning user id.
func (p Path) Owner() int64 { return p.owner }

// IsRoot reports whether p names the owner's root.
func (p Path) IsRoot() bool { return p.relative == "" }

// Base returns the last segment.
func (p Path) Base() string {
	if p.relative == "" {
		return OwnerRoot(p.owner)
	}
	if i := strings.LastIndexByte(p.relative, '/'); i >= 0 {
		return p.relative[i+1:]
	}
	return p.relative
}

// Ancestors returns the proper ancestors of p below the owner's root,
// nearest to the root first.
func (p Path) Ancestors() []Path {
	if p.relative == "" {
		return nil
	}
	segs := strings.Split(p.relative, "/")
	out := make([]Path, 0, len(segs)-1)
	for i := 1; i < len(segs); i++ {
		out = append(out, Path{owner: p.owner, relative: strings.Join(segs[:i], "/")})
	}
	return out
}

// Contains reports whether other lies strictly below p.
func (p Path) Contains(other string) bool {
	return strings.HasPrefix(other, p.String()+"/")
}
