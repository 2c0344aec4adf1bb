package main

import (
	"fmt"
	"strings"
)

// VolumeRef and DirID are the classic Mac file system's two handles into
// the registry: VolumeRef is negative (-1 is the default volume); DirID
// is >= 3 for real directories (1 reserved as root-parent, 2 as root)
// (§3).
type VolumeRef int16
type DirID int32

const (
	DefaultVolume VolumeRef = -1
	RootParentDir DirID     = 1
	RootDir       DirID     = 2
)

// Volume is a platform root descriptor registered under a VolumeRef.
type Volume struct {
	Name string
	Root string // absolute host path this volume's root maps to
}

// PathRegistry assigns VolumeRef/DirID pairs to absolute host paths and
// back, memoising each directory encountered on demand (§3 "File system
// registry", §4.C).
type PathRegistry struct {
	volumesByRef  map[VolumeRef]*Volume
	volumesByName map[string]VolumeRef
	nextVolRef    VolumeRef

	dirToPath map[dirKey]string
	pathToDir map[string]dirKey
	nextDirID DirID
}

type dirKey struct {
	vol VolumeRef
	dir DirID
}

// NewPathRegistry returns a registry with the default volume registered
// under DefaultVolume (-1), rooted at defaultRoot. VolumeRef 0 names no
// registered volume: with the root DirID it resolves against the host
// filesystem root (§4.C).
func NewPathRegistry(defaultRoot string) *PathRegistry {
	r := &PathRegistry{
		volumesByRef:  make(map[VolumeRef]*Volume),
		volumesByName: make(map[string]VolumeRef),
		nextVolRef:    DefaultVolume - 1,
		dirToPath:     make(map[dirKey]string),
		pathToDir:     make(map[string]dirKey),
		nextDirID:     3,
	}
	r.volumesByRef[DefaultVolume] = &Volume{Name: "", Root: defaultRoot}
	return r
}

// RegisterVolume assigns a fresh negative VolumeRef to name, rooted at
// root, or returns the existing one if name is already registered.
func (r *PathRegistry) RegisterVolume(name, root string) VolumeRef {
	if ref, ok := r.volumesByName[name]; ok {
		return ref
	}
	ref := r.nextVolRef
	r.nextVolRef--
	r.volumesByRef[ref] = &Volume{Name: name, Root: root}
	r.volumesByName[name] = ref
	return ref
}

func (r *PathRegistry) volume(ref VolumeRef) (*Volume, bool) {
	v, ok := r.volumesByRef[ref]
	return v, ok
}

// InternDir assigns a fresh DirID to path under vol the first time it is
// seen, memoising the mapping both ways; subsequent calls for the same
// path return the same DirID (§4.C "each absolute directory... assigned
// a fresh DirID on demand and memoised").
func (r *PathRegistry) InternDir(vol VolumeRef, path string) DirID {
	if existing, ok := r.pathToDir[path]; ok {
		return existing.dir
	}
	id := r.nextDirID
	r.nextDirID++
	key := dirKey{vol: vol, dir: id}
	r.dirToPath[key] = path
	r.pathToDir[path] = key
	return id
}

func (r *PathRegistry) lookupDir(vol VolumeRef, dir DirID) (string, bool) {
	p, ok := r.dirToPath[dirKey{vol: vol, dir: dir}]
	return p, ok
}

// isValidComponent rejects the control characters and path separators
// §4.C calls out as invalid in a Mac path component.
func isValidComponent(s string) bool {
	for _, r := range s {
		if r == '/' || r == '\\' || r < 0x20 {
			return false
		}
	}
	return true
}

// ResolvePath implements §4.C's resolve_path(volRef, dirID, name): Mac
// colon-separated paths resolved against a base directory.
func (r *PathRegistry) ResolvePath(vol VolumeRef, dir DirID, name string) (string, error) {
	parts := strings.Split(name, ":")
	leading := name != "" && name[0] == ':'

	var base string
	switch {
	case strings.Contains(name[min(1, len(name)):], ":") && parts[0] != "":
		// A non-leading colon: the prefix before the first colon names a
		// volume (registered, or inferred as a single-letter drive).
		volName := parts[0]
		if v, ok := r.volumesByName[volName]; ok {
			vol = v
		} else if len(volName) == 1 {
			vol = r.RegisterVolume(volName, volName+":\\")
		} else {
			return "", fmt.Errorf("%w: unknown volume %q", ErrGuestProgramming, volName)
		}
		parts = parts[1:]
		base = r.volumesByRef[vol].Root
	case dir == RootDir && vol == 0:
		base = "/"
	case dir == RootDir:
		v, ok := r.volume(vol)
		if !ok {
			return "", fmt.Errorf("%w: unknown volume %d", ErrGuestProgramming, vol)
		}
		base = v.Root
	case dir > RootDir:
		p, ok := r.lookupDir(vol, dir)
		if !ok {
			return "", fmt.Errorf("%w: unknown dirID %d", ErrGuestProgramming, dir)
		}
		base = p
	default:
		base = "."
	}

	for i, part := range parts {
		if part == "" {
			// In a leading run of colons each empty component after the
			// first goes up one level ("::name" is "name" in the parent);
			// a trailing or interior empty component stays at base.
			if !leading || i == 0 || i == len(parts)-1 {
				continue
			}
			part = ".."
		} else {
			leading = false
			if !isValidComponent(part) {
				return "", fmt.Errorf("%w: invalid path component %q", ErrGuestProgramming, part)
			}
		}
		if base == "" {
			base = part
		} else {
			base = strings.TrimSuffix(base, "/") + "/" + part
		}
	}
	return base, nil
}
