package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// FileMode selects how a MacFile's forks and Finder metadata are
// persisted to the host file system (§3).
type FileMode int

const (
	ModeAutomatic FileMode = iota
	ModeMacBinary
	ModeNative
)

// FinderInfo is the classic 32-byte Finder info block (§3).
type FinderInfo struct {
	Type, Creator FourCC
	Flags         uint16
	LocationH     int16
	LocationV     int16
	Reserved      [16]byte
	Extended      [6]byte
}

// MacFile is a shared, in-memory representation of a host file's data
// fork, resource fork, and Finder metadata (§3). Multiple open guest
// file handles may refer to one MacFile; FileStore owns the single
// shared instance per path.
type MacFile struct {
	Path       string
	Mode       FileMode
	Dirty      bool
	Info       FinderInfo
	DataFork   []byte
	ResForkRaw []byte
	resMap     *ResourceMap // lazily parsed from ResForkRaw
}

// Resources returns the parsed resource map, parsing ResForkRaw on first
// use and caching the result (§3 "resource map... re-serialised on
// save").
func (f *MacFile) Resources() (*ResourceMap, error) {
	if f.resMap != nil {
		return f.resMap, nil
	}
	if len(f.ResForkRaw) == 0 {
		f.resMap = NewResourceMap()
		return f.resMap, nil
	}
	m, err := ParseResourceFork(f.ResForkRaw)
	if err != nil {
		return nil, err
	}
	f.resMap = m
	return m, nil
}

// FileStore resolves guest paths to host paths and caches open MacFiles,
// loading and saving them according to each file's chosen mode (§4.C).
type FileStore struct {
	registry *PathRegistry
	log      *zap.SugaredLogger
	xattr    *xattrStore

	open map[string]*MacFile
}

// NewFileStore returns a FileStore rooted at defaultRoot (the host
// working directory the guest's default volume maps to).
func NewFileStore(defaultRoot string, log *zap.SugaredLogger) *FileStore {
	return &FileStore{
		registry: NewPathRegistry(defaultRoot),
		log:      log,
		xattr:    newXattrStore(),
		open:     make(map[string]*MacFile),
	}
}

// Resolve turns a guest (volRef, dirID, name) triple into an absolute
// host path, per §4.C.
func (fs *FileStore) Resolve(vol VolumeRef, dir DirID, name string) (string, error) {
	return fs.registry.ResolvePath(vol, dir, name)
}

// GetFile returns the shared MacFile for hostPath, loading it from disk
// if it is not already cached: Native metadata is tried first, then a
// MacBinary probe, else the file is treated as data-fork-only text
// (§4.C).
func (fs *FileStore) GetFile(hostPath string) (*MacFile, error) {
	if f, ok := fs.open[hostPath]; ok {
		return f, nil
	}

	raw, err := os.ReadFile(hostPath)
	if err != nil {
		return nil, fs.wrapIOError(err)
	}

	f := &MacFile{Path: hostPath}

	if info, resRaw, ok := fs.xattr.read(hostPath); ok {
		f.Mode = ModeNative
		f.Info = info
		f.DataFork = raw
		f.ResForkRaw = resRaw
	} else if ProbeMacBinary(raw) {
		mb, err := UnpackMacBinary(raw)
		if err != nil {
			return nil, err
		}
		f.Mode = ModeMacBinary
		f.Info = FinderInfo{
			Type:      mb.TypeID,
			Creator:   mb.CreatorID,
			Flags:     mb.FinderFlags,
			LocationH: mb.LocationH,
			LocationV: mb.LocationV,
		}
		f.DataFork = mb.Data
		f.ResForkRaw = mb.Resource
	} else {
		f.Mode = ModeAutomatic
		f.DataFork = raw
		f.Info = automaticFinderInfo(hostPath)
	}

	fs.open[hostPath] = f
	return f, nil
}

// CreateFile writes a new, empty host file for path with the given
// creator/type, failing if the host path already exists (§4.C).
func (fs *FileStore) CreateFile(hostPath string, creator, typ FourCC) (*MacFile, error) {
	if _, err := os.Stat(hostPath); err == nil {
		return nil, fmt.Errorf("%w: %d", ErrHostIO, OSErrFileAlreadyExists)
	}
	f := &MacFile{
		Path: hostPath,
		Mode: ModeAutomatic,
		Info: FinderInfo{Type: typ, Creator: creator},
	}
	if fs.xattr.supported(filepath.Dir(hostPath)) {
		f.Mode = ModeNative
	}
	if err := fs.writeFile(f); err != nil {
		return nil, err
	}
	fs.open[hostPath] = f
	return f, nil
}

// DeleteFile removes both the cached MacFile and the underlying host
// file (§4.C).
func (fs *FileStore) DeleteFile(hostPath string) error {
	delete(fs.open, hostPath)
	if err := os.Remove(hostPath); err != nil {
		return fs.wrapIOError(err)
	}
	return nil
}

// SaveIfDirty flushes f to disk if it has been modified since load,
// writing per its mode: Native writes the data fork plus both extended
// attributes; Automatic writes only the data fork; MacBinary re-wraps
// data and resource forks together (§4.C).
func (fs *FileStore) SaveIfDirty(f *MacFile) error {
	if !f.Dirty {
		return nil
	}
	if err := fs.writeFile(f); err != nil {
		return err
	}
	f.Dirty = false
	return nil
}

func (fs *FileStore) writeFile(f *MacFile) error {
	if f.resMap != nil {
		f.ResForkRaw = f.resMap.Pack()
	}
	switch f.Mode {
	case ModeNative:
		if err := os.WriteFile(f.Path, f.DataFork, 0644); err != nil {
			return fs.wrapIOError(err)
		}
		fs.xattr.write(f.Path, f.Info, f.ResForkRaw)
		return nil
	case ModeMacBinary:
		mb := &MacBinaryInfo{
			Name:        filepath.Base(f.Path),
			TypeID:      f.Info.Type,
			CreatorID:   f.Info.Creator,
			FinderFlags: f.Info.Flags,
			LocationH:   f.Info.LocationH,
			LocationV:   f.Info.LocationV,
			Data:        f.DataFork,
			Resource:    f.ResForkRaw,
		}
		if err := os.WriteFile(f.Path, PackMacBinary(mb), 0644); err != nil {
			return fs.wrapIOError(err)
		}
		return nil
	default: // ModeAutomatic
		if err := os.WriteFile(f.Path, f.DataFork, 0644); err != nil {
			return fs.wrapIOError(err)
		}
		return nil
	}
}

// automaticFinderInfo infers a type/creator from a file's extension, per
// §4.C's Automatic-mode fallback: ".o" maps to MPLF/CWIE object-code
// tags, anything else is assumed to be TEXT/ttxt.
func automaticFinderInfo(hostPath string) FinderInfo {
	if strings.EqualFold(filepath.Ext(hostPath), ".o") {
		return FinderInfo{Type: ParseFourCC("MPLF"), Creator: ParseFourCC("CWIE")}
	}
	return FinderInfo{Type: ParseFourCC("TEXT"), Creator: ParseFourCC("ttxt")}
}

// wrapIOError maps a host I/O error to the OSErr §7 documents:
// os.ErrNotExist -> FileNotFound, everything else -> IOError.
func (fs *FileStore) wrapIOError(err error) error {
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %v (%d)", ErrHostIO, err, OSErrFileNotFound)
	}
	return fmt.Errorf("%w: %v (%d)", ErrHostIO, err, OSErrIOError)
}
