package main

import "github.com/pkg/xattr"

// Extended-attribute names classic Mac OS metadata is stored under when
// the host file system supports them natively (§4.C, §6 "Persisted
// state"), matching the convention Apple's own tools use so files this
// emulator writes stay readable by real Mac software over a network
// share.
const (
	xattrFinderInfo    = "com.apple.FinderInfo"
	xattrResourceFork  = "com.apple.ResourceFork"
	finderInfoRawBytes = 32
)

// xattrStore wraps github.com/pkg/xattr for the two attributes Native
// mode persists. A single probe (listing the containing directory's
// extended attributes) decides whether a fresh file should use
// Native mode at all; reads/writes on attributes the host doesn't
// support degrade to no-ops rather than failing the whole operation,
// matching §4.C's "falls back" language for detection, not persistence.
type xattrStore struct{}

func newXattrStore() *xattrStore {
	return &xattrStore{}
}

// supported reports whether dir's file system is known to carry extended
// attributes: listing the directory's attributes must succeed, and any
// error counts as unsupported.
func (x *xattrStore) supported(dir string) bool {
	_, err := xattr.List(dir)
	return err == nil
}

// read loads FinderInfo and the raw resource fork from hostPath's
// extended attributes. ok is false if com.apple.FinderInfo is absent,
// signalling the caller should fall back to a MacBinary probe.
func (x *xattrStore) read(hostPath string) (info FinderInfo, resFork []byte, ok bool) {
	raw, err := xattr.Get(hostPath, xattrFinderInfo)
	if err != nil || len(raw) < finderInfoRawBytes {
		return FinderInfo{}, nil, false
	}
	info = decodeFinderInfo(raw)
	resFork, _ = xattr.Get(hostPath, xattrResourceFork)
	return info, resFork, true
}

// write persists info and resFork as hostPath's extended attributes.
// Errors are swallowed (logged by the caller's higher-level save path if
// it chooses to check) since a host file system that stops supporting
// extended attributes mid-session is a host environment problem, not a
// guest-visible one the emulator's documented error channels cover.
func (x *xattrStore) write(hostPath string, info FinderInfo, resFork []byte) {
	_ = xattr.Set(hostPath, xattrFinderInfo, encodeFinderInfo(info))
	if len(resFork) > 0 {
		_ = xattr.Set(hostPath, xattrResourceFork, resFork)
	}
}

func encodeFinderInfo(info FinderInfo) []byte {
	b := make([]byte, finderInfoRawBytes)
	putBeUint32(b[0:4], uint32(info.Type))
	putBeUint32(b[4:8], uint32(info.Creator))
	putBeUint16(b[8:10], info.Flags)
	putBeUint16(b[10:12], uint16(info.LocationH))
	putBeUint16(b[12:14], uint16(info.LocationV))
	copy(b[16:32], info.Reserved[:])
	return b
}

func decodeFinderInfo(b []byte) FinderInfo {
	var info FinderInfo
	info.Type = FourCC(beUint32(b[0:4]))
	info.Creator = FourCC(beUint32(b[4:8]))
	info.Flags = beUint16(b[8:10])
	info.LocationH = int16(beUint16(b[10:12]))
	info.LocationV = int16(beUint16(b[12:14]))
	copy(info.Reserved[:], b[16:32])
	return info
}
