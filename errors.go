package main

import "errors"

// OSErr is a classic Mac OS negative 16-bit error code. It is sign-extended
// to 32 bits wherever a u32 channel (a register or a memory word) carries it.
type OSErr int16

// Error codes shims are documented to return. Not exhaustive -- only the
// ones the shims in this repository actually produce.
const (
	OSErrNoErr              OSErr = 0
	OSErrIOError            OSErr = -36
	OSErrFileNotFound       OSErr = -43
	OSErrFileAlreadyExists  OSErr = -48
	OSErrVolumeNotFound     OSErr = -35
	OSErrMemFullErr         OSErr = -108
	OSErrNilHandleErr       OSErr = -109
	OSErrResNotFound        OSErr = -192
	OSErrResFNotFound       OSErr = -193
	OSErrAddResFailed       OSErr = -194
	OSErrRmvResFailed       OSErr = -196
	OSErrGestaltUndefSelect OSErr = -5551
)

// ToU32 sign-extends the error code the way it is written into a guest
// register or memory word.
func (e OSErr) ToU32() uint32 {
	return uint32(int32(e))
}

// Sentinel kinds used across the emulator for diagnostics and control
// flow. These are wrapped with fmt.Errorf/%w at the call site, never
// compared with ==.
var (
	ErrHostIO           = errors.New("host i/o error")
	ErrGuestProgramming = errors.New("guest programming error")
	ErrShimNotImpl      = errors.New("shim not implemented")
	ErrLinkerMalformed  = errors.New("malformed PEF container or loader section")
	ErrFatalCPU         = errors.New("fatal CPU error")
)
