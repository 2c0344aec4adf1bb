package main

import (
	"time"

	"go.uber.org/zap"
)

// EmuState bundles everything a shim body might need to touch into one
// context object threaded explicitly through every call, per the design
// note on global-ish per-process state (§9): shims receive
// (cpu, state, args); nothing here is a package-level global.
type EmuState struct {
	Config Config
	Log    *zap.SugaredLogger

	Heap  *Heap
	Files *FileStore

	Imports  []ImportedSymbol
	DynStubs map[string]uint32

	// ActiveResFile is the resource file UpdateResFile/CloseResFile and
	// GetResource act on absent an explicit file parameter, mirroring the
	// classic Toolbox's "current resource file" notion.
	ActiveResFile *MacFile

	// ResourceHandles caches (file, type, id) -> already-loaded handle so
	// repeat GetResource calls on the same resource reuse one handle
	// (§4.J GetResource contract).
	ResourceHandles map[resourceHandleKey]uint32

	// ExitRequested and ExitStatus record emu_stop()'s outcome (§4.I Exit).
	ExitRequested bool
	ExitStatus    int32

	// MemErr/ResErr back the classic MemError/ResError globals some
	// shims report through instead of a return value (§7).
	MemErr OSErr
	ResErr OSErr

	// Started anchors TickCount()'s elapsed-time computation.
	Started time.Time

	// OpenFiles maps a guest file reference number to its open data-fork
	// cursor (§4.C's FSRead/FSWrite/FSClose family).
	OpenFiles  map[int16]*openFile
	nextRefNum int16
}

// openFile is one FSpOpenDF-opened data fork, with a byte cursor FSRead
// and FSWrite advance (§4.C).
type openFile struct {
	file *MacFile
	pos  int64
}

type resourceHandleKey struct {
	file *MacFile
	typ  FourCC
	id   int16
}

// NewEmuState builds a fresh, otherwise-empty emulator context. Heap and
// Files are attached by the caller once the image is laid out and the
// working directory's file store is open.
func NewEmuState(cfg Config, log *zap.SugaredLogger) *EmuState {
	return &EmuState{
		Config:          cfg,
		Log:             log,
		DynStubs:        make(map[string]uint32),
		ResourceHandles: make(map[resourceHandleKey]uint32),
		Started:         time.Now(),
		OpenFiles:       make(map[int16]*openFile),
		nextRefNum:      1,
	}
}

// RequestExit records a guest exit() call; the CPU run loop checks this
// after every shim dispatch and stops once it is set (§4.I, §5).
func (s *EmuState) RequestExit(status int32) {
	s.ExitRequested = true
	s.ExitStatus = status
}
