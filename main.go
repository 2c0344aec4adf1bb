package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
)

const versionString = "mpwemu 1.0.0"

func main() {
	var traceFlag = flag.Bool("trace", false, "log every guest shim dispatch")
	var version = flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *version {
		fmt.Println(versionString)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: mpwemu <executable> [args...]")
		os.Exit(2)
	}

	cfg := DefaultConfig()
	if *traceFlag {
		cfg.Trace = true
	}

	log, err := newLogger(cfg.Trace)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	defer log.Sync()

	status, err := Run(cfg, log.Sugar(), args[0], args[1:])
	if err != nil {
		log.Sugar().Errorw("run failed", "error", err)
		os.Exit(1)
	}
	os.Exit(int(status))
}

func newLogger(trace bool) (*zap.Logger, error) {
	if trace {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// Run loads path as a PEF executable, links it against the emulator's
// shim table, and runs it to completion, returning the guest's exit
// status (§5 "Run").
func Run(cfg Config, log *zap.SugaredLogger, path string, guestArgs []string) (int32, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrHostIO, err)
	}

	container, err := ParsePEF(raw)
	if err != nil {
		return 0, fmt.Errorf("parse PEF: %w", err)
	}

	linker := NewLinker(cfg, log)
	image, err := linker.Link(container)
	if err != nil {
		return 0, fmt.Errorf("link: %w", err)
	}

	st := NewEmuState(cfg, log)
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	st.Files = NewFileStore(cwd, log)

	// The linked image and the heap arena are both addressed by the same
	// CPU, so they share one backing buffer: the image occupies the low
	// end, the heap the high end, and the gap between them is unmapped
	// guest address space.
	heapEnd := cfg.HeapBase + cfg.HeapSize
	unified := make([]byte, heapEnd-image.Base)
	copy(unified, image.Mem)
	heapMem := unified[cfg.HeapBase-image.Base : heapEnd-image.Base]
	st.Heap = NewHeap(cfg.HeapBase, heapMem, 4096)

	cpu := NewFacadeCPU(unified, image.Base)
	dispatcher := NewDispatcher(cpu, st, image)
	cpu.InterruptHook(dispatcher.HandleInterrupt)
	RegisterMemoryShims(dispatcher)
	RegisterStdioShims(dispatcher)
	RegisterStringShims(dispatcher)
	RegisterStdlibShims(dispatcher)
	RegisterSetjmpShims(dispatcher)
	RegisterQsortShim(dispatcher)
	RegisterResourceShims(dispatcher)
	RegisterFileShims(dispatcher)
	RegisterGestaltShim(dispatcher)
	RegisterLowMemShims(dispatcher)
	RegisterFlexLMShims(dispatcher)
	RegisterFenvShims(dispatcher)
	RegisterTextUtilsShims(dispatcher)

	mem := NewMemory(cpu)
	sp := SetupStack(image, mem, append([]string{path}, guestArgs...), os.Environ())
	cpu.SetGPR(1, sp)

	ctx := context.Background()
	if err := cpu.Start(ctx, image.MainAddr, 0, cfg.InstructionBudget); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrFatalCPU, err)
	}

	return st.ExitStatus, nil
}
