// Package loader maps AArch64 ELF binaries into guest memory.
package loader

import (
	"debug/elf"
	"fmt"
	"io"

	"github.com/sarchlab/aranetrace/mmu"
)

// DefaultStackTop is the default stack top address for ARM64 Linux user
// space, a conventional high address in the user address range.
const DefaultStackTop = 0x7ffffffff000

// DefaultStackSize is the default stack size (8MB).
const DefaultStackSize = 8 * 1024 * 1024

// Segment records one PT_LOAD mapping placed into guest memory.
type Segment struct {
	// VirtAddr is the virtual address the segment was mapped at.
	VirtAddr uint64
	// FileSize is how many bytes came from the file; the executable walk
	// covers [VirtAddr, VirtAddr+FileSize).
	FileSize uint64
	// MemSize is the mapped size (larger than FileSize for BSS; the gap
	// stays zero-filled).
	MemSize uint64
	// Flags are the page protections the segment was mapped with.
	Flags mmu.PageFlags
}

// Program describes an ELF image already resident in guest memory.
type Program struct {
	// EntryPoint is the virtual address where execution should begin.
	EntryPoint uint64
	// InitialSP is the initial stack pointer value; the stack region below
	// it is mapped read-write.
	InitialSP uint64
	// Segments summarizes the PT_LOAD mappings performed.
	Segments []Segment
}

// Load parses an ARM64 ELF binary and maps its loadable segments into mem:
// pages are allocated with the segment's protection, file bytes are written
// through the paging facade, and a read-write stack region is mapped below
// DefaultStackTop.
func Load(path string, mem *mmu.Memory) (*Program, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if f.Class != elf.ELFCLASS64 {
		return nil, fmt.Errorf("not a 64-bit ELF file")
	}
	if f.Machine != elf.EM_AARCH64 {
		return nil, fmt.Errorf("not an ARM64 ELF file (machine type: %v)", f.Machine)
	}

	prog := &Program{
		EntryPoint: f.Entry,
		InitialSP:  DefaultStackTop,
	}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}

		data := make([]byte, phdr.Filesz)
		if phdr.Filesz > 0 {
			n, err := phdr.ReadAt(data, 0)
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("failed to read segment at 0x%x: %w", phdr.Vaddr, err)
			}
			if uint64(n) != phdr.Filesz {
				return nil, fmt.Errorf("short read for segment at 0x%x: got %d bytes, expected %d",
					phdr.Vaddr, n, phdr.Filesz)
			}
		}

		flags := pageFlags(phdr.Flags)
		mem.Map(phdr.Vaddr, phdr.Memsz, flags)
		if err := mem.WriteBytes(phdr.Vaddr, data); err != nil {
			return nil, fmt.Errorf("failed to place segment at 0x%x: %w", phdr.Vaddr, err)
		}

		prog.Segments = append(prog.Segments, Segment{
			VirtAddr: phdr.Vaddr,
			FileSize: phdr.Filesz,
			MemSize:  phdr.Memsz,
			Flags:    flags,
		})
	}

	mem.Map(DefaultStackTop-DefaultStackSize, DefaultStackSize, mmu.PageRead|mmu.PageWrite)

	return prog, nil
}

func pageFlags(pf elf.ProgFlag) mmu.PageFlags {
	var flags mmu.PageFlags
	if pf&elf.PF_R != 0 {
		flags |= mmu.PageRead
	}
	if pf&elf.PF_W != 0 {
		flags |= mmu.PageWrite
	}
	if pf&elf.PF_X != 0 {
		flags |= mmu.PageExec
	}
	return flags
}
