// Package main provides the aranetrace entry point: it loads an AArch64
// ELF into guest memory, decodes the executable segments, and prints the
// IR block each instruction lowers to.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/aranetrace/guestfault"
	"github.com/sarchlab/aranetrace/insts"
	"github.com/sarchlab/aranetrace/loader"
	"github.com/sarchlab/aranetrace/lower"
	"github.com/sarchlab/aranetrace/mmu"
)

var (
	verbose  = flag.Bool("v", false, "Verbose output")
	maxWords = flag.Int("n", 0, "Stop after this many instructions (0 = all)")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: aranetrace [options] <program.elf>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	memory := mmu.NewMemory()
	prog, err := loader.Load(flag.Arg(0), memory)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Loaded: %s\n", flag.Arg(0))
		fmt.Printf("Entry point: 0x%X\n", prog.EntryPoint)
		fmt.Printf("Segments: %d\n", len(prog.Segments))
	}

	if err := trace(prog, memory); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// trace walks each executable segment four bytes at a time, decoding and
// lowering every word and printing the result.
func trace(prog *loader.Program, memory *mmu.Memory) error {
	decoder := insts.NewDecoder()
	lowerer := lower.New()
	count := 0

	for _, seg := range prog.Segments {
		if seg.Flags&mmu.PageExec == 0 {
			continue
		}
		end := seg.VirtAddr + seg.FileSize
		for addr := seg.VirtAddr; addr+4 <= end; addr += 4 {
			if *maxWords > 0 && count >= *maxWords {
				return nil
			}
			count++

			word, err := memory.Read32(addr)
			if err != nil {
				return err
			}

			inst, err := decoder.Decode(word)
			if err != nil {
				fmt.Printf("0x%08X: %08x  <undefined>\n", addr, word)
				continue
			}

			block, err := lowerer.Compile(inst)
			if err != nil {
				var gf *guestfault.Error
				if errors.As(err, &gf) && gf.Kind == guestfault.NotImplemented {
					fmt.Printf("0x%08X: %08x  %v  <not lowered>\n", addr, word, inst.Op)
					continue
				}
				return err
			}

			fmt.Printf("0x%08X: %08x  %v\n", addr, word, inst.Op)
			for _, line := range splitLines(block.String()) {
				fmt.Printf("            %s\n", line)
			}
		}
	}
	return nil
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	return append(lines, s[start:])
}
