// Package mmu provides the guest paging interface consumed by the executor
// when it evaluates Load nodes and MemoryRel destinations: page-granular
// translation plus a byte-level little-endian access facade that services
// accesses straddling page boundaries transparently.
package mmu

import (
	"encoding/binary"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/aranetrace/guestfault"
)

// PageSize is the guest translation granule in bytes.
const PageSize = 4096

// PageFlags are per-page protection bits.
type PageFlags uint8

const (
	// PageRead marks the page readable.
	PageRead PageFlags = 1 << iota
	// PageWrite marks the page writable.
	PageWrite
	// PageExec marks the page executable.
	PageExec
)

// Page is one translated guest page: its base address, the byte-addressable
// frame backing it, and its protection flags.
type Page struct {
	Base  uint64
	Frame []byte
	Flags PageFlags
}

// Mmu is the translation contract the executor queries per access.
type Mmu interface {
	// Query translates a guest address to its page. An unmapped address
	// returns a guestfault of kind PageFault.
	Query(addr uint64) (Page, error)
}

// TlbStats counts translation cache behavior.
type TlbStats struct {
	Hits   uint64
	Misses uint64
	Faults uint64
}

// Memory is a page-table-backed Mmu with a directory-shaped TLB in front
// of the table. The TLB only caches the fact that a translation exists;
// frames live in the page table and are never copied.
//
// A Memory is owned by a single executor; it is not safe for concurrent
// use without external synchronization.
type Memory struct {
	pages map[uint64]*frame
	tlb   *akitacache.DirectoryImpl
	stats TlbStats
}

type frame struct {
	data  []byte
	flags PageFlags
}

// defaultTlbSets and defaultTlbWays size the TLB directory: 64 sets, 4-way,
// for 256 cached translations.
const (
	defaultTlbSets = 64
	defaultTlbWays = 4
)

// NewMemory creates an empty guest address space.
func NewMemory() *Memory {
	return &Memory{
		pages: make(map[uint64]*frame),
		tlb: akitacache.NewDirectory(
			defaultTlbSets,
			defaultTlbWays,
			PageSize,
			akitacache.NewLRUVictimFinder(),
		),
	}
}

// Stats returns TLB hit/miss/fault counters.
func (m *Memory) Stats() TlbStats { return m.stats }

// Map allocates zeroed pages covering [addr, addr+size) with the given
// flags. Already-mapped pages in the range keep their frame contents and
// their existing flags, with the new flags added to them.
func (m *Memory) Map(addr, size uint64, flags PageFlags) {
	if size == 0 {
		return
	}
	first := addr &^ (PageSize - 1)
	last := (addr + size - 1) &^ (PageSize - 1)
	for base := first; ; base += PageSize {
		if f, ok := m.pages[base]; ok {
			f.flags |= flags
		} else {
			m.pages[base] = &frame{data: make([]byte, PageSize), flags: flags}
		}
		if base == last {
			break
		}
	}
}

// Query translates addr. Hits in the TLB directory update its LRU state;
// misses walk the page table and install the translation, evicting the
// victim way.
func (m *Memory) Query(addr uint64) (Page, error) {
	base := addr &^ (PageSize - 1)

	block := m.tlb.Lookup(0, base)
	if block != nil && block.IsValid && block.Tag == base {
		f, ok := m.pages[base]
		if !ok {
			// The page was unmapped behind the TLB's back; drop the
			// stale entry and fault.
			block.IsValid = false
			m.stats.Faults++
			return Page{}, guestfault.PageFaultError(addr, nil)
		}
		m.stats.Hits++
		m.tlb.Visit(block)
		return Page{Base: base, Frame: f.data, Flags: f.flags}, nil
	}

	f, ok := m.pages[base]
	if !ok {
		m.stats.Faults++
		return Page{}, guestfault.PageFaultError(addr, nil)
	}
	m.stats.Misses++

	victim := m.tlb.FindVictim(base)
	if victim != nil {
		victim.Tag = base
		victim.IsValid = true
		m.tlb.Visit(victim)
	}
	return Page{Base: base, Frame: f.data, Flags: f.flags}, nil
}

// ReadBytes fills buf from guest memory starting at addr. Accesses that
// straddle page boundaries are split at each boundary with one translation
// per page touched.
func (m *Memory) ReadBytes(addr uint64, buf []byte) error {
	for len(buf) > 0 {
		page, err := m.Query(addr)
		if err != nil {
			return err
		}
		offset := addr - page.Base
		n := copy(buf, page.Frame[offset:])
		addr += uint64(n)
		buf = buf[n:]
	}
	return nil
}

// WriteBytes stores data into guest memory starting at addr, splitting at
// page boundaries like ReadBytes.
func (m *Memory) WriteBytes(addr uint64, data []byte) error {
	for len(data) > 0 {
		page, err := m.Query(addr)
		if err != nil {
			return err
		}
		offset := addr - page.Base
		n := copy(page.Frame[offset:], data)
		addr += uint64(n)
		data = data[n:]
	}
	return nil
}

// Read32 reads a little-endian 32-bit value, the shape of an instruction
// fetch.
func (m *Memory) Read32(addr uint64) (uint32, error) {
	var buf [4]byte
	if err := m.ReadBytes(addr, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// Read64 reads a little-endian 64-bit value.
func (m *Memory) Read64(addr uint64) (uint64, error) {
	var buf [8]byte
	if err := m.ReadBytes(addr, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

// Write64 stores a little-endian 64-bit value.
func (m *Memory) Write64(addr uint64, value uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	return m.WriteBytes(addr, buf[:])
}
