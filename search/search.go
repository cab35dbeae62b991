// Package search walks the pointer graph below an address looking for a sentinel
// value. It is how candidate chains for a new game build are found.
package search

import (
	"context"
	"encoding/binary"
	"fmt"

	"climbsplit/pointer"
	"climbsplit/process"
)

// Target is the memory a search runs against
type Target interface {
	process.Memory
	IsValidAddress(addr process.ProcessMemoryAddress) bool
}

// Searcher holds configuration for the search
type Searcher struct {
	MaxStructSize uint
	RootSize      uint
	MaxDepth      int
	MinAlignment  uint
	MaxResults    int
	Want          process.Value
}

// Option is a function that configures a Searcher
type Option func(*Searcher)

func WithMaxStructSize(size uint) Option {
	return func(s *Searcher) {
		s.MaxStructSize = size
	}
}

// WithRootSize sets how many bytes of the start address are scanned; module images
// hold their statics far beyond a typical struct size
func WithRootSize(size uint) Option {
	return func(s *Searcher) {
		s.RootSize = size
	}
}

func WithMaxDepth(depth int) Option {
	return func(s *Searcher) {
		s.MaxDepth = depth
	}
}

func WithMinAlignment(align uint) Option {
	return func(s *Searcher) {
		s.MinAlignment = align
	}
}

// WithMaxResults stops the search after n hits; 0 means unlimited
func WithMaxResults(n int) Option {
	return func(s *Searcher) {
		s.MaxResults = n
	}
}

// WithValue sets the sentinel; matching is bit-exact
func WithValue(v process.Value) Option {
	return func(s *Searcher) {
		s.Want = v
	}
}

// Result is a path to the sentinel with read-path semantics: every offset but the
// last is followed by a dereference, the last locates the value.
type Result struct {
	Path []process.ProcessMemorySize
}

// Chain is the deep pointer to the object that holds the value
func (r Result) Chain() pointer.PointerChain {
	if len(r.Path) == 0 {
		return nil
	}
	return pointer.PointerChain(r.Path[:len(r.Path)-1])
}

// Field is the value's offset inside that object
func (r Result) Field() process.ProcessMemorySize {
	if len(r.Path) == 0 {
		return 0
	}
	return r.Path[len(r.Path)-1]
}

func (r Result) String() string {
	return fmt.Sprintf("chain=%s field=%s", r.Chain(), r.Field().Hex())
}

// Search performs a recursive search for the wanted value starting at base
func Search(ctx context.Context, target Target, base process.ProcessMemoryAddress, options ...Option) ([]Result, error) {
	s := &Searcher{
		MaxStructSize: 256, // Default
		MaxDepth:      3,   // Default
		MinAlignment:  4,   // Default
	}

	for _, opt := range options {
		opt(s)
	}

	if !s.Want.Kind.IsValid() {
		return nil, fmt.Errorf("no search target specified")
	}
	if s.MinAlignment == 0 {
		return nil, fmt.Errorf("alignment must be positive")
	}
	width := uint(s.Want.Kind.Size())

	var results []Result
	visited := make(map[process.ProcessMemoryAddress]bool)
	full := func() bool {
		return s.MaxResults > 0 && len(results) >= s.MaxResults
	}

	var searchRecursive func(addr process.ProcessMemoryAddress, depth int, path []process.ProcessMemorySize)
	searchRecursive = func(addr process.ProcessMemoryAddress, depth int, path []process.ProcessMemorySize) {
		if depth > s.MaxDepth || visited[addr] || full() || ctx.Err() != nil {
			return
		}
		visited[addr] = true

		var data []byte
		if depth == 0 && s.RootSize > 0 {
			data = readRoot(ctx, target, addr, s.RootSize)
		} else {
			// a partial read still holds the readable prefix
			data, _ = target.ReadMemory(addr, process.ProcessMemorySize(s.MaxStructSize))
		}
		if len(data) == 0 {
			return
		}

		for offset := uint(0); offset < uint(len(data)); offset += s.MinAlignment {
			if offset+width <= uint(len(data)) {
				v, err := process.DecodeValue(data[offset:], s.Want.Kind)
				if err == nil && v.Equal(s.Want) {
					newPath := make([]process.ProcessMemorySize, len(path), len(path)+1)
					copy(newPath, path)
					newPath = append(newPath, process.ProcessMemorySize(offset))

					results = append(results, Result{Path: newPath})
					if full() {
						return
					}
				}
			}

			// Pointers are only followed at 8-byte aligned offsets
			if offset%8 != 0 || depth >= s.MaxDepth || offset+8 > uint(len(data)) {
				continue
			}
			ptr := process.ProcessMemoryAddress(binary.LittleEndian.Uint64(data[offset:]))
			if ptr == 0 || !target.IsValidAddress(ptr) {
				continue
			}

			newPath := make([]process.ProcessMemorySize, len(path), len(path)+1)
			copy(newPath, path)
			newPath = append(newPath, process.ProcessMemorySize(offset))
			searchRecursive(ptr, depth+1, newPath)
		}
	}

	searchRecursive(base, 0, []process.ProcessMemorySize{})

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

const rootChunk = 0x10000

// readRoot reads up to size bytes from base and returns the readable prefix. Reads
// that fail outright are retried with halved chunks, so a root size larger than the
// module image yields the whole image rather than nothing.
func readRoot(ctx context.Context, target Target, base process.ProcessMemoryAddress, size uint) []byte {
	var out []byte
	chunk := uint(rootChunk)
	for uint(len(out)) < size && chunk >= uint(process.PointerSize) && ctx.Err() == nil {
		n := min(chunk, size-uint(len(out)))
		data, _ := target.ReadMemory(base.Add(process.ProcessMemorySize(len(out))), process.ProcessMemorySize(n))
		out = append(out, data...)
		if len(data) == 0 {
			chunk /= 2
		}
	}
	return out
}

// Confirm re-walks a result the way a resolver would: the chain from base must reach
// an object whose field still holds want.
func Confirm(mem process.Memory, base process.ProcessMemoryAddress, r Result, want process.Value) bool {
	obj, err := r.Chain().Resolve(mem, base)
	if err != nil {
		return false
	}
	v, err := process.ReadValue(mem, obj.Add(r.Field()), want.Kind)
	return err == nil && v.Equal(want)
}
