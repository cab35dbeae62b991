package pointer

import (
	"fmt"

	"climbsplit/process"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// Resolver finds the object described by one CandidateTable and keeps the winning
// candidate cached. A cached object costs one validation read per tick; only when
// that read fails is the whole table scanned again.
type Resolver struct {
	mem   process.Memory
	table CandidateTable
	log   *logger.Logger

	base    process.ProcessMemoryAddress
	hasBase bool

	cached *ResolvedObject

	onScan func(table string, found bool)
	onHit  func(table string)
}

// Option configures a Resolver
type Option func(*Resolver)

func WithLogger(log *logger.Logger) Option {
	return func(r *Resolver) {
		r.log = log
	}
}

// WithScanHook is called after every full table scan
func WithScanHook(fn func(table string, found bool)) Option {
	return func(r *Resolver) {
		r.onScan = fn
	}
}

// WithHitHook is called whenever the cached object revalidates
func WithHitHook(fn func(table string)) Option {
	return func(r *Resolver) {
		r.onHit = fn
	}
}

// NewResolver creates a resolver for one attach. It must not outlive the process
// handle it reads from.
func NewResolver(mem process.Memory, table CandidateTable, options ...Option) *Resolver {
	r := &Resolver{
		mem:   mem,
		table: table,
	}
	for _, opt := range options {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.NewLogger(coloransi.Color(coloransi.Cyan, coloransi.ColorOrange, "resolver-"+table.Name))
	}
	return r
}

// Table returns the table this resolver searches
func (r *Resolver) Table() CandidateTable {
	return r.table
}

// Invalidate forgets the cached object so the next Resolve rescans
func (r *Resolver) Invalidate() {
	r.cached = nil
}

func (r *Resolver) moduleBase() (process.ProcessMemoryAddress, error) {
	if r.hasBase {
		return r.base, nil
	}
	base, err := r.mem.ModuleBaseAddress(r.table.Module)
	if err != nil {
		return 0, err
	}
	r.base = base
	r.hasBase = true
	return base, nil
}

// Find scans every candidate in table order and returns the first one whose chain
// resolves and whose check matches. A miss is the normal answer while the object
// does not exist (main menu, loading screen).
func (r *Resolver) Find() (ResolvedObject, bool) {
	base, err := r.moduleBase()
	if err != nil {
		r.log.Debugln("module", r.table.Module, "unavailable:", err)
		return ResolvedObject{}, false
	}

	for i, cand := range r.table.Candidates {
		addr, err := cand.Chain.Resolve(r.mem, base)
		if err != nil {
			if process.IsFatal(err) {
				r.log.Debugln("giving up scan at candidate", i, ":", err)
				return ResolvedObject{}, false
			}
			continue
		}

		ok, err := r.table.CheckFor(i).Matches(r.mem, addr)
		if err != nil {
			if process.IsFatal(err) {
				return ResolvedObject{}, false
			}
			continue
		}
		if ok {
			return ResolvedObject{Table: r.table.Name, Index: i, Address: addr}, true
		}
	}

	return ResolvedObject{}, false
}

// Revalidate re-runs the winning candidate's check against the object's address
func (r *Resolver) Revalidate(obj ResolvedObject) bool {
	if obj.Index < 0 || obj.Index >= len(r.table.Candidates) {
		return false
	}
	ok, err := r.table.CheckFor(obj.Index).Matches(r.mem, obj.Address)
	return err == nil && ok
}

// Resolve returns the cached object if it still validates, otherwise rescans
func (r *Resolver) Resolve() (ResolvedObject, bool) {
	if r.cached != nil {
		if r.Revalidate(*r.cached) {
			if r.onHit != nil {
				r.onHit(r.table.Name)
			}
			return *r.cached, true
		}
		r.log.Infoln("lost", r.cached.String())
		r.cached = nil
	}

	obj, ok := r.Find()
	if r.onScan != nil {
		r.onScan(r.table.Name, ok)
	}
	if !ok {
		return ResolvedObject{}, false
	}

	r.log.Infoln("resolved", obj.String(), "via", r.table.Candidates[obj.Index].Chain.String())
	r.cached = &obj
	return obj, true
}

// Describe renders a resolved object with its chain, for probes and logs
func (r *Resolver) Describe(obj ResolvedObject) string {
	if obj.Index < 0 || obj.Index >= len(r.table.Candidates) {
		return obj.String()
	}
	return fmt.Sprintf("%s chain=%s check=%s", obj, r.table.Candidates[obj.Index].Chain, r.table.CheckFor(obj.Index).Expected())
}
