package roadnet

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/specialistvlad/globalplanner/internal/ctxlog"
)

// Mode selects how the assembler is fed.
type Mode int

const (
	// ModeLive aggregates per-category fragments as they arrive.
	ModeLive Mode = iota
	// ModeBlob installs a single prebuilt, serialized network.
	ModeBlob
	// ModeFile parses a self-contained map description file.
	ModeFile
)

func (m Mode) String() string {
	switch m {
	case ModeLive:
		return "live"
	case ModeBlob:
		return "blob"
	case ModeFile:
		return "file"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode resolves "live", "blob" or "file".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "live":
		return ModeLive, nil
	case "blob":
		return ModeBlob, nil
	case "file":
		return ModeFile, nil
	}
	return 0, fmt.Errorf("unknown map source mode %q", s)
}

// FileParser turns a map description file into records.
type FileParser func(ctx context.Context, path string) (*Bundle, error)

// Options configures an Assembler.
type Options struct {
	Mode     Mode
	Required []Category
	Build    BuildOptions
	Parser   FileParser
}

// Assembler owns the road network. It accumulates records from its source,
// tracks which categories have been observed and derives the routable Graph
// on demand.
//
// All mutating calls are expected from a single goroutine (the supervisor's
// processing loop); the lock only protects concurrent readers such as
// status reporting.
type Assembler struct {
	mu sync.RWMutex

	mode     Mode
	required []Category
	opts     BuildOptions
	parser   FileParser

	store     *recordStore
	seen      [categoryCount]bool
	installed bool

	graph   *Graph
	dirty   bool
	version uint64
	epoch   uint64
}

// NewAssembler creates an empty assembler.
func NewAssembler(opts Options) *Assembler {
	required := opts.Required
	if len(required) == 0 {
		required = DefaultRequired()
	}
	return &Assembler{
		mode:     opts.Mode,
		required: append([]Category(nil), required...),
		opts:     opts.Build,
		parser:   opts.Parser,
		store:    newRecordStore(),
		dirty:    true,
	}
}

// Mode returns the configured source mode.
func (a *Assembler) Mode() Mode { return a.mode }

// MergeFragment upserts one category's records. Re-delivering a fragment is
// harmless and fragments may arrive in any order. It reports whether the
// network content changed materially.
func (a *Assembler) MergeFragment(ctx context.Context, c Category, payload any) (bool, error) {
	if a.mode != ModeLive {
		return false, fmt.Errorf("%w: merge fragment in %s mode", ErrWrongMode, a.mode)
	}
	if !c.Valid() {
		return false, fmt.Errorf("%w: %d", ErrUnknownCategory, int(c))
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	changed, err := a.store.merge(c, payload)
	if err != nil {
		return false, err
	}
	wasUsable := a.usableLocked()
	a.seen[c] = true
	if changed > 0 {
		a.dirty = true
		a.version++
	}
	if !wasUsable && a.usableLocked() {
		// Becoming usable is itself a material change for waiting consumers.
		if changed == 0 {
			a.version++
		}
		ctxlog.FromContext(ctx).Info("🗺️ Road network became usable.", "category", c.String(), "version", a.version)
	}
	ctxlog.FromContext(ctx).Debug("Merged map fragment.", "category", c.String(), "changed", changed)
	return changed > 0, nil
}

// InstallBlob replaces the network with a prebuilt serialized one.
func (a *Assembler) InstallBlob(ctx context.Context, blob []byte) error {
	if a.mode != ModeBlob {
		return fmt.Errorf("%w: install blob in %s mode", ErrWrongMode, a.mode)
	}
	b, err := DecodeBlob(blob)
	if err != nil {
		return err
	}
	a.replace(ctx, b)
	return nil
}

// InstallBundle replaces the network with already parsed file content.
func (a *Assembler) InstallBundle(ctx context.Context, b *Bundle) error {
	if a.mode != ModeFile {
		return fmt.Errorf("%w: install bundle in %s mode", ErrWrongMode, a.mode)
	}
	a.replace(ctx, b)
	return nil
}

// LoadFile parses path with the configured FileParser and installs the result.
// Loading again is a reload: the previous network is replaced wholesale.
func (a *Assembler) LoadFile(ctx context.Context, path string) error {
	if a.mode != ModeFile {
		return fmt.Errorf("%w: load file in %s mode", ErrWrongMode, a.mode)
	}
	if a.parser == nil {
		return fmt.Errorf("no map file parser configured")
	}
	b, err := a.parser(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to load map file %s: %w", path, err)
	}
	return a.InstallBundle(ctx, b)
}

func (a *Assembler) replace(ctx context.Context, b *Bundle) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.store = newRecordStoreFromBundle(b)
	a.installed = true
	a.dirty = true
	a.version++
	a.epoch++
	ctxlog.FromContext(ctx).Info("🗺️ Road network installed.", "mode", a.mode.String(), "epoch", a.epoch,
		"lanes", len(a.store.lanes), "nodes", len(a.store.nodes))
}

// Usable reports whether every required category has been observed (live
// mode) or a network has been installed (blob and file modes).
func (a *Assembler) Usable() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.usableLocked()
}

func (a *Assembler) usableLocked() bool {
	if a.mode != ModeLive {
		return a.installed
	}
	for _, c := range a.required {
		if !a.seen[c] {
			return false
		}
	}
	return true
}

// Completeness reports, per category, whether it has been observed.
func (a *Assembler) Completeness() map[Category]bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[Category]bool, categoryCount)
	for c := Category(0); c < categoryCount; c++ {
		out[c] = a.seen[c] || (a.mode != ModeLive && a.installed)
	}
	return out
}

// Missing returns the required categories not yet observed.
func (a *Assembler) Missing() []Category {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []Category
	if a.mode != ModeLive {
		if !a.installed {
			out = append(out, a.required...)
		}
		return out
	}
	for _, c := range a.required {
		if !a.seen[c] {
			out = append(out, c)
		}
	}
	return out
}

// Version increments on every material change of the network content.
func (a *Assembler) Version() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.version
}

// Epoch increments on every wholesale replacement.
func (a *Assembler) Epoch() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.epoch
}

// Snapshot returns the current immutable graph, rebuilding it if records
// changed since the last call. It returns ErrMapIncomplete until the network
// is usable.
func (a *Assembler) Snapshot() (*Graph, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.usableLocked() {
		return nil, ErrMapIncomplete
	}
	if a.dirty || a.graph == nil {
		g := build(a.store, a.opts)
		g.Version = a.version
		g.Epoch = a.epoch
		a.graph = g
		a.dirty = false
	}
	return a.graph, nil
}

// Bundle exports the current records in canonical order.
func (a *Assembler) Bundle() *Bundle {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.store.bundle()
}
