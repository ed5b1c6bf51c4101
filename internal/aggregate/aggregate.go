package aggregate

import (
	"slices"

	"github.com/ben-ranford/why/internal/model"
	"github.com/ben-ranford/why/internal/resolve"
)

// MaxLocations bounds the sample of locations kept per dependency.
const MaxLocations = 25

type set map[string]struct{}

func (s set) add(values ...string) {
	for _, value := range values {
		s[value] = struct{}{}
	}
}

func (s set) union(other set) {
	for value := range other {
		s[value] = struct{}{}
	}
}

func (s set) sorted() []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, 0, len(s))
	for value := range s {
		out = append(out, value)
	}
	slices.Sort(out)
	return out
}

type accumulator struct {
	refs        int
	conditional int
	files       set
	symbols     set
	conditions  set
	locations   map[model.Location]struct{}
	kinds       map[model.RefKind]int
}

func newAccumulator() *accumulator {
	return &accumulator{
		files:      set{},
		symbols:    set{},
		conditions: set{},
		locations:  make(map[model.Location]struct{}),
		kinds:      make(map[model.RefKind]int),
	}
}

func (a *accumulator) merge(other *accumulator) {
	a.refs += other.refs
	a.conditional += other.conditional
	a.files.union(other.files)
	a.symbols.union(other.symbols)
	a.conditions.union(other.conditions)
	for location := range other.locations {
		a.locations[location] = struct{}{}
	}
	for kind, count := range other.kinds {
		a.kinds[kind] += count
	}
}

type unmatchedAccumulator struct {
	count  int
	files  set
	sample model.Location
}

// Partial is one worker's private table. Merging partials is associative and
// commutative, so the merged result does not depend on file order.
type Partial struct {
	separator string
	deps      map[string]*accumulator
	unmatched map[string]*unmatchedAccumulator
	builtin   int
	internal  int
}

func NewPartial(separator string) *Partial {
	return &Partial{
		separator: separator,
		deps:      make(map[string]*accumulator),
		unmatched: make(map[string]*unmatchedAccumulator),
	}
}

func (p *Partial) Add(usage model.ResolvedUsage) {
	ref := usage.Reference
	switch usage.Status {
	case model.Builtin:
		p.builtin++
	case model.Internal:
		p.internal++
	case model.Unmatched:
		if usage.Root == "" {
			return
		}
		acc, ok := p.unmatched[usage.Root]
		if !ok {
			acc = &unmatchedAccumulator{files: set{}, sample: ref.Location}
			p.unmatched[usage.Root] = acc
		}
		acc.count++
		acc.files.add(ref.Location.File)
		if ref.Location.Less(acc.sample) {
			acc.sample = ref.Location
		}
	case model.Matched:
		acc, ok := p.deps[usage.Dependency]
		if !ok {
			acc = newAccumulator()
			p.deps[usage.Dependency] = acc
		}
		acc.refs++
		acc.files.add(ref.Location.File)
		acc.locations[ref.Location] = struct{}{}
		acc.kinds[ref.Kind]++
		if symbol := resolve.Symbol(usage, p.separator); symbol != "" {
			acc.symbols.add(symbol)
		}
		if ref.Conditional() {
			acc.conditional++
			acc.conditions.add(ref.Condition)
		}
	}
}

func (p *Partial) Merge(other *Partial) {
	if other == nil {
		return
	}
	for name, acc := range other.deps {
		mine, ok := p.deps[name]
		if !ok {
			mine = newAccumulator()
			p.deps[name] = mine
		}
		mine.merge(acc)
	}
	for root, acc := range other.unmatched {
		mine, ok := p.unmatched[root]
		if !ok {
			p.unmatched[root] = &unmatchedAccumulator{count: acc.count, files: set{}, sample: acc.sample}
			p.unmatched[root].files.union(acc.files)
			continue
		}
		mine.count += acc.count
		mine.files.union(acc.files)
		if acc.sample.Less(mine.sample) {
			mine.sample = acc.sample
		}
	}
	p.builtin += other.builtin
	p.internal += other.internal
}

// Snapshot is the sealed outcome of aggregation.
type Snapshot struct {
	Profiles  []model.Profile
	Unmatched []model.UnmatchedRoot
	Builtin   int
	Internal  int
}

// Table is the single merge barrier. It accepts partials until sealed.
type Table struct {
	declared []model.DeclaredDependency
	merged   *Partial
	sealed   bool
}

func NewTable(declared []model.DeclaredDependency, separator string) *Table {
	return &Table{declared: slices.Clone(declared), merged: NewPartial(separator)}
}

func (t *Table) Fold(partial *Partial) error {
	if t.sealed {
		return model.Violation("aggregate.Fold", "table already sealed")
	}
	t.merged.Merge(partial)
	return nil
}

// Seal freezes the table and returns one profile per declared dependency,
// in declaration order. Dependencies without usage get all-zero profiles.
func (t *Table) Seal() (Snapshot, error) {
	if t.sealed {
		return Snapshot{}, model.Violation("aggregate.Seal", "table already sealed")
	}
	t.sealed = true

	snapshot := Snapshot{
		Profiles: make([]model.Profile, 0, len(t.declared)),
		Builtin:  t.merged.builtin,
		Internal: t.merged.internal,
	}
	for _, dep := range t.declared {
		profile := model.Profile{Dependency: dep, KindCounts: map[model.RefKind]int{}, Sealed: true}
		if acc, ok := t.merged.deps[dep.Name]; ok {
			fill(&profile, acc)
		}
		snapshot.Profiles = append(snapshot.Profiles, profile)
	}

	for root, acc := range t.merged.unmatched {
		snapshot.Unmatched = append(snapshot.Unmatched, model.UnmatchedRoot{
			Root:   root,
			Count:  acc.count,
			Files:  acc.files.sorted(),
			Sample: acc.sample,
		})
	}
	slices.SortFunc(snapshot.Unmatched, func(a, b model.UnmatchedRoot) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		if a.Root < b.Root {
			return -1
		}
		if a.Root > b.Root {
			return 1
		}
		return 0
	})
	return snapshot, nil
}

func fill(profile *model.Profile, acc *accumulator) {
	profile.ReferenceCount = acc.refs
	profile.ConditionalCount = acc.conditional
	profile.Files = acc.files.sorted()
	profile.Symbols = acc.symbols.sorted()
	profile.Conditions = acc.conditions.sorted()
	for kind, count := range acc.kinds {
		profile.KindCounts[kind] = count
	}

	locations := make([]model.Location, 0, len(acc.locations))
	for location := range acc.locations {
		locations = append(locations, location)
	}
	slices.SortFunc(locations, func(a, b model.Location) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		default:
			return 0
		}
	})
	if len(locations) > MaxLocations {
		locations = locations[:MaxLocations]
	}
	profile.Locations = locations
}
