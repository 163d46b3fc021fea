package vpk

import "sort"

// CasePolicy controls string comparison in sorted (binary-search) mode.
type CasePolicy int

const (
	// CaseOrdinal compares directory/file-name/type byte-for-byte.
	CaseOrdinal CasePolicy = iota
	// CaseOrdinalIgnoreCase compares them ASCII-case-insensitively.
	CaseOrdinalIgnoreCase
)

// entryStore maps extension to an ordered sequence of entries. In linear
// mode, lookup is a scan in insertion order; in sorted mode, the
// per-extension slices are kept sorted by the length-first comparator and
// looked up with binary search.
type entryStore struct {
	byExt map[string][]*Entry
	order []*Entry // global insertion order, used by the writer's placement pass

	sorted     bool
	casePolicy CasePolicy
	ingested   bool // true once any entry has been added/read; gates Optimize
}

func newEntryStore() *entryStore {
	return &entryStore{byExt: map[string][]*Entry{}}
}

// Optimize switches the store into sorted (binary-search) mode with the
// given case policy. It must be called before any entry is ingested.
func (s *entryStore) Optimize(policy CasePolicy) error {
	if s.ingested {
		return newErr("optimize", KindInvalidState, nil)
	}
	s.sorted = true
	s.casePolicy = policy
	return nil
}

// Add appends e to its extension's sequence. In sorted mode this just
// appends; entries ingested in bulk (a read from disk) are sorted once
// afterward by sortAll.
func (s *entryStore) Add(e *Entry) {
	s.ingested = true
	s.byExt[e.Type] = append(s.byExt[e.Type], e)
	s.order = append(s.order, e)
}

// sortAll sorts every per-extension sequence with the comparator, for
// sorted-mode archives ingested from disk.
func (s *entryStore) sortAll() {
	if !s.sorted {
		return
	}
	for ext, list := range s.byExt {
		sort.Slice(list, func(i, j int) bool {
			return s.less(list[i], list[j])
		})
		s.byExt[ext] = list
	}
}

// less implements the length-first comparator: file-name length, then
// directory length, then file-name under the case policy, then directory
// under the case policy.
func (s *entryStore) less(a, b *Entry) bool {
	if len(a.FileName) != len(b.FileName) {
		return len(a.FileName) < len(b.FileName)
	}
	if len(a.Directory) != len(b.Directory) {
		return len(a.Directory) < len(b.Directory)
	}
	if c := s.compare(a.FileName, b.FileName); c != 0 {
		return c < 0
	}
	return s.compare(a.Directory, b.Directory) < 0
}

func (s *entryStore) equal(a, b string) bool {
	return s.compare(a, b) == 0
}

func (s *entryStore) compare(a, b string) int {
	if s.casePolicy == CaseOrdinalIgnoreCase {
		return compareASCIIFold(a, b)
	}
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

func compareASCIIFold(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		ca, cb := foldByte(a[i]), foldByte(b[i])
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
	}
	if len(a) < len(b) {
		return -1
	}
	if len(a) > len(b) {
		return 1
	}
	return 0
}

func foldByte(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c - 'A' + 'a'
	}
	return c
}

// Find returns the entry matching path, or false if none exists. An empty
// path is not an error; it matches only an entry added under the empty
// path. Under CaseOrdinalIgnoreCase the extension is matched
// case-insensitively too.
func (s *entryStore) Find(path string) (*Entry, bool) {
	ext, dir, name := Normalize(path)
	lists := [][]*Entry{s.byExt[ext]}
	if s.sorted && s.casePolicy == CaseOrdinalIgnoreCase {
		for key, list := range s.byExt {
			if key != ext && s.equal(key, ext) {
				lists = append(lists, list)
			}
		}
	}
	for _, list := range lists {
		find := s.findLinear
		if s.sorted {
			find = s.findSorted
		}
		if e, ok := find(list, dir, name); ok {
			return e, true
		}
	}
	return nil, false
}

func (s *entryStore) findLinear(list []*Entry, dir, name string) (*Entry, bool) {
	for _, e := range list {
		if e.Directory == dir && e.FileName == name {
			return e, true
		}
	}
	return nil, false
}

// findSorted binary-searches list using the length-first comparator:
// sort.Search to the first non-less element, then an equality check on the
// fields that order doesn't fully determine.
func (s *entryStore) findSorted(list []*Entry, dir, name string) (*Entry, bool) {
	key := &Entry{FileName: name, Directory: dir}
	i := sort.Search(len(list), func(i int) bool {
		return !s.less(list[i], key)
	})
	if i < len(list) &&
		len(list[i].FileName) == len(name) && len(list[i].Directory) == len(dir) &&
		s.equal(list[i].FileName, name) && s.equal(list[i].Directory, dir) {
		return list[i], true
	}
	return nil, false
}

// Remove deletes the entry matching path, if any, returning whether one
// was found. Emptied per-extension sequences are removed from the map
// entirely, preserving the invariant that a key never maps to an empty
// slice.
func (s *entryStore) Remove(path string) bool {
	ext, dir, name := Normalize(path)
	list := s.byExt[ext]
	for i, e := range list {
		if e.Directory == dir && e.FileName == name {
			list = append(list[:i], list[i+1:]...)
			if len(list) == 0 {
				delete(s.byExt, ext)
			} else {
				s.byExt[ext] = list
			}
			for j, o := range s.order {
				if o == e {
					s.order = append(s.order[:j], s.order[j+1:]...)
					break
				}
			}
			return true
		}
	}
	return false
}

// InsertionOrder returns every entry in global insertion order, used by the
// writer to flatten entries across extensions for chunk placement.
func (s *entryStore) InsertionOrder() []*Entry {
	return s.order
}

// All iterates every entry, extension by extension, in the sequence order
// established by ingestion/sorting.
func (s *entryStore) All(yield func(*Entry) bool) {
	for _, list := range s.byExt {
		for _, e := range list {
			if !yield(e) {
				return
			}
		}
	}
}

// Len returns the total number of entries across all extensions.
func (s *entryStore) Len() int {
	n := 0
	for _, list := range s.byExt {
		n += len(list)
	}
	return n
}
