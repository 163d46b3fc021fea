package vpk

import "testing"

func newTestEntry(path string) *Entry {
	ext, dir, name := Normalize(path)
	return &Entry{Type: ext, Directory: dir, FileName: name}
}

func TestEntryStoreLinearFind(t *testing.T) {
	s := newEntryStore()
	e := newTestEntry("addons/chess/chess.vdf")
	s.Add(e)
	s.Add(newTestEntry("addons/hello/chess.vdf"))

	for _, p := range []string{
		`addons\chess\chess.vdf`,
		`addons/chess\chess.vdf`,
		`addons/chess/chess.vdf`,
		`\addons/chess/chess.vdf`,
		`/addons/chess/chess.vdf`,
	} {
		got, ok := s.Find(p)
		if !ok || got != e {
			t.Errorf("Find(%q) = (%v, %v), want the chess entry", p, got, ok)
		}
	}

	if _, ok := s.Find("addons/hello/chess.vdf"); !ok {
		t.Errorf("Find(addons/hello/chess.vdf) should find the other entry")
	}
	if _, ok := s.Find("nonexistent/path.vdf"); ok {
		t.Errorf("Find of a missing path should report not found")
	}
}

func TestEntryStoreSortedOrdinal(t *testing.T) {
	s := newEntryStore()
	if err := s.Optimize(CaseOrdinal); err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	a := newTestEntry("dir/Alpha.txt")
	b := newTestEntry("dir/beta.txt")
	s.Add(a)
	s.Add(b)
	s.sortAll()

	if _, ok := s.Find("dir/alpha.txt"); ok {
		t.Errorf("ordinal mode should be case-sensitive: lowercase alpha should not match")
	}
	got, ok := s.Find("dir/Alpha.txt")
	if !ok || got != a {
		t.Errorf("Find(dir/Alpha.txt) = (%v, %v), want the Alpha entry", got, ok)
	}
}

func TestEntryStoreSortedIgnoreCase(t *testing.T) {
	s := newEntryStore()
	if err := s.Optimize(CaseOrdinalIgnoreCase); err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	a := newTestEntry("Dir/Alpha.TXT")
	s.Add(a)
	s.sortAll()

	for _, p := range []string{"dir/alpha.txt", "DIR/ALPHA.TXT", "Dir/Alpha.TXT"} {
		got, ok := s.Find(p)
		if !ok || got != a {
			t.Errorf("Find(%q) = (%v, %v), want the Alpha entry under ignore-case policy", p, got, ok)
		}
	}
}

func TestEntryStoreOptimizeAfterIngestFails(t *testing.T) {
	s := newEntryStore()
	s.Add(newTestEntry("a.txt"))
	if err := s.Optimize(CaseOrdinal); !IsInvalidState(err) {
		t.Errorf("Optimize after ingest = %v, want KindInvalidState", err)
	}
}

func TestEntryStoreRemove(t *testing.T) {
	s := newEntryStore()
	s.Add(newTestEntry("only.txt"))
	if !s.Remove("only.txt") {
		t.Fatalf("Remove(only.txt) should report true")
	}
	if _, ok := s.byExt["txt"]; ok {
		t.Errorf("emptied extension key should be removed from the map")
	}
	if s.Remove("only.txt") {
		t.Errorf("second Remove of the same path should report false")
	}
}

func TestEntryStoreLengthFirstComparator(t *testing.T) {
	s := newEntryStore()
	short := newTestEntry("ab.txt")
	long := newTestEntry("abcdef.txt")
	if !s.less(short, long) {
		t.Errorf("shorter file name should sort before a longer one regardless of content")
	}
}
