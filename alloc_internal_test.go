package volfs

import "testing"

func TestAllocatorAllocateLowestIndexFirst(t *testing.T) {
	a := newAllocator(4)
	picked, err := a.allocateChain(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(picked) != 2 || picked[0] != 0 || picked[1] != 1 {
		t.Fatalf("picked = %v, want [0 1]", picked)
	}
	if got := a.countFree(); got != 2 {
		t.Fatalf("countFree = %d, want 2", got)
	}
}

func TestAllocatorSkipsTaken(t *testing.T) {
	a := newAllocator(4)
	a.nodes[0].Next = nodeEnd // pretend slot 0 is already in use
	picked, err := a.allocateChain(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(picked) != 2 || picked[0] != 1 || picked[1] != 2 {
		t.Fatalf("picked = %v, want [1 2]", picked)
	}
}

func TestAllocatorNoSpace(t *testing.T) {
	a := newAllocator(2)
	_, err := a.allocateChain(3)
	if kind, ok := KindOf(err); !ok || kind != NoSpace {
		t.Fatalf("allocateChain over capacity = %v, want NoSpace", err)
	}
	if got := a.countFree(); got != 2 {
		t.Fatalf("countFree after failed allocation = %d, want 2 (no partial allocation)", got)
	}
}

func TestAllocatorZeroRequestIsNoop(t *testing.T) {
	a := newAllocator(2)
	picked, err := a.allocateChain(0)
	if err != nil || picked != nil {
		t.Fatalf("allocateChain(0) = %v, %v; want nil, nil", picked, err)
	}
}

func TestAllocatorLinkAndFollowChain(t *testing.T) {
	a := newAllocator(4)
	picked, err := a.allocateChain(3)
	if err != nil {
		t.Fatal(err)
	}
	a.link(picked[0], picked[1])
	a.link(picked[1], picked[2])

	got, err := a.followChain(picked[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[0] != picked[0] || got[1] != picked[1] || got[2] != picked[2] {
		t.Fatalf("followChain = %v, want %v", got, picked)
	}
}

func TestAllocatorFreeChain(t *testing.T) {
	a := newAllocator(4)
	picked, _ := a.allocateChain(2)
	a.link(picked[0], picked[1])

	if err := a.freeChain(picked[0]); err != nil {
		t.Fatal(err)
	}
	if got := a.countFree(); got != 4 {
		t.Fatalf("countFree after freeChain = %d, want 4", got)
	}
}

func TestAllocatorFreeChainDetectsCorruption(t *testing.T) {
	a := newAllocator(4)
	// A FREE node should never be reachable as a chain head whose Next is
	// immediately FREE again without ever hitting END.
	a.nodes[0].Next = nodeFree
	err := a.freeChain(0)
	if kind, ok := KindOf(err); !ok || kind != Corrupt {
		t.Fatalf("freeChain(FREE head) = %v, want Corrupt", err)
	}
}

func TestAllocatorFollowChainOutOfRange(t *testing.T) {
	a := newAllocator(4)
	_, err := a.followChain(99)
	if kind, ok := KindOf(err); !ok || kind != Corrupt {
		t.Fatalf("followChain(out of range) = %v, want Corrupt", err)
	}
}

func TestAllocatorReleaseNodes(t *testing.T) {
	a := newAllocator(4)
	picked, _ := a.allocateChain(2)
	a.link(picked[0], picked[1])
	a.releaseNodes(picked)
	if got := a.countFree(); got != 4 {
		t.Fatalf("countFree after releaseNodes = %d, want 4", got)
	}
}

func TestInodeTableFindByNameAndFree(t *testing.T) {
	tbl := newInodeTable(2)
	if slot := tbl.findFree(); slot != 0 {
		t.Fatalf("findFree on empty table = %d, want 0", slot)
	}
	tbl.entries[0] = entry{Name: "a", FirstBlock: nodeEnd}
	if slot := tbl.findByName("a"); slot != 0 {
		t.Fatalf("findByName(a) = %d, want 0", slot)
	}
	if slot := tbl.findByName("missing"); slot != -1 {
		t.Fatalf("findByName(missing) = %d, want -1", slot)
	}
	if slot := tbl.findFree(); slot != 1 {
		t.Fatalf("findFree with slot 0 taken = %d, want 1", slot)
	}
	tbl.entries[1] = entry{Name: "b", FirstBlock: nodeEnd}
	if slot := tbl.findFree(); slot != -1 {
		t.Fatalf("findFree on full table = %d, want -1", slot)
	}

	names := tbl.listNames()
	if len(names) != 2 {
		t.Fatalf("listNames = %v, want 2 entries", names)
	}
}
