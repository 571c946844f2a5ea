package volfs

import "testing"

func TestHeaderRoundTrip(t *testing.T) {
	h := header{Magic: Magic, TotalBytes: 1 << 20, BlockSize: 4096, MaxFiles: 64, MaxBlocks: 128}
	buf := h.marshal()
	if len(buf) != headerBytes {
		t.Fatalf("len(buf) = %d, want %d", len(buf), headerBytes)
	}
	var got header
	got.unmarshal(buf)
	if got != h {
		t.Fatalf("got %+v, want %+v", got, h)
	}
}

func TestEntryRoundTrip(t *testing.T) {
	cases := []entry{
		{Name: "", Size: 0, FirstBlock: nodeFree},
		{Name: "a", Size: 1, FirstBlock: 0},
		{Name: "exactly11ch", Size: 65535, FirstBlock: 127},
	}
	for _, e := range cases {
		buf := e.marshal()
		if len(buf) != entryBytes {
			t.Fatalf("len(buf) = %d, want %d", len(buf), entryBytes)
		}
		var got entry
		got.unmarshal(buf)
		if got != e {
			t.Fatalf("got %+v, want %+v", got, e)
		}
	}
}

func TestEntryLive(t *testing.T) {
	free := entry{Name: "", Size: 0, FirstBlock: nodeFree}
	if free.live() {
		t.Fatal("empty-named entry reports live")
	}
	used := entry{Name: "x"}
	if !used.live() {
		t.Fatal("named entry reports not live")
	}
}

func TestNodeRoundTrip(t *testing.T) {
	cases := []node{
		{BlockIndex: 0, Next: nodeFree},
		{BlockIndex: 5, Next: nodeEnd},
		{BlockIndex: 65535, Next: 1234},
	}
	for _, n := range cases {
		buf := n.marshal()
		if len(buf) != nodeBytes {
			t.Fatalf("len(buf) = %d, want %d", len(buf), nodeBytes)
		}
		var got node
		got.unmarshal(buf)
		if got != n {
			t.Fatalf("got %+v, want %+v", got, n)
		}
	}
}

func TestLayoutOffsets(t *testing.T) {
	l := newLayout(4, 2, 4)
	if l.entryOffset(0) != headerBytes {
		t.Fatalf("entryOffset(0) = %d, want %d", l.entryOffset(0), headerBytes)
	}
	if l.entryOffset(1) != headerBytes+entryBytes {
		t.Fatalf("entryOffset(1) = %d, want %d", l.entryOffset(1), headerBytes+entryBytes)
	}
	wantNodesOff := int64(headerBytes + entryBytes*2)
	if l.nodeOffset(0) != wantNodesOff {
		t.Fatalf("nodeOffset(0) = %d, want %d", l.nodeOffset(0), wantNodesOff)
	}
	wantDataOff := wantNodesOff + nodeBytes*4
	if l.blockOffset(0) != wantDataOff {
		t.Fatalf("blockOffset(0) = %d, want %d", l.blockOffset(0), wantDataOff)
	}
	if l.blockOffset(1) != wantDataOff+4 {
		t.Fatalf("blockOffset(1) = %d, want %d", l.blockOffset(1), wantDataOff+4)
	}
	if got, want := l.requiredBytes(), uint64(wantDataOff+4*4); got != want {
		t.Fatalf("requiredBytes() = %d, want %d", got, want)
	}
}
