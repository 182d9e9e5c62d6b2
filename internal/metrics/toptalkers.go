package metrics

import (
	"net/netip"
	"sort"
)

type talkerKey struct {
	src, dst netip.Addr
}

// TopTalker is one row of the cumulative top-talkers snapshot.
type TopTalker struct {
	Src     netip.Addr
	Dst     netip.Addr
	Packets uint64
	Bytes   uint64
}

// topTalkers is the cumulative `(src, dst) → {packets, bytes}` table,
// spec.md §3, populated only for packets whose src is an own address.
type topTalkers struct {
	table map[talkerKey]*TopTalker
}

func newTopTalkers() *topTalkers {
	return &topTalkers{table: make(map[talkerKey]*TopTalker)}
}

func (t *topTalkers) add(src, dst netip.Addr, bytes uint64) {
	if !src.IsValid() || !dst.IsValid() {
		return
	}
	k := talkerKey{src, dst}
	row, ok := t.table[k]
	if !ok {
		row = &TopTalker{Src: src, Dst: dst}
		t.table[k] = row
	}
	row.Packets++
	row.Bytes += bytes
}

// top7 returns the snapshot sorted by byte_count descending, spec.md §3.
func (t *topTalkers) top7() []TopTalker {
	rows := make([]TopTalker, 0, len(t.table))
	for _, row := range t.table {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Bytes > rows[j].Bytes })
	if len(rows) > 7 {
		rows = rows[:7]
	}
	return rows
}
