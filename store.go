package ecc

import (
	"time"

	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/base/log"
)

// Store is the immutable consensus lookup structure: one open-addressing
// hash set of packed cells per suffix shard. It is built once from a
// Table and is safe for concurrent lookups.
type Store struct {
	k      int
	sufLen int
	shards []storeShard
}

// One shard: a linear-probing hash table of cells keyed on their top 36
// bits, with a separate occupancy bitmap so that every 64-bit cell value
// remains representable.
type storeShard struct {
	mask  uint64
	cells []Cell
	used  []uint64
	n     int
}

func hashKey(key uint64) uint64 {
	return farm.Hash64WithSeed(nil, key)
}

func newStoreShard(cells []Cell) storeShard {
	want := int(float64(len(cells))/0.7) + 1
	size := 1
	for size < want {
		size <<= 1
	}
	s := storeShard{
		mask:  uint64(size - 1),
		cells: make([]Cell, size),
		used:  make([]uint64, (size+63)/64),
	}
	for _, c := range cells {
		s.insert(c)
	}
	if s.n != len(cells) {
		log.Panicf("consensus shard: %d cells, %d distinct keys", len(cells), s.n)
	}
	return s
}

func (s *storeShard) insert(c Cell) {
	i := hashKey(c.key()) & s.mask
	for s.used[i>>6]&(1<<(i&63)) != 0 {
		if s.cells[i].key() == c.key() {
			return
		}
		i = (i + 1) & s.mask
	}
	s.used[i>>6] |= 1 << (i & 63)
	s.cells[i] = c
	s.n++
}

func (s *storeShard) get(key uint64) (Cell, bool) {
	i := hashKey(key) & s.mask
	for s.used[i>>6]&(1<<(i&63)) != 0 {
		if s.cells[i].key() == key {
			return s.cells[i], true
		}
		i = (i + 1) & s.mask
	}
	return 0, false
}

// NewStore converts a collected (or deserialized) Table into its lookup
// form. The cell lists are consumed; the Table must not be reused.
func NewStore(opts *Opts, table Table) *Store {
	if len(table) != 1<<uint(2*opts.SufLen) {
		log.Panicf("table has %d shards, suf_len %d wants %d", len(table), opts.SufLen, 1<<uint(2*opts.SufLen))
	}
	start := time.Now()
	st := &Store{k: opts.K, sufLen: opts.SufLen, shards: make([]storeShard, len(table))}
	for i, cells := range table {
		st.shards[i] = newStoreShard(cells)
		table[i] = nil
	}
	log.Printf("constructed the consensus hash in %.3f sec", time.Since(start).Seconds())
	return st
}

// cache memoizes one read's store lookups, keyed on the canonical-side
// k-mer word. It is cleared between reads, not reallocated.
type cache map[uint64]cacheEnt

type cacheEnt struct {
	cell Cell
	ok   bool
}

// lookup returns the consensus prediction for the base following km in
// read-forward orientation, or ok=false if the k-mer is not in the
// store. The canonical orientation is decided by the middle base; the
// tip on the opposite side of the canonical cell is the one facing
// read-forward.
func (st *Store) lookup(km *kmerPair, c cache) (Tip, bool) {
	which := km.canonical(st.k)
	w := km[which]
	ent, hit := c[w]
	if !hit {
		shard := w & (1<<uint(2*st.sufLen) - 1)
		key := w >> uint(2*st.sufLen)
		ent.cell, ent.ok = st.shards[shard].get(key)
		c[w] = ent
	}
	if !ent.ok {
		return 0, false
	}
	return ent.cell.tip(which == 0), true
}
