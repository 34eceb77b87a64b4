package ecc

import (
	"time"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
)

// Table is the collected consensus: one cell list per suffix shard, in
// the deterministic order the shard's traversal emits them. A Table is
// what gets serialized; a Store is built from it for lookups.
type Table [][]Cell

// dfsFrame is one pending node of the iterative index traversal. code is
// the 2-bit value of the base this node added at depth-1.
type dfsFrame struct {
	iv    Interval
	depth int
	code  uint8
}

// traverseSuffixes enumerates all length-sufLen suffixes by backward
// extension. The returned slice has 4^sufLen entries indexed by the
// suffix's 2-bit encoding; suffixes absent from the index are nil.
func traverseSuffixes(ix Oracle, sufLen int) []Interval {
	seeds := make([]Interval, 1<<uint(2*sufLen))
	stack := []dfsFrame{{iv: ix.Root()}}
	var x uint64
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.depth > 0 {
			shift := uint(top.depth-1) << 1
			x = x&^(3<<shift) | uint64(top.code)<<shift
		}
		if top.depth == sufLen {
			seeds[x] = top.iv
			continue
		}
		t := ix.Extend(top.iv, Back)
		for c := 1; c <= 4; c++ {
			if t[c].Count() == 0 {
				continue
			}
			stack = append(stack, dfsFrame{iv: t[c], depth: top.depth + 1, code: uint8(c - 1)})
		}
	}
	return seeds
}

// intvToTip condenses the four base-extension counts of t into a packed
// tip: the two most frequent bases and the phred-scaled confidence that
// the counts against each are noise. Counts are rescaled into [0,255]
// before the table lookup.
func intvToTip(qtab *[2][]uint8, t *[6]Interval) Tip {
	var (
		max, max2   int64
		maxC, maxC2 = 1, 1
		sum         int64
	)
	for c := 1; c <= 4; c++ {
		n := t[c].Count()
		if n > max {
			max2, maxC2 = max, maxC
			max, maxC = n, c
		} else if n > max2 {
			max2, maxC2 = n, c
		}
		sum += n
	}
	rest, rest2 := sum-max, sum-max-max2
	if sum > 255 {
		rest = int64(255*float64(rest)/float64(sum) + .499)
		rest2 = int64(255*float64(rest2)/float64(sum) + .499)
		sum = 255
	}
	q1 := int(qtab[0][sum<<8|rest])
	if rest > 0 {
		if q1 > QMax {
			q1 = QMax
		}
		q1 >>= 1
	} else {
		q1 = Q0
	}
	q2 := int(qtab[1][sum<<8|rest2])
	if rest2 > 0 {
		if q2 > QMax {
			q2 = QMax
		}
		q2 >>= 1
	} else {
		q2 = Q0
	}
	return makeTip(uint8(4-maxC), uint8(4-maxC2), q1, q2)
}

// collectShard walks one suffix shard down to the full k-mer depth and
// emits a packed cell per k-mer whose interval holds at least minOcc
// occurrences. At the depth that writes the k-mer's middle base only A
// and C are expanded, so every canonical k-mer is reached through
// exactly one path.
func collectShard(ix Oracle, qtab *[2][]uint8, sufLen, depth, minOcc int, seed Interval) []Cell {
	if seed == nil || seed.Count() == 0 {
		return nil
	}
	var (
		cells []Cell
		x     uint64
	)
	mid := (sufLen + depth) / 2
	stack := []dfsFrame{{iv: seed}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.depth > 0 {
			shift := uint(top.depth-1) << 1
			x = x&^(3<<shift) | uint64(top.code)<<shift
		}
		if top.depth == depth {
			t := ix.Extend(top.iv, Back)
			left := intvToTip(qtab, &t)
			t = ix.Extend(top.iv, Fwd)
			right := intvToTip(qtab, &t)
			cells = append(cells, makeCell(x, left, right))
			continue
		}
		end := 4
		if sufLen+top.depth == mid {
			end = 2
		}
		t := ix.Extend(top.iv, Back)
		for c := 1; c <= end; c++ {
			if t[c].Count() < int64(minOcc) {
				continue
			}
			stack = append(stack, dfsFrame{iv: t[c], depth: top.depth + 1, code: uint8(c - 1)})
		}
	}
	return cells
}

// Collect tabulates the consensus for every k-mer occurring at least
// opts.MinOcc times in the index. Shards are collected in parallel
// across opts.NThreads workers; each worker writes only its own shards.
func Collect(opts *Opts, ix Oracle) Table {
	depth := opts.K - opts.SufLen
	if depth <= 0 || depth > 18 {
		log.Panicf("k=%d suf_len=%d: shard prefix must be 1..18 bases", opts.K, opts.SufLen)
	}
	start := time.Now()
	qtab := newQtabs(opts)
	seeds := traverseSuffixes(ix, opts.SufLen)
	table := make(Table, len(seeds))
	parallelism := opts.NThreads
	if parallelism < 1 {
		parallelism = 1
	}
	// Workers cannot fail; Each is used purely for the fan-out.
	_ = traverse.Each(parallelism, func(job int) error {
		for i := job; i < len(seeds); i += parallelism {
			table[i] = collectShard(ix, &qtab, opts.SufLen, depth, opts.MinOcc, seeds[i])
		}
		return nil
	})
	log.Printf("collected high-occurrence k-mers in %.3f sec", time.Since(start).Seconds())
	logKmerStat(table)
	return table
}

// logKmerStat summarizes tip confidence over both sides of every cell.
func logKmerStat(table Table) {
	var tot, nQ1, nQ10, nQMax int64
	for _, shard := range table {
		for _, cell := range shard {
			tot += 2
			for _, right := range []bool{false, true} {
				q := cell.tip(right).q1()
				if q < 1 {
					nQ1++
				}
				if q < 10 {
					nQ10++
				}
				if q < Q0<<1 {
					nQMax++
				}
			}
		}
	}
	if tot == 0 {
		log.Printf("0 k-mers collected")
		return
	}
	log.Printf("%d k-mers; %.2f%% <Q1; %.2f%% <Q10; %.2f%% <Qmax",
		tot/2, 100*float64(nQ1)/float64(tot), 100*float64(nQ10)/float64(tot), 100*float64(nQMax)/float64(tot))
}
