package ecc

import (
	"io"
	"sync"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/ecc/encoding/seqio"
)

// A batch is a run of input reads bounded by Opts.BatchSize total
// sequence bytes. seqs and quals are rewritten in place by correction.
type batch struct {
	names []string
	seqs  [][]byte
	quals [][]byte
}

// readBatch pulls records from sc until the batch is full or input ends.
// It returns nil when no records remain.
func readBatch(sc *seqio.Scanner, batchSize int64) (*batch, error) {
	var (
		b   batch
		n   int64
		rec seqio.Record
	)
	for n < batchSize && sc.Scan(&rec) {
		b.names = append(b.names, rec.Name)
		b.seqs = append(b.seqs, rec.Seq)
		b.quals = append(b.quals, rec.Qual)
		n += int64(len(rec.Seq))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(b.seqs) == 0 {
		return nil, nil
	}
	return &b, nil
}

// correctBatch rewrites every read of b in place, one task per read
// dispatched across the workers' auxes. No task mutates shared state;
// output order is untouched.
func correctBatch(opts *Opts, st *Store, b *batch, auxes []*Aux) {
	correct1 := func(i int, a *Aux) {
		if opts.Verbose >= 5 {
			log.Debug.Printf("correcting %s", b.names[i])
		}
		b.seqs[i], b.quals[i] = CorrectRead(opts, st, b.names[i], b.seqs[i], b.quals[i], a)
	}
	if len(auxes) == 1 {
		for i := range b.seqs {
			correct1(i, auxes[0])
		}
		return
	}
	ch := make(chan int, len(auxes))
	var wg sync.WaitGroup
	for _, a := range auxes {
		wg.Add(1)
		go func(a *Aux) {
			defer wg.Done()
			for i := range ch {
				correct1(i, a)
			}
		}(a)
	}
	for i := range b.seqs {
		ch <- i
	}
	close(ch)
	wg.Wait()
}

// Run corrects every read from in against the store and writes FASTQ
// records to out in input order. Reads are processed in batches of at
// most opts.BatchSize sequence bytes; a batch is written only after all
// of its corrections complete.
func Run(opts *Opts, st *Store, in io.Reader, out io.Writer) error {
	sc := seqio.NewScanner(in)
	w := seqio.NewWriter(out)
	nWorkers := opts.NThreads
	if nWorkers < 1 {
		nWorkers = 1
	}
	auxes := make([]*Aux, nWorkers)
	for i := range auxes {
		auxes[i] = NewAux()
	}
	start := time.Now()
	nReads := 0
	for {
		b, err := readBatch(sc, opts.BatchSize)
		if err != nil {
			return errors.E(err, "reading sequence batch")
		}
		if b == nil {
			break
		}
		correctBatch(opts, st, b, auxes)
		for i := range b.seqs {
			if err := w.Write(b.names[i], b.seqs[i], b.quals[i]); err != nil {
				return errors.E(err, "writing corrected read")
			}
		}
		nReads += len(b.seqs)
	}
	if err := w.Flush(); err != nil {
		return errors.E(err, "flushing corrected reads")
	}
	log.Printf("corrected %d reads in %.3f sec", nReads, time.Since(start).Seconds())
	return nil
}
