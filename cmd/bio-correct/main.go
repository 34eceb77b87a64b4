package main

// bio-correct rewrites sequencing reads so they agree with a
// high-confidence k-mer consensus tabulated from the read collection
// itself.
//
// With one positional argument, the consensus table is built from the
// index and written to stdout:
//
//    bio-correct -k 17 -o 3 reads.fa.gz > reads.kmers
//
// With two, reads are corrected and written to stdout as FASTQ:
//
//    bio-correct -h reads.kmers reads.fa.gz in.fq.gz > corrected.fq
//
// The first positional argument is the read collection the consensus is
// tabulated from; it is not reopened when -h supplies a precomputed
// table.

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/ecc"
	"github.com/grailbio/ecc/encoding/seqio"
	"github.com/grailbio/ecc/seqindex"
	"github.com/klauspost/compress/gzip"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: bio-correct [flags] <index.fa[.gz]> [<reads.fq[.gz]>]

With only <index>, write the k-mer consensus table to stdout. With
<reads> as well, correct the reads and write FASTQ to stdout.

Flags:
`)
	flag.PrintDefaults()
	os.Exit(1)
}

// openPath opens a possibly gzip-compressed input. "-" means stdin.
func openPath(ctx context.Context, path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	var r io.Reader = f.Reader(ctx)
	if u := compress.NewReaderPath(r, f.Name()); u != nil {
		r = u
	}
	cleanup := func() {
		if err := f.Close(ctx); err != nil {
			log.Panicf("close %v: %v", path, err)
		}
	}
	return r, cleanup, nil
}

// readAllSeqs loads the sequences the consensus is tabulated from.
func readAllSeqs(ctx context.Context, path string) [][]byte {
	in, cleanup, err := openPath(ctx, path)
	if err != nil {
		log.Fatalf("open %v: %v", path, err)
	}
	defer cleanup()
	sc := seqio.NewScanner(in)
	var (
		seqs [][]byte
		rec  seqio.Record
	)
	for sc.Scan(&rec) {
		seqs = append(seqs, rec.Seq)
	}
	if err := sc.Err(); err != nil {
		log.Fatalf("read %v: %v", path, err)
	}
	return seqs
}

func main() {
	opts := ecc.DefaultOpts
	kmerPath := ""
	flag.Usage = usage
	flag.IntVar(&opts.K, "k", ecc.DefaultOpts.K, "k-mer length; even values are incremented")
	flag.IntVar(&opts.MinOcc, "o", ecc.DefaultOpts.MinOcc, "min k-mer occurrence in the index")
	flag.IntVar(&opts.NThreads, "t", ecc.DefaultOpts.NThreads, "number of worker threads")
	flag.StringVar(&kmerPath, "h", "", "precomputed k-mer table ('-' for stdin)")
	flag.IntVar(&opts.GapPenalty, "g", ecc.DefaultOpts.GapPenalty, "gap (indel) penalty; 0 disables gaps")
	flag.IntVar(&opts.Verbose, "v", ecc.DefaultOpts.Verbose, "verbosity level")
	flag.Float64Var(&opts.Prior, "p", ecc.DefaultOpts.Prior, "prior weight of the sequencing-error component")
	flag.Float64Var(&opts.Err, "e", ecc.DefaultOpts.Err, "per-base sequencing error rate")
	outPath := ""
	flag.StringVar(&outPath, "O", "", "corrected-read output path, gzipped when it ends in .gz (default stdout)")

	cleanup := grail.Init()
	defer cleanup()
	ctx := vcontext.Background()

	if flag.NArg() < 1 || flag.NArg() > 2 {
		usage()
	}
	if opts.K&1 == 0 {
		opts.K++
		log.Error.Printf("-k must be an odd number; changing -k to %d", opts.K)
	}
	opts.SufLen = ecc.SufLenForK(opts.K)
	kExplicit := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "k" {
			kExplicit = true
		}
	})

	var table ecc.Table
	if kmerPath != "" {
		in, fileCleanup, err := openPath(ctx, kmerPath)
		if err != nil {
			log.Fatalf("open %v: %v", kmerPath, err)
		}
		fileOpts, t, err := ecc.ReadTable(bufio.NewReaderSize(in, 1<<16))
		if err != nil {
			log.Fatalf("read %v: %v", kmerPath, err)
		}
		fileCleanup()
		if kExplicit && fileOpts.K != opts.K {
			log.Fatalf("%v: table was built with -k %d, not %d", kmerPath, fileOpts.K, opts.K)
		}
		// Model and search parameters come from the table; process-local
		// settings stay as given on the command line.
		fileOpts.NThreads = opts.NThreads
		fileOpts.Verbose = opts.Verbose
		opts = fileOpts
		table = t
	} else {
		indexPath := flag.Arg(0)
		start := time.Now()
		seqs := readAllSeqs(ctx, indexPath)
		ix := seqindex.New(seqs)
		log.Printf("indexed %d sequences from %s in %.3f sec", len(seqs), indexPath, time.Since(start).Seconds())
		table = ecc.Collect(&opts, ix)
	}

	if flag.NArg() < 2 {
		w := bufio.NewWriterSize(os.Stdout, 1<<20)
		if err := ecc.WriteTable(w, &opts, table); err != nil {
			log.Fatalf("write k-mer table: %v", err)
		}
		if err := w.Flush(); err != nil {
			log.Fatalf("write k-mer table: %v", err)
		}
		return
	}

	st := ecc.NewStore(&opts, table)
	readsPath := flag.Arg(1)
	in, readsCleanup, err := openPath(ctx, readsPath)
	if err != nil {
		log.Fatalf("open %v: %v", readsPath, err)
	}
	defer readsCleanup()
	out, outCleanup := createOutput(ctx, outPath)
	if err := ecc.Run(&opts, st, in, out); err != nil {
		log.Fatalf("correct %v: %v", readsPath, err)
	}
	outCleanup()
}

// createOutput opens the corrected-read sink: stdout by default, a file
// when -O is given, gzip-compressed for a .gz suffix.
func createOutput(ctx context.Context, path string) (io.Writer, func()) {
	if path == "" {
		return os.Stdout, func() {}
	}
	f, err := file.Create(ctx, path)
	if err != nil {
		log.Fatalf("create %v: %v", path, err)
	}
	var w io.Writer = f.Writer(ctx)
	var gz *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gz = gzip.NewWriter(w)
		w = gz
	}
	return w, func() {
		if gz != nil {
			if err := gz.Close(); err != nil {
				log.Fatalf("close %v: %v", path, err)
			}
		}
		if err := f.Close(ctx); err != nil {
			log.Fatalf("close %v: %v", path, err)
		}
	}
}
