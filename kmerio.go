package ecc

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
)

// A serialized k-mer table is a 76-byte little-endian option record
// followed by, for each of the 4^sufLen shards, a uint64 cell count and
// that many packed 64-bit cells. The format is bit-for-bit reproducible
// given the same index and options.
type optsRecord struct {
	K              int32
	SufLen         int32
	MinOcc         int32
	NThreads       int32
	DefQ           int32
	GapPenalty     int32
	MaxHeapSize    int32
	MaxPenalty     int32
	MaxPenaltyDiff int32
	BatchSize      int64
	A1             float64
	A2             float64
	Err            float64
	Prior          float64
}

func (r *optsRecord) fromOpts(o *Opts) {
	*r = optsRecord{
		K:              int32(o.K),
		SufLen:         int32(o.SufLen),
		MinOcc:         int32(o.MinOcc),
		NThreads:       int32(o.NThreads),
		DefQ:           int32(o.DefQ),
		GapPenalty:     int32(o.GapPenalty),
		MaxHeapSize:    int32(o.MaxHeapSize),
		MaxPenalty:     int32(o.MaxPenalty),
		MaxPenaltyDiff: int32(o.MaxPenaltyDiff),
		BatchSize:      o.BatchSize,
		A1:             o.A1,
		A2:             o.A2,
		Err:            o.Err,
		Prior:          o.Prior,
	}
}

func (r *optsRecord) toOpts(o *Opts) {
	o.K = int(r.K)
	o.SufLen = int(r.SufLen)
	o.MinOcc = int(r.MinOcc)
	o.NThreads = int(r.NThreads)
	o.DefQ = int(r.DefQ)
	o.GapPenalty = int(r.GapPenalty)
	o.MaxHeapSize = int(r.MaxHeapSize)
	o.MaxPenalty = int(r.MaxPenalty)
	o.MaxPenaltyDiff = int(r.MaxPenaltyDiff)
	o.BatchSize = r.BatchSize
	o.A1 = r.A1
	o.A2 = r.A2
	o.Err = r.Err
	o.Prior = r.Prior
}

func (r *optsRecord) validate() error {
	k, sufLen := int(r.K), int(r.SufLen)
	if k < 3 || k&1 == 0 {
		return fmt.Errorf("k-mer table header: k=%d must be odd and >= 3", k)
	}
	if sufLen != SufLenForK(k) {
		return fmt.Errorf("k-mer table header: suf_len=%d does not match k=%d (want %d)", sufLen, k, SufLenForK(k))
	}
	return nil
}

// WriteTable serializes opts and the collected table to w.
func WriteTable(w io.Writer, opts *Opts, table Table) error {
	var rec optsRecord
	rec.fromOpts(opts)
	if err := rec.validate(); err != nil {
		return err
	}
	if len(table) != 1<<uint(2*opts.SufLen) {
		return fmt.Errorf("k-mer table has %d shards, suf_len=%d wants %d", len(table), opts.SufLen, 1<<uint(2*opts.SufLen))
	}
	if err := binary.Write(w, binary.LittleEndian, &rec); err != nil {
		return errors.E(err, "writing k-mer table header")
	}
	for _, shard := range table {
		if err := binary.Write(w, binary.LittleEndian, uint64(len(shard))); err != nil {
			return errors.E(err, "writing k-mer table")
		}
		if len(shard) == 0 {
			continue
		}
		if err := binary.Write(w, binary.LittleEndian, shard); err != nil {
			return errors.E(err, "writing k-mer table")
		}
	}
	return nil
}

// ReadTable deserializes a table written by WriteTable, returning the
// options it was built with. Headers whose k and sufLen are mutually
// inconsistent are rejected.
func ReadTable(r io.Reader) (Opts, Table, error) {
	var rec optsRecord
	opts := DefaultOpts
	if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
		return opts, nil, errors.E(err, "reading k-mer table header")
	}
	if err := rec.validate(); err != nil {
		return opts, nil, err
	}
	rec.toOpts(&opts)
	table := make(Table, 1<<uint(2*opts.SufLen))
	for i := range table {
		var n uint64
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return opts, nil, errors.E(err, fmt.Sprintf("reading k-mer table shard %d", i))
		}
		if n == 0 {
			continue
		}
		shard := make([]Cell, n)
		if err := binary.Read(r, binary.LittleEndian, shard); err != nil {
			return opts, nil, errors.E(err, fmt.Sprintf("reading k-mer table shard %d", i))
		}
		table[i] = shard
	}
	return opts, table, nil
}
