// Package ecc corrects sequencing reads against a k-mer consensus
// tabulated from a full-text index of the read collection.
//
// The pipeline has two halves. Collect walks an index oracle and emits,
// for every k-mer seen at least MinOcc times, a packed cell holding
// two-sided base predictions with phred-scaled confidences; NewStore
// turns the cells into a sharded read-only hash. CorrectRead then runs
// a bounded best-first search over each read, scoring substitutions and
// gaps against the store, and Run batches that over a FASTQ/FASTA
// stream.
package ecc
