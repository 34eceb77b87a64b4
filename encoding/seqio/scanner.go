// Package seqio reads FASTA and FASTQ records and writes FASTQ. The
// format is sniffed from the record marker, so a single Scanner handles
// either; compression is the caller's concern (see
// grailbio/base/compress.NewReaderPath).
package seqio

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

var (
	// ErrShort is returned when a truncated record is encountered.
	ErrShort = errors.New("short sequence file")
	// ErrInvalid is returned when a malformed record is encountered.
	ErrInvalid = errors.New("invalid sequence record")
)

var errEOF = errors.New("eof")

// A Record is one FASTA or FASTQ record. Name is the ID up to the first
// whitespace, without the marker character. Qual is nil for FASTA
// input. Seq and Qual are freshly allocated on every Scan.
type Record struct {
	Name string
	Seq  []byte
	Qual []byte
}

// Scanner reads FASTA or FASTQ records. The Scan method fills the next
// record, returning whether the read succeeded; after it returns false,
// check Err. Scanners are not threadsafe.
type Scanner struct {
	r   *bufio.Reader
	err error
}

// NewScanner constructs a Scanner reading raw FASTA or FASTQ data from r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReaderSize(r, 1<<16)}
}

// readLine returns the next line without its terminator. io.EOF with a
// non-empty final line is treated as a complete line.
func (s *Scanner) readLine() ([]byte, error) {
	line, err := s.r.ReadBytes('\n')
	if err != nil {
		if err != io.EOF || len(line) == 0 {
			return nil, err
		}
	}
	line = bytes.TrimRight(line, "\r\n")
	return line, nil
}

func name(header []byte) string {
	if i := bytes.IndexAny(header, " \t"); i >= 0 {
		header = header[:i]
	}
	return string(header)
}

// Scan reads the next record into rec.
func (s *Scanner) Scan(rec *Record) bool {
	if s.err != nil {
		return false
	}
	var line []byte
	for {
		l, err := s.readLine()
		if err != nil {
			if err == io.EOF {
				err = errEOF
			}
			s.err = err
			return false
		}
		if len(l) > 0 {
			line = l
			break
		}
	}
	switch line[0] {
	case '@':
		return s.scanFASTQ(line, rec)
	case '>':
		return s.scanFASTA(line, rec)
	}
	s.err = ErrInvalid
	return false
}

func (s *Scanner) scanFASTQ(header []byte, rec *Record) bool {
	rec.Name = name(header[1:])
	seq, err := s.readLine()
	if err != nil {
		s.err = ErrShort
		return false
	}
	rec.Seq = append([]byte(nil), seq...)
	plus, err := s.readLine()
	if err != nil || len(plus) == 0 || plus[0] != '+' {
		if err != nil {
			s.err = ErrShort
		} else {
			s.err = ErrInvalid
		}
		return false
	}
	qual, err := s.readLine()
	if err != nil {
		s.err = ErrShort
		return false
	}
	if len(qual) != len(rec.Seq) {
		s.err = ErrInvalid
		return false
	}
	rec.Qual = append([]byte(nil), qual...)
	return true
}

func (s *Scanner) scanFASTA(header []byte, rec *Record) bool {
	rec.Name = name(header[1:])
	rec.Seq = nil
	rec.Qual = nil
	for {
		next, err := s.r.Peek(1)
		if err == io.EOF || (err == nil && (next[0] == '>' || next[0] == '@')) {
			break
		}
		if err != nil {
			s.err = err
			return false
		}
		line, err := s.readLine()
		if err != nil {
			s.err = err
			return false
		}
		rec.Seq = append(rec.Seq, line...)
	}
	if len(rec.Seq) == 0 {
		s.err = ErrShort
		return false
	}
	return true
}

// Err returns the scanning error, if any, once Scan has returned false.
func (s *Scanner) Err() error {
	if s.err == errEOF {
		return nil
	}
	return s.err
}
