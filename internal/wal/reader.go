package wal

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrTruncated reports a record cut short, usually by a crash mid-write.
var ErrTruncated = errors.New("truncated wal record")

// maxRecordLen bounds a single key or value so a corrupt length prefix
// cannot trigger a huge allocation.
const maxRecordLen = 1 << 30

type Reader struct {
	file   string
	src    *os.File
	reader *bufio.Reader
	offset int64
}

func NewReader(file string) (*Reader, error) {
	src, err := os.Open(file)
	if err != nil {
		return nil, err
	}

	return &Reader{
		file:   file,
		src:    src,
		reader: bufio.NewReader(src),
	}, nil
}

// ReadByte counts consumed bytes for binary.ReadUvarint.
func (r *Reader) ReadByte() (byte, error) {
	b, err := r.reader.ReadByte()
	if err == nil {
		r.offset++
	}
	return b, err
}

// Next returns the next record. It returns io.EOF at a clean end of log and
// ErrTruncated when the log ends inside a record.
func (r *Reader) Next() (key, value []byte, err error) {
	start := r.offset

	keyLen, err := binary.ReadUvarint(r)
	if errors.Is(err, io.EOF) && r.offset == start {
		return nil, nil, io.EOF
	}
	if err != nil {
		return nil, nil, r.truncated(start, err)
	}
	valLen, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, nil, r.truncated(start, err)
	}
	if keyLen > maxRecordLen || valLen > maxRecordLen {
		return nil, nil, fmt.Errorf("wal %s: record at offset %d too large", r.file, start)
	}

	buf := make([]byte, keyLen+valLen)
	n, err := io.ReadFull(r.reader, buf)
	r.offset += int64(n)
	if err != nil {
		return nil, nil, r.truncated(start, err)
	}
	return buf[:keyLen], buf[keyLen:], nil
}

func (r *Reader) truncated(start int64, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		r.offset = start
		return ErrTruncated
	}
	return err
}

// Offset is the end of the last complete record returned by Next.
func (r *Reader) Offset() int64 {
	return r.offset
}

func (r *Reader) Close() error {
	return r.src.Close()
}

// Replay calls fn for every record in file in write order. A missing file
// replays nothing. A truncated tail is cut off so that later appends start
// on a record boundary. Replay returns the number of records applied.
func Replay(file string, fn func(key, value []byte) error) (int, error) {
	r, err := NewReader(file)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer r.Close()

	count := 0
	for {
		key, value, err := r.Next()
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if errors.Is(err, ErrTruncated) {
			if terr := os.Truncate(file, r.Offset()); terr != nil {
				return count, fmt.Errorf("wal %s: cut truncated tail: %w", file, terr)
			}
			return count, nil
		}
		if err != nil {
			return count, err
		}
		if err := fn(key, value); err != nil {
			return count, fmt.Errorf("wal %s: record %d: %w", file, count, err)
		}
		count++
	}
}
