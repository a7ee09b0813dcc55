// Package wal is an append-only log of (key, value) records. Each record is
// framed as uvarint(len(key)) uvarint(len(value)) key value.
package wal

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

type Writer struct {
	mu        sync.Mutex
	file      string
	dest      *os.File
	sync      bool
	assistBuf [2 * binary.MaxVarintLen64]byte
}

// NewWriter opens file for appending, creating it and its directory when
// missing. With sync set every Write is fsynced before it returns.
func NewWriter(file string, sync bool) (*Writer, error) {
	dir := filepath.Dir(file)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dest, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	return &Writer{
		file: file,
		dest: dest,
		sync: sync,
	}, nil
}

// Write appends one record with a single write call.
func (w *Writer) Write(key, value []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dest == nil {
		return fmt.Errorf("wal %s: %w", w.file, os.ErrClosed)
	}

	n := binary.PutUvarint(w.assistBuf[0:], uint64(len(key)))
	n += binary.PutUvarint(w.assistBuf[n:], uint64(len(value)))

	buf := make([]byte, 0, n+len(key)+len(value))
	buf = append(buf, w.assistBuf[:n]...)
	buf = append(buf, key...)
	buf = append(buf, value...)
	if _, err := w.dest.Write(buf); err != nil {
		return err
	}
	if w.sync {
		return w.dest.Sync()
	}
	return nil
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dest == nil {
		return nil
	}
	err := w.dest.Close()
	w.dest = nil
	return err
}
