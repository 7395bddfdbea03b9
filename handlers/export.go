// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"encoding/csv"
	"io"
	"log/slog"
	"net/http"

	"github.com/dustin/go-humanize"
)

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// csvStream writes CSV rows straight to the response. Once the header is
// out the status is committed, so later failures can only be logged.
type csvStream struct {
	filename string
	counter  *countingWriter
	writer   *csv.Writer
	rows     int
}

func newCSVStream(w http.ResponseWriter, filename string, header []string) (*csvStream, error) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)

	counter := &countingWriter{w: w}
	s := &csvStream{
		filename: filename,
		counter:  counter,
		writer:   csv.NewWriter(counter),
	}
	if err := s.writer.Write(header); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *csvStream) Write(record []string) error {
	s.rows++
	return s.writer.Write(record)
}

func (s *csvStream) Close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		slog.Error("csv export failed", "file", s.filename, "error", err)
		return err
	}

	slog.Info("csv exported",
		"file", s.filename,
		"rows", humanize.Comma(int64(s.rows)),
		"size", humanize.Bytes(uint64(s.counter.n)),
	)
	return nil
}
