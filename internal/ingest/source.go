package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Row is one input record keyed by normalized header name.
type Row map[string]string

// RowSource yields rows lazily. Next returns io.EOF after the last row.
type RowSource interface {
	Next() (Row, error)
	Close() error
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Open picks a reader by file extension: .xlsx is read with excelize,
// anything else as CSV with a header row.
func Open(filename string, r io.Reader) (RowSource, error) {
	if strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		return NewXLSXSource(r)
	}
	return NewCSVSource(r)
}

type csvSource struct {
	reader *csv.Reader
	header []string
}

func NewCSVSource(r io.Reader) (RowSource, error) {
	br := bufio.NewReader(r)
	if prefix, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(prefix, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return &csvSource{reader: reader}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	return &csvSource{reader: reader, header: normalizeHeader(header)}, nil
}

func (s *csvSource) Next() (Row, error) {
	if s.header == nil {
		return nil, io.EOF
	}
	for {
		record, err := s.reader.Read()
		if err != nil {
			return nil, err
		}
		if isBlankRecord(record) {
			continue
		}
		return zipRow(s.header, record), nil
	}
}

func (s *csvSource) Close() error { return nil }

type xlsxSource struct {
	file   *excelize.File
	rows   *excelize.Rows
	header []string
}

// NewXLSXSource streams the first sheet; its first row is the header.
func NewXLSXSource(r io.Reader) (RowSource, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}

	sheet := f.GetSheetName(0)
	if sheet == "" {
		f.Close()
		return nil, fmt.Errorf("no sheets found in xlsx file")
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}

	src := &xlsxSource{file: f, rows: rows}
	if rows.Next() {
		header, err := rows.Columns()
		if err != nil {
			src.Close()
			return nil, fmt.Errorf("read xlsx header: %w", err)
		}
		src.header = normalizeHeader(header)
	}
	return src, nil
}

func (s *xlsxSource) Next() (Row, error) {
	if s.header == nil {
		return nil, io.EOF
	}
	for s.rows.Next() {
		record, err := s.rows.Columns()
		if err != nil {
			return nil, err
		}
		if isBlankRecord(record) {
			continue
		}
		return zipRow(s.header, record), nil
	}
	if err := s.rows.Error(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (s *xlsxSource) Close() error {
	if s.rows != nil {
		_ = s.rows.Close()
	}
	return s.file.Close()
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.ToLower(strings.TrimSpace(h))
	}
	return out
}

// zipRow keeps raw (untrimmed) values; trimming is the schema's job.
func zipRow(header, record []string) Row {
	row := make(Row, len(header))
	for i, name := range header {
		if name == "" || i >= len(record) {
			continue
		}
		row[name] = record[i]
	}
	return row
}

func isBlankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
