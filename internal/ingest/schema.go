package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ikkim/traceability-backend/internal/app/model"
)

// Schema names the fields a row must carry and, where a column is bounded,
// the widest value it accepts (in characters).
type Schema struct {
	Name     string
	Required []string
	MaxLen   map[string]int
}

var (
	// CodeSchema provisions code pairs.
	CodeSchema = Schema{
		Name:     "codes",
		Required: []string{"code", "dark_code"},
		MaxLen: map[string]int{
			"code":      model.MaxCodeLength,
			"dark_code": model.MaxCodeLength,
		},
	}
	// ChannelSchema links existing codes to a product SKU and distributor.
	ChannelSchema = Schema{
		Name:     "channels",
		Required: []string{"code", "sku", "distributor"},
		MaxLen: map[string]int{
			"code":        model.MaxCodeLength,
			"sku":         model.MaxSKULength,
			"distributor": model.MaxDistributorLength,
		},
	}
)

// Record is a row that passed validation, with trimmed required values.
type Record map[string]string

// Check returns the trimmed record when every required field is present,
// non-empty after trimming and within its length limit.
func (s Schema) Check(row Row) (Record, bool) {
	rec, problem := s.inspect(row)
	return rec, problem == ""
}

func (s Schema) inspect(row Row) (Record, string) {
	rec := make(Record, len(s.Required))
	for _, field := range s.Required {
		v := strings.TrimSpace(row[field])
		if v == "" {
			return nil, fmt.Sprintf("缺少必要字段: %s", rawRow(row))
		}
		if limit, ok := s.MaxLen[field]; ok && utf8.RuneCountInString(v) > limit {
			return nil, fmt.Sprintf("字段 %s 超过 %d 个字符: %s", field, limit, rawRow(row))
		}
		rec[field] = v
	}
	return rec, ""
}

// Validated is the outcome of a full validation pass.
type Validated struct {
	Records []Record
	Errors  []string
}

// Validate drains src once. It never stops at the first bad row so every
// rejected row can be reported.
func Validate(src RowSource, schema Schema) (*Validated, error) {
	out := &Validated{}
	for {
		row, err := src.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}

		rec, problem := schema.inspect(row)
		if problem != "" {
			out.Errors = append(out.Errors, problem)
			continue
		}
		out.Records = append(out.Records, rec)
	}
}

func rawRow(row Row) string {
	b, err := json.Marshal(row)
	if err != nil {
		return fmt.Sprintf("%v", map[string]string(row))
	}
	return string(b)
}
