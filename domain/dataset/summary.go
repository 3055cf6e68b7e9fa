package dataset

import (
	"time"

	"vizora/domain/core"
)

// DType is the profiler's classification of a column.
type DType string

const (
	DTypeNumber   DType = "number"
	DTypeBoolean  DType = "boolean"
	DTypeDate     DType = "date"
	DTypeCategory DType = "category"
	DTypeString   DType = "string"
)

// ColumnProfile describes one column. Numeric bounds are set only for
// number columns and date bounds only for date columns.
type ColumnProfile struct {
	Column     string           `json:"column"`
	Properties ColumnProperties `json:"properties"`
}

type ColumnProperties struct {
	DType           DType      `json:"dtype"`
	Std             *float64   `json:"std,omitempty"`
	Min             *float64   `json:"min,omitempty"`
	Max             *float64   `json:"max,omitempty"`
	DateMin         *time.Time `json:"date_min,omitempty"`
	DateMax         *time.Time `json:"date_max,omitempty"`
	SampleValues    []any      `json:"samples"`
	NumUniqueValues int        `json:"num_unique_values"`
	SemanticType    string     `json:"semantic_type"`
	Description     string     `json:"description"`
}

// DatasetSummary is the profiler output, optionally enriched by the model.
type DatasetSummary struct {
	Name               string          `json:"name"`
	FileName           string          `json:"file_name"`
	DatasetDescription string          `json:"dataset_description"`
	Fields             []ColumnProfile `json:"fields"`
	FieldNames         []string        `json:"field_names"`
	SummaryText        string          `json:"summary_text,omitempty"`
}

// Field looks up a profile by column name.
func (s *DatasetSummary) Field(name string) (*ColumnProfile, bool) {
	for i := range s.Fields {
		if s.Fields[i].Column == name {
			return &s.Fields[i], true
		}
	}
	return nil, false
}

// UploadedFile is one registered dataset.
type UploadedFile struct {
	FileID     core.FileID `json:"file_id" db:"file_id"`
	Filename   string      `json:"filename" db:"filename"`
	Table      *Table      `json:"-" db:"-"`
	UploadedAt time.Time   `json:"uploaded_at" db:"uploaded_at"`
}

// UploadInfo is the listing view of an upload.
type UploadInfo struct {
	FileID     core.FileID `json:"file_id" db:"file_id"`
	Filename   string      `json:"filename" db:"filename"`
	Rows       int         `json:"rows" db:"num_rows"`
	UploadedAt time.Time   `json:"uploaded_at" db:"uploaded_at"`
}
