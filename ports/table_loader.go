package ports

import (
	"io"

	"vizora/domain/dataset"
)

// TableLoader parses an uploaded file into a table, choosing the format from
// the filename.
type TableLoader interface {
	Load(filename string, r io.Reader) (*dataset.Table, error)
	Columns(filename string, r io.Reader) ([]string, error)
}
