package tabular

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"vizora/domain/dataset"

	"github.com/parquet-go/parquet-go"
)

// readParquet flattens every leaf column of the file. Nested paths are
// joined with underscores.
func readParquet(r io.Reader) (*dataset.Table, error) {
	data, err := readAllBytes(r)
	if err != nil {
		return nil, err
	}
	f, err := parquet.OpenFile(data, data.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	paths := f.Schema().Columns()
	columns := make([]string, len(paths))
	for i, p := range paths {
		columns[i] = strings.Join(p, "_")
	}

	table := &dataset.Table{Columns: columns}
	buf := make([]parquet.Row, 256)
	for _, rg := range f.RowGroups() {
		rows := rg.Rows()
		for {
			n, err := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				out := make([]any, len(columns))
				for _, v := range row {
					if c := v.Column(); c >= 0 && c < len(out) && out[c] == nil {
						out[c] = parquetValue(v)
					}
				}
				table.Rows = append(table.Rows, out)
			}
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to read parquet rows: %w", err)
			}
		}
		rows.Close()
	}
	return table, nil
}

func parquetValue(v parquet.Value) any {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return float64(v.Int32())
	case parquet.Int64:
		return float64(v.Int64())
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	}
	return v.String()
}
