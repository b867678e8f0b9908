package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
)

// WriteParquet encodes records as a single parquet file.
func WriteParquet(w io.Writer, records []Record) error {
	pw := parquet.NewGenericWriter[Record](w)
	n, err := pw.Write(records)
	if err != nil {
		_ = pw.Close()
		return fmt.Errorf("error writing parquet rows: %w", err)
	}
	if n != len(records) {
		_ = pw.Close()
		return errors.New("parquet writer did not write all rows")
	}
	return pw.Close()
}

// WriteNDJSON encodes records as one JSON object per line.
func WriteNDJSON(w io.Writer, records []Record) error {
	enc := json.NewEncoder(w)
	for i := range records {
		if err := enc.Encode(&records[i]); err != nil {
			return fmt.Errorf("error writing record %d: %w", i, err)
		}
	}
	return nil
}

// WriteFile writes records to path in the format implied by its extension,
// or in format when it is not FormatAuto.
func WriteFile(path, format string, records []Record) error {
	if format == "" || format == FormatAuto {
		detected, err := DetectFormat(path)
		if err != nil {
			return err
		}
		format = detected
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	switch format {
	case FormatParquet:
		err = WriteParquet(f, records)
	case FormatNDJSON:
		err = WriteNDJSON(f, records)
	default:
		err = &FormatError{Path: path, Format: format}
	}
	if err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
