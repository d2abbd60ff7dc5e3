// Package ratecsv parses recorded savings-rate history and replays it as a
// rate provider, so emulation runs can follow real rate changes instead of
// synthetic ones.
package ratecsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/big"
	"strconv"
)

// Row is one recorded pot state: the timestamp it became authoritative and
// the rate and accumulator at that moment, RAY scaled.
type Row struct {
	Rho uint64
	SSR *big.Int
	Chi *big.Int
}

// header is the canonical column order.
var header = []string{"rho", "ssr", "chi"}

// ParseRow converts one CSV record into a Row.
func ParseRow(record []string) (Row, error) {
	if len(record) != len(header) {
		return Row{}, fmt.Errorf("row has %d columns, want %d", len(record), len(header))
	}
	rho, err := strconv.ParseUint(record[0], 10, 64)
	if err != nil {
		return Row{}, fmt.Errorf("bad rho %q: %w", record[0], err)
	}
	ssr, err := parsePositive(record[1])
	if err != nil {
		return Row{}, fmt.Errorf("bad ssr: %w", err)
	}
	chi, err := parsePositive(record[2])
	if err != nil {
		return Row{}, fmt.Errorf("bad chi: %w", err)
	}
	return Row{Rho: rho, SSR: ssr, Chi: chi}, nil
}

func parsePositive(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%q is not a decimal integer", s)
	}
	if v.Sign() <= 0 {
		return nil, fmt.Errorf("%q is not positive", s)
	}
	return v, nil
}

// ReadAll parses a whole history file. A leading header row is skipped.
func ReadAll(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(header)
	cr.TrimLeadingSpace = true

	var rows []Row
	for line := 1; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if line == 1 && record[0] == header[0] {
			continue
		}
		row, err := ParseRow(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("history is empty")
	}
	return rows, nil
}

// WriteAll writes rows with the canonical header, the format ReadAll reads.
func WriteAll(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			strconv.FormatUint(row.Rho, 10),
			row.SSR.String(),
			row.Chi.String(),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
