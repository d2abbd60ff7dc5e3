package ratecsv

import (
	"bytes"
	"math/big"
	"strings"
	"testing"
)

func TestParseRow(t *testing.T) {
	tests := []struct {
		name    string
		record  []string
		wantErr bool
	}{
		{name: "valid row", record: []string{"1723000000", "1000000001547125957863212448", "1030000000000000000000000000"}},
		{name: "too few columns", record: []string{"1723000000", "1"}, wantErr: true},
		{name: "rho not a number", record: []string{"later", "1", "1"}, wantErr: true},
		{name: "negative rho", record: []string{"-5", "1", "1"}, wantErr: true},
		{name: "ssr not a number", record: []string{"1", "ray", "1"}, wantErr: true},
		{name: "zero chi", record: []string{"1", "1", "0"}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			row, err := ParseRow(tc.record)
			if tc.wantErr {
				if err == nil {
					t.Errorf("ParseRow(%v) parsed to %+v, want error", tc.record, row)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRow(%v) err = %v", tc.record, err)
			}
			if row.Rho != 1723000000 {
				t.Errorf("rho = %d", row.Rho)
			}
			if row.SSR.String() != tc.record[1] || row.Chi.String() != tc.record[2] {
				t.Errorf("row = %+v", row)
			}
		})
	}
}

func TestReadAll(t *testing.T) {
	const history = `rho,ssr,chi
100,1000000001547125957863212448,1000000000000000000000000000
200,1000000000782997609082909351,1000000154712611372524953198
`
	rows, err := ReadAll(strings.NewReader(history))
	if err != nil {
		t.Fatalf("ReadAll err = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Rho != 100 || rows[1].Rho != 200 {
		t.Errorf("rhos = %d, %d", rows[0].Rho, rows[1].Rho)
	}

	// Headerless input reads the same.
	headerless, err := ReadAll(strings.NewReader("100,5,5\n"))
	if err != nil {
		t.Fatalf("headerless ReadAll err = %v", err)
	}
	if len(headerless) != 1 || headerless[0].SSR.Cmp(big.NewInt(5)) != 0 {
		t.Errorf("headerless rows = %+v", headerless)
	}
}

func TestReadAllRejects(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "header only", input: "rho,ssr,chi\n"},
		{name: "bad value", input: "100,abc,5\n"},
		{name: "ragged row", input: "100,5\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ReadAll(strings.NewReader(tc.input)); err == nil {
				t.Error("ReadAll accepted bad input")
			}
		})
	}
}

func TestWriteAllRoundTrip(t *testing.T) {
	rows := []Row{
		{Rho: 100, SSR: big.NewInt(11), Chi: big.NewInt(12)},
		{Rho: 200, SSR: big.NewInt(21), Chi: big.NewInt(22)},
	}
	var buf bytes.Buffer
	if err := WriteAll(&buf, rows); err != nil {
		t.Fatalf("WriteAll err = %v", err)
	}
	got, err := ReadAll(&buf)
	if err != nil {
		t.Fatalf("ReadAll err = %v", err)
	}
	if len(got) != len(rows) {
		t.Fatalf("round trip rows = %d, want %d", len(got), len(rows))
	}
	for i := range rows {
		if got[i].Rho != rows[i].Rho || got[i].SSR.Cmp(rows[i].SSR) != 0 || got[i].Chi.Cmp(rows[i].Chi) != 0 {
			t.Errorf("row %d = %+v, want %+v", i, got[i], rows[i])
		}
	}
}
