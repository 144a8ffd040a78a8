package archive

import (
	"archive/zip"
	"bytes"
	"testing"
)

func zipWithFile(t *testing.T, name, content string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create(name)
	if err != nil {
		t.Fatalf("failed to create zip entry: %v", err)
	}
	if _, err := f.Write([]byte(content)); err != nil {
		t.Fatalf("failed to write zip entry: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtractTable(t *testing.T) {
	content := "STATIONS_ID;MESS_DATUM;QN_9;TT_TU;RF_TU;eor\n" +
		"691;2020010100;3;2.0;80.0;eor\n" +
		"691;2020010101;3;-999;75.0;eor\n"

	data := zipWithFile(t, "produkt_tu_stunde_19500101_20231231_00691.txt", content)

	table, err := ExtractTable("stundenwerte_TU_00691_hist.zip", data)
	if err != nil {
		t.Fatalf("ExtractTable() error: %v", err)
	}

	if len(table.Columns) != 6 {
		t.Fatalf("columns = %d, want 6", len(table.Columns))
	}
	if table.ColumnIndex("TT_TU") != 3 {
		t.Errorf("ColumnIndex(TT_TU) = %d, want 3", table.ColumnIndex("TT_TU"))
	}
	if table.ColumnIndex("NOPE") != -1 {
		t.Errorf("ColumnIndex(NOPE) = %d, want -1", table.ColumnIndex("NOPE"))
	}
	if len(table.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(table.Rows))
	}

	if token := table.Rows[0][3]; token == nil || *token != "2.0" {
		t.Errorf("row 0 TT_TU = %v, want 2.0", token)
	}
	if token := table.Rows[1][3]; token != nil {
		t.Errorf("row 1 TT_TU = %v, want nil for -999 sentinel", *token)
	}
	if token := table.Rows[1][4]; token == nil || *token != "75.0" {
		t.Errorf("row 1 RF_TU = %v, want 75.0", token)
	}
}

func TestExtractTable_NoMeasurementEntry(t *testing.T) {
	data := zipWithFile(t, "Metadaten_Stationsname_00691.txt", "metadata only")

	table, err := ExtractTable("stundenwerte_TU_00691_akt.zip", data)
	if err != nil {
		t.Fatalf("ExtractTable() error: %v", err)
	}
	if !table.Empty() {
		t.Errorf("archive without a measurement entry should yield an empty table, got %d rows", len(table.Rows))
	}
}

func TestExtractTable_NotAZip(t *testing.T) {
	_, err := ExtractTable("broken.zip", []byte("this is not a zip archive"))
	if err == nil {
		t.Fatal("ExtractTable() should fail on malformed archive bytes")
	}

	parseErr, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("error type = %T, want *ParseError", err)
	}
	if parseErr.IsTransient() {
		t.Error("ParseError should not be transient")
	}
}

func TestExtractTable_RejectsMalformedRows(t *testing.T) {
	content := "STATIONS_ID;MESS_DATUM;TT_TU;eor\n" +
		"691;2020010100;2.0;eor\n" +
		"691;2020010101\n" +
		"\n" +
		"691;2020010102;3.0;eor\n"

	data := zipWithFile(t, "produkt_tu_stunde_00691.txt", content)

	table, err := ExtractTable("stundenwerte_TU_00691_hist.zip", data)
	if err != nil {
		t.Fatalf("ExtractTable() error: %v", err)
	}
	if len(table.Rows) != 2 {
		t.Errorf("rows = %d, want 2", len(table.Rows))
	}
	if table.RejectedRows != 1 {
		t.Errorf("RejectedRows = %d, want 1", table.RejectedRows)
	}
}

func TestIsMissingSentinel(t *testing.T) {
	tests := []struct {
		token string
		want  bool
	}{
		{"-999", true},
		{"-999.0", true},
		{"-999.00", true},
		{"-999.5", false},
		{"999", false},
		{"-99", false},
		{"2.0", false},
		{"-9990", false},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			if got := isMissingSentinel(tt.token); got != tt.want {
				t.Errorf("isMissingSentinel(%q) = %v, want %v", tt.token, got, tt.want)
			}
		})
	}
}
