package sheets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func nopLogger() *zerolog.Logger { l := zerolog.Nop(); return &l }

func TestExportURL(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{
			name: "share link",
			in:   "https://docs.google.com/spreadsheets/d/1AbC-dEf_123/edit#gid=0",
			want: "https://docs.google.com/spreadsheets/d/1AbC-dEf_123/export?format=csv",
		},
		{
			name: "share link with usp",
			in:   "https://docs.google.com/spreadsheets/d/1AbC-dEf_123/edit?usp=sharing",
			want: "https://docs.google.com/spreadsheets/d/1AbC-dEf_123/export?format=csv",
		},
		{
			name: "bare sheet id",
			in:   "1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms",
			want: "https://docs.google.com/spreadsheets/d/1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms/export?format=csv",
		},
		{
			name: "plain csv url passes through",
			in:   "https://example.com/data/feedback.csv",
			want: "https://example.com/data/feedback.csv",
		},
		{
			name:    "empty",
			in:      "",
			wantErr: true,
		},
		{
			name:    "google url without sheet id",
			in:      "https://docs.google.com/spreadsheets/u/0/",
			wantErr: true,
		},
		{
			name:    "not a url and too short for an id",
			in:      "feedback",
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExportURL(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("want error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestClient_Fetch_CSV(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "Mozilla") {
			t.Errorf("browser user agent not sent: %q", ua)
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Write([]byte(" Rating ,Comments\n5,great\n4,\"good, mostly\"\n"))
	}))
	defer srv.Close()

	frame, err := NewClient(nopLogger()).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(frame.Columns) != 2 || frame.Columns[0] != "Rating" {
		t.Fatalf("header not trimmed: %v", frame.Columns)
	}
	if frame.RowCount() != 2 {
		t.Fatalf("rows: %d", frame.RowCount())
	}
	if got := frame.Rows[1][1]; got != "good, mostly" {
		t.Fatalf("quoted field mangled: %q", got)
	}
}

func TestClient_Fetch_RejectsLoginPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html>Sign in</html>"))
	}))
	defer srv.Close()

	_, err := NewClient(nopLogger()).Fetch(context.Background(), srv.URL)
	if err == nil || !strings.Contains(err.Error(), "publicly accessible") {
		t.Fatalf("want accessibility error, got %v", err)
	}
}

func TestClient_Fetch_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewClient(nopLogger()).Fetch(context.Background(), srv.URL)
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("want http 403 error, got %v", err)
	}
}

func TestParseCSV_EmptyBody(t *testing.T) {
	frame, err := parseCSV(nil)
	if err != nil {
		t.Fatalf("parse empty: %v", err)
	}
	if frame.RowCount() != 0 {
		t.Fatalf("rows from empty body: %d", frame.RowCount())
	}
}

func TestParseCSV_RaggedRows(t *testing.T) {
	frame, err := parseCSV([]byte("A,B,C\n1,2\n3,4,5,6\n"))
	if err != nil {
		t.Fatalf("ragged rows must parse: %v", err)
	}
	if frame.RowCount() != 2 {
		t.Fatalf("rows: %d", frame.RowCount())
	}
}

func TestIsXLSX(t *testing.T) {
	if !isXLSX("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "", nil) {
		t.Fatal("spreadsheetml content type not detected")
	}
	if !isXLSX("", "https://example.com/report.XLSX", nil) {
		t.Fatal("xlsx suffix not detected")
	}
	if !isXLSX("application/octet-stream", "", []byte("PK\x03\x04rest")) {
		t.Fatal("zip magic not detected")
	}
	if isXLSX("text/csv", "https://example.com/data.csv", []byte("A,B\n")) {
		t.Fatal("csv misdetected as xlsx")
	}
}
