package parser_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/ossyrian/unwx/internal/logging"
	"github.com/ossyrian/unwx/internal/parser"
	"github.com/ossyrian/unwx/internal/wxapkg"
	"github.com/ossyrian/unwx/internal/wxapkg/wxapkgtest"
)

// buildHeader creates an 18-byte header with the given marks and file count
func buildHeader(first, last byte, fileCount uint32) []byte {
	buf := new(bytes.Buffer)
	buf.WriteByte(first)
	binary.Write(buf, binary.BigEndian, uint32(14))
	binary.Write(buf, binary.BigEndian, uint32(0))
	binary.Write(buf, binary.BigEndian, uint32(0))
	buf.WriteByte(last)
	binary.Write(buf, binary.BigEndian, fileCount)
	return buf.Bytes()
}

// appendEntry appends a raw file table record
func appendEntry(buf []byte, name string, offset, size uint32) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(name)))
	buf = append(buf, name...)
	buf = binary.BigEndian.AppendUint32(buf, offset)
	buf = binary.BigEndian.AppendUint32(buf, size)
	return buf
}

func TestNewDecoder_Header(t *testing.T) {
	tests := []struct {
		name       string
		input      []byte
		want       *wxapkg.Header
		wantErr    bool
		errMsg     string
		wantOffset int
	}{
		{
			name:  "valid empty archive",
			input: buildHeader(0xBE, 0xED, 0),
			want: &wxapkg.Header{
				FirstMark:       0xBE,
				FileTableOffset: 14,
				LastMark:        0xED,
			},
		},
		{
			name:       "bad first mark",
			input:      buildHeader(0xBF, 0xED, 0),
			wantErr:    true,
			errMsg:     "invalid first mark",
			wantOffset: 0,
		},
		{
			name:       "bad last mark",
			input:      buildHeader(0xBE, 0xEE, 0),
			wantErr:    true,
			errMsg:     "invalid last mark",
			wantOffset: 13,
		},
		{
			name:    "empty input",
			input:   []byte{},
			wantErr: true,
			errMsg:  "failed to read first mark",
		},
		{
			name:       "truncated lengths",
			input:      []byte{0xBE, 0x00, 0x00, 0x00, 0x0E, 0x00},
			wantErr:    true,
			errMsg:     "failed to read index length",
			wantOffset: 5,
		},
		{
			name:       "truncated file count",
			input:      buildHeader(0xBE, 0xED, 0)[:16],
			wantErr:    true,
			errMsg:     "failed to read file count",
			wantOffset: 14,
		},
		{
			name: "length fields are informational",
			input: func() []byte {
				h := buildHeader(0xBE, 0xED, 0)
				binary.BigEndian.PutUint32(h[5:], 0xFFFFFFFF)
				binary.BigEndian.PutUint32(h[9:], 0xFFFFFFFF)
				return h
			}(),
			want: &wxapkg.Header{
				FirstMark:       0xBE,
				FileTableOffset: 14,
				IndexLength:     0xFFFFFFFF,
				BodyLength:      0xFFFFFFFF,
				LastMark:        0xED,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := parser.NewDecoder(wxapkg.NewArchive(tt.input), logging.Discard())

			if tt.wantErr {
				if err == nil {
					t.Fatal("NewDecoder() succeeded unexpectedly, wanted error")
				}
				var fe *wxapkg.FormatError
				if !errors.As(err, &fe) {
					t.Fatalf("NewDecoder() error = %T, want *wxapkg.FormatError", err)
				}
				if fe.Entry != wxapkg.HeaderEntry {
					t.Errorf("FormatError.Entry = %d, want HeaderEntry", fe.Entry)
				}
				if fe.Offset != tt.wantOffset {
					t.Errorf("FormatError.Offset = %d, want %d", fe.Offset, tt.wantOffset)
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("NewDecoder() error = %v, should contain %q", err, tt.errMsg)
				}
				return
			}

			if err != nil {
				t.Fatalf("NewDecoder() failed: %v", err)
			}
			if *d.Header() != *tt.want {
				t.Errorf("Header() = %+v, want %+v", d.Header(), tt.want)
			}
		})
	}
}

func TestParse_SampleArchive(t *testing.T) {
	archive := wxapkg.NewArchive(wxapkgtest.Build(wxapkgtest.SampleFiles()))

	files, err := parser.Parse(archive, logging.Discard())
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	want := wxapkgtest.SampleFiles()
	if len(files) != len(want) {
		t.Fatalf("Parse() returned %d files, want %d", len(files), len(want))
	}
	for i, f := range files {
		if f.Index != i {
			t.Errorf("files[%d].Index = %d", i, f.Index)
		}
		if f.Name != want[i].Name {
			t.Errorf("files[%d].Name = %q, want %q", i, f.Name, want[i].Name)
		}
		if !bytes.Equal(f.Data, want[i].Data) {
			t.Errorf("files[%d].Data = %q, want %q", i, f.Data, want[i].Data)
		}
	}
}

func TestParse_EncryptedSampleArchive(t *testing.T) {
	enc := wxapkgtest.Encrypt(wxapkgtest.Build(wxapkgtest.SampleFiles()), "wx_test01")

	archive, err := wxapkg.Load(enc, wxapkg.LoadOptions{WxID: "wx_test01", Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	files, err := parser.Parse(archive, logging.Discard())
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	want := wxapkgtest.SampleFiles()
	if len(files) != len(want) {
		t.Fatalf("Parse() returned %d files, want %d", len(files), len(want))
	}
	for i, f := range files {
		if f.Name != want[i].Name || !bytes.Equal(f.Data, want[i].Data) {
			t.Errorf("files[%d] = (%q, %q), want (%q, %q)", i, f.Name, f.Data, want[i].Name, want[i].Data)
		}
	}
}

func TestDecoder_DataAliasesArchive(t *testing.T) {
	buf := wxapkgtest.Build([]wxapkgtest.File{{Name: "x", Data: []byte("payload")}})
	d, err := parser.NewDecoder(wxapkg.NewArchive(buf), logging.Discard())
	if err != nil {
		t.Fatalf("NewDecoder() failed: %v", err)
	}

	f, err := d.Next()
	if err != nil {
		t.Fatalf("Next() failed: %v", err)
	}
	if &f.Data[0] != &buf[len(buf)-len("payload")] {
		t.Error("File.Data does not alias the archive buffer")
	}
}

func TestDecoder_DuplicateNamesKeepOrder(t *testing.T) {
	files := []wxapkgtest.File{
		{Name: "same", Data: []byte("1")},
		{Name: "other", Data: []byte("2")},
		{Name: "same", Data: []byte("3")},
	}
	got, err := parser.Parse(wxapkg.NewArchive(wxapkgtest.Build(files)), logging.Discard())
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Parse() returned %d files, want 3", len(got))
	}
	for i := range files {
		if got[i].Name != files[i].Name || string(got[i].Data) != string(files[i].Data) {
			t.Errorf("got[%d] = %q/%q, want %q/%q", i, got[i].Name, got[i].Data, files[i].Name, files[i].Data)
		}
	}
}

func TestDecoder_BodyOutOfBounds(t *testing.T) {
	buf := buildHeader(0xBE, 0xED, 2)
	buf = appendEntry(buf, "ok", 0, 4)
	buf = appendEntry(buf, "bad", 10, 1000)

	d, err := parser.NewDecoder(wxapkg.NewArchive(buf), logging.Discard())
	if err != nil {
		t.Fatalf("NewDecoder() failed: %v", err)
	}

	f, err := d.Next()
	if err != nil {
		t.Fatalf("first Next() failed: %v", err)
	}
	if f.Name != "ok" || len(f.Data) != 4 {
		t.Errorf("first Next() = %+v", f)
	}

	_, err = d.Next()
	var fe *wxapkg.FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("second Next() error = %v, want *wxapkg.FormatError", err)
	}
	if fe.Entry != 1 {
		t.Errorf("FormatError.Entry = %d, want 1", fe.Entry)
	}
	if fe.Offset != 10 {
		t.Errorf("FormatError.Offset = %d, want 10", fe.Offset)
	}
	if !errors.Is(err, wxapkg.ErrUnexpectedEOF) {
		t.Errorf("error %v should wrap ErrUnexpectedEOF", err)
	}

	if d.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", d.Remaining())
	}
	if _, err := d.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next() after table end error = %v, want io.EOF", err)
	}
}

func TestDecoder_BodyEndingExactlyAtArchiveEnd(t *testing.T) {
	buf := buildHeader(0xBE, 0xED, 1)
	buf = appendEntry(buf, "tail", 0, 0)
	binary.BigEndian.PutUint32(buf[len(buf)-4:], uint32(len(buf)))

	files, err := parser.Parse(wxapkg.NewArchive(buf), logging.Discard())
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if len(files[0].Data) != len(buf) {
		t.Errorf("len(Data) = %d, want %d", len(files[0].Data), len(buf))
	}
}

func TestDecoder_TruncatedTable(t *testing.T) {
	tests := []struct {
		name   string
		input  []byte
		errMsg string
	}{
		{
			name:   "missing record",
			input:  buildHeader(0xBE, 0xED, 1),
			errMsg: "failed to read name length",
		},
		{
			name:   "short name",
			input:  append(binary.BigEndian.AppendUint32(buildHeader(0xBE, 0xED, 1), 10), "abc"...),
			errMsg: "failed to read name",
		},
		{
			name:   "missing size",
			input:  appendEntry(buildHeader(0xBE, 0xED, 1), "a", 0, 0)[:18+4+1+4],
			errMsg: "failed to read body size",
		},
		{
			name:   "invalid utf-8 name",
			input:  appendEntry(buildHeader(0xBE, 0xED, 1), "\xff\xfe", 0, 0),
			errMsg: "not valid UTF-8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse(wxapkg.NewArchive(tt.input), logging.Discard())
			var fe *wxapkg.FormatError
			if !errors.As(err, &fe) {
				t.Fatalf("Parse() error = %v, want *wxapkg.FormatError", err)
			}
			if fe.Entry != 0 {
				t.Errorf("FormatError.Entry = %d, want 0", fe.Entry)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Parse() error = %v, should contain %q", err, tt.errMsg)
			}
		})
	}
}

func TestDecoder_AllStopsAtFirstError(t *testing.T) {
	buf := buildHeader(0xBE, 0xED, 3)
	buf = appendEntry(buf, "a", 0, 1)
	buf = appendEntry(buf, "b", 0xFFFFFFFF, 0xFFFFFFFF)
	buf = appendEntry(buf, "c", 0, 1)

	d, err := parser.NewDecoder(wxapkg.NewArchive(buf), logging.Discard())
	if err != nil {
		t.Fatalf("NewDecoder() failed: %v", err)
	}

	var names []string
	var errs int
	for f, err := range d.All() {
		if err != nil {
			errs++
			continue
		}
		names = append(names, f.Name)
	}

	if len(names) != 1 || names[0] != "a" {
		t.Errorf("All() yielded %v, want [a]", names)
	}
	if errs != 1 {
		t.Errorf("All() yielded %d errors, want 1", errs)
	}
	if d.Remaining() != 1 {
		t.Errorf("Remaining() = %d, want 1", d.Remaining())
	}

	// the caller may keep going past a bad record
	f, err := d.Next()
	if err != nil || f.Name != "c" {
		t.Errorf("Next() = %+v, %v, want entry c", f, err)
	}
}
