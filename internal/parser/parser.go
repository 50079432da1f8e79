package parser

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"github.com/ossyrian/unwx/internal/wxapkg"
)

// Decoder reads the file table of a wxapkg archive.
//
// It is a single forward pass: every call to Next consumes one table
// record, whether or not it decodes, until FileCount records are used up.
type Decoder struct {
	archive *wxapkg.Archive
	cursor  *wxapkg.Cursor
	logger  *slog.Logger
	header  *wxapkg.Header

	next      int    // index of the next table record
	remaining uint32 // table records not yet consumed
}

// NewDecoder validates the header of archive and returns a Decoder
// positioned at the first file table record. A nil logger uses
// slog.Default.
func NewDecoder(archive *wxapkg.Archive, logger *slog.Logger) (*Decoder, error) {
	if logger == nil {
		logger = slog.Default()
	}

	d := &Decoder{
		archive: archive,
		cursor:  wxapkg.NewCursor(archive.Bytes()),
		logger:  logger,
	}

	if _, err := d.ReadHeader(); err != nil {
		return nil, err
	}

	return d, nil
}

// ReadHeader reads the fixed 18-byte header and fails if either the first
// or the last mark is wrong. The three length fields are not checked
// against the archive.
func (d *Decoder) ReadHeader() (*wxapkg.Header, error) {
	h := &wxapkg.Header{}
	var err error

	if h.FirstMark, err = d.cursor.ReadU8(); err != nil {
		return nil, d.headerError("failed to read first mark", err)
	}
	if h.FirstMark != wxapkg.FirstMark {
		return nil, &wxapkg.FormatError{
			Entry:  wxapkg.HeaderEntry,
			Offset: 0,
			Reason: fmt.Sprintf("invalid first mark: expected %#02x, got %#02x", wxapkg.FirstMark, h.FirstMark),
		}
	}

	if h.FileTableOffset, err = d.cursor.ReadU32(); err != nil {
		return nil, d.headerError("failed to read file table offset", err)
	}
	if h.IndexLength, err = d.cursor.ReadU32(); err != nil {
		return nil, d.headerError("failed to read index length", err)
	}
	if h.BodyLength, err = d.cursor.ReadU32(); err != nil {
		return nil, d.headerError("failed to read body length", err)
	}

	lastMarkOffset := d.cursor.Pos()
	if h.LastMark, err = d.cursor.ReadU8(); err != nil {
		return nil, d.headerError("failed to read last mark", err)
	}
	if h.LastMark != wxapkg.LastMark {
		return nil, &wxapkg.FormatError{
			Entry:  wxapkg.HeaderEntry,
			Offset: lastMarkOffset,
			Reason: fmt.Sprintf("invalid last mark: expected %#02x, got %#02x", wxapkg.LastMark, h.LastMark),
		}
	}

	if h.FileCount, err = d.cursor.ReadU32(); err != nil {
		return nil, d.headerError("failed to read file count", err)
	}

	d.logger.Info("header is valid",
		"file_table_offset", h.FileTableOffset,
		"index_length", h.IndexLength,
		"body_length", h.BodyLength,
		"file_count", h.FileCount,
	)

	d.header = h
	d.remaining = h.FileCount
	return h, nil
}

// Header returns the header read by NewDecoder
func (d *Decoder) Header() *wxapkg.Header { return d.header }

// Remaining returns the number of table records not yet consumed
func (d *Decoder) Remaining() uint32 { return d.remaining }

// NextEntry decodes the next file table record. It returns io.EOF once
// FileCount records have been consumed. Any other error is a
// *wxapkg.FormatError naming the record.
func (d *Decoder) NextEntry() (wxapkg.Entry, error) {
	if d.remaining == 0 {
		return wxapkg.Entry{}, io.EOF
	}
	d.remaining--
	index := d.next
	d.next++

	entry, err := d.readEntry(index)
	if err != nil {
		return wxapkg.Entry{}, err
	}

	d.logger.Debug("read file table entry",
		"index", entry.Index,
		"offset", entry.Data.Offset,
		"size", entry.Data.Length,
	)

	return entry, nil
}

// Next is NextEntry resolved against the archive. File.Data aliases the
// archive buffer.
func (d *Decoder) Next() (wxapkg.File, error) {
	entry, err := d.NextEntry()
	if err != nil {
		return wxapkg.File{}, err
	}
	return d.archive.Resolve(entry), nil
}

// All yields the remaining files in table order. Iteration stops after the
// first error, which is yielded with a zero File.
func (d *Decoder) All() iter.Seq2[wxapkg.File, error] {
	return func(yield func(wxapkg.File, error) bool) {
		for {
			f, err := d.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(f, err) || err != nil {
				return
			}
		}
	}
}

func (d *Decoder) readEntry(index int) (wxapkg.Entry, error) {
	entry := wxapkg.Entry{Index: index}
	start := d.cursor.Pos()

	nameLen, err := d.cursor.ReadU32()
	if err != nil {
		return entry, d.entryError(index, start, "failed to read name length", err)
	}

	nameOffset := d.cursor.Pos()
	if _, err := d.cursor.ReadString(int(nameLen)); err != nil {
		return entry, d.entryError(index, nameOffset, fmt.Sprintf("failed to read name of %d bytes", nameLen), err)
	}
	entry.Name = wxapkg.Span{Offset: uint32(nameOffset), Length: nameLen}

	if entry.Data.Offset, err = d.cursor.ReadU32(); err != nil {
		return entry, d.entryError(index, d.cursor.Pos(), "failed to read body offset", err)
	}
	if entry.Data.Length, err = d.cursor.ReadU32(); err != nil {
		return entry, d.entryError(index, d.cursor.Pos(), "failed to read body size", err)
	}

	if _, err := d.cursor.SliceAt(int(entry.Data.Offset), int(entry.Data.Length)); err != nil {
		return entry, d.entryError(index, int(entry.Data.Offset),
			fmt.Sprintf("body of %d bytes ends at %d, past archive end %d",
				entry.Data.Length, entry.Data.End(), d.cursor.Len()),
			err)
	}

	return entry, nil
}

func (d *Decoder) headerError(reason string, err error) error {
	return &wxapkg.FormatError{
		Entry:  wxapkg.HeaderEntry,
		Offset: d.cursor.Pos(),
		Reason: reason,
		Err:    err,
	}
}

func (d *Decoder) entryError(index, offset int, reason string, err error) error {
	return &wxapkg.FormatError{
		Entry:  index,
		Offset: offset,
		Reason: reason,
		Err:    err,
	}
}

// Parse decodes every entry of archive, failing on the first bad one.
func Parse(archive *wxapkg.Archive, logger *slog.Logger) ([]wxapkg.File, error) {
	d, err := NewDecoder(archive, logger)
	if err != nil {
		return nil, err
	}

	files := make([]wxapkg.File, 0, min(int(d.header.FileCount), archive.Len()/12))
	for f, err := range d.All() {
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}

	return files, nil
}
