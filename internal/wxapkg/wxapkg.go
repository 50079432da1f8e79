// Package wxapkg holds the wxapkg container layout, a bounds-checked cursor
// over archive bytes, and the PC client decryption scheme.
package wxapkg

// Header is the fixed 18-byte header of a wxapkg archive.
// Only the marks and FileCount are used for decoding; the other fields are
// kept as metadata.
type Header struct {
	FirstMark       byte
	FileTableOffset uint32
	IndexLength     uint32
	BodyLength      uint32
	LastMark        byte
	FileCount       uint32
}

// Span is a range inside an archive buffer
type Span struct {
	Offset uint32
	Length uint32
}

// End returns the exclusive end offset of s
func (s Span) End() uint64 { return uint64(s.Offset) + uint64(s.Length) }

// Entry is one decoded file table record. It references the archive buffer
// by range and holds no bytes of its own.
type Entry struct {
	Index int  // position in the file table
	Name  Span // name bytes
	Data  Span // file body
}

// File is an Entry resolved against its archive buffer.
// Data aliases the buffer and must be treated as read-only.
type File struct {
	Index int
	Name  string
	Data  []byte
}

// Archive owns the bytes of a whole archive for the lifetime of an
// extraction. Entries and Files derived from it are only meaningful while
// it is alive, and the buffer is never written after construction.
type Archive struct {
	buf []byte
}

// NewArchive wraps buf. The caller must not modify buf afterwards.
func NewArchive(buf []byte) *Archive {
	return &Archive{buf: buf}
}

// Bytes returns the archive buffer
func (a *Archive) Bytes() []byte { return a.buf }

// Len returns the archive size in bytes
func (a *Archive) Len() int { return len(a.buf) }

// Resolve turns e into a File. e must have been decoded from a.
func (a *Archive) Resolve(e Entry) File {
	return File{
		Index: e.Index,
		Name:  string(a.slice(e.Name)),
		Data:  a.slice(e.Data),
	}
}

func (a *Archive) slice(s Span) []byte {
	end := s.End()
	return a.buf[s.Offset:end:end]
}
