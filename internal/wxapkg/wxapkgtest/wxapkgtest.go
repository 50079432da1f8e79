// Package wxapkgtest builds wxapkg archives for tests.
package wxapkgtest

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"

	"github.com/ossyrian/unwx/internal/wxapkg"
)

// File is a name and body to place in a test archive
type File struct {
	Name string
	Data []byte
}

// SampleFiles are the two entries used across end-to-end tests
func SampleFiles() []File {
	return []File{
		{Name: "a.txt", Data: []byte("hello")},
		{Name: "dir/b.txt", Data: []byte("world")},
	}
}

// Build returns a plain archive holding files in order, with header fields
// laid out the way the client writes them.
func Build(files []File) []byte {
	const tableOffset = 14

	indexLen := 4
	bodyLen := 0
	for _, f := range files {
		indexLen += 12 + len(f.Name)
		bodyLen += len(f.Data)
	}
	dataOffset := tableOffset + indexLen

	buf := new(bytes.Buffer)
	buf.WriteByte(wxapkg.FirstMark)
	binary.Write(buf, binary.BigEndian, uint32(tableOffset))
	binary.Write(buf, binary.BigEndian, uint32(indexLen))
	binary.Write(buf, binary.BigEndian, uint32(bodyLen))
	buf.WriteByte(wxapkg.LastMark)
	binary.Write(buf, binary.BigEndian, uint32(len(files)))

	offset := dataOffset
	for _, f := range files {
		binary.Write(buf, binary.BigEndian, uint32(len(f.Name)))
		buf.WriteString(f.Name)
		binary.Write(buf, binary.BigEndian, uint32(offset))
		binary.Write(buf, binary.BigEndian, uint32(len(f.Data)))
		offset += len(f.Data)
	}
	for _, f := range files {
		buf.Write(f.Data)
	}

	return buf.Bytes()
}

// Encrypt applies the PC client scheme to plain with a 0x01 padding byte.
// See EncryptWithPadding.
func Encrypt(plain []byte, wxid string) []byte {
	return EncryptWithPadding(plain, wxid, 0x01)
}

// EncryptWithPadding applies the PC client scheme to plain. Inputs shorter
// than the 1023-byte header are zero-filled to that length, so decrypting
// the result gives plain followed by zeros.
func EncryptWithPadding(plain []byte, wxid string, pad byte) []byte {
	if len(plain) < wxapkg.DecryptedHeaderSize {
		padded := make([]byte, wxapkg.DecryptedHeaderSize)
		copy(padded, plain)
		plain = padded
	}

	head := make([]byte, wxapkg.EncryptedHeaderSize)
	copy(head, plain[:wxapkg.DecryptedHeaderSize])
	head[wxapkg.DecryptedHeaderSize] = pad

	block, err := aes.NewCipher(wxapkg.DeriveKey(wxid))
	if err != nil {
		panic(err)
	}
	cipher.NewCBCEncrypter(block, []byte(IV)).CryptBlocks(head, head)

	rest := plain[wxapkg.DecryptedHeaderSize:]
	body := make([]byte, len(rest))
	wxapkg.XOR(body, rest, wxapkg.XORKey(wxid))

	out := make([]byte, 0, wxapkg.EncryptedBodyOffset+len(body))
	out = append(out, wxapkg.EncryptedMagic...)
	out = append(out, head...)
	out = append(out, body...)
	return out
}

// IV is the fixed CBC initialization vector of the scheme
const IV = "the iv: 16 bytes"
