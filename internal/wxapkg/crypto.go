package wxapkg

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1"
	"fmt"
	"runtime"

	"github.com/sourcegraph/conc/pool"
	"golang.org/x/crypto/pbkdf2"
)

// Bodies larger than parallelXORThreshold are XORed in xorChunkSize chunks
// on a worker pool.
const (
	parallelXORThreshold = 4 << 20
	xorChunkSize         = 1 << 20
)

// IsEncrypted reports whether data starts with EncryptedMagic.
func IsEncrypted(data []byte) bool {
	return len(data) >= len(EncryptedMagic) && string(data[:len(EncryptedMagic)]) == EncryptedMagic
}

// DeriveKey returns the AES-256 key for wxid:
// PBKDF2-HMAC-SHA1 over the wxid bytes, 1000 rounds, salt "saltiest".
func DeriveKey(wxid string) []byte {
	return pbkdf2.Key([]byte(wxid), []byte(keySalt), keyIterations, keySize, sha1.New)
}

// XORKey returns the byte the archive body is XORed with: the second to
// last byte of wxid, or 0x66 for wxids shorter than two bytes.
func XORKey(wxid string) byte {
	if len(wxid) >= 2 {
		return wxid[len(wxid)-2]
	}
	return defaultXORKey
}

// XOR writes src[i]^key to dst[i]. dst and src may be the same slice.
// Applying it twice with the same key returns the original bytes.
func XOR(dst, src []byte, key byte) {
	if len(src) <= parallelXORThreshold {
		xorChunk(dst, src, key)
		return
	}

	p := pool.New().WithMaxGoroutines(runtime.GOMAXPROCS(0))
	for start := 0; start < len(src); start += xorChunkSize {
		end := min(start+xorChunkSize, len(src))
		p.Go(func() {
			xorChunk(dst[start:end], src[start:end], key)
		})
	}
	p.Wait()
}

func xorChunk(dst, src []byte, key byte) {
	for i, b := range src {
		dst[i] = b ^ key
	}
}

// Decryptor reverses the PC client encryption for a single wxid.
type Decryptor struct {
	key    []byte
	xorKey byte
}

// NewDecryptor derives the keys for wxid. An empty wxid is a ConfigError.
func NewDecryptor(wxid string) (*Decryptor, error) {
	if wxid == "" {
		return nil, &ConfigError{Err: ErrMissingParameter}
	}
	return &Decryptor{
		key:    DeriveKey(wxid),
		xorKey: XORKey(wxid),
	}, nil
}

// Decrypt returns a new buffer holding the plaintext archive.
//
// The 1024-byte block after the magic is AES-256-CBC decrypted and its last
// byte dropped, then every byte after it is XORed with the key byte. data is
// not modified.
func (d *Decryptor) Decrypt(data []byte) ([]byte, error) {
	if !IsEncrypted(data) {
		return nil, &FormatError{
			Entry:  HeaderEntry,
			Reason: fmt.Sprintf("missing %q magic", EncryptedMagic),
		}
	}
	if len(data) < EncryptedBodyOffset {
		return nil, &FormatError{
			Entry:  HeaderEntry,
			Offset: len(data),
			Reason: fmt.Sprintf("encrypted archive needs at least %d bytes, got %d", EncryptedBodyOffset, len(data)),
			Err:    ErrUnexpectedEOF,
		}
	}

	body := data[EncryptedBodyOffset:]
	out := make([]byte, EncryptedHeaderSize+len(body))

	if err := d.decryptHeader(out[:EncryptedHeaderSize], data[EncryptedHeaderOffset:EncryptedBodyOffset]); err != nil {
		return nil, err
	}

	// The padding byte at out[DecryptedHeaderSize] is overwritten by the
	// body so it never reaches the output.
	XOR(out[DecryptedHeaderSize:], body, d.xorKey)

	return out[:DecryptedHeaderSize+len(body)], nil
}

func (d *Decryptor) decryptHeader(dst, src []byte) error {
	block, err := aes.NewCipher(d.key)
	if err != nil {
		return fmt.Errorf("failed to create AES cipher: %w", err)
	}
	cipher.NewCBCDecrypter(block, []byte(keyIV)).CryptBlocks(dst, src)
	return nil
}
