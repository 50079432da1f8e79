package wxapkg

// Container layout markers
const (
	// FirstMark is the byte every wxapkg archive starts with
	FirstMark byte = 0xBE
	// LastMark closes the fixed part of the header at offset 13
	LastMark byte = 0xED

	// HeaderSize is the size of the fixed header, up to and including
	// the file count.
	HeaderSize = 18
)

// Encrypted archive layout.
//
//	[0, 6)      EncryptedMagic
//	[6, 1030)   AES-256-CBC encrypted copy of the first 1023 plaintext bytes
//	            plus one byte of padding
//	[1030, EOF) remaining plaintext XORed with a single key byte
const (
	EncryptedHeaderOffset = len(EncryptedMagic)
	EncryptedHeaderSize   = 1024
	EncryptedBodyOffset   = EncryptedHeaderOffset + EncryptedHeaderSize

	// DecryptedHeaderSize is how many plaintext bytes the encrypted
	// header block carries once its trailing padding byte is dropped.
	DecryptedHeaderSize = EncryptedHeaderSize - 1
)

// EncryptedMagic prefixes archives protected by the PC client scheme
const EncryptedMagic = "V1MMWX"

// Key derivation parameters. They are fixed by the format and must not be
// changed; archives written by the client only decrypt with these values.
const (
	keySalt       = "saltiest"
	keyIV         = "the iv: 16 bytes"
	keyIterations = 1000
	keySize       = 32

	// defaultXORKey is used when the wxid is shorter than two bytes
	defaultXORKey byte = 0x66
)

// AppletSegment is the directory name that precedes the wxid in the
// client's package cache, e.g. .../Applet/wx1234abcd/12/__APP__.wxapkg
const AppletSegment = "Applet"
