package wxapkg

import (
	"fmt"
	"log/slog"
)

// LoadOptions controls how raw archive bytes are turned into an Archive.
type LoadOptions struct {
	InputPath string   // used for wxid discovery and log context
	WxID      string   // explicit wxid, takes priority over Resolver
	Resolver  Resolver // may be nil when WxID is always supplied
	Logger    *slog.Logger
}

// Load decrypts data when it carries EncryptedMagic and wraps the result in
// an Archive. Plain archives are wrapped as-is. The wxid is only resolved
// for encrypted input, and a missing one fails before data is touched.
func Load(data []byte, opts LoadOptions) (*Archive, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if !IsEncrypted(data) {
		logger.Debug("archive is not encrypted", "size", len(data))
		return NewArchive(data), nil
	}

	wxid, err := ResolveWxID(opts.WxID, opts.InputPath, opts.Resolver)
	if err != nil {
		return nil, err
	}

	logger.Info("decrypting archive", "wxid", wxid, "size", len(data))

	d, err := NewDecryptor(wxid)
	if err != nil {
		return nil, err
	}
	plain, err := d.Decrypt(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt archive: %w", err)
	}

	return NewArchive(plain), nil
}
