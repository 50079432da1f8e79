package wxapkg

import "strings"

// Resolver finds the wxid for an archive from its location.
type Resolver interface {
	ResolveWxID(inputPath string) (string, bool)
}

// ResolverFunc adapts a function to Resolver
type ResolverFunc func(inputPath string) (string, bool)

func (f ResolverFunc) ResolveWxID(inputPath string) (string, bool) { return f(inputPath) }

// SegmentResolver returns the path segment that follows Sentinel.
// Both '/' and '\' separate segments, so Windows cache paths resolve the
// same way on every host.
type SegmentResolver struct {
	Sentinel string
}

// AppletResolver matches the client's cache layout .../Applet/<wxid>/...
var AppletResolver = SegmentResolver{Sentinel: AppletSegment}

func (r SegmentResolver) ResolveWxID(inputPath string) (string, bool) {
	segments := strings.FieldsFunc(inputPath, func(c rune) bool {
		return c == '/' || c == '\\'
	})
	for i, seg := range segments {
		if seg == r.Sentinel && i+1 < len(segments) {
			return segments[i+1], true
		}
	}
	return "", false
}

// ResolveWxID picks the wxid used to decrypt the archive at inputPath.
// An explicit wxid wins; otherwise resolver is asked. A nil resolver is
// ErrUnsupportedPlatform and a resolver that finds nothing is
// ErrMissingParameter, both as a *ConfigError.
func ResolveWxID(explicit, inputPath string, resolver Resolver) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if resolver == nil {
		return "", &ConfigError{Input: inputPath, Err: ErrUnsupportedPlatform}
	}
	if wxid, ok := resolver.ResolveWxID(inputPath); ok && wxid != "" {
		return wxid, nil
	}
	return "", &ConfigError{Input: inputPath, Err: ErrMissingParameter}
}
