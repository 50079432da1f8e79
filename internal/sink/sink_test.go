package sink

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSinkPath(t *testing.T) {
	s := NewFileSink(afero.NewMemMapFs(), "out")

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "plain", in: "a.txt", want: filepath.Join("out", "a.txt")},
		{name: "leading slash", in: "/app.json", want: filepath.Join("out", "app.json")},
		{name: "nested", in: "/pages/index/index.js", want: filepath.Join("out", "pages", "index", "index.js")},
		{name: "backslashes", in: `dir\b.txt`, want: filepath.Join("out", "dir", "b.txt")},
		{name: "dot segments", in: "./a/./b", want: filepath.Join("out", "a", "b")},
		{name: "dotdot inside root", in: "a/../b", want: filepath.Join("out", "b")},
		{name: "escapes root", in: "../etc/passwd", wantErr: ErrEscapesRoot},
		{name: "escapes root later", in: "a/../../b", wantErr: ErrEscapesRoot},
		{name: "empty", in: "", wantErr: ErrEmptyName},
		{name: "only slash", in: "/", wantErr: ErrEmptyName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Path(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileSinkWriteEntry(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewFileSink(fs, "/out")

	require.NoError(t, s.WriteEntry("/a.txt", []byte("hello")))
	require.NoError(t, s.WriteEntry("dir/sub/b.txt", []byte("world")))

	data, err := afero.ReadFile(fs, "/out/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	data, err = afero.ReadFile(fs, "/out/dir/sub/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "world", string(data))

	// overwrite, as happens with duplicate names
	require.NoError(t, s.WriteEntry("a.txt", []byte("again")))
	data, err = afero.ReadFile(fs, "/out/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "again", string(data))
}

func TestFileSinkWriteEntryErrors(t *testing.T) {
	s := NewFileSink(afero.NewMemMapFs(), "/out")

	err := s.WriteEntry("../x", []byte("nope"))
	var we *WriteError
	require.True(t, errors.As(err, &we))
	assert.Equal(t, "../x", we.Name)
	assert.ErrorIs(t, err, ErrEscapesRoot)

	ro := NewFileSink(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/out")
	err = ro.WriteEntry("a.txt", []byte("x"))
	require.True(t, errors.As(err, &we))
	assert.Equal(t, "a.txt", we.Name)
}

func TestFileSinkClean(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewFileSink(fs, "/out")

	require.NoError(t, s.Clean(), "cleaning a missing directory is fine")

	require.NoError(t, s.WriteEntry("a/b.txt", []byte("x")))
	require.NoError(t, s.Clean())

	exists, err := afero.DirExists(fs, "/out")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDiscard(t *testing.T) {
	var s Sink = Discard{}
	assert.NoError(t, s.WriteEntry("anything", nil))
}
