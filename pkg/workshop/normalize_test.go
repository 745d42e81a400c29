package workshop

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRemotePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"demo.pbo", "demo.pbo"},
		{`C:\mods\demo.pbo`, "mods/demo.pbo"},
		{`d:demo.pbo`, "demo.pbo"},
		{"/abs/path/file", "abs/path/file"},
		{"./a//b/", "a/b"},
		{"a/../b", "b"},
		{"../../escape", "escape"},
		{`mixed\sep/file.txt`, "mixed/sep/file.txt"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeRemotePath(tt.in))
		})
	}
}

func TestStagerRemoteName(t *testing.T) {
	s := NewStager(nil, nil, "", nil, nil)
	assert.Equal(t, "kpsteam_demo.pbo", s.RemoteName("/tmp/build/demo.pbo"))

	assert.Equal(t, "kpsteam_demo.pbo", s.RemoteName(`C:\x\demo.pbo`), "windows paths map the same on every host")
	assert.Equal(t, "kpsteam_demo.pbo", s.RemoteName(`d:demo.pbo`))
	assert.Equal(t, "kpsteam_demo.pbo", s.RemoteName(`mods\build/demo.pbo`))

	s = NewStager(nil, nil, "custom_", nil, nil)
	assert.Equal(t, "custom_preview.png", s.RemoteName("preview.png"))
}
