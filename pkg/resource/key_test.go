package resource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		expected Key
		wantErr  bool
	}{
		{"file", "file:manifest.json", Key{KindFile, "manifest.json"}, false},
		{"nested text", "text:src/popup.js", Key{KindText, "src/popup.js"}, false},
		{"cleaned", "json:./a//b.json", Key{KindJSON, "a/b.json"}, false},
		{"kind lowercased", "YAML:config.yaml", Key{KindYAML, "config.yaml"}, false},
		{"tree root", "tree:.", Key{KindTree, "."}, false},
		{"unknown kind kept", "blob:x", Key{Kind("blob"), "x"}, false},
		{"no colon", "manifest.json", Key{}, true},
		{"empty kind", ":manifest.json", Key{}, true},
		{"empty path", "text:", Key{}, true},
		{"absolute", "text:/etc/passwd", Key{}, true},
		{"escapes root", "text:../secret", Key{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := ParseKey(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, k)
		})
	}
}

func TestKey_StringRoundTrip(t *testing.T) {
	k := MustParseKey("json:manifest.json")
	assert.Equal(t, "json:manifest.json", k.String())

	text, err := k.MarshalText()
	require.NoError(t, err)

	var back Key
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, k, back)
}

func TestMustParseKey_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParseKey("nope") })
}

func TestKind_Known(t *testing.T) {
	for _, k := range []Kind{KindFile, KindText, KindJSON, KindYAML, KindTree} {
		assert.True(t, k.Known(), string(k))
	}
	assert.False(t, Kind("nonexistent_key_type").Known())
	assert.True(t, KindJSON.Structured())
	assert.True(t, KindYAML.Structured())
	assert.False(t, KindText.Structured())
}
