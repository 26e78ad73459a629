package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountEnabled(t *testing.T) {
	disabled := true
	channels := []Channel{
		{Name: "a"},
		{Name: "b", Disabled: &disabled},
		{Name: "c", Disabled: BoolPtr(false)},
	}
	assert.Equal(t, 2, CountEnabled(channels))
	assert.Zero(t, CountEnabled(nil))
}

func TestChannelOverlayRoundtrip(t *testing.T) {
	disabled := true
	in := []Channel{
		{ID: "src-0", TvgID: "cctv1", Name: "CCTV-1", Group: "央视", URL: "http://example.com/1.m3u8", Resolution: "1080P"},
		{ID: "src-1", Name: "Local", Group: "无分组", URL: "http://example.com/2.m3u8", Disabled: &disabled},
	}

	payload, err := json.Marshal(in)
	require.NoError(t, err)

	var out []Channel
	require.NoError(t, json.Unmarshal(payload, &out))
	assert.Equal(t, in, out)
	assert.True(t, out[1].IsDisabled())
}

func TestLiveSourceValidate(t *testing.T) {
	tests := []struct {
		name    string
		source  LiveSource
		wantErr error
	}{
		{"missing key", LiveSource{Name: "n", URL: "http://x"}, ErrKeyRequired},
		{"missing name", LiveSource{Key: "k", URL: "http://x"}, ErrNameRequired},
		{"missing url", LiveSource{Key: "k", Name: "n"}, ErrURLRequired},
		{"valid", LiveSource{Key: "k", Name: "n", URL: "http://x"}, nil},
		{"valid pointer url", LiveSource{Key: "k", Name: "n", URL: "/api/live/m3u?key=k"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.source.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLiveSourceValidateTrimsAndDefaults(t *testing.T) {
	s := LiveSource{Key: "  k  ", Name: " n ", URL: " http://example.com/list.m3u "}
	require.NoError(t, s.Validate())
	assert.Equal(t, "k", s.Key)
	assert.Equal(t, "http://example.com/list.m3u", s.URL)
	assert.Equal(t, ProvenanceCustom, s.From)
}

func TestEffectiveUserAgent(t *testing.T) {
	s := LiveSource{}
	assert.Equal(t, "fallback", s.EffectiveUserAgent("fallback"))
	s.UserAgent = "override"
	assert.Equal(t, "override", s.EffectiveUserAgent("fallback"))
}

func TestKVKeys(t *testing.T) {
	assert.Equal(t, "live_m3u_src", LiveM3UKey("src"))
	assert.Equal(t, "live_channels_src", LiveChannelsKey("src"))
}

func TestCategoryKey(t *testing.T) {
	a := CustomCategory{Name: "A", Type: "tv", Query: "anime"}
	b := CustomCategory{Name: "B", Type: "tv", Query: "anime"}
	c := CustomCategory{Name: "C", Type: "movie", Query: "anime"}

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), c.Key())
}
