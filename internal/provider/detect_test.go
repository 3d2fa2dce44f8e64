package provider_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/coinfund/internal/output"
	"github.com/mrz1836/coinfund/internal/provider"
)

func TestDetector_Detect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		env      any
		expected provider.Capability
		notice   string
		level    output.Level
	}{
		{"nothing installed", nil, provider.Unavailable, provider.NoticeInstallWallet, output.LevelInfo},
		{"wallet provider", newWalletStub(true), provider.Available, "", ""},
		{"provider that is not a wallet", newWalletStub(false), provider.Unavailable, provider.NoticeNotAWallet, output.LevelInfo},
		{"provider without identification", bareProvider{provider.NewEmitter()}, provider.Unavailable, provider.NoticeNotAWallet, output.LevelInfo},
		{"legacy send-only object", legacyStub{}, provider.Unavailable, provider.NoticeLegacyWallet, output.LevelWarn},
		{"unrelated object", "window", provider.Unavailable, provider.NoticeInstallWallet, output.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := &output.Recorder{}
			d := provider.NewDetector(func() any { return tt.env }, rec)
			assert.Equal(t, provider.Unknown, d.Capability())

			assert.Equal(t, tt.expected, d.Detect())
			assert.Equal(t, tt.expected, d.Capability())

			p, ok := d.Provider()
			assert.Equal(t, tt.expected == provider.Available, ok)
			if ok {
				assert.Same(t, tt.env, p)
			}

			notices := rec.Notices()
			if tt.notice == "" {
				assert.Empty(t, notices)
				return
			}
			require.Len(t, notices, 1)
			assert.Equal(t, tt.level, notices[0].Level)
			assert.Equal(t, tt.notice, notices[0].Message)
		})
	}
}

func TestDetector_InspectsOnce(t *testing.T) {
	t.Parallel()

	lookups := 0
	rec := &output.Recorder{}
	d := provider.NewDetector(func() any {
		lookups++
		return nil
	}, rec)

	for range 5 {
		assert.Equal(t, provider.Unavailable, d.Detect())
		_, ok := d.Provider()
		assert.False(t, ok)
	}
	assert.Equal(t, 1, lookups)
	assert.Len(t, rec.Notices(), 1)
}

func TestDetector_NilLookupAndNotifier(t *testing.T) {
	t.Parallel()
	d := provider.NewDetector(nil, nil)
	assert.Equal(t, provider.Unavailable, d.Detect())
	assert.Equal(t, "unavailable", d.Capability().String())
}
