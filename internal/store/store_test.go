package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/finsight/finsight/internal/config"
)

func TestResolveDSN(t *testing.T) {
	dir := t.TempDir()

	cases := []struct {
		name string
		cfg  config.StoreConfig
		want string
	}{
		{"memory", config.StoreConfig{Path: ":memory:"}, ":memory:"},
		{"plain path", config.StoreConfig{Path: filepath.Join(dir, "finsight.db")}, "file:" + filepath.Join(dir, "finsight.db")},
		{"file url", config.StoreConfig{Path: "file:" + filepath.Join(dir, "nested", "finsight.db")}, "file:" + filepath.Join(dir, "nested", "finsight.db")},
		{"remote url", config.StoreConfig{URL: "libsql://db.example.turso.io"}, "libsql://db.example.turso.io"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := resolveDSN(tc.cfg)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestResolveDSNAddsAuthToken(t *testing.T) {
	dsn, err := resolveDSN(config.StoreConfig{
		URL:       "libsql://db.example.turso.io",
		AuthToken: "secret-token",
	})
	require.NoError(t, err)
	require.Contains(t, dsn, "authToken=secret-token")

	// An explicit token in the URL wins.
	dsn, err = resolveDSN(config.StoreConfig{
		URL:       "libsql://db.example.turso.io?authToken=explicit",
		AuthToken: "secret-token",
	})
	require.NoError(t, err)
	require.Contains(t, dsn, "authToken=explicit")
	require.NotContains(t, dsn, "secret-token")
}

func TestResolveDSNRequiresPathOrURL(t *testing.T) {
	_, err := resolveDSN(config.StoreConfig{})
	require.Error(t, err)
}

func TestParseRiskLevel(t *testing.T) {
	for input, want := range map[string]RiskLevel{
		"low":        RiskLow,
		"Moderate":   RiskModerate,
		" HIGH ":     RiskHigh,
		"aggressive": RiskAggressive,
	} {
		got, err := ParseRiskLevel(input)
		require.NoError(t, err, "input %q", input)
		require.Equal(t, want, got)
	}

	for _, input := range []string{"", "extreme", "medium"} {
		_, err := ParseRiskLevel(input)
		require.Error(t, err, "input %q", input)
	}
}
