package harness

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everde3/ai-agent-framework-prototype-sub000/internal/report"
)

func TestSummary_Error(t *testing.T) {
	r := &Result{Err: report.NewError(report.ErrCodeUnknownField, "x", "unknown")}
	assert.Equal(t, "scenario: s\nerror: UNKNOWN_FIELD\n", string(Summary("s", r)))

	r = &Result{Err: errors.New("boom")}
	assert.Equal(t, "scenario: s\nerror: ERROR\n", string(Summary("s", r)))
}

func TestCompareGolden(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "golden")

	ok, err := CompareGolden(dir, "case", []byte("a\n"), false)
	require.NoError(t, err)
	assert.False(t, ok, "missing golden file is a mismatch")

	ok, err = CompareGolden(dir, "case", []byte("a\n"), true)
	require.NoError(t, err)
	assert.True(t, ok)

	data, err := os.ReadFile(filepath.Join(dir, "case.golden"))
	require.NoError(t, err)
	assert.Equal(t, "a\n", string(data))

	ok, err = CompareGolden(dir, "case", []byte("a\n"), false)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CompareGolden(dir, "case", []byte("b\n"), false)
	require.NoError(t, err)
	assert.False(t, ok)
}
