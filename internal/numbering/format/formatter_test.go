package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	cases := []struct {
		template string
		seq      int64
		want     string
	}{
		{template: "{PREFIX}/{YEAR}/{TYPE}/{NUMBER}", seq: 7, want: "ACME/2026/INV/7"},
		{template: "{PREFIX}/{YEAR}/{TYPE}/{NUMBER:4}", seq: 7, want: "ACME/2026/INV/0007"},
		{template: "{TYPE}-{NUMBER:3}", seq: 12345, want: "INV-12345"},
		{template: "{NUMBER}", seq: 1, want: "1"},
	}
	for _, tc := range cases {
		got, err := Render(tc.template, "ACME", "INV", 2026, tc.seq)
		require.NoError(t, err, tc.template)
		assert.Equal(t, tc.want, got)
	}
}

func TestRender_Errors(t *testing.T) {
	_, err := Render("", "ACME", "INV", 2026, 1)
	assert.Error(t, err)

	_, err = Render("{PREFIX}/{YEAR}", "ACME", "INV", 2026, 1)
	assert.Error(t, err, "missing number token")

	_, err = Render("{PREFIX}/{NUMBER}/{MONTH}", "ACME", "INV", 2026, 1)
	assert.Error(t, err, "unknown token")

	_, err = Render("{NUMBER:0}", "ACME", "INV", 2026, 1)
	assert.Error(t, err)

	_, err = Render("{NUMBER}", "ACME", "INV", 2026, 0)
	assert.Error(t, err)
}
