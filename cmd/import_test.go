package cmd

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{"election_date=2021-05-06", "election_id=local.sheffield.2021-05-06", "tag=a=b"})
	require.NoError(t, err)
	assert.Equal(t, url.Values{
		"election_date": {"2021-05-06"},
		"election_id":   {"local.sheffield.2021-05-06"},
		"tag":           {"a=b"},
	}, params)
}

func TestParseParamsRejectsMissingKey(t *testing.T) {
	for _, raw := range []string{"election_date", "=2021-05-06"} {
		_, err := parseParams([]string{raw})
		assert.Error(t, err, raw)
	}
}

func TestParseParamsEmpty(t *testing.T) {
	params, err := parseParams(nil)
	require.NoError(t, err)
	assert.Empty(t, params)
}
