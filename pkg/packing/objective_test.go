package packing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObjectiveRoundTrip(t *testing.T) {
	for objective, token := range objectiveTokens {
		parsed, err := ParseObjective(token)
		require.NoError(t, err)
		assert.Equal(t, objective, parsed)
		assert.Equal(t, token, parsed.String())
	}
}

func TestParseObjectiveAliases(t *testing.T) {
	o, err := ParseObjective("VBPP")
	require.NoError(t, err)
	assert.Equal(t, ObjectiveVariableSizedBinPacking, o)
}

func TestParseObjectiveUnknown(t *testing.T) {
	_, err := ParseObjective("minimize-vibes")
	assert.True(t, errors.Is(err, ErrInvalidInput))
}
