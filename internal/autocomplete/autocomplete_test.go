package autocomplete

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScoreCapsAtTwoAboveBase(t *testing.T) {
	require.InDelta(t, 1.3, Score("abc"), 0.001)
	require.InDelta(t, 3.0, Score(string(make([]byte, 40))), 0.001)
}

func TestIsUnknownCommandDetection(t *testing.T) {
	require.True(t, isUnknownCommand(errors.New("ERR unknown command 'FT.SUGADD'")))
	require.False(t, isUnknownCommand(errors.New("ERR wrong number of arguments")))
	require.False(t, isUnknownCommand(nil))
}
