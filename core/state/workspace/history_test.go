package workspace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffAndReplayState(t *testing.T) {
	s0 := StateBlob{}
	s1 := StateBlob{KeyTaskDefinitionArn: "arn:td"}
	s2 := StateBlob{KeyTaskDefinitionArn: "arn:td", KeyTaskArn: "arn:task"}
	s3 := StateBlob{KeyTaskDefinitionArn: "arn:td", KeyError: "RESOURCE:MEMORY"}

	var patches [][]byte
	for _, pair := range [][2]StateBlob{{s0, s1}, {s1, s2}, {s2, s3}} {
		p, err := DiffState(pair[0], pair[1])
		require.NoError(t, err)
		require.NotNil(t, p)
		patches = append(patches, p)
	}

	replayed, err := ReplayState(nil, patches)
	require.NoError(t, err)
	assert.Equal(t, s3, replayed)

	partial, err := ReplayState(nil, patches[:2])
	require.NoError(t, err)
	assert.Equal(t, s2, partial)
}

func TestDiffStateEqual(t *testing.T) {
	p, err := DiffState(StateBlob{"a": "1"}, StateBlob{"a": "1"})
	require.NoError(t, err)
	assert.Nil(t, p)
}
