package utils_test

import (
	"testing"

	"github.com/jrsteele09/mcc-client/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestValue(t *testing.T) {
	require.Equal(t, "", utils.Value[string](nil))
	require.Equal(t, 42, utils.Value(utils.Ptr(42)))
}

func TestSet(t *testing.T) {
	_, ok := utils.Set[string](nil)
	require.False(t, ok)

	_, ok = utils.Set(utils.Ptr(""))
	require.False(t, ok)

	v, ok := utils.Set(utils.Ptr("https://cdn.example.com/a.png"))
	require.True(t, ok)
	require.Equal(t, "https://cdn.example.com/a.png", v)
}
