package utils_test

import (
	"testing"

	"github.com/craftyxhub/craftyx-portal/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestValue(t *testing.T) {
	require.Equal(t, 0, utils.Value[int](nil))
	require.Equal(t, 7, utils.Value(utils.Ptr(7)))
	require.Equal(t, "", utils.Value[string](nil))
}

func TestValueOr(t *testing.T) {
	require.Equal(t, 3, utils.ValueOr(nil, 3))
	require.Equal(t, 0, utils.ValueOr(utils.Ptr(0), 3))
}
