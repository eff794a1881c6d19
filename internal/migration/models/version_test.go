package models_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"namemint/internal/migration/models"
)

func TestVersionCompareTotalOrder(t *testing.T) {
	ordered := []models.Version{
		{Major: 0, Minor: 0, Patch: 0},
		{Major: 0, Minor: 0, Patch: 9},
		{Major: 0, Minor: 1, Patch: 0},
		{Major: 0, Minor: 9, Patch: 9},
		{Major: 1, Minor: 0, Patch: 0},
		{Major: 1, Minor: 0, Patch: 1},
		{Major: 2, Minor: 0, Patch: 0},
	}

	for i, a := range ordered {
		require.Equal(t, 0, a.Compare(a), "reflexive %s", a)
		for j, b := range ordered {
			got := a.Compare(b)
			switch {
			case i < j:
				require.Equal(t, -1, got, "%s vs %s", a, b)
			case i > j:
				require.Equal(t, 1, got, "%s vs %s", a, b)
			default:
				require.Equal(t, 0, got, "%s vs %s", a, b)
			}
			require.Equal(t, -b.Compare(a), got, "antisymmetric %s vs %s", a, b)
		}
	}
}

func TestValidateUpgrade(t *testing.T) {
	v1 := models.Version{Major: 1}
	v2 := models.Version{Major: 2}

	require.NoError(t, models.ValidateUpgrade(v1, v2))
	require.NoError(t, models.ValidateUpgrade(v1, v1))
	require.Error(t, models.ValidateUpgrade(v2, v1))
}

func TestParseVersion(t *testing.T) {
	v, err := models.ParseVersion("1.2.3")
	require.NoError(t, err)
	require.Equal(t, models.Version{Major: 1, Minor: 2, Patch: 3}, v)
	require.Equal(t, "1.2.3", v.String())

	for _, bad := range []string{"", "1.2", "1.2.3.4", "a.b.c", "1.-2.3"} {
		_, err := models.ParseVersion(bad)
		require.Error(t, err, "input %q", bad)
	}
}
