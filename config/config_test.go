// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	c := Default([]string{"127.0.0.1:9000"})
	require.NoError(t, c.Valid())
}

func TestGenesisConfigIsFirstAndValid(t *testing.T) {
	c := Genesis()
	require.True(t, c.First)
	require.NoError(t, c.Valid())
}

func TestValidRejectsSafeSectionSizeBelowElderSize(t *testing.T) {
	c := Default(nil)
	c.Network.SafeSectionSize = c.Network.ElderSize - 1
	require.ErrorIs(t, c.Valid(), ErrSafeSectionSizeTooSmall)
}

func TestValidRejectsDevMinSectionSizeBelowElderSize(t *testing.T) {
	c := Default(nil)
	c.Dev.MinSectionSize = c.Network.ElderSize - 1
	require.ErrorIs(t, c.Valid(), ErrMinSectionSizeTooSmall)
}

func TestEffectiveSafeSectionSizePrefersDevOverride(t *testing.T) {
	c := Default(nil)
	require.Equal(t, c.Network.SafeSectionSize, c.EffectiveSafeSectionSize())

	c.Dev.MinSectionSize = c.Network.ElderSize
	require.Equal(t, c.Network.ElderSize, c.EffectiveSafeSectionSize())
}
