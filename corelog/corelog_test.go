// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package corelog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNoopLoggerNeverPanics(t *testing.T) {
	l := Noop()
	l.Info("hello", String("k", "v"))
	l.Warn("warn", Int("n", 1))
	l.Error("err", Err(nil))
	l.With(String("component", "test")).Debug("debug")
	require.False(t, l.Enabled(InfoLevel))
}

func TestDevelopmentLoggerEnabledAtDebug(t *testing.T) {
	l := Development()
	require.True(t, l.Enabled(DebugLevel))
}

func TestWithReturnsIndependentLogger(t *testing.T) {
	l := Development()
	child := l.With(String("section", "abc"))
	require.NotNil(t, child)
	child.Info("scoped message")
}
