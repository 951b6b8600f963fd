package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunRequiresExperiment(t *testing.T) {
	t.Setenv("EXPERIMENT", "")
	t.Setenv("CP_MAXRETRIES", "2")

	err := run(context.Background(), "/src", "/dst")
	require.ErrorContains(t, err, "EXPERIMENT")
}

func TestRunRequiresCopyRetries(t *testing.T) {
	t.Setenv("EXPERIMENT", "testexp")
	t.Setenv("CP_MAXRETRIES", "")

	err := run(context.Background(), "/src", "/dst")
	require.ErrorContains(t, err, "CP_MAXRETRIES")
}

func TestRunRejectsMalformedCopyRetries(t *testing.T) {
	t.Setenv("EXPERIMENT", "testexp")
	t.Setenv("CP_MAXRETRIES", "many")

	err := run(context.Background(), "/src", "/dst")
	require.ErrorContains(t, err, "invalid CP_MAXRETRIES")
}
