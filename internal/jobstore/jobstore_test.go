// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package jobstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilStoreIsANoop(t *testing.T) {
	var s *Store
	id, err := s.RecordStart(context.Background(), "lesson1")
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.NoError(t, s.RecordState(context.Background(), "missing", "populating"))
	assert.NoError(t, s.RecordComplete(context.Background(), "missing", 1000, 1010, false, 0))
	assert.NoError(t, s.RecordFailure(context.Background(), "missing", errors.New("boom")))
}

func TestRecordStartThenCompleteRoundTrip(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)

	id, err := s.RecordStart(context.Background(), "lesson1")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, s.RecordState(context.Background(), id, "populating"))
	require.NoError(t, s.RecordComplete(context.Background(), id, 5000, 5010, true, 2))

	run, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "complete", run.State)
	assert.Equal(t, int64(5000), run.PlannedTotalMs)
	assert.Equal(t, int64(5010), run.ActualMs)
	assert.True(t, run.ScaleApplied)
	assert.Equal(t, 2, run.WarningCount)
}

func TestRecordFailureSetsErrorMessage(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)

	id, err := s.RecordStart(context.Background(), "lesson2")
	require.NoError(t, err)

	require.NoError(t, s.RecordFailure(context.Background(), id, errors.New("missing source file")))

	run, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "failed", run.State)
	assert.Equal(t, "missing source file", run.ErrorMessage)
}

func TestRecentListsEveryRecordedRun(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)

	firstID, err := s.RecordStart(context.Background(), "lesson1")
	require.NoError(t, err)
	secondID, err := s.RecordStart(context.Background(), "lesson2")
	require.NoError(t, err)

	runs, err := s.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	ids := []string{runs[0].ID, runs[1].ID}
	assert.Contains(t, ids, firstID)
	assert.Contains(t, ids, secondID)
}
