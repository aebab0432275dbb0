package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCounter struct {
	n   int64
	err error
}

func (s stubCounter) CountDanglingLinks(context.Context) (int64, error) {
	return s.n, s.err
}

type recordingSink struct {
	values []int64
}

func (r *recordingSink) SetDanglingLinks(n int64) {
	r.values = append(r.values, n)
}

func TestIntegrityScheduler_RunOncePublishesCount(t *testing.T) {
	sink := &recordingSink{}
	s := NewIntegrityScheduler("", stubCounter{n: 3}, sink)

	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, []int64{3}, sink.values)
}

func TestIntegrityScheduler_RunOnceError(t *testing.T) {
	sink := &recordingSink{}
	s := NewIntegrityScheduler("", stubCounter{err: errors.New("db down")}, sink)

	_, err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Empty(t, sink.values)
}

func TestIntegrityScheduler_StartRejectsBadSpec(t *testing.T) {
	s := NewIntegrityScheduler("not a cron spec", stubCounter{}, nil)
	assert.Error(t, s.Start())
}

func TestIntegrityScheduler_StartStop(t *testing.T) {
	s := NewIntegrityScheduler("0 3 * * *", stubCounter{}, nil)
	require.NoError(t, s.Start())
	s.Stop()
}
