package statestore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBoltStore_SetGetDeletePersists(t *testing.T) {
	dir := t.TempDir()
	s, err := NewBoltStore(dir, 0)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set("reduce", "session-1", `{"foo":"bar"}`, 0))
	v, ok, err := s.Get("reduce", "session-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"foo":"bar"}`, v)

	require.NoError(t, s.Delete("reduce", "session-1"))
	_, ok, err = s.Get("reduce", "session-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestBoltStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	s1, err := NewBoltStore(dir, 0)
	require.NoError(t, err)
	require.NoError(t, s1.Set("tailsample", "counter", "2", 0))
	require.NoError(t, s1.Close())

	s2, err := NewBoltStore(dir, 0)
	require.NoError(t, err)
	defer s2.Close()

	v, ok, err := s2.Get("tailsample", "counter")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2", v)
}

func TestBoltStore_SweepEvictsExpiredKeys(t *testing.T) {
	dir := t.TempDir()
	s, err := NewBoltStore(dir, 10*time.Millisecond)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Set("aggregate", "k", "v", 5*time.Millisecond))
	time.Sleep(60 * time.Millisecond)

	_, ok, err := s.Get("aggregate", "k")
	require.NoError(t, err)
	require.False(t, ok)
}
