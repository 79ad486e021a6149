package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/fluxion/pkg/finalizer"
)

func TestMetadata_MergeFinalizersAbsorbsAndClears(t *testing.T) {
	notifier, done := finalizer.New()
	f1 := finalizer.NewEventFinalizer(notifier)
	f2 := finalizer.NewEventFinalizer(notifier)

	survivor := NewMetadata()
	survivor.AddFinalizer(f1)

	consumed := NewMetadata()
	consumed.AddFinalizer(f2)

	survivor.MergeFinalizers(&consumed)

	assert.Len(t, survivor.Finalizers(), 2)
	assert.Empty(t, consumed.Finalizers())

	survivor.Release()
	require.Equal(t, finalizer.Delivered, <-done)
}

func TestMetadata_UpdateStatusReachesAllFinalizers(t *testing.T) {
	notifierA, doneA := finalizer.New()
	notifierB, doneB := finalizer.New()
	fa := finalizer.NewEventFinalizer(notifierA)
	fb := finalizer.NewEventFinalizer(notifierB)

	m := NewMetadata()
	m.AddFinalizer(fa)
	m.AddFinalizer(fb)

	m.UpdateStatus(finalizer.Errored)
	m.Release()

	assert.Equal(t, finalizer.Errored, <-doneA)
	assert.Equal(t, finalizer.Errored, <-doneB)
}

func TestMetadata_SetGetSideChannelFields(t *testing.T) {
	m := NewMetadata()
	m.Set("original_type", String("sum"))
	m.Set("data_provider", String("otlp"))

	v, ok := m.Get("original_type")
	require.True(t, ok)
	s, _ := v.AsString()
	assert.Equal(t, "sum", s)

	_, ok = m.Get("missing")
	assert.False(t, ok)
}

func TestMetadata_CloneSharesFinalizersCopiesFields(t *testing.T) {
	notifier, done := finalizer.New()
	f := finalizer.NewEventFinalizer(notifier)

	m := NewMetadata()
	m.AddFinalizer(f)
	m.Set("k", String("v"))

	clone := m.Clone()
	clone.Set("k", String("changed"))

	orig, _ := m.Get("k")
	origStr, _ := orig.AsString()
	assert.Equal(t, "v", origStr, "clone must not mutate original's fields map")

	assert.Len(t, clone.Finalizers(), 1)

	// Releasing either copy releases the one shared finalizer reference.
	clone.Release()
	assert.Equal(t, finalizer.Delivered, <-done)
}
