package notify

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func note(id string) Notification {
	return Notification{ID: id, Type: TypeVisitor, Title: "t " + id}
}

func idsOf(ns []Notification) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.ID
	}
	return out
}

func TestStoreAddPrepends(t *testing.T) {
	s := NewStore(10)
	s.Add(note("a"))
	s.Add(note("b"))
	s.Add(note("c"))

	require.Equal(t, []string{"c", "b", "a"}, idsOf(s.List()))
	require.Equal(t, 3, s.UnreadCount())
	require.Equal(t, 3, s.Len())
}

func TestStoreEvictsOldest(t *testing.T) {
	s := NewStore(3)
	for i := 0; i < 3; i++ {
		_, evicted := s.Add(note(fmt.Sprint(i)))
		require.False(t, evicted)
	}

	old, evicted := s.Add(note("3"))
	require.True(t, evicted)
	require.Equal(t, "0", old.ID)
	require.Equal(t, []string{"3", "2", "1"}, idsOf(s.List()))
	require.Equal(t, 3, s.Len())
	require.Equal(t, 3, s.Cap())
}

func TestStoreMarkRead(t *testing.T) {
	s := NewStore(0)
	require.Equal(t, DefaultCapacity, s.Cap())
	s.Add(note("a"))
	s.Add(note("b"))

	require.True(t, s.MarkRead("a"))
	require.False(t, s.MarkRead("missing"))
	require.Equal(t, 1, s.UnreadCount())

	list := s.List()
	require.False(t, list[0].Read)
	require.True(t, list[1].Read)
}

func TestStoreMarkAllReadKeepsOrder(t *testing.T) {
	s := NewStore(5)
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		s.Add(note(id))
	}
	s.MarkRead("f")
	before := idsOf(s.List())

	require.Equal(t, 4, s.MarkAllRead())
	require.Equal(t, 0, s.UnreadCount())
	require.Equal(t, before, idsOf(s.List()))
	require.Equal(t, 5, s.Len())
}

func TestStoreListIsACopy(t *testing.T) {
	s := NewStore(2)
	s.Add(note("a"))
	list := s.List()
	list[0].Read = true
	require.Equal(t, 1, s.UnreadCount())
}

func TestStoreClear(t *testing.T) {
	s := NewStore(2)
	s.Add(note("a"))
	s.Clear()
	require.Empty(t, s.List())
	s.Add(note("b"))
	require.Equal(t, []string{"b"}, idsOf(s.List()))
}
