package collection

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"rsd-cli/internal/model"
)

func TestMove_LastToFirst(t *testing.T) {
	t.Parallel()
	list := []model.Keyword{kw("a", "alpha", 1), kw("b", "beta", 2), kw("c", "gamma", 3)}

	got, err := Move(list, 2, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"gamma", "alpha", "beta"}, keywordTexts(got))
	require.Equal(t, []int{1, 2, 3}, positionsOf(got))

	// old1->2, old2->3, old3->1
	byID := map[string]int{}
	for _, it := range got {
		byID[it.ID] = it.Position
	}
	require.Equal(t, map[string]int{"a": 2, "b": 3, "c": 1}, byID)

	// Input is not modified.
	require.Equal(t, []int{1, 2, 3}, positionsOf(list))
	require.Equal(t, "alpha", list[0].Keyword)
}

func TestContiguous(t *testing.T) {
	t.Parallel()
	require.True(t, Contiguous([]model.Keyword{}))
	require.True(t, Contiguous([]model.Keyword{kw("a", "alpha", 1), kw("b", "beta", 2)}))
	require.False(t, Contiguous([]model.Keyword{kw("b", "beta", 2), kw("c", "gamma", 3)}))
	require.False(t, Contiguous([]model.Keyword{kw("a", "alpha", 1), kw("b", "beta", 1)}))
}

func TestMove_FirstToLast(t *testing.T) {
	t.Parallel()
	list := []model.Keyword{kw("a", "alpha", 1), kw("b", "beta", 2), kw("c", "gamma", 3)}
	got, err := Move(list, 0, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"beta", "gamma", "alpha"}, keywordTexts(got))
}

func TestMove_OutOfRange(t *testing.T) {
	t.Parallel()
	_, err := Move([]model.Keyword{kw("a", "alpha", 1)}, 0, 1)
	if !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange; got %v", err)
	}
}

func TestInsertAndRemove_ShiftPositions(t *testing.T) {
	t.Parallel()
	list := []model.Keyword{kw("a", "alpha", 1), kw("b", "beta", 2)}

	ins := Insert(list, kw("", "new", 0), 1)
	require.Equal(t, []string{"alpha", "new", "beta"}, keywordTexts(ins))
	require.Equal(t, []int{1, 2, 3}, positionsOf(ins))

	clamped := Insert(list, kw("", "tail", 0), 99)
	require.Equal(t, "tail", clamped[2].Keyword)
	require.Equal(t, 3, clamped[2].Position)

	rem := Remove(ins, 0)
	require.Equal(t, []string{"new", "beta"}, keywordTexts(rem))
	require.Equal(t, []int{1, 2}, positionsOf(rem))
}

func TestPositionsStayContiguous_RandomOps(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(7))
	s := NewStore[model.Keyword](nil)

	for step := 0; step < 500; step++ {
		n := s.Len()
		switch op := rng.Intn(3); {
		case op == 0 || n == 0:
			_, err := s.UpsertAt(kw("", "x", 0), -1)
			require.NoError(t, err)
		case op == 1:
			_, err := s.RemoveAt(rng.Intn(n))
			require.NoError(t, err)
		default:
			moved, err := Move(s.List(), rng.Intn(n), rng.Intn(n))
			require.NoError(t, err)
			s.Replace(moved)
		}
		for i, it := range s.List() {
			if it.Position != i+1 {
				t.Fatalf("step %d: expected position %d at index %d; got %d", step, i+1, i, it.Position)
			}
		}
	}
}

func TestStore_UpsertAtReplacesSlot(t *testing.T) {
	t.Parallel()
	s := NewStore([]model.Keyword{kw("a", "alpha", 1), kw("b", "beta", 2)})

	idx, err := s.UpsertAt(kw("b", "BETA", 7), 1)
	require.NoError(t, err)
	require.Equal(t, 1, idx)
	got, _ := s.At(1)
	require.Equal(t, "BETA", got.Keyword)
	require.Equal(t, 2, got.Position)

	_, err = s.UpsertAt(kw("z", "zeta", 0), 5)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestPositionsChanged(t *testing.T) {
	t.Parallel()
	before := []model.Keyword{kw("a", "alpha", 1), kw("c", "gamma", 3)}
	require.True(t, PositionsChanged(before, Renumber(before)))
	require.False(t, PositionsChanged(before[:1], Renumber(before[:1])))
}
