package room

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidCard(t *testing.T) {
	for _, v := range Deck {
		assert.True(t, ValidCard(v), "deck value %d", v)
	}
	for _, v := range []CardValue{0, 4, 6, 7, 100, 999, -1} {
		assert.False(t, ValidCard(v), "non-deck value %d", v)
	}
}

func TestAllSelected(t *testing.T) {
	tests := []struct {
		name       string
		selections map[string]*CardValue
		want       bool
	}{
		{name: "empty room", selections: map[string]*CardValue{}, want: false},
		{name: "single member unselected", selections: map[string]*CardValue{"u1": nil}, want: false},
		{name: "single member selected", selections: map[string]*CardValue{"u1": card(5)}, want: true},
		{name: "one of two selected", selections: map[string]*CardValue{"u1": card(5), "u2": nil}, want: false},
		{name: "all of two selected", selections: map[string]*CardValue{"u1": card(5), "u2": card(8)}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			r := reg.GetOrCreate("ABC123")
			for id, sel := range tt.selections {
				reg.AddUser("ABC123", &User{ID: id, Name: id})
				if sel != nil {
					_, ok := r.ApplySelection(id, sel, 1000)
					require.True(t, ok)
				}
			}
			assert.Equal(t, tt.want, r.AllSelected())
		})
	}
}

func TestAverageCountsOnlySelectedMembers(t *testing.T) {
	reg := NewRegistry()
	r := reg.GetOrCreate("ABC123")
	reg.AddUser("ABC123", &User{ID: "u1", Name: "Alice"})
	reg.AddUser("ABC123", &User{ID: "u2", Name: "Bob"})
	reg.AddUser("ABC123", &User{ID: "u3", Name: "Carol"})

	_, ok := r.Average()
	assert.False(t, ok, "no selections yet")

	r.ApplySelection("u1", card(3), 1000)
	r.ApplySelection("u2", card(5), 1000)

	avg, ok := r.Average()
	require.True(t, ok)
	assert.InDelta(t, 4.0, avg, 1e-9, "unselected member must not count")
}

func TestAverageIgnoresRevealedFlag(t *testing.T) {
	reg := NewRegistry()
	r := reg.GetOrCreate("ABC123")
	reg.AddUser("ABC123", &User{ID: "u1", Name: "Alice"})
	reg.AddUser("ABC123", &User{ID: "u2", Name: "Bob"})
	r.ApplySelection("u1", card(8), 1000)
	res, _ := r.ApplySelection("u2", card(13), 2000)

	before, ok := r.Average()
	require.True(t, ok)

	_, ok = r.FinishCountdown(res.CountdownStartedAt)
	require.True(t, ok)

	after, ok := r.Average()
	require.True(t, ok)
	assert.Equal(t, before, after)
}

func TestApplySelectionUnknownUser(t *testing.T) {
	reg := NewRegistry()
	r := reg.GetOrCreate("ABC123")
	_, ok := r.ApplySelection("ghost", card(5), 1000)
	assert.False(t, ok)
}

func TestApplySelectionClearsWithNil(t *testing.T) {
	reg := NewRegistry()
	r := reg.GetOrCreate("ABC123")
	reg.AddUser("ABC123", &User{ID: "u1", Name: "Alice"})

	r.ApplySelection("u1", card(5), 1000)
	assert.True(t, r.AllSelected())

	res, ok := r.ApplySelection("u1", nil, 2000)
	require.True(t, ok)
	assert.False(t, r.AllSelected())
	assert.False(t, res.View.Users[0].HasSelectedCard)
}

func TestApplySelectionSingleMemberNeverArms(t *testing.T) {
	reg := NewRegistry()
	r := reg.GetOrCreate("ABC123")
	reg.AddUser("ABC123", &User{ID: "u1", Name: "Alice"})

	res, ok := r.ApplySelection("u1", card(5), 1000)
	require.True(t, ok)
	assert.False(t, res.CountdownArmed)
	assert.EqualValues(t, 0, r.CountdownStartedAt())
}

func TestApplySelectionArmsCountdownExactlyOnce(t *testing.T) {
	reg := NewRegistry()
	r := reg.GetOrCreate("ABC123")
	reg.AddUser("ABC123", &User{ID: "u1", Name: "Alice"})
	reg.AddUser("ABC123", &User{ID: "u2", Name: "Bob"})

	res, _ := r.ApplySelection("u1", card(5), 1000)
	assert.False(t, res.CountdownArmed, "not all selected yet")

	res, _ = r.ApplySelection("u2", card(8), 2000)
	require.True(t, res.CountdownArmed)
	assert.EqualValues(t, 2000, res.CountdownStartedAt)

	// Selections keep flowing during the countdown but must not re-arm.
	res, _ = r.ApplySelection("u1", card(13), 3000)
	assert.False(t, res.CountdownArmed)
	assert.EqualValues(t, 2000, r.CountdownStartedAt())
}

func TestStartCountdownOnlyWhileOpen(t *testing.T) {
	reg := NewRegistry()
	r := reg.GetOrCreate("ABC123")
	reg.AddUser("ABC123", &User{ID: "u1", Name: "Alice"})

	startedAt, ok := r.StartCountdown(1000)
	require.True(t, ok)
	assert.EqualValues(t, 1000, startedAt)

	_, ok = r.StartCountdown(2000)
	assert.False(t, ok, "already counting down")

	_, ok = r.FinishCountdown(startedAt)
	require.True(t, ok)

	_, ok = r.StartCountdown(3000)
	assert.False(t, ok, "already revealed")
}

func TestFinishCountdownChecksFreshness(t *testing.T) {
	reg := NewRegistry()
	r := reg.GetOrCreate("ABC123")
	reg.AddUser("ABC123", &User{ID: "u1", Name: "Alice"})

	startedAt, ok := r.StartCountdown(1000)
	require.True(t, ok)

	_, ok = r.FinishCountdown(999)
	assert.False(t, ok, "stale timestamp")
	assert.False(t, r.Revealed())

	_, ok = r.FinishCountdown(0)
	assert.False(t, ok)

	view, ok := r.FinishCountdown(startedAt)
	require.True(t, ok)
	assert.True(t, view.IsRevealed)

	_, ok = r.FinishCountdown(startedAt)
	assert.False(t, ok, "already revealed")
}

func TestFinishCountdownNoopAfterReset(t *testing.T) {
	reg := NewRegistry()
	r := reg.GetOrCreate("ABC123")
	reg.AddUser("ABC123", &User{ID: "u1", Name: "Alice"})

	startedAt, ok := r.StartCountdown(1000)
	require.True(t, ok)

	_, ok = reg.ResetRound("ABC123")
	require.True(t, ok)

	_, ok = r.FinishCountdown(startedAt)
	assert.False(t, ok)
	assert.False(t, r.Revealed())
}

func TestViewHidesSelectionsUntilRevealed(t *testing.T) {
	reg := NewRegistry()
	r := reg.GetOrCreate("ABC123")
	reg.AddUser("ABC123", &User{ID: "u1", Name: "Alice"})
	reg.AddUser("ABC123", &User{ID: "u2", Name: "Bob"})
	r.ApplySelection("u1", card(8), 1000)

	view := r.View()
	require.Len(t, view.Users, 2)
	assert.False(t, view.IsRevealed)
	assert.Nil(t, view.Average)
	assert.True(t, view.Users[0].HasSelectedCard)
	assert.Nil(t, view.Users[0].SelectedCard, "selection hidden before reveal")
	assert.False(t, view.Users[1].HasSelectedCard)

	res, _ := r.ApplySelection("u2", card(13), 2000)
	view, ok := r.FinishCountdown(res.CountdownStartedAt)
	require.True(t, ok)
	assert.True(t, view.IsRevealed)
	require.NotNil(t, view.Users[0].SelectedCard)
	assert.EqualValues(t, 8, *view.Users[0].SelectedCard)
	require.NotNil(t, view.Users[1].SelectedCard)
	assert.EqualValues(t, 13, *view.Users[1].SelectedCard)
	require.NotNil(t, view.Average)
	assert.InDelta(t, 10.5, *view.Average, 1e-9)
}

func TestViewListsUsersInJoinOrder(t *testing.T) {
	reg := NewRegistry()
	r := reg.GetOrCreate("ABC123")
	names := []string{"Alice", "Bob", "Carol", "Dave"}
	for _, name := range names {
		reg.AddUser("ABC123", &User{ID: name, Name: name})
	}

	view := r.View()
	require.Len(t, view.Users, len(names))
	for i, name := range names {
		assert.Equal(t, name, view.Users[i].Name)
	}
}
