package bulk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillRow(t *testing.T, g *Grid, id int, identifier string) {
	t.Helper()
	values := map[Field]string{
		FieldIdentifier: identifier,
		FieldGivenName:  "Ana",
		FieldFamilyName: "Gomez",
		FieldContact:    "0981123456",
		FieldLeader:     "leader-1",
	}
	for _, f := range Fields {
		_, err := g.EditField(id, f, values[f])
		require.NoError(t, err)
	}
}

func TestNewGrid(t *testing.T) {
	g := NewGrid(0)
	require.Equal(t, DefaultGridSize, g.Size())

	rows := g.Rows()
	for i, r := range rows {
		assert.Equal(t, i+1, r.ID)
		assert.False(t, r.Active)
		assert.False(t, r.HasData)
	}

	assert.Equal(t, 3, NewGrid(3).Size())
}

func TestGrid_EditAutoActivates(t *testing.T) {
	g := NewGrid(5)
	row, err := g.EditField(2, FieldGivenName, "Ana")
	require.NoError(t, err)
	assert.True(t, row.Active)
	assert.True(t, row.HasData)

	active := g.ActiveRows()
	require.Len(t, active, 1)
	assert.Equal(t, 2, active[0].ID)
}

func TestGrid_UnknownRow(t *testing.T) {
	g := NewGrid(3)
	_, err := g.EditField(4, FieldGivenName, "Ana")
	assert.ErrorIs(t, err, ErrUnknownRow)
	_, err = g.EditField(0, FieldGivenName, "Ana")
	assert.ErrorIs(t, err, ErrUnknownRow)
	_, err = g.RequestDeactivate(9)
	assert.ErrorIs(t, err, ErrUnknownRow)
}

func TestGrid_DeactivateEmptyRowIsImmediate(t *testing.T) {
	g := NewGrid(3)
	_, err := g.Activate(1)
	require.NoError(t, err)

	pending, err := g.RequestDeactivate(1)
	require.NoError(t, err)
	assert.False(t, pending)

	row, _ := g.Row(1)
	assert.False(t, row.Active)
	_, ok := g.Pending()
	assert.False(t, ok)
}

func TestGrid_DeactivateWithDataNeedsConfirmation(t *testing.T) {
	g := NewGrid(3)
	fillRow(t, g, 2, "123")
	before, _ := g.Row(2)

	pending, err := g.RequestDeactivate(2)
	require.NoError(t, err)
	assert.True(t, pending)

	after, _ := g.Row(2)
	assert.Equal(t, before, after, "request must not mutate the row")

	id, ok := g.Pending()
	assert.True(t, ok)
	assert.Equal(t, 2, id)

	require.NoError(t, g.ConfirmDeactivate(2))
	cleared, _ := g.Row(2)
	assert.Equal(t, NewRow(2), cleared)
	_, ok = g.Pending()
	assert.False(t, ok)
}

func TestGrid_CancelDeactivateLeavesRowUnchanged(t *testing.T) {
	g := NewGrid(3)
	fillRow(t, g, 1, "123")
	_, err := g.Validate()
	require.NoError(t, err)
	before, _ := g.Row(1)

	_, err = g.RequestDeactivate(1)
	require.NoError(t, err)
	g.CancelDeactivate()

	after, _ := g.Row(1)
	assert.Equal(t, before, after)
	assert.True(t, after.Active)
	assert.True(t, after.HasData)
	_, ok := g.Pending()
	assert.False(t, ok)
}

func TestGrid_ConfirmWithoutPending(t *testing.T) {
	g := NewGrid(3)
	fillRow(t, g, 1, "123")

	assert.ErrorIs(t, g.ConfirmDeactivate(1), ErrNoPendingConfirmation)

	_, err := g.RequestDeactivate(1)
	require.NoError(t, err)
	assert.ErrorIs(t, g.ConfirmDeactivate(2), ErrNoPendingConfirmation)

	row, _ := g.Row(1)
	assert.True(t, row.HasData)
}

func TestGrid_ValidateWritesErrorsOnActiveRowsOnly(t *testing.T) {
	g := NewGrid(4)
	fillRow(t, g, 1, "111")
	_, err := g.EditField(2, FieldIdentifier, "12a")
	require.NoError(t, err)

	valid, err := g.Validate()
	require.NoError(t, err)
	require.Len(t, valid, 1)
	assert.Equal(t, 1, valid[0].ID)

	row2, _ := g.Row(2)
	assert.Equal(t, "identifier must contain digits only", row2.Errors[FieldIdentifier])
	assert.NotEmpty(t, row2.Errors[FieldGivenName])

	row3, _ := g.Row(3)
	assert.Empty(t, row3.Errors)

	// any edit wipes the whole error set
	row2, err = g.EditField(2, FieldIdentifier, "12")
	require.NoError(t, err)
	assert.Empty(t, row2.Errors)
}

func TestGrid_ValidRowsExcludesDuplicates(t *testing.T) {
	g := NewGrid(4)
	fillRow(t, g, 1, "111")
	fillRow(t, g, 2, "222")
	fillRow(t, g, 3, "111")

	valid := g.ValidRows()
	require.Len(t, valid, 1)
	assert.Equal(t, 2, valid[0].ID)

	st := g.Stats()
	assert.Equal(t, Stats{Total: 4, Active: 3, Valid: 1, Invalid: 2}, st)
}

func TestGrid_StatsHasErrors(t *testing.T) {
	g := NewGrid(2)
	_, err := g.EditField(1, FieldGivenName, "A")
	require.NoError(t, err)
	assert.False(t, g.Stats().HasErrors)

	_, err = g.Validate()
	require.NoError(t, err)
	assert.True(t, g.Stats().HasErrors)
}

func TestGrid_TemporaryIdentifier(t *testing.T) {
	g := NewGrid(2, WithRandom(func(n int) int {
		assert.Equal(t, 9000, n)
		return 234
	}))

	id, err := g.GenerateTemporaryIdentifier(1)
	require.NoError(t, err)
	assert.Equal(t, "1234", id)

	row, _ := g.Row(1)
	assert.Equal(t, "1234", row.Identifier)
	assert.True(t, row.Active)
}

func TestGrid_TemporaryIdentifierRange(t *testing.T) {
	g := NewGrid(1)
	for i := 0; i < 50; i++ {
		id, err := g.GenerateTemporaryIdentifier(1)
		require.NoError(t, err)
		require.Len(t, id, 4)
		assert.GreaterOrEqual(t, id, "1000")
		assert.LessOrEqual(t, id, "9999")
	}
}

func TestGrid_FillDefaultContact(t *testing.T) {
	row, err := NewGrid(1).FillDefaultContact(1)
	require.NoError(t, err)
	assert.Equal(t, DefaultContact, row.Contact)

	row, err = NewGrid(1, WithDefaultContact("0991000000")).FillDefaultContact(1)
	require.NoError(t, err)
	assert.Equal(t, "0991000000", row.Contact)
	assert.True(t, row.Active)
}

func TestGrid_RowsAreSnapshots(t *testing.T) {
	g := NewGrid(1)
	_, err := g.EditField(1, FieldIdentifier, "x")
	require.NoError(t, err)
	_, err = g.Validate()
	require.NoError(t, err)

	rows := g.Rows()
	rows[0].Errors[FieldIdentifier] = "changed"
	rows[0].Identifier = "changed"

	row, _ := g.Row(1)
	assert.Equal(t, "x", row.Identifier)
	assert.Equal(t, "identifier must contain digits only", row.Errors[FieldIdentifier])
}
