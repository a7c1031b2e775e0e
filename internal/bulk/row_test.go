package bulk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRow_SetFieldAutoActivates(t *testing.T) {
	for _, f := range Fields {
		t.Run(string(f), func(t *testing.T) {
			row := NewRow(3)
			require.False(t, row.Active)
			require.False(t, row.HasData)

			got, err := row.SetField(f, "x")
			require.NoError(t, err)
			assert.True(t, got.HasData)
			assert.True(t, got.Active)
			assert.Equal(t, "x", got.Get(f))
			assert.Equal(t, 3, got.ID)

			// receiver untouched
			assert.False(t, row.Active)
		})
	}
}

func TestRow_SetFieldClearsErrors(t *testing.T) {
	row := NewRow(1)
	row.Active = true
	row.Errors = FieldErrors{FieldIdentifier: "identifier is required", FieldContact: "contact number is required"}

	got, err := row.SetField(FieldGivenName, "Ana")
	require.NoError(t, err)
	assert.Empty(t, got.Errors)
}

func TestRow_ErasingDataKeepsActive(t *testing.T) {
	row, err := NewRow(1).SetField(FieldGivenName, "Ana")
	require.NoError(t, err)

	row, err = row.SetField(FieldGivenName, "")
	require.NoError(t, err)
	assert.False(t, row.HasData)
	assert.True(t, row.Active)
}

func TestRow_SetFieldUnknown(t *testing.T) {
	row := NewRow(1)
	got, err := row.SetField(Field("age"), "30")
	require.ErrorIs(t, err, ErrUnknownField)
	assert.Equal(t, row, got)
}

func TestRow_ClearIdempotent(t *testing.T) {
	row := Row{
		ID:         7,
		Active:     true,
		HasData:    true,
		Identifier: "123",
		GivenName:  "Ana",
		FamilyName: "Gomez",
		Contact:    "0981123456",
		LeaderID:   "leader-1",
		Errors:     FieldErrors{FieldIdentifier: "x"},
	}

	once := row.Clear()
	twice := once.Clear()

	assert.Equal(t, once, twice)
	assert.Equal(t, NewRow(7), once)
	assert.False(t, once.Active)
	assert.False(t, once.HasData)
	assert.Empty(t, once.Errors)
}

func TestParseField(t *testing.T) {
	f, err := ParseField("contact")
	require.NoError(t, err)
	assert.Equal(t, FieldContact, f)

	_, err = ParseField("Contact")
	assert.ErrorIs(t, err, ErrUnknownField)
}
