package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// ItemMapping Tests
// ---------------------------------------------------------------------------

func TestNewItemMapping(t *testing.T) {
	t.Run("Valid mapping creation", func(t *testing.T) {
		m, err := NewItemMapping("Wheat Flour")
		require.NoError(t, err)
		assert.Equal(t, "Wheat Flour", m.CanonicalName)
		assert.True(t, m.Active)
		assert.Empty(t, m.Aliases)
		assert.Equal(t, 1, m.Version)
	})

	t.Run("Trims surrounding whitespace", func(t *testing.T) {
		m, err := NewItemMapping("  Wheat Flour  ")
		require.NoError(t, err)
		assert.Equal(t, "Wheat Flour", m.CanonicalName)
	})

	t.Run("Empty canonical name", func(t *testing.T) {
		_, err := NewItemMapping("   ")
		assert.ErrorIs(t, err, ErrInvalidCanonicalName)
	})
}

func TestItemMapping_AddAlias(t *testing.T) {
	m, err := NewItemMapping("Wheat Flour")
	require.NoError(t, err)

	t.Run("Add new alias", func(t *testing.T) {
		added, err := m.AddAlias("wheat flour 1kg")
		require.NoError(t, err)
		assert.True(t, added)
		assert.Len(t, m.Aliases, 1)
	})

	t.Run("Re-adding owned alias is a no-op", func(t *testing.T) {
		added, err := m.AddAlias("WHEAT FLOUR 1KG")
		require.NoError(t, err)
		assert.False(t, added)
		assert.Len(t, m.Aliases, 1)
	})

	t.Run("Canonical name counts as owned", func(t *testing.T) {
		added, err := m.AddAlias("wheat flour")
		require.NoError(t, err)
		assert.False(t, added)
		assert.Len(t, m.Aliases, 1)
	})

	t.Run("Empty alias", func(t *testing.T) {
		_, err := m.AddAlias("  ")
		assert.ErrorIs(t, err, ErrInvalidAlias)
	})
}

func TestItemMapping_RemoveAlias(t *testing.T) {
	m, err := NewItemMapping("Wheat Flour")
	require.NoError(t, err)
	_, err = m.AddAlias("W. Flour")
	require.NoError(t, err)

	t.Run("Remove owned alias case-insensitively", func(t *testing.T) {
		err := m.RemoveAlias("w. flour")
		assert.NoError(t, err)
		assert.Empty(t, m.Aliases)
	})

	t.Run("Removing last alias keeps mapping record", func(t *testing.T) {
		assert.True(t, m.Active)
		assert.Equal(t, "Wheat Flour", m.CanonicalName)
	})

	t.Run("Removing unknown alias", func(t *testing.T) {
		err := m.RemoveAlias("rye flour")
		assert.ErrorIs(t, err, ErrAliasNotOwned)
	})
}

func TestItemMapping_ReplaceAliases(t *testing.T) {
	m, err := NewItemMapping("Sugar")
	require.NoError(t, err)

	t.Run("Deduplicates case-insensitively and drops canonical", func(t *testing.T) {
		err := m.ReplaceAliases([]string{"sugar 1kg", "SUGAR 1KG", "Sugar", "white sugar"})
		require.NoError(t, err)
		assert.Len(t, m.Aliases, 2)
		assert.Equal(t, "sugar 1kg", m.Aliases[0].Name)
		assert.Equal(t, "white sugar", m.Aliases[1].Name)
	})

	t.Run("Rejects empty alias", func(t *testing.T) {
		err := m.ReplaceAliases([]string{"ok", " "})
		assert.ErrorIs(t, err, ErrInvalidAlias)
	})
}

func TestItemMapping_Deactivate(t *testing.T) {
	m, err := NewItemMapping("Salt")
	require.NoError(t, err)

	m.Deactivate()
	assert.False(t, m.Active)

	m.Activate()
	assert.True(t, m.Active)
}

// ---------------------------------------------------------------------------
// LookupTable Tests
// ---------------------------------------------------------------------------

func buildTestMappings(t *testing.T) []ItemMapping {
	t.Helper()
	wheat, err := NewItemMapping("Wheat")
	require.NoError(t, err)
	_, err = wheat.AddAlias("Wheat 25kg")
	require.NoError(t, err)
	_, err = wheat.AddAlias("WHEAT-FLOUR")
	require.NoError(t, err)

	rice, err := NewItemMapping("Rice")
	require.NoError(t, err)
	_, err = rice.AddAlias("basmati rice")
	require.NoError(t, err)
	rice.Deactivate()

	return []ItemMapping{*wheat, *rice}
}

func TestBuildLookup(t *testing.T) {
	table := BuildLookup(buildTestMappings(t))

	t.Run("Aliases resolve case-insensitively", func(t *testing.T) {
		assert.Equal(t, "Wheat", table.Resolve("wheat 25KG"))
		assert.Equal(t, "Wheat", table.Resolve("wheat-flour"))
	})

	t.Run("Canonical name resolves to itself", func(t *testing.T) {
		assert.Equal(t, "Wheat", table.Resolve("WHEAT"))
	})

	t.Run("Unmapped name returns unchanged", func(t *testing.T) {
		assert.Equal(t, "Barley", table.Resolve("Barley"))
	})

	t.Run("Inactive mappings contribute nothing", func(t *testing.T) {
		assert.Equal(t, "basmati rice", table.Resolve("basmati rice"))
	})

	t.Run("Resolution is stable across calls", func(t *testing.T) {
		first := table.Resolve("Wheat 25kg")
		second := table.Resolve("Wheat 25kg")
		assert.Equal(t, first, second)
	})
}

// ---------------------------------------------------------------------------
// Suggestion Tests
// ---------------------------------------------------------------------------

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases", "Wheat Flour", "wheatflour"},
		{"strips punctuation", "wheat-flour (25kg)", "wheatflour25kg"},
		{"collapses whitespace", "  wheat   flour ", "wheatflour"},
		{"strips diacritics", "Crème Fraîche", "cremefraiche"},
		{"punctuation variants merge", "creme.fraiche", "cremefraiche"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeName(tt.input))
		})
	}
}

func TestGroupUnmapped(t *testing.T) {
	table := BuildLookup(buildTestMappings(t))

	raw := []string{
		"Olive Oil", "olive-oil", "OLIVE OIL", // one candidate group
		"Wheat 25kg",  // mapped, excluded
		"Brown Sugar", // singleton group
		"",            // ignored
	}

	suggestions := GroupUnmapped(raw, table)
	require.Len(t, suggestions, 2)

	t.Run("Largest group first", func(t *testing.T) {
		assert.Equal(t, "oliveoil", suggestions[0].NormalizedKey)
		assert.Equal(t, 3, suggestions[0].Occurrences)
		assert.Equal(t, []string{"OLIVE OIL", "Olive Oil", "olive-oil"}, suggestions[0].Names)
	})

	t.Run("Mapped names are excluded", func(t *testing.T) {
		for _, s := range suggestions {
			assert.NotContains(t, s.Names, "Wheat 25kg")
		}
	})

	t.Run("Singleton groups survive", func(t *testing.T) {
		assert.Equal(t, "brownsugar", suggestions[1].NormalizedKey)
		assert.Equal(t, 1, suggestions[1].Occurrences)
	})
}
