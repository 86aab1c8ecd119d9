package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateLengthAndMembership(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		classes Classes
	}{
		{"all classes min length", 8, AllClasses()},
		{"all classes max length", 32, AllClasses()},
		{"lowercase only", 16, Classes{Lower: true}},
		{"uppercase only", 12, Classes{Upper: true}},
		{"digits only", 20, Classes{Digit: true}},
		{"symbols only", 24, Classes{Symbol: true}},
		{"lowercase and digits", 16, Classes{Lower: true, Digit: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Generate(tt.length, tt.classes)
			require.NoError(t, err)
			assert.Len(t, got, tt.length)

			pool := tt.classes.Pool()
			for _, r := range got {
				assert.True(t, strings.ContainsRune(pool, r),
					"character %q outside enabled pool", r)
			}
		})
	}
}

func TestGenerateRejectsEmptyClasses(t *testing.T) {
	_, err := Generate(12, Classes{})
	require.ErrorIs(t, err, ErrNoClasses)
}

func TestGenerateRejectsUnsupportedLength(t *testing.T) {
	for _, n := range []int{0, -1, 7, 13, 33, 1000} {
		_, err := Generate(n, AllClasses())
		require.ErrorIs(t, err, ErrBadLength, "length %d", n)
	}
}

func TestFast(t *testing.T) {
	got, err := Fast()
	require.NoError(t, err)
	assert.Len(t, got, FastLength)
}

// Two consecutive generations colliding on a 12-char password over 94
// characters would indicate a broken random source rather than bad luck.
func TestGenerateVaries(t *testing.T) {
	a, err := Fast()
	require.NoError(t, err)
	b, err := Fast()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestClassesSummary(t *testing.T) {
	assert.Equal(t, "a-z + A-Z + 0-9 + !@#", AllClasses().Summary())
	assert.Equal(t, "a-z + 0-9", Classes{Lower: true, Digit: true}.Summary())
	assert.Equal(t, "", Classes{}.Summary())
}

func TestValidLength(t *testing.T) {
	for _, n := range Lengths {
		assert.True(t, ValidLength(n))
	}
	assert.False(t, ValidLength(10))
}
