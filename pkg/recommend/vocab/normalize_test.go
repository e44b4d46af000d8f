package vocab

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	assert.Equal(t, "relajacion", Fold("  Relajación "))
	assert.Equal(t, "dry mouth", Fold("Dry   MOUTH"))
	assert.Equal(t, "", Fold(""))
}

func TestCanonResolvesSynonyms(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Mint", "menthol"},
		{"menta", "menthol"},
		{"Relajado", "relaxed"},
		{"Ansiedad", "anxiety"},
		{"Boca seca", "dry mouth"},
		{"Híbrida", "hybrid"},
		{"Citrus", "citrus"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Canon(tt.in))
		})
	}
}

func TestContainsTermAndDedupe(t *testing.T) {
	assert.True(t, ContainsTerm([]string{"Menthol", "Pine"}, "mint"))
	assert.False(t, ContainsTerm([]string{"Pine"}, "lemon"))
	assert.Equal(t, []string{"Relaxed", "Happy"}, Dedupe([]string{"Relaxed", "relajado", "Happy", ""}))
}

func TestTitleAndTokens(t *testing.T) {
	assert.Equal(t, "Dry Mouth", Title("dry mouth"))
	assert.Equal(t, []string{"which", "has", "less", "thc"}, Tokens("Which has LESS THC?"))
}
