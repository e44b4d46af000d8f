package specification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `dry\_mouth`, escapeLike("dry_mouth"))
	assert.Equal(t, "Relaxed", escapeLike("Relaxed"))
}

func TestCleanNumericSQL(t *testing.T) {
	assert.Equal(t,
		`NULLIF(substring(strains.thc_level from '[0-9]+(?:\.[0-9]+)?'), '')::numeric`,
		CleanNumericSQL("strains.thc_level"))
}
