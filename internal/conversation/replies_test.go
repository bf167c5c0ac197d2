package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPluralRu(t *testing.T) {
	cases := []struct {
		n    int
		want string
	}{
		{1, "1 визит"},
		{2, "2 визита"},
		{4, "4 визита"},
		{5, "5 визитов"},
		{11, "11 визитов"},
		{12, "12 визитов"},
		{14, "14 визитов"},
		{21, "21 визит"},
		{22, "22 визита"},
		{25, "25 визитов"},
		{111, "111 визитов"},
		{121, "121 визит"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, visitsLabel(tc.n))
	}
}

func TestDurationLabel(t *testing.T) {
	assert.Equal(t, "1 час", durationLabel(1))
	assert.Equal(t, "2 часа", durationLabel(2))
	assert.Equal(t, "4 часа", durationLabel(4))
}
