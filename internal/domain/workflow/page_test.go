package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageBoundsClamp(t *testing.T) {
	cases := []struct {
		limit, offset int
		want          Page
	}{
		{0, 0, Page{Limit: 50}},
		{-3, -7, Page{Limit: 50}},
		{20, 40, Page{Limit: 20, Offset: 40}},
		{200, 0, Page{Limit: 200}},
		{201, 5, Page{Limit: 200, Offset: 5}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ListPage.Clamp(tc.limit, tc.offset), "limit=%d offset=%d", tc.limit, tc.offset)
	}

	assert.Equal(t, Page{Limit: 1000}, PageBounds{Default: 1000}.Clamp(0, 0), "zero max leaves the limit uncapped")
}
