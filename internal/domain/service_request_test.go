package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChoiceTablesAreCopies(t *testing.T) {
	got := Statuses()
	got[0].Label = "Changed"
	assert.Equal(t, "Pending", StatusPending.Label())

	cats := Categories()
	cats[0].Code = "bogus"
	assert.True(t, CategoryPasswordReset.Valid())
	assert.False(t, RequestCategory("bogus").Valid())
	assert.Equal(t, []string{"pending", "in_progress", "resolved", "closed"}, StatusCodes())
}
