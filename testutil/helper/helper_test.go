package helper_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pustaka/circulation/circulation/memorystore"
	"github.com/pustaka/circulation/testutil/helper"
)

func Test_GivenBookInCatalog_When_ArrangingSeveralBooksInOneStore(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memorystore.New()

	// act
	seenCodes := make(map[string]bool)
	for i := 0; i < 5; i++ {
		book := helper.GivenBookInCatalog(t, ctx, store, 1)
		seenCodes[book.Code] = true
	}

	// assert
	assert.Len(t, seenCodes, 5, "every arranged book should carry a distinct code")
}

func Test_GivenRegisteredMember_When_ArrangingSeveralMembersInOneStore(t *testing.T) {
	// setup
	ctx := context.Background()
	store := memorystore.New()

	// act
	seenNumbers := make(map[string]bool)
	for i := 0; i < 5; i++ {
		member := helper.GivenRegisteredMember(t, ctx, store)
		seenNumbers[member.Number] = true
	}

	// assert
	assert.Len(t, seenNumbers, 5, "every registered member should carry a distinct number")
}
