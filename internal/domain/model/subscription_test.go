package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionStatusTransitions(t *testing.T) {
	assert.True(t, SubscriptionStatusActive.CanTransition(SubscriptionStatusCanceled))
	assert.False(t, SubscriptionStatusCanceled.CanTransition(SubscriptionStatusActive))
	assert.False(t, SubscriptionStatusActive.CanTransition(SubscriptionStatusActive))
	assert.False(t, SubscriptionStatusCanceled.CanTransition(SubscriptionStatusCanceled))
}
