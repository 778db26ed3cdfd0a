package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssertOrder(t *testing.T) {
	got := []string{"Publish", "Hold", "SignalZomeFunctionCall", "ReturnZomeFunctionResult"}

	assert.NoError(t, assertOrder(got, []string{"Publish", "Hold"}))
	assert.NoError(t, assertOrder(got, []string{"Publish", "ReturnZomeFunctionResult"}), "gaps allowed")
	assert.NoError(t, assertOrder(got, nil))
	assert.Error(t, assertOrder(got, []string{"Hold", "Publish"}), "reversed")
	assert.Error(t, assertOrder(got, []string{"Publish", "Publish"}), "only one Publish")
	assert.Error(t, assertOrder(got, []string{"AddLink"}))
}

func TestResultAddError(t *testing.T) {
	r := &Result{Pass: true}
	r.AddError("step %d: %s", 2, "bad")

	assert.False(t, r.Pass)
	assert.Equal(t, []string{"step 2: bad"}, r.Errors)
}
