package sl_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/slot-gate/internal/lib/sl"
)

func TestErr_ReturnsCorrectAttr(t *testing.T) {
	attr := sl.Err(errors.New("snapshot save failed"))

	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, slog.StringValue("snapshot save failed"), attr.Value)
}

func TestErr_NilError(t *testing.T) {
	assert.Panics(t, func() {
		_ = sl.Err(nil)
	})
}

func TestOp(t *testing.T) {
	attr := sl.Op("subscription.Subscribe")
	assert.Equal(t, "op", attr.Key)
	assert.Equal(t, "subscription.Subscribe", attr.Value.String())
}
