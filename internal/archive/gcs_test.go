package archive

import (
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"

	"github.com/dvloznov/finance-dashboard/internal/schema"
)

func TestObjectPath(t *testing.T) {
	date := civil.Date{Year: 2026, Month: 8, Day: 30}

	p := objectPath(schema.Bank, "Bunq", date)
	assert.True(t, strings.HasPrefix(p, "2026-08-30/bank/Bunq_"), p)
	assert.True(t, strings.HasSuffix(p, ".json"), p)

	// Same inputs must not collide.
	assert.NotEqual(t, p, objectPath(schema.Bank, "Bunq", date))
}
