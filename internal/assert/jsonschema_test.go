package assert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateJSONSchemaInlinePass(t *testing.T) {
	schema := `{"type":"object","required":["id"],"properties":{"id":{"type":"number"}}}`
	ok, msg, err := ValidateJSONSchema(schema, []byte(`{"id":1}`))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, msg)
}

func TestValidateJSONSchemaInlineFail(t *testing.T) {
	schema := `{"type":"object","required":["id"]}`
	ok, msg, err := ValidateJSONSchema(schema, []byte(`{}`))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotEmpty(t, msg)
}
