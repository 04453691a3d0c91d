package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const idsSchema = `{
  "type": "array",
  "items": {"type": "string", "minLength": 1}
}`

func TestValidate(t *testing.T) {
	v := MustCompile("ids.json", idsSchema)

	require.NoError(t, v.Validate([]byte(`["counter", "todos"]`)))

	err := v.Validate([]byte(`["counter", 3, ""]`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaValidation))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.GreaterOrEqual(t, len(verr.Issues), 2)
	assert.Contains(t, err.Error(), "#/1")

	err = v.Validate([]byte(`[1,`))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSchemaValidation))

	require.Error(t, v.Validate([]byte(`[] []`)))
}

func TestDecode(t *testing.T) {
	v := MustCompile("ids.json", idsSchema)
	var ids []string
	require.NoError(t, v.Decode([]byte(`["a","b"]`), &ids))
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestCompile_RejectsBrokenSchema(t *testing.T) {
	_, err := Compile("broken.json", `{"type": 12}`)
	require.Error(t, err)
}
