package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	sqlassets "github.com/zenGate-Global/freightdesk/database"
)

func TestSchemaValidatorEmbeddedSchemas(t *testing.T) {
	t.Parallel()

	v, err := LoadSchemaValidator(sqlassets.DocumentSchemas, "schema/documents")
	require.NoError(t, err)

	for _, name := range []string{"customers", "drivers", "vehicles", "loads", "invoices", "expenses", "settlements"} {
		require.Truef(t, v.Has(name), "schema %s missing", name)
	}

	ctx := context.Background()
	require.NoError(t, v.Validate(ctx, "loads", []byte(`{"customerId":"C1","status":"quote","rate":500,"stops":[{"type":"pickup"}]}`)))

	err = v.Validate(ctx, "loads", []byte(`{"customerId":"C1","status":"teleported"}`))
	var verr *jsonschema.ValidationError
	require.True(t, errors.As(err, &verr))

	err = v.Validate(ctx, "customers", []byte(`{"email":"a@b.test"}`))
	require.True(t, errors.As(err, &verr))
}

func TestSchemaValidatorUnknownSchema(t *testing.T) {
	t.Parallel()

	v := NewSchemaValidator()
	err := v.Validate(context.Background(), "nope", []byte(`{}`))
	require.ErrorIs(t, err, ErrUnknownSchema)
}

func TestSchemaValidatorRegisterReplacesCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	v := NewSchemaValidator()
	require.NoError(t, v.Register("things", []byte(`{"type":"object","required":["a"]}`)))
	require.Error(t, v.Validate(ctx, "things", []byte(`{}`)))

	require.NoError(t, v.Register("things", []byte(`{"type":"object"}`)))
	require.NoError(t, v.Validate(ctx, "things", []byte(`{}`)))

	require.Error(t, v.Register("broken", []byte(`{`)))
}
