package catalog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRepriceTask(t *testing.T) {
	task, err := NewRepriceTask("Grainger")
	require.NoError(t, err)
	require.Equal(t, TypeCatalogReprice, task.Type())

	var payload repricePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, "Grainger", payload.Supplier)
}

func TestNewRepriceTaskAllSuppliers(t *testing.T) {
	task, err := NewRepriceTask("")
	require.NoError(t, err)

	var payload repricePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Empty(t, payload.Supplier)
}
