package core

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperations_JSON_Unmarshalling(t *testing.T) {
	type Object struct {
		Operations []Operation `json:"operations"`
	}
	var object Object
	err := json.Unmarshal([]byte(`{"operations":["create","read","update","delete","list"]}`), &object)
	require.NoError(t, err)
	assert.Equal(t, []Operation{OperationCreate, OperationRead, OperationUpdate, OperationDelete, OperationList}, object.Operations)

	err = json.Unmarshal([]byte(`{"operations":["invalid"]}`), &object)
	assert.Error(t, err)
}

func TestOperationValid(t *testing.T) {
	assert.True(t, OperationDelete.Valid())
	assert.False(t, Operation("clear").Valid())
}
