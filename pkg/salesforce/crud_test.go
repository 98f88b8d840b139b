package salesforce

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTask(t *testing.T) {
	var capturedObject string
	var capturedRecord map[string]any
	mc := &mockClient{
		insertOneFn: func(_ context.Context, sObjectName string, record map[string]any) (string, error) {
			capturedObject = sObjectName
			capturedRecord = record
			return "00Txx", nil
		},
	}

	id, err := CreateTask(context.Background(), mc, "003xx", "Review contract by Friday", "High")
	require.NoError(t, err)
	assert.Equal(t, "00Txx", id)
	assert.Equal(t, "Task", capturedObject)
	assert.Equal(t, "Review contract by Friday", capturedRecord["Subject"])
	assert.Equal(t, "High", capturedRecord["Priority"])
	assert.Equal(t, "003xx", capturedRecord["WhoId"])
	assert.Equal(t, "Not Started", capturedRecord["Status"])
}

func TestCreateTask_NoContact(t *testing.T) {
	mc := &mockClient{
		insertOneFn: func(_ context.Context, _ string, record map[string]any) (string, error) {
			_, hasWho := record["WhoId"]
			assert.False(t, hasWho)
			return "00Txx", nil
		},
	}

	_, err := CreateTask(context.Background(), mc, "", "Follow up", "")
	require.NoError(t, err)
}

func TestCreateTask_MissingSubject(t *testing.T) {
	mc := &mockClient{}
	_, err := CreateTask(context.Background(), mc, "003xx", "", "High")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Subject is required")
}

func TestCreateTask_InsertError(t *testing.T) {
	mc := &mockClient{
		insertOneFn: func(_ context.Context, _ string, _ map[string]any) (string, error) {
			return "", errors.New("FIELD_CUSTOM_VALIDATION_EXCEPTION")
		},
	}

	_, err := CreateTask(context.Background(), mc, "003xx", "Follow up", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create task")
}

func TestUpdateContact(t *testing.T) {
	var capturedID string
	mc := &mockClient{
		updateOneFn: func(_ context.Context, sObjectName, id string, fields map[string]any) error {
			assert.Equal(t, "Contact", sObjectName)
			capturedID = id
			assert.Equal(t, "555-0100", fields["Phone"])
			return nil
		},
	}

	err := UpdateContact(context.Background(), mc, "003xx", map[string]any{"Phone": "555-0100"})
	require.NoError(t, err)
	assert.Equal(t, "003xx", capturedID)
}

func TestUpdateContact_MissingID(t *testing.T) {
	mc := &mockClient{}
	err := UpdateContact(context.Background(), mc, "", map[string]any{"Phone": "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contact id is required")
}

func TestUpdateContact_NilFields(t *testing.T) {
	mc := &mockClient{}
	err := UpdateContact(context.Background(), mc, "003xx", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no fields to update")
}
