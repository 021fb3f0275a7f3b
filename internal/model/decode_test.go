package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSubmissionCoercesLooseValues(t *testing.T) {
	body := `{
		"meta": {
			"projectName": "Riverside Lofts",
			"contractAmount": "$1,250,000.50",
			"addAltAmount": "",
			"retainagePct": "10%",
			"cellNumber": 5551234,
			"email": null
		},
		"schedule": [
			{"primeLine": "1", "qty": "10", "unit": "abc", "apexContractValue": 40}
		],
		"scope": [
			{"item": 1, "description": "Framing", "included": true, "excluded": true}
		]
	}`

	sub, err := DecodeSubmission([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, "Riverside Lofts", sub.Meta.ProjectName)
	assert.InDelta(t, 1250000.50, sub.Meta.ContractAmount, 0.001)
	assert.Zero(t, sub.Meta.AddAltAmount)
	assert.InDelta(t, 10, sub.Meta.RetainagePct, 0.001)
	assert.Equal(t, "5551234", sub.Meta.CellNumber)
	assert.Equal(t, "", sub.Meta.Email)
	assert.Equal(t, "", sub.Meta.ImportantDates.NoticeToProceed)

	require.Len(t, sub.Schedule, 1)
	assert.InDelta(t, 10, sub.Schedule[0].Qty, 0.001)
	assert.Zero(t, sub.Schedule[0].Unit)
	assert.InDelta(t, 40, sub.Schedule[0].ApexContractValue, 0.001)

	require.Len(t, sub.Scope, 1)
	assert.Equal(t, "1", sub.Scope[0].Item)
	assert.False(t, sub.Scope[0].Included)
	assert.True(t, sub.Scope[0].Excluded)
	assert.False(t, sub.Sent)
}

func TestDecodeSubmissionEmptyObject(t *testing.T) {
	sub, err := DecodeSubmission([]byte(`{}`))
	require.NoError(t, err)

	assert.NotNil(t, sub.Schedule)
	assert.NotNil(t, sub.Scope)
	assert.Empty(t, sub.Schedule)
	assert.Equal(t, Meta{}, sub.Meta)
}

func TestDecodeSubmissionRejectsMalformedJSON(t *testing.T) {
	_, err := DecodeSubmission([]byte(`{"meta":`))
	assert.Error(t, err)
}

func TestScopeLineMutualExclusion(t *testing.T) {
	var l ScopeLine

	l.SetIncluded(true)
	assert.True(t, l.Included)
	assert.False(t, l.Excluded)

	l.SetExcluded(true)
	assert.False(t, l.Included)
	assert.True(t, l.Excluded)

	l.SetExcluded(false)
	assert.False(t, l.Included)
	assert.False(t, l.Excluded)
}

func TestRenumber(t *testing.T) {
	scope := []ScopeLine{{Item: "7"}, {Item: ""}, {Item: "x"}}
	Renumber(scope)
	assert.Equal(t, "1", scope[0].Item)
	assert.Equal(t, "2", scope[1].Item)
	assert.Equal(t, "3", scope[2].Item)
}

func TestDecodeSubmissionKeepsRecordFields(t *testing.T) {
	body := `{
		"id": 42,
		"createdAt": "2024-03-15T09:30:00.000Z",
		"timestamp": 1710495000000,
		"sent": true,
		"sentAt": "2024-03-15T10:00:00.000Z",
		"revisionOf": 7
	}`

	sub, err := DecodeSubmission([]byte(body))
	require.NoError(t, err)
	assert.Equal(t, int64(42), sub.ID)
	assert.Equal(t, int64(1710495000000), sub.Timestamp)
	assert.Equal(t, int64(7), sub.RevisionOf)
	assert.Equal(t, "2024-03-15T09:30:00.000Z", FormatTime(sub.CreatedAt))
	require.NotNil(t, sub.SentAt)
	assert.Equal(t, "2024-03-15T10:00:00.000Z", FormatTime(*sub.SentAt))

	sub, err = DecodeSubmission([]byte(`{"sent": false, "sentAt": "2024-03-15T10:00:00Z", "createdAt": "soon"}`))
	require.NoError(t, err)
	assert.Nil(t, sub.SentAt)
	assert.True(t, sub.CreatedAt.IsZero())
}
