package domain_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"namemint/pkg/domain"
)

func TestPaymentIDJSONRoundTrip(t *testing.T) {
	id := domain.NewPaymentID()

	encoded, err := json.Marshal(id)
	require.NoError(t, err)
	require.Equal(t, fmt.Sprintf("%q", id.String()), string(encoded),
		"payment id must serialize as the canonical UUID string")

	var decoded domain.PaymentID
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	require.Equal(t, id, decoded)
}

func TestPaymentIDInStruct(t *testing.T) {
	record := struct {
		ID domain.PaymentID `json:"id"`
	}{ID: domain.NewPaymentID()}

	encoded, err := json.Marshal(record)
	require.NoError(t, err)
	require.JSONEq(t, fmt.Sprintf(`{"id":%q}`, record.ID.String()), string(encoded))
}

func TestPaymentIDIsNil(t *testing.T) {
	var zero domain.PaymentID
	require.True(t, zero.IsNil())
	require.False(t, domain.NewPaymentID().IsNil())
}

func TestSeasonIDIsNil(t *testing.T) {
	require.True(t, domain.SeasonID(0).IsNil())
	require.False(t, domain.SeasonID(1).IsNil())
}
