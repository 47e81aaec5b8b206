package payments

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoneyUnmarshal(t *testing.T) {
	t.Parallel()

	t.Run("accepts whole amounts as number or string", func(t *testing.T) {
		for _, body := range []string{
			`{"amount": 600000}`,
			`{"amount": "600000"}`,
			`{"amount": "600000.00"}`,
		} {
			var req RecordPaymentRequest
			require.NoError(t, json.Unmarshal([]byte(body), &req), body)
			assert.Equal(t, Money(600000), req.Amount, body)
		}
	})

	t.Run("rejects fractional shillings instead of rounding", func(t *testing.T) {
		var req RecordPaymentRequest
		err := json.Unmarshal([]byte(`{"amount": 500.75}`), &req)
		assert.Error(t, err)
	})

	t.Run("rejects garbage and missing amounts", func(t *testing.T) {
		for _, body := range []string{
			`{"amount": "a lot"}`,
			`{"amount": ""}`,
			`{"amount": null}`,
		} {
			var req RecordPaymentRequest
			assert.Error(t, json.Unmarshal([]byte(body), &req), body)
		}
	})
}
