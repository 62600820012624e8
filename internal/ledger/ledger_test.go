package ledger

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/fintrack/internal/common"
)

func TestParseCollection(t *testing.T) {
	for _, c := range All {
		got, err := ParseCollection(string(c))
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	got, err := ParseCollection("loan_payments")
	require.NoError(t, err)
	assert.Equal(t, LoanPayments, got)

	_, err = ParseCollection("transfers")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		d       Domain
		wantErr bool
	}{
		{"expense ok", Expense{Amount: decimal.NewFromInt(100), Date: "2026-01-02"}, false},
		{"expense zero amount", Expense{Amount: decimal.Zero, Date: "2026-01-02"}, true},
		{"expense bad date", Expense{Amount: decimal.NewFromInt(1), Date: "02/01/2026"}, true},
		{"income ok", Income{Amount: decimal.RequireFromString("10.50"), Date: "2026-01-02"}, false},
		{"loan ok", Loan{ContactID: "c", Direction: Lent, Principal: decimal.NewFromInt(5), Date: "2026-01-02"}, false},
		{"loan bad direction", Loan{ContactID: "c", Direction: "gift", Principal: decimal.NewFromInt(5), Date: "2026-01-02"}, true},
		{"loan bad due date", Loan{ContactID: "c", Direction: Borrowed, Principal: decimal.NewFromInt(5), Date: "2026-01-02", DueDate: "soon"}, true},
		{"payment missing loan", LoanPayment{Amount: decimal.NewFromInt(5), Date: "2026-01-02"}, true},
		{"contact ok", Contact{Name: "Ann", Phones: []string{"+1 555"}}, false},
		{"contact empty phone", Contact{Name: "Ann", Phones: []string{" "}}, true},
		{"category ok", Category{Name: "Food", Kind: ExpenseCategory}, false},
		{"category bad kind", Category{Name: "Food", Kind: "other"}, true},
		{"budget ok", Budget{Amount: decimal.NewFromInt(300), Month: "2026-02"}, false},
		{"budget bad month", Budget{Amount: decimal.NewFromInt(300), Month: "Feb"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.d.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidatePayload(t *testing.T) {
	assert.NoError(t, ValidatePayload(Expenses, json.RawMessage(`{"amount":"100","date":"2026-01-02"}`)))
	assert.ErrorIs(t, ValidatePayload(Expenses, json.RawMessage(`{"amount":"-1","date":"2026-01-02"}`)), common.ErrValidation)
	assert.ErrorIs(t, ValidatePayload(Expenses, json.RawMessage(`{"amount":[]}`)), common.ErrValidation)
	assert.Error(t, ValidatePayload("nope", json.RawMessage(`{}`)))
}

func TestMergeAndSplitPayload(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	env := Envelope{ID: "65f0c0ffee00112233445566", UserID: "u1", CreatedAt: at, UpdatedAt: at.Add(time.Minute)}

	merged, err := MergePayload(env, json.RawMessage(`{"amount":"100","date":"2026-01-02","id":"spoofed"}`))
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(merged, &flat))
	assert.Equal(t, env.ID, flat["id"])
	assert.Equal(t, "u1", flat["userId"])
	assert.Equal(t, false, flat["isArchived"])
	assert.Equal(t, "100", flat["amount"])

	gotEnv, data, err := SplitPayload(merged)
	require.NoError(t, err)
	assert.Equal(t, env.ID, gotEnv.ID)
	assert.True(t, env.UpdatedAt.Equal(gotEnv.UpdatedAt))
	assert.JSONEq(t, `{"amount":"100","date":"2026-01-02"}`, string(data))
}

func TestSplitPayload_Invalid(t *testing.T) {
	_, _, err := SplitPayload(json.RawMessage(`[1,2]`))
	assert.Error(t, err)
}

func TestKeyPayload(t *testing.T) {
	b, err := KeyPayload(Envelope{ID: "x", UserID: "u", IsArchived: true})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, true, m["isArchived"])
	assert.NotContains(t, m, "amount")
}

func TestEventDate(t *testing.T) {
	assert.Equal(t, "2026-01-02", EventDate(json.RawMessage(`{"date":"2026-01-02"}`)))
	assert.Equal(t, "", EventDate(json.RawMessage(`{"name":"x"}`)))
	assert.Equal(t, "", EventDate(json.RawMessage(`nope`)))
}

func TestNormalize(t *testing.T) {
	out, err := Normalize(Categories, json.RawMessage(`{"name":"Food","kind":"expense","extra":true}`))
	require.NoError(t, err)
	assert.NotContains(t, string(out), "extra")
	assert.Contains(t, string(out), `"name":"Food"`)

	_, err = Normalize(Categories, json.RawMessage(`{"kind":"expense"}`))
	assert.ErrorIs(t, err, common.ErrValidation)
}
