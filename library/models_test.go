package library

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoanDecodesBackendShape(t *testing.T) {
	raw := `{
		"id": 12,
		"bookId": "7",
		"userId": 3,
		"userFullName": "Ana Diaz",
		"bookTitle": "Beloved",
		"loanDate": "2024-07-01T09:30:00",
		"dueDate": "2024-07-15T00:00:00",
		"returnDate": null,
		"fine": 1.5,
		"status": "ACTIVE",
		"book": {"id": 7, "title": "Beloved", "isAvailable": true, "availableCopies": 2}
	}`
	var l Loan
	require.NoError(t, json.Unmarshal([]byte(raw), &l))

	assert.Equal(t, ID("12"), l.ID)
	assert.Equal(t, ID("7"), l.BookID)
	assert.Equal(t, ID("3"), l.Borrower())
	assert.False(t, l.Returned())
	assert.Equal(t, time.July, l.DueDate.Month())
	assert.Equal(t, 15, l.DueDate.Day())
	assert.Equal(t, 9, l.LoanDate.Hour())
	assert.True(t, l.Fine.Equal(decimal.RequireFromString("1.5")))
	require.NotNil(t, l.Book)
	assert.True(t, CanLend(*l.Book))
}

func TestIDMarshal(t *testing.T) {
	out, err := json.Marshal(struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}{A: "42", B: "abc-1", C: ""})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 42, "b": "abc-1", "c": null}`, string(out))
}

func TestIDMarshalKeepsNonCanonicalNumbersQuoted(t *testing.T) {
	tests := []struct {
		name string
		id   ID
		want string
	}{
		{"plain", "5", `5`},
		{"negative", "-1", `-1`},
		{"leading zeros", "007", `"007"`},
		{"plus sign", "+5", `"+5"`},
		{"zero", "0", `0`},
		{"negative zero", "-0", `"-0"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := json.Marshal(LoanRequest{BookID: tt.id})
			require.NoError(t, err)
			var payload map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(out, &payload))
			assert.Equal(t, tt.want, string(payload["bookId"]))
		})
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	ts := NewTimestamp(time.Date(2024, time.July, 15, 8, 5, 0, 0, time.Local))
	out, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2024-07-15T08:05:00"`, string(out))

	var back Timestamp
	require.NoError(t, json.Unmarshal(out, &back))
	assert.True(t, ts.Equal(back.Time))

	require.NoError(t, json.Unmarshal([]byte(`""`), &back))
	assert.True(t, back.IsZero())
	out, err = json.Marshal(back)
	require.NoError(t, err)
	assert.Equal(t, "null", string(out))
}

func TestLoanRequestBorrower(t *testing.T) {
	assert.Equal(t, ID("2"), LoanRequest{MemberID: "2", UserID: "9"}.Borrower())
	assert.Equal(t, ID("9"), LoanRequest{UserID: "9"}.Borrower())
}
