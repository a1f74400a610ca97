package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   Outcome
	}{
		{
			name:   "settlement redirect",
			target: "https://gateway.example/redirect?order_id=1001&transaction_status=settlement",
			want:   OutcomeFinished,
		},
		{
			name:   "capture redirect",
			target: "https://gateway.example/redirect?transaction_status=capture&fraud_status=accept",
			want:   OutcomeFinished,
		},
		{
			name:   "success path marker",
			target: "https://gateway.example/payment_success?order_id=1001",
			want:   OutcomeFinished,
		},
		{
			name:   "status code 200 marker",
			target: "https://gateway.example/finish?status_code=200&transaction_id=abc",
			want:   OutcomeFinished,
		},
		{
			name:   "incomplete marker",
			target: "https://gateway.example/payment_incomplete?order_id=1001",
			want:   OutcomeUnfinished,
		},
		{
			name:   "error marker",
			target: "https://gateway.example/payment_error?message=declined",
			want:   OutcomeError,
		},
		{
			name:   "settlement buried in unrelated noise",
			target: "https://gateway.example/cb?foo=bar&transaction_status=settlement&utm_source=app",
			want:   OutcomeFinished,
		},
		{
			name:   "hosted page itself is unclassified",
			target: "https://app.sandbox.midtrans.com/snap/v2/vtweb/tok123",
			want:   OutcomeUnclassified,
		},
		{
			name:   "pending status is unclassified",
			target: "https://gateway.example/redirect?transaction_status=pending",
			want:   OutcomeUnclassified,
		},
		{
			name:   "empty target",
			target: "",
			want:   OutcomeUnclassified,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.target))
		})
	}
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "finished", OutcomeFinished.String())
	assert.Equal(t, "unfinished", OutcomeUnfinished.String())
	assert.Equal(t, "error", OutcomeError.String())
	assert.Equal(t, "unclassified", OutcomeUnclassified.String())
}
