package postback

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestClassifyAliases(t *testing.T) {
	cases := map[string]Event{
		"registration":   EventRegister,
		"reg":            EventRegister,
		"first_deposit":  EventFTD,
		"firstdeposit":   EventFTD,
		"ftd":            EventFTD,
		"redeposit":      EventRTD,
		"repeat_deposit": EventRTD,
		"rtd":            EventRTD,
		"deposit":        EventAllDeposits,
		"any_deposit":    EventAllDeposits,
		"income":         EventIncome,
		"revenue":        EventIncome,
		"payout":         EventIncome,
		"startapp":       EventAppStart,
		"app_start":      EventAppStart,
	}

	for raw, want := range cases {
		got := Classify(map[string]string{"event": raw})
		require.Equal(t, want, got, "event=%q", raw)
	}
}

func TestClassifyNormalizesCase(t *testing.T) {
	require.Equal(t, EventFTD, Classify(map[string]string{"event": "  FTD "}))
	require.Equal(t, EventRegister, Classify(map[string]string{"status": "Registration"}))
}

func TestClassifyStatusFallback(t *testing.T) {
	// event wins over status when both are present
	got := Classify(map[string]string{"event": "ftd", "status": "reg"})
	require.Equal(t, EventFTD, got)

	got = Classify(map[string]string{"status": "income"})
	require.Equal(t, EventIncome, got)
}

func TestClassifyIncomeAliasesAgree(t *testing.T) {
	require.Equal(t, EventIncome, Classify(map[string]string{"event": "revenue"}))
	require.Equal(t, EventIncome, Classify(map[string]string{"event": "profit"}))
	require.Equal(t, EventIncome, Classify(map[string]string{"status": "payout"}))
}

func TestClassifyHeuristics(t *testing.T) {
	cases := []struct {
		name   string
		params map[string]string
		want   Event
	}{
		{"tx and amount", map[string]string{"transaction_id": "t1", "amount": "10"}, EventRTD},
		{"tx only", map[string]string{"trans_id": "t1"}, EventAllDeposits},
		{"tid only", map[string]string{"tid": "t1"}, EventAllDeposits},
		{"amount only", map[string]string{"amount": "5.5"}, EventIncome},
		{"nothing", map[string]string{"foo": "bar"}, EventRegister},
		{"empty", map[string]string{}, EventRegister},
		{"unknown event falls to heuristics", map[string]string{"event": "whatever", "amount": "1"}, EventIncome},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Classify(tc.params))
		})
	}
}

func TestExtractRecipientIDKeyOrder(t *testing.T) {
	id, ok := ExtractRecipientID(map[string]string{
		"sub1":    "333",
		"uid":     "222",
		"user_id": "111",
	})
	require.True(t, ok)
	require.Equal(t, int64(111), id)

	id, ok = ExtractRecipientID(map[string]string{"uid": "5", "sub1": "9"})
	require.True(t, ok)
	require.Equal(t, int64(5), id)

	id, ok = ExtractRecipientID(map[string]string{"sub": "42"})
	require.True(t, ok)
	require.Equal(t, int64(42), id)
}

func TestExtractRecipientIDSkipsInvalid(t *testing.T) {
	// user_id is malformed, uid parses
	id, ok := ExtractRecipientID(map[string]string{
		"user_id": "abc",
		"uid":     "7",
	})
	require.True(t, ok)
	require.Equal(t, int64(7), id)

	_, ok = ExtractRecipientID(map[string]string{"user_id": "-5"})
	require.False(t, ok)

	_, ok = ExtractRecipientID(map[string]string{})
	require.False(t, ok)
}
