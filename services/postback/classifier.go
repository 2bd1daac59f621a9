package postback

import (
	"strconv"
	"strings"
)

// Event is the normalized category a raw postback reduces to.
type Event string

const (
	EventRegister    Event = "register"
	EventIncome      Event = "income"
	EventAllDeposits Event = "all_deposits"
	EventFTD         Event = "ftd"
	EventRTD         Event = "rtd"
	EventAppStart    Event = "app_start"
)

func (e Event) String() string {
	return string(e)
}

// eventAliases maps each category to the spellings affiliate networks have
// been observed to use. The category name itself always matches.
var eventAliases = map[Event][]string{
	EventRegister:    {"register", "registration", "reg"},
	EventIncome:      {"income", "revenue", "profit", "payout"},
	EventAllDeposits: {"all_deposits", "any_deposit", "deposit"},
	EventFTD:         {"ftd", "first_deposit", "firstdeposit"},
	EventRTD:         {"rtd", "repeat_deposit", "redeposit"},
	EventAppStart:    {"app_start", "startapp", "open_app"},
}

// heuristicRules resolve payloads that carry no usable event field. The
// order is significant: more specific evidence wins, and the final rule
// always matches so classification is total.
var heuristicRules = []struct {
	match func(map[string]string) bool
	event Event
}{
	{func(q map[string]string) bool { return txValue(q) != "" && q["amount"] != "" }, EventRTD},
	{func(q map[string]string) bool { return txValue(q) != "" }, EventAllDeposits},
	{func(q map[string]string) bool { return q["amount"] != "" }, EventIncome},
	{func(map[string]string) bool { return true }, EventRegister},
}

// txValue returns the transaction id under whichever key the network used.
func txValue(q map[string]string) string {
	for _, key := range []string{"transaction_id", "trans_id", "tid"} {
		if v := q[key]; v != "" {
			return v
		}
	}
	return ""
}

// Classify reduces a raw parameter set to exactly one Event. It never fails:
// an unrecognizable payload falls through the heuristics to register, the
// weakest signal.
func Classify(params map[string]string) Event {
	raw := params["event"]
	if raw == "" {
		raw = params["status"]
	}
	ev := strings.TrimSpace(strings.ToLower(raw))

	for norm, aliases := range eventAliases {
		if ev == string(norm) {
			return norm
		}
		for _, alias := range aliases {
			if ev == alias {
				return norm
			}
		}
	}

	for _, rule := range heuristicRules {
		if rule.match(params) {
			return rule.event
		}
	}
	return EventRegister
}

// recipientKeys is scanned in order; the first value parsing as a
// non-negative integer wins.
var recipientKeys = []string{"user_id", "uid", "tg_id", "sub1", "sub_id", "sub"}

// ExtractRecipientID pulls the recipient id out of a raw parameter set.
// ok is false when no candidate field holds a plain decimal number.
func ExtractRecipientID(params map[string]string) (int64, bool) {
	for _, key := range recipientKeys {
		v := params[key]
		if v == "" {
			continue
		}
		// ParseUint rejects signs and stray characters outright.
		id, err := strconv.ParseUint(v, 10, 63)
		if err != nil {
			continue
		}
		return int64(id), true
	}
	return 0, false
}
