package roundtrip

import (
	"context"
	"testing"

	"github.com/dylanxu/specgo/config"
)

func TestFilterDisabledAdmitsEverything(t *testing.T) {
	f := NewFilter()
	if f.IsEnabled() {
		t.Fatal("expected a fresh filter to be disabled")
	}
	if f.QueryMessage(0x102) {
		t.Fatal("an empty filter should admit nothing by direct query")
	}
}

func TestFilterAllowAndQuery(t *testing.T) {
	f := NewFilter()
	f.SetEnabled(true)
	f.Allow(0x102, []string{"counter"})

	if !f.QueryMessage(0x102) {
		t.Fatal("expected message 0x102 to be admitted")
	}
	if f.QueryMessage(0x200) {
		t.Fatal("expected message 0x200 to be rejected")
	}
	if !f.QuerySignal(0x102, "counter") {
		t.Fatal("expected signal counter to be admitted")
	}
	if f.QuerySignal(0x102, "mode") {
		t.Fatal("expected signal mode to be rejected")
	}
}

func TestFilterAllowWildcardAdmitsEverySignal(t *testing.T) {
	f := NewFilter()
	f.Allow(0x102, nil)

	if !f.QuerySignal(0x102, "counter") || !f.QuerySignal(0x102, "mode") {
		t.Fatal("expected a nil signal list to admit every signal on the message")
	}
}

func TestCampaignSkipsMessagesExcludedByFilter(t *testing.T) {
	msg := twoNibbleMessage()
	otherMsg := twoNibbleMessage()
	otherMsg.ID = 0x200
	otherMsg.Name = "other"

	filter := NewFilter()
	filter.SetEnabled(true)
	filter.Allow(msg.ID, nil)

	campaign := Campaign{
		ProjectName:  "demo",
		Bindings:     []*MessageBinding{correctBinding(msg), correctBinding(otherMsg)},
		Loops:        1,
		MasterSeed:   1,
		CasesPerSeed: 4,
		FailPolicy:   config.ContinueOnFail,
		Filter:       filter,
	}
	result := campaign.Run(context.Background())
	if result.CasesRun != 4*2 {
		t.Fatalf("expected only the admitted message's cases to run, got %d cases", result.CasesRun)
	}
}
