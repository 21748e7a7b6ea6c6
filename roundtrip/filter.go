package roundtrip

import "sync"

// Filter scopes a campaign to a subset of messages and signals, keyed
// by IR message ID and signal name.
type Filter struct {
	mu      sync.RWMutex
	enabled bool
	byMsgID map[uint32]map[string]bool
}

// NewFilter builds an empty, disabled Filter. A disabled Filter is
// never consulted by Campaign, which admits every message and signal.
func NewFilter() *Filter {
	return &Filter{byMsgID: make(map[uint32]map[string]bool)}
}

// SetEnabled toggles whether the filter is consulted at all.
func (f *Filter) SetEnabled(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = enabled
}

// IsEnabled reports whether the filter is currently consulted.
func (f *Filter) IsEnabled() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.enabled
}

// Allow admits msgID, optionally restricted to a set of signal names.
// A nil or empty signals list admits every signal on that message.
func (f *Filter) Allow(msgID uint32, signals []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	set := f.byMsgID[msgID]
	if set == nil {
		set = make(map[string]bool)
		f.byMsgID[msgID] = set
	}
	if len(signals) == 0 {
		set["*"] = true
		return
	}
	for _, s := range signals {
		set[s] = true
	}
}

// QueryMessage reports whether msgID is admitted by the filter.
func (f *Filter) QueryMessage(msgID uint32) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.byMsgID[msgID]
	return ok
}

// QuerySignal reports whether signal on msgID is admitted by the
// filter.
func (f *Filter) QuerySignal(msgID uint32, signal string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	set, ok := f.byMsgID[msgID]
	if !ok {
		return false
	}
	return set["*"] || set[signal]
}
