package marketplace

import (
	"errors"
	"testing"
)

func TestConnStateMachine(t *testing.T) {
	var c Conn

	if got := c.State(); got != StateDisconnected {
		t.Errorf("initial state = %q, want disconnected", got)
	}

	c.MarkConnecting()
	if got := c.State(); got != StateConnecting {
		t.Errorf("state = %q, want connecting", got)
	}

	c.MarkConnected()
	if got := c.State(); got != StateConnected {
		t.Errorf("state = %q, want connected", got)
	}

	c.MarkDisconnected()
	if got := c.State(); got != StateDisconnected {
		t.Errorf("state = %q, want disconnected", got)
	}
}

func TestBeginSyncRequiresConnection(t *testing.T) {
	var c Conn

	if err := c.BeginSync(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("BeginSync() on disconnected = %v, want ErrNotConnected", err)
	}

	c.MarkConnecting()
	if err := c.BeginSync(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("BeginSync() while connecting = %v, want ErrNotConnected", err)
	}
}

func TestBeginSyncIsMutuallyExclusive(t *testing.T) {
	var c Conn
	c.MarkConnected()

	if err := c.BeginSync(); err != nil {
		t.Fatalf("first BeginSync() = %v", err)
	}
	if !c.Syncing() {
		t.Error("Syncing() = false during sync")
	}
	if err := c.BeginSync(); !errors.Is(err, ErrSyncInProgress) {
		t.Errorf("concurrent BeginSync() = %v, want ErrSyncInProgress", err)
	}

	c.EndSync()
	if err := c.BeginSync(); err != nil {
		t.Errorf("BeginSync() after EndSync() = %v, want nil", err)
	}
}

func TestConditionCode(t *testing.T) {
	tests := []struct {
		platform  string
		condition string
		want      string
	}{
		{"ebay", "new", "1000"},
		{"ebay", "Like New", "1500"},
		{"ebay", "good", "3000"},
		{"ebay", "somewhat crusty", "3000"}, // unknown falls back
		{"etsy", "new", "new"},
		{"etsy", "like new", "used_like_new"},
		{"etsy", "???", "used_good"},
		{"depop", "good", "good"}, // no vocabulary, passthrough
	}

	for _, tt := range tests {
		t.Run(tt.platform+"/"+tt.condition, func(t *testing.T) {
			if got := ConditionCode(tt.platform, tt.condition); got != tt.want {
				t.Errorf("ConditionCode(%q, %q) = %q, want %q",
					tt.platform, tt.condition, got, tt.want)
			}
		})
	}
}
