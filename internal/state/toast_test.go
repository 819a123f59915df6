package state

import (
	"testing"
	"time"
)

func TestToast_ShowExpireHide(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	toast := Toast{now: func() time.Time { return start }}

	if toast.Expired(start) {
		t.Fatalf("hidden toast reported expired")
	}

	toast.Show("Blog deleted", ToastSuccess)
	if !toast.Visible || toast.Kind != ToastSuccess || toast.Message != "Blog deleted" {
		t.Fatalf("toast = %#v, want visible success", toast)
	}
	if toast.Expired(start.Add(2999 * time.Millisecond)) {
		t.Fatalf("toast expired before its lifetime")
	}
	if !toast.Expired(start.Add(DefaultToastLifetime)) {
		t.Fatalf("toast not expired after %v", DefaultToastLifetime)
	}

	toast.Hide()
	if toast.Visible || toast.Expired(start.Add(time.Hour)) {
		t.Fatalf("toast = %#v, want hidden", toast)
	}
}

func TestToast_DefaultsKindAndHonoursLifetime(t *testing.T) {
	start := time.Now()
	toast := Toast{Lifetime: time.Second, now: func() time.Time { return start }}
	toast.Show("hi", "")
	if toast.Kind != ToastInfo {
		t.Fatalf("Kind = %q, want info", toast.Kind)
	}
	if !toast.Expired(start.Add(time.Second)) {
		t.Fatalf("custom lifetime ignored")
	}
}

func TestConfirm_AcceptAndCancel(t *testing.T) {
	var c Confirm[string]

	if _, ok := c.Accept(); ok {
		t.Fatalf("Accept on a hidden dialog returned ok")
	}

	c.Ask("Delete blog", "Delete \"Hello\"?", "b1")
	if !c.Visible || c.Title != "Delete blog" {
		t.Fatalf("dialog = %#v, want visible", c)
	}
	action, ok := c.Accept()
	if !ok || action != "b1" {
		t.Fatalf("Accept = %q,%v want b1,true", action, ok)
	}
	if c.Visible {
		t.Fatalf("dialog still visible after Accept")
	}

	c.Ask("Delete blog", "again?", "b2")
	c.Cancel()
	if _, ok := c.Accept(); ok || c.Visible {
		t.Fatalf("Cancel did not drop the pending action")
	}
}
