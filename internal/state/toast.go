package state

import "time"

// ToastKind selects the toast colour.
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
	ToastInfo    ToastKind = "info"
	ToastWarning ToastKind = "warning"
)

// DefaultToastLifetime is how long a toast stays up.
const DefaultToastLifetime = 3 * time.Second

// Toast is a transient notification. The zero value is hidden.
type Toast struct {
	Visible  bool
	Message  string
	Kind     ToastKind
	Deadline time.Time
	// Lifetime overrides DefaultToastLifetime when positive.
	Lifetime time.Duration
	now      func() time.Time
}

// Show replaces any visible toast.
func (t *Toast) Show(message string, kind ToastKind) {
	lifetime := t.Lifetime
	if lifetime <= 0 {
		lifetime = DefaultToastLifetime
	}
	if kind == "" {
		kind = ToastInfo
	}
	t.Visible = true
	t.Message = message
	t.Kind = kind
	t.Deadline = t.clock().Add(lifetime)
}

// Hide dismisses the toast.
func (t *Toast) Hide() {
	t.Visible = false
	t.Message = ""
}

// Expired reports whether a visible toast has outlived its deadline.
func (t *Toast) Expired(now time.Time) bool {
	return t.Visible && !now.Before(t.Deadline)
}

func (t *Toast) clock() time.Time {
	if t.now != nil {
		return t.now()
	}
	return time.Now()
}

// Confirm is a yes/no dialog guarding a destructive action.
type Confirm[A any] struct {
	Visible bool
	Title   string
	Message string
	action  A
}

// Ask opens the dialog for action.
func (c *Confirm[A]) Ask(title, message string, action A) {
	c.Visible = true
	c.Title = title
	c.Message = message
	c.action = action
}

// Accept closes the dialog and hands back the pending action.
func (c *Confirm[A]) Accept() (A, bool) {
	var zero A
	if !c.Visible {
		return zero, false
	}
	action := c.action
	*c = Confirm[A]{}
	return action, true
}

// Cancel closes the dialog and drops the action.
func (c *Confirm[A]) Cancel() {
	*c = Confirm[A]{}
}
