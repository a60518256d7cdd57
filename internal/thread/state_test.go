package thread

import (
	"testing"

	"studenthub/internal/model"
)

func buildFixture() []*Node {
	flat := []model.Comment{
		comment(1, 0, 10),
		comment(2, 1, 20),
		comment(3, 2, 30),
		comment(4, 0, 40), // leaf top-level, no replies
	}
	return Build(flat)
}

func TestSeedCollapsesThreadsWithReplies(t *testing.T) {
	state := NewViewState()
	state.Seed(buildFixture())

	// 1 and 2 have replies, 3 and 4 do not.
	if !state.IsCollapsed(1) || !state.IsCollapsed(2) {
		t.Error("expected comments with replies to start collapsed")
	}
	if state.IsCollapsed(3) || state.IsCollapsed(4) {
		t.Error("expected leaf comments not to be collapsed")
	}
}

func TestToggleCollapse(t *testing.T) {
	state := NewViewState()
	state.Seed(buildFixture())

	if changed := state.ToggleCollapse(1); !changed {
		t.Fatal("expected toggle on a thread with replies to take effect")
	}
	if state.IsCollapsed(1) {
		t.Error("expected thread 1 expanded after toggle")
	}
	state.ToggleCollapse(1)
	if !state.IsCollapsed(1) {
		t.Error("expected thread 1 collapsed after second toggle")
	}
}

func TestToggleCollapseOnLeafIsNoop(t *testing.T) {
	state := NewViewState()
	state.Seed(buildFixture())

	before := state.CollapsedIDs()
	if changed := state.ToggleCollapse(4); changed {
		t.Error("expected toggle on a comment with zero replies to be a no-op")
	}
	after := state.CollapsedIDs()
	if len(before) != len(after) {
		t.Errorf("collapsed set changed: before=%v after=%v", before, after)
	}
}

func TestSingleOpenReplyComposer(t *testing.T) {
	state := NewViewState()
	state.Seed(buildFixture())

	state.OpenReply(1)
	state.OpenReply(2)
	if state.ReplyingTo == nil || *state.ReplyingTo != 2 {
		t.Errorf("expected composer open only for comment 2, got %v", state.ReplyingTo)
	}

	state.CloseReply()
	if state.ReplyingTo != nil {
		t.Error("expected no open composer after close")
	}
}

func TestSingleOpenMenu(t *testing.T) {
	state := NewViewState()
	state.Seed(buildFixture())

	state.ToggleMenu(1)
	state.ToggleMenu(2)
	if state.MenuOpenFor == nil || *state.MenuOpenFor != 2 {
		t.Errorf("expected only comment 2's menu open, got %v", state.MenuOpenFor)
	}

	// Toggling the open menu closes it.
	state.ToggleMenu(2)
	if state.MenuOpenFor != nil {
		t.Error("expected menu closed after second toggle")
	}

	state.ToggleMenu(1)
	state.CloseMenu()
	if state.MenuOpenFor != nil {
		t.Error("expected menu closed after click-outside")
	}
}

func TestDeleteLifecycle(t *testing.T) {
	state := NewViewState()
	state.Seed(buildFixture())

	state.ToggleMenu(2)
	state.BeginDelete(2)
	if !state.IsDeleting(2) {
		t.Error("expected delete in flight for comment 2")
	}
	if state.MenuOpenFor != nil {
		t.Error("expected action menu closed once delete begins")
	}

	// A failed delete clears the flag; nothing was mutated, nothing to roll back.
	state.EndDelete(2)
	if state.IsDeleting(2) {
		t.Error("expected delete flag cleared")
	}
}

func TestRestoreDropsStaleIDs(t *testing.T) {
	state := NewViewState()
	state.Seed(buildFixture())

	// 99 no longer exists, 4 has no replies; only 1 survives.
	state.Restore([]int64{1, 4, 99})

	got := state.CollapsedIDs()
	if len(got) != 1 || got[0] != 1 {
		t.Errorf("expected restored collapsed set [1], got %v", got)
	}
}
