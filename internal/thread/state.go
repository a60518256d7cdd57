package thread

import "sort"

// ViewState is the per-session interaction state layered on top of a built
// forest: which reply composer is open, which threads are collapsed, which
// deletes are in flight and which action menu is showing. All operations are
// pure in-memory mutations; persistence is the caller's concern.
type ViewState struct {
	// ReplyingTo holds the comment id with an open reply composer.
	// At most one composer is open across the whole tree.
	ReplyingTo *int64

	// Collapsed holds ids of comments whose replies are hidden.
	Collapsed map[int64]struct{}

	// Deleting holds ids of comments awaiting delete confirmation from the
	// store. Their action controls are disabled while present.
	Deleting map[int64]struct{}

	// MenuOpenFor holds the comment id with an open action menu.
	// At most one menu is open across the whole tree.
	MenuOpenFor *int64

	// hasReplies is rebuilt on every Seed so collapse toggles on leaf
	// comments can be rejected.
	hasReplies map[int64]bool
}

// NewViewState returns an empty view state.
func NewViewState() *ViewState {
	return &ViewState{
		Collapsed:  make(map[int64]struct{}),
		Deleting:   make(map[int64]struct{}),
		hasReplies: make(map[int64]bool),
	}
}

// Seed resets the collapsed set from a freshly built forest: every comment
// with at least one reply starts collapsed. Compact initial rendering is the
// deliberate default over full expansion.
func (s *ViewState) Seed(forest []*Node) {
	s.Collapsed = make(map[int64]struct{})
	s.hasReplies = make(map[int64]bool)
	s.seedNode(forest)
}

func (s *ViewState) seedNode(nodes []*Node) {
	for _, n := range nodes {
		if len(n.Replies) > 0 {
			s.hasReplies[n.ID] = true
			s.Collapsed[n.ID] = struct{}{}
		}
		s.seedNode(n.Replies)
	}
}

// Restore overwrites the collapsed set with a previously persisted one,
// keeping only ids that still have replies in the current forest.
func (s *ViewState) Restore(collapsedIDs []int64) {
	s.Collapsed = make(map[int64]struct{}, len(collapsedIDs))
	for _, id := range collapsedIDs {
		if s.hasReplies[id] {
			s.Collapsed[id] = struct{}{}
		}
	}
}

// ToggleCollapse flips the collapsed state of a thread. Comments with no
// replies have no collapse control, so the call is a no-op for them.
// Returns true if the state changed.
func (s *ViewState) ToggleCollapse(id int64) bool {
	if !s.hasReplies[id] {
		return false
	}
	if _, ok := s.Collapsed[id]; ok {
		delete(s.Collapsed, id)
	} else {
		s.Collapsed[id] = struct{}{}
	}
	return true
}

// IsCollapsed reports whether a thread's replies are hidden.
func (s *ViewState) IsCollapsed(id int64) bool {
	_, ok := s.Collapsed[id]
	return ok
}

// CollapsedIDs returns the collapsed set as a sorted slice, for persistence
// and JSON responses.
func (s *ViewState) CollapsedIDs() []int64 {
	ids := make([]int64, 0, len(s.Collapsed))
	for id := range s.Collapsed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// OpenReply opens the reply composer under the given comment, closing any
// other open composer. Posting a reply does not auto-expand a collapsed
// parent thread.
func (s *ViewState) OpenReply(id int64) {
	s.ReplyingTo = &id
}

// CloseReply closes the open reply composer, if any.
func (s *ViewState) CloseReply() {
	s.ReplyingTo = nil
}

// ToggleMenu opens the action menu for a comment, or closes it if it is the
// one already open. Opening a menu closes any other open menu.
func (s *ViewState) ToggleMenu(id int64) {
	if s.MenuOpenFor != nil && *s.MenuOpenFor == id {
		s.MenuOpenFor = nil
		return
	}
	s.MenuOpenFor = &id
}

// CloseMenu closes the open action menu (click-outside behavior).
func (s *ViewState) CloseMenu() {
	s.MenuOpenFor = nil
}

// BeginDelete marks a comment as awaiting delete confirmation and closes its
// action menu.
func (s *ViewState) BeginDelete(id int64) {
	s.Deleting[id] = struct{}{}
	if s.MenuOpenFor != nil && *s.MenuOpenFor == id {
		s.MenuOpenFor = nil
	}
}

// EndDelete clears the in-flight flag for a comment. Called on both success
// and failure; the tree is only mutated after confirmed success, so there is
// nothing to roll back on failure.
func (s *ViewState) EndDelete(id int64) {
	delete(s.Deleting, id)
}

// IsDeleting reports whether a delete is in flight for a comment.
func (s *ViewState) IsDeleting(id int64) bool {
	_, ok := s.Deleting[id]
	return ok
}
