package thread

import (
	"testing"
	"time"

	"studenthub/internal/model"
)

// comment builds a test comment. parent == 0 means top-level.
func comment(id, parent int64, unixTime int64) model.Comment {
	c := model.Comment{
		ID:        id,
		CourseID:  1,
		UserID:    1,
		Content:   "test",
		CreatedAt: time.Unix(unixTime, 0),
	}
	if parent != 0 {
		p := parent
		c.ParentID = &p
	}
	return c
}

func ids(nodes []*Node) []int64 {
	out := make([]int64, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestBuildEmpty(t *testing.T) {
	forest := Build(nil)
	if len(forest) != 0 {
		t.Fatalf("expected empty forest, got %d nodes", len(forest))
	}

	forest = Build([]model.Comment{})
	if len(forest) != 0 {
		t.Fatalf("expected empty forest, got %d nodes", len(forest))
	}
}

func TestBuildOrderingScenario(t *testing.T) {
	// Top-level nodes newest-first; replies oldest-first.
	flat := []model.Comment{
		comment(1, 0, 10),
		comment(2, 1, 20),
		comment(3, 1, 15),
		comment(4, 0, 30),
	}

	forest := Build(flat)

	if len(forest) != 2 {
		t.Fatalf("expected 2 top-level nodes, got %d", len(forest))
	}
	if forest[0].ID != 4 || forest[1].ID != 1 {
		t.Errorf("expected top-level order [4 1], got %v", ids(forest))
	}

	replies := forest[1].Replies
	if len(replies) != 2 {
		t.Fatalf("expected 2 replies under comment 1, got %d", len(replies))
	}
	if replies[0].ID != 3 || replies[1].ID != 2 {
		t.Errorf("expected reply order [3 2], got %v", ids(replies))
	}
	if len(forest[0].Replies) != 0 {
		t.Errorf("expected no replies under comment 4, got %d", len(forest[0].Replies))
	}
}

func TestBuildChildParentInvariant(t *testing.T) {
	flat := []model.Comment{
		comment(1, 0, 10),
		comment(2, 1, 20),
		comment(3, 2, 30),
		comment(4, 1, 25),
		comment(5, 0, 40),
		comment(6, 5, 50),
	}

	var check func(nodes []*Node)
	check = func(nodes []*Node) {
		for _, n := range nodes {
			for _, reply := range n.Replies {
				if reply.ParentID == nil || *reply.ParentID != n.ID {
					t.Errorf("reply %d under node %d has parent_id %v", reply.ID, n.ID, reply.ParentID)
				}
			}
			check(n.Replies)
		}
	}
	check(Build(flat))
}

func TestBuildSortInvariants(t *testing.T) {
	flat := []model.Comment{
		comment(1, 0, 50),
		comment(2, 0, 10),
		comment(3, 0, 30),
		comment(4, 3, 99),
		comment(5, 3, 12),
		comment(6, 3, 45),
		comment(7, 6, 80),
		comment(8, 6, 60),
	}

	forest := Build(flat)

	for i := 1; i < len(forest); i++ {
		if forest[i].CreatedAt.After(forest[i-1].CreatedAt) {
			t.Errorf("top-level nodes not newest-first at index %d", i)
		}
	}

	var checkReplies func(n *Node)
	checkReplies = func(n *Node) {
		for i := 1; i < len(n.Replies); i++ {
			if n.Replies[i].CreatedAt.Before(n.Replies[i-1].CreatedAt) {
				t.Errorf("replies of node %d not oldest-first at index %d", n.ID, i)
			}
		}
		for _, reply := range n.Replies {
			checkReplies(reply)
		}
	}
	for _, n := range forest {
		checkReplies(n)
	}
}

func TestBuildOrphanFallback(t *testing.T) {
	// Parent 99 does not exist: comment 2 is treated as top-level.
	flat := []model.Comment{
		comment(1, 0, 10),
		comment(2, 99, 20),
	}

	forest := Build(flat)
	if len(forest) != 2 {
		t.Fatalf("expected orphan promoted to top level, got %d roots", len(forest))
	}
	if forest[0].ID != 2 || forest[1].ID != 1 {
		t.Errorf("expected top-level order [2 1], got %v", ids(forest))
	}
}

func TestBuildBreaksSelfParentCycle(t *testing.T) {
	flat := []model.Comment{
		comment(1, 1, 10), // references itself
		comment(2, 1, 20),
	}

	forest := Build(flat)
	if len(forest) != 1 {
		t.Fatalf("expected 1 root, got %d", len(forest))
	}
	if forest[0].ID != 1 {
		t.Fatalf("expected comment 1 promoted to root, got %d", forest[0].ID)
	}
	if len(forest[0].Replies) != 1 || forest[0].Replies[0].ID != 2 {
		t.Errorf("expected comment 2 attached under 1, got %v", ids(forest[0].Replies))
	}
}

func TestBuildBreaksTwoNodeCycle(t *testing.T) {
	flat := []model.Comment{
		comment(1, 2, 10),
		comment(2, 1, 20),
		comment(3, 2, 30),
	}

	forest := Build(flat)
	if len(forest) != 1 {
		t.Fatalf("expected 1 root after cycle break, got %d roots: %v", len(forest), ids(forest))
	}
	// The first comment in the cycle gets promoted; the rest hang off it.
	if forest[0].ID != 1 {
		t.Fatalf("expected comment 1 promoted to root, got %d", forest[0].ID)
	}
	if Find(forest, 2) == nil || Find(forest, 3) == nil {
		t.Error("expected all comments reachable after cycle break")
	}
}

func TestPruneRemovesSubtree(t *testing.T) {
	flat := []model.Comment{
		comment(1, 0, 10),
		comment(2, 1, 20),
		comment(3, 1, 15),
		comment(4, 0, 30),
	}

	forest := Prune(Build(flat), 1)

	if len(forest) != 1 || forest[0].ID != 4 {
		t.Fatalf("expected only comment 4 left, got %v", ids(forest))
	}
	for _, id := range []int64{1, 2, 3} {
		if Find(forest, id) != nil {
			t.Errorf("comment %d should have been pruned", id)
		}
	}
}

func TestPruneNestedReply(t *testing.T) {
	flat := []model.Comment{
		comment(1, 0, 10),
		comment(2, 1, 20),
		comment(3, 2, 30),
		comment(4, 2, 40),
		comment(5, 1, 50),
	}

	forest := Prune(Build(flat), 2)

	if Find(forest, 2) != nil || Find(forest, 3) != nil || Find(forest, 4) != nil {
		t.Error("expected comment 2 and its descendants removed")
	}
	if Find(forest, 1) == nil || Find(forest, 5) == nil {
		t.Error("comments outside the pruned subtree should be unaffected")
	}
	if forest[0].ReplyCount != 1 {
		t.Errorf("expected reply count recomputed to 1, got %d", forest[0].ReplyCount)
	}
}

func TestReplyCountIsRecursive(t *testing.T) {
	flat := []model.Comment{
		comment(1, 0, 10),
		comment(2, 1, 20),
		comment(3, 2, 30),
		comment(4, 3, 40),
		comment(5, 1, 50),
	}

	forest := Build(flat)
	root := Find(forest, 1)
	if root.ReplyCount != 4 {
		t.Errorf("expected root reply count 4 (all descendants), got %d", root.ReplyCount)
	}
	if n := Find(forest, 2); n.ReplyCount != 2 {
		t.Errorf("expected reply count 2 for comment 2, got %d", n.ReplyCount)
	}
	if n := Find(forest, 4); n.ReplyCount != 0 {
		t.Errorf("expected reply count 0 for leaf, got %d", n.ReplyCount)
	}
}

func TestTotalCountDirectChildrenOnly(t *testing.T) {
	// The displayed total counts top-level comments and their direct
	// replies; grandchildren are not included.
	flat := []model.Comment{
		comment(1, 0, 10),
		comment(2, 1, 20),
		comment(3, 2, 30), // grandchild, not counted
		comment(4, 0, 40),
	}

	forest := Build(flat)
	if got := TotalCount(forest); got != 3 {
		t.Errorf("expected total count 3, got %d", got)
	}
}
