package thread

import (
	"sort"

	"studenthub/internal/model"
)

// Node is a comment plus its ordered replies. Nodes are built fresh from the
// full flat list on every fetch and never persisted.
type Node struct {
	model.Comment
	ReplyCount int     `json:"reply_count"` // all transitive descendants
	Replies    []*Node `json:"replies"`
}

// Build converts a flat comment list into a forest of top-level nodes.
//
// Attachment rules:
//   - a comment with no parent is top-level;
//   - a comment whose parent id is unknown is treated as top-level
//     (the row may have raced a cascade delete);
//   - a comment whose parent chain loops back onto itself is promoted to
//     top-level so rendering cannot recurse forever.
//
// Ordering: top-level newest-first, every other depth oldest-first, so reply
// chains read top-to-bottom as a conversation.
func Build(comments []model.Comment) []*Node {
	nodes := make(map[int64]*Node, len(comments))
	for i := range comments {
		nodes[comments[i].ID] = &Node{Comment: comments[i], Replies: []*Node{}}
	}

	// forcedRoot marks comments promoted to the top level: orphaned parent
	// references and cycle breaks.
	forcedRoot := make(map[int64]bool)
	for i := range comments {
		c := &comments[i]
		if c.ParentID == nil {
			continue
		}
		if _, ok := nodes[*c.ParentID]; !ok {
			forcedRoot[c.ID] = true
			continue
		}
		// Walk the parent chain. A chain that revisits this comment is a
		// cycle; break it here by promoting the comment.
		seen := map[int64]bool{c.ID: true}
		cur := *c.ParentID
		for {
			if forcedRoot[cur] {
				break // chain terminates at an already-promoted node
			}
			if seen[cur] {
				forcedRoot[c.ID] = true
				break
			}
			seen[cur] = true
			parent := nodes[cur].ParentID
			if parent == nil {
				break
			}
			if _, ok := nodes[*parent]; !ok {
				break
			}
			cur = *parent
		}
	}

	roots := make([]*Node, 0, len(comments))
	for i := range comments {
		c := &comments[i]
		n := nodes[c.ID]
		if c.ParentID == nil || forcedRoot[c.ID] {
			roots = append(roots, n)
			continue
		}
		nodes[*c.ParentID].Replies = append(nodes[*c.ParentID].Replies, n)
	}

	sort.SliceStable(roots, func(i, j int) bool {
		if roots[i].CreatedAt.Equal(roots[j].CreatedAt) {
			return roots[i].ID > roots[j].ID
		}
		return roots[i].CreatedAt.After(roots[j].CreatedAt)
	})
	for _, r := range roots {
		sortReplies(r)
	}
	annotate(roots)

	return roots
}

// sortReplies orders a node's replies oldest-first, depth-first.
func sortReplies(n *Node) {
	sort.SliceStable(n.Replies, func(i, j int) bool {
		if n.Replies[i].CreatedAt.Equal(n.Replies[j].CreatedAt) {
			return n.Replies[i].ID < n.Replies[j].ID
		}
		return n.Replies[i].CreatedAt.Before(n.Replies[j].CreatedAt)
	})
	for _, child := range n.Replies {
		sortReplies(child)
	}
}

// annotate fills in ReplyCount (transitive descendant count) for every node.
func annotate(forest []*Node) {
	for _, n := range forest {
		countReplies(n)
	}
}

func countReplies(n *Node) int {
	total := 0
	for _, child := range n.Replies {
		total += 1 + countReplies(child)
	}
	n.ReplyCount = total
	return total
}

// Prune removes the node with the given id, and all of its transitive
// descendants, from the forest. Nodes outside that subtree are unaffected.
// Reply counts are recomputed on the remaining nodes.
func Prune(forest []*Node, id int64) []*Node {
	out := make([]*Node, 0, len(forest))
	for _, n := range forest {
		if n.ID == id {
			continue
		}
		pruneNode(n, id)
		out = append(out, n)
	}
	annotate(out)
	return out
}

func pruneNode(n *Node, id int64) {
	replies := n.Replies[:0]
	for _, child := range n.Replies {
		if child.ID == id {
			continue
		}
		pruneNode(child, id)
		replies = append(replies, child)
	}
	n.Replies = replies
}

// Find returns the node with the given id, searching depth-first, or nil.
func Find(forest []*Node, id int64) *Node {
	for _, n := range forest {
		if n.ID == id {
			return n
		}
		if found := Find(n.Replies, id); found != nil {
			return found
		}
	}
	return nil
}

// TotalCount is the document-wide comment counter shown on the course page:
// top-level comments plus their direct replies. It deliberately does not
// recurse into deeper replies, matching the product's displayed count.
func TotalCount(forest []*Node) int {
	total := len(forest)
	for _, n := range forest {
		total += len(n.Replies)
	}
	return total
}
