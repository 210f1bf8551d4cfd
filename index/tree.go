package index

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// TreeNode is a directory in the document tree.
type TreeNode struct {
	Name     string               // Own segment, "" for the root
	Path     string               // Directory path from the root, "" for the root
	Hidden   bool                 // Own name starts with "." or parent is hidden
	Children map[string]*TreeNode // Subdirectories keyed by segment
	Files    []*DocumentRecord    // Documents whose parent directory is this node
}

func newTreeNode(name, path string, hidden bool) *TreeNode {
	return &TreeNode{
		Name:     name,
		Path:     path,
		Hidden:   hidden,
		Children: make(map[string]*TreeNode),
	}
}

// Build groups records into a directory tree. Hidden propagates downward:
// once a directory is hidden every descendant is hidden. The root is never
// hidden.
func Build(records []*DocumentRecord) *TreeNode {
	root := newTreeNode("", "", false)

	for _, record := range records {
		parts := strings.Split(record.Path, "/")
		current := root

		for _, part := range parts[:len(parts)-1] {
			child, ok := current.Children[part]
			if !ok {
				childPath := part
				if current.Path != "" {
					childPath = current.Path + "/" + part
				}
				child = newTreeNode(part, childPath, current.Hidden || strings.HasPrefix(part, "."))
				current.Children[part] = child
			}
			current = child
		}

		current.Files = append(current.Files, record)
	}

	return root
}

// newCollator returns a locale-aware comparator. Collators keep internal
// buffers, so each sort gets its own.
func newCollator() *collate.Collator {
	return collate.New(language.Und)
}

// Dirs returns the subdirectories sorted by name.
func (n *TreeNode) Dirs() []*TreeNode {
	dirs := make([]*TreeNode, 0, len(n.Children))
	for _, child := range n.Children {
		dirs = append(dirs, child)
	}
	c := newCollator()
	sort.Slice(dirs, func(i, j int) bool {
		return c.CompareString(dirs[i].Name, dirs[j].Name) < 0
	})
	return dirs
}

// SortedFiles returns the node's documents sorted by full path.
func (n *TreeNode) SortedFiles() []*DocumentRecord {
	files := make([]*DocumentRecord, len(n.Files))
	copy(files, n.Files)
	c := newCollator()
	sort.Slice(files, func(i, j int) bool {
		return c.CompareString(files[i].Path, files[j].Path) < 0
	})
	return files
}

// Visible reports whether the node should be rendered. A node with no
// visible files and no visible descendants is never rendered; the root is
// always visible.
func (n *TreeNode) Visible(showHidden bool) bool {
	if n.Path == "" {
		return true
	}
	if n.Hidden && !showHidden {
		return false
	}
	return n.hasVisibleContent(showHidden)
}

func (n *TreeNode) hasVisibleContent(showHidden bool) bool {
	for _, f := range n.Files {
		if showHidden || !f.Hidden {
			return true
		}
	}
	for _, child := range n.Children {
		if child.Hidden && !showHidden {
			continue
		}
		if child.hasVisibleContent(showHidden) {
			return true
		}
	}
	return false
}

// Depth returns how many segments the node's path has.
func (n *TreeNode) Depth() int {
	if n.Path == "" {
		return 0
	}
	return strings.Count(n.Path, "/") + 1
}

// Walk visits every directory below n (excluding n) in presentation order.
func (n *TreeNode) Walk(visit func(dir *TreeNode) bool) {
	for _, child := range n.Dirs() {
		if !visit(child) {
			continue
		}
		child.Walk(visit)
	}
}

// DirPaths returns the set of every directory path in the tree.
func (n *TreeNode) DirPaths() map[string]bool {
	paths := make(map[string]bool)
	var collect func(node *TreeNode)
	collect = func(node *TreeNode) {
		for _, child := range node.Children {
			paths[child.Path] = true
			collect(child)
		}
	}
	collect(n)
	return paths
}
