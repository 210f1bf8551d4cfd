package viewer

import (
	"fmt"
	"strings"
	"time"

	"github.com/lexandro/mdview-mcp/index"
)

// ViewMode selects how the sidebar lists documents.
type ViewMode string

const (
	ViewTree   ViewMode = "tree"
	ViewRecent ViewMode = "recent"
)

// Valid reports whether m is a known mode.
func (m ViewMode) Valid() bool {
	return m == ViewTree || m == ViewRecent
}

// defaultExpandDepth is the deepest directory level expanded on first render.
const defaultExpandDepth = 2

// TreeRow is one line of the tree view.
type TreeRow struct {
	Level     int // Indentation level, 0 for top-level entries
	Name      string
	Path      string
	IsDir     bool
	Expanded  bool
	Hidden    bool
	Read      bool
	Active    bool
	FirstLine string
}

// RecentRow is one line of the recent view.
type RecentRow struct {
	Name         string
	Path         string
	Dir          string
	Hidden       bool
	Read         bool
	Active       bool
	FirstLine    string
	RelativeTime string
}

// defaultExpanded returns the directories expanded when a tree is first shown.
func defaultExpanded(root *index.TreeNode) map[string]bool {
	expanded := make(map[string]bool)
	root.Walk(func(dir *index.TreeNode) bool {
		if dir.Depth() > defaultExpandDepth {
			return false
		}
		expanded[dir.Path] = true
		return true
	})
	return expanded
}

// treeRows flattens the visible part of root. Directories come before files
// at every level; collapsed directories hide their contents.
func treeRows(root *index.TreeNode, expanded map[string]bool, showHidden bool, isRead func(*index.DocumentRecord) bool, active string) []TreeRow {
	var rows []TreeRow
	var appendNode func(node *index.TreeNode, level int)
	appendNode = func(node *index.TreeNode, level int) {
		for _, dir := range node.Dirs() {
			if !dir.Visible(showHidden) {
				continue
			}
			open := expanded[dir.Path]
			rows = append(rows, TreeRow{
				Level:    level,
				Name:     dir.Name,
				Path:     dir.Path,
				IsDir:    true,
				Expanded: open,
				Hidden:   dir.Hidden,
			})
			if open {
				appendNode(dir, level+1)
			}
		}
		for _, file := range node.SortedFiles() {
			if file.Hidden && !showHidden {
				continue
			}
			rows = append(rows, TreeRow{
				Level:     level,
				Name:      file.Name(),
				Path:      file.Path,
				Hidden:    file.Hidden,
				Read:      isRead(file),
				Active:    file.Path == active,
				FirstLine: file.FirstLine(),
			})
		}
	}
	appendNode(root, 0)
	return rows
}

// recentRows lists records newest first, honoring the hidden filter.
func recentRows(records []*index.DocumentRecord, showHidden bool, isRead func(*index.DocumentRecord) bool, active string, now time.Time) []RecentRow {
	rows := make([]RecentRow, 0, len(records))
	for _, record := range records {
		if record.Hidden && !showHidden {
			continue
		}
		row := RecentRow{
			Name:      record.Name(),
			Path:      record.Path,
			Dir:       record.Dir(),
			Hidden:    record.Hidden,
			Read:      isRead(record),
			Active:    record.Path == active,
			FirstLine: record.FirstLine(),
		}
		if record.LastModified > 0 {
			row.RelativeTime = RelativeTime(time.UnixMilli(record.LastModified), now)
		}
		rows = append(rows, row)
	}
	return rows
}

// RelativeTime renders the age of then as seen at now.
func RelativeTime(then time.Time, now time.Time) string {
	minutes := int(now.Sub(then) / time.Minute)
	if minutes < 1 {
		return "just now"
	}
	if minutes < 60 {
		return fmt.Sprintf("%dm ago", minutes)
	}
	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh ago", hours)
	}
	days := hours / 24
	if days < 30 {
		return fmt.Sprintf("%dd ago", days)
	}
	months := days / 30
	if months < 12 {
		return fmt.Sprintf("%dmo ago", months)
	}
	return fmt.Sprintf("%dy ago", months/12)
}

// Breadcrumb renders path as its segments joined by " › ".
func Breadcrumb(path string) string {
	if path == "" {
		return ""
	}
	return strings.Join(strings.Split(path, "/"), " › ")
}

// ancestors returns every directory path above path, outermost first.
func ancestors(path string) []string {
	parts := strings.Split(path, "/")
	dirs := make([]string, 0, len(parts)-1)
	for i := 1; i < len(parts); i++ {
		dirs = append(dirs, strings.Join(parts[:i], "/"))
	}
	return dirs
}
