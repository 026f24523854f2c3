package docs

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/inkbase/inkbase/pkg/vfs"
)

// TreeNode is one node of an exported subtree. Children are ordered by
// (ordinal, filename), the same order readdir uses.
type TreeNode struct {
	Name         string      `json:"name"`
	Path         string      `json:"path"`
	IsDirectory  bool        `json:"isDirectory"`
	IsPublic     bool        `json:"isPublic"`
	IsBinary     bool        `json:"isBinary,omitempty"`
	ContentType  string      `json:"contentType,omitempty"`
	SizeBytes    int64       `json:"sizeBytes"`
	ModifiedTime int64       `json:"modifiedTime"`
	Content      string      `json:"content,omitempty"`
	Children     []*TreeNode `json:"children,omitempty"`

	ordinal int32
}

// ExportTree returns the subtree rooted at path as a nested structure,
// with text content inlined. Binary payloads are omitted; callers fetch
// them separately by path.
func (s *Service) ExportTree(ctx context.Context, ownerID int64, path, rootKey string) (*TreeNode, error) {
	path = vfs.Normalize(path)

	root := &TreeNode{
		Name:        lastComponent(path),
		Path:        path,
		IsDirectory: true,
	}
	rootID := uuid.Nil

	if path != "" {
		node, err := s.fs.StatPath(ctx, path, rootKey)
		if err != nil {
			return nil, err
		}
		if node == nil {
			return nil, vfs.NewNotFound(path)
		}
		if !node.IsDirectory {
			return exportLeaf(node), nil
		}
		root = exportLeaf(node)
		rootID = node.UUID
	}

	// The top of a root key has no row of its own; uuid.Nil matches
	// nothing and the path predicates select the whole tree.
	descendants, err := s.fs.Descendants(ctx, rootID, path, rootKey)
	if err != nil {
		return nil, err
	}

	byPath := map[string]*TreeNode{root.Path: root}
	for i := range descendants {
		n := &descendants[i]
		if n.Path() == root.Path {
			continue
		}
		byPath[n.Path()] = exportLeaf(n)
	}

	for _, tn := range byPath {
		if tn == root {
			continue
		}
		parentPath := parentOf(tn.Path)
		parent, ok := byPath[parentPath]
		if !ok {
			// Orphaned prefix outside the requested subtree; skip.
			continue
		}
		parent.Children = append(parent.Children, tn)
	}

	sortTree(root)
	return root, nil
}

func exportLeaf(n *vfs.Node) *TreeNode {
	tn := &TreeNode{
		Name:         n.Filename,
		Path:         n.Path(),
		IsDirectory:  n.IsDirectory,
		IsPublic:     n.IsPublic,
		IsBinary:     n.IsBinary,
		ContentType:  n.ContentType,
		SizeBytes:    n.SizeBytes,
		ModifiedTime: n.ModifiedTime,
		ordinal:      n.Ordinal,
	}
	if !n.IsDirectory && !n.IsBinary {
		tn.Content = n.Text()
	}
	return tn
}

func sortTree(tn *TreeNode) {
	sort.SliceStable(tn.Children, func(i, j int) bool {
		a, b := tn.Children[i], tn.Children[j]
		if a.ordinal != b.ordinal {
			return a.ordinal < b.ordinal
		}
		return a.Name < b.Name
	})
	for _, child := range tn.Children {
		sortTree(child)
	}
}

func lastComponent(path string) string {
	_, name := vfs.Split(path)
	return name
}

func parentOf(path string) string {
	parent, _ := vfs.Split(path)
	return parent
}
