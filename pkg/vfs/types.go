package vfs

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Node is one row of the nodes table: a file or directory addressed by
// (RootKey, ParentPath, Filename). Times are epoch milliseconds.
type Node struct {
	ID           int64
	UUID         uuid.UUID
	OwnerID      int64
	RootKey      string
	ParentPath   string
	Filename     string
	Ordinal      int32
	IsDirectory  bool
	IsPublic     bool
	IsBinary     bool
	ContentText  *string
	ContentBin   []byte
	ContentType  string
	SizeBytes    int64
	CreatedTime  int64
	ModifiedTime int64
}

// Path returns the node's full path within its root.
func (n *Node) Path() string {
	return Join(n.ParentPath, n.Filename)
}

// Text returns the text payload, or "" for binary files and directories.
func (n *Node) Text() string {
	if n.ContentText == nil {
		return ""
	}
	return *n.ContentText
}

// OrdinalShift records one child's move during an ordinal shift.
type OrdinalShift struct {
	OldOrdinal int32
	NewOrdinal int32
}

// scanNode reads one full nodes row in table column order.
func scanNode(row pgx.Row) (*Node, error) {
	var n Node
	err := row.Scan(
		&n.ID, &n.UUID, &n.OwnerID, &n.RootKey, &n.ParentPath, &n.Filename,
		&n.Ordinal, &n.IsDirectory, &n.IsPublic, &n.IsBinary,
		&n.ContentText, &n.ContentBin, &n.ContentType, &n.SizeBytes,
		&n.CreatedTime, &n.ModifiedTime,
	)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// scanNodes drains a SETOF nodes result.
func scanNodes(rows pgx.Rows) ([]Node, error) {
	defer rows.Close()

	var out []Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *n)
	}
	return out, rows.Err()
}
