package vfs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkbase/inkbase/internal/logger"
	"github.com/inkbase/inkbase/pkg/store/txscope"
)

// FS exposes the file-system primitives. Each method is a parameterized
// call to one vfs_* stored function; when the context carries an ambient
// transaction the call joins it, otherwise it runs on the pool.
type FS struct {
	pool *pgxpool.Pool
}

// New creates an FS on the given pool.
func New(pool *pgxpool.Pool) *FS {
	return &FS{pool: pool}
}

func (fs *FS) q(ctx context.Context) txscope.Querier {
	return txscope.QuerierFor(ctx, fs.pool)
}

// MkdirOptions tunes directory creation. A nil Ordinal appends at the end
// of the parent. ForceUnique retries a taken name with a numeric suffix
// instead of failing.
type MkdirOptions struct {
	Ordinal     *int32
	Public      bool
	ForceUnique bool
}

// WriteOptions tunes file creation. A nil Ordinal appends; Overwrite
// replaces an existing file's payload while keeping its ordinal, uuid,
// owner and visibility.
type WriteOptions struct {
	Ordinal     *int32
	ContentType string
	Overwrite   bool
}

// EnsurePath idempotently creates every missing directory along path.
// The empty path is the root and always succeeds.
func (fs *FS) EnsurePath(ctx context.Context, ownerID int64, path, rootKey string) error {
	path = Normalize(path)
	if err := ValidatePath(path); err != nil {
		return err
	}

	_, err := fs.q(ctx).Exec(ctx,
		`SELECT vfs_ensure_path($1, $2, $3)`,
		ownerID, path, rootKey)
	if err != nil {
		return mapPgError(err, "EnsurePath", path)
	}
	return nil
}

// Mkdir creates one directory under parentPath.
func (fs *FS) Mkdir(ctx context.Context, ownerID int64, parentPath, name, rootKey string, opts MkdirOptions) error {
	parentPath = Normalize(parentPath)
	if !ValidName(name) {
		return NewInvalidName(name)
	}

	var id int64
	err := fs.q(ctx).QueryRow(ctx,
		`SELECT vfs_mkdir($1, $2, $3, $4, $5, $6, $7)`,
		ownerID, parentPath, name, rootKey, opts.Ordinal, opts.Public, opts.ForceUnique,
	).Scan(&id)
	if err != nil {
		return mapPgError(err, "Mkdir", Join(parentPath, name))
	}

	logger.DebugCtx(ctx, "directory created",
		logger.ParentPath(parentPath), logger.Filename(name), logger.RootKey(rootKey))
	return nil
}

// WriteTextFile creates or overwrites a text file, creating missing parent
// directories first.
func (fs *FS) WriteTextFile(ctx context.Context, ownerID int64, parentPath, name, content, rootKey string, opts WriteOptions) error {
	parentPath = Normalize(parentPath)
	if !ValidName(name) {
		return NewInvalidName(name)
	}
	if err := ValidatePath(parentPath); err != nil {
		return err
	}

	var id int64
	err := fs.q(ctx).QueryRow(ctx,
		`SELECT vfs_write_text_file($1, $2, $3, $4, $5, $6, $7, $8)`,
		ownerID, parentPath, name, content, rootKey, opts.Ordinal, opts.ContentType, opts.Overwrite,
	).Scan(&id)
	if err != nil {
		return mapPgError(err, "WriteTextFile", Join(parentPath, name))
	}

	logger.DebugCtx(ctx, "text file written",
		logger.ParentPath(parentPath), logger.Filename(name),
		logger.Size(int64(len(content))), logger.RootKey(rootKey))
	return nil
}

// WriteBinaryFile is the binary twin of WriteTextFile.
func (fs *FS) WriteBinaryFile(ctx context.Context, ownerID int64, parentPath, name string, content []byte, rootKey string, opts WriteOptions) error {
	parentPath = Normalize(parentPath)
	if !ValidName(name) {
		return NewInvalidName(name)
	}
	if err := ValidatePath(parentPath); err != nil {
		return err
	}

	var id int64
	err := fs.q(ctx).QueryRow(ctx,
		`SELECT vfs_write_binary_file($1, $2, $3, $4, $5, $6, $7, $8)`,
		ownerID, parentPath, name, content, rootKey, opts.Ordinal, opts.ContentType, opts.Overwrite,
	).Scan(&id)
	if err != nil {
		return mapPgError(err, "WriteBinaryFile", Join(parentPath, name))
	}

	logger.DebugCtx(ctx, "binary file written",
		logger.ParentPath(parentPath), logger.Filename(name),
		logger.Size(int64(len(content))), logger.RootKey(rootKey))
	return nil
}

// ReadFile returns a file's payload as bytes; text payloads come back
// UTF-8 encoded.
func (fs *FS) ReadFile(ctx context.Context, ownerID int64, parentPath, name, rootKey string) ([]byte, error) {
	parentPath = Normalize(parentPath)

	var content []byte
	err := fs.q(ctx).QueryRow(ctx,
		`SELECT vfs_read_file($1, $2, $3, $4)`,
		ownerID, parentPath, name, rootKey,
	).Scan(&content)
	if err != nil {
		return nil, mapPgError(err, "ReadFile", Join(parentPath, name))
	}
	return content, nil
}

// ReadTextFile reads a file and returns its payload as a string.
func (fs *FS) ReadTextFile(ctx context.Context, ownerID int64, parentPath, name, rootKey string) (string, error) {
	b, err := fs.ReadFile(ctx, ownerID, parentPath, name, rootKey)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Exists reports whether a node exists, with no ownership check.
func (fs *FS) Exists(ctx context.Context, parentPath, name, rootKey string) (bool, error) {
	var exists bool
	err := fs.q(ctx).QueryRow(ctx,
		`SELECT vfs_exists($1, $2, $3)`,
		Normalize(parentPath), name, rootKey,
	).Scan(&exists)
	if err != nil {
		return false, mapPgError(err, "Exists", Join(parentPath, name))
	}
	return exists, nil
}

// Stat returns the node's metadata, or (nil, nil) when it does not exist.
func (fs *FS) Stat(ctx context.Context, parentPath, name, rootKey string) (*Node, error) {
	rows, err := fs.q(ctx).Query(ctx,
		`SELECT * FROM vfs_stat($1, $2, $3)`,
		Normalize(parentPath), name, rootKey)
	if err != nil {
		return nil, mapPgError(err, "Stat", Join(parentPath, name))
	}

	nodes, err := scanNodes(rows)
	if err != nil {
		return nil, mapPgError(err, "Stat", Join(parentPath, name))
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return &nodes[0], nil
}

// StatPath is Stat addressed by full path.
func (fs *FS) StatPath(ctx context.Context, path, rootKey string) (*Node, error) {
	parent, name := Split(path)
	return fs.Stat(ctx, parent, name, rootKey)
}

// ReadDir lists the children of a directory ordered by (ordinal, filename).
// Listing a missing directory returns an empty slice.
func (fs *FS) ReadDir(ctx context.Context, ownerID int64, parentPath, rootKey string) ([]Node, error) {
	parentPath = Normalize(parentPath)

	rows, err := fs.q(ctx).Query(ctx,
		`SELECT * FROM vfs_readdir($1, $2, $3)`,
		ownerID, parentPath, rootKey)
	if err != nil {
		return nil, mapPgError(err, "ReadDir", parentPath)
	}

	nodes, err := scanNodes(rows)
	if err != nil {
		return nil, mapPgError(err, "ReadDir", parentPath)
	}
	return nodes, nil
}

// Rename moves and/or renames a node. Renaming a directory atomically
// rewrites the parent_path prefix of its entire subtree.
func (fs *FS) Rename(ctx context.Context, ownerID int64, oldParent, oldName, newParent, newName, rootKey string) error {
	oldParent = Normalize(oldParent)
	newParent = Normalize(newParent)
	if !ValidName(newName) {
		return NewInvalidName(newName)
	}

	var success bool
	var diagnostic string
	err := fs.q(ctx).QueryRow(ctx,
		`SELECT success, diagnostic FROM vfs_rename($1, $2, $3, $4, $5, $6)`,
		ownerID, oldParent, oldName, newParent, newName, rootKey,
	).Scan(&success, &diagnostic)
	if err != nil {
		return mapPgError(err, "Rename", Join(oldParent, oldName))
	}

	if !success {
		switch diagnostic {
		case "not found":
			return NewNotFound(Join(oldParent, oldName))
		case "already exists":
			return NewAlreadyExists(Join(newParent, newName))
		default:
			return NewError(KindInternal,
				fmt.Sprintf("Rename: %s", diagnostic), Join(oldParent, oldName))
		}
	}

	logger.DebugCtx(ctx, "node renamed",
		logger.OldPath(Join(oldParent, oldName)),
		logger.NewPath(Join(newParent, newName)),
		logger.RootKey(rootKey))
	return nil
}

// Unlink deletes a single file.
func (fs *FS) Unlink(ctx context.Context, ownerID int64, parentPath, name, rootKey string) error {
	parentPath = Normalize(parentPath)

	_, err := fs.q(ctx).Exec(ctx,
		`SELECT vfs_unlink($1, $2, $3, $4)`,
		ownerID, parentPath, name, rootKey)
	if err != nil {
		return mapPgError(err, "Unlink", Join(parentPath, name))
	}
	return nil
}

// Rmdir deletes a directory. With recursive the entire subtree goes in the
// same transaction; without it a populated directory is an error. force
// suppresses the missing-directory error only.
func (fs *FS) Rmdir(ctx context.Context, ownerID int64, parentPath, name, rootKey string, recursive, force bool) error {
	parentPath = Normalize(parentPath)

	_, err := fs.q(ctx).Exec(ctx,
		`SELECT vfs_rmdir($1, $2, $3, $4, $5, $6)`,
		ownerID, parentPath, name, rootKey, recursive, force)
	if err != nil {
		return mapPgError(err, "Rmdir", Join(parentPath, name))
	}
	return nil
}

// Remove deletes a file or directory by full path, dispatching on the
// node's type. The root itself cannot be removed.
func (fs *FS) Remove(ctx context.Context, ownerID int64, path, rootKey string, recursive, force bool) error {
	path = Normalize(path)
	if path == "" {
		return NewError(KindCannotDeleteRoot, "cannot delete the root directory", "")
	}

	parent, name := Split(path)

	node, err := fs.Stat(ctx, parent, name, rootKey)
	if err != nil {
		return err
	}
	if node == nil {
		if force {
			return nil
		}
		return NewNotFound(path)
	}

	if node.IsDirectory {
		return fs.Rmdir(ctx, ownerID, parent, name, rootKey, recursive, force)
	}
	return fs.Unlink(ctx, ownerID, parent, name, rootKey)
}

// ShiftOrdinalsDown opens slots positions at insertAt by pushing every
// child at or past it down, and reports the moves.
func (fs *FS) ShiftOrdinalsDown(ctx context.Context, ownerID int64, parentPath string, insertAt, slots int32, rootKey string) ([]OrdinalShift, error) {
	parentPath = Normalize(parentPath)

	rows, err := fs.q(ctx).Query(ctx,
		`SELECT old_ordinal, new_ordinal FROM vfs_shift_ordinals_down($1, $2, $3, $4, $5)`,
		ownerID, parentPath, insertAt, slots, rootKey)
	if err != nil {
		return nil, mapPgError(err, "ShiftOrdinalsDown", parentPath)
	}
	defer rows.Close()

	var shifts []OrdinalShift
	for rows.Next() {
		var s OrdinalShift
		if err := rows.Scan(&s.OldOrdinal, &s.NewOrdinal); err != nil {
			return nil, mapPgError(err, "ShiftOrdinalsDown", parentPath)
		}
		shifts = append(shifts, s)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err, "ShiftOrdinalsDown", parentPath)
	}
	return shifts, nil
}

// Descendants returns a node and its whole subtree as a flat list.
func (fs *FS) Descendants(ctx context.Context, id uuid.UUID, rootPath, rootKey string) ([]Node, error) {
	rootPath = Normalize(rootPath)

	rows, err := fs.q(ctx).Query(ctx,
		`SELECT * FROM vfs_get_descendants($1, $2, $3)`,
		id, rootPath, rootKey)
	if err != nil {
		return nil, mapPgError(err, "Descendants", rootPath)
	}

	nodes, err := scanNodes(rows)
	if err != nil {
		return nil, mapPgError(err, "Descendants", rootPath)
	}
	return nodes, nil
}

// CheckAuth reports whether ownerID may act on the node. Owner 0 is the
// admin and passes for any existing node; publicOk additionally admits
// public nodes.
func (fs *FS) CheckAuth(ctx context.Context, ownerID int64, parentPath, name, rootKey string, publicOk bool) (bool, error) {
	var ok bool
	err := fs.q(ctx).QueryRow(ctx,
		`SELECT vfs_check_auth($1, $2, $3, $4, $5)`,
		ownerID, Normalize(parentPath), name, rootKey, publicOk,
	).Scan(&ok)
	if err != nil {
		return false, mapPgError(err, "CheckAuth", Join(parentPath, name))
	}
	return ok, nil
}

// SetOrdinal places a node at an explicit position within its directory.
// Slots are opened beforehand with ShiftOrdinalsDown; duplicates are
// tolerated and resolved by the (ordinal, filename) listing order.
func (fs *FS) SetOrdinal(ctx context.Context, ownerID int64, parentPath, name, rootKey string, ordinal int32) error {
	parentPath = Normalize(parentPath)

	tag, err := fs.q(ctx).Exec(ctx,
		`UPDATE nodes SET ordinal = $1
		 WHERE root_key = $2 AND parent_path = $3 AND filename = $4
		   AND ($5 = 0 OR owner_id = $5)`,
		ordinal, rootKey, parentPath, name, ownerID)
	if err != nil {
		return mapPgError(err, "SetOrdinal", Join(parentPath, name))
	}
	if tag.RowsAffected() == 0 {
		// Zero rows means either no such node or a node owned by someone
		// else; a second lookup tells the two apart.
		exists, err := fs.Exists(ctx, parentPath, name, rootKey)
		if err != nil {
			return err
		}
		if exists {
			return NewNotAuthorized(Join(parentPath, name))
		}
		return NewNotFound(Join(parentPath, name))
	}
	return nil
}

// SetPublic flips a node's advisory visibility flag.
func (fs *FS) SetPublic(ctx context.Context, ownerID int64, parentPath, name, rootKey string, public bool) error {
	parentPath = Normalize(parentPath)

	_, err := fs.q(ctx).Exec(ctx,
		`SELECT vfs_set_public($1, $2, $3, $4, $5)`,
		ownerID, parentPath, name, rootKey, public)
	if err != nil {
		return mapPgError(err, "SetPublic", Join(parentPath, name))
	}
	return nil
}
