// Package docs orchestrates composite document operations on top of the
// file-system primitives. Every operation runs inside a single transaction
// scope: nested primitive calls join it, and any failure rolls the whole
// operation back.
package docs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkbase/inkbase/internal/logger"
	"github.com/inkbase/inkbase/pkg/metrics"
	"github.com/inkbase/inkbase/pkg/store/txscope"
	"github.com/inkbase/inkbase/pkg/vfs"
)

const (
	defaultExtension    = ".md"
	markdownContentType = "text/markdown"
)

// Direction of a move_up_down operation.
type Direction int

const (
	// Up moves a node towards ordinal 0.
	Up Direction = iota
	// Down moves a node away from ordinal 0.
	Down
)

// Service implements the composite document operations.
type Service struct {
	fs   *vfs.FS
	pool *pgxpool.Pool
}

// New creates a Service.
func New(fs *vfs.FS, pool *pgxpool.Pool) *Service {
	return &Service{fs: fs, pool: pool}
}

// run wraps fn in one transaction scope and records the outcome.
func (s *Service) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := txscope.Run(ctx, s.pool, fn)

	status := "ok"
	if err != nil {
		status = "error"
		logger.WarnCtx(ctx, "operation failed",
			logger.Op(op), logger.Err(err),
			logger.ErrorKind(vfs.KindOf(err).String()))
	}
	metrics.DocOperations.WithLabelValues(op, status).Inc()
	metrics.DocOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	return err
}

// requireFolder checks that folder exists and is a directory. The empty
// folder is the root and always passes.
func (s *Service) requireFolder(ctx context.Context, folder, rootKey string) error {
	folder = vfs.Normalize(folder)
	if folder == "" {
		return nil
	}

	parent, name := vfs.Split(folder)
	node, err := s.fs.Stat(ctx, parent, name, rootKey)
	if err != nil {
		return err
	}
	if node == nil {
		return vfs.NewNotFound(folder)
	}
	if !node.IsDirectory {
		return vfs.NewError(vfs.KindNotADirectory,
			fmt.Sprintf("%s is not a directory", folder), folder)
	}
	return nil
}

// targetOrdinal resolves the insertion position: top of the directory when
// insertAfter is empty, otherwise directly after the named sibling.
func (s *Service) targetOrdinal(ctx context.Context, folder, insertAfter, rootKey string) (int32, error) {
	if insertAfter == "" {
		return 0, nil
	}
	node, err := s.fs.Stat(ctx, folder, insertAfter, rootKey)
	if err != nil {
		return 0, err
	}
	if node == nil {
		return 0, vfs.NewNotFound(vfs.Join(folder, insertAfter))
	}
	return node.Ordinal + 1, nil
}

// ensureExtension appends the default extension when name has none.
func ensureExtension(name string) string {
	base := name
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	if strings.Contains(base, ".") {
		return name
	}
	return name + defaultExtension
}

// CreateFile creates an empty markdown file in folder, positioned directly
// after insertAfter (or at the top when insertAfter is empty).
func (s *Service) CreateFile(ctx context.Context, ownerID int64, name, folder, insertAfter, rootKey string) error {
	return s.run(ctx, "create_file", func(ctx context.Context) error {
		folder = vfs.Normalize(folder)
		if err := s.requireFolder(ctx, folder, rootKey); err != nil {
			return err
		}

		ordinal, err := s.targetOrdinal(ctx, folder, insertAfter, rootKey)
		if err != nil {
			return err
		}
		if _, err := s.fs.ShiftOrdinalsDown(ctx, ownerID, folder, ordinal, 1, rootKey); err != nil {
			return err
		}

		name = ensureExtension(name)
		return s.fs.WriteTextFile(ctx, ownerID, folder, name, "", rootKey, vfs.WriteOptions{
			Ordinal:     &ordinal,
			ContentType: markdownContentType,
		})
	})
}

// CreateFolder creates a directory in folder, positioned like CreateFile.
func (s *Service) CreateFolder(ctx context.Context, ownerID int64, name, folder, insertAfter, rootKey string) error {
	return s.run(ctx, "create_folder", func(ctx context.Context) error {
		folder = vfs.Normalize(folder)
		if err := s.requireFolder(ctx, folder, rootKey); err != nil {
			return err
		}

		ordinal, err := s.targetOrdinal(ctx, folder, insertAfter, rootKey)
		if err != nil {
			return err
		}
		if _, err := s.fs.ShiftOrdinalsDown(ctx, ownerID, folder, ordinal, 1, rootKey); err != nil {
			return err
		}

		return s.fs.Mkdir(ctx, ownerID, folder, name, rootKey, vfs.MkdirOptions{
			Ordinal: &ordinal,
		})
	})
}

// SaveFile overwrites a file's content, optionally renaming it first. A
// rename collision surfaces as Conflict. The ordinal is preserved on
// update.
func (s *Service) SaveFile(ctx context.Context, ownerID int64, filename, folder, content, newFileName, rootKey string) error {
	return s.run(ctx, "save_file", func(ctx context.Context) error {
		folder = vfs.Normalize(folder)
		if err := s.requireFolder(ctx, folder, rootKey); err != nil {
			return err
		}

		target := filename
		if newFileName != "" && newFileName != filename {
			newFileName = ensureExtension(newFileName)
			err := s.fs.Rename(ctx, ownerID, folder, filename, folder, newFileName, rootKey)
			if vfs.IsKind(err, vfs.KindAlreadyExists) {
				return vfs.NewError(vfs.KindConflict,
					fmt.Sprintf("a file named %s already exists", newFileName),
					vfs.Join(folder, newFileName))
			}
			if err != nil && !vfs.IsKind(err, vfs.KindNotFound) {
				return err
			}
			target = newFileName
		}

		return s.fs.WriteTextFile(ctx, ownerID, folder, target, content, rootKey, vfs.WriteOptions{
			ContentType: markdownContentType,
			Overwrite:   true,
		})
	})
}

// PasteResult records the outcome of one pasted item.
type PasteResult struct {
	Source string
	Err    error
}

// PasteItems moves source paths into targetFolder preserving their given
// order, starting at targetOrdinal. Items whose destination name is taken
// are skipped with a per-item error; the rest still move.
func (s *Service) PasteItems(ctx context.Context, ownerID int64, targetFolder string, items []string, targetOrdinal int32, rootKey string) ([]PasteResult, error) {
	results := make([]PasteResult, 0, len(items))

	err := s.run(ctx, "paste_items", func(ctx context.Context) error {
		targetFolder = vfs.Normalize(targetFolder)
		if err := s.requireFolder(ctx, targetFolder, rootKey); err != nil {
			return err
		}

		if _, err := s.fs.ShiftOrdinalsDown(ctx, ownerID, targetFolder, targetOrdinal, int32(len(items)), rootKey); err != nil {
			return err
		}

		slot := targetOrdinal
		for _, item := range items {
			srcParent, srcName := vfs.Split(item)

			err := s.fs.Rename(ctx, ownerID, srcParent, srcName, targetFolder, srcName, rootKey)
			if err != nil {
				results = append(results, PasteResult{Source: item, Err: err})
				if vfs.IsKind(err, vfs.KindAlreadyExists) || vfs.IsKind(err, vfs.KindNotFound) {
					continue
				}
				return err
			}

			if err := s.fs.SetOrdinal(ctx, ownerID, targetFolder, srcName, rootKey, slot); err != nil {
				return err
			}
			slot++
			results = append(results, PasteResult{Source: item})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// JoinFiles concatenates the text content of the named files, in order,
// into a single file that takes the first file's name and position. The
// originals are deleted; everything happens in one transaction.
func (s *Service) JoinFiles(ctx context.Context, ownerID int64, filenames []string, folder, rootKey string) error {
	if len(filenames) < 2 {
		return vfs.NewError(vfs.KindInvalidName, "join needs at least two files", "")
	}

	return s.run(ctx, "join_files", func(ctx context.Context) error {
		folder = vfs.Normalize(folder)
		if err := s.requireFolder(ctx, folder, rootKey); err != nil {
			return err
		}

		first, err := s.fs.Stat(ctx, folder, filenames[0], rootKey)
		if err != nil {
			return err
		}
		if first == nil {
			return vfs.NewNotFound(vfs.Join(folder, filenames[0]))
		}

		parts := make([]string, 0, len(filenames))
		for _, name := range filenames {
			content, err := s.fs.ReadTextFile(ctx, ownerID, folder, name, rootKey)
			if err != nil {
				return err
			}
			parts = append(parts, content)
		}

		for _, name := range filenames {
			if err := s.fs.Unlink(ctx, ownerID, folder, name, rootKey); err != nil {
				return err
			}
		}

		ordinal := first.Ordinal
		return s.fs.WriteTextFile(ctx, ownerID, folder, filenames[0],
			strings.Join(parts, "\n\n"), rootKey, vfs.WriteOptions{
				Ordinal:     &ordinal,
				ContentType: markdownContentType,
			})
	})
}

// MoveUpDown swaps a node's ordinal with its immediate neighbor in the
// given direction. At either extreme the call is a no-op.
func (s *Service) MoveUpDown(ctx context.Context, ownerID int64, filename string, direction Direction, folder, rootKey string) error {
	return s.run(ctx, "move_up_down", func(ctx context.Context) error {
		folder = vfs.Normalize(folder)

		children, err := s.fs.ReadDir(ctx, ownerID, folder, rootKey)
		if err != nil {
			return err
		}

		idx := -1
		for i := range children {
			if children[i].Filename == filename {
				idx = i
				break
			}
		}
		if idx < 0 {
			return vfs.NewNotFound(vfs.Join(folder, filename))
		}

		neighbor := idx - 1
		if direction == Down {
			neighbor = idx + 1
		}
		if neighbor < 0 || neighbor >= len(children) {
			return nil
		}

		a, b := &children[idx], &children[neighbor]
		if err := s.fs.SetOrdinal(ctx, ownerID, folder, a.Filename, rootKey, b.Ordinal); err != nil {
			return err
		}
		return s.fs.SetOrdinal(ctx, ownerID, folder, b.Filename, rootKey, a.Ordinal)
	})
}

// RenameFolder renames a directory in place, cascading the path prefix to
// every descendant.
func (s *Service) RenameFolder(ctx context.Context, ownerID int64, path, newName, rootKey string) error {
	return s.run(ctx, "rename_folder", func(ctx context.Context) error {
		parent, name := vfs.Split(path)
		return s.fs.Rename(ctx, ownerID, parent, name, parent, newName, rootKey)
	})
}

// Delete removes a file or a directory subtree by path.
func (s *Service) Delete(ctx context.Context, ownerID int64, path, rootKey string, recursive bool) error {
	return s.run(ctx, "delete_file_or_folder", func(ctx context.Context) error {
		return s.fs.Remove(ctx, ownerID, path, rootKey, recursive, false)
	})
}

// SetPublic flips a node's visibility flag.
func (s *Service) SetPublic(ctx context.Context, ownerID int64, path, rootKey string, public bool) error {
	return s.run(ctx, "set_public", func(ctx context.Context) error {
		parent, name := vfs.Split(path)
		return s.fs.SetPublic(ctx, ownerID, parent, name, rootKey, public)
	})
}
