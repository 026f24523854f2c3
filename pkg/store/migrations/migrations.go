// Package migrations embeds the SQL schema migrations, including the
// PL/pgSQL stored functions that implement the virtual file system
// primitives.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
