package vfs_test

import (
	"os"
	"testing"

	"github.com/inkbase/inkbase/internal/testutil"
)

func TestMain(m *testing.M) {
	os.Exit(testutil.RunWithPostgres(m))
}
