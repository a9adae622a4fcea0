// Copyright (c) 2026 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"testing"

	_ "github.com/lib/pq"

	"github.com/danielhkuo/safely-elect/cliparse"
	"github.com/danielhkuo/safely-elect/tally"
	"github.com/danielhkuo/safely-elect/testutil"
)

func setupTestDB(t *testing.T) *sql.DB {
	return testutil.SetupTestDB(t)
}

func getTestConfig() cliparse.Config {
	return testutil.GetTestConfig()
}

func getTestCipher(t *testing.T) *tally.Cipher {
	return testutil.GetTestCipher(t)
}
