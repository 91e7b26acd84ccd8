// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"testing"
)

// AppendFile appends data to path, creating it if needed. The file is
// opened with O_APPEND on every call, so after an external truncation
// the next append lands at offset zero, as with the real sampler.
func AppendFile(t testing.TB, path, data string) {
	t.Helper()
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("opening %s for append: %v", path, err)
	}
	if _, err := file.WriteString(data); err != nil {
		file.Close()
		t.Fatalf("appending to %s: %v", path, err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("closing %s: %v", path, err)
	}
}

// FileSize returns the size of path, failing the test if it cannot be
// stat'ed.
func FileSize(t testing.TB, path string) int64 {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	return info.Size()
}
