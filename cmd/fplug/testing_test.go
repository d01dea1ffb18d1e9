package main

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t testing.TB, content string) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "fplug-test")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "fplug.hcl")
	if err := ioutil.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
