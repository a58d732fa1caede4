package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

const sampleTest = `package sample

import "testing"

func TestSample(t *testing.T) {
	t.Log("ok")
}
`

func TestAddInsertsSnippet(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "sample_test.go", sampleTest)

	var out bytes.Buffer
	changed, err := run(&options{mode: "add", dir: dir}, &out)
	if err != nil {
		t.Fatalf("run add: %v", err)
	}
	if changed != 1 {
		t.Fatalf("expected 1 changed file, got %d", changed)
	}

	content := readFile(t, path)
	if !strings.Contains(content, markerBegin) || !strings.Contains(content, markerEnd) {
		t.Fatalf("markers missing after add:\n%s", content)
	}
	if !strings.Contains(content, "func snippetDebug") {
		t.Fatalf("snippet body missing after add")
	}
}

func TestAddIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "sample_test.go", sampleTest)

	var out bytes.Buffer
	if _, err := run(&options{mode: "add", dir: dir}, &out); err != nil {
		t.Fatalf("first add: %v", err)
	}
	after := readFile(t, path)

	changed, err := run(&options{mode: "add", dir: dir}, &out)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}
	if changed != 0 {
		t.Fatalf("second add should change nothing, got %d", changed)
	}
	if readFile(t, path) != after {
		t.Fatalf("second add modified file content")
	}
}

func TestAddOncePerPackage(t *testing.T) {
	dir := t.TempDir()
	first := writeTestFile(t, dir, "a_test.go", sampleTest)
	second := writeTestFile(t, dir, "b_test.go", strings.Replace(sampleTest, "TestSample", "TestOther", 1))

	var out bytes.Buffer
	changed, err := run(&options{mode: "add", dir: dir}, &out)
	if err != nil {
		t.Fatalf("run add: %v", err)
	}
	if changed != 1 {
		t.Fatalf("expected snippet in exactly one file, got %d", changed)
	}

	count := 0
	for _, path := range []string{first, second} {
		if strings.Contains(readFile(t, path), markerBegin) {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected snippet in one file per package, found %d", count)
	}
}

func TestRemoveRestoresOriginal(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "sample_test.go", sampleTest)

	var out bytes.Buffer
	if _, err := run(&options{mode: "add", dir: dir}, &out); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := run(&options{mode: "remove", dir: dir}, &out); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if got := readFile(t, path); got != sampleTest {
		t.Fatalf("remove did not restore original.\nwant:\n%s\ngot:\n%s", sampleTest, got)
	}
}

func TestRemoveWithoutSnippetIsNoop(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "sample_test.go", sampleTest)

	var out bytes.Buffer
	changed, err := run(&options{mode: "remove", dir: dir}, &out)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if changed != 0 {
		t.Fatalf("expected no changes, got %d", changed)
	}
	if readFile(t, path) != sampleTest {
		t.Fatalf("noop remove modified file")
	}
}

func TestCheckOnlyDoesNotModify(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "sample_test.go", sampleTest)

	var out bytes.Buffer
	changed, err := run(&options{mode: "add", dir: dir, checkOnly: true}, &out)
	if err != nil {
		t.Fatalf("check-only: %v", err)
	}
	if changed != 1 {
		t.Fatalf("check-only should report 1 pending change, got %d", changed)
	}
	if readFile(t, path) != sampleTest {
		t.Fatalf("check-only modified file")
	}
	if !strings.Contains(out.String(), "would update") {
		t.Fatalf("check-only output missing report: %q", out.String())
	}
}

func TestBackupKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "sample_test.go", sampleTest)

	var out bytes.Buffer
	if _, err := run(&options{mode: "add", dir: dir, backup: true}, &out); err != nil {
		t.Fatalf("add with backup: %v", err)
	}

	if got := readFile(t, path+".bak"); got != sampleTest {
		t.Fatalf("backup does not match original")
	}
	if !strings.Contains(readFile(t, path), markerBegin) {
		t.Fatalf("add with backup did not modify target")
	}
}

func TestSkipsNonTestFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeTestFile(t, dir, "main.go", "package sample\n")

	var out bytes.Buffer
	changed, err := run(&options{mode: "add", dir: dir}, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if changed != 0 {
		t.Fatalf("expected no changes for non-test files, got %d", changed)
	}
	if readFile(t, path) != "package sample\n" {
		t.Fatalf("non-test file modified")
	}
}
