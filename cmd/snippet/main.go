// snippet 在测试文件中插入/移除调试辅助代码块。
// 代码块由标记注释包围，重复执行是幂等的。
//
//	snippet -mode add -dir ./internal
//	snippet -mode remove -dir ./internal
//	snippet -mode add -dir ./internal -check-only
package main

import (
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	markerBegin = "// p2p-test-snippet:begin"
	markerEnd   = "// p2p-test-snippet:end"
)

// 插入的代码块只依赖内置函数，保证任何测试文件都能编译
var snippetBlock = strings.Join([]string{
	markerBegin,
	"// 临时调试开关，提交前用 snippet -mode remove 清理",
	"var snippetVerbose = false",
	"",
	"func snippetDebug(msg string) {",
	"\tif snippetVerbose {",
	"\t\tprintln(\"[debug] \" + msg)",
	"\t}",
	"}",
	markerEnd,
	"",
}, "\n")

type options struct {
	mode      string
	dir       string
	backup    bool
	checkOnly bool
}

func main() {
	var opts options
	flag.StringVar(&opts.mode, "mode", "", "add 或 remove")
	flag.StringVar(&opts.dir, "dir", ".", "扫描目录")
	flag.BoolVar(&opts.backup, "backup", false, "修改前保留.bak备份")
	flag.BoolVar(&opts.checkOnly, "check-only", false, "只检查不修改")
	flag.Parse()

	if opts.mode != "add" && opts.mode != "remove" {
		fmt.Fprintln(os.Stderr, "usage: snippet -mode add|remove [-dir DIR] [-backup] [-check-only]")
		os.Exit(2)
	}

	changed, err := run(&opts, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "snippet:", err)
		os.Exit(1)
	}
	if opts.checkOnly && changed > 0 {
		os.Exit(1)
	}
}

// run 扫描目录并处理所有测试文件，返回（将）被修改的文件数
func run(opts *options, out io.Writer) (int, error) {
	files, err := collectTestFiles(opts.dir)
	if err != nil {
		return 0, err
	}

	// add模式下每个目录（包）只插入一次，避免重复声明
	pkgHasSnippet := make(map[string]bool)
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, err
		}
		if strings.Contains(string(data), markerBegin) {
			pkgHasSnippet[filepath.Dir(path)] = true
		}
	}

	changed := 0
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, err
		}
		content := string(data)
		has := strings.Contains(content, markerBegin)

		var next string
		switch opts.mode {
		case "add":
			if has || pkgHasSnippet[filepath.Dir(path)] {
				continue
			}
			next = addSnippet(content)
			pkgHasSnippet[filepath.Dir(path)] = true
		case "remove":
			if !has {
				continue
			}
			next = removeSnippet(content)
		}

		changed++
		if opts.checkOnly {
			fmt.Fprintf(out, "would update %s\n", path)
			continue
		}

		if opts.backup {
			if err := os.WriteFile(path+".bak", data, 0o644); err != nil {
				return changed, fmt.Errorf("write backup %s: %w", path, err)
			}
		}
		if err := os.WriteFile(path, []byte(next), 0o644); err != nil {
			return changed, fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintf(out, "updated %s\n", path)
	}

	if changed == 0 {
		fmt.Fprintln(out, "nothing to do")
	}
	return changed, nil
}

func collectTestFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// 跳过隐藏目录和vendor
			name := d.Name()
			if path != dir && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "vendor" || name == "testdata") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, "_test.go") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// addSnippet 在文件末尾追加代码块
func addSnippet(content string) string {
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + snippetBlock
}

// removeSnippet 移除标记之间的代码块，包括标记本身
func removeSnippet(content string) string {
	begin := strings.Index(content, markerBegin)
	end := strings.Index(content, markerEnd)
	if begin < 0 || end < 0 || end < begin {
		return content
	}
	tail := content[end+len(markerEnd):]
	// 连带代码块后的换行一起清掉
	tail = strings.TrimPrefix(tail, "\n")
	head := strings.TrimRight(content[:begin], "\n")
	if head == "" {
		return tail
	}
	if tail == "" {
		return head + "\n"
	}
	return head + "\n\n" + tail
}
