//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Stats prints production and test line counts per package directory as a
// single JSON record.
func Stats() error {
	type counts struct {
		Prod int `json:"prod"`
		Test int `json:"test"`
	}
	perDir := map[string]*counts{}
	var total counts

	err := filepath.WalkDir(".", func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			switch {
			case path == "vendor", path == ".git", path == binaryDir, path == "magefiles":
				return filepath.SkipDir
			case strings.HasPrefix(d.Name(), "_") || (strings.HasPrefix(d.Name(), ".") && path != "."):
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		n, err := countLines(path)
		if err != nil {
			return nil
		}
		dir := filepath.ToSlash(filepath.Dir(path))
		c, ok := perDir[dir]
		if !ok {
			c = &counts{}
			perDir[dir] = c
		}
		if strings.HasSuffix(path, "_test.go") {
			c.Test += n
			total.Test += n
		} else {
			c.Prod += n
			total.Prod += n
		}
		return nil
	})
	if err != nil {
		return err
	}

	line, err := json.Marshal(map[string]any{
		"go_loc_prod": total.Prod,
		"go_loc_test": total.Test,
		"go_loc":      total.Prod + total.Test,
		"packages":    perDir,
	})
	if err != nil {
		return err
	}
	fmt.Println(string(line))
	return nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}
