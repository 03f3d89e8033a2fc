package onnxmodel

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// readLines reads a newline-separated file where the 0-indexed line number
// is the entry's index. Blank trailing lines are dropped; blank lines in the
// middle are an error because they would shift every later index.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	blank := -1
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			if blank < 0 {
				blank = len(lines)
			}
			lines = append(lines, line)
			continue
		}
		if blank >= 0 {
			return nil, fmt.Errorf("%s: blank line %d", path, blank+1)
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%s: read error: %w", path, err)
	}
	if blank >= 0 {
		lines = lines[:blank]
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%s: file is empty", path)
	}
	return lines, nil
}
