package config

import "strings"

// markdown strips the common TAB indentation and surrounding blank lines
// from s, and replaces ' with `, such that descriptions can be written as
// indented multi-line strings.
func markdown(s string) string {
	lines := strings.Split(s, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}

	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, "\t"))
		if indent == -1 || n < indent {
			indent = n
		}
	}
	for i, line := range lines {
		if len(line) < indent {
			lines[i] = ""
		} else {
			lines[i] = line[indent:]
		}
	}

	return strings.Replace(strings.Join(lines, "\n"), "'", "`", -1)
}
