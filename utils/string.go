package utils

import "strings"

// SplitCommands splits a ';' separated command line into the words of each
// non blank command.
func SplitCommands(line string) [][]string {
	var cmds [][]string
	for _, cmd := range strings.Split(line, ";") {
		if words := strings.Fields(cmd); len(words) > 0 {
			cmds = append(cmds, words)
		}
	}
	return cmds
}
