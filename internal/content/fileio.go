package content

import (
	"bufio"
	"os"
	"regexp"
)

// matchingLinesInFile opens path and returns the 1-based line numbers where
// re matches, for phrase-mode verification (§4.4).
func matchingLinesInFile(path string, re *regexp.Regexp) ([]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []int
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 1
	for scanner.Scan() {
		if re.MatchString(scanner.Text()) {
			lines = append(lines, lineNo)
		}
		lineNo++
	}
	return lines, scanner.Err()
}
