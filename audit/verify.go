package audit

import (
	"bufio"
	"fmt"
	"os"

	"lukechampine.com/blake3"
)

// ChainBreak names the first index at which the hash chain failed to
// verify, halting verification.
type ChainBreak struct {
	Index int64
	Want  string
	Got   string
}

func (e *ChainBreak) Error() string {
	return fmt.Sprintf("audit chain broken at index %d: recorded hash %s does not match computed hash %s", e.Index, e.Want, e.Got)
}

// IndexMismatch reports a sidecar line whose reported index does not
// equal its position in the file.
type IndexMismatch struct {
	Index    int64
	Reported int64
}

func (e *IndexMismatch) Error() string {
	return fmt.Sprintf("audit sidecar index mismatch at position %d: reported index %d", e.Index, e.Reported)
}

// Verify reads logPath and its .blake3 sidecar line-parallel, recomputing
// the hash chain and asserting it matches at every index. Returns nil if
// the log verifies cleanly (including an empty log), or the first error
// encountered, which always names the offending index.
func Verify(logPath string) error {
	sidePath := logPath + ".blake3"

	logFile, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("audit: open log: %w", err)
	}
	defer logFile.Close()

	sideFile, err := os.Open(sidePath)
	if err != nil {
		return fmt.Errorf("audit: open sidecar: %w", err)
	}
	defer sideFile.Close()

	logScanner := bufio.NewScanner(logFile)
	logScanner.Buffer(make([]byte, 64*1024), 64*1024*1024)
	sideScanner := bufio.NewScanner(sideFile)

	prevHash := emptyHash
	var index int64

	for logScanner.Scan() {
		logLine := logScanner.Bytes()

		if !sideScanner.Scan() {
			return fmt.Errorf("audit: sidecar has fewer lines than the log (stopped at index %d)", index)
		}
		var reportedIndex int64
		var reportedHash string
		if _, err := fmt.Sscanf(sideScanner.Text(), "%d %s", &reportedIndex, &reportedHash); err != nil {
			return fmt.Errorf("audit: malformed sidecar line at index %d: %w", index, err)
		}
		if reportedIndex != index {
			return &IndexMismatch{Index: index, Reported: reportedIndex}
		}

		h := blake3.New(32, nil)
		h.Write([]byte(prevHash))
		h.Write(logLine)
		computed := fmt.Sprintf("%x", h.Sum(nil))

		if computed != reportedHash {
			return &ChainBreak{Index: index, Want: reportedHash, Got: computed}
		}

		prevHash = computed
		index++
	}
	if err := logScanner.Err(); err != nil {
		return fmt.Errorf("audit: reading log: %w", err)
	}

	if sideScanner.Scan() {
		return fmt.Errorf("audit: sidecar has more lines than the log (log stopped at index %d)", index)
	}

	return nil
}
