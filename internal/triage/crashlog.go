package triage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// SelectCrashLog scans dir for harness logs (log_*.txt) and picks the most
// useful one. ASAN logs win, largest first; otherwise the first log that is
// neither stdout nor stderr. The stderr log name is returned separately.
// Either name may be empty.
func SelectCrashLog(dir string) (crashLog, stderrLog string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", "", err
	}

	var bestSize int64
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "log_") || !strings.HasSuffix(name, ".txt") {
			continue
		}
		switch {
		case strings.Contains(name, "stderr"):
			stderrLog = name
		case strings.Contains(name, "asan"):
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if info.Size() > bestSize {
				crashLog = name
				bestSize = info.Size()
			}
		case !strings.Contains(name, "stdout") && crashLog == "":
			// Leave bestSize at zero so any ASAN log still replaces this.
			crashLog = name
		}
	}
	return crashLog, stderrLog, nil
}

// ScanStderr returns the assertion-failure and panic lines from a stderr log.
func ScanStderr(r io.Reader) []string {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, "Assertion failure") || strings.Contains(line, "panicked at") {
			lines = append(lines, line)
		}
	}
	return lines
}

// IsMinidumpLog reports whether the log file name identifies minidump
// stackwalk output rather than a raw tool log.
func IsMinidumpLog(name string) bool {
	return strings.Contains(name, "minidump")
}

// FormatMinidumpBacktrace reads `minidump_stackwalk -m` machine output and
// returns the frames of the first thread encountered, formatted for humans.
// Lines are pipe-separated: thread|frame|lib|symbol|source|line|address,
// where source is repo-type:repo:file:revision when symbols resolved.
func FormatMinidumpBacktrace(r io.Reader) []string {
	return FormatMinidumpBacktraceThread(r, -1)
}

// FormatMinidumpBacktraceThread is FormatMinidumpBacktrace restricted to a
// specific thread number; -1 selects the first thread encountered.
func FormatMinidumpBacktraceThread(r io.Reader, threadno int) []string {
	var frames []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		parseLine := false
		if threadno < 0 {
			if strings.Contains(line, "|") {
				if n, err := strconv.Atoi(strings.SplitN(line, "|", 2)[0]); err == nil {
					threadno = n
					parseLine = true
				}
			}
		} else {
			parseLine = strings.HasPrefix(line, strconv.Itoa(threadno)+"|")
		}
		if !parseLine {
			continue
		}

		fields := strings.Split(strings.TrimSpace(line), "|")
		if len(fields) != 7 {
			continue
		}
		frame, lib, sym, src, srcLine, addr := fields[1], fields[2], fields[3], fields[4], fields[5], fields[6]
		if sym != "" && src != "" && srcLine != "" {
			if parts := strings.Split(src, ":"); len(parts) == 4 {
				src = parts[2]
			}
			frames = append(frames, fmt.Sprintf("#%s: %s, at %s:%s", frame, sym, src, srcLine))
		} else {
			frames = append(frames, fmt.Sprintf("#%s: %s+%s", frame, lib, addr))
		}
	}
	return frames
}
