package triage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mdswSample = `OS|Linux|0.0.0 Linux
CPU|amd64|family 6
Crash|SIGSEGV|0xdeadbeef|0
0|0|libxul.so|js::wasm::Boom(JSContext*)|hg:hg.mozilla.org/mozilla-central:js/src/wasm/WasmJS.cpp:abc123|42|0x0
0|1|libxul.so||||0x1f00
1|0|libc.so|poll|hg:hg.mozilla.org/mozilla-central:nsprpub/pr/src/md/unix/unix.c:abc123|88|0x10
`

func TestFormatMinidumpBacktrace_FirstThreadOnly(t *testing.T) {
	frames := FormatMinidumpBacktrace(strings.NewReader(mdswSample))

	assert.Equal(t, []string{
		"#0: js::wasm::Boom(JSContext*), at js/src/wasm/WasmJS.cpp:42",
		"#1: libxul.so+0x1f00",
	}, frames)
}

func TestFormatMinidumpBacktrace_SpecificThread(t *testing.T) {
	frames := FormatMinidumpBacktraceThread(strings.NewReader(mdswSample), 1)

	require.Len(t, frames, 1)
	assert.Contains(t, frames[0], "poll")
}

func TestFormatMinidumpBacktrace_Empty(t *testing.T) {
	frames := FormatMinidumpBacktrace(strings.NewReader(""))
	assert.Empty(t, frames)
}

func TestScanStderr(t *testing.T) {
	log := strings.Join([]string{
		"[GFX]: harmless warning",
		"Assertion failure: isLive(), at GC.cpp:100",
		"thread 'RustThread' panicked at 'oh no', lib.rs:5",
		"normal shutdown",
	}, "\n")

	lines := ScanStderr(strings.NewReader(log))

	assert.Equal(t, []string{
		"Assertion failure: isLive(), at GC.cpp:100",
		"thread 'RustThread' panicked at 'oh no', lib.rs:5",
	}, lines)
}

func writeLog(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestSelectCrashLog_PrefersLargestASAN(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "log_stderr.txt", "stderr")
	writeLog(t, dir, "log_stdout.txt", "stdout")
	writeLog(t, dir, "log_asan_shadow.txt", "short")
	writeLog(t, dir, "log_asan_crash.txt", "a much longer asan report with frames")

	crashLog, stderrLog, err := SelectCrashLog(dir)

	require.NoError(t, err)
	assert.Equal(t, "log_asan_crash.txt", crashLog)
	assert.Equal(t, "log_stderr.txt", stderrLog)
}

func TestSelectCrashLog_ASANReplacesFallback(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "log_minidump_01.txt", "0|0|libxul.so||||0x0")
	writeLog(t, dir, "log_asan_crash.txt", "x")

	crashLog, _, err := SelectCrashLog(dir)

	require.NoError(t, err)
	assert.Equal(t, "log_asan_crash.txt", crashLog)
}

func TestSelectCrashLog_FallbackIgnoresStdout(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "log_stdout.txt", "stdout")
	writeLog(t, dir, "log_minidump_01.txt", "frames")

	crashLog, stderrLog, err := SelectCrashLog(dir)

	require.NoError(t, err)
	assert.Equal(t, "log_minidump_01.txt", crashLog)
	assert.Empty(t, stderrLog)
}

func TestSelectCrashLog_NothingThere(t *testing.T) {
	crashLog, stderrLog, err := SelectCrashLog(t.TempDir())

	require.NoError(t, err)
	assert.Empty(t, crashLog)
	assert.Empty(t, stderrLog)
}

func TestIsMinidumpLog(t *testing.T) {
	assert.True(t, IsMinidumpLog("log_minidump_01.txt"))
	assert.False(t, IsMinidumpLog("log_asan_crash.txt"))
}
