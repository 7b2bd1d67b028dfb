package utils

import (
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

var sourceRoot string

func init() {
	_, file, _, _ := runtime.Caller(0)
	sourceRoot = sourceDir(file)
}

// sourceDir maps .../oracle/utils/utils.go to .../oracle/.
func sourceDir(file string) string {
	dir := filepath.Dir(filepath.Dir(file))
	return filepath.ToSlash(dir) + "/"
}

func internalFile(file string) bool {
	return strings.HasPrefix(file, sourceRoot) && !strings.HasSuffix(file, "_test.go")
}

// FileWithLineNum returns file:line of the first caller outside this module.
func FileWithLineNum() string {
	// 0 is this function, 1 is the logger calling it
	for i := 2; i < 15; i++ {
		_, file, line, ok := runtime.Caller(i)
		if ok && !internalFile(file) {
			return file + ":" + strconv.FormatInt(int64(line), 10)
		}
	}

	return ""
}

// CallerFrame is FileWithLineNum for loggers that want the whole frame.
func CallerFrame() runtime.Frame {
	pcs := [13]uintptr{}
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !internalFile(frame.File) {
			return frame
		}
		if !more {
			break
		}
	}
	return runtime.Frame{}
}
