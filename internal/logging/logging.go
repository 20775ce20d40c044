package logging

import (
	"fmt"
	"path/filepath"
	"time"
)

// ServiceName identifies this program in log files and OTel records.
const ServiceName = "robosim"

// LogFilePath builds a log file path using OS-appropriate path separators.
func LogFilePath(logsDir, appName string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", appName, sessionStart.Format("20060102_150405")),
	)
}
