package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCSVLogger_WriteAndClose(t *testing.T) {
	csvLogger, err := NewCSVLogger("bulkusertool_test", "import")
	if err != nil {
		t.Fatalf("NewCSVLogger() error: %v", err)
	}

	dateStr := time.Now().Format("2006-01-02")
	logPath := filepath.Join(os.TempDir(), "_bulkusertool_test_import_"+dateStr+".csv")
	defer os.Remove(logPath)

	newFile, err := csvLogger.ShouldWriteHeader()
	if err != nil {
		t.Fatalf("ShouldWriteHeader() error: %v", err)
	}
	if newFile {
		if err := csvLogger.WriteHeader([]string{"Action", "Status", "UPN", "Details"}); err != nil {
			t.Fatalf("WriteHeader() error: %v", err)
		}
	}

	if err := csvLogger.WriteRow([]string{"import", "Success", "sarah.connor@contoso.com", "created"}); err != nil {
		t.Fatalf("WriteRow() error: %v", err)
	}
	if err := csvLogger.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}

	text := string(content)
	if !strings.Contains(text, "sarah.connor@contoso.com") {
		t.Errorf("log file missing written row, got:\n%s", text)
	}
	if !strings.Contains(text, "Timestamp") {
		t.Errorf("log file missing header, got:\n%s", text)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"DEBUG", "DEBUG"},
		{"debug", "DEBUG"},
		{"INFO", "INFO"},
		{"WARN", "WARN"},
		{"WARNING", "WARN"},
		{"ERROR", "ERROR"},
		{"bogus", "INFO"},
		{"", "INFO"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLogLevel(tt.input).String(); got != tt.want {
				t.Errorf("ParseLogLevel(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}
