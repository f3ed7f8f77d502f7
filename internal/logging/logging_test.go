package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestSetup_WritesToFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", FileName)

	closer, err := Setup(file, true)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetLevel(log.InfoLevel)
		log.SetReportCaller(false)
	})

	For("stream").Debug("Connecting", "url", "ws://localhost")
	if err := closer(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("Log file missing: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "stream") || !strings.Contains(out, "Connecting") {
		t.Errorf("Log line missing from file:\n%s", out)
	}
}

func TestSetup_InfoLevel(t *testing.T) {
	file := filepath.Join(t.TempDir(), FileName)

	closer, err := Setup(file, false)
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	log.Debug("hidden")
	log.Info("shown")
	_ = closer()

	data, _ := os.ReadFile(file)
	if strings.Contains(string(data), "hidden") {
		t.Error("Debug output should be suppressed")
	}
	if !strings.Contains(string(data), "shown") {
		t.Error("Info output missing")
	}
}
