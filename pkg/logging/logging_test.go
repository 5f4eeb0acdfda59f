package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupStreams(t *testing.T) {
	var buf bytes.Buffer
	closer := Setup(Options{Console: &buf})
	defer closer.Close()

	Infof("mask has %d voxels", 12)
	Debugf("hidden %d", 1)
	Warningf("slice %d outside grid", 40)

	out := buf.String()
	if !strings.Contains(out, "ccvote INFO mask has 12 voxels") {
		t.Errorf("Missing info line in %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("Debug line logged without verbose mode: %q", out)
	}
	if !strings.Contains(out, "WARNING slice 40 outside grid") {
		t.Errorf("Missing warning line in %q", out)
	}
}

func TestSetupVerboseWithLogFile(t *testing.T) {
	var buf bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "ccvote.log")

	closer := Setup(Options{Console: &buf, Verbose: true, LogFile: logFile})
	Debugf("regularizing %d voxels", 27)
	if err := closer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// restore the default streams for other tests
	Setup(Options{Console: &bytes.Buffer{}})

	if !strings.Contains(buf.String(), "ccvote DEBUG regularizing 27 voxels") {
		t.Errorf("Missing debug line on console: %q", buf.String())
	}
	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Log file not written: %v", err)
	}
	if !strings.Contains(string(data), "regularizing 27 voxels") {
		t.Errorf("Missing debug line in log file: %q", data)
	}
}
