package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("debug", "text", &buf)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if logger.GetLevel() != logrus.DebugLevel {
		t.Errorf("level: got %v", logger.GetLevel())
	}

	logger.WithField("stage", "detect").Debug("stage transition")
	if !strings.Contains(buf.String(), "stage=detect") {
		t.Errorf("output: %q", buf.String())
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("info", "json", &buf)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.WithField("request_id", "abc").Info("done")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["request_id"] != "abc" || entry["msg"] != "done" {
		t.Errorf("entry: %v", entry)
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New("loud", "text", nil); err == nil {
		t.Error("bad level accepted")
	}
	if _, err := New("info", "xml", nil); err == nil {
		t.Error("bad format accepted")
	}
}
