package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/aidanlsb/sceneql/internal/config"
	"github.com/aidanlsb/sceneql/internal/testutil"
)

var captureStdoutMu sync.Mutex

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	captureStdoutMu.Lock()
	defer captureStdoutMu.Unlock()

	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}

	os.Stdout = w

	outputCh := make(chan string, 1)
	errCh := make(chan error, 1)
	go func() {
		var buf bytes.Buffer
		_, copyErr := io.Copy(&buf, r)
		_ = r.Close()
		if copyErr != nil {
			errCh <- copyErr
			return
		}
		outputCh <- buf.String()
	}()

	fn()

	os.Stdout = orig
	_ = w.Close()
	select {
	case err := <-errCh:
		t.Fatalf("io.Copy: %v", err)
		return ""
	case output := <-outputCh:
		return output
	}
}

// isolateCLI resets the package-level flag state for one test and restores
// it afterwards. The config path points into a temp dir so --save never
// touches the real config.
func isolateCLI(t *testing.T) (dir string) {
	t.Helper()
	dir = t.TempDir()

	prevConfigPath, prevResolved, prevCfg := configPath, resolvedConfigPath, cfg
	prevScene, prevDB, prevJSON := sceneFlag, dbFlag, jsonOutput
	prevList, prevFile, prevSave, prevDesc, prevName := queryListFlag, queryFileFlag, querySaveFlag, queryDescFlag, queryNameFilter
	t.Cleanup(func() {
		configPath, resolvedConfigPath, cfg = prevConfigPath, prevResolved, prevCfg
		sceneFlag, dbFlag, jsonOutput = prevScene, prevDB, prevJSON
		queryListFlag, queryFileFlag, querySaveFlag, queryDescFlag, queryNameFilter = prevList, prevFile, prevSave, prevDesc, prevName
	})

	configPath = filepath.Join(dir, "config.toml")
	resolvedConfigPath = configPath
	cfg = &config.Config{}
	sceneFlag, dbFlag, jsonOutput = "", "", false
	queryListFlag, queryFileFlag, querySaveFlag, queryDescFlag, queryNameFilter = false, "", "", "", ""
	return dir
}

// writeBasicScene writes the root/mesh/meshShape scene with its object sets.
func writeBasicScene(t *testing.T, dir string) string {
	t.Helper()
	return testutil.WriteSceneFile(t, dir, "scene.yaml", testutil.BasicSceneYAML)
}

type jsonResponse struct {
	OK       bool            `json:"ok"`
	Data     json.RawMessage `json:"data"`
	Error    *ErrorInfo      `json:"error"`
	Warnings []Warning       `json:"warnings"`
	Meta     *Meta           `json:"meta"`
}

func decodeResponse(t *testing.T, out string) jsonResponse {
	t.Helper()
	var resp jsonResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("expected JSON output, got parse error: %v; out=%s", err, out)
	}
	return resp
}
