package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// workspace writes a config pointing storage and archives into a temp dir.
func workspace(t *testing.T) (cfgPath, blobRoot string) {
	t.Helper()
	dir := t.TempDir()
	blobRoot = filepath.Join(dir, "archive")
	cfgPath = filepath.Join(dir, "ramstk.yaml")
	cfg := fmt.Sprintf(`
storage:
  driver: sqlite
  sqlite_path: %s
blob:
  driver: fs
  fs_root: %s
log:
  level: error
`, filepath.Join(dir, "ramstk.db"), blobRoot)
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	return cfgPath, blobRoot
}

func run(t *testing.T, cfgPath string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	all := append([]string{"--config", cfgPath, "--hardware", "3"}, args...)
	code := cli(context.Background(), all, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestWorkflow(t *testing.T) {
	cfg, blobRoot := workspace(t)

	code, out, errOut := run(t, cfg, "import", "testdata/worksheet.yaml")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "imported 9 records into 1/3")

	code, out, errOut = run(t, cfg, "tree")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "6\tmode\tContacts fail open")
	assert.Contains(t, out, "      6.3.1.1c\tcontrol\tArc suppression diode")
	assert.Contains(t, out, "      6.3.1.1a\taction\tDerate contact current")

	code, out, errOut = run(t, cfg, "tree", "--hierarchy", "pof", "--mode", "6")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "3\tmechanism\tContact erosion")
	assert.Contains(t, out, "    3.1.1s\topstress\tContact temperature")

	code, out, errOut = run(t, cfg, "rpn", "--method", "mechanism")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "6.3\trpn=192\trpn_new=64")

	code, out, errOut = run(t, cfg, "tree", "-o", "json")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, `"rpn": 192`, "rpn persisted by the previous run")

	code, out, errOut = run(t, cfg, "criticality", "--item-hr", "0.000001")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "item_hazard_rate\t1e-06")
	assert.Contains(t, out, "III\t")

	code, out, errOut = run(t, cfg, "export", "--format", "yaml")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "exported worksheets/1/3/fmea.yaml")
	assert.FileExists(t, filepath.Join(blobRoot, "worksheets", "1", "3", "fmea.yaml"))

	code, out, errOut = run(t, cfg, "delete", "6.3")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "deleted 6.3\n", out)

	code, out, errOut = run(t, cfg, "tree")
	require.Equal(t, 0, code, errOut)
	assert.NotContains(t, out, "6.3")
	assert.Contains(t, out, "7\tmode\tCoil open")
}

func TestRelayCommand(t *testing.T) {
	cfg, _ := workspace(t)
	code, out, errOut := run(t, cfg, "relay", "testdata/relay.yaml")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "lambda_b:")
	assert.Contains(t, out, "quantity: 2")
	assert.Contains(t, out, "item_hazard_rate:")
	assert.Contains(t, out, "overstress: operating current > 90.0% rated current in mild environment")
}

func TestCriticalityFromRelay(t *testing.T) {
	cfg, _ := workspace(t)
	code, _, errOut := run(t, cfg, "import", "testdata/worksheet.yaml")
	require.Equal(t, 0, code, errOut)
	code, out, errOut := run(t, cfg, "criticality", "--relay", "testdata/relay.yaml")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "III\t")
}

func TestCommandErrors(t *testing.T) {
	cfg, _ := workspace(t)

	code, _, errOut := run(t, cfg, "tree", "--hierarchy", "fta")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, `unknown hierarchy "fta"`)

	code, _, errOut = run(t, cfg, "tree", "--hierarchy", "pof")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "--mode")

	code, _, _ = run(t, cfg, "rpn", "--method", "mode")
	assert.Equal(t, 2, code)

	code, _, errOut = run(t, cfg, "criticality")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "item_hazard_rate")

	code, _, errOut = run(t, cfg, "delete", "9")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "not found")

	code, _, _ = run(t, cfg, "import", "testdata/absent.yaml")
	assert.Equal(t, 1, code)
}

func TestMetricsTextfile(t *testing.T) {
	cfg, _ := workspace(t)
	metrics := filepath.Join(t.TempDir(), "ramstk.prom")
	code, _, errOut := run(t, cfg, "import", "testdata/worksheet.yaml")
	require.Equal(t, 0, code, errOut)
	code, _, errOut = run(t, cfg, "--metrics-textfile", metrics, "rpn")
	require.Equal(t, 0, code, errOut)

	b, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(b), `ramstk_analysis_operations_total{operation="calculate_rpn",status="success"} 1`)
	assert.Contains(t, string(b), `ramstk_analysis_operations_total{operation="select_all",status="success"} 1`)
}
