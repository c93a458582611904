package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loginPage = `<html><head><title>Login</title></head><body>
<h1>Sign in</h1>
<form>
<input name="user" placeholder="User">
<button type="submit">Go</button>
</form>
</body></html>`

func writePage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "login.html")
	require.NoError(t, os.WriteFile(path, []byte(loginPage), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--config", ""))
	err := cmd.Execute()
	return out.String(), err
}

// TestSnapshotCmd_Listing verifies the element listing of an HTML file.
func TestSnapshotCmd_Listing(t *testing.T) {
	out, err := execute(t, "snapshot", "--html", writePage(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Page: Login")
	assert.Contains(t, out, "Elements (2):")
	assert.Contains(t, out, `[0]<input name="user" placeholder="User"></input>`)
	assert.Contains(t, out, `[1]<button type="submit">Go</button>`)
}

// TestSnapshotCmd_JSON verifies the snapshot is emitted as JSON.
func TestSnapshotCmd_JSON(t *testing.T) {
	out, err := execute(t, "snapshot", "--html", writePage(t), "--json")
	require.NoError(t, err)

	var snap struct {
		ID          string         `json:"id"`
		Title       string         `json:"title"`
		SelectorMap map[string]int `json:"selectorMap"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, "Login", snap.Title)
	assert.Len(t, snap.SelectorMap, 2)
}

// TestLocateCmd verifies an indexed element is reported with its path and selector.
func TestLocateCmd(t *testing.T) {
	out, err := execute(t, "locate", "--html", writePage(t), "--index", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "[1] /html/body/form/button")
	assert.Contains(t, out, "selector: html > body > form > button")
	assert.Contains(t, out, "text: Go")
}

// TestClickAndFillCmd verifies actions reach the document.
func TestClickAndFillCmd(t *testing.T) {
	page := writePage(t)

	out, err := execute(t, "click", "--html", page, "--index", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "click <button>")
	assert.Contains(t, out, "clicked [1]")

	out, err = execute(t, "fill", "--html", page, "--index", "0", "--text", "ada")
	require.NoError(t, err)
	assert.Contains(t, out, `fill <input> "ada"`)
}

// TestCmd_Errors verifies bad invocations fail.
func TestCmd_Errors(t *testing.T) {
	_, err := execute(t, "snapshot")
	assert.ErrorContains(t, err, "--url or --html")

	_, err = execute(t, "snapshot", "--html", "a.html", "--url", "https://example.test")
	assert.ErrorContains(t, err, "mutually exclusive")

	_, err = execute(t, "click", "--html", writePage(t), "--index", "5")
	assert.Error(t, err)

	_, err = execute(t, "snapshot", "--html", writePage(t), "--screenshot", filepath.Join(t.TempDir(), "x.png"))
	assert.ErrorContains(t, err, "need a browser")

	_, err = execute(t, "fill", "--html", writePage(t), "--index", "0")
	assert.Error(t, err, "--text is required")
}
