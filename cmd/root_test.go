package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ong-collab/collabctl/internal/output"
)

func TestRootCmd_Help(t *testing.T) {
	setupTest(t, newBackend(t))

	res := execute(t, "", "--help")

	require.NoError(t, res.err)
	for _, name := range []string{"login", "register", "logout", "whoami", "nav", "session",
		"projects", "offers", "observations", "metrics", "serve", "config", "version"} {
		assert.Contains(t, res.stdout, name)
	}
}

func TestRootCmd_UnknownFlagIsUsageError(t *testing.T) {
	setupTest(t, newBackend(t))

	res := execute(t, "", "whoami", "--bogus")

	require.Error(t, res.err)
	assert.Equal(t, output.ExitUsageError, res.exitCode())
}

func TestRootCmd_ExtraArgsIsUsageError(t *testing.T) {
	setupTest(t, newBackend(t))

	res := execute(t, "", "logout", "now")

	require.Error(t, res.err)
	assert.Equal(t, output.ExitUsageError, res.exitCode())
}

func TestRootCmd_InvalidColorMode(t *testing.T) {
	setupTest(t, newBackend(t))

	res := execute(t, "", "--color", "sometimes", "version")

	require.Error(t, res.err)
	assert.Equal(t, output.ExitUsageError, res.exitCode())
}

func TestHandleError_PrintsSuggestion(t *testing.T) {
	setupTest(t, newBackend(t))
	res := execute(t, "", "whoami")
	require.Error(t, res.err)

	errBuf := new(bytes.Buffer)
	rootCmd.SetErr(errBuf)
	code := HandleError(res.err)

	assert.Equal(t, output.ExitAuthRequired, code)
	assert.Contains(t, errBuf.String(), "not logged in")
	assert.Contains(t, errBuf.String(), "collabctl login")
}

func TestHandleError_Nil(t *testing.T) {
	assert.Equal(t, output.ExitSuccess, HandleError(nil))
}

func TestVersion(t *testing.T) {
	setupTest(t, newBackend(t))
	SetVersion("1.2.3")
	t.Cleanup(func() { SetVersion("dev") })

	res := execute(t, "", "version", "--short")
	require.NoError(t, res.err)
	assert.Equal(t, "1.2.3\n", res.stdout)

	res = execute(t, "", "version")
	require.NoError(t, res.err)
	assert.True(t, strings.HasPrefix(res.stdout, "collabctl version 1.2.3"))
}

func TestConfig_JSON(t *testing.T) {
	b := newBackend(t)
	setupTest(t, b)

	res := execute(t, "", "config", "--json")

	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, `"base_url": "`+b.srv.URL+`"`)
}

func TestConfig_Table(t *testing.T) {
	setupTest(t, newBackend(t))

	res := execute(t, "", "config")

	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "session.store")
	assert.Contains(t, res.stdout, "session.dir")
}

func TestConfig_APIURLFlag(t *testing.T) {
	setupTest(t, newBackend(t))

	res := execute(t, "", "--api-url", "http://other.example.org/api", "config", "--json")

	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "http://other.example.org/api")
}
