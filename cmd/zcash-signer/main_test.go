package main

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/zcash-signer/pkg/apdu"
	"github.com/suffix-labs/zcash-signer/pkg/signer"
)

func TestREPL(t *testing.T) {
	d := apdu.New(apdu.Config{})
	defer d.Close()

	in := bufio.NewReader(strings.NewReader("# version\ne003000000\n\nzz\ne0 04 00 00 00\ne006000000"))
	var out bytes.Buffer
	require.NoError(t, repl(in, &out, d.Exchange))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "0100009000", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "error:"))
	assert.Equal(t, "5a63617368"+"9000", lines[2])
	// No account loaded.
	assert.Equal(t, "6a88", lines[3])
}

func TestAppInfo(t *testing.T) {
	c := defaultConfig()
	c.Version = "2.4.13"
	info, err := c.appInfo()
	require.NoError(t, err)
	assert.Equal(t, apdu.AppInfo{Name: "Zcash", Major: 2, Minor: 4, Patch: 13}, info)

	c.Version = "two"
	_, err = c.appInfo()
	assert.Error(t, err)

	_, err = c.provider()
	assert.Error(t, err)
}

func TestSetupLogging(t *testing.T) {
	assert.NoError(t, setupLogging("DEBUG"))
	assert.Error(t, setupLogging("verbose"))
	require.NoError(t, setupLogging("info"))
}

func TestPromptApprover(t *testing.T) {
	var out bytes.Buffer
	p := &promptApprover{in: bufio.NewReader(strings.NewReader("y\nno\n")), out: &out}
	assert.True(t, p.ConfirmFee(signer.FeeSummary{Fee: 10_000}))
	assert.Contains(t, out.String(), "0.0001 ZEC")
	assert.False(t, p.ConfirmAddress("t1", "zs1"))
	assert.False(t, p.ConfirmAddress("t1", "zs1"))
}
