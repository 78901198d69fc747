package signer

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/zcash-signer/pkg/tx"
)

// vectorSpendOnly loads the ZIP 244 vector whose transaction has transparent
// inputs and outputs plus a single Sapling spend, so a session can be driven
// through it without output plaintexts. It returns the transaction and its
// published shielded sighash.
func vectorSpendOnly(t *testing.T) (*tx.Transaction, [32]byte) {
	t.Helper()

	_, filename, _, _ := runtime.Caller(0)
	data, err := os.ReadFile(filepath.Join(filepath.Dir(filename), "..", "..", "testdata", "vectors", "zip_0244.json"))
	require.NoError(t, err)

	var rows [][]any
	require.NoError(t, json.Unmarshal(data, &rows))
	require.Greater(t, len(rows), 4)
	row := rows[4]

	raw, err := hex.DecodeString(row[0].(string))
	require.NoError(t, err)
	txn, err := tx.ParseV5(raw)
	require.NoError(t, err)

	amounts, scripts := row[3].([]any), row[4].([]any)
	require.Len(t, txn.Transparent.Inputs, len(amounts))
	for i := range txn.Transparent.Inputs {
		txn.Transparent.Inputs[i].Value = uint64(amounts[i].(float64))
		txn.Transparent.Inputs[i].ScriptPubKey, err = hex.DecodeString(scripts[i].(string))
		require.NoError(t, err)
	}

	sighash, err := hex.DecodeString(row[6].(string))
	require.NoError(t, err)
	return txn, [32]byte(sighash)
}

func TestSessionSighashMatchesVector(t *testing.T) {
	acct := testAccount(t)
	txn, want := vectorSpendOnly(t)
	require.Len(t, txn.Sapling.Spends, 1)
	require.Empty(t, txn.Sapling.Outputs)
	require.Empty(t, txn.Orchard.Actions)

	s, approver := newTestSession(true)
	drive(t, s, acct, txn)

	got, err := s.Sighash()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.Len(t, approver.fees, 1)
	assert.Equal(t, FeeSummary{
		Fee:                278_963,
		TransparentOutputs: 81_111,
		TransparentNet:     218_963,
		SaplingNet:         60_000,
	}, approver.fees[0])
	assert.Equal(t, txn.Fee(), approver.fees[0].Fee)
}
