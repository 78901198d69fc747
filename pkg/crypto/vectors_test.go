package crypto

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suffix-labs/zcash-signer/pkg/tx"
)

// zip244Vector is one row of testdata/vectors/zip_0244.json.
type zip244Vector struct {
	Tx               string
	TxID             string
	Amounts          []uint64
	ScriptPubKeys    []string
	TransparentInput *int
	SighashShielded  string
	Sighash          map[uint8]string // by hash type, only with TransparentInput
}

func testDataPath() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "testdata", "vectors")
}

// loadZIP244Vectors reads the rows after the comment and header rows.
func loadZIP244Vectors(t *testing.T) []zip244Vector {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(testDataPath(), "zip_0244.json"))
	require.NoError(t, err)

	var rows [][]any
	require.NoError(t, json.Unmarshal(data, &rows))
	require.Greater(t, len(rows), 2)

	hashTypes := []uint8{
		tx.SighashAll,
		SighashNone,
		SighashSingle,
		tx.SighashAll | SighashAnyoneCanPay,
		SighashNone | SighashAnyoneCanPay,
		SighashSingle | SighashAnyoneCanPay,
	}

	var vectors []zip244Vector
	for i, row := range rows[2:] {
		require.Len(t, row, 13, "row %d", i)
		v := zip244Vector{
			Tx:              row[0].(string),
			TxID:            row[1].(string),
			SighashShielded: row[6].(string),
		}
		for _, a := range row[3].([]any) {
			v.Amounts = append(v.Amounts, uint64(a.(float64)))
		}
		for _, s := range row[4].([]any) {
			v.ScriptPubKeys = append(v.ScriptPubKeys, s.(string))
		}
		if row[5] != nil {
			idx := int(row[5].(float64))
			v.TransparentInput = &idx
			v.Sighash = make(map[uint8]string, len(hashTypes))
			for j, ht := range hashTypes {
				v.Sighash[ht] = row[7+j].(string)
			}
		}
		vectors = append(vectors, v)
	}
	return vectors
}

// vectorTransaction parses v.Tx and attaches the spent coins' values and
// scripts, which the encoding does not carry.
func vectorTransaction(t *testing.T, v zip244Vector) *tx.Transaction {
	t.Helper()
	parsed, err := tx.ParseV5(hexDecode(t, v.Tx))
	require.NoError(t, err)
	require.Len(t, parsed.Transparent.Inputs, len(v.Amounts))
	for i := range parsed.Transparent.Inputs {
		parsed.Transparent.Inputs[i].Value = v.Amounts[i]
		parsed.Transparent.Inputs[i].ScriptPubKey = hexDecode(t, v.ScriptPubKeys[i])
	}
	return parsed
}

func TestZIP244Vectors(t *testing.T) {
	vectors := loadZIP244Vectors(t)
	require.Len(t, vectors, 5)

	for i, v := range vectors {
		txn := vectorTransaction(t, v)

		assert.Equal(t, hexDecode(t, v.Tx), txn.MarshalV5(), "vector %d: re-encoding", i)
		assert.Equal(t, hex32(t, v.TxID), TxID(txn), "vector %d: txid", i)
		assert.Equal(t, hex32(t, v.SighashShielded), ShieldedSighash(txn), "vector %d: shielded sighash", i)

		if v.TransparentInput == nil {
			assert.Empty(t, txn.Transparent.Inputs)
			assert.Equal(t, TxID(txn), ShieldedSighash(txn), "vector %d: no inputs", i)
			continue
		}
		for hashType, want := range v.Sighash {
			got, err := TransparentSighash(txn, *v.TransparentInput, hashType)
			require.NoError(t, err)
			assert.Equal(t, hex32(t, want), got, "vector %d: input %d hash type %#x", i, *v.TransparentInput, hashType)
		}
	}
}

func TestZIP244VectorBundles(t *testing.T) {
	vectors := loadZIP244Vectors(t)

	full := vectorTransaction(t, vectors[0])
	assert.Len(t, full.Transparent.Inputs, 2)
	assert.Len(t, full.Transparent.Outputs, 2)
	assert.Len(t, full.Sapling.Spends, 2)
	assert.Len(t, full.Sapling.Outputs, 1)
	assert.Len(t, full.Orchard.Actions, 2)
	assert.Equal(t, int64(12_345), full.Sapling.ValueBalance)
	assert.Equal(t, int64(-67_890), full.Orchard.ValueBalance)

	spendOnly := vectorTransaction(t, vectors[2])
	assert.Len(t, spendOnly.Sapling.Spends, 1)
	assert.Empty(t, spendOnly.Sapling.Outputs)
	assert.Empty(t, spendOnly.Orchard.Actions)
	assert.Equal(t, int64(60_000), spendOnly.Sapling.ValueBalance)
}
