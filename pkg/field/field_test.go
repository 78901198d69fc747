package field

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	bigQ  = mustBig("73eda753299d7d483339d80809a1d80553bda402fffe5bfeffffffff00000001")
	bigR  = mustBig("0e7db4ea6533afa906673b0101343b00a6682093ccc81082d0970e5ed6f72cb7")
	bigP  = mustBig("40000000000000000000000000000000224698fc094cf91b992d30ed00000001")
	bigPV = mustBig("40000000000000000000000000000000224698fc0994a8dd8c46eb2100000001")
)

func mustBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic(s)
	}
	return v
}

func be32(v *big.Int) [32]byte {
	var out [32]byte
	v.FillBytes(out[:])
	return out
}

func le32(v *big.Int) [32]byte { return reverse32(be32(v)) }

func randBelow(rng *rand.Rand, m *big.Int) *big.Int {
	return new(big.Int).Rand(rng, m)
}

func randWide(rng *rand.Rand) [64]byte {
	var b [64]byte
	rng.Read(b[:])
	return b
}

func TestFieldArithmeticAgainstBigInt(t *testing.T) {
	rng := rand.New(rand.NewSource(244))

	t.Run("Fq", func(t *testing.T) {
		for i := 0; i < 64; i++ {
			x, y := randBelow(rng, bigQ), randBelow(rng, bigQ)
			a, err := FqFromBytes(be32(x))
			require.NoError(t, err)
			b, err := FqFromBytes(be32(y))
			require.NoError(t, err)

			sum := new(big.Int).Add(x, y)
			assert.Equal(t, be32(sum.Mod(sum, bigQ)), a.Add(b).Bytes())
			diff := new(big.Int).Sub(x, y)
			assert.Equal(t, be32(diff.Mod(diff, bigQ)), a.Sub(b).Bytes())
			prod := new(big.Int).Mul(x, y)
			assert.Equal(t, be32(prod.Mod(prod, bigQ)), a.Mul(b).Bytes())
			assert.Equal(t, x.Bit(0) == 1, a.IsOdd())
			assert.True(t, a.Add(b).Equal(b.Add(a)))
			if !a.IsZero() {
				assert.True(t, a.Mul(a.Invert()).Equal(FqOne()))
			}
		}
	})

	t.Run("Fr", func(t *testing.T) {
		for i := 0; i < 64; i++ {
			x, y := randBelow(rng, bigR), randBelow(rng, bigR)
			a, err := FrFromBytes(be32(x))
			require.NoError(t, err)
			b, err := FrFromLEBytes(le32(y))
			require.NoError(t, err)

			sum := new(big.Int).Add(x, y)
			assert.Equal(t, be32(sum.Mod(sum, bigR)), a.Add(b).Bytes())
			diff := new(big.Int).Sub(x, y)
			assert.Equal(t, be32(diff.Mod(diff, bigR)), a.Sub(b).Bytes())
			prod := new(big.Int).Mul(x, y)
			assert.Equal(t, be32(prod.Mod(prod, bigR)), a.Mul(b).Bytes())
			inv := new(big.Int).ModInverse(x, bigR)
			assert.Equal(t, be32(inv), a.Invert().Bytes())
			assert.Equal(t, x.Bit(0) == 1, a.IsOdd())
		}
	})

	t.Run("Fp", func(t *testing.T) {
		for i := 0; i < 64; i++ {
			x, y := randBelow(rng, bigP), randBelow(rng, bigP)
			a, err := FpFromBytes(be32(x))
			require.NoError(t, err)
			b, err := FpFromLEBytes(le32(y))
			require.NoError(t, err)

			sum := new(big.Int).Add(x, y)
			assert.Equal(t, be32(sum.Mod(sum, bigP)), a.Add(b).Bytes())
			diff := new(big.Int).Sub(x, y)
			assert.Equal(t, be32(diff.Mod(diff, bigP)), a.Sub(b).Bytes())
			prod := new(big.Int).Mul(x, y)
			assert.Equal(t, be32(prod.Mod(prod, bigP)), a.Mul(b).Bytes())
			assert.Equal(t, x.Bit(0) == 1, a.IsOdd())
			if !a.IsZero() {
				assert.True(t, a.Mul(a.Invert()).Equal(FpOne()))
			}
		}
	})

	t.Run("Fv", func(t *testing.T) {
		for i := 0; i < 64; i++ {
			x, y := randBelow(rng, bigPV), randBelow(rng, bigPV)
			a, err := FvFromBytes(be32(x))
			require.NoError(t, err)
			b, err := FvFromBytes(be32(y))
			require.NoError(t, err)

			prod := new(big.Int).Mul(x, y)
			assert.Equal(t, be32(prod.Mod(prod, bigPV)), a.Mul(b).Bytes())
			sum := new(big.Int).Add(x, y)
			assert.Equal(t, be32(sum.Mod(sum, bigPV)), a.Add(b).Bytes())
			assert.Equal(t, x.Bit(0) == 1, a.IsOdd())
		}
	})
}

func TestInvertZeroIsZero(t *testing.T) {
	assert.True(t, Fq{}.Invert().IsZero())
	assert.True(t, Fr{}.Invert().IsZero())
	assert.True(t, Fp{}.Invert().IsZero())
	assert.True(t, Fv{}.Invert().IsZero())
}

func TestSqrt(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	t.Run("squares have roots", func(t *testing.T) {
		for i := 0; i < 16; i++ {
			q, _ := FqFromBytes(be32(randBelow(rng, bigQ)))
			root, err := q.Square().Sqrt()
			require.NoError(t, err)
			assert.True(t, root.Square().Equal(q.Square()))

			r, _ := FrFromBytes(be32(randBelow(rng, bigR)))
			rr, err := r.Square().Sqrt()
			require.NoError(t, err)
			assert.True(t, rr.Square().Equal(r.Square()))

			p, _ := FpFromBytes(be32(randBelow(rng, bigP)))
			pr, err := p.Square().Sqrt()
			require.NoError(t, err)
			assert.True(t, pr.Square().Equal(p.Square()))
		}
	})

	t.Run("non-residues", func(t *testing.T) {
		// 5 generates the multiplicative group of the BLS12-381 scalar field and of
		// the Pallas base field, so it is not a square in either.
		_, err := FqFromUint64(5).Sqrt()
		assert.ErrorIs(t, err, ErrNoSquareRoot)
		_, err = FpFromUint64(5).Sqrt()
		assert.ErrorIs(t, err, ErrNoSquareRoot)
		assert.False(t, FpFromUint64(5).IsSquare())

		minusOne := FrOne().Neg()
		_, err = minusOne.Sqrt()
		assert.ErrorIs(t, err, ErrNoSquareRoot, "-1 is a non-residue when r = 3 mod 4")
	})
}

func TestWideReduction(t *testing.T) {
	rng := rand.New(rand.NewSource(32))
	for i := 0; i < 32; i++ {
		w := randWide(rng)

		le := reverse64(w)
		leInt := new(big.Int).SetBytes(le[:])
		beInt := new(big.Int).SetBytes(w[:])

		assert.Equal(t, be32(new(big.Int).Mod(leInt, bigR)), FrFromWideLE(w).Bytes(), "ToScalar")
		assert.Equal(t, be32(new(big.Int).Mod(beInt, bigP)), FpFromWide(w).Bytes(), "hash_to_field")
		assert.Equal(t, be32(new(big.Int).Mod(leInt, bigP)), FpFromWideLE(w).Bytes(), "ToBase")
		assert.Equal(t, be32(new(big.Int).Mod(leInt, bigPV)), FvFromWideLE(w).Bytes(), "ToScalar Orchard")
		assert.Equal(t, be32(new(big.Int).Mod(beInt, bigQ)), FqFromWide(w).Bytes())
	}
}

func TestNonCanonicalRejected(t *testing.T) {
	tests := []struct {
		name   string
		decode func([32]byte) error
		mod    *big.Int
	}{
		{"Fq", func(b [32]byte) error { _, err := FqFromBytes(b); return err }, bigQ},
		{"Fr", func(b [32]byte) error { _, err := FrFromBytes(b); return err }, bigR},
		{"Fp", func(b [32]byte) error { _, err := FpFromBytes(b); return err }, bigP},
		{"Fv", func(b [32]byte) error { _, err := FvFromBytes(b); return err }, bigPV},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.decode(be32(tt.mod)), ErrNonCanonical)
			below := new(big.Int).Sub(tt.mod, big.NewInt(1))
			assert.NoError(t, tt.decode(be32(below)))
		})
	}
}

func TestFqFromBytesCanonical(t *testing.T) {
	var ones [32]byte
	for i := range ones {
		ones[i] = 0xff
	}
	tests := []struct {
		name string
		in   [32]byte
		ok   bool
	}{
		{"zero", [32]byte{}, true},
		{"q-1", be32(new(big.Int).Sub(bigQ, big.NewInt(1))), true},
		{"q", be32(bigQ), false},
		{"q+1", be32(new(big.Int).Add(bigQ, big.NewInt(1))), false},
		{"2^256-1", ones, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FqFromBytes(tt.in)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrNonCanonical)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.in, got.Bytes())
		})
	}
}

func TestSelect(t *testing.T) {
	a, b := FqFromUint64(3), FqFromUint64(9)
	assert.True(t, SelectFq(0, a, b).Equal(a))
	assert.True(t, SelectFq(1, a, b).Equal(b))

	c, d := FpFromUint64(3), FpFromUint64(9)
	assert.True(t, SelectFp(0, c, d).Equal(c))
	assert.True(t, SelectFp(1, c, d).Equal(d))
}

// The Montgomery Fr is checked against uint256's variable-time MulMod and
// AddMod, with extra weight on the operands where carries and the final
// conditional subtraction matter.
func TestFrAgainstUint256(t *testing.T) {
	rMinus := func(d uint64) *big.Int { return new(big.Int).Sub(bigR, new(big.Int).SetUint64(d)) }
	edges := []*big.Int{
		big.NewInt(0),
		big.NewInt(1),
		big.NewInt(2),
		new(big.Int).Lsh(big.NewInt(1), 64),
		new(big.Int).Lsh(big.NewInt(1), 251),
		rMinus(2),
		rMinus(1),
	}
	rng := rand.New(rand.NewSource(32))
	for i := 0; i < 16; i++ {
		edges = append(edges, randBelow(rng, bigR))
	}

	var mod uint256.Int
	mod.SetFromBig(bigR)
	for i, x := range edges {
		for j, y := range edges {
			a, err := FrFromBytes(be32(x))
			require.NoError(t, err)
			b, err := FrFromBytes(be32(y))
			require.NoError(t, err)

			var ux, uy, want uint256.Int
			ux.SetFromBig(x)
			uy.SetFromBig(y)
			assert.Equal(t, want.MulMod(&ux, &uy, &mod).Bytes32(), a.Mul(b).Bytes(), "mul %d %d", i, j)
			assert.Equal(t, want.AddMod(&ux, &uy, &mod).Bytes32(), a.Add(b).Bytes(), "add %d %d", i, j)
			assert.True(t, a.Sub(b).Add(b).Equal(a), "sub %d %d", i, j)
		}
	}

	t.Run("neg", func(t *testing.T) {
		assert.True(t, Fr{}.Neg().IsZero())
		one := FrOne()
		assert.Equal(t, be32(rMinus(1)), one.Neg().Bytes())
		assert.True(t, one.Neg().Add(one).IsZero())
	})

	t.Run("uint64", func(t *testing.T) {
		assert.Equal(t, be32(new(big.Int).SetUint64(^uint64(0))), FrFromUint64(^uint64(0)).Bytes())
		assert.True(t, FrFromUint64(1).Equal(FrOne()))
	})

	t.Run("sqrt", func(t *testing.T) {
		for _, x := range edges {
			a, err := FrFromBytes(be32(x))
			require.NoError(t, err)
			sq := a.Square()
			r, err := sq.Sqrt()
			require.NoError(t, err)
			assert.True(t, r.Square().Equal(sq))
		}
	})
}

func TestIsZeroChoice(t *testing.T) {
	assert.Equal(t, 1, Fp{}.IsZeroChoice())
	assert.Equal(t, 0, FpOne().IsZeroChoice())
	assert.Equal(t, 0, FpOne().Neg().IsZeroChoice())
	assert.Equal(t, 1, FpOne().Sub(FpOne()).IsZeroChoice())
}
