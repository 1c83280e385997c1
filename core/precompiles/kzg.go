package precompiles

import (
	"crypto/sha256"
	"sync"

	"github.com/cockroachdb/errors"
	goethkzg "github.com/crate-crypto/go-eth-kzg"
)

const (
	versionedHashVersionKZG = 0x01
	kzgPointEvaluationGas   = 50000
)

// blsModulusBytes is BLS_MODULUS (§4.9) as a 32-byte big-endian value, for
// the fixed second half of a successful point-evaluation's output.
var blsModulusBytes = [32]byte{
	0x73, 0xed, 0xa7, 0x53, 0x29, 0x9d, 0x7d, 0x48,
	0x33, 0x39, 0xd8, 0x08, 0x09, 0xa1, 0xd8, 0x05,
	0x53, 0xbd, 0xa4, 0x02, 0xff, 0xfe, 0x5b, 0xfe,
	0xff, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x01,
}

var fieldElementsPerBlobBytes = [32]byte{
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0x10, 0, // 4096
}

// kzgPointEvaluationContract is address 0x0a (EIP-4844), grounded on the
// teacher's pkg/core/vm/precompiles.go kzgPointEvaluation for input layout
// and on the teacher's own (build-tag-gated) pkg/crypto/kzg_goeth_adapter.go
// for the real crate-crypto/go-eth-kzg API surface. The teacher's precompile
// validates format only and leaves the actual proof check as a stubbed
// comment ("KZG proof verification is stubbed"); this module wires the real
// verification through go-eth-kzg's single-point VerifyKZGProof instead of
// shipping that stub.
type kzgPointEvaluationContract struct {
	ctxOnce sync.Once
	ctx     *goethkzg.Context
	ctxErr  error
}

func newKZGPointEvaluationContract() *kzgPointEvaluationContract {
	return &kzgPointEvaluationContract{}
}

func (c *kzgPointEvaluationContract) context() (*goethkzg.Context, error) {
	c.ctxOnce.Do(func() {
		c.ctx, c.ctxErr = goethkzg.NewContext4096Secure()
	})
	return c.ctx, c.ctxErr
}

func (c *kzgPointEvaluationContract) RequiredGas(input []byte) uint64 {
	return kzgPointEvaluationGas
}

func (c *kzgPointEvaluationContract) Run(input []byte) ([]byte, error) {
	if len(input) != 192 {
		return nil, errors.New("kzg: invalid input length")
	}

	versionedHash := input[:32]
	z := input[32:64]
	y := input[64:96]
	commitment := input[96:144]
	proof := input[144:192]

	if versionedHash[0] != versionedHashVersionKZG {
		return nil, errors.New("kzg: invalid versioned hash version")
	}

	commitHash := sha256.Sum256(commitment)
	commitHash[0] = versionedHashVersionKZG
	if !bytesEqual(versionedHash, commitHash[:]) {
		return nil, errors.New("kzg: commitment does not match versioned hash")
	}

	ctx, err := c.context()
	if err != nil {
		return nil, errors.Wrap(err, "kzg: trusted setup unavailable")
	}

	var comm goethkzg.KZGCommitment
	copy(comm[:], commitment)
	var zScalar, yScalar [32]byte
	copy(zScalar[:], z)
	copy(yScalar[:], y)
	var kzgProof goethkzg.KZGProof
	copy(kzgProof[:], proof)

	if err := ctx.VerifyKZGProof(comm, zScalar, yScalar, kzgProof); err != nil {
		return nil, errors.Wrap(err, "kzg: proof verification failed")
	}

	result := make([]byte, 64)
	copy(result[:32], fieldElementsPerBlobBytes[:])
	copy(result[32:], blsModulusBytes[:])
	return result, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
