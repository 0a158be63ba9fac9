package reqbuilder

import (
	"github.com/qatdrv/go-qat/internal/bpi"
	"github.com/qatdrv/go-qat/internal/model"
)

// bpiPreProcessLen narrows cipher_len to what hardware should actually
// process, handling the DOCSIS BPI residue block in software via the bpi
// package and returning the block-aligned length the descriptor should
// carry.
func (b *Builder) bpiPreProcessLen(sess *model.Session, op *model.Operation, cipherOfs, cipherLen uint32, iv []byte) (uint32, error) {
	adjusted, err := bpi.PreProcess(b.Bus, sess.BPI, op, cipherOfs, cipherLen, iv)
	if err != nil {
		return 0, errInvalid("%v", err)
	}
	return adjusted, nil
}
