package qat

import (
	"testing"

	"github.com/qatdrv/go-qat/internal/dispatch"
	"github.com/qatdrv/go-qat/internal/dma"
	"github.com/qatdrv/go-qat/internal/fwmodel"
	"github.com/qatdrv/go-qat/internal/model"
	"github.com/qatdrv/go-qat/internal/wire"
	"github.com/stretchr/testify/require"
)

func newTestDevice(t *testing.T) (*Device, *dma.Bus) {
	t.Helper()
	bus := dma.NewBus()
	bank := dispatch.NewCSRBank(4096)
	dev, err := NewDevice(0, dispatch.Gen4, DriverArgs{}, bank, bus, dispatch.NoopMailbox{})
	require.NoError(t, err)
	return dev, bus
}

// runFirmware plays firmware for the first n request slots of qp's TX
// ring, writing each completion into the RX slot with the same index. It
// stands in for a real device between EnqueueBurst
// and DequeueBurst in these tests, the same role internal/fwmodel plays
// in the reqbuilder and dispatcher package tests, lifted up to the
// ring-pair level.
func runFirmware(t *testing.T, qp *QueuePair, fw *fwmodel.Firmware, key []byte, algo model.CipherAlgorithm, dir model.Direction, n int) {
	t.Helper()
	tx := qp.TX()
	rx := qp.RX()
	off := uint32(0)
	for i := 0; i < n; i++ {
		reqSlot := tx.Slot(off)
		respSlot := rx.Slot(uint32(i) * rx.MessageSize())
		require.NoError(t, fw.ExecuteSymmetric(reqSlot, respSlot, key, algo, dir))
		off += tx.MessageSize()
	}
}

// TestDeviceEnqueueDequeueAESCBCRoundTrip exercises the full wiring from
// Device through the request builder, a simulated firmware completion,
// and the response dispatcher, mirroring scenario S1 (an in-place
// AES-CBC request whose response is dequeued successfully).
func TestDeviceEnqueueDequeueAESCBCRoundTrip(t *testing.T) {
	dev, bus := newTestDevice(t)
	qp, err := dev.NewQueuePair(wire.ServiceSymmetric, 0, 8)
	require.NoError(t, err)
	require.NoError(t, qp.Activate())

	key := make([]byte, 16)
	plaintext := make([]byte, 32)
	for i := range plaintext {
		plaintext[i] = byte(i)
	}
	addr := bus.Alloc(plaintext)
	chain := &model.Chain{IOVA: addr, DataLen: uint32(len(plaintext))}

	sess := &model.Session{
		CommandID:       model.CmdCipher,
		CipherAlgorithm: model.CipherAESCBC,
		CipherDirection: model.DirEncrypt,
	}
	op := &Operation{
		Session:  sess,
		SrcChain: chain,
		Cipher:   &model.CipherParams{Offset: 0, Length: 32, IV: make([]byte, 16)},
	}

	n, err := qp.EnqueueBurst([]*Operation{op})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	fw := fwmodel.New(bus)
	runFirmware(t, qp, fw, key, model.CipherAESCBC, model.DirEncrypt, 1)

	out := make([]*Operation, 1)
	got, err := qp.DequeueBurst(out)
	require.NoError(t, err)
	require.Equal(t, 1, got)
	require.Same(t, op, out[0])
	require.Equal(t, model.StatusSuccess, op.Status)

	ciphertext, err := bus.Translate(addr, 32)
	require.NoError(t, err)
	require.NotEqual(t, make([]byte, 32), ciphertext)
}

// TestDeviceSessionBelowDeviceGenerationFloorIsRejected covers the
// failure-semantics case where a session demands a newer generation than
// the device it's enqueued on provides.
func TestDeviceSessionBelowDeviceGenerationFloorIsRejected(t *testing.T) {
	dev, bus := newTestDevice(t)
	qp, err := dev.NewQueuePair(wire.ServiceSymmetric, 0, 8)
	require.NoError(t, err)
	require.NoError(t, qp.Activate())

	buf := make([]byte, 32)
	addr := bus.Alloc(buf)

	sess := &model.Session{
		CommandID:           model.CmdCipher,
		CipherAlgorithm:     model.CipherAESCBC,
		MinDeviceGeneration: dispatch.Gen5,
	}
	op := &Operation{
		Session:  sess,
		SrcChain: &model.Chain{IOVA: addr, DataLen: 32},
		Cipher:   &model.CipherParams{Offset: 0, Length: 32, IV: make([]byte, 16)},
	}

	n, err := qp.EnqueueBurst([]*Operation{op})
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.Equal(t, model.StatusInvalidSession, op.Status)
}

// TestDeviceEnqueueBurstRingFullShortEnqueues is scenario S4: 129
// operations pushed at an 128-descriptor queue pair short-enqueue at the
// admission-control ceiling, and a second call before any dequeue sees
// the ring still full.
func TestDeviceEnqueueBurstRingFullShortEnqueues(t *testing.T) {
	dev, bus := newTestDevice(t)
	qp, err := dev.NewQueuePair(wire.ServiceSymmetric, 0, 128)
	require.NoError(t, err)
	require.NoError(t, qp.Activate())

	sess := &model.Session{CommandID: model.CmdCipher, CipherAlgorithm: model.CipherAESCBC}
	ops := make([]*Operation, 129)
	for i := range ops {
		buf := make([]byte, 16)
		addr := bus.Alloc(buf)
		ops[i] = &Operation{
			Session:  sess,
			SrcChain: &model.Chain{IOVA: addr, DataLen: 16},
			Cipher:   &model.CipherParams{Offset: 0, Length: 16, IV: make([]byte, 16)},
		}
	}

	n, err := qp.EnqueueBurst(ops)
	require.NoError(t, err)
	require.Equal(t, 127, n)
	require.Equal(t, uint64(127), qp.Stats().Enqueued.Load())

	n, err = qp.EnqueueBurst(ops[127:])
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

// TestDeviceReleaseBusyUntilDrained exercises Release's draining
// behavior at the Device/QueuePair level: CodeBusy while an operation is
// still in flight, success once it has been dequeued.
func TestDeviceReleaseBusyUntilDrained(t *testing.T) {
	dev, bus := newTestDevice(t)
	qp, err := dev.NewQueuePair(wire.ServiceSymmetric, 0, 8)
	require.NoError(t, err)
	require.NoError(t, qp.Activate())

	key := make([]byte, 16)
	buf := make([]byte, 16)
	addr := bus.Alloc(buf)
	sess := &model.Session{CommandID: model.CmdCipher, CipherAlgorithm: model.CipherAESCBC}
	op := &Operation{
		Session:  sess,
		SrcChain: &model.Chain{IOVA: addr, DataLen: 16},
		Cipher:   &model.CipherParams{Offset: 0, Length: 16, IV: make([]byte, 16)},
	}

	n, err := qp.EnqueueBurst([]*Operation{op})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	err = qp.Release()
	require.Error(t, err)
	qerr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, CodeBusy, qerr.Code)

	fw := fwmodel.New(bus)
	runFirmware(t, qp, fw, key, model.CipherAESCBC, model.DirEncrypt, 1)

	out := make([]*Operation, 1)
	got, err := qp.DequeueBurst(out)
	require.NoError(t, err)
	require.Equal(t, 1, got)

	require.NoError(t, qp.Release())
}
