package wire

import "encoding/binary"

func putUint64(b []byte, v uint64) { binary.LittleEndian.PutUint64(b, v) }
func getUint64(b []byte) uint64    { return binary.LittleEndian.Uint64(b) }
func putUint32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }
func getUint32(b []byte) uint32    { return binary.LittleEndian.Uint32(b) }
func putUint16(b []byte, v uint16) { binary.LittleEndian.PutUint16(b, v) }
func getUint16(b []byte) uint16    { return binary.LittleEndian.Uint16(b) }

// marshalHeader writes the 16-byte common header at buf[0:16].
func marshalHeader(buf []byte, h *RequestCommonHeader) {
	buf[0] = h.ServiceType
	buf[1] = h.ServiceCmdID
	buf[2] = h.CmnID
	buf[3] = h.Rsvd
	putUint16(buf[4:6], h.ServSpecifFlags)
	putUint16(buf[6:8], h.CmnReqFlags)
	putUint64(buf[8:16], h.Rsvd2)
}

func unmarshalHeader(buf []byte) RequestCommonHeader {
	return RequestCommonHeader{
		ServiceType:     buf[0],
		ServiceCmdID:    buf[1],
		CmnID:           buf[2],
		Rsvd:            buf[3],
		ServSpecifFlags: getUint16(buf[4:6]),
		CmnReqFlags:     getUint16(buf[6:8]),
		Rsvd2:           getUint64(buf[8:16]),
	}
}

// marshalMid writes the 32-byte mid block at buf[0:32].
func marshalMid(buf []byte, m *RequestMid) {
	putUint64(buf[0:8], m.OpaqueData)
	putUint64(buf[8:16], m.SrcDataAddr)
	putUint64(buf[16:24], m.DstDataAddr)
	putUint32(buf[24:28], m.SrcLength)
	putUint32(buf[28:32], m.DstLength)
}

func unmarshalMid(buf []byte) RequestMid {
	return RequestMid{
		OpaqueData:  getUint64(buf[0:8]),
		SrcDataAddr: getUint64(buf[8:16]),
		DstDataAddr: getUint64(buf[16:24]),
		SrcLength:   getUint32(buf[24:28]),
		DstLength:   getUint32(buf[28:32]),
	}
}

// Tail field offsets within the 80-byte params budget.
const (
	tailIVOff          = 0
	tailCipherOffOff   = 16
	tailCipherLenOff   = 20
	tailAuthOffOff     = 24
	tailAuthLenOff     = 28
	tailAADAddrOff     = 32
	tailAADSizeOff     = 40
	tailDigestAddrOff  = 44
	tailDigestSizeOff  = 52
	tailHashStateOff   = 56
	tailHashPrefixOff  = 60
	tailCDAddrOff      = 64
	tailCDSizeOff      = 72
	tailCDFlagsOff     = 76
	tailParamsSize     = 80
)

func marshalTail(buf []byte, t *RequestTail) {
	copy(buf[tailIVOff:tailIVOff+16], t.CipherIV[:])
	putUint32(buf[tailCipherOffOff:], t.CipherOffset)
	putUint32(buf[tailCipherLenOff:], t.CipherLength)
	putUint32(buf[tailAuthOffOff:], t.AuthOffset)
	putUint32(buf[tailAuthLenOff:], t.AuthLength)
	putUint64(buf[tailAADAddrOff:], t.AADAddr)
	putUint32(buf[tailAADSizeOff:], t.AADSize)
	putUint64(buf[tailDigestAddrOff:], t.DigestAddr)
	putUint32(buf[tailDigestSizeOff:], t.DigestSize)
	putUint32(buf[tailHashStateOff:], t.HashStateSz)
	putUint32(buf[tailHashPrefixOff:], t.HashPrefixSz)
	putUint64(buf[tailCDAddrOff:], t.CDAddr)
	putUint32(buf[tailCDSizeOff:], t.CDSize)
	putUint32(buf[tailCDFlagsOff:], t.CDFlags)
}

func unmarshalTail(buf []byte) RequestTail {
	var t RequestTail
	copy(t.CipherIV[:], buf[tailIVOff:tailIVOff+16])
	t.CipherOffset = getUint32(buf[tailCipherOffOff:])
	t.CipherLength = getUint32(buf[tailCipherLenOff:])
	t.AuthOffset = getUint32(buf[tailAuthOffOff:])
	t.AuthLength = getUint32(buf[tailAuthLenOff:])
	t.AADAddr = getUint64(buf[tailAADAddrOff:])
	t.AADSize = getUint32(buf[tailAADSizeOff:])
	t.DigestAddr = getUint64(buf[tailDigestAddrOff:])
	t.DigestSize = getUint32(buf[tailDigestSizeOff:])
	t.HashStateSz = getUint32(buf[tailHashStateOff:])
	t.HashPrefixSz = getUint32(buf[tailHashPrefixOff:])
	t.CDAddr = getUint64(buf[tailCDAddrOff:])
	t.CDSize = getUint32(buf[tailCDSizeOff:])
	t.CDFlags = getUint32(buf[tailCDFlagsOff:])
	return t
}

// Marshal encodes a SymRequest into a fresh 128-byte slice.
func (r *SymRequest) Marshal() []byte {
	buf := make([]byte, 128)
	marshalHeader(buf[0:16], &r.Header)
	marshalMid(buf[16:48], &r.Mid)
	marshalTail(buf[48:128], &r.Tail)
	return buf
}

// UnmarshalSymRequest decodes a 128-byte slice into a SymRequest.
func UnmarshalSymRequest(buf []byte) SymRequest {
	return SymRequest{
		Header: unmarshalHeader(buf[0:16]),
		Mid:    unmarshalMid(buf[16:48]),
		Tail:   unmarshalTail(buf[48:128]),
	}
}

// Comp params field offsets within the shared 80-byte params budget.
const (
	compAdlerOff = 0
	compCRCOff   = 4
	compOutMaxOff = 8
	compDepthOff = 12
	compAlgoOff  = 13
	compDirOff   = 14
	compCDAddrOff = 16
)

func marshalCompParams(buf []byte, p *CompParams) {
	putUint32(buf[compAdlerOff:], p.InitialAdler)
	putUint32(buf[compCRCOff:], p.InitialCRC)
	putUint32(buf[compOutMaxOff:], p.OutputLenMax)
	buf[compDepthOff] = p.CompDepth
	buf[compAlgoOff] = p.Algorithm
	buf[compDirOff] = p.Direction
	putUint64(buf[compCDAddrOff:], p.CDAddr)
}

func unmarshalCompParams(buf []byte) CompParams {
	return CompParams{
		InitialAdler: getUint32(buf[compAdlerOff:]),
		InitialCRC:   getUint32(buf[compCRCOff:]),
		OutputLenMax: getUint32(buf[compOutMaxOff:]),
		CompDepth:    buf[compDepthOff],
		Algorithm:    buf[compAlgoOff],
		Direction:    buf[compDirOff],
		CDAddr:       getUint64(buf[compCDAddrOff:]),
	}
}

// Marshal encodes a CompRequest into a fresh 128-byte slice.
func (r *CompRequest) Marshal() []byte {
	buf := make([]byte, 128)
	marshalHeader(buf[0:16], &r.Header)
	marshalMid(buf[16:48], &r.Mid)
	marshalCompParams(buf[48:128], &r.Params)
	return buf
}

// UnmarshalCompRequest decodes a 128-byte slice into a CompRequest.
func UnmarshalCompRequest(buf []byte) CompRequest {
	return CompRequest{
		Header: unmarshalHeader(buf[0:16]),
		Mid:    unmarshalMid(buf[16:48]),
		Params: unmarshalCompParams(buf[48:128]),
	}
}

// Marshal encodes an AsymRequest into a fresh 64-byte slice.
func (r *AsymRequest) Marshal() []byte {
	buf := make([]byte, 64)
	marshalHeader(buf[0:16], &r.Header)
	marshalMid(buf[16:48], &r.Mid)
	copy(buf[48:64], r.Rsvd[:])
	return buf
}

// Marshal encodes a Response into a fresh 32-byte slice.
func (r *Response) Marshal() []byte {
	buf := make([]byte, 32)
	buf[0] = r.ServiceType
	buf[1] = r.ServiceCmdID
	buf[2] = r.CmnStatus
	buf[3] = r.CmdID
	putUint64(buf[4:12], r.OpaqueData)
	putUint32(buf[12:16], r.ExtraStatus)
	putUint32(buf[16:20], r.ProducedLength)
	putUint32(buf[20:24], r.Checksum)
	putUint32(buf[24:28], r.ConsumedLength)
	putUint32(buf[28:32], r.Rsvd)
	return buf
}

// UnmarshalResponse decodes a 32-byte slice into a Response.
func UnmarshalResponse(buf []byte) Response {
	return Response{
		ServiceType:    buf[0],
		ServiceCmdID:   buf[1],
		CmnStatus:      buf[2],
		CmdID:          buf[3],
		OpaqueData:     getUint64(buf[4:12]),
		ExtraStatus:    getUint32(buf[12:16]),
		ProducedLength: getUint32(buf[16:20]),
		Checksum:       getUint32(buf[20:24]),
		ConsumedLength: getUint32(buf[24:28]),
		Rsvd:           getUint32(buf[28:32]),
	}
}

// MarshalSGL packs an SGL into header-first layout: 16-byte header then
// one 16-byte FlatBufferDescriptor per entry in s.Entries.
func MarshalSGL(s *SGL) []byte {
	buf := make([]byte, 16+len(s.Entries)*16)
	putUint64(buf[0:8], s.Rsvd)
	putUint32(buf[8:12], s.NumBufs)
	putUint32(buf[12:16], s.NumMapped)
	for i, e := range s.Entries {
		off := 16 + i*16
		putUint32(buf[off:off+4], e.Length)
		putUint32(buf[off+4:off+8], e.Rsvd)
		putUint64(buf[off+8:off+16], e.PhysicalAddress)
	}
	return buf
}

// UnmarshalSGL decodes a buffer previously produced by MarshalSGL.
func UnmarshalSGL(buf []byte) SGL {
	s := SGL{
		Rsvd:      getUint64(buf[0:8]),
		NumBufs:   getUint32(buf[8:12]),
		NumMapped: getUint32(buf[12:16]),
	}
	s.Entries = make([]FlatBufferDescriptor, s.NumBufs)
	for i := range s.Entries {
		off := 16 + i*16
		s.Entries[i] = FlatBufferDescriptor{
			Length:          getUint32(buf[off : off+4]),
			Rsvd:            getUint32(buf[off+4 : off+8]),
			PhysicalAddress: getUint64(buf[off+8 : off+16]),
		}
	}
	return s
}
