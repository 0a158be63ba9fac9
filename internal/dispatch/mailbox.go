package dispatch

// PFVFMailbox is the two calls this core consumes from the PF/VF mailbox
// protocol. PCI discovery, capability negotiation, and the rest of the
// mailbox surface are out of scope: a real implementation lives outside
// this repo and is injected here.
type PFVFMailbox interface {
	// ResetRingPairs asks the PF to quiesce and reset a bundle's ring
	// pairs, sent during queue-pair setup on gen4+ hardware before the
	// ring pair is allocated.
	ResetRingPairs(bundle uint32) error

	// QueryServiceAssignment returns which service (symmetric,
	// asymmetric, compress) a bundle was provisioned for.
	QueryServiceAssignment(bundle uint32) (service uint8, err error)
}

// NoopMailbox is a PFVFMailbox that never fails and always reports the
// symmetric service. It exists so the dispatch table and ring pair can be
// exercised in tests without a real PF/VF transport.
type NoopMailbox struct {
	// Service, if set, is returned by QueryServiceAssignment for every
	// bundle; zero value defaults to the symmetric service.
	Service uint8
}

func (m NoopMailbox) ResetRingPairs(bundle uint32) error { return nil }

func (m NoopMailbox) QueryServiceAssignment(bundle uint32) (uint8, error) {
	return m.Service, nil
}
