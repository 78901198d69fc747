package signer

// FeeSummary is what the user confirms before the session can sign.
type FeeSummary struct {
	Fee                int64  // t_net + s_net + o_net, in zatoshis
	TransparentOutputs uint64 // Sum of transparent outputs
	SaplingOutputs     uint64 // Sum of Sapling output notes
	OrchardOutputs     uint64 // Sum of Orchard output notes
	TransparentNet     int64
	SaplingNet         int64
	OrchardNet         int64
}

// Approver stands in for the on-device confirmation screens.
type Approver interface {
	// ConfirmFee reports whether the user accepts the fee and totals.
	ConfirmFee(FeeSummary) bool
	// ConfirmAddress reports whether the user confirmed the displayed
	// addresses.
	ConfirmAddress(transparent, sapling string) bool
}
