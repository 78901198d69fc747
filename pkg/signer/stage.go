package signer

import "fmt"

// Stage is a step of the signing protocol. Stages only move forward within
// a session.
type Stage uint8

const (
	Idle Stage = iota
	TransparentIn
	TransparentOut
	SaplingOut
	SaplingNet
	OrchardOut
	OrchardNet
	Fee
	Sign
)

var stageNames = [...]string{
	Idle:           "IDLE",
	TransparentIn:  "T_IN",
	TransparentOut: "T_OUT",
	SaplingOut:     "S_OUT",
	SaplingNet:     "S_NET",
	OrchardOut:     "O_OUT",
	OrchardNet:     "O_NET",
	Fee:            "FEE",
	Sign:           "SIGN",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", uint8(s))
}

// Valid reports whether s names a stage.
func (s Stage) Valid() bool {
	return s <= Sign
}
