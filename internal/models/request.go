package models

// VerificationRequest is the inbound payload for one proof-of-reserves
// verification. It is never mutated after decoding.
type VerificationRequest struct {
	Addresses []string `json:"addresses"`
	Message   string   `json:"message"`
	ProofPSBT string   `json:"proof_psbt"`
}
