package roll

// Kind is the terminal state of one roll transaction.
type Kind string

const (
	// KindRejected: request input was missing or malformed. No side effects.
	KindRejected Kind = "invalid_input"
	// KindCooldownActive: the identity rolled too recently. Not an error.
	KindCooldownActive Kind = "rate_limited"
	// KindVerificationFailed: the assertion did not prove the claimed identity.
	KindVerificationFailed Kind = "identity_rejected"
	// KindGranted: the reward was attached to the identity's inventory.
	KindGranted Kind = "granted"
	// KindGrantFailed: verification succeeded and the cooldown was spent,
	// but the downstream grant failed.
	KindGrantFailed Kind = "downstream_failure"
)

// Outcome is the result of a roll. Err carries failure detail for logs and
// is never shown to the caller.
type Outcome struct {
	Kind             Kind
	RollID           string
	Identity         string
	RewardID         string
	RemainingSeconds int
	Reason           string
	Err              error
}

func rejected(reason string) Outcome {
	return Outcome{Kind: KindRejected, Reason: reason}
}
