package audithook

// Action constants for audit events.
const (
	// Ledger actions
	ActionMinted           = "balance.minted"
	ActionTransferred      = "balance.transferred"
	ActionVaultLocked      = "vault.locked"
	ActionDecayCollected   = "decay.collected"
	ActionDecayRateChanged = "decay.rate_changed"

	// Settlement actions
	ActionClaimSubmitted    = "claim.submitted"
	ActionClaimSettled      = "claim.settled"
	ActionClaimDeferred     = "claim.deferred"
	ActionReserveDeposited  = "reserve.deposited"
	ActionReserveWithdrawn  = "reserve.withdrawn"
	ActionRewardDistributed = "reward.distributed"
	ActionSolvencyBlocked   = "solvency.blocked"

	// Administrative actions
	ActionPauseChanged = "protocol.pause_changed"
)

// Resource constants for audit events.
const (
	ResourceBalance  = "balance"
	ResourceVault    = "vault"
	ResourceClaim    = "claim"
	ResourceReserve  = "reserve"
	ResourceChamber  = "chamber"
	ResourceProtocol = "protocol"
)

// Category constants for audit events.
const (
	CategoryLedger     = "ledger"
	CategorySettlement = "settlement"
	CategoryTreasury   = "treasury"
	CategoryGovernance = "governance"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
