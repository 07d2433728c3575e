package pipeline

// nonInvalidatingRejectCodes are XRPL "tec"-class engine results that still
// consume the submitting account's sequence number normally (the ledger
// applies the fee and advances the account's sequence even though the
// payment itself fails) and therefore do not corrupt the sequence chain for
// rows behind them. Any code not on this list is treated as invalidating
// (Resign), fail-closed on sequence integrity.
var nonInvalidatingRejectCodes = map[string]bool{
	"tecNO_DST":           true,
	"tecNO_DST_INSUF_XRP": true,
	"tecUNFUNDED_PAYMENT": true,
	"tecPATH_DRY":         true,
	"tecPATH_PARTIAL":     true,
	"tecDST_TAG_NEEDED":   true,
	"tecNO_PERMISSION":    true,
}

// classifyRejectResult decides which PermanentReject reasons invalidate the
// sequence chain (and therefore require a resign) and which can be recorded
// on the offending row alone. The reason string is the ledger's raw engine
// result code (e.g. "tecUNFUNDED_PAYMENT", "tefPAST_SEQ").
func classifyRejectResult(reason string) (invalidatesSequence bool) {
	return !nonInvalidatingRejectCodes[reason]
}
