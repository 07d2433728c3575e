package xrpl

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ledgerflow/payout-pipeline/pipeline"
)

func TestClassifySubmitResult(t *testing.T) {
	cases := []struct {
		engineResult string
		want         pipeline.SubmitOutcomeKind
	}{
		{"tesSUCCESS", pipeline.SubmitAccepted},
		{"tecUNFUNDED_PAYMENT", pipeline.SubmitPermanentReject},
		{"temBAD_AMOUNT", pipeline.SubmitPermanentReject},
		{"tefPAST_SEQ", pipeline.SubmitResign},
		{"terPRE_SEQ", pipeline.SubmitTransientNetwork},
		{"terQUEUED", pipeline.SubmitTransientNetwork},
		{"somethingUnrecognized", pipeline.SubmitTransientNetwork},
	}

	for _, c := range cases {
		got := classifySubmitResult(c.engineResult)
		require.Equalf(t, c.want, got.Kind, "classifySubmitResult(%q)", c.engineResult)
		if c.want != pipeline.SubmitAccepted {
			require.Equal(t, c.engineResult, got.Reason)
		}
	}
}
