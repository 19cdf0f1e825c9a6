package cli

import (
	"github.com/spf13/cobra"
)

// commandContext returns the context attached to cmd, falling back to the
// global one for commands run outside Execute.
func commandContext(cmd *cobra.Command) *CommandContext {
	if cc := GetCmdContext(cmd); cc != nil {
		return cc
	}
	if cmdCtx == nil {
		cmdCtx = NewCommandContext(cfg, logger, formatter)
	}
	return cmdCtx
}
