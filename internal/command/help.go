package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/keshon/jukebox/pkg/cmd"
)

type HelpCommand struct {
	Registry *cmd.Registry
	Prefix   string
}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "Show all commands as a flat list" }

func (c *HelpCommand) Run(ctx context.Context, inv *cmd.Invocation) error {
	mc, ok := inv.Data.(*MessageContext)
	if !ok {
		return fmt.Errorf("wrong context type %T", inv.Data)
	}
	return mc.Reply(buildFlatHelpMessage(c.Registry, c.Prefix))
}

func buildFlatHelpMessage(reg *cmd.Registry, prefix string) string {
	var sb strings.Builder
	for _, c := range reg.GetAll() {
		sb.WriteString(fmt.Sprintf("`%s%s` - %s\n", prefix, c.Name(), c.Description()))
	}
	return strings.TrimRight(sb.String(), "\n")
}
