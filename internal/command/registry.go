package command

import "github.com/keshon/jukebox/pkg/cmd"

// RegisterCommand applies middlewares and adds the command to the default registry.
func RegisterCommand(c cmd.Command, mws ...cmd.Middleware) {
	cmd.DefaultRegistry.Register(cmd.Apply(c, mws...))
}
