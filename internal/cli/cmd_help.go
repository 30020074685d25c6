package cli

import (
	"context"
	"fmt"
)

func (s *Session) helpCmd() *Command {
	return &Command{
		Flags: newFlags("help"),
		Usage: "help [command]",
		Short: "Show commands, or help for one command",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if len(args) == 1 {
				cmd := s.lookup(args[0])
				if cmd == nil {
					return fmt.Errorf("%w: %s", errUnknownCommand, args[0])
				}

				cmd.PrintHelp(o)

				return nil
			}

			o.Println("Commands:")

			for _, cmd := range s.commands() {
				o.Println(cmd.HelpLine())
			}

			o.Println()
			o.Println("Run '<command> --help' for flags.")

			return nil
		},
	}
}

func (s *Session) exitCmd() *Command {
	return &Command{
		Flags: newFlags("exit"),
		Usage: "exit",
		Short: "Leave the shell (also: quit, q)",
		Exec: func(context.Context, *IO, []string) error {
			return errExit
		},
	}
}
