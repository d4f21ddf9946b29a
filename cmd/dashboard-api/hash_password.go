package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/glassline/admin-dashboard/auth"
	"github.com/spf13/cobra"
)

type hashPasswordOptions struct {
	Cost int
}

func hashPasswordCmd() *cobra.Command {
	var opts hashPasswordOptions
	cmd := &cobra.Command{
		Use:          "hash-password [password]",
		SilenceUsage: true,
		Short:        "Print a bcrypt hash for a password",
		Long:         `hash-password prints the bcrypt hash of its argument, or of the first line on stdin when no argument is given.`,
		Args:         cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			hash, err := auth.NewBcryptHasher(opts.Cost).Hash(password)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
	fs := cmd.Flags()
	fs.IntVarP(&opts.Cost, "cost", "c", 12, "bcrypt cost")
	return cmd
}

func readPassword(in io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("password is required")
	}
	return password, nil
}
