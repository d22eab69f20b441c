package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/ormbundle/pkg/acl"
)

// aclCmd represents the acl command
var aclCmd = &cobra.Command{
	Use:   "acl",
	Short: "Manage access control lists",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("error: Command 'acl' requires a subcommand (create, show, check, delete)")
		fmt.Println()
		_ = cmd.Help()
		os.Exit(1)
	},
}

func init() {
	rootCmd.AddCommand(aclCmd)
}

// newACLProvider returns the provider on the selected connection.
func newACLProvider(cmd *cobra.Command, s *session) (*acl.Provider, error) {
	conn, err := s.conns.Get(s.connectionName(cmd))
	if err != nil {
		return nil, err
	}
	return acl.NewProvider(acl.NewGormStore(conn), s.log), nil
}

// parseSecurityIdentity accepts role:<role> and user:<identifier>.
func parseSecurityIdentity(s string) (acl.SecurityIdentity, error) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return acl.SecurityIdentity{}, fmt.Errorf("invalid security identity %q, expected role:<name> or user:<identifier>", s)
	}
	switch kind {
	case "role":
		return acl.RoleIdentity(id), nil
	case "user":
		return acl.SecurityIdentity{Identifier: id, Username: true}, nil
	}
	return acl.SecurityIdentity{}, fmt.Errorf("invalid security identity kind %q", kind)
}

// parseGrant parses <sid>=<PERMISSION>[,<PERMISSION>...] into a combined mask.
func parseGrant(s string) (acl.SecurityIdentity, int32, error) {
	sidPart, perms, ok := strings.Cut(s, "=")
	if !ok || perms == "" {
		return acl.SecurityIdentity{}, 0, errors.New("invalid grant " + s + ", expected <sid>=<PERMISSION>[,...]")
	}
	sid, err := parseSecurityIdentity(sidPart)
	if err != nil {
		return acl.SecurityIdentity{}, 0, err
	}
	b := acl.NewMaskBuilder(0)
	for _, name := range strings.Split(perms, ",") {
		m, err := acl.ParseMask(strings.TrimSpace(name))
		if err != nil {
			return acl.SecurityIdentity{}, 0, err
		}
		b.Add(m)
	}
	return sid, b.Get(), nil
}
