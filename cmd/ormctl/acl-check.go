package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/ormbundle/pkg/acl"
	"github.com/doodlesbykumbi/ormbundle/pkg/audit"
)

// aclCheckCmd represents the acl check command
var aclCheckCmd = &cobra.Command{
	Use:   "check <type> <identifier> <sid> <PERMISSION>[,...]",
	Short: "Check whether a security identity holds a permission",
	Long: `Check whether a security identity holds one of the permissions on an
object. The command exits with 0 when granted, 2 when denied and 3 when no
entry applies. Decisions of auditable entries are written to the audit log
when audit is enabled.

Example:
  ormctl acl check App\\Entity\\Post 42 role:ROLE_EDITOR EDIT
  ormctl acl check App\\Entity\\Post 42 user:App-alice VIEW,EDIT --field title`,
	Args: cobra.ExactArgs(4),
	Run: func(cmd *cobra.Command, args []string) {
		field, _ := cmd.Flags().GetString("field")
		oid := acl.ObjectIdentity{Type: args[0], Identifier: args[1]}

		granted, err := checkACL(cmd, oid, args[2], args[3], field)
		switch {
		case errors.Is(err, acl.ErrNoAceFound):
			fmt.Println("No applicable entry")
			os.Exit(3)
		case err != nil:
			fail("Failed to check ACL", err)
		case granted:
			fmt.Println("Granted")
		default:
			fmt.Println("Denied")
			os.Exit(2)
		}
	},
}

func init() {
	aclCmd.AddCommand(aclCheckCmd)
	aclCheckCmd.Flags().String("field", "", "Check the entries of a field")
}

func checkACL(cmd *cobra.Command, oid acl.ObjectIdentity, sidArg, permissions, field string) (bool, error) {
	sid, err := parseSecurityIdentity(sidArg)
	if err != nil {
		return false, err
	}
	var masks []int32
	for _, name := range strings.Split(permissions, ",") {
		m, err := acl.ParseMask(strings.TrimSpace(name))
		if err != nil {
			return false, err
		}
		masks = append(masks, m)
	}

	s, err := newSession()
	if err != nil {
		return false, err
	}
	defer s.close()

	provider, err := newACLProvider(cmd, s)
	if err != nil {
		return false, err
	}
	if s.cfg.Audit {
		name := s.connectionName(cmd)
		conn, err := s.conns.Get(name)
		if err != nil {
			return false, err
		}
		ds, _ := s.cfg.Datasource(name)
		auditor, err := audit.ForConnection(conn, ds.Adapter, s.log.Named("audit"))
		if err != nil {
			return false, err
		}
		provider.SetAuditLogger(auditor)
	}

	a, err := provider.FindACL(context.Background(), oid)
	if err != nil {
		return false, err
	}
	return a.IsFieldGranted(field, masks, []acl.SecurityIdentity{sid})
}
