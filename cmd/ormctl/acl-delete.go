package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/ormbundle/pkg/acl"
)

// aclDeleteCmd represents the acl delete command
var aclDeleteCmd = &cobra.Command{
	Use:   "delete <type> <identifier>",
	Short: "Delete an ACL, its children and their entries",
	Long: `Delete the ACL of an object identity together with its descendants and
their entries. Deleting an ACL that does not exist succeeds.

Example:
  ormctl acl delete App\\Entity\\Post 42`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		oid := acl.ObjectIdentity{Type: args[0], Identifier: args[1]}
		if err := deleteACL(cmd, oid); err != nil {
			fail("Failed to delete ACL", err)
		}
		fmt.Printf("Deleted ACL for %s\n", oid)
	},
}

func init() {
	aclCmd.AddCommand(aclDeleteCmd)
}

func deleteACL(cmd *cobra.Command, oid acl.ObjectIdentity) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	provider, err := newACLProvider(cmd, s)
	if err != nil {
		return err
	}
	return provider.DeleteACL(context.Background(), oid)
}
