package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/ormbundle/pkg/acl"
)

// aclCreateCmd represents the acl create command
var aclCreateCmd = &cobra.Command{
	Use:   "create <type> <identifier>",
	Short: "Create an ACL, optionally with a parent and object entries",
	Long: `Create the ACL of an object identity.

Use "class" as identifier for the class-wide ACL of a type. Each --grant adds
a granting object entry; --parent sets the parent ACL, which must exist.

Example:
  ormctl acl create App\\Entity\\Post 42
  ormctl acl create App\\Entity\\Post 42 --parent App\\Entity\\Blog/1 \
    --grant role:ROLE_EDITOR=VIEW,EDIT --grant user:App-alice=OWNER`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		parent, _ := cmd.Flags().GetString("parent")
		grants, _ := cmd.Flags().GetStringArray("grant")
		noInherit, _ := cmd.Flags().GetBool("no-inherit")

		oid := acl.ObjectIdentity{Type: args[0], Identifier: args[1]}
		if err := createACL(cmd, oid, parent, grants, !noInherit); err != nil {
			fail("Failed to create ACL", err)
		}
		fmt.Printf("Created ACL for %s\n", oid)
	},
}

func init() {
	aclCmd.AddCommand(aclCreateCmd)
	aclCreateCmd.Flags().String("parent", "", "Parent object identity as <type>/<identifier>")
	aclCreateCmd.Flags().StringArray("grant", nil, "Object entry as <sid>=<PERMISSION>[,...], sid is role:<name> or user:<identifier>")
	aclCreateCmd.Flags().Bool("no-inherit", false, "Do not inherit the parent's entries")
}

func createACL(cmd *cobra.Command, oid acl.ObjectIdentity, parent string, grants []string, inheriting bool) error {
	type grant struct {
		sid  acl.SecurityIdentity
		mask int32
	}
	parsed := make([]grant, 0, len(grants))
	for _, g := range grants {
		sid, mask, err := parseGrant(g)
		if err != nil {
			return err
		}
		parsed = append(parsed, grant{sid, mask})
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	provider, err := newACLProvider(cmd, s)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := provider.CreateACL(ctx, oid)
	if err != nil {
		return err
	}
	if parent == "" && len(parsed) == 0 && inheriting {
		return nil
	}

	if parent != "" {
		typ, id, ok := strings.Cut(parent, "/")
		if !ok || typ == "" || id == "" {
			return fmt.Errorf("invalid parent %q, expected <type>/<identifier>", parent)
		}
		p, err := provider.FindACL(ctx, acl.ObjectIdentity{Type: typ, Identifier: id})
		if err != nil {
			return fmt.Errorf("parent: %w", err)
		}
		if err := a.SetParent(p); err != nil {
			return err
		}
	}
	a.SetEntriesInheriting(inheriting)
	for _, g := range parsed {
		if err := a.InsertObjectACE(len(a.ObjectACEs()), g.sid, g.mask, true); err != nil {
			return err
		}
	}
	return provider.UpdateACL(ctx, a)
}
