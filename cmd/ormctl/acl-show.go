package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/ormbundle/pkg/acl"
	"github.com/doodlesbykumbi/ormbundle/pkg/server/endpoints"
)

// aclShowCmd represents the acl show command
var aclShowCmd = &cobra.Command{
	Use:   "show <type> <identifier>",
	Short: "Show an ACL and its entries",
	Long: `Show the ACL of an object identity with its class, object and field
entries. Each mask is printed with its permission pattern.

Example:
  ormctl acl show App\\Entity\\Post 42
  ormctl acl show App\\Entity\\Post class --output json`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")
		oid := acl.ObjectIdentity{Type: args[0], Identifier: args[1]}
		if err := showACL(cmd, oid, output); err != nil {
			fail("Failed to show ACL", err)
		}
	},
}

func init() {
	aclCmd.AddCommand(aclShowCmd)
	aclShowCmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
}

func showACL(cmd *cobra.Command, oid acl.ObjectIdentity, output string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	defer s.close()

	provider, err := newACLProvider(cmd, s)
	if err != nil {
		return err
	}
	a, err := provider.FindACL(context.Background(), oid)
	if err != nil {
		return err
	}

	if output == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(endpoints.NewACLView(a))
	}
	return writeACL(os.Stdout, a)
}

func writeACL(out io.Writer, a *acl.ACL) error {
	fmt.Fprintf(out, "ACL %d: %s\n", a.ID(), a.ObjectIdentity())
	if p := a.Parent(); p != nil {
		fmt.Fprintf(out, "Parent: %s\n", p.ObjectIdentity())
	}
	fmt.Fprintf(out, "Entries inheriting: %v\n", a.IsEntriesInheriting())

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\nSCOPE\tFIELD\t#\tSECURITY IDENTITY\tMASK\tPATTERN\tGRANTING\tSTRATEGY")
	write := func(scope acl.Scope, field string, entries []*acl.Entry) {
		for i, e := range entries {
			f := field
			if f == "" {
				f = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%s\t%v\t%s\n",
				scope, f, i, e.SecurityIdentity, e.Mask, acl.NewMaskBuilder(e.Mask).Pattern(), e.Granting, e.Strategy)
		}
	}
	write(acl.ClassScope, "", a.ClassACEs())
	write(acl.ObjectScope, "", a.ObjectACEs())
	for _, field := range a.Fields() {
		write(acl.ClassScope, field, a.ClassFieldACEs(field))
		write(acl.ObjectScope, field, a.ObjectFieldACEs(field))
	}
	return w.Flush()
}
