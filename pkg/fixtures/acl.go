package fixtures

import "github.com/doodlesbykumbi/ormbundle/pkg/model"

// ACLRegistry returns a registry of the ACL tables, in dependency order:
// AclClass, AclSecurityIdentity, AclObjectIdentity and AclEntry.
func ACLRegistry() *Registry {
	return NewRegistry().
		MustRegister("AclClass", &model.AclClass{}).
		MustRegister("AclSecurityIdentity", &model.SecurityIdentity{}).
		MustRegister("AclObjectIdentity", &model.ObjectIdentity{}).
		MustRegister("AclEntry", &model.Entry{})
}
