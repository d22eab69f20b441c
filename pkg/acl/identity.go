package acl

import "fmt"

// ObjectIdentity identifies a protected domain object.
type ObjectIdentity struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

// ClassIdentity returns the identity used for class-wide ACLs of a type.
func ClassIdentity(typ string) ObjectIdentity {
	return ObjectIdentity{Type: typ, Identifier: "class"}
}

func (o ObjectIdentity) String() string {
	return fmt.Sprintf("ObjectIdentity(%s, %s)", o.Identifier, o.Type)
}

// SecurityIdentity is a principal an entry grants or denies permissions to.
type SecurityIdentity struct {
	Identifier string `json:"identifier"`
	Username   bool   `json:"username"`
}

// UserIdentity returns the security identity of a user of the given class.
func UserIdentity(class, username string) SecurityIdentity {
	return SecurityIdentity{Identifier: class + "-" + username, Username: true}
}

// RoleIdentity returns the security identity of a role.
func RoleIdentity(role string) SecurityIdentity {
	return SecurityIdentity{Identifier: role}
}

func (s SecurityIdentity) String() string {
	if s.Username {
		return "UserSecurityIdentity(" + s.Identifier + ")"
	}
	return "RoleSecurityIdentity(" + s.Identifier + ")"
}
