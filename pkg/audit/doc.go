// Package audit records the decisions of auditable access control entries.
//
// An entry audits success, failure or both. When such an entry decides an
// IsGranted call, the Auditor writes an RFC5424 line and, with a Store,
// inserts the message into acl_audit_messages:
//
//	<86>1 2024-01-01T00:00:00.000Z host ormbundle 42 acl-decision [acl@32473 ace="7" ...] GRANTED by ACE 7: ...
//
// Hand the auditor to the provider to enable it:
//
//	provider.SetAuditLogger(audit.NewAuditor(audit.NewLogger(os.Stdout), nil, log))
package audit
