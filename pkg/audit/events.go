package audit

import (
	"fmt"
	"strconv"

	"github.com/doodlesbykumbi/ormbundle/pkg/acl"
)

// DecisionEvent is the decision of one access control entry.
type DecisionEvent struct {
	ObjectIdentity   acl.ObjectIdentity
	SecurityIdentity acl.SecurityIdentity
	EntryID          int64
	Mask             int32
	Field            string
	Granted          bool
}

func (e DecisionEvent) MessageID() string {
	return "acl-decision"
}

func (e DecisionEvent) Message() string {
	verdict := "DENIED"
	if e.Granted {
		verdict = "GRANTED"
	}
	return fmt.Sprintf("%s by ACE %d: %s on %s", verdict, e.EntryID, e.SecurityIdentity, e.ObjectIdentity)
}

func (e DecisionEvent) Severity() Severity {
	if e.Granted {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e DecisionEvent) Facility() int {
	return FacilityAuthPriv
}

func (e DecisionEvent) StructuredData() map[string]map[string]string {
	result := "success"
	if !e.Granted {
		result = "failure"
	}
	sd := map[string]map[string]string{
		SDIDACL: {
			"ace":  strconv.FormatInt(e.EntryID, 10),
			"mask": acl.NewMaskBuilder(e.Mask).Pattern(),
			"sid":  e.SecurityIdentity.Identifier,
		},
		SDIDSubject: {
			"type":       e.ObjectIdentity.Type,
			"identifier": e.ObjectIdentity.Identifier,
		},
		SDIDAction: {
			"operation": "decide",
			"result":    result,
		},
	}
	if e.Field != "" {
		sd[SDIDSubject]["field"] = e.Field
	}
	return sd
}
