package endpoints

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/doodlesbykumbi/ormbundle/pkg/acl"
	"github.com/doodlesbykumbi/ormbundle/pkg/server"
)

// EntryView is the JSON form of an access control entry
type EntryView struct {
	ID               int64                `json:"id"`
	SecurityIdentity acl.SecurityIdentity `json:"security_identity"`
	Mask             int32                `json:"mask"`
	Pattern          string               `json:"pattern"`
	Granting         bool                 `json:"granting"`
	Strategy         acl.Strategy         `json:"strategy"`
	AuditSuccess     *bool                `json:"audit_success,omitempty"`
	AuditFailure     *bool                `json:"audit_failure,omitempty"`
}

// ACLView is the JSON form of an ACL
type ACLView struct {
	ID                int64                  `json:"id"`
	ObjectIdentity    acl.ObjectIdentity     `json:"object_identity"`
	Parent            *acl.ObjectIdentity    `json:"parent"`
	EntriesInheriting bool                   `json:"entries_inheriting"`
	ClassACEs         []EntryView            `json:"class_aces"`
	ObjectACEs        []EntryView            `json:"object_aces"`
	ClassFieldACEs    map[string][]EntryView `json:"class_field_aces,omitempty"`
	ObjectFieldACEs   map[string][]EntryView `json:"object_field_aces,omitempty"`
	// Granted is set when permissions and security identities are queried
	Granted *bool `json:"granted,omitempty"`
}

// RegisterACLEndpoints registers the ACL endpoints
func RegisterACLEndpoints(s *server.Server) {
	// GET /acl/{type}/{identifier}[?permission=VIEW,EDIT&sid=role:ROLE_ADMIN&sid=user:App-alice&field=title]
	s.Router.HandleFunc("/acl/{type}/{identifier:.+}", handleGetACL(s.ACL, s.Log)).Methods("GET")
}

func handleGetACL(provider *acl.Provider, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		typ, err := url.PathUnescape(vars["type"])
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid type")
			return
		}
		identifier, err := url.PathUnescape(vars["identifier"])
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid identifier")
			return
		}
		oid := acl.ObjectIdentity{Type: typ, Identifier: identifier}

		query := r.URL.Query()
		masks, err := parseMasks(query["permission"])
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		sids, err := parseSecurityIdentities(query["sid"])
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}

		a, err := provider.FindACL(r.Context(), oid)
		if errors.Is(err, acl.ErrAclNotFound) {
			respondWithError(w, http.StatusNotFound, "No ACL found for "+oid.String())
			return
		}
		if err != nil {
			log.Error("Failed to load ACL", zap.Stringer("oid", oid), zap.Error(err))
			respondWithError(w, http.StatusInternalServerError, "failed to load ACL")
			return
		}

		view := NewACLView(a)
		if len(masks) > 0 && len(sids) > 0 {
			granted, err := a.IsFieldGranted(query.Get("field"), masks, sids)
			if err != nil && !errors.Is(err, acl.ErrNoAceFound) {
				respondWithError(w, http.StatusInternalServerError, err.Error())
				return
			}
			view.Granted = &granted
		}
		respondWithJSON(w, http.StatusOK, view)
	}
}

// parseMasks accepts permission names, repeated or comma separated
func parseMasks(values []string) ([]int32, error) {
	var masks []int32
	for _, v := range values {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name == "" {
				continue
			}
			m, err := acl.ParseMask(name)
			if err != nil {
				return nil, err
			}
			masks = append(masks, m)
		}
	}
	return masks, nil
}

// parseSecurityIdentities accepts role:<role> and user:<identifier>
func parseSecurityIdentities(values []string) ([]acl.SecurityIdentity, error) {
	var sids []acl.SecurityIdentity
	for _, v := range values {
		kind, id, ok := strings.Cut(v, ":")
		if !ok || id == "" {
			return nil, errors.New("invalid security identity " + v + ", expected role:<name> or user:<identifier>")
		}
		switch kind {
		case "role":
			sids = append(sids, acl.RoleIdentity(id))
		case "user":
			sids = append(sids, acl.SecurityIdentity{Identifier: id, Username: true})
		default:
			return nil, errors.New("invalid security identity kind " + kind)
		}
	}
	return sids, nil
}

// NewACLView returns the JSON form of a.
func NewACLView(a *acl.ACL) ACLView {
	view := ACLView{
		ID:                a.ID(),
		ObjectIdentity:    a.ObjectIdentity(),
		EntriesInheriting: a.IsEntriesInheriting(),
		ClassACEs:         entryViews(a.ClassACEs()),
		ObjectACEs:        entryViews(a.ObjectACEs()),
	}
	if parent := a.Parent(); parent != nil {
		oid := parent.ObjectIdentity()
		view.Parent = &oid
	}
	for _, field := range a.Fields() {
		if entries := a.ClassFieldACEs(field); len(entries) > 0 {
			if view.ClassFieldACEs == nil {
				view.ClassFieldACEs = map[string][]EntryView{}
			}
			view.ClassFieldACEs[field] = entryViews(entries)
		}
		if entries := a.ObjectFieldACEs(field); len(entries) > 0 {
			if view.ObjectFieldACEs == nil {
				view.ObjectFieldACEs = map[string][]EntryView{}
			}
			view.ObjectFieldACEs[field] = entryViews(entries)
		}
	}
	return view
}

func entryViews(entries []*acl.Entry) []EntryView {
	views := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, EntryView{
			ID:               e.ID,
			SecurityIdentity: e.SecurityIdentity,
			Mask:             e.Mask,
			Pattern:          acl.NewMaskBuilder(e.Mask).Pattern(),
			Granting:         e.Granting,
			Strategy:         e.Strategy,
			AuditSuccess:     e.AuditSuccess,
			AuditFailure:     e.AuditFailure,
		})
	}
	return views
}
