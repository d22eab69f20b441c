package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cucumber/godog"

	"github.com/doodlesbykumbi/ormbundle/pkg/acl"
	"github.com/doodlesbykumbi/ormbundle/pkg/fixtures"
	"github.com/doodlesbykumbi/ormbundle/pkg/logger"
)

// StepsContext holds state shared between step definitions
type StepsContext struct {
	tc           *TestContext
	serverURL    string
	server       *ServerInstance // scenario-specific server, if any
	response     *http.Response
	responseBody []byte
	lastErr      error
	debugToken   string
}

// NewStepsContext creates a new steps context
func NewStepsContext(tc *TestContext) *StepsContext {
	return &StepsContext{tc: tc, serverURL: tc.ServerURL}
}

// RegisterSteps registers all step definitions
func (s *StepsContext) RegisterSteps(sc *godog.ScenarioContext) {
	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		return ctx, s.tc.Reset()
	})
	sc.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		if s.server != nil {
			s.server.Stop()
		}
		return ctx, nil
	})

	// Background steps
	sc.Step(`^an ORM server is running$`, s.anORMServerIsRunning)
	sc.Step(`^an ORM server is running with profiler store "([^"]*)"$`, s.anORMServerIsRunningWithProfilerStore)

	// ACL steps
	sc.Step(`^I create an ACL for "([^"]*)" "([^"]*)"$`, s.iCreateAnACLFor)
	sc.Step(`^I create an ACL for "([^"]*)" "([^"]*)" with parent "([^"]*)" "([^"]*)"$`, s.iCreateAnACLWithParent)
	sc.Step(`^"([^"]*)" is granted "([^"]*)" on "([^"]*)" "([^"]*)"$`, s.isGrantedOn)
	sc.Step(`^"([^"]*)" is granted "([^"]*)" on class "([^"]*)" through "([^"]*)"$`, s.isGrantedOnClass)
	sc.Step(`^I revoke entry (\d+) of "([^"]*)" "([^"]*)"$`, s.iRevokeEntry)
	sc.Step(`^I delete the ACL for "([^"]*)" "([^"]*)"$`, s.iDeleteTheACLFor)
	sc.Step(`^the operation should succeed$`, s.theOperationShouldSucceed)
	sc.Step(`^the operation should fail with "([^"]*)"$`, s.theOperationShouldFailWith)
	sc.Step(`^the ACL for "([^"]*)" "([^"]*)" should not exist$`, s.theACLShouldNotExist)
	sc.Step(`^"([^"]*)" should be granted "([^"]*)" on "([^"]*)" "([^"]*)"$`, s.shouldBeGranted)
	sc.Step(`^"([^"]*)" should not be granted "([^"]*)" on "([^"]*)" "([^"]*)"$`, s.shouldNotBeGranted)

	// Fixture steps
	sc.Step(`^I load the following fixtures:$`, s.iLoadTheFollowingFixtures)
	sc.Step(`^the table "([^"]*)" should have (\d+) rows?$`, s.theTableShouldHaveRows)

	// HTTP steps
	sc.Step(`^I request "([^"]*)"$`, s.iRequest)
	sc.Step(`^I request the ACL for "([^"]*)" "([^"]*)"$`, s.iRequestTheACLFor)
	sc.Step(`^I request the ACL for "([^"]*)" "([^"]*)" with query "([^"]*)"$`, s.iRequestTheACLWithQuery)
	sc.Step(`^I open the profiler panel "([^"]*)" of the last request$`, s.iOpenTheProfilerPanel)
	sc.Step(`^the response status should be (\d+)$`, s.theResponseStatusShouldBe)
	sc.Step(`^the response JSON at "([^"]*)" should be "([^"]*)"$`, s.theResponseJSONAtShouldBe)
	sc.Step(`^the response should have a debug token$`, s.theResponseShouldHaveADebugToken)
	sc.Step(`^the response body should contain "([^"]*)"$`, s.theResponseBodyShouldContain)
	sc.Step(`^the response body should not contain "([^"]*)"$`, s.theResponseBodyShouldNotContain)
}

// Background steps

func (s *StepsContext) anORMServerIsRunning() error {
	// Server is already running via TestContext
	return nil
}

func (s *StepsContext) anORMServerIsRunningWithProfilerStore(store string) error {
	server, err := StartServer(s.tc, ServerConfig{ProfilerStore: store})
	if err != nil {
		return err
	}
	s.server = server
	s.serverURL = server.ServerURL
	return nil
}

// ACL steps

func oid(typ, identifier string) acl.ObjectIdentity {
	return acl.ObjectIdentity{Type: typ, Identifier: identifier}
}

func (s *StepsContext) iCreateAnACLFor(typ, identifier string) error {
	_, s.lastErr = s.tc.ACL.CreateACL(context.Background(), oid(typ, identifier))
	return nil
}

func (s *StepsContext) iCreateAnACLWithParent(typ, identifier, parentType, parentIdentifier string) error {
	ctx := context.Background()
	parent, err := s.tc.ACL.FindACL(ctx, oid(parentType, parentIdentifier))
	if err != nil {
		return fmt.Errorf("parent: %w", err)
	}
	a, err := s.tc.ACL.CreateACL(ctx, oid(typ, identifier))
	if err != nil {
		s.lastErr = err
		return nil
	}
	if err := a.SetParent(parent); err != nil {
		return err
	}
	s.lastErr = s.tc.ACL.UpdateACL(ctx, a)
	return nil
}

func parseSID(sid string) (acl.SecurityIdentity, error) {
	kind, id, ok := strings.Cut(sid, ":")
	if !ok {
		return acl.SecurityIdentity{}, fmt.Errorf("invalid security identity %q", sid)
	}
	if kind == "user" {
		return acl.SecurityIdentity{Identifier: id, Username: true}, nil
	}
	return acl.RoleIdentity(id), nil
}

func parseMasks(permissions string) ([]int32, error) {
	var masks []int32
	for _, name := range strings.Split(permissions, ",") {
		m, err := acl.ParseMask(strings.TrimSpace(name))
		if err != nil {
			return nil, err
		}
		masks = append(masks, m)
	}
	return masks, nil
}

func combine(masks []int32) int32 {
	b := acl.NewMaskBuilder(0)
	for _, m := range masks {
		b.Add(m)
	}
	return b.Get()
}

func (s *StepsContext) isGrantedOn(sid, permissions, typ, identifier string) error {
	return s.grant(sid, permissions, oid(typ, identifier), acl.ObjectScope)
}

func (s *StepsContext) isGrantedOnClass(sid, permissions, typ, identifier string) error {
	return s.grant(sid, permissions, oid(typ, identifier), acl.ClassScope)
}

func (s *StepsContext) grant(sid, permissions string, o acl.ObjectIdentity, scope acl.Scope) error {
	ctx := context.Background()
	identity, err := parseSID(sid)
	if err != nil {
		return err
	}
	masks, err := parseMasks(permissions)
	if err != nil {
		return err
	}
	a, err := s.tc.ACL.FindACL(ctx, o)
	if err != nil {
		return err
	}
	e := acl.NewEntry(identity, combine(masks), true)
	if err := a.Insert(scope, "", len(a.Entries(scope, "")), e); err != nil {
		return err
	}
	return s.tc.ACL.UpdateACL(ctx, a)
}

func (s *StepsContext) iRevokeEntry(index int, typ, identifier string) error {
	ctx := context.Background()
	a, err := s.tc.ACL.FindACL(ctx, oid(typ, identifier))
	if err != nil {
		return err
	}
	if err := a.Delete(acl.ObjectScope, "", index); err != nil {
		return err
	}
	s.lastErr = s.tc.ACL.UpdateACL(ctx, a)
	return nil
}

func (s *StepsContext) iDeleteTheACLFor(typ, identifier string) error {
	s.lastErr = s.tc.ACL.DeleteACL(context.Background(), oid(typ, identifier))
	return nil
}

func (s *StepsContext) theOperationShouldSucceed() error {
	if s.lastErr != nil {
		return fmt.Errorf("expected success, got %v", s.lastErr)
	}
	return nil
}

func (s *StepsContext) theOperationShouldFailWith(message string) error {
	if s.lastErr == nil {
		return fmt.Errorf("expected an error containing %q", message)
	}
	if !strings.Contains(s.lastErr.Error(), message) {
		return fmt.Errorf("expected an error containing %q, got %v", message, s.lastErr)
	}
	return nil
}

func (s *StepsContext) theACLShouldNotExist(typ, identifier string) error {
	_, err := s.tc.ACL.FindACL(context.Background(), oid(typ, identifier))
	if !errors.Is(err, acl.ErrAclNotFound) {
		return fmt.Errorf("expected ErrAclNotFound, got %v", err)
	}
	return nil
}

func (s *StepsContext) isGranted(sid, permissions, typ, identifier string) (bool, error) {
	identity, err := parseSID(sid)
	if err != nil {
		return false, err
	}
	masks, err := parseMasks(permissions)
	if err != nil {
		return false, err
	}
	a, err := s.tc.ACL.FindACL(context.Background(), oid(typ, identifier))
	if err != nil {
		return false, err
	}
	granted, err := a.IsGranted(masks, []acl.SecurityIdentity{identity})
	if errors.Is(err, acl.ErrNoAceFound) {
		return false, nil
	}
	return granted, err
}

func (s *StepsContext) shouldBeGranted(sid, permissions, typ, identifier string) error {
	granted, err := s.isGranted(sid, permissions, typ, identifier)
	if err != nil {
		return err
	}
	if !granted {
		return fmt.Errorf("%s is not granted %s on %s %s", sid, permissions, typ, identifier)
	}
	return nil
}

func (s *StepsContext) shouldNotBeGranted(sid, permissions, typ, identifier string) error {
	granted, err := s.isGranted(sid, permissions, typ, identifier)
	if err != nil {
		return err
	}
	if granted {
		return fmt.Errorf("%s is granted %s on %s %s", sid, permissions, typ, identifier)
	}
	return nil
}

// Fixture steps

// iLoadTheFollowingFixtures loads the fixtures with "ormctl fixtures load" in
// binary mode, or with the loader in inline mode.
func (s *StepsContext) iLoadTheFollowingFixtures(doc *godog.DocString) error {
	if s.tc.InlineMode {
		d, err := fixtures.Parse(strings.NewReader(doc.Content), "scenario.yml")
		if err != nil {
			return err
		}
		loader := fixtures.NewLoader(s.tc.DB, fixtures.ACLRegistry(), nil)
		_, s.lastErr = loader.Load(context.Background(), d)
		return nil
	}

	file := filepath.Join(os.TempDir(), fmt.Sprintf("ormbundle-fixtures-%d.yml", os.Getpid()))
	if err := os.WriteFile(file, []byte(doc.Content), 0o600); err != nil {
		return err
	}
	defer func() { _ = os.Remove(file) }()

	out, err := s.tc.runBinary("fixtures", "load", file)
	if err != nil {
		s.lastErr = fmt.Errorf("%w: %s", err, out)
		return nil
	}
	s.lastErr = nil
	return nil
}

func (s *StepsContext) theTableShouldHaveRows(table string, expected int) error {
	var count int64
	if err := s.tc.DB.Table(table).Count(&count).Error; err != nil {
		return err
	}
	if count != int64(expected) {
		return fmt.Errorf("expected %d rows in %s, got %d", expected, table, count)
	}
	return nil
}

// HTTP steps

func (s *StepsContext) doRequest(path string) error {
	req, err := http.NewRequest(http.MethodGet, s.serverURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.tc.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	s.response = resp
	s.responseBody, err = io.ReadAll(resp.Body)
	if token := resp.Header.Get(logger.TokenHeader); token != "" {
		s.debugToken = token
	}
	return err
}

func (s *StepsContext) iRequest(path string) error {
	return s.doRequest(path)
}

func aclPath(typ, identifier string) string {
	return "/acl/" + url.PathEscape(typ) + "/" + url.PathEscape(identifier)
}

func (s *StepsContext) iRequestTheACLFor(typ, identifier string) error {
	return s.doRequest(aclPath(typ, identifier))
}

func (s *StepsContext) iRequestTheACLWithQuery(typ, identifier, query string) error {
	return s.doRequest(aclPath(typ, identifier) + "?" + query)
}

func (s *StepsContext) iOpenTheProfilerPanel(panel string) error {
	if s.debugToken == "" {
		return fmt.Errorf("no debug token was returned")
	}
	return s.doRequest("/_profiler/" + s.debugToken + "/" + panel)
}

func (s *StepsContext) theResponseStatusShouldBe(expectedStatus int) error {
	if s.response.StatusCode != expectedStatus {
		return fmt.Errorf("expected status %d, got %d: %s", expectedStatus, s.response.StatusCode, string(s.responseBody))
	}
	return nil
}

func (s *StepsContext) theResponseShouldHaveADebugToken() error {
	if s.response.Header.Get(logger.TokenHeader) == "" {
		return fmt.Errorf("missing %s header", logger.TokenHeader)
	}
	return nil
}

func (s *StepsContext) theResponseBodyShouldContain(expected string) error {
	if !strings.Contains(string(s.responseBody), expected) {
		return fmt.Errorf("expected body to contain %q, got %s", expected, string(s.responseBody))
	}
	return nil
}

func (s *StepsContext) theResponseBodyShouldNotContain(unexpected string) error {
	if strings.Contains(string(s.responseBody), unexpected) {
		return fmt.Errorf("expected body not to contain %q, got %s", unexpected, string(s.responseBody))
	}
	return nil
}

// theResponseJSONAtShouldBe compares the value at a dotted path such as
// "object_aces.0.pattern" with expected.
func (s *StepsContext) theResponseJSONAtShouldBe(path, expected string) error {
	var body interface{}
	if err := json.Unmarshal(s.responseBody, &body); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	v, err := lookup(body, path)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(v); got != expected {
		return fmt.Errorf("expected %s to be %q, got %q", path, expected, got)
	}
	return nil
}

func lookup(v interface{}, path string) (interface{}, error) {
	for _, key := range strings.Split(path, ".") {
		switch node := v.(type) {
		case map[string]interface{}:
			next, ok := node[key]
			if !ok {
				return nil, fmt.Errorf("key %q not found in %s", key, path)
			}
			v = next
		case []interface{}:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("index %q out of range in %s", key, path)
			}
			v = node[i]
		default:
			return nil, fmt.Errorf("cannot descend into %s at %q", path, key)
		}
	}
	return v, nil
}
