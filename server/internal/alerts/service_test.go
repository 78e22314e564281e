package alerts

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/obsidianstack/synthetics/pkg/types"
	"github.com/obsidianstack/synthetics/server/internal/connectors"
	"github.com/obsidianstack/synthetics/server/internal/rules"
	"github.com/obsidianstack/synthetics/server/internal/settings"
)

// --- test doubles -----------------------------------------------------------

// plainRegistry wraps a Memory registry without exposing CreateIfAbsent, so
// the service takes the find-then-create path. Errors can be injected per
// rule-type id.
type plainRegistry struct {
	mem *rules.Memory

	mu        sync.Mutex
	creates   int
	updates   int
	finds     int
	findErr   map[string]error
	createErr map[string]error
}

func newPlainRegistry() *plainRegistry {
	return &plainRegistry{
		mem:       rules.NewMemory(),
		findErr:   map[string]error{},
		createErr: map[string]error{},
	}
}

func (p *plainRegistry) Find(ctx context.Context, opts rules.FindOptions) (*rules.FindResult, error) {
	p.mu.Lock()
	p.finds++
	err := p.findErr[opts.RuleTypeID]
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return p.mem.Find(ctx, opts)
}

func (p *plainRegistry) Get(ctx context.Context, id string) (*types.Rule, error) {
	return p.mem.Get(ctx, id)
}

func (p *plainRegistry) Create(ctx context.Context, def rules.Definition) (*types.Rule, error) {
	p.mu.Lock()
	p.creates++
	err := p.createErr[def.RuleTypeID]
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return p.mem.Create(ctx, def)
}

func (p *plainRegistry) Update(ctx context.Context, id string, patch rules.Patch) (*types.Rule, error) {
	p.mu.Lock()
	p.updates++
	p.mu.Unlock()
	return p.mem.Update(ctx, id, patch)
}

type failingConnectors struct{ err error }

func (f failingConnectors) GetAll(context.Context) ([]types.Connector, error) { return nil, f.err }

type failingSettings struct{ err error }

func (f failingSettings) Get(context.Context) (*types.Settings, error) { return nil, f.err }

type capturePublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (c *capturePublisher) Publish(subject string, _ any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subjects = append(c.subjects, subject)
	return nil
}

// --- helpers ----------------------------------------------------------------

var testConnectors = []types.Connector{
	{ID: "mail", ConnectorTypeID: types.ConnectorEmail, Name: "Ops mail"},
	{ID: "chat", ConnectorTypeID: types.ConnectorSlack, Name: "Ops chat"},
	{ID: "pager", ConnectorTypeID: types.ConnectorPagerDuty, Name: "Pager"},
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(r rules.Registry, c connectors.Registry, st settings.Store, opts ...Option) *Service {
	return NewService(r, c, st, append([]Option{WithLogger(quietLogger())}, opts...)...)
}

func defaultSettings() *types.Settings {
	return &types.Settings{
		DefaultConnectors: []string{"chat", "mail"},
		DefaultEmail:      &types.DefaultEmail{To: []string{"oncall@example.com"}},
	}
}

// --- create -----------------------------------------------------------------

func TestCreateDefaultAlertIfNotExist_Idempotent(t *testing.T) {
	for _, kind := range types.Kinds() {
		reg := newPlainRegistry()
		svc := newService(reg, connectors.NewStatic(testConnectors), settings.NewStatic(defaultSettings()))

		first, err := svc.CreateDefaultAlertIfNotExist(context.Background(), kind, kind.DefaultName(), kind.DefaultInterval())
		if err != nil {
			t.Fatalf("%s first create: %v", kind.Label(), err)
		}
		second, err := svc.CreateDefaultAlertIfNotExist(context.Background(), kind, kind.DefaultName(), kind.DefaultInterval())
		if err != nil {
			t.Fatalf("%s second create: %v", kind.Label(), err)
		}

		if reg.creates != 1 {
			t.Errorf("%s creates: got %d, want 1", kind.Label(), reg.creates)
		}
		if first.ID != second.ID {
			t.Errorf("%s ids: got %q and %q, want equal", kind.Label(), first.ID, second.ID)
		}
		if reg.mem.Count() != 1 {
			t.Errorf("%s stored rules: got %d, want 1", kind.Label(), reg.mem.Count())
		}
	}
}

func TestCreateDefaultAlertIfNotExist_RuleShape(t *testing.T) {
	reg := newPlainRegistry()
	svc := newService(reg, connectors.NewStatic(testConnectors), settings.NewStatic(defaultSettings()))

	r, err := svc.CreateDefaultAlertIfNotExist(context.Background(), types.KindStatus, "custom name", "5m")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.RuleTypeID != string(types.KindStatus) {
		t.Errorf("RuleTypeID: got %q", r.RuleTypeID)
	}
	if r.Name != "custom name" || r.Schedule.Interval != "5m" {
		t.Errorf("name/interval: got %q/%q", r.Name, r.Schedule.Interval)
	}
	if r.Consumer != types.Consumer {
		t.Errorf("Consumer: got %q, want %q", r.Consumer, types.Consumer)
	}
	if len(r.Tags) != 1 || r.Tags[0] != types.DefaultAlertTag {
		t.Errorf("Tags: got %v", r.Tags)
	}
	if !r.Enabled {
		t.Error("Enabled: got false, want true")
	}
	if r.Throttle != nil {
		t.Errorf("Throttle: got %v, want nil", *r.Throttle)
	}
	if len(r.Params) != 0 {
		t.Errorf("Params: got %v, want empty", r.Params)
	}
	if len(r.Actions) != 2 {
		t.Errorf("Actions: got %d, want 2", len(r.Actions))
	}
}

func TestCreateDefaultAlertIfNotExist_ExistingUnchanged(t *testing.T) {
	reg := newPlainRegistry()
	st := settings.NewStatic(defaultSettings())
	svc := newService(reg, connectors.NewStatic(testConnectors), st)

	if _, err := svc.CreateDefaultAlertIfNotExist(context.Background(), types.KindTLS, "tls", "10m"); err != nil {
		t.Fatal(err)
	}
	// Different settings must not touch the existing rule on the create path.
	st.Put(context.Background(), &types.Settings{}) //nolint:errcheck
	r, err := svc.CreateDefaultAlertIfNotExist(context.Background(), types.KindTLS, "other", "1h")
	if err != nil {
		t.Fatal(err)
	}
	if r.Name != "tls" || r.Schedule.Interval != "10m" || len(r.Actions) != 2 {
		t.Errorf("existing rule changed: %+v", r)
	}
	if reg.updates != 0 {
		t.Errorf("updates: got %d, want 0", reg.updates)
	}
}

func TestCreateDefaultAlertIfNotExist_AtomicRegistry(t *testing.T) {
	mem := rules.NewMemory()
	svc := newService(mem, connectors.NewStatic(testConnectors), settings.NewStatic(defaultSettings()))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.SetupDefaultAlerts(context.Background()); err != nil {
				t.Errorf("SetupDefaultAlerts: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := mem.Count(); n != 2 {
		t.Errorf("stored rules after concurrent setups: got %d, want 2", n)
	}
}

func TestCreateDefaultAlertIfNotExist_CreateError(t *testing.T) {
	reg := newPlainRegistry()
	boom := errors.New("registry unavailable")
	reg.createErr[string(types.KindStatus)] = boom
	svc := newService(reg, connectors.NewStatic(nil), settings.NewStatic(nil))

	_, err := svc.CreateDefaultAlertIfNotExist(context.Background(), types.KindStatus, "n", "1m")
	if !errors.Is(err, boom) {
		t.Errorf("err: got %v, want wrapping %v", err, boom)
	}
}

// --- lookup -----------------------------------------------------------------

func TestGetExistingAlert_None(t *testing.T) {
	svc := newService(newPlainRegistry(), connectors.NewStatic(nil), settings.NewStatic(nil))
	r, err := svc.GetExistingAlert(context.Background(), types.KindStatus)
	if err != nil {
		t.Fatalf("GetExistingAlert: %v", err)
	}
	if r != nil {
		t.Errorf("rule: got %+v, want nil", r)
	}
}

func TestGetExistingAlert_Ambiguous(t *testing.T) {
	reg := newPlainRegistry()
	for i := 0; i < 2; i++ {
		if _, err := reg.mem.Create(context.Background(), rules.Definition{
			RuleTypeID: string(types.KindTLS),
			Name:       "user tls rule",
		}); err != nil {
			t.Fatal(err)
		}
	}
	svc := newService(reg, connectors.NewStatic(nil), settings.NewStatic(nil))

	_, err := svc.GetExistingAlert(context.Background(), types.KindTLS)
	if !errors.Is(err, ErrAmbiguousRuleState) {
		t.Fatalf("err: got %v, want ErrAmbiguousRuleState", err)
	}
	var amb *AmbiguousRuleStateError
	if !errors.As(err, &amb) {
		t.Fatalf("err: got %T, want *AmbiguousRuleStateError", err)
	}
	if amb.Count != 2 || amb.Kind != types.KindTLS {
		t.Errorf("AmbiguousRuleStateError: got %+v", amb)
	}

	// The create path must not add a third rule.
	if _, err := svc.CreateDefaultAlertIfNotExist(context.Background(), types.KindTLS, "n", "10m"); !errors.Is(err, ErrAmbiguousRuleState) {
		t.Errorf("create err: got %v, want ErrAmbiguousRuleState", err)
	}
	if reg.creates != 0 {
		t.Errorf("creates: got %d, want 0", reg.creates)
	}
}

// --- update -----------------------------------------------------------------

func TestUpdateDefaultAlert_NoExistingBehavesLikeCreate(t *testing.T) {
	for _, kind := range types.Kinds() {
		viaUpdate := newPlainRegistry()
		viaCreate := newPlainRegistry()
		conns := connectors.NewStatic(testConnectors)
		st := settings.NewStatic(defaultSettings())

		u, err := newService(viaUpdate, conns, st).UpdateDefaultAlert(context.Background(), kind, "n", "7m")
		if err != nil {
			t.Fatalf("%s update: %v", kind.Label(), err)
		}
		c, err := newService(viaCreate, conns, st).CreateDefaultAlertIfNotExist(context.Background(), kind, "n", "7m")
		if err != nil {
			t.Fatalf("%s create: %v", kind.Label(), err)
		}

		if viaUpdate.creates != 1 || viaUpdate.updates != 0 {
			t.Errorf("%s update path: creates=%d updates=%d, want 1/0", kind.Label(), viaUpdate.creates, viaUpdate.updates)
		}
		if u.Name != c.Name || u.Schedule != c.Schedule || u.RuleTypeID != c.RuleTypeID ||
			u.Enabled != c.Enabled || len(u.Actions) != len(c.Actions) || len(u.Tags) != len(c.Tags) {
			t.Errorf("%s: update result %+v differs from create result %+v", kind.Label(), u, c)
		}
	}
}

func TestUpdateDefaultAlert_RefreshesOnlyActions(t *testing.T) {
	reg := newPlainRegistry()
	st := settings.NewStatic(&types.Settings{DefaultConnectors: []string{"chat"}})
	svc := newService(reg, connectors.NewStatic(testConnectors), st)

	created, err := svc.CreateDefaultAlertIfNotExist(context.Background(), types.KindStatus, "original", "1m")
	if err != nil {
		t.Fatal(err)
	}
	if len(created.Actions) != 1 {
		t.Fatalf("initial actions: got %d, want 1", len(created.Actions))
	}

	st.Put(context.Background(), &types.Settings{DefaultConnectors: []string{"chat", "mail", "pager"}}) //nolint:errcheck
	updated, err := svc.UpdateDefaultAlert(context.Background(), types.KindStatus, "ignored name", "99m")
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if updated.ID != created.ID {
		t.Errorf("ID: got %q, want %q", updated.ID, created.ID)
	}
	if len(updated.Actions) != 3 {
		t.Errorf("actions: got %d, want 3", len(updated.Actions))
	}
	if updated.Name != "original" {
		t.Errorf("Name: got %q, want original", updated.Name)
	}
	if updated.Schedule.Interval != "1m" {
		t.Errorf("Interval: got %q, want 1m", updated.Schedule.Interval)
	}
	if len(updated.Tags) != 1 || updated.Tags[0] != types.DefaultAlertTag {
		t.Errorf("Tags: got %v", updated.Tags)
	}
	if reg.creates != 1 || reg.updates != 1 {
		t.Errorf("creates/updates: got %d/%d, want 1/1", reg.creates, reg.updates)
	}
}

// --- actions ----------------------------------------------------------------

func TestGetAlertActions_OnlyDefaultConnectors(t *testing.T) {
	svc := newService(newPlainRegistry(), connectors.NewStatic(testConnectors),
		settings.NewStatic(&types.Settings{DefaultConnectors: []string{"pager", "unknown"}}))

	actions, err := svc.GetAlertActions(context.Background())
	if err != nil {
		t.Fatalf("GetAlertActions: %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("actions: got %d, want 1", len(actions))
	}
	if actions[0].ID != "pager" {
		t.Errorf("action id: got %q, want pager", actions[0].ID)
	}
}

func TestGetAlertActions_RegistryOrder(t *testing.T) {
	svc := newService(newPlainRegistry(), connectors.NewStatic(testConnectors), settings.NewStatic(defaultSettings()))
	actions, err := svc.GetAlertActions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// Settings list chat before mail; the registry lists mail first.
	if len(actions) != 2 || actions[0].ID != "mail" || actions[1].ID != "chat" {
		t.Errorf("action order: got %+v", actions)
	}
	for _, a := range actions {
		if a.Group != types.MonitorStatusGroup {
			t.Errorf("%s group: got %q", a.ID, a.Group)
		}
	}
	if to := actions[0].Params["to"].([]string); len(to) != 1 || to[0] != "oncall@example.com" {
		t.Errorf("email to: got %v", to)
	}
}

func TestGetAlertActions_UndefinedDefaultConnectors(t *testing.T) {
	for name, st := range map[string]settings.Store{
		"nil settings":   settings.NewStatic(nil),
		"nil connectors": settings.NewStatic(&types.Settings{DefaultEmail: &types.DefaultEmail{To: []string{"a@b"}}}),
	} {
		svc := newService(newPlainRegistry(), connectors.NewStatic(testConnectors), st)
		actions, err := svc.GetAlertActions(context.Background())
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if actions == nil || len(actions) != 0 {
			t.Errorf("%s: actions got %v, want empty", name, actions)
		}
	}
}

func TestGetActionConnectors_ConnectorFailureIsTolerated(t *testing.T) {
	svc := newService(newPlainRegistry(), failingConnectors{err: errors.New("actions API down")},
		settings.NewStatic(defaultSettings()))

	cs, err := svc.GetActionConnectors(context.Background())
	if err != nil {
		t.Fatalf("GetActionConnectors: %v", err)
	}
	if cs.Connectors == nil || len(cs.Connectors) != 0 {
		t.Errorf("connectors: got %v, want empty", cs.Connectors)
	}
	if len(cs.Settings.DefaultConnectors) != 2 {
		t.Errorf("settings: got %+v", cs.Settings)
	}

	// Setup still succeeds, with no actions.
	out, err := svc.SetupDefaultAlerts(context.Background())
	if err != nil {
		t.Fatalf("SetupDefaultAlerts: %v", err)
	}
	if len(out.Status.Actions) != 0 {
		t.Errorf("status actions: got %d, want 0", len(out.Status.Actions))
	}
}

func TestGetActionConnectors_SettingsFailureIsFatal(t *testing.T) {
	boom := errors.New("settings unreadable")
	svc := newService(newPlainRegistry(), connectors.NewStatic(testConnectors), failingSettings{err: boom})

	if _, err := svc.GetActionConnectors(context.Background()); !errors.Is(err, boom) {
		t.Errorf("err: got %v, want wrapping %v", err, boom)
	}
}

// --- setup ------------------------------------------------------------------

func TestSetupDefaultAlerts_EmptyRegistry(t *testing.T) {
	pub := &capturePublisher{}
	svc := newService(newPlainRegistry(), connectors.NewStatic(testConnectors), settings.NewStatic(defaultSettings()),
		WithPublisher(pub, "synthetics.default_alerts"))

	out, err := svc.SetupDefaultAlerts(context.Background())
	if err != nil {
		t.Fatalf("SetupDefaultAlerts: %v", err)
	}

	for kind, want := range map[types.RuleKind]string{types.KindStatus: "1m", types.KindTLS: "10m"} {
		r := out.Get(kind)
		if r == nil {
			t.Fatalf("%s rule: got nil", kind.Label())
		}
		if r.Schedule.Interval != want {
			t.Errorf("%s interval: got %q, want %q", kind.Label(), r.Schedule.Interval, want)
		}
		if !r.Enabled || !r.HasTag(types.DefaultAlertTag) {
			t.Errorf("%s: enabled=%v tags=%v", kind.Label(), r.Enabled, r.Tags)
		}
		if r.Name != kind.DefaultName() {
			t.Errorf("%s name: got %q", kind.Label(), r.Name)
		}
	}
	if len(pub.subjects) != 2 || pub.subjects[0] != "synthetics.default_alerts.created" {
		t.Errorf("published subjects: got %v", pub.subjects)
	}
}

func TestSetupDefaultAlerts_OneKindFails(t *testing.T) {
	reg := newPlainRegistry()
	boom := errors.New("tls find failed")
	reg.findErr[string(types.KindTLS)] = boom
	svc := newService(reg, connectors.NewStatic(nil), settings.NewStatic(nil))

	out, err := svc.SetupDefaultAlerts(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("err: got %v, want wrapping %v", err, boom)
	}
	if out.Status == nil {
		t.Error("status rule: got nil, want the rule created despite the TLS failure")
	}
	if out.TLS != nil {
		t.Errorf("tls rule: got %+v, want nil", out.TLS)
	}
	var se *SetupError
	if !errors.As(err, &se) || len(se.Errs) != 1 {
		t.Fatalf("SetupError: got %v", err)
	}
}

func TestSetupDefaultAlerts_BothFail(t *testing.T) {
	reg := newPlainRegistry()
	statusErr := errors.New("status find failed")
	tlsErr := errors.New("tls find failed")
	reg.findErr[string(types.KindStatus)] = statusErr
	reg.findErr[string(types.KindTLS)] = tlsErr
	svc := newService(reg, connectors.NewStatic(nil), settings.NewStatic(nil))

	out, err := svc.SetupDefaultAlerts(context.Background())
	if err == nil {
		t.Fatal("SetupDefaultAlerts: got nil error, want failure")
	}
	if !errors.Is(err, statusErr) || !errors.Is(err, tlsErr) {
		t.Errorf("err %v must carry both causes", err)
	}
	var se *SetupError
	if !errors.As(err, &se) {
		t.Fatalf("err: got %T, want *SetupError", err)
	}
	if len(se.Errs) != 2 || se.Op != "setup" {
		t.Errorf("SetupError: got %+v", se)
	}
	if out.Status != nil || out.TLS != nil {
		t.Errorf("rules: got %+v, want none", out)
	}
	if reg.finds != 2 {
		t.Errorf("finds: got %d, want 2 (both kinds attempted)", reg.finds)
	}
}

func TestUpdateDefaultAlerts(t *testing.T) {
	reg := newPlainRegistry()
	pub := &capturePublisher{}
	svc := newService(reg, connectors.NewStatic(testConnectors), settings.NewStatic(defaultSettings()),
		WithPublisher(pub, "p"))

	if _, err := svc.SetupDefaultAlerts(context.Background()); err != nil {
		t.Fatal(err)
	}
	out, err := svc.UpdateDefaultAlerts(context.Background())
	if err != nil {
		t.Fatalf("UpdateDefaultAlerts: %v", err)
	}
	if out.Status == nil || out.TLS == nil {
		t.Fatalf("rules: got %+v", out)
	}
	if reg.updates != 2 || reg.creates != 2 {
		t.Errorf("creates/updates: got %d/%d, want 2/2", reg.creates, reg.updates)
	}
}

func TestGetDefaultAlerts(t *testing.T) {
	reg := newPlainRegistry()
	svc := newService(reg, connectors.NewStatic(nil), settings.NewStatic(nil))

	out, err := svc.GetDefaultAlerts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != nil || out.TLS != nil {
		t.Errorf("empty registry: got %+v", out)
	}

	if _, err := svc.CreateDefaultAlertIfNotExist(context.Background(), types.KindTLS, "tls", "10m"); err != nil {
		t.Fatal(err)
	}
	out, err = svc.GetDefaultAlerts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != nil || out.TLS == nil {
		t.Errorf("after tls create: got %+v", out)
	}
}
