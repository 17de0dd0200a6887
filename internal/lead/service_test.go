// AngelaMos | 2026
// service_test.go

package lead

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/carterperez-dev/crm-backend/internal/activity"
	"github.com/carterperez-dev/crm-backend/internal/core"
)

// memStore keeps leads in memory. WithinTx holds txMu for the whole
// transaction, standing in for the row lock, and restores a snapshot when fn
// fails, matching a rolled back transaction.
type memStore struct {
	mu           sync.Mutex
	txMu         sync.Mutex
	leads        map[string]Lead
	activities   []Activity
	statuses     map[string]Status
	failAppend   error
	beforeUpdate func()
}

func newMemStore() *memStore {
	return &memStore{
		leads:    map[string]Lead{},
		statuses: map[string]Status{},
	}
}

func (m *memStore) Create(_ context.Context, l *Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.Version = 1
	l.CreatedAt = time.Now().UTC()
	l.UpdatedAt = l.CreatedAt
	m.leads[l.ID] = *l
	return nil
}

func (m *memStore) GetByID(_ context.Context, id string) (*Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok || l.DeletedAt != nil {
		return nil, core.ErrNotFound
	}
	return &l, nil
}

func (m *memStore) GetForUpdate(ctx context.Context, id string) (*Lead, error) {
	return m.GetByID(ctx, id)
}

func (m *memStore) List(_ context.Context, params ListParams) ([]Lead, int, error) {
	params.Normalize()
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Lead
	for _, l := range m.leads {
		if l.DeletedAt != nil {
			continue
		}
		if params.Status != "" && l.Status != params.Status {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	total := len(out)
	start := min(params.Offset(), total)
	end := min(start+params.PageSize, total)
	return out[start:end], total, nil
}

func (m *memStore) Update(_ context.Context, l *Lead) error {
	if m.beforeUpdate != nil {
		m.beforeUpdate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.leads[l.ID]
	if !ok || stored.DeletedAt != nil || stored.Version != l.Version {
		return core.ErrConflict
	}
	l.Version++
	l.UpdatedAt = time.Now().UTC()
	m.leads[l.ID] = *l
	return nil
}

func (m *memStore) SoftDelete(_ context.Context, id string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok || l.DeletedAt != nil {
		return core.ErrNotFound
	}
	l.DeletedAt = &now
	m.leads[id] = l
	return nil
}

func (m *memStore) AppendActivity(_ context.Context, a *Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAppend != nil {
		return m.failAppend
	}
	m.activities = append(m.activities, *a)
	return nil
}

func (m *memStore) ListActivities(_ context.Context, leadID string) ([]Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Activity
	for _, a := range m.activities {
		if a.LeadID == leadID {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.Before(out[j].OccurredAt)
	})
	return out, nil
}

func (m *memStore) ListSources(context.Context) ([]Source, error) {
	return []Source{{ID: "src-1", Name: "Referral", IsActive: true}}, nil
}

func (m *memStore) ListStatuses(context.Context) ([]Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Status, 0, len(m.statuses))
	for _, st := range m.statuses {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (m *memStore) UpsertStatuses(_ context.Context, statuses []Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, st := range statuses {
		m.statuses[st.Key] = st
	}
	return nil
}

func (m *memStore) CountByStatus(context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[string]int{}
	for _, l := range m.leads {
		if l.DeletedAt == nil {
			counts[l.Status]++
		}
	}
	return counts, nil
}

func (m *memStore) WithinTx(_ context.Context, fn func(repo Repository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	leads := make(map[string]Lead, len(m.leads))
	for k, v := range m.leads {
		leads[k] = v
	}
	activities := append([]Activity(nil), m.activities...)
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.leads = leads
		m.activities = activities
		m.mu.Unlock()
		return err
	}
	return nil
}

type captureRecorder struct {
	mu      sync.Mutex
	entries []activity.Entry
}

func (c *captureRecorder) Record(_ context.Context, e activity.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
}

func (c *captureRecorder) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.Type)
	}
	return out
}

type leadHarness struct {
	svc      *Service
	store    *memStore
	recorder *captureRecorder
	now      time.Time
}

func newLeadHarness(t *testing.T) *leadHarness {
	t.Helper()

	h := &leadHarness{
		store:    newMemStore(),
		recorder: &captureRecorder{},
		now:      time.Date(2026, 4, 14, 10, 0, 0, 0, time.UTC),
	}

	h.svc = NewService(
		h.store,
		mustPipeline(t, testPipelineConfig()),
		NewScorer(testWeights, 30*24*time.Hour),
		[]string{"call", "email", "meeting", "note", "stage_changed"},
		WithRecorder(h.recorder),
		WithClock(func() time.Time { return h.now }),
	)
	return h
}

// bumpVersion simulates another writer committing to the lead.
func (m *memStore) bumpVersion(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.leads[id]
	l.Version++
	m.leads[id] = l
}

func (m *memStore) countActivities(leadID, typ string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.activities {
		if a.LeadID == leadID && a.Type == typ {
			n++
		}
	}
	return n
}

func (h *leadHarness) tick() {
	h.now = h.now.Add(time.Hour)
}

func (h *leadHarness) createJohnDoe(t *testing.T) *Lead {
	t.Helper()
	l, err := h.svc.Create(context.Background(), "actor-1", CreateLeadRequest{
		FirstName: "John",
		LastName:  "Doe",
		Email:     "John.Doe@Example.com",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return l
}

func (h *leadHarness) move(t *testing.T, id, to string) *Lead {
	t.Helper()
	h.tick()
	l, err := h.svc.Transition(context.Background(), "actor-1", id, TransitionRequest{ToStatus: to})
	if err != nil {
		t.Fatalf("transition to %s: %v", to, err)
	}
	return l
}

func TestCreateLeadDefaults(t *testing.T) {
	h := newLeadHarness(t)
	l := h.createJohnDoe(t)

	if l.Status != "new" {
		t.Errorf("status = %q, want new", l.Status)
	}
	if l.Score != 0 {
		t.Errorf("score = %d, want 0", l.Score)
	}
	if l.Email != "john.doe@example.com" {
		t.Errorf("email not normalized: %q", l.Email)
	}
	if l.Temperature != TemperatureCold || l.Priority != PriorityMedium {
		t.Errorf("defaults = %s/%s", l.Temperature, l.Priority)
	}
	if l.CreatedBy == nil || *l.CreatedBy != "actor-1" {
		t.Errorf("created_by = %v", l.CreatedBy)
	}
}

func TestCreateLeadReportsMissingField(t *testing.T) {
	h := newLeadHarness(t)

	_, err := h.svc.Create(context.Background(), "actor-1", CreateLeadRequest{
		FirstName: "John",
		Email:     "john@example.com",
	})
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("got %v, want invalid input", err)
	}
	if !strings.Contains(err.Error(), "last_name") {
		t.Fatalf("error %q does not name last_name", err)
	}
}

func TestLeadLifecycle(t *testing.T) {
	h := newLeadHarness(t)
	ctx := context.Background()

	l := h.createJohnDoe(t)

	l = h.move(t, l.ID, "contacted")
	if l.Status != "contacted" {
		t.Fatalf("status = %q, want contacted", l.Status)
	}

	h.tick()
	_, l, err := h.svc.AppendActivity(ctx, "actor-1", l.ID, ActivityRequest{
		Type:    "call",
		Outcome: OutcomePositive,
		Subject: "Discovery call",
	})
	if err != nil {
		t.Fatalf("append activity: %v", err)
	}
	if l.LastContactAt == nil || !l.LastContactAt.Equal(h.now) {
		t.Fatalf("last_contact_at = %v, want %v", l.LastContactAt, h.now)
	}

	l = h.move(t, l.ID, "qualified")
	scoreAtQualified := l.Score
	trailBefore, _ := h.store.ListActivities(ctx, l.ID)

	h.tick()
	_, err = h.svc.Transition(ctx, "actor-1", l.ID, TransitionRequest{ToStatus: "contacted"})
	if !errors.Is(err, core.ErrInvalidTransition) {
		t.Fatalf("backward move: got %v, want invalid transition", err)
	}

	got, err := h.svc.Get(ctx, l.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != "qualified" || got.Score != scoreAtQualified {
		t.Fatalf("failed transition changed lead: status=%s score=%d", got.Status, got.Score)
	}
	if trailAfter, _ := h.store.ListActivities(ctx, l.ID); len(trailAfter) != len(trailBefore) {
		t.Fatalf("failed transition appended activity: %d -> %d", len(trailBefore), len(trailAfter))
	}

	l = h.move(t, l.ID, "negotiation")
	trail, _ := h.store.ListActivities(ctx, l.ID)
	last := trail[len(trail)-1]
	if last.Type != ActivityStageChanged || !last.IsSkip {
		t.Fatalf("skip not flagged on %+v", last)
	}
	if *last.FromStatus != "qualified" || *last.ToStatus != "negotiation" {
		t.Fatalf("stage activity from/to = %s/%s", *last.FromStatus, *last.ToStatus)
	}

	h.tick()
	l, err = h.svc.Convert(ctx, "actor-1", l.ID, ConvertRequest{ConversionValue: 12500})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if l.Status != "converted" || l.ConvertedAt == nil {
		t.Fatalf("convert left status=%s converted_at=%v", l.Status, l.ConvertedAt)
	}
	if l.ConversionType == nil || *l.ConversionType != defaultConversionType {
		t.Fatalf("conversion type = %v", l.ConversionType)
	}
	if l.ConversionValue == nil || *l.ConversionValue != 12500 {
		t.Fatalf("conversion value = %v", l.ConversionValue)
	}

	h.tick()
	if _, err := h.svc.Transition(ctx, "actor-1", l.ID, TransitionRequest{ToStatus: "lost"}); !errors.Is(err, core.ErrInvalidTransition) {
		t.Fatalf("move out of converted: got %v, want invalid transition", err)
	}

	h.tick()
	if _, _, err := h.svc.AppendActivity(ctx, "actor-1", l.ID, ActivityRequest{
		Type:    "email",
		Subject: "Welcome aboard",
	}); err != nil {
		t.Fatalf("terminal leads still accept activities: %v", err)
	}

	want := []string{
		activity.TypeLeadCreated,
		activity.TypeLeadStageChanged,
		activity.TypeLeadActivityAdded,
		activity.TypeLeadStageChanged,
		activity.TypeLeadStageChanged,
		activity.TypeLeadConverted,
		activity.TypeLeadActivityAdded,
	}
	if got := h.recorder.types(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("audit trail = %v, want %v", got, want)
	}
}

func TestTransitionToConvertedUsesConversionPath(t *testing.T) {
	h := newLeadHarness(t)
	ctx := context.Background()

	l := h.createJohnDoe(t)
	l = h.move(t, l.ID, "negotiation")
	l = h.move(t, l.ID, "converted")

	if l.ConvertedAt == nil {
		t.Fatal("converted_at not set")
	}
	trail, _ := h.store.ListActivities(ctx, l.ID)
	if last := trail[len(trail)-1]; last.Type != ActivityConverted {
		t.Fatalf("last activity type = %s, want converted", last.Type)
	}
}

func TestTransitionRollsBackWhenActivityWriteFails(t *testing.T) {
	h := newLeadHarness(t)
	ctx := context.Background()

	l := h.createJohnDoe(t)
	h.store.failAppend = core.StoreError("append lead activity", errors.New("disk full"))

	_, err := h.svc.Transition(ctx, "actor-1", l.ID, TransitionRequest{ToStatus: "contacted"})
	if !errors.Is(err, core.ErrStorage) {
		t.Fatalf("got %v, want storage error", err)
	}

	got, _ := h.svc.Get(ctx, l.ID)
	if got.Status != "new" || got.Version != l.Version {
		t.Fatalf("lead changed despite failure: status=%s version=%d", got.Status, got.Version)
	}
}

func TestAppendActivityRejectsReservedAndUnknownTypes(t *testing.T) {
	h := newLeadHarness(t)
	ctx := context.Background()
	l := h.createJohnDoe(t)

	for _, typ := range []string{"stage_changed", "converted", "webinar"} {
		_, _, err := h.svc.AppendActivity(ctx, "actor-1", l.ID, ActivityRequest{
			Type:    typ,
			Subject: "x",
		})
		if !errors.Is(err, core.ErrInvalidInput) {
			t.Errorf("type %q: got %v, want invalid input", typ, err)
		}
	}
}

func TestRescoreIsIdempotent(t *testing.T) {
	h := newLeadHarness(t)
	ctx := context.Background()

	l := h.createJohnDoe(t)
	h.tick()
	if _, _, err := h.svc.AppendActivity(ctx, "actor-1", l.ID, ActivityRequest{
		Type:    "meeting",
		Subject: "Onsite",
	}); err != nil {
		t.Fatalf("append: %v", err)
	}

	first, err := h.svc.Rescore(ctx, "actor-1", l.ID)
	if err != nil {
		t.Fatalf("rescore: %v", err)
	}
	h.now = h.now.Add(90 * 24 * time.Hour)
	second, err := h.svc.Rescore(ctx, "actor-1", l.ID)
	if err != nil {
		t.Fatalf("rescore: %v", err)
	}

	if first.Score != second.Score {
		t.Fatalf("rescore drifted: %d -> %d", first.Score, second.Score)
	}
	for _, typ := range h.recorder.types() {
		if typ == activity.TypeLeadRescored {
			t.Fatal("unchanged score should not be recorded")
		}
	}
}

func TestUpdateRejectsEmptyBody(t *testing.T) {
	h := newLeadHarness(t)
	l := h.createJohnDoe(t)

	if _, err := h.svc.Update(context.Background(), "actor-1", l.ID, UpdateLeadRequest{}); !errors.Is(err, core.ErrInvalidInput) {
		t.Fatalf("got %v, want invalid input", err)
	}
}

func TestDeleteHidesLead(t *testing.T) {
	h := newLeadHarness(t)
	ctx := context.Background()
	l := h.createJohnDoe(t)

	if err := h.svc.Delete(ctx, "actor-1", l.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := h.svc.Get(ctx, l.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("got %v, want not found", err)
	}
	if _, err := h.svc.ListActivities(ctx, l.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("activities of deleted lead: got %v, want not found", err)
	}
}

func TestSyncStatuses(t *testing.T) {
	h := newLeadHarness(t)

	if err := h.svc.SyncStatuses(context.Background()); err != nil {
		t.Fatalf("sync: %v", err)
	}

	statuses, _ := h.svc.ListStatuses(context.Background())
	if len(statuses) != 7 {
		t.Fatalf("got %d statuses, want 7", len(statuses))
	}
	if statuses[0].Key != "new" || statuses[0].IsTerminal {
		t.Fatalf("first status = %+v", statuses[0])
	}
	if !statuses[5].IsTerminal || !statuses[6].IsTerminal {
		t.Fatal("converted and lost must be terminal")
	}
}

func TestPipelineSummary(t *testing.T) {
	h := newLeadHarness(t)
	ctx := context.Background()

	first := h.createJohnDoe(t)
	h.createJohnDoe(t)
	gone := h.createJohnDoe(t)
	h.move(t, first.ID, "contacted")
	if err := h.svc.Delete(ctx, "actor-1", gone.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	summary, err := h.svc.PipelineSummary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(summary) != 7 {
		t.Fatalf("stages = %d, want 7", len(summary))
	}

	got := map[string]int{}
	for _, sc := range summary {
		got[sc.Key] = sc.Count
	}
	if got["new"] != 1 || got["contacted"] != 1 || got["lost"] != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary[0].Key != "new" || summary[0].Name != "New" {
		t.Fatalf("first stage = %+v", summary[0])
	}
}

func TestUpdateRejectsBlankRequiredFields(t *testing.T) {
	h := newLeadHarness(t)
	ctx := context.Background()
	l := h.createJohnDoe(t)
	blank := "   "

	tests := []struct {
		field string
		req   UpdateLeadRequest
	}{
		{"first_name", UpdateLeadRequest{FirstName: &blank}},
		{"last_name", UpdateLeadRequest{LastName: &blank}},
		{"email", UpdateLeadRequest{Email: &blank}},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			_, err := h.svc.Update(ctx, "actor-1", l.ID, tt.req)
			if !errors.Is(err, core.ErrInvalidInput) {
				t.Fatalf("got %v, want invalid input", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Fatalf("error %q does not name %s", err, tt.field)
			}
		})
	}

	got, _ := h.svc.Get(ctx, l.ID)
	if got.FirstName != "John" || got.LastName != "Doe" || got.Email != "john.doe@example.com" {
		t.Fatalf("lead changed: %+v", got)
	}
	if got.Version != l.Version {
		t.Fatalf("version = %d, want %d", got.Version, l.Version)
	}
}

func TestAppendActivityRejectsFutureDate(t *testing.T) {
	h := newLeadHarness(t)
	ctx := context.Background()
	l := h.createJohnDoe(t)

	future := h.now.Add(48 * time.Hour)
	_, _, err := h.svc.AppendActivity(ctx, "actor-1", l.ID, ActivityRequest{
		Type:       "call",
		Outcome:    OutcomePositive,
		Subject:    "Intro call",
		OccurredAt: &future,
	})
	if !errors.Is(err, core.ErrInvalidInput) || !strings.Contains(err.Error(), "activity_date") {
		t.Fatalf("got %v, want invalid activity_date", err)
	}
	if n := h.store.countActivities(l.ID, "call"); n != 0 {
		t.Fatalf("stored %d call activities, want 0", n)
	}

	past := h.now.Add(-48 * time.Hour)
	entry, updated, err := h.svc.AppendActivity(ctx, "actor-1", l.ID, ActivityRequest{
		Type:       "call",
		Outcome:    OutcomePositive,
		Subject:    "Intro call",
		OccurredAt: &past,
	})
	if err != nil {
		t.Fatalf("backdated activity: %v", err)
	}
	if !entry.OccurredAt.Equal(past) {
		t.Fatalf("occurred_at = %v, want %v", entry.OccurredAt, past)
	}
	if updated.LastContactAt == nil || !updated.LastContactAt.Equal(past) {
		t.Fatalf("last_contact_at = %v, want %v", updated.LastContactAt, past)
	}
}

func TestTransitionConflictsWithConcurrentWrite(t *testing.T) {
	h := newLeadHarness(t)
	ctx := context.Background()
	l := h.createJohnDoe(t)

	h.store.beforeUpdate = func() { h.store.bumpVersion(l.ID) }
	_, err := h.svc.Transition(ctx, "actor-1", l.ID, TransitionRequest{ToStatus: "contacted"})
	h.store.beforeUpdate = nil

	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("got %v, want conflict", err)
	}
	got, _ := h.svc.Get(ctx, l.ID)
	if got.Status != "new" {
		t.Fatalf("status = %s, want new", got.Status)
	}
	if n := h.store.countActivities(l.ID, ActivityStageChanged); n != 0 {
		t.Fatalf("stage_changed activities = %d, want 0", n)
	}
}

func TestConcurrentTransitionsApplyOnce(t *testing.T) {
	h := newLeadHarness(t)
	ctx := context.Background()
	l := h.createJohnDoe(t)

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Go(func() {
			_, errs[i] = h.svc.Transition(ctx, "actor-1", l.ID, TransitionRequest{ToStatus: "contacted"})
		})
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, core.ErrInvalidTransition):
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("%d transitions succeeded, want 1", succeeded)
	}

	got, _ := h.svc.Get(ctx, l.ID)
	if got.Status != "contacted" || got.Version != l.Version+1 {
		t.Fatalf("lead = %s v%d, want contacted v%d", got.Status, got.Version, l.Version+1)
	}
	if n := h.store.countActivities(l.ID, ActivityStageChanged); n != 1 {
		t.Fatalf("stage_changed activities = %d, want 1", n)
	}
}
