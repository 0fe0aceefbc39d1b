package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/mmynk/splitplus/internal/models"
	"github.com/mmynk/splitplus/internal/repository"
	"github.com/mmynk/splitplus/internal/service"
	"github.com/mmynk/splitplus/internal/storage/memory"
)

// fakeSheet mimics the spreadsheet web app: POST SYNC_GROUP stores the
// payload with splits kept as text, GET_ALL returns it with splits decoded.
type fakeSheet struct {
	mu       sync.Mutex
	stored   *Payload
	posts    int
	failWith string
}

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if f.failWith != "" {
		json.NewEncoder(w).Encode(Ack{Status: "error", Message: f.failWith})
		return
	}

	switch r.Method {
	case http.MethodPost:
		var req SyncGroupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Action != ActionSyncGroup {
			json.NewEncoder(w).Encode(Ack{Status: "error", Message: "Invalid action"})
			return
		}
		f.posts++
		f.stored = &req.Payload
		json.NewEncoder(w).Encode(Ack{Status: StatusSuccess})
	case http.MethodGet:
		if r.URL.Query().Get("action") != ActionGetAll {
			json.NewEncoder(w).Encode(Ack{Status: "error", Message: "Invalid action"})
			return
		}
		data := Payload{}
		if f.stored != nil {
			data = *f.stored
		}
		json.NewEncoder(w).Encode(GetAllResponse{Status: StatusSuccess, Data: data})
	}
}

type syncEnv struct {
	sheet    *fakeSheet
	server   *httptest.Server
	groups   *repository.GroupRepository
	expenses *repository.ExpenseRepository
	users    *repository.UserRepository
	syncer   *Syncer
}

func setupSyncEnv(t *testing.T) *syncEnv {
	t.Helper()
	sheet := &fakeSheet{}
	server := httptest.NewServer(sheet)
	t.Cleanup(server.Close)

	store := memory.New()
	env := &syncEnv{
		sheet:    sheet,
		server:   server,
		groups:   repository.NewGroupRepository(store),
		expenses: repository.NewExpenseRepository(store),
		users:    repository.NewUserRepository(store),
	}
	env.syncer = NewSyncer(NewClient(WithTimeout(2*time.Second)), env.groups, env.expenses, env.users, nil)
	return env
}

func (env *syncEnv) mirroredGroup(t *testing.T, members ...string) *models.Group {
	t.Helper()
	g := &models.Group{
		Name:             "Cabin",
		Members:          members,
		StorageType:      models.StorageSheet,
		ConnectionString: env.server.URL + "/exec",
	}
	if err := env.groups.Create(context.Background(), g); err != nil {
		t.Fatalf("failed to create group: %v", err)
	}
	return g
}

func TestSyncer_PushOnCommit(t *testing.T) {
	env := setupSyncEnv(t)
	ctx := context.Background()

	alice := models.NewUser("alice", "hash")
	if err := env.users.CreateUser(ctx, alice); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	g := env.mirroredGroup(t, alice.ID, "bob-id")

	svc := service.NewExpenseService(env.expenses, env.groups, service.WithCommitHooks(env.syncer))
	if _, err := svc.CreateExpense(ctx, g.ID, service.ExpenseInput{Description: "Firewood", Amount: 30, PaidBy: alice.ID}); err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	svc.Wait()

	env.sheet.mu.Lock()
	defer env.sheet.mu.Unlock()
	if env.sheet.posts != 1 {
		t.Fatalf("posts = %d, want 1", env.sheet.posts)
	}
	stored := env.sheet.stored
	if stored.Meta.ID != g.ID || stored.Meta.Name != "Cabin" {
		t.Errorf("meta = %+v", stored.Meta)
	}
	if len(stored.Members) != 2 || stored.Members[0].Username != "alice" {
		t.Errorf("members = %+v", stored.Members)
	}
	if len(stored.Expenses) != 1 || len(stored.Expenses[0].Splits) != 2 {
		t.Errorf("expenses = %+v", stored.Expenses)
	}
}

func TestSyncer_SkipsLocalGroups(t *testing.T) {
	env := setupSyncEnv(t)
	g := &models.Group{Name: "Local", Members: []string{"a"}}
	if err := env.groups.Create(context.Background(), g); err != nil {
		t.Fatalf("failed to create group: %v", err)
	}

	if err := env.syncer.AfterCommit(context.Background(), service.CommitEvent{GroupID: g.ID, Op: service.OpGroupChanged}); err != nil {
		t.Fatalf("AfterCommit failed: %v", err)
	}
	if env.sheet.posts != 0 {
		t.Errorf("local group was pushed")
	}

	if _, err := env.syncer.Pull(context.Background(), g.ID); !errors.Is(err, ErrNotMirrored) {
		t.Errorf("expected ErrNotMirrored, got %v", err)
	}
}

func TestSyncer_RemoteError(t *testing.T) {
	env := setupSyncEnv(t)
	env.sheet.mu.Lock()
	env.sheet.failWith = "Sheet missing"
	env.sheet.mu.Unlock()
	g := env.mirroredGroup(t, "a")

	err := env.syncer.Push(context.Background(), g.ID)
	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remoteErr.Message != "Sheet missing" {
		t.Errorf("Message = %q", remoteErr.Message)
	}
}

func TestSyncer_FailureDoesNotBlockLocalWrite(t *testing.T) {
	env := setupSyncEnv(t)
	env.server.Close()
	g := env.mirroredGroup(t, "a", "b")

	svc := service.NewExpenseService(env.expenses, env.groups, service.WithCommitHooks(env.syncer))
	e, err := svc.CreateExpense(context.Background(), g.ID, service.ExpenseInput{Description: "Rope", Amount: 8, PaidBy: "a"})
	if err != nil {
		t.Fatalf("CreateExpense must succeed with the mirror down: %v", err)
	}
	svc.Wait()

	if _, err := env.expenses.Get(context.Background(), e.ID); err != nil {
		t.Errorf("expense was not kept locally: %v", err)
	}
}

func TestSyncer_PullReplacesLocalState(t *testing.T) {
	env := setupSyncEnv(t)
	ctx := context.Background()
	g := env.mirroredGroup(t, "a", "b")

	local := &models.Expense{GroupID: g.ID, Description: "Stale", Amount: 10, PaidBy: "a",
		SplitType: models.SplitTypeEqual, Splits: []models.Split{{UserID: "a", Amount: 5}, {UserID: "b", Amount: 5}}}
	if err := env.expenses.Create(ctx, local); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	env.sheet.mu.Lock()
	env.sheet.stored = &Payload{
		Meta: Meta{ID: g.ID, Name: "Cabin 2026", CreatedBy: "a"},
		Members: []Member{
			{ID: "a", Status: models.MemberActive},
			{ID: "b", Status: models.MemberActive},
			{ID: "c", Status: models.MemberPending},
		},
		Expenses: []WireExpense{{
			ID: "remote-1", GroupID: g.ID, Description: "Boat", Amount: 90, PaidBy: "b",
			SplitType: "EXACT", CreatedAt: 1700000000000,
			Splits: SplitsField{{UserID: "a", Amount: 45}, {UserID: "b", Amount: 45}},
		}},
	}
	env.sheet.mu.Unlock()

	res, err := env.syncer.Pull(ctx, g.ID)
	if err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	if res.Expenses != 1 {
		t.Errorf("Expenses = %d, want 1", res.Expenses)
	}

	expenses, err := env.expenses.ListByGroup(ctx, g.ID)
	if err != nil {
		t.Fatalf("ListByGroup failed: %v", err)
	}
	if len(expenses) != 1 || expenses[0].ID != "remote-1" || expenses[0].Amount != 90 {
		t.Errorf("expenses = %+v", expenses)
	}

	stored, err := env.groups.Get(ctx, g.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Name != "Cabin 2026" {
		t.Errorf("Name = %q", stored.Name)
	}
	if len(stored.PendingMembers) != 1 || stored.PendingMembers[0] != "c" {
		t.Errorf("PendingMembers = %v", stored.PendingMembers)
	}
}

// failingCreates refuses to store the expense with ID failID.
type failingCreates struct {
	ExpenseStore
	failID string
}

func (f *failingCreates) Create(ctx context.Context, e *models.Expense) error {
	if e.ID == f.failID {
		return errors.New("disk full")
	}
	return f.ExpenseStore.Create(ctx, e)
}

// seedLocal stores one expense in g and returns it.
func (env *syncEnv) seedLocal(t *testing.T, g *models.Group) *models.Expense {
	t.Helper()
	e := &models.Expense{GroupID: g.ID, Description: "Groceries", Amount: 10, PaidBy: "a",
		SplitType: models.SplitTypeEqual, Splits: []models.Split{{UserID: "a", Amount: 5}, {UserID: "b", Amount: 5}}}
	if err := env.expenses.Create(context.Background(), e); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return e
}

func (env *syncEnv) assertUntouched(t *testing.T, g *models.Group, local *models.Expense) {
	t.Helper()
	ctx := context.Background()
	expenses, err := env.expenses.ListByGroup(ctx, g.ID)
	if err != nil {
		t.Fatalf("ListByGroup failed: %v", err)
	}
	if len(expenses) != 1 || expenses[0].ID != local.ID || expenses[0].Amount != local.Amount {
		t.Errorf("expenses after failed pull = %+v, want only %s", expenses, local.ID)
	}
	stored, err := env.groups.Get(ctx, g.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stored.Name != g.Name || len(stored.Members) != len(g.Members) || len(stored.PendingMembers) != 0 {
		t.Errorf("group after failed pull = %+v", stored)
	}
}

func TestSyncer_PullStoreFailureKeepsLocalState(t *testing.T) {
	env := setupSyncEnv(t)
	ctx := context.Background()
	g := env.mirroredGroup(t, "a", "b")
	local := env.seedLocal(t, g)

	env.sheet.mu.Lock()
	env.sheet.stored = &Payload{
		Meta:    Meta{ID: g.ID, Name: "Renamed"},
		Members: []Member{{ID: "a"}, {ID: "z", Status: models.MemberPending}},
		Expenses: []WireExpense{
			{ID: "r1", Description: "Boat", Amount: 10, PaidBy: "a", SplitType: "EQUAL"},
			{ID: "r2", Description: "Bait", Amount: 4, PaidBy: "a", SplitType: "EQUAL"},
		},
	}
	env.sheet.mu.Unlock()

	syncer := NewSyncer(NewClient(WithTimeout(2*time.Second)), env.groups,
		&failingCreates{ExpenseStore: env.expenses, failID: "r2"}, env.users, nil)
	if _, err := syncer.Pull(ctx, g.ID); err == nil {
		t.Fatal("expected Pull to fail")
	}

	env.assertUntouched(t, g, local)
}

func TestSyncer_PullOutOfRangeAmountKeepsLocalState(t *testing.T) {
	env := setupSyncEnv(t)
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"success","data":{"meta":{"name":"Renamed"},"members":[],"expenses":[
			{"id":"r1","amount":10,"paidBy":"a","splits":"[]","splitType":"EQUAL"},
			{"id":"r2","amount":"1e400","paidBy":"a","splits":"[]","splitType":"EQUAL"}]}}`)
	}))
	t.Cleanup(server.Close)
	env.server = server

	g := env.mirroredGroup(t, "a", "b")
	local := env.seedLocal(t, g)

	if _, err := env.syncer.Pull(ctx, g.ID); err == nil {
		t.Fatal("expected Pull to fail on an out-of-range amount")
	}

	env.assertUntouched(t, g, local)
}

func TestSyncer_CoalescesConcurrentPushes(t *testing.T) {
	env := setupSyncEnv(t)
	ctx := context.Background()

	sheet := &fakeSheet{}
	entered := make(chan struct{})
	release := make(chan struct{})
	var first sync.Once
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			first.Do(func() {
				close(entered)
				<-release
			})
		}
		sheet.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)
	env.server = server
	env.sheet = sheet

	g := env.mirroredGroup(t, "a", "b")
	ev := service.CommitEvent{GroupID: g.ID, Op: service.OpExpenseCreated}

	done := make(chan error, 1)
	go func() { done <- env.syncer.AfterCommit(ctx, ev) }()
	<-entered

	// Commits landing while the first push is blocked return at once.
	for i := 0; i < 3; i++ {
		e := &models.Expense{GroupID: g.ID, Description: fmt.Sprintf("Round %d", i), Amount: 10, PaidBy: "a",
			SplitType: models.SplitTypeEqual, Splits: []models.Split{{UserID: "a", Amount: 5}, {UserID: "b", Amount: 5}}}
		if err := env.expenses.Create(ctx, e); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if err := env.syncer.AfterCommit(ctx, ev); err != nil {
			t.Fatalf("AfterCommit failed: %v", err)
		}
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first AfterCommit failed: %v", err)
	}

	sheet.mu.Lock()
	defer sheet.mu.Unlock()
	if sheet.posts != 2 {
		t.Errorf("posts = %d, want 2", sheet.posts)
	}
	if sheet.stored == nil || len(sheet.stored.Expenses) != 3 {
		t.Errorf("last snapshot does not hold every commit: %+v", sheet.stored)
	}
}

func TestClient_BreakerOpensAfterFailures(t *testing.T) {
	var hits int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient()
	for i := 0; i < 7; i++ {
		if err := client.SyncGroup(context.Background(), server.URL, Payload{}); err == nil {
			t.Fatal("expected error")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if hits != 5 {
		t.Errorf("server saw %d requests, want 5 before the breaker opened", hits)
	}
}
