package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/V4T54L/tenant-gateway/internal/domain"
)

// MockIdentityProvider is a mock implementation of domain.IdentityProvider for testing.
type MockIdentityProvider struct {
	mu sync.Mutex

	// Users maps access tokens to the users they belong to.
	Users      map[string]*domain.User
	GetUserErr error

	SignUpResult  *domain.AuthResult
	SignUpErr     error
	SignInResult  *domain.AuthResult
	SignInErr     error
	SignOutErr    error
	RefreshResult *domain.AuthResult
	RefreshErr    error
	DeleteUserErr error

	GetUserCalls int
	SignUpCalls  int
	SignInCalls  int
	SignOutCalls int
	RefreshCalls int
	DeletedUsers []string
}

func (m *MockIdentityProvider) GetUser(ctx context.Context, token string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetUserCalls++
	if m.GetUserErr != nil {
		return nil, m.GetUserErr
	}
	u, ok := m.Users[token]
	if !ok {
		return nil, &domain.ProviderError{Reason: domain.ProviderReasonInvalidToken, Status: 401, Message: "invalid JWT"}
	}
	cp := *u
	return &cp, nil
}

func (m *MockIdentityProvider) SignUp(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SignUpCalls++
	if m.SignUpErr != nil {
		return nil, m.SignUpErr
	}
	return m.SignUpResult, nil
}

func (m *MockIdentityProvider) SignInWithPassword(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SignInCalls++
	if m.SignInErr != nil {
		return nil, m.SignInErr
	}
	return m.SignInResult, nil
}

func (m *MockIdentityProvider) SignOut(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SignOutCalls++
	return m.SignOutErr
}

func (m *MockIdentityProvider) RefreshSession(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RefreshCalls++
	if m.RefreshErr != nil {
		return nil, m.RefreshErr
	}
	return m.RefreshResult, nil
}

func (m *MockIdentityProvider) DeleteUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteUserErr != nil {
		return m.DeleteUserErr
	}
	m.DeletedUsers = append(m.DeletedUsers, userID)
	return nil
}

// Calls returns the total number of provider calls made so far.
func (m *MockIdentityProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.GetUserCalls + m.SignUpCalls + m.SignInCalls + m.SignOutCalls + m.RefreshCalls + len(m.DeletedUsers)
}

// MockTenantDirectory is an in-memory implementation of domain.TenantDirectory for testing.
type MockTenantDirectory struct {
	mu sync.Mutex

	Tenants      map[string]*domain.Tenant
	Memberships  []domain.TenantMembership
	AgentConfigs map[string]*domain.AgentConfig
	PhoneNumbers []domain.PhoneNumber

	CreatePrivilegedErr  error
	InsertTenantErr      error
	InsertTenantNoRow    bool
	GetTenantErr         error
	UpdateTenantErr      error
	DeleteTenantErr      error
	ListMembershipsErr   error
	ListMembersErr       error
	CreateMembershipErr  error
	CreateAgentConfigErr error
	GetAgentConfigErr    error
	UpdateAgentConfigErr error
	ListPhoneNumbersErr  error
	FindPhoneNumberErr   error

	PrivilegedCalls    int
	InsertCalls        int
	FindPhoneCalls     int
	AgentConfigCreates int
	DeletedTenants     []string
}

// NewMockTenantDirectory returns an empty directory.
func NewMockTenantDirectory() *MockTenantDirectory {
	return &MockTenantDirectory{
		Tenants:      make(map[string]*domain.Tenant),
		AgentConfigs: make(map[string]*domain.AgentConfig),
	}
}

func (m *MockTenantDirectory) newTenant(t domain.NewTenant) *domain.Tenant {
	now := time.Now().UTC()
	tenant := &domain.Tenant{
		ID:                     uuid.NewString(),
		Name:                   t.Name,
		Timezone:               t.Timezone,
		Industry:               t.Industry,
		Status:                 domain.StatusActive,
		DefaultEmailRecipients: t.DefaultEmailRecipients,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	m.Tenants[tenant.ID] = tenant
	return tenant
}

func (m *MockTenantDirectory) CreateTenantPrivileged(ctx context.Context, t domain.NewTenant) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PrivilegedCalls++
	if m.CreatePrivilegedErr != nil {
		return "", m.CreatePrivilegedErr
	}
	return m.newTenant(t).ID, nil
}

func (m *MockTenantDirectory) InsertTenant(ctx context.Context, t domain.NewTenant) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertCalls++
	if m.InsertTenantErr != nil {
		return nil, m.InsertTenantErr
	}
	if m.InsertTenantNoRow {
		return nil, nil
	}
	cp := *m.newTenant(t)
	return &cp, nil
}

func (m *MockTenantDirectory) GetTenant(ctx context.Context, id string) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetTenantErr != nil {
		return nil, m.GetTenantErr
	}
	t, ok := m.Tenants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MockTenantDirectory) UpdateTenant(ctx context.Context, id string, u domain.TenantUpdate) (*domain.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateTenantErr != nil {
		return nil, m.UpdateTenantErr
	}
	t, ok := m.Tenants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.Timezone != nil {
		t.Timezone = *u.Timezone
	}
	if u.Industry != nil {
		t.Industry = u.Industry
		if *u.Industry == "" {
			t.Industry = nil
		}
	}
	if u.DefaultEmailRecipients != nil {
		t.DefaultEmailRecipients = *u.DefaultEmailRecipients
	}
	t.UpdatedAt = time.Now().UTC()
	cp := *t
	return &cp, nil
}

func (m *MockTenantDirectory) DeleteTenant(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteTenantErr != nil {
		return m.DeleteTenantErr
	}
	delete(m.Tenants, id)
	m.DeletedTenants = append(m.DeletedTenants, id)
	return nil
}

func (m *MockTenantDirectory) ListMemberships(ctx context.Context, userID string) ([]domain.TenantMembership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListMembershipsErr != nil {
		return nil, m.ListMembershipsErr
	}
	var out []domain.TenantMembership
	for _, tm := range m.Memberships {
		if tm.UserID == userID {
			out = append(out, tm)
		}
	}
	return out, nil
}

func (m *MockTenantDirectory) ListTenantMembers(ctx context.Context, tenantID string) ([]domain.TenantMembership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListMembersErr != nil {
		return nil, m.ListMembersErr
	}
	out := []domain.TenantMembership{}
	for _, tm := range m.Memberships {
		if tm.TenantID == tenantID {
			out = append(out, tm)
		}
	}
	domain.SortMemberships(out)
	return out, nil
}

func (m *MockTenantDirectory) GetMembership(ctx context.Context, tenantID, userID string) (*domain.TenantMembership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tm := range m.Memberships {
		if tm.TenantID == tenantID && tm.UserID == userID {
			cp := tm
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockTenantDirectory) CreateMembership(ctx context.Context, tm domain.TenantMembership) (*domain.TenantMembership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateMembershipErr != nil {
		return nil, m.CreateMembershipErr
	}
	for _, existing := range m.Memberships {
		if existing.TenantID == tm.TenantID && existing.UserID == tm.UserID {
			return nil, &domain.DirectoryError{Reason: domain.DirectoryReasonDuplicate, Code: "23505", Message: "duplicate key value violates unique constraint"}
		}
	}
	if tm.ID == "" {
		tm.ID = uuid.NewString()
	}
	if tm.CreatedAt.IsZero() {
		tm.CreatedAt = time.Now().UTC()
	}
	m.Memberships = append(m.Memberships, tm)
	return &tm, nil
}

func (m *MockTenantDirectory) CreateAgentConfig(ctx context.Context, c domain.AgentConfig) (*domain.AgentConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.AgentConfigCreates++
	if m.CreateAgentConfigErr != nil {
		return nil, m.CreateAgentConfigErr
	}
	if _, ok := m.AgentConfigs[c.TenantID]; ok {
		return nil, &domain.DirectoryError{Reason: domain.DirectoryReasonDuplicate, Code: "23505", Message: "duplicate key value violates unique constraint"}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	m.AgentConfigs[c.TenantID] = &c
	cp := c
	return &cp, nil
}

func (m *MockTenantDirectory) GetAgentConfig(ctx context.Context, tenantID string) (*domain.AgentConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetAgentConfigErr != nil {
		return nil, m.GetAgentConfigErr
	}
	c, ok := m.AgentConfigs[tenantID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MockTenantDirectory) UpdateAgentConfig(ctx context.Context, tenantID string, u domain.AgentConfigUpdate) (*domain.AgentConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateAgentConfigErr != nil {
		return nil, m.UpdateAgentConfigErr
	}
	c, ok := m.AgentConfigs[tenantID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if u.Greeting != nil {
		c.Greeting = *u.Greeting
	}
	if u.Tone != nil {
		c.Tone = *u.Tone
	}
	if u.BusinessHours != nil {
		c.BusinessHours = u.BusinessHours
	}
	if u.EscalationRules != nil {
		c.EscalationRules = u.EscalationRules
	}
	if u.AllowedActions != nil {
		c.AllowedActions = *u.AllowedActions
	}
	if u.CustomPrompts != nil {
		c.CustomPrompts = u.CustomPrompts
	}
	if u.StoreTranscripts != nil {
		c.StoreTranscripts = *u.StoreTranscripts
	}
	if u.StoreRecordings != nil {
		c.StoreRecordings = *u.StoreRecordings
	}
	if u.RetentionDays != nil {
		c.RetentionDays = *u.RetentionDays
	}
	cp := *c
	return &cp, nil
}

func (m *MockTenantDirectory) ListPhoneNumbers(ctx context.Context, tenantID string) ([]domain.PhoneNumber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListPhoneNumbersErr != nil {
		return nil, m.ListPhoneNumbersErr
	}
	out := []domain.PhoneNumber{}
	for _, p := range m.PhoneNumbers {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockTenantDirectory) FindActivePhoneNumber(ctx context.Context, number string) (*domain.PhoneNumber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FindPhoneCalls++
	if m.FindPhoneNumberErr != nil {
		return nil, m.FindPhoneNumberErr
	}
	for _, p := range m.PhoneNumbers {
		if p.PhoneNumber == number && p.Status == domain.StatusActive {
			cp := p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

// MockPhoneTenantCache is an in-memory implementation of domain.PhoneTenantCache.
type MockPhoneTenantCache struct {
	mu      sync.Mutex
	Entries map[string]string
	GetErr  error
	SetErr  error
	DelErr  error
}

func (m *MockPhoneTenantCache) Get(ctx context.Context, number string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return "", false, m.GetErr
	}
	id, ok := m.Entries[number]
	return id, ok, nil
}

func (m *MockPhoneTenantCache) Set(ctx context.Context, number, tenantID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	if m.Entries == nil {
		m.Entries = make(map[string]string)
	}
	m.Entries[number] = tenantID
	return nil
}

func (m *MockPhoneTenantCache) Invalidate(ctx context.Context, number string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DelErr != nil {
		return m.DelErr
	}
	delete(m.Entries, number)
	return nil
}
