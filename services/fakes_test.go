package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/komunitas/platform/database"
	"github.com/komunitas/platform/events"
	"github.com/komunitas/platform/models"
	"github.com/komunitas/platform/payments"
	"gorm.io/gorm"
)

type memStore struct {
	mu            sync.Mutex
	users         map[uuid.UUID]*models.User
	whitelist     map[string]models.Whitelist
	otps          []*models.OTPCode
	activities    map[uuid.UUID]*models.Activity
	registrations map[uuid.UUID]*models.ActivityRegistration
	merchandise   map[uuid.UUID]*models.Merchandise
	orders        map[uuid.UUID]*models.Order
	addresses     map[uuid.UUID]*models.Address
	notifications []models.PaymentNotification
	receipts      map[uuid.UUID]string
}

func newMemStore() *memStore {
	return &memStore{
		users:         map[uuid.UUID]*models.User{},
		whitelist:     map[string]models.Whitelist{},
		activities:    map[uuid.UUID]*models.Activity{},
		registrations: map[uuid.UUID]*models.ActivityRegistration{},
		merchandise:   map[uuid.UUID]*models.Merchandise{},
		orders:        map[uuid.UUID]*models.Order{},
		addresses:     map[uuid.UUID]*models.Address{},
		receipts:      map[uuid.UUID]string{},
	}
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (s *memStore) addUser(name, phone string) *models.User {
	u := &models.User{ID: uuid.New(), FullName: name, Phone: phone, Role: models.RoleMember, IsActive: true}
	s.users[u.ID] = u
	return u
}

func (s *memStore) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) GetUserByPhone(_ context.Context, phone string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Phone == phone {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ensureID(&u.ID)
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *memStore) UpdateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *memStore) CreateOTP(_ context.Context, otp *models.OTPCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ensureID(&otp.ID)
	cp := *otp
	s.otps = append(s.otps, &cp)
	return nil
}

func (s *memStore) LatestOTP(_ context.Context, phone string) (*models.OTPCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.otps) - 1; i >= 0; i-- {
		if o := s.otps[i]; o.Phone == phone && o.ConsumedAt == nil {
			cp := *o
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memStore) SaveOTP(_ context.Context, otp *models.OTPCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.otps {
		if o.ID == otp.ID {
			o.Attempts = otp.Attempts
			o.ConsumedAt = otp.ConsumedAt
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *memStore) IsWhitelisted(_ context.Context, phone string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.whitelist[phone]
	return ok, nil
}

func (s *memStore) ListWhitelist(_ context.Context, _ string) ([]models.Whitelist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Whitelist
	for _, w := range s.whitelist {
		out = append(out, w)
	}
	return out, nil
}

func (s *memStore) AddWhitelist(_ context.Context, entries []models.Whitelist) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var added int64
	for _, e := range entries {
		if _, ok := s.whitelist[e.Phone]; ok {
			continue
		}
		ensureID(&e.ID)
		s.whitelist[e.Phone] = e
		added++
	}
	return added, nil
}

func (s *memStore) DeleteWhitelist(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for phone, w := range s.whitelist {
		if w.ID == id {
			delete(s.whitelist, phone)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (s *memStore) ListActivities(_ context.Context, status models.ActivityStatus) ([]models.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Activity
	for _, a := range s.activities {
		if status == "" || a.Status == status {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *memStore) GetActivity(_ context.Context, id uuid.UUID) (*models.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.activities[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *memStore) GetActivityBySlug(_ context.Context, slug string) (*models.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.activities {
		if a.Slug == slug {
			cp := *a
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memStore) ActivitySlugTaken(_ context.Context, slug string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.activities {
		if a.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) CreateActivity(_ context.Context, a *models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ensureID(&a.ID)
	cp := *a
	s.activities[a.ID] = &cp
	return nil
}

func (s *memStore) SaveActivity(ctx context.Context, a *models.Activity) error {
	return s.CreateActivity(ctx, a)
}

func (s *memStore) DeleteActivity(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.activities[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(s.activities, id)
	return nil
}

func (s *memStore) ListAutoStatusActivities(_ context.Context) ([]models.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Activity
	for _, a := range s.activities {
		if !a.StatusManual && a.Status != models.ActivityCompleted {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *memStore) UpdateActivityStatus(_ context.Context, id uuid.UUID, status models.ActivityStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities[id].Status = status
	return nil
}

func (s *memStore) CountPaidRegistrations(_ context.Context, activityID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, r := range s.registrations {
		if r.ActivityID == activityID && r.Status == models.RegistrationPaid {
			n++
		}
	}
	return n, nil
}

func (s *memStore) CreateRegistration(_ context.Context, r *models.ActivityRegistration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ensureID(&r.ID)
	cp := *r
	s.registrations[r.ID] = &cp
	return nil
}

func (s *memStore) GetRegistration(_ context.Context, id uuid.UUID) (*models.ActivityRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.registrations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *r
	if u, ok := s.users[r.UserID]; ok {
		cp.User = *u
	}
	if a, ok := s.activities[r.ActivityID]; ok {
		cp.Activity = *a
	}
	return &cp, nil
}

func (s *memStore) ListRegistrationsByUser(_ context.Context, userID uuid.UUID) ([]models.ActivityRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ActivityRegistration
	for _, r := range s.registrations {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *memStore) ListRegistrations(_ context.Context, activityID *uuid.UUID, f database.ListFilter) ([]models.ActivityRegistration, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ActivityRegistration
	for _, r := range s.registrations {
		if (f.Status == "" || string(r.Status) == f.Status) && (activityID == nil || r.ActivityID == *activityID) {
			out = append(out, *r)
		}
	}
	return out, int64(len(out)), nil
}

func (s *memStore) SetRegistrationGateway(_ context.Context, id uuid.UUID, token, redirectURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.registrations[id]
	r.SnapToken = &token
	r.RedirectURL = &redirectURL
	return nil
}

func (s *memStore) TransitionRegistration(_ context.Context, r *models.ActivityRegistration, from models.RegistrationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.registrations[r.ID]
	if !ok || stored.Status != from {
		return fmt.Errorf("%w: registration %s", models.ErrStaleStatus, r.ID)
	}
	stored.Status = r.Status
	stored.PaidAt = r.PaidAt
	stored.GatewayTransactionID = r.GatewayTransactionID
	return nil
}

func (s *memStore) SetRegistrationReceipt(_ context.Context, id uuid.UUID, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts[id] = url
	if r, ok := s.registrations[id]; ok {
		r.ReceiptURL = &url
	}
	return nil
}

func (s *memStore) ListMerchandise(_ context.Context, category string, activeOnly bool) ([]models.Merchandise, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Merchandise
	for _, m := range s.merchandise {
		if (!activeOnly || m.IsActive) && (category == "" || m.Category == category) {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *memStore) GetMerchandise(_ context.Context, id uuid.UUID) (*models.Merchandise, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.merchandise[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *memStore) CreateMerchandise(_ context.Context, m *models.Merchandise) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ensureID(&m.ID)
	cp := *m
	s.merchandise[m.ID] = &cp
	return nil
}

func (s *memStore) SaveMerchandise(ctx context.Context, m *models.Merchandise) error {
	return s.CreateMerchandise(ctx, m)
}

func (s *memStore) CreateOrder(_ context.Context, o *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ensureID(&o.ID)
	cp := *o
	cp.Address = nil
	s.orders[o.ID] = &cp
	return nil
}

func (s *memStore) GetOrder(_ context.Context, id uuid.UUID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *o
	if u, ok := s.users[o.UserID]; ok {
		cp.User = *u
	}
	if m, ok := s.merchandise[o.MerchandiseID]; ok {
		cp.Merchandise = *m
	}
	if o.AddressID != nil {
		if a, ok := s.addresses[*o.AddressID]; ok {
			ac := *a
			cp.Address = &ac
		}
	}
	return &cp, nil
}

func (s *memStore) ListOrdersByUser(_ context.Context, userID uuid.UUID) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *memStore) ListOrders(_ context.Context, f database.ListFilter) ([]models.Order, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.orders {
		if f.Status == "" || string(o.Status) == f.Status {
			out = append(out, *o)
		}
	}
	return out, int64(len(out)), nil
}

func (s *memStore) SetOrderGateway(_ context.Context, id uuid.UUID, token, redirectURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.orders[id]
	o.SnapToken = &token
	o.RedirectURL = &redirectURL
	return nil
}

func (s *memStore) TransitionOrder(_ context.Context, o *models.Order, from models.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.orders[o.ID]
	if !ok || stored.Status != from {
		return fmt.Errorf("%w: order %s", models.ErrStaleStatus, o.ID)
	}
	stored.Status = o.Status
	stored.PaidAt = o.PaidAt
	stored.ShippedAt = o.ShippedAt
	stored.CompletedAt = o.CompletedAt
	stored.Courier = o.Courier
	stored.TrackingNumber = o.TrackingNumber
	stored.GatewayTransactionID = o.GatewayTransactionID
	return nil
}

func (s *memStore) ListAddresses(_ context.Context, userID uuid.UUID) ([]models.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Address
	for _, a := range s.addresses {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *memStore) GetAddress(_ context.Context, id uuid.UUID) (*models.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.addresses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *memStore) CountAddresses(_ context.Context, userID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, a := range s.addresses {
		if a.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *memStore) CreateAddress(_ context.Context, a *models.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ensureID(&a.ID)
	cp := *a
	s.addresses[a.ID] = &cp
	return nil
}

func (s *memStore) SaveAddress(ctx context.Context, a *models.Address) error {
	return s.CreateAddress(ctx, a)
}

func (s *memStore) DeleteAddress(_ context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.addresses[id]
	if !ok || a.UserID != userID {
		return gorm.ErrRecordNotFound
	}
	delete(s.addresses, id)
	return nil
}

func (s *memStore) SetDefaultAddress(_ context.Context, userID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.addresses[id]
	if !ok || a.UserID != userID {
		return gorm.ErrRecordNotFound
	}
	for _, other := range s.addresses {
		if other.UserID == userID {
			other.IsDefault = other.ID == id
		}
	}
	return nil
}

func (s *memStore) SavePaymentNotification(_ context.Context, n *models.PaymentNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, *n)
	return nil
}

func (s *memStore) PendingOrders(_ context.Context, before time.Time, withGateway bool) ([]models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Order
	for _, o := range s.orders {
		if o.Status == models.OrderPending && o.CreatedAt.Before(before) && (o.SnapToken != nil) == withGateway {
			out = append(out, *o)
		}
	}
	return out, nil
}

type fakeGateway struct {
	mu       sync.Mutex
	err      error
	requests []payments.TransactionRequest
	statuses map[string]*payments.StatusResult
}

func (g *fakeGateway) CreateTransaction(req payments.TransactionRequest) (*payments.Transaction, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	return &payments.Transaction{
		Token:       "tok-" + req.Reference,
		RedirectURL: "https://app.sandbox.midtrans.com/snap/v4/redirection/" + req.Reference,
	}, nil
}

func (g *fakeGateway) CheckStatus(reference string) (*payments.StatusResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, ok := g.statuses[reference]
	if !ok {
		return nil, errors.New("connection refused")
	}
	if st == nil {
		return nil, payments.ErrTransactionNotFound
	}
	return st, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.StatusChanged
}

func (p *recordingPublisher) Publish(_ context.Context, evt events.StatusChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) all() []events.StatusChanged {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.StatusChanged(nil), p.events...)
}
