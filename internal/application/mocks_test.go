package application_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	bookingDomain "github.com/DriveShare-Marketplace/service-rental/internal/domain/booking"
	carDomain "github.com/DriveShare-Marketplace/service-rental/internal/domain/car"
	"github.com/DriveShare-Marketplace/service-rental/internal/domain/payment"
	"github.com/DriveShare-Marketplace/service-rental/internal/domain/user"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/kafka"
)

type bookingRepoMock struct {
	findByIDFn             func(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error)
	findByIntentIDFn       func(ctx context.Context, intentID string) (*bookingDomain.Booking, error)
	findOverlappingFn      func(ctx context.Context, carID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (*bookingDomain.Booking, error)
	createIfAvailableFn    func(ctx context.Context, b *bookingDomain.Booking) (*bookingDomain.Booking, error)
	findByRenterIDFn       func(ctx context.Context, renterID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error)
	findByOwnerIDFn        func(ctx context.Context, ownerID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error)
	listAllFn              func(ctx context.Context, page, limit int) ([]*bookingDomain.Booking, int64, error)
	countByStatusFn        func(ctx context.Context) (map[string]int64, error)
	updateFn               func(ctx context.Context, b *bookingDomain.Booking) error
	findDueForActivationFn func(ctx context.Context, now time.Time) ([]*bookingDomain.Booking, error)
	findDueForCompletionFn func(ctx context.Context, now time.Time) ([]*bookingDomain.Booking, error)
	findStaleFn            func(ctx context.Context, now time.Time) ([]*bookingDomain.Booking, error)
	countRatingsFn         func(ctx context.Context, carID uuid.UUID) (int64, int64, error)
}

func (m *bookingRepoMock) FindByID(ctx context.Context, id uuid.UUID) (*bookingDomain.Booking, error) {
	return m.findByIDFn(ctx, id)
}
func (m *bookingRepoMock) FindByIntentID(ctx context.Context, intentID string) (*bookingDomain.Booking, error) {
	return m.findByIntentIDFn(ctx, intentID)
}
func (m *bookingRepoMock) FindOverlapping(ctx context.Context, carID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (*bookingDomain.Booking, error) {
	return m.findOverlappingFn(ctx, carID, start, end, excludeID)
}
func (m *bookingRepoMock) CreateIfAvailable(ctx context.Context, b *bookingDomain.Booking) (*bookingDomain.Booking, error) {
	return m.createIfAvailableFn(ctx, b)
}
func (m *bookingRepoMock) FindByRenterID(ctx context.Context, renterID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return m.findByRenterIDFn(ctx, renterID, page, limit)
}
func (m *bookingRepoMock) FindByOwnerID(ctx context.Context, ownerID uuid.UUID, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return m.findByOwnerIDFn(ctx, ownerID, page, limit)
}
func (m *bookingRepoMock) ListAll(ctx context.Context, page, limit int) ([]*bookingDomain.Booking, int64, error) {
	return m.listAllFn(ctx, page, limit)
}
func (m *bookingRepoMock) CountByStatus(ctx context.Context) (map[string]int64, error) {
	return m.countByStatusFn(ctx)
}
func (m *bookingRepoMock) Update(ctx context.Context, b *bookingDomain.Booking) error {
	return m.updateFn(ctx, b)
}
func (m *bookingRepoMock) FindDueForActivation(ctx context.Context, now time.Time) ([]*bookingDomain.Booking, error) {
	return m.findDueForActivationFn(ctx, now)
}
func (m *bookingRepoMock) FindDueForCompletion(ctx context.Context, now time.Time) ([]*bookingDomain.Booking, error) {
	return m.findDueForCompletionFn(ctx, now)
}
func (m *bookingRepoMock) FindStale(ctx context.Context, now time.Time) ([]*bookingDomain.Booking, error) {
	return m.findStaleFn(ctx, now)
}
func (m *bookingRepoMock) CountRatings(ctx context.Context, carID uuid.UUID) (int64, int64, error) {
	return m.countRatingsFn(ctx, carID)
}

type carRepoMock struct {
	findByIDFn      func(ctx context.Context, id uuid.UUID) (*carDomain.Car, error)
	findByPlateFn   func(ctx context.Context, plateNumber string) (*carDomain.Car, error)
	findByOwnerIDFn func(ctx context.Context, ownerID uuid.UUID, page, limit int) ([]*carDomain.Car, int64, error)
	listByStatusFn  func(ctx context.Context, status carDomain.Status, page, limit int) ([]*carDomain.Car, int64, error)
	saveFn          func(ctx context.Context, c *carDomain.Car) error
	updateFn        func(ctx context.Context, c *carDomain.Car) error
}

func (m *carRepoMock) FindByID(ctx context.Context, id uuid.UUID) (*carDomain.Car, error) {
	return m.findByIDFn(ctx, id)
}
func (m *carRepoMock) FindByPlate(ctx context.Context, plateNumber string) (*carDomain.Car, error) {
	return m.findByPlateFn(ctx, plateNumber)
}
func (m *carRepoMock) FindByOwnerID(ctx context.Context, ownerID uuid.UUID, page, limit int) ([]*carDomain.Car, int64, error) {
	return m.findByOwnerIDFn(ctx, ownerID, page, limit)
}
func (m *carRepoMock) ListByStatus(ctx context.Context, status carDomain.Status, page, limit int) ([]*carDomain.Car, int64, error) {
	return m.listByStatusFn(ctx, status, page, limit)
}
func (m *carRepoMock) Save(ctx context.Context, c *carDomain.Car) error { return m.saveFn(ctx, c) }
func (m *carRepoMock) Update(ctx context.Context, c *carDomain.Car) error {
	return m.updateFn(ctx, c)
}

type userRepoMock struct {
	findByIDFn            func(ctx context.Context, id uuid.UUID) (*user.User, error)
	findByEmailFn         func(ctx context.Context, email string) (*user.User, error)
	listPendingApprovalFn func(ctx context.Context, page, limit int) ([]*user.User, int64, error)
	saveFn                func(ctx context.Context, u *user.User) error
	updateFn              func(ctx context.Context, u *user.User) error
}

func (m *userRepoMock) FindByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return m.findByIDFn(ctx, id)
}
func (m *userRepoMock) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return m.findByEmailFn(ctx, email)
}
func (m *userRepoMock) ListPendingApproval(ctx context.Context, page, limit int) ([]*user.User, int64, error) {
	return m.listPendingApprovalFn(ctx, page, limit)
}
func (m *userRepoMock) Save(ctx context.Context, u *user.User) error   { return m.saveFn(ctx, u) }
func (m *userRepoMock) Update(ctx context.Context, u *user.User) error { return m.updateFn(ctx, u) }

// lockerMock hands out the lease immediately and counts acquisitions.
type lockerMock struct {
	mu       sync.Mutex
	acquired []string
}

func (m *lockerMock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	m.mu.Lock()
	m.acquired = append(m.acquired, key)
	m.mu.Unlock()
	return func() {}, nil
}

// publisherMock records published events per topic.
type publisherMock struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	Topic string
	Event kafka.CloudEvent
}

func (m *publisherMock) PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, publishedEvent{Topic: topic, Event: event})
	return nil
}

func (m *publisherMock) typesOn(topic string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var types []string
	for _, e := range m.events {
		if e.Topic == topic {
			types = append(types, e.Event.Type)
		}
	}
	return types
}

type providerMock struct {
	createIntentFn   func(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*payment.Intent, error)
	retrieveIntentFn func(ctx context.Context, id string) (*payment.Intent, error)
	verifyFn         func(rawPayload []byte, signature string) (*payment.Event, error)
}

func (m *providerMock) CreateIntent(ctx context.Context, amountCents int64, currency string, metadata map[string]string) (*payment.Intent, error) {
	return m.createIntentFn(ctx, amountCents, currency, metadata)
}
func (m *providerMock) RetrieveIntent(ctx context.Context, id string) (*payment.Intent, error) {
	return m.retrieveIntentFn(ctx, id)
}
func (m *providerMock) VerifyWebhookSignature(rawPayload []byte, signature string) (*payment.Event, error) {
	return m.verifyFn(rawPayload, signature)
}

type notifierMock struct {
	mu   sync.Mutex
	sent []sentMail
}

type sentMail struct {
	Template  string
	Recipient string
	Data      map[string]interface{}
}

func (m *notifierMock) SendEmail(ctx context.Context, template, recipient string, data map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{Template: template, Recipient: recipient, Data: data})
	return nil
}

type imageStoreMock struct {
	uploadFn func(ctx context.Context, files [][]byte) ([]string, error)
	deleteFn func(ctx context.Context, urls []string) error

	mu      sync.Mutex
	deleted [][]string
}

func (m *imageStoreMock) UploadFiles(ctx context.Context, files [][]byte) ([]string, error) {
	return m.uploadFn(ctx, files)
}

func (m *imageStoreMock) DeleteFiles(ctx context.Context, urls []string) error {
	m.mu.Lock()
	m.deleted = append(m.deleted, urls)
	m.mu.Unlock()
	if m.deleteFn != nil {
		return m.deleteFn(ctx, urls)
	}
	return nil
}
