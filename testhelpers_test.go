//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/DriveShare-Marketplace/service-rental/internal/application"
	bookingDomain "github.com/DriveShare-Marketplace/service-rental/internal/domain/booking"
	carDomain "github.com/DriveShare-Marketplace/service-rental/internal/domain/car"
	"github.com/DriveShare-Marketplace/service-rental/internal/domain/user"
	rentalEvents "github.com/DriveShare-Marketplace/service-rental/internal/events"
	"github.com/DriveShare-Marketplace/service-rental/internal/gateway/payments"
	"github.com/DriveShare-Marketplace/service-rental/internal/notify"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/auth"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/kafka"
	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/lock"
	"github.com/DriveShare-Marketplace/service-rental/internal/repository"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	Redis        *goredis.Client
	KafkaBrokers []string
	Cleanup      func()
}

// rentalStack holds wired-up rental service components.
type rentalStack struct {
	Bookings        *application.BookingService
	Payments        *application.PaymentService
	Users           user.UserRepository
	Cars            carDomain.CarRepository
	CleanupProducer func()
}

// setupContainers starts PostgreSQL, Redis and Kafka testcontainers and
// returns a connected GORM DB.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	// Start PostgreSQL container with log-based wait strategy.
	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_rental",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=test_rental sslmode=disable", pgHost, pgPort.Port())

	// Poll until GORM can actually connect and ping.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return false
		}
		sqlDB, err := db.DB()
		if err != nil {
			return false
		}
		return sqlDB.Ping() == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, db.AutoMigrate(
		&repository.UserModel{},
		&repository.CarModel{},
		&repository.BookingModel{},
	))

	// Start Redis for the per-car booking lease.
	redisReq := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForLog("Ready to accept connections").
			WithStartupTimeout(30 * time.Second),
	}
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: redisReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start Redis container")

	redisHost, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	redisPort, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)
	redisClient := goredis.NewClient(&goredis.Options{
		Addr: net.JoinHostPort(redisHost, redisPort.Port()),
	})

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	// Pre-create required topics.
	createTopics(t, kafkaBrokers, rentalEvents.TopicBookingEvents, rentalEvents.TopicPaymentEvents)

	cleanup := func() {
		_ = redisClient.Close()
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		if err := redisContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Redis container: %v", err)
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}

	return &testInfra{
		DB:           db,
		Redis:        redisClient,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// setupRentalStack wires up the booking and payment services against the
// containers. providerURL points at a stubbed payment provider API.
func setupRentalStack(t *testing.T, infra *testInfra, providerURL, webhookSecret string) *rentalStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	users := repository.NewGormUserRepository(infra.DB)
	cars := repository.NewGormCarRepository(infra.DB)
	bookings := repository.NewGormBookingRepository(infra.DB)

	checker := bookingDomain.NewAvailabilityChecker(bookings)
	policy := bookingDomain.NewStandardCancellationPolicy()
	locker := lock.NewRedisLocker(infra.Redis)
	producer := kafka.NewProducer(infra.KafkaBrokers, logger)

	bookingSvc := application.NewBookingService(bookings, cars, users, checker, policy, locker, producer, logger)

	provider := payments.NewClient(providerURL, "sk_test", webhookSecret, logger)
	notifier := notify.NewLogNotifier(logger)
	paymentSvc := application.NewPaymentService(bookings, users, provider, notifier, producer, application.BankAccount{
		BankName: "Test Bank",
		IBAN:     "AE070331234567890123456",
	}, logger)

	return &rentalStack{
		Bookings:        bookingSvc,
		Payments:        paymentSvc,
		Users:           users,
		Cars:            cars,
		CleanupProducer: func() { _ = producer.Close() },
	}
}

// seedApprovedUser inserts an approved account.
func seedApprovedUser(t *testing.T, users user.UserRepository, role auth.Role) *user.User {
	t.Helper()
	u, err := user.NewUser(fmt.Sprintf("%s-%s@example.com", role, uuid.New().String()[:8]), "$2a$10$testhash", "Integration User", "", role)
	require.NoError(t, err)
	u.Approve()
	require.NoError(t, users.Save(context.Background(), u))
	return u
}

// seedActiveCar inserts an active listing for the owner.
func seedActiveCar(t *testing.T, cars carDomain.CarRepository, ownerID uuid.UUID) *carDomain.Car {
	t.Helper()
	c, err := carDomain.NewCar(
		ownerID, "Toyota", "Corolla", 2022,
		fmt.Sprintf("INT-%s", uuid.New().String()[:6]),
		30000, 100000, 0,
		"AED", "Dubai Marina", "integration test car", nil,
	)
	require.NoError(t, err)
	require.NoError(t, c.SetStatus(carDomain.StatusActive))
	require.NoError(t, cars.Save(context.Background(), c))
	return c
}

// seedBookingRow inserts a booking row directly, bypassing the service
// layer, so the lifecycle sweep queries can be exercised with past dates.
func seedBookingRow(t *testing.T, db *gorm.DB, status, paymentStatus string, start, end time.Time) uuid.UUID {
	t.Helper()
	now := time.Now().UTC()
	model := repository.BookingModel{
		ID:                   uuid.New(),
		RenterID:             uuid.New(),
		CarID:                uuid.New(),
		CarOwnerID:           uuid.New(),
		StartDate:            start,
		EndDate:              end,
		TotalDays:            int(end.Sub(start).Hours() / 24),
		DailyRateCents:       30000,
		TotalAmountCents:     90000,
		SecurityDepositCents: 100000,
		TotalPayableCents:    190000,
		Currency:             "AED",
		Status:               status,
		PaymentMethod:        "card",
		PaymentStatus:        paymentStatus,
		Version:              1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	require.NoError(t, db.Create(&model).Error)
	return model.ID
}

func bookingIDs(bookings []*bookingDomain.Booking) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.ID())
	}
	return ids
}

// waitForBookingStatus polls the bookings table until the status matches.
func waitForBookingStatus(t *testing.T, db *gorm.DB, bookingID uuid.UUID, expectedStatus string, timeout time.Duration) repository.BookingModel {
	t.Helper()
	var result repository.BookingModel
	require.Eventually(t, func() bool {
		var model repository.BookingModel
		if err := db.Where("id = ?", bookingID).First(&model).Error; err != nil {
			return false
		}
		if model.Status == expectedStatus {
			result = model
			return true
		}
		return false
	}, timeout, 200*time.Millisecond, "booking did not reach status %s", expectedStatus)
	return result
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
