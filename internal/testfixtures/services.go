package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/meetings-dashboard/internal/application"
)

// fastArgon2id keeps password hashing cheap in tests while still exercising
// the real argon2id encoding.
var fastArgon2id = application.Argon2idParams{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  8,
	KeyLength:   16,
}

// ServiceFactory builds application services on a shared clock, ID
// sequence and event broker.
type ServiceFactory struct {
	Clock  *Clock
	IDs    *Sequence
	Tokens *Sequence
	Events *application.EventBroker
	Logger *slog.Logger
}

type ServiceFactoryOption func(*ServiceFactory)

func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDs == nil {
		factory.IDs = NewSequence("id")
	}
	if factory.Tokens == nil {
		factory.Tokens = NewSequence("token")
	}
	if factory.Events == nil {
		factory.Events = application.NewEventBroker(16, factory.Logger)
	}
	return factory
}

func WithClock(clock *Clock) ServiceFactoryOption {
	return func(f *ServiceFactory) { f.Clock = clock }
}

func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(f *ServiceFactory) { f.Logger = logger }
}

// AuthServiceDeps names the stores an auth service needs. A zero SessionTTL
// means one day.
type AuthServiceDeps struct {
	Credentials application.CredentialStore
	Sessions    application.SessionRepository
	SessionTTL  time.Duration
}

// NewAuthService returns an auth service hashing with cheap argon2id
// parameters and minting tokens from the factory's token sequence.
func (f *ServiceFactory) NewAuthService(deps AuthServiceDeps) *application.AuthService {
	ttl := deps.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return application.NewAuthServiceWithLogger(
		deps.Credentials,
		deps.Sessions,
		f.Events,
		f.IDs.NextFunc(),
		f.Tokens.NextFunc(),
		f.Clock.NowFunc(),
		ttl,
		f.Logger,
	).WithPasswordHashing(application.NewArgon2idHasher(fastArgon2id), nil)
}

func (f *ServiceFactory) NewMeetingService(meetings application.MeetingRepository) *application.MeetingService {
	return application.NewMeetingServiceWithLogger(meetings, f.Events, f.IDs.NextFunc(), f.Clock.NowFunc(), f.Logger)
}
