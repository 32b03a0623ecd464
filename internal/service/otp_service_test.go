package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/quizzo-backend/internal/models"
	"github.com/ignatzorin/quizzo-backend/internal/pkg/apperror"
	"github.com/ignatzorin/quizzo-backend/internal/repository"
)

// mockOTPRepository хранит коды в памяти.
type mockOTPRepository struct {
	mu       sync.Mutex
	records  map[uuid.UUID]*models.OTPRecord
	findCall int
}

func newMockOTPRepository() *mockOTPRepository {
	return &mockOTPRepository{records: make(map[uuid.UUID]*models.OTPRecord)}
}

func (m *mockOTPRepository) Create(ctx context.Context, rec *models.OTPRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = uuid.New()
	rec.CreatedAt = time.Now()
	cp := *rec
	m.records[rec.ID] = &cp
	return nil
}

func (m *mockOTPRepository) FindByCode(ctx context.Context, identifier, codeHash string) (*models.OTPRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCall++
	for _, rec := range m.records {
		if rec.Identifier == identifier && rec.CodeHash == codeHash {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, repository.ErrOTPNotFound
}

func (m *mockOTPRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

func (m *mockOTPRepository) DeleteByIdentifier(ctx context.Context, identifier string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, rec := range m.records {
		if rec.Identifier == identifier {
			delete(m.records, id)
		}
	}
	return nil
}

func (m *mockOTPRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, rec := range m.records {
		if rec.ExpiresAt.Before(before) {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

func (m *mockOTPRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *mockOTPRepository) finds() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findCall
}

type sentOTP struct {
	channel    models.OTPChannel
	identifier string
	code       string
}

// mockSender запоминает отправленные коды или возвращает err.
type mockSender struct {
	mu   sync.Mutex
	sent []sentOTP
	err  error
}

func (m *mockSender) SendOTP(ctx context.Context, channel models.OTPChannel, identifier, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentOTP{channel: channel, identifier: identifier, code: code})
	return nil
}

func (m *mockSender) last() sentOTP {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

// testClock - управляемые часы для сервисов.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestOTPService(production bool) (*OTPService, *mockOTPRepository, *mockSender, *testClock) {
	repo := newMockOTPRepository()
	sender := &mockSender{}
	clock := newTestClock()
	svc := NewOTPService(repo, sender, 10*time.Minute, production)
	svc.now = clock.Now
	return svc, repo, sender, clock
}

func TestGenerateCode_SixDigits(t *testing.T) {
	re := regexp.MustCompile(`^\d{6}$`)
	for i := 0; i < 500; i++ {
		code, err := generateCode()
		require.NoError(t, err)
		assert.Regexp(t, re, code)
	}
}

func TestOTPService_IssueReplacesPrevious(t *testing.T) {
	svc, repo, sender, clock := newTestOTPService(false)
	ctx := context.Background()

	first, err := svc.Issue(ctx, "+15551234567", models.OTPChannelPhone)
	require.NoError(t, err)
	assert.True(t, first.Delivered)
	assert.Equal(t, clock.Now().Add(10*time.Minute), first.ExpiresAt)
	assert.Equal(t, first.Code, sender.last().code)
	assert.Equal(t, models.OTPChannelPhone, sender.last().channel)

	second, err := svc.Issue(ctx, "+15551234567", models.OTPChannelPhone)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.count())

	if first.Code != second.Code {
		_, err = svc.Verify(ctx, "+15551234567", first.Code)
		assert.ErrorIs(t, err, apperror.ErrOTPNotFound)
	}
	_, err = svc.Verify(ctx, "+15551234567", second.Code)
	assert.NoError(t, err)
}

func TestOTPService_StoresHashNotCode(t *testing.T) {
	svc, repo, _, _ := newTestOTPService(false)

	issued, err := svc.Issue(context.Background(), "a@b.com", models.OTPChannelEmail)
	require.NoError(t, err)

	for _, rec := range repo.records {
		assert.NotEqual(t, issued.Code, rec.CodeHash)
		assert.Equal(t, hashCode(issued.Code), rec.CodeHash)
	}
}

func TestOTPService_VerifyDoesNotConsume(t *testing.T) {
	svc, repo, _, _ := newTestOTPService(false)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, "+15551234567", models.OTPChannelPhone)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		rec, err := svc.Verify(ctx, "+15551234567", issued.Code)
		require.NoError(t, err)
		assert.Equal(t, "+15551234567", rec.Identifier)
	}
	assert.Equal(t, 1, repo.count())
}

func TestOTPService_ConsumeDeletes(t *testing.T) {
	svc, repo, _, _ := newTestOTPService(false)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, "+15551234567", models.OTPChannelPhone)
	require.NoError(t, err)

	require.NoError(t, svc.Consume(ctx, "+15551234567", issued.Code))
	assert.Equal(t, 0, repo.count())

	err = svc.Consume(ctx, "+15551234567", issued.Code)
	assert.ErrorIs(t, err, apperror.ErrOTPNotFound)
}

func TestOTPService_WrongCodeOrIdentifier(t *testing.T) {
	svc, _, _, _ := newTestOTPService(false)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, "+15551234567", models.OTPChannelPhone)
	require.NoError(t, err)

	_, err = svc.Verify(ctx, "+15559999999", issued.Code)
	assert.ErrorIs(t, err, apperror.ErrOTPNotFound)

	wrong := "000000"
	if issued.Code == wrong {
		wrong = "111111"
	}
	_, err = svc.Verify(ctx, "+15551234567", wrong)
	assert.ErrorIs(t, err, apperror.ErrOTPNotFound)
}

func TestOTPService_ExpiredAfterElevenMinutes(t *testing.T) {
	svc, repo, _, clock := newTestOTPService(false)
	ctx := context.Background()

	issued, err := svc.Issue(ctx, "+15551234567", models.OTPChannelPhone)
	require.NoError(t, err)

	clock.Advance(11 * time.Minute)

	err = svc.Consume(ctx, "+15551234567", issued.Code)
	assert.ErrorIs(t, err, apperror.ErrOTPExpired)
	assert.Equal(t, 0, repo.count(), "просроченная запись удаляется при проверке")

	// повторная попытка уже не находит запись
	_, err = svc.Verify(ctx, "+15551234567", issued.Code)
	assert.ErrorIs(t, err, apperror.ErrOTPNotFound)
}

func TestOTPService_DeliveryFailure_Development(t *testing.T) {
	svc, repo, sender, _ := newTestOTPService(false)
	sender.err = errors.New("twilio down")
	ctx := context.Background()

	issued, err := svc.Issue(ctx, "+15551234567", models.OTPChannelPhone)
	require.NoError(t, err)
	assert.False(t, issued.Delivered)
	assert.Equal(t, 1, repo.count())

	_, err = svc.Verify(ctx, "+15551234567", issued.Code)
	assert.NoError(t, err)
}

func TestOTPService_DeliveryFailure_Production(t *testing.T) {
	svc, repo, sender, _ := newTestOTPService(true)
	sender.err = errors.New("twilio down")

	issued, err := svc.Issue(context.Background(), "+15551234567", models.OTPChannelPhone)
	assert.Nil(t, issued)
	assert.ErrorIs(t, err, apperror.ErrOTPDelivery)
	assert.Equal(t, 0, repo.count())
}

func TestOTPService_Sweep(t *testing.T) {
	svc, repo, _, clock := newTestOTPService(false)
	ctx := context.Background()

	_, err := svc.Issue(ctx, "old@x.com", models.OTPChannelEmail)
	require.NoError(t, err)
	clock.Advance(9 * time.Minute)
	_, err = svc.Issue(ctx, "new@x.com", models.OTPChannelEmail)
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)

	n, err := svc.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, repo.count())
}

func TestOTPService_StartCleanup(t *testing.T) {
	svc, repo, _, clock := newTestOTPService(false)

	_, err := svc.Issue(context.Background(), "+15551234567", models.OTPChannelPhone)
	require.NoError(t, err)
	clock.Advance(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.StartCleanup(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool { return repo.count() == 0 }, time.Second, 5*time.Millisecond)
}

func TestOTPService_OnIssued(t *testing.T) {
	svc, _, sender, _ := newTestOTPService(false)
	var got []bool
	svc.OnIssued(func(channel models.OTPChannel, delivered bool) {
		assert.Equal(t, models.OTPChannelPhone, channel)
		got = append(got, delivered)
	})

	_, err := svc.Issue(context.Background(), "+15551234567", models.OTPChannelPhone)
	require.NoError(t, err)
	sender.err = errors.New("down")
	_, err = svc.Issue(context.Background(), "+15551234567", models.OTPChannelPhone)
	require.NoError(t, err)

	assert.Equal(t, []bool{true, false}, got)
}
