package generate

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"contentforge/config"
	"contentforge/internal/archive"
	"contentforge/internal/ledger"
	"contentforge/internal/provider"
)

type fixture struct {
	storage *ledger.Storage
	archive *archive.Store
	mock    *provider.Mock
	svc     *Service
}

func newFixture(t *testing.T, mock *provider.Mock) *fixture {
	t.Helper()

	storage, err := ledger.NewStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	arch := archive.NewStore(storage.DB())
	svc := NewService(storage, arch, mock, mock, config.DefaultConfig())

	return &fixture{storage: storage, archive: arch, mock: mock, svc: svc}
}

func (f *fixture) account(t *testing.T, credits int64) int64 {
	t.Helper()

	acc, err := f.storage.Create(context.Background(), ledger.AccountInput{Name: "tester"}, credits)
	require.NoError(t, err)

	return acc.ID
}

func TestSubmitSuccess(t *testing.T) {
	mock := &provider.Mock{Response: "250 units of text about composting"}
	f := newFixture(t, mock)
	ctx := context.Background()

	id := f.account(t, 3)

	res, err := f.svc.Submit(ctx, id, Request{
		Prompt: "Write a short post about composting",
		Kind:   KindBlog,
		Tone:   ToneCasual,
		Length: LengthShort,
	})
	require.NoError(t, err)
	require.EqualValues(t, 2, res.Balance)
	require.Equal(t, "250 units of text about composting", res.Record.Content)
	require.Equal(t, "blog", res.Record.Kind)
	require.Equal(t, "casual", res.Record.Tone)
	require.Equal(t, "short", res.Record.Length)

	// Exactly one matching record in the archive
	records, err := f.archive.ListByAccount(ctx, id)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, res.Record.ID, records[0].ID)

	balance, err := f.storage.GetBalance(ctx, id)
	require.NoError(t, err)
	require.EqualValues(t, 2, balance)
}

func TestSubmitTitleTruncation(t *testing.T) {
	f := newFixture(t, &provider.Mock{})
	ctx := context.Background()

	id := f.account(t, 1)
	prompt := strings.Repeat("a", 60)

	res, err := f.svc.Submit(ctx, id, Request{Prompt: prompt})
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("a", 50)+"...", res.Record.Title)
}

func TestSubmitDefaults(t *testing.T) {
	f := newFixture(t, &provider.Mock{})
	ctx := context.Background()

	id := f.account(t, 1)

	res, err := f.svc.Submit(ctx, id, Request{Prompt: "anything"})
	require.NoError(t, err)
	require.Equal(t, "blog", res.Record.Kind)
	require.Equal(t, "professional", res.Record.Tone)
	require.Equal(t, "medium", res.Record.Length)
}

func TestSubmitInvalidInput(t *testing.T) {
	f := newFixture(t, &provider.Mock{})
	ctx := context.Background()

	id := f.account(t, 1)

	_, err := f.svc.Submit(ctx, id, Request{Prompt: "   "})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Submit(ctx, id, Request{Prompt: "ok", Kind: "poem"})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Submit(ctx, 0, Request{Prompt: "ok"})
	require.ErrorIs(t, err, ErrInvalidInput)

	require.Equal(t, 0, f.mock.TextCalls())
}

func TestSubmitUnknownAccount(t *testing.T) {
	f := newFixture(t, &provider.Mock{})

	_, err := f.svc.Submit(context.Background(), 12345, Request{Prompt: "hello"})
	require.ErrorIs(t, err, ledger.ErrNotFound)
	require.Equal(t, 0, f.mock.TextCalls())
}

func TestSubmitInsufficientCredit(t *testing.T) {
	f := newFixture(t, &provider.Mock{})
	ctx := context.Background()

	id := f.account(t, 0)

	_, err := f.svc.Submit(ctx, id, Request{Prompt: "hello"})
	require.ErrorIs(t, err, ErrInsufficientCredit)

	// Provider never invoked, archive untouched, balance unchanged
	require.Equal(t, 0, f.mock.TextCalls())

	records, err := f.archive.ListByAccount(ctx, id)
	require.NoError(t, err)
	require.Empty(t, records)

	balance, err := f.storage.GetBalance(ctx, id)
	require.NoError(t, err)
	require.EqualValues(t, 0, balance)
}

func TestSubmitProviderFailure(t *testing.T) {
	rateLimited := &provider.Error{Kind: provider.KindRateLimited, Err: errors.New("429")}
	f := newFixture(t, &provider.Mock{Err: rateLimited})
	ctx := context.Background()

	id := f.account(t, 3)

	_, err := f.svc.Submit(ctx, id, Request{Prompt: "hello"})
	require.Error(t, err)
	require.Equal(t, provider.KindRateLimited, provider.KindOf(err))

	// No ledger mutation, no archive record
	balance, err := f.storage.GetBalance(ctx, id)
	require.NoError(t, err)
	require.EqualValues(t, 3, balance)

	records, err := f.archive.ListByAccount(ctx, id)
	require.NoError(t, err)
	require.Empty(t, records)
}

type failingArchive struct{}

func (failingArchive) Append(context.Context, *archive.Record) (string, error) {
	return "", archive.ErrPersistence
}

func TestSubmitPersistenceFailure(t *testing.T) {
	f := newFixture(t, &provider.Mock{})
	ctx := context.Background()

	id := f.account(t, 3)
	f.svc = NewService(f.storage, failingArchive{}, f.mock, f.mock, config.DefaultConfig())

	_, err := f.svc.Submit(ctx, id, Request{Prompt: "hello"})
	require.ErrorIs(t, err, archive.ErrPersistence)

	// An un-persisted generation must never cost a credit
	balance, err := f.storage.GetBalance(ctx, id)
	require.NoError(t, err)
	require.EqualValues(t, 3, balance)
}

// captureLog redirects the standard logger to a buffer for one test
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	return &buf
}

// memoryArchive records appends in memory
type memoryArchive struct {
	records []*archive.Record
}

func (a *memoryArchive) Append(_ context.Context, rec *archive.Record) (string, error) {
	rec.ID = "rec-1"
	a.records = append(a.records, rec)
	return rec.ID, nil
}

// racedLedger simulates a balance that hit zero between the eligibility
// check and the decrement
type racedLedger struct{}

func (racedLedger) GetBalance(context.Context, int64) (int64, error) {
	return 1, nil
}

func (racedLedger) TryDecrement(context.Context, int64) (int64, bool, error) {
	return 0, false, nil
}

// erroringLedger fails the decrement after the artifact is durable
type erroringLedger struct{}

func (erroringLedger) GetBalance(context.Context, int64) (int64, error) {
	return 3, nil
}

func (erroringLedger) TryDecrement(context.Context, int64) (int64, bool, error) {
	return 0, false, errors.New("ledger write failed")
}

func TestSubmitGraceWindowDeliversResult(t *testing.T) {
	buf := captureLog(t)
	arch := &memoryArchive{}
	svc := NewService(racedLedger{}, arch, &provider.Mock{Response: "delivered"}, &provider.Mock{}, config.DefaultConfig())

	res, err := svc.Submit(context.Background(), 1, Request{Prompt: "race for the last credit"})
	require.NoError(t, err)
	require.Equal(t, "delivered", res.Record.Content)
	require.EqualValues(t, 0, res.Balance)

	// The record is durable and the anomaly is logged, not failed
	require.Len(t, arch.records, 1)
	require.Contains(t, buf.String(), "grace generation")
}

func TestSubmitDecrementFailureDeliversResult(t *testing.T) {
	buf := captureLog(t)
	arch := &memoryArchive{}
	svc := NewService(erroringLedger{}, arch, &provider.Mock{Response: "delivered"}, &provider.Mock{}, config.DefaultConfig())

	res, err := svc.Submit(context.Background(), 1, Request{Prompt: "hello"})
	require.NoError(t, err)
	require.Equal(t, "delivered", res.Record.Content)
	require.EqualValues(t, 2, res.Balance)
	require.Len(t, arch.records, 1)
	require.Contains(t, buf.String(), "decrement failed")
}

func TestSubmitUnknownProviderFailureLogged(t *testing.T) {
	buf := captureLog(t)
	unknown := &provider.Error{Kind: provider.KindUnknown, Err: errors.New("mystery")}
	f := newFixture(t, &provider.Mock{Err: unknown})

	id := f.account(t, 1)

	_, err := f.svc.Submit(context.Background(), id, Request{Prompt: "hello"})
	require.Error(t, err)
	require.Equal(t, provider.KindUnknown, provider.KindOf(err))
	require.Contains(t, buf.String(), "unclassified provider failure")
}

func TestSubmitConcurrentLastCredit(t *testing.T) {
	f := newFixture(t, &provider.Mock{})
	ctx := context.Background()

	id := f.account(t, 1)

	var wg sync.WaitGroup
	errs := make(chan error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Submit(ctx, id, Request{Prompt: "race for the last credit"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else {
			// The only acceptable failure is losing the eligibility check
			require.ErrorIs(t, err, ErrInsufficientCredit)
		}
	}
	require.GreaterOrEqual(t, succeeded, 1)

	// Balance never goes negative and never double-decrements
	balance, err := f.storage.GetBalance(ctx, id)
	require.NoError(t, err)
	require.EqualValues(t, 0, balance)
}

func TestGenerateImage(t *testing.T) {
	mock := &provider.Mock{Image: []byte{0x89, 0x50, 0x4e, 0x47}}
	f := newFixture(t, mock)
	ctx := context.Background()

	id := f.account(t, 0)

	payload, err := f.svc.GenerateImage(ctx, "a lighthouse at dusk")
	require.NoError(t, err)
	require.Equal(t, mock.Image, payload)
	require.Equal(t, 1, mock.ImageCalls())

	// Image generation is free: balance and archive untouched
	balance, err := f.storage.GetBalance(ctx, id)
	require.NoError(t, err)
	require.EqualValues(t, 0, balance)

	_, err = f.svc.GenerateImage(ctx, " ")
	require.ErrorIs(t, err, ErrInvalidInput)
}
