package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inbox-scorer-go/internal/classifier"
	"inbox-scorer-go/internal/config"
	"inbox-scorer-go/internal/mailbox"
	"inbox-scorer-go/internal/model"
)

type fakeSource struct {
	ids      []string
	listErr  error
	messages map[string]mailbox.Message
	fetchErr map[string]error
}

func (f *fakeSource) ListCandidates(ctx context.Context, filter string, maxResults int64) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.ids, nil
}

func (f *fakeSource) FetchMessage(ctx context.Context, id string) (mailbox.Message, error) {
	if err := f.fetchErr[id]; err != nil {
		return mailbox.Message{}, err
	}
	return f.messages[id], nil
}

func (f *fakeSource) Close() error { return nil }

type fakeStore struct {
	records   map[string]*model.Email
	existsErr map[string]error
	upsertErr map[string]error
	upserted  []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]*model.Email)}
}

func (f *fakeStore) Exists(messageID string) (bool, bool, error) {
	if err := f.existsErr[messageID]; err != nil {
		return false, false, err
	}
	record, ok := f.records[messageID]
	if !ok {
		return false, false, nil
	}
	return true, record.HasScores(), nil
}

func (f *fakeStore) Upsert(record *model.Email) error {
	if err := f.upsertErr[record.MessageID]; err != nil {
		return err
	}
	f.upserted = append(f.upserted, record.MessageID)
	saved := *record
	if existing, ok := f.records[record.MessageID]; ok && !record.HasScores() {
		saved.AIScore = existing.AIScore
		saved.HumanScore = existing.HumanScore
	}
	f.records[record.MessageID] = &saved
	return nil
}

func (f *fakeStore) Recent(limit int) ([]model.Email, error) {
	var emails []model.Email
	for _, record := range f.records {
		emails = append(emails, *record)
	}
	return emails, nil
}

type spyClassifier struct {
	results map[string]classifier.Result
	calls   []string
}

func (s *spyClassifier) Classify(ctx context.Context, text string) classifier.Result {
	s.calls = append(s.calls, text)
	if result, ok := s.results[text]; ok {
		return result
	}
	return classifier.Result{Status: classifier.StatusScored, AIProbability: 0.5, HumanProbability: 0.5}
}

func newPipeline(source *fakeSource, st *fakeStore, cls *spyClassifier, ceiling int) *Pipeline {
	return New(source, st, cls, nil, &config.ScanConfig{
		AllowedDomains: []string{"example.com"},
		MaxResults:     50,
		WordCeiling:    ceiling,
	})
}

func scoredRecord(id string) *model.Email {
	record := &model.Email{MessageID: id, Sender: "old@example.com", Body: "old body"}
	record.SetScores(0.9, 0.1)
	return record
}

func TestRunScoresNewEmail(t *testing.T) {
	source := &fakeSource{
		ids:      []string{"m1"},
		messages: map[string]mailbox.Message{"m1": {Sender: "a@example.com", Body: "four words of text"}},
	}
	st := newFakeStore()
	cls := &spyClassifier{results: map[string]classifier.Result{
		"four words of text": {Status: classifier.StatusScored, AIProbability: 0.8, HumanProbability: 0.2},
	}}

	report, err := newPipeline(source, st, cls, 1000).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Stats{Scored: 1}, report.Stats)
	assert.Equal(t, []string{"m1"}, st.upserted)
	require.True(t, st.records["m1"].HasScores())
	assert.Equal(t, 0.8, *st.records["m1"].AIScore)
	assert.Equal(t, 0.2, *st.records["m1"].HumanScore)
	assert.Equal(t, "a@example.com", st.records["m1"].Sender)
	assert.Equal(t, 4, report.Usage.WordsConsumed)
}

func TestRunNeverReclassifiesScoredEmail(t *testing.T) {
	source := &fakeSource{ids: []string{"m1"}}
	st := newFakeStore()
	st.records["m1"] = scoredRecord("m1")
	cls := &spyClassifier{}

	report, err := newPipeline(source, st, cls, 1000).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Stats{SkippedAlreadyScored: 1}, report.Stats)
	assert.Empty(t, cls.calls)
	assert.Empty(t, st.upserted)
}

func TestRunEmptyBodyIsErroredWithoutPersist(t *testing.T) {
	source := &fakeSource{
		ids:      []string{"m1"},
		messages: map[string]mailbox.Message{"m1": {Sender: "a@example.com", Body: ""}},
	}
	st := newFakeStore()
	cls := &spyClassifier{}

	report, err := newPipeline(source, st, cls, 1000).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Stats{Errored: 1}, report.Stats)
	assert.Empty(t, cls.calls)
	assert.Empty(t, st.upserted)
}

func TestRunQuotaOvershootHaltsBeforeClassifierCall(t *testing.T) {
	seed := strings.Repeat("word ", 90)
	over := strings.Repeat("word ", 11)
	source := &fakeSource{
		ids: []string{"seed", "over", "never"},
		messages: map[string]mailbox.Message{
			"seed":  {Sender: "a@example.com", Body: seed},
			"over":  {Sender: "b@example.com", Body: over},
			"never": {Sender: "c@example.com", Body: "unreachable"},
		},
	}
	st := newFakeStore()
	cls := &spyClassifier{}

	report, err := newPipeline(source, st, cls, 100).Run(context.Background())
	require.NoError(t, err)

	// Only the seed email reaches the classifier; the 11-word email trips
	// the circuit breaker and the run stops before the third candidate.
	assert.Equal(t, []string{seed}, cls.calls)
	assert.True(t, report.HaltedOnQuota)
	assert.Equal(t, Stats{Scored: 1}, report.Stats)
	assert.Equal(t, 90, report.Usage.WordsConsumed)
	assert.Equal(t, []string{"seed"}, st.upserted)
}

func TestRunScoresUpToExactCeiling(t *testing.T) {
	seed := strings.Repeat("word ", 90)
	exact := strings.Repeat("word ", 10)
	source := &fakeSource{
		ids: []string{"seed", "exact"},
		messages: map[string]mailbox.Message{
			"seed":  {Sender: "a@example.com", Body: seed},
			"exact": {Sender: "b@example.com", Body: exact},
		},
	}
	st := newFakeStore()
	cls := &spyClassifier{}

	report, err := newPipeline(source, st, cls, 100).Run(context.Background())
	require.NoError(t, err)

	assert.False(t, report.HaltedOnQuota)
	assert.Equal(t, Stats{Scored: 2}, report.Stats)
	assert.Equal(t, 100, report.Usage.WordsConsumed)
	assert.Equal(t, 0, report.Usage.WordsRemaining)
}

func TestRunMixedCandidates(t *testing.T) {
	body := strings.Repeat("word ", 200)
	source := &fakeSource{
		ids: []string{"a", "b", "c"},
		messages: map[string]mailbox.Message{
			"b": {Sender: "b@example.com", Body: ""},
			"c": {Sender: "c@example.com", Body: body},
		},
	}
	st := newFakeStore()
	st.records["a"] = scoredRecord("a")
	cls := &spyClassifier{results: map[string]classifier.Result{
		body: {Status: classifier.StatusScored, AIProbability: 0.8, HumanProbability: 0.2},
	}}

	report, err := newPipeline(source, st, cls, 1000).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Stats{Scored: 1, SkippedAlreadyScored: 1, Errored: 1}, report.Stats)
	assert.Equal(t, []string{"c"}, st.upserted)
	require.True(t, st.records["c"].HasScores())
	assert.Equal(t, 200, report.Usage.WordsConsumed)
}

func TestRunRateLimitedEmailPersistedWithoutScores(t *testing.T) {
	source := &fakeSource{
		ids:      []string{"d"},
		messages: map[string]mailbox.Message{"d": {Sender: "d@example.com", Body: "ten words or so"}},
	}
	st := newFakeStore()
	cls := &spyClassifier{results: map[string]classifier.Result{
		"ten words or so": {Status: classifier.StatusRateLimited},
	}}

	report, err := newPipeline(source, st, cls, 1000).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Stats{SkippedQuotaOrRateLimit: 1}, report.Stats)
	assert.Equal(t, []string{"d"}, st.upserted)
	assert.False(t, st.records["d"].HasScores())
	assert.Equal(t, "d@example.com", st.records["d"].Sender)
	assert.Equal(t, "ten words or so", st.records["d"].Body)
	// A failed scoring attempt consumes no quota.
	assert.Equal(t, 0, report.Usage.WordsConsumed)
}

func TestRunRepeatedUpsertIsIdempotent(t *testing.T) {
	source := &fakeSource{
		ids:      []string{"r"},
		messages: map[string]mailbox.Message{"r": {Sender: "r@example.com", Body: "same body every run"}},
	}
	st := newFakeStore()
	cls := &spyClassifier{results: map[string]classifier.Result{
		"same body every run": {Status: classifier.StatusRateLimited},
	}}
	pipe := newPipeline(source, st, cls, 1000)

	// First run persists the record without scores. A scoreless record is
	// picked up again by the next run and upserted a second time with the
	// same content.
	_, err := pipe.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, st.records, 1)
	afterOne := *st.records["r"]

	_, err = pipe.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"r", "r"}, st.upserted)
	require.Len(t, st.records, 1)
	assert.Equal(t, afterOne, *st.records["r"])
}

func TestRunClassifierErrorPersistedWithoutScores(t *testing.T) {
	source := &fakeSource{
		ids:      []string{"e"},
		messages: map[string]mailbox.Message{"e": {Sender: "e@example.com", Body: "some body"}},
	}
	st := newFakeStore()
	cls := &spyClassifier{results: map[string]classifier.Result{
		"some body": {Status: classifier.StatusError, Detail: "boom"},
	}}

	report, err := newPipeline(source, st, cls, 1000).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Stats{SkippedQuotaOrRateLimit: 1}, report.Stats)
	assert.False(t, st.records["e"].HasScores())
	assert.Equal(t, 0, report.Usage.WordsConsumed)
}

func TestRunUpsertFailureDoesNotAbortRun(t *testing.T) {
	source := &fakeSource{
		ids: []string{"bad", "good"},
		messages: map[string]mailbox.Message{
			"bad":  {Sender: "a@example.com", Body: "first body"},
			"good": {Sender: "b@example.com", Body: "second body"},
		},
	}
	st := newFakeStore()
	st.upsertErr = map[string]error{"bad": errors.New("connection reset")}
	cls := &spyClassifier{}

	report, err := newPipeline(source, st, cls, 1000).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Stats{Scored: 1, Errored: 1}, report.Stats)
	assert.Equal(t, []string{"good"}, st.upserted)
}

func TestRunStoreLookupFailureIsItemLocal(t *testing.T) {
	source := &fakeSource{
		ids:      []string{"x", "y"},
		messages: map[string]mailbox.Message{"y": {Sender: "y@example.com", Body: "body"}},
	}
	st := newFakeStore()
	st.existsErr = map[string]error{"x": errors.New("timeout")}
	cls := &spyClassifier{}

	report, err := newPipeline(source, st, cls, 1000).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Stats{Scored: 1, Errored: 1}, report.Stats)
}

func TestRunFetchFailureIsItemLocal(t *testing.T) {
	source := &fakeSource{
		ids:      []string{"x"},
		fetchErr: map[string]error{"x": errors.New("connection dropped")},
	}
	st := newFakeStore()
	cls := &spyClassifier{}

	report, err := newPipeline(source, st, cls, 1000).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Stats{Errored: 1}, report.Stats)
	assert.Empty(t, cls.calls)
}

func TestRunListFailureIsFatal(t *testing.T) {
	source := &fakeSource{listErr: errors.New("auth expired")}
	st := newFakeStore()
	cls := &spyClassifier{}

	report, err := newPipeline(source, st, cls, 1000).Run(context.Background())
	assert.Error(t, err)
	assert.Nil(t, report)
}

func TestRunHonorsCancellationBetweenItems(t *testing.T) {
	source := &fakeSource{
		ids:      []string{"m1", "m2"},
		messages: map[string]mailbox.Message{"m1": {Body: "body"}, "m2": {Body: "body"}},
	}
	st := newFakeStore()
	cls := &spyClassifier{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newPipeline(source, st, cls, 1000).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Empty(t, cls.calls)
}

func TestRunWithNoCandidates(t *testing.T) {
	source := &fakeSource{}
	st := newFakeStore()
	cls := &spyClassifier{}

	report, err := newPipeline(source, st, cls, 1000).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Stats{}, report.Stats)
	assert.Equal(t, 0, report.CandidateCount)
}
