package jobs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/listing-pipeline/internal/config"
	"github.com/sells-group/listing-pipeline/internal/model"
	"github.com/sells-group/listing-pipeline/internal/store"
)

// insertRecorder captures every insert a worker performs.
type insertRecorder struct {
	inserts []recordedInsert
}

type recordedInsert struct {
	args river.JobArgs
	opts *river.InsertOpts
}

func (r *insertRecorder) Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error) {
	r.inserts = append(r.inserts, recordedInsert{args: args, opts: opts})
	return &rivertype.JobInsertResult{}, nil
}

func (r *insertRecorder) byKind(kind string) []recordedInsert {
	var out []recordedInsert
	for _, ins := range r.inserts {
		if ins.args.Kind() == kind {
			out = append(out, ins)
		}
	}
	return out
}

// pagedStore serves a fixed eligible set honoring limit/offset.
type pagedStore struct {
	store.Store

	eligible []model.Business
}

func newPagedStore(n int) *pagedStore {
	s := &pagedStore{}
	for i := 0; i < n; i++ {
		s.eligible = append(s.eligible, model.Business{
			ID:      fmt.Sprintf("biz-%02d", i),
			Status:  model.StatusPending,
			Website: "https://example.com",
		})
	}
	return s
}

func (s *pagedStore) ListBusinesses(ctx context.Context, f store.BusinessFilter) ([]model.Business, error) {
	if f.Offset >= len(s.eligible) {
		return nil, nil
	}
	end := f.Offset + f.Limit
	if end > len(s.eligible) {
		end = len(s.eligible)
	}
	return s.eligible[f.Offset:end], nil
}

func runBatchPage(t *testing.T, s store.Store, rec *insertRecorder, region string, offset int) {
	t.Helper()
	w := &BatchWorker{
		Store:    s,
		Inserter: rec,
		Cfg:      config.BatchConfig{Size: 5, StaggerSecs: 5},
	}
	err := w.Work(context.Background(), &river.Job[BatchArgs]{
		Args: BatchArgs{RegionSlug: region, Offset: offset},
	})
	require.NoError(t, err)
}

func TestBatchWorker_TwelveEligibleScenario(t *testing.T) {
	s := newPagedStore(12)

	// Page 1 at offset 0: five research jobs staggered 0/5/10/15/20s and a
	// chain reschedule 25s out.
	rec := &insertRecorder{}
	start := time.Now().UTC()
	runBatchPage(t, s, rec, "oaxaca", 0)

	research := rec.byKind(KindResearch)
	require.Len(t, research, 5)
	for i, ins := range research {
		wantDelay := time.Duration(i) * 5 * time.Second
		assert.WithinDuration(t, start.Add(wantDelay), ins.opts.ScheduledAt, 2*time.Second)
		assert.True(t, ins.opts.UniqueOpts.ByArgs)
	}

	chains := rec.byKind(KindBatch)
	require.Len(t, chains, 1)
	assert.Equal(t, BatchArgs{RegionSlug: "oaxaca", Offset: 5}, chains[0].args)
	assert.WithinDuration(t, start.Add(25*time.Second), chains[0].opts.ScheduledAt, 2*time.Second)

	// Page 2 at offset 5: full page, chains to offset 10.
	rec = &insertRecorder{}
	runBatchPage(t, s, rec, "oaxaca", 5)
	require.Len(t, rec.byKind(KindResearch), 5)
	chains = rec.byKind(KindBatch)
	require.Len(t, chains, 1)
	assert.Equal(t, BatchArgs{RegionSlug: "oaxaca", Offset: 10}, chains[0].args)

	// Page 3 at offset 10: two rows, short page, chain terminates.
	rec = &insertRecorder{}
	runBatchPage(t, s, rec, "oaxaca", 10)
	assert.Len(t, rec.byKind(KindResearch), 2)
	assert.Empty(t, rec.byKind(KindBatch))
}

func TestBatchWorker_ChainIssuesCeilPages(t *testing.T) {
	s := newPagedStore(12)
	pages := 0
	offset := 0
	for {
		rec := &insertRecorder{}
		runBatchPage(t, s, rec, "r", offset)
		pages++
		chains := rec.byKind(KindBatch)
		if len(chains) == 0 {
			break
		}
		offset = chains[0].args.(BatchArgs).Offset
	}
	assert.Equal(t, 3, pages) // ceil(12/5)
}

func TestBatchWorker_EmptyRegionTerminatesImmediately(t *testing.T) {
	rec := &insertRecorder{}
	runBatchPage(t, newPagedStore(0), rec, "empty", 0)
	assert.Empty(t, rec.inserts)
}

func TestBatchWorker_DuplicateInvocationsShareUniqueness(t *testing.T) {
	// Two concurrent invocations for the same (region, offset) insert
	// identical research args; uniqueness-by-args lets the queue absorb the
	// duplicates.
	s := newPagedStore(5)
	rec1 := &insertRecorder{}
	rec2 := &insertRecorder{}
	runBatchPage(t, s, rec1, "r", 0)
	runBatchPage(t, s, rec2, "r", 0)

	r1 := rec1.byKind(KindResearch)
	r2 := rec2.byKind(KindResearch)
	require.Equal(t, len(r1), len(r2))
	for i := range r1 {
		assert.Equal(t, r1[i].args, r2[i].args)
		assert.True(t, r1[i].opts.UniqueOpts.ByArgs)
	}
}
