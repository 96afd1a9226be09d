package run

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agora/pkg/budget"
	"agora/pkg/trace"
)

func TestCancelPropagates(t *testing.T) {
	rc := New(context.Background())
	require.NoError(t, rc.Err())

	rc.Cancel()
	assert.ErrorIs(t, rc.Err(), context.Canceled)

	select {
	case <-rc.Ctx().Done():
	default:
		t.Fatal("derived context not cancelled")
	}
}

func TestBudgetEmbeddedInContext(t *testing.T) {
	tracker := budget.NewTracker(budget.Limits{MaxTokens: 10}, nil)
	rc := New(context.Background(), WithBudget(tracker))
	defer rc.Cancel()

	assert.Same(t, tracker, budget.FromContext(rc.Ctx()))
	require.NoError(t, rc.CheckBudget())

	tracker.RecordTokens(budget.Usage{TotalTokens: 10}, "p", "m")
	err := rc.CheckBudget()
	require.Error(t, err)
	var exceeded *budget.ExceededError
	assert.ErrorAs(t, err, &exceeded)
}

func TestNoBudgetCheckIsNil(t *testing.T) {
	rc := New(context.Background())
	defer rc.Cancel()
	assert.NoError(t, rc.CheckBudget())
	assert.Nil(t, budget.FromContext(rc.Ctx()))
}

func TestChildTrace(t *testing.T) {
	root := trace.New("run")
	rc := New(context.Background(), WithTrace(root))
	defer rc.Cancel()

	child := rc.ChildTrace("phase")
	require.NotNil(t, child)
	assert.Equal(t, root.TraceID, child.TraceID)
	assert.Equal(t, root.SpanID, child.ParentSpanID)

	bare := New(context.Background())
	defer bare.Cancel()
	assert.Nil(t, bare.ChildTrace("phase"))
}

func TestMetadataMerged(t *testing.T) {
	rc := New(context.Background(),
		WithMetadata(map[string]string{"a": "1"}),
		WithMetadata(map[string]string{"b": "2"}),
	)
	defer rc.Cancel()
	assert.Equal(t, "1", rc.Metadata["a"])
	assert.Equal(t, "2", rc.Metadata["b"])
}

func TestDeadlineFromParent(t *testing.T) {
	parent, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	rc := New(parent)
	defer rc.Cancel()

	<-rc.Ctx().Done()
	assert.ErrorIs(t, rc.Ctx().Err(), context.DeadlineExceeded)
}
