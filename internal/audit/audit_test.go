package audit

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpataki/recipeforge/internal/engine"
)

func TestStore_RecordAndHistory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	store, err := Open(dbPath)
	require.NoError(t, err)
	defer store.Close()

	store.Record(engine.Event{RunID: "run-1", RecipeID: "review-and-commit", SessionID: "sess-1", Step: "code-review", Kind: engine.EventStepStart, StepCount: 1, Visit: 1})
	store.Record(engine.Event{RunID: "run-1", RecipeID: "review-and-commit", SessionID: "sess-1", Step: "code-review", Kind: engine.EventTransition, Detail: "no-issues"})
	store.Record(engine.Event{RunID: "run-1", RecipeID: "review-and-commit", SessionID: "sess-1", Kind: engine.EventRunEnd, Detail: "changes-committed"})

	history, err := store.History("run-1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, string(engine.EventStepStart), history[0].Kind)
	assert.Equal(t, "changes-committed", history[2].Detail)
}

func TestStore_NeverStoresPromptText(t *testing.T) {
	// engine.Event has no field capable of carrying prompt or response
	// text; this test documents that guarantee at the type level rather
	// than by scanning stored bytes.
	typ := reflect.TypeOf(engine.Event{})
	for i := 0; i < typ.NumField(); i++ {
		name := typ.Field(i).Name
		assert.NotContains(t, name, "Prompt")
		assert.NotContains(t, name, "Response")
	}
}

func TestStore_RecentRunIDs(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	store, err := Open(dbPath)
	require.NoError(t, err)
	defer store.Close()

	store.Record(engine.Event{RunID: "run-a", Kind: engine.EventRunEnd})
	store.Record(engine.Event{RunID: "run-b", Kind: engine.EventRunEnd})

	ids, err := store.RecentRunIDs(10)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}
