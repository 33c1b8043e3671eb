package audit

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hrflow/internal/requestctx"
)

type recordingExec struct {
	sql  string
	args []any
}

func (r *recordingExec) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	r.sql = sql
	r.args = args
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestInsertCarriesRequestContext(t *testing.T) {
	ctx := requestctx.WithClientIP(requestctx.WithRequestID(context.Background(), "req-9"), "10.1.1.1")
	exec := &recordingExec{}

	err := Insert(ctx, exec, "t1", Entry{
		ActorUserID: "u1",
		Action:      "appraisal.submit_review",
		EntityType:  "appraisal",
		EntityID:    "a1",
		Before:      map[string]string{"status": "submitted"},
		After:       map[string]string{"status": "completed"},
	})
	require.NoError(t, err)
	require.Len(t, exec.args, 9)
	assert.Equal(t, "t1", exec.args[0])
	assert.Equal(t, "req-9", exec.args[7])
	assert.Equal(t, "10.1.1.1", exec.args[8])

	var after map[string]string
	require.NoError(t, json.Unmarshal(exec.args[6].([]byte), &after))
	assert.Equal(t, "completed", after["status"])
}

func TestInsertWithoutActor(t *testing.T) {
	exec := &recordingExec{}
	require.NoError(t, Insert(context.Background(), exec, "t1", Entry{Action: "x", EntityType: "y", EntityID: "z"}))
	assert.Nil(t, exec.args[1])
	assert.Nil(t, exec.args[5])
}

func TestBuildBaseQuery(t *testing.T) {
	query, args := buildBaseQuery("SELECT COUNT(1)", "t1", Filter{EntityType: "appraisal", ActorUser: "u1"})
	assert.Equal(t, "SELECT COUNT(1) FROM audit_events WHERE tenant_id = $1 AND entity_type = $2 AND actor_user_id::text = $3", query)
	assert.Equal(t, []any{"t1", "appraisal", "u1"}, args)
}
