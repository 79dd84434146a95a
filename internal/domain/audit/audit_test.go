package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildBaseQuery(t *testing.T) {
	query, args := buildBaseQuery("SELECT COUNT(1)", "org", Filter{Action: ActionRequestApprove, EntityID: "r1"})
	assert.Equal(t, "SELECT COUNT(1) FROM audit_events WHERE tenant_id = $1 AND action = $2 AND entity_id = $3", query)
	assert.Equal(t, []any{"org", ActionRequestApprove, "r1"}, args)
}

func TestMarshalOptional(t *testing.T) {
	raw, err := marshalOptional(nil)
	assert.NoError(t, err)
	assert.Nil(t, raw)

	raw, err = marshalOptional(map[string]string{"status": "APPROVED"})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"status":"APPROVED"}`, string(raw))
}
