package approval_test

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/coinfund/internal/approval"
)

func TestStatusOf(t *testing.T) {
	t.Parallel()

	n := big.NewInt
	tests := []struct {
		name         string
		approvals    *big.Int
		contributors *big.Int
		complete     bool
		want         approval.Status
	}{
		{"no contributors", n(0), n(0), false, approval.Unapproved},
		{"nil counts", nil, nil, false, approval.Unapproved},
		{"one of one", n(1), n(1), false, approval.Approved},
		{"one of three", n(1), n(3), false, approval.Unapproved},
		{"two of three", n(2), n(3), false, approval.Approved},
		{"exactly half", n(2), n(4), false, approval.Unapproved},
		{"three of four", n(3), n(4), false, approval.Approved},
		{"nil contributors with approvals", n(1), nil, false, approval.Approved},
		{"complete wins", n(0), n(10), true, approval.Completed},
		{"complete and approved", n(9), n(10), true, approval.Completed},
		{"huge counts", new(big.Int).Lsh(n(1), 200), new(big.Int).Lsh(n(1), 201), false, approval.Unapproved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := approval.Request{ApprovalCount: tt.approvals, Complete: tt.complete}
			assert.Equal(t, tt.want, approval.StatusOf(req, tt.contributors))
		})
	}
}

func TestStatusOf_DoesNotMutate(t *testing.T) {
	t.Parallel()

	approvals := big.NewInt(3)
	contributors := big.NewInt(5)
	approval.StatusOf(approval.Request{ApprovalCount: approvals}, contributors)
	assert.Equal(t, int64(3), approvals.Int64())
	assert.Equal(t, int64(5), contributors.Int64())
}

func TestProgress(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2/3", approval.Progress(approval.Request{ApprovalCount: big.NewInt(2)}, big.NewInt(3)))
	assert.Equal(t, "0/0", approval.Progress(approval.Request{}, nil))
}

func TestStatus_Text(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unapproved", approval.Unapproved.String())
	assert.Equal(t, "approved", approval.Approved.String())
	assert.Equal(t, "completed", approval.Completed.String())

	b, err := json.Marshal(map[string]approval.Status{"status": approval.Approved})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"approved"}`, string(b))
}
