package ident_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/glowlabs/glowchat/backend/pkg/ident"
)

func TestNewEmbedsKindAndTimestamp(t *testing.T) {
	before := time.Now().Add(-time.Second)
	id := ident.New(ident.KindSession)
	after := time.Now().Add(time.Second)

	require.Regexp(t, `^session_\d+_[0-9a-f]{9}$`, id)

	ts, ok := ident.ParseCreatedAt(id)
	require.True(t, ok)
	require.True(t, ts.After(before) && ts.Before(after), "embedded timestamp out of range: %v", ts)
}

func TestNewDistinguishesKinds(t *testing.T) {
	sid := ident.New(ident.KindSession)
	jid := ident.New(ident.KindJob)

	require.Regexp(t, `^session_`, sid)
	require.Regexp(t, `^imgjob_`, jid)
}

func TestNewDoesNotCollide(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := ident.New(ident.KindJob)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}

func TestParseCreatedAtRejectsMalformed(t *testing.T) {
	for _, id := range []string{"", "session", "session_abc_def", "a_b_c_d"} {
		_, ok := ident.ParseCreatedAt(id)
		require.False(t, ok, "expected parse failure for %q", id)
	}
}
